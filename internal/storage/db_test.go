package storage

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderscan/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "orders.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleOrder() internal.OrderRecord {
	return internal.OrderRecord{
		Variant:     "confirmation",
		OrderNumber: "3101234567",
		OrderDate:   "3/14/2024",
		FirstName:   "John",
		LastName:    "Smith",
		CardAccount: "************4321",
		OrderTotal:  decimal.RequireFromString("152.48"),
		LineItems: []internal.LineItem{
			{Description: "Pipette Tips", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("19.99"), LineTotal: decimal.RequireFromString("39.98")},
			{Description: "Nitrile Gloves", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("112.50"), LineTotal: decimal.RequireFromString("112.50")},
		},
	}
}

func TestUpsertDocumentKeepsStatus(t *testing.T) {
	db := openTestDB(t)

	row, err := db.UpsertDocument("file", "a.eml", "Order", "x@y", "2024-03-14", "h1", "/tmp/a.eml", internal.StatusFetched)
	require.NoError(t, err)
	require.NoError(t, db.UpdateDocumentStatus(row.ID, internal.StatusSkipped))

	again, err := db.UpsertDocument("file", "a.eml", "Order (2)", "x@y", "2024-03-14", "h2", "/tmp/a.eml", internal.StatusFetched)
	require.NoError(t, err)
	assert.Equal(t, row.ID, again.ID)
	assert.Equal(t, internal.StatusSkipped, again.Status)
	assert.Equal(t, "Order (2)", again.Subject)
	assert.Equal(t, "h2", again.Hash)
}

func TestSaveAndGetOrder(t *testing.T) {
	db := openTestDB(t)
	doc, err := db.UpsertDocument("file", "a.txt", "", "", "", "h", "a.txt", internal.StatusFetched)
	require.NoError(t, err)

	_, err = db.SaveOrder(doc.ID, sampleOrder())
	require.NoError(t, err)

	got, err := db.GetOrder(doc.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Smith", got.LastName)
	assert.Equal(t, "3101234567", got.OrderNumber)
	assert.True(t, got.OrderTotal.Equal(decimal.RequireFromString("152.48")))
	require.Len(t, got.LineItems, 2)
	assert.Equal(t, "Pipette Tips", got.LineItems[0].Description)
	assert.True(t, got.LineItems[1].UnitPrice.Equal(decimal.RequireFromString("112.5")))

	stored, err := db.GetDocumentByID(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, internal.StatusParsed, stored.Status)
	require.NotNil(t, stored.Variant)
	assert.Equal(t, "confirmation", *stored.Variant)
	assert.Nil(t, stored.Error)
}

func TestSaveOrderReplacesPrevious(t *testing.T) {
	db := openTestDB(t)
	doc, err := db.UpsertDocument("file", "a.txt", "", "", "", "h", "a.txt", internal.StatusFetched)
	require.NoError(t, err)

	_, err = db.SaveOrder(doc.ID, sampleOrder())
	require.NoError(t, err)

	rec := sampleOrder()
	rec.LineItems = rec.LineItems[:1]
	rec.OrderNumber = ""
	_, err = db.SaveOrder(doc.ID, rec)
	require.NoError(t, err)

	got, err := db.MustOrder(doc.ID)
	require.NoError(t, err)
	assert.Len(t, got.LineItems, 1)
	assert.Empty(t, got.OrderNumber)
}

func TestGetOrderMissing(t *testing.T) {
	db := openTestDB(t)
	got, err := db.GetOrder(99)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = db.MustOrder(99)
	assert.Error(t, err)
}

func TestMarkDocumentFailed(t *testing.T) {
	db := openTestDB(t)
	doc, err := db.UpsertDocument("imap", "m1", "", "", "", "h", "m1.eml", internal.StatusFetched)
	require.NoError(t, err)

	require.NoError(t, db.MarkDocumentFailed(doc.ID, "unknown_month", "Mrz"))

	failed, err := db.ListDocumentsByStatus(internal.StatusFailed, "", 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	require.NotNil(t, failed[0].Error)
	assert.Equal(t, "unknown_month: Mrz", *failed[0].Error)
}

func TestListDocumentsByStatusFiltersProvider(t *testing.T) {
	db := openTestDB(t)
	_, err := db.UpsertDocument("gmail", "g1", "", "", "2024-01-01", "h", "g1.eml", internal.StatusFetched)
	require.NoError(t, err)
	_, err = db.UpsertDocument("imap", "i1", "", "", "2024-01-02", "h", "i1.eml", internal.StatusFetched)
	require.NoError(t, err)

	all, err := db.ListDocumentsByStatus(internal.StatusFetched, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "g1", all[0].MessageID)

	imapOnly, err := db.ListDocumentsByStatus(internal.StatusFetched, "imap", 10)
	require.NoError(t, err)
	require.Len(t, imapOnly, 1)
	assert.Equal(t, "i1", imapOnly[0].MessageID)
}

func TestRunsAndMetadata(t *testing.T) {
	db := openTestDB(t)
	doc, err := db.UpsertDocument("file", "a.txt", "", "", "", "h", "a.txt", internal.StatusFetched)
	require.NoError(t, err)

	require.NoError(t, db.InsertRun("trace-1", doc.ID, map[string]float64{"parse": 1.5}, map[string]int{"lineItems": 2}))
	n, err := db.CountRuns(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	v, err := db.GetMetadata("lastFetch")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, db.SetMetadata("lastFetch", "2024-03-14"))
	require.NoError(t, db.SetMetadata("lastFetch", "2024-03-15"))
	v, err = db.GetMetadata("lastFetch")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "2024-03-15", *v)
}

func TestSumOrderTotals(t *testing.T) {
	db := openTestDB(t)
	for _, id := range []string{"a", "b"} {
		doc, err := db.UpsertDocument("file", id, "", "", "", "h", id, internal.StatusFetched)
		require.NoError(t, err)
		_, err = db.SaveOrder(doc.ID, sampleOrder())
		require.NoError(t, err)
	}

	totals, err := db.SumOrderTotals()
	require.NoError(t, err)
	assert.True(t, totals["confirmation"].Equal(decimal.RequireFromString("304.96")))
}
