package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderscan/internal"
	"orderscan/internal/config"
	"orderscan/internal/metrics"
	"orderscan/internal/parser"
	"orderscan/internal/storage"
)

const badMonthDoc = `Fisher Scientific Order Number: 9
Placed: Thu Mrz 14 10:00:00 EST 2024
Attention: Jane Doe
Credit Card: VISA: ****1
*Estimated Order Total
$1.00
`

type fixture struct {
	db      *storage.DB
	svc     *ProcessingService
	metrics *metrics.Registry
	dir     string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "orders.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m := metrics.NewRegistry()
	svc, err := NewProcessingService(db, config.Config{Workers: 2, DetectThreshold: 0.45}, nil, m)
	require.NoError(t, err)
	return fixture{db: db, svc: svc, metrics: m, dir: dir}
}

// add stores blob under name in the fixture directory and registers it as a
// fetched document.
func (f fixture) add(t *testing.T, name string, blob []byte) internal.DocumentRow {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, blob, 0o644))
	doc, err := f.db.UpsertDocument("file", name, "", "", "", name, path, internal.StatusFetched)
	require.NoError(t, err)
	return doc
}

func (f fixture) addTestdata(t *testing.T, name string) internal.DocumentRow {
	t.Helper()
	blob, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return f.add(t, name, blob)
}

func TestProcessPending(t *testing.T) {
	f := newFixture(t)
	conf := f.addTestdata(t, "order_confirmation.eml")
	ship := f.addTestdata(t, "shipment_html.eml")
	news := f.addTestdata(t, "newsletter.eml")
	bad := f.add(t, "bad.txt", []byte(badMonthDoc))

	batch, err := f.svc.ProcessPending(context.Background(), 10, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, parser.ErrUnknownMonth)
	assert.Equal(t, 2, batch.Parsed)
	assert.Equal(t, 1, batch.Skipped)
	assert.Equal(t, 1, batch.Failed)
	assert.Len(t, batch.Results, 4)

	rec, err := f.db.MustOrder(conf.ID)
	require.NoError(t, err)
	assert.Equal(t, "Doe", rec.LastName)
	assert.Equal(t, "3101234567", rec.OrderNumber)
	require.Len(t, rec.LineItems, 1)

	rec, err = f.db.MustOrder(ship.ID)
	require.NoError(t, err)
	assert.Equal(t, "shipment", rec.Variant)
	assert.Equal(t, "Madonna", rec.LastName)
	assert.Equal(t, "1/5/2023", rec.OrderDate)

	row, err := f.db.GetDocumentByID(news.ID)
	require.NoError(t, err)
	assert.Equal(t, internal.StatusSkipped, row.Status)

	row, err = f.db.GetDocumentByID(bad.ID)
	require.NoError(t, err)
	assert.Equal(t, internal.StatusFailed, row.Status)
	require.NotNil(t, row.Error)
	assert.Contains(t, *row.Error, "unknown_month")

	runs, err := f.db.CountRuns(conf.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, runs)

	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.Documents.WithLabelValues("parsed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ParseErrors.WithLabelValues("unknown_month")))

	again, err := f.svc.ProcessPending(context.Background(), 10, "")
	require.NoError(t, err)
	assert.Empty(t, again.Results)
}

func TestProcessDocumentReturnsParseError(t *testing.T) {
	f := newFixture(t)
	bad := f.add(t, "bad.txt", []byte(badMonthDoc))

	res, err := f.svc.ProcessDocument(context.Background(), bad)
	require.ErrorIs(t, err, parser.ErrUnknownMonth)
	assert.Equal(t, internal.StatusFailed, res.Status)
}

func TestProcessByProviderMessageID(t *testing.T) {
	f := newFixture(t)
	f.addTestdata(t, "order_confirmation.eml")

	res, err := f.svc.ProcessByProviderMessageID(context.Background(), "file", "order_confirmation.eml")
	require.NoError(t, err)
	assert.Equal(t, internal.StatusParsed, res.Status)
	assert.Equal(t, "confirmation", res.Variant)
	assert.Equal(t, 1, res.LineItems)

	_, err = f.svc.ProcessByProviderMessageID(context.Background(), "file", "missing")
	assert.Error(t, err)
}

func TestNewProcessingServiceRejectsUnknownVariant(t *testing.T) {
	_, err := NewProcessingService(nil, config.Config{Variant: "invoice"}, nil, nil)
	assert.Error(t, err)
}

func TestParseFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join("testdata", "order_confirmation.eml")
	bad := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte(badMonthDoc), 0o644))
	missing := filepath.Join(dir, "missing.txt")

	p, err := parser.New(parser.Options{})
	require.NoError(t, err)

	results, err := ParseFiles(context.Background(), p, []string{good, bad, missing}, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.Equal(t, "Jane", results[0].Record.FirstName)
	assert.ErrorIs(t, results[1].Err, parser.ErrUnknownMonth)
	assert.Error(t, results[2].Err)

	errs := FileErrors(results)
	require.Error(t, errs)
	assert.Contains(t, errs.Error(), "bad.txt")
	assert.Contains(t, errs.Error(), "missing.txt")
}
