package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"orderscan/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := conn.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS documents (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  variant TEXT,
  error TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);

CREATE TABLE IF NOT EXISTS orders (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  documentId INTEGER NOT NULL UNIQUE,
  variant TEXT NOT NULL,
  orderNumber TEXT,
  orderDate TEXT NOT NULL,
  firstName TEXT NOT NULL,
  lastName TEXT NOT NULL,
  cardAccount TEXT NOT NULL,
  orderTotal TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(documentId) REFERENCES documents(id)
);

CREATE TABLE IF NOT EXISTS line_items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  orderId INTEGER NOT NULL,
  lineNo INTEGER NOT NULL,
  description TEXT NOT NULL,
  quantity TEXT NOT NULL,
  unitPrice TEXT NOT NULL,
  lineTotal TEXT NOT NULL,
  UNIQUE(orderId, lineNo),
  FOREIGN KEY(orderId) REFERENCES orders(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  documentId INTEGER,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(documentId) REFERENCES documents(id)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

const documentColumns = `id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef, variant, error`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(s rowScanner) (internal.DocumentRow, error) {
	var row internal.DocumentRow
	var subject, sender, receivedAt sql.NullString
	err := s.Scan(&row.ID, &row.Provider, &row.MessageID, &subject, &sender, &receivedAt, &row.Hash, &row.Status, &row.RawRef, &row.Variant, &row.Error)
	row.Subject = subject.String
	row.Sender = sender.String
	row.ReceivedAt = receivedAt.String
	return row, err
}

// UpsertDocument keeps the status of a document that is already known so a
// refetch does not reprocess it.
func (d *DB) UpsertDocument(provider, messageID, subject, sender, receivedAt, hash, rawRef string, status internal.DocumentStatus) (internal.DocumentRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO documents (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, string(status), rawRef)
	if err != nil {
		return internal.DocumentRow{}, err
	}

	row, err := d.GetDocumentByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.DocumentRow{}, err
	}
	if row == nil {
		return internal.DocumentRow{}, errors.New("failed to upsert document")
	}
	return *row, nil
}

func (d *DB) GetDocumentByProviderMessageID(provider, messageID string) (*internal.DocumentRow, error) {
	row, err := scanDocument(d.conn.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE provider = ? AND messageId = ?`, provider, messageID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) GetDocumentByID(id int) (*internal.DocumentRow, error) {
	row, err := scanDocument(d.conn.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListDocumentsByStatus returns the oldest documents first. An empty
// provider matches every provider.
func (d *DB) ListDocumentsByStatus(status internal.DocumentStatus, provider string, limit int) ([]internal.DocumentRow, error) {
	rows, err := d.conn.Query(`
SELECT `+documentColumns+`
FROM documents
WHERE status = ? AND (? = '' OR provider = ?)
ORDER BY receivedAt ASC, id ASC
LIMIT ?
`, string(status), provider, provider, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.DocumentRow
	for rows.Next() {
		row, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateDocumentStatus(documentID int, status internal.DocumentStatus) error {
	_, err := d.conn.Exec(`UPDATE documents SET status = ?, error = NULL, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, string(status), documentID)
	return err
}

// MarkDocumentFailed records the error kind and message next to the failed
// status.
func (d *DB) MarkDocumentFailed(documentID int, kind, message string) error {
	_, err := d.conn.Exec(`
UPDATE documents SET status = ?, error = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?
`, string(internal.StatusFailed), kind+": "+message, documentID)
	return err
}

// SaveOrder replaces any order previously stored for the document and sets
// the document to parsed.
func (d *DB) SaveOrder(documentID int, rec internal.OrderRecord) (int64, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM line_items WHERE orderId IN (SELECT id FROM orders WHERE documentId = ?)`, documentID); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(`DELETE FROM orders WHERE documentId = ?`, documentID); err != nil {
		return 0, err
	}

	var orderNumber *string
	if rec.OrderNumber != "" {
		orderNumber = &rec.OrderNumber
	}
	result, err := tx.Exec(`
INSERT INTO orders (documentId, variant, orderNumber, orderDate, firstName, lastName, cardAccount, orderTotal)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, documentID, rec.Variant, orderNumber, rec.OrderDate, rec.FirstName, rec.LastName, rec.CardAccount, rec.OrderTotal)
	if err != nil {
		return 0, err
	}
	orderID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(`
INSERT INTO line_items (orderId, lineNo, description, quantity, unitPrice, lineTotal)
VALUES (?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i, item := range rec.LineItems {
		if _, err := stmt.Exec(orderID, i+1, item.Description, item.Quantity, item.UnitPrice, item.LineTotal); err != nil {
			return 0, err
		}
	}

	if _, err := tx.Exec(`
UPDATE documents SET status = ?, variant = ?, error = NULL, updatedAt = CURRENT_TIMESTAMP WHERE id = ?
`, string(internal.StatusParsed), rec.Variant, documentID); err != nil {
		return 0, err
	}

	return orderID, tx.Commit()
}

func (d *DB) GetOrder(documentID int) (*internal.OrderRecord, error) {
	var rec internal.OrderRecord
	var orderID int64
	var orderNumber sql.NullString
	err := d.conn.QueryRow(`
SELECT id, variant, orderNumber, orderDate, firstName, lastName, cardAccount, orderTotal
FROM orders WHERE documentId = ?
`, documentID).Scan(&orderID, &rec.Variant, &orderNumber, &rec.OrderDate, &rec.FirstName, &rec.LastName, &rec.CardAccount, &rec.OrderTotal)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.OrderNumber = orderNumber.String

	rows, err := d.conn.Query(`
SELECT description, quantity, unitPrice, lineTotal
FROM line_items WHERE orderId = ? ORDER BY lineNo ASC
`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rec.LineItems = []internal.LineItem{}
	for rows.Next() {
		var item internal.LineItem
		if err := rows.Scan(&item.Description, &item.Quantity, &item.UnitPrice, &item.LineTotal); err != nil {
			return nil, err
		}
		rec.LineItems = append(rec.LineItems, item)
	}
	return &rec, rows.Err()
}

// MustOrder is GetOrder for callers that treat a missing order as an error.
func (d *DB) MustOrder(documentID int) (internal.OrderRecord, error) {
	rec, err := d.GetOrder(documentID)
	if err != nil {
		return internal.OrderRecord{}, err
	}
	if rec == nil {
		return internal.OrderRecord{}, fmt.Errorf("order not found: documentId=%d", documentID)
	}
	return *rec, nil
}

// SumOrderTotals adds up the totals of every stored order, grouped by
// variant.
func (d *DB) SumOrderTotals() (map[string]decimal.Decimal, error) {
	rows, err := d.conn.Query(`SELECT variant, orderTotal FROM orders`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]decimal.Decimal{}
	for rows.Next() {
		var variant string
		var total decimal.Decimal
		if err := rows.Scan(&variant, &total); err != nil {
			return nil, err
		}
		out[variant] = out[variant].Add(total)
	}
	return out, rows.Err()
}

func (d *DB) InsertRun(traceID string, documentID int, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	var docID *int
	if documentID > 0 {
		docID = &documentID
	}
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, documentId, timingsJson, countsJson) VALUES (?, ?, ?, ?)`, traceID, docID, string(timingsJSON), string(countsJSON))
	return err
}

func (d *DB) CountRuns(documentID int) (int, error) {
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM runs WHERE documentId = ?`, documentID).Scan(&n)
	return n, err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
