package internal

import "github.com/shopspring/decimal"

type SourceKind string

const (
	SourceText  SourceKind = "text"
	SourceEmail SourceKind = "email"
	SourceHTML  SourceKind = "html"
	SourcePDF   SourceKind = "pdf"
)

type DocumentStatus string

const (
	StatusFetched  DocumentStatus = "fetched"
	StatusParsed   DocumentStatus = "parsed"
	StatusSkipped  DocumentStatus = "skipped"
	StatusFailed   DocumentStatus = "failed"
	StatusExported DocumentStatus = "exported"
)

type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// OrderRecord is one parsed order. LineItems keeps the order in which the
// catalog lines appeared in the source document.
type OrderRecord struct {
	Variant     string          `json:"variant"`
	OrderNumber string          `json:"orderNumber,omitempty"`
	OrderDate   string          `json:"orderDate"`
	FirstName   string          `json:"firstName"`
	LastName    string          `json:"lastName"`
	CardAccount string          `json:"cardAccount"`
	OrderTotal  decimal.Decimal `json:"orderTotal"`
	LineItems   []LineItem      `json:"lineItems"`
}

// OrderRow is one tabular output row; scalar order fields repeat on every
// line item of the same order.
type OrderRow struct {
	FirstName       string `csv:"First Name"`
	LastName        string `csv:"Last Name"`
	Description     string `csv:"Description"`
	QuantityShipped string `csv:"Quantity Shipped"`
	UnitPrice       string `csv:"Unit Price"`
	Amount          string `csv:"Amount"`
	OrderTotal      string `csv:"Order Total"`
	OrderDate       string `csv:"Order Date"`
	CardAccount     string `csv:"Card Account"`
	OrderNumber     string `csv:"Order Number"`
}

type Document struct {
	Name    string
	Source  SourceKind
	Subject string
	Text    string
}

type DocumentRow struct {
	ID         int            `json:"id"`
	Provider   string         `json:"provider"`
	MessageID  string         `json:"messageId"`
	Subject    string         `json:"subject"`
	Sender     string         `json:"sender"`
	ReceivedAt string         `json:"receivedAt"`
	Hash       string         `json:"hash"`
	Status     DocumentStatus `json:"status"`
	RawRef     string         `json:"-"`
	Variant    *string        `json:"variant,omitempty"`
	Error      *string        `json:"error,omitempty"`
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}
