package parser

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"orderscan/internal"
)

// orderBuilder accumulates raw values for a single document. It lives for
// one Parse call only.
type orderBuilder struct {
	log *zap.SugaredLogger

	orderNumber *string
	date        *rawDate
	nameTokens  []string
	cardAccount *string
	total       *decimal.Decimal

	descriptions []string
	quantities   []decimal.Decimal
	unitPrices   []decimal.Decimal
	lineTotals   []decimal.Decimal
}

func newOrderBuilder(log *zap.SugaredLogger) *orderBuilder {
	return &orderBuilder{log: log}
}

// once reports whether a scalar field is still unset. Later occurrences
// are ignored.
func (b *orderBuilder) once(field string, set bool, lineNo int) bool {
	if set {
		b.log.Debugw("ignoring repeated field", "field", field, "line", lineNo)
		return false
	}
	return true
}

func (b *orderBuilder) setOrderNumber(lineNo int, v string) {
	if b.once("order number", b.orderNumber != nil, lineNo) {
		b.orderNumber = &v
	}
}

func (b *orderBuilder) setDate(d rawDate) {
	if b.once("order date", b.date != nil, d.lineNo) {
		b.date = &d
	}
}

func (b *orderBuilder) setName(lineNo int, tokens []string) {
	if b.once("name", b.nameTokens != nil, lineNo) {
		b.nameTokens = tokens
	}
}

func (b *orderBuilder) setCardAccount(lineNo int, v string) {
	if b.once("card account", b.cardAccount != nil, lineNo) {
		b.cardAccount = &v
	}
}

func (b *orderBuilder) setTotal(lineNo int, v decimal.Decimal) {
	if b.once("order total", b.total != nil, lineNo) {
		b.total = &v
	}
}

// addLineItem appends to the three numeric accumulators together so they
// never drift apart.
func (b *orderBuilder) addLineItem(qty, price, total decimal.Decimal) {
	b.quantities = append(b.quantities, qty)
	b.unitPrices = append(b.unitPrices, price)
	b.lineTotals = append(b.lineTotals, total)
}

func (b *orderBuilder) addDescription(v string) {
	b.descriptions = append(b.descriptions, v)
}

func (b *orderBuilder) build(variant string) (internal.OrderRecord, error) {
	if len(b.descriptions) != len(b.quantities) {
		return internal.OrderRecord{}, &ParseError{
			Kind: KindRecordLengthMismatch,
			Err:  fmt.Errorf("%d catalog lines, %d description lines", len(b.quantities), len(b.descriptions)),
		}
	}

	missing := func(field string) error {
		return &ParseError{Kind: KindMissingRequiredField, Field: field}
	}
	switch {
	case b.date == nil:
		return internal.OrderRecord{}, missing("order date")
	case b.nameTokens == nil:
		return internal.OrderRecord{}, missing("name")
	case b.cardAccount == nil:
		return internal.OrderRecord{}, missing("card account")
	case b.total == nil:
		return internal.OrderRecord{}, missing("order total")
	}

	date, err := formatDate(*b.date)
	if err != nil {
		return internal.OrderRecord{}, err
	}
	first, last := splitName(b.nameTokens)

	rec := internal.OrderRecord{
		Variant:     variant,
		OrderDate:   date,
		FirstName:   first,
		LastName:    last,
		CardAccount: *b.cardAccount,
		OrderTotal:  *b.total,
		LineItems:   make([]internal.LineItem, len(b.descriptions)),
	}
	if b.orderNumber != nil {
		rec.OrderNumber = *b.orderNumber
	}
	for i := range b.descriptions {
		rec.LineItems[i] = internal.LineItem{
			Description: b.descriptions[i],
			Quantity:    b.quantities[i],
			UnitPrice:   b.unitPrices[i],
			LineTotal:   b.lineTotals[i],
		}
	}
	return rec, nil
}
