package parser

import "strings"

type TotalShape int

const (
	// TotalNextLine: the marker line announces that the next non-blank line
	// holds the bare amount.
	TotalNextLine TotalShape = iota
	// TotalCurrencyLine: a line starting with the marker is the amount.
	TotalCurrencyLine
)

// Variant describes one known document layout: the label of every marker
// and the field rules that differ between layouts.
type Variant struct {
	Name string

	DateMarker        string
	OrderNumberMarker string
	NameMarker        string
	PaymentMarker     string
	// PaymentSegment is the index of the `": "`-separated segment of the
	// payment line that holds the card account.
	PaymentSegment    int
	CatalogMarker     string
	QtyAnchor         string
	PriceAnchor       string
	TotalAnchor       string
	DescriptionMarker string
	TotalMarker       string
	TotalShape        TotalShape
}

var Confirmation = Variant{
	Name:              "confirmation",
	DateMarker:        "Placed:",
	OrderNumberMarker: "Fisher Scientific Order",
	NameMarker:        "Attention:",
	PaymentMarker:     "Credit Card:",
	PaymentSegment:    2,
	CatalogMarker:     "Cat No.",
	QtyAnchor:         "Qty:",
	PriceAnchor:       "Price:",
	TotalAnchor:       "Total:",
	DescriptionMarker: "Description:",
	TotalMarker:       "*Estimated Order",
	TotalShape:        TotalNextLine,
}

var Shipment = Variant{
	Name:              "shipment",
	DateMarker:        "Ordered:",
	NameMarker:        "Ship To:",
	PaymentMarker:     "Payment:",
	PaymentSegment:    1,
	CatalogMarker:     "Item No.",
	QtyAnchor:         "Qty Shipped:",
	PriceAnchor:       "Unit Price:",
	TotalAnchor:       "Amount:",
	DescriptionMarker: "Item:",
	TotalMarker:       "$",
	TotalShape:        TotalCurrencyLine,
}

var Variants = []Variant{Confirmation, Shipment}

func Lookup(name string) (Variant, bool) {
	for _, v := range Variants {
		if strings.EqualFold(v.Name, strings.TrimSpace(name)) {
			return v, true
		}
	}
	return Variant{}, false
}

type lineKind int

const (
	kindNone lineKind = iota
	kindDate
	kindOrderNumber
	kindName
	kindPayment
	kindCatalog
	kindDescription
	kindTotal
)

type marker struct {
	kind  lineKind
	label string
}

func (v Variant) markers() []marker {
	out := []marker{{kindDate, v.DateMarker}}
	if v.OrderNumberMarker != "" {
		out = append(out, marker{kindOrderNumber, v.OrderNumberMarker})
	}
	return append(out,
		marker{kindName, v.NameMarker},
		marker{kindPayment, v.PaymentMarker},
		marker{kindCatalog, v.CatalogMarker},
		marker{kindDescription, v.DescriptionMarker},
		marker{kindTotal, v.TotalMarker},
	)
}

// classify returns the role of line and the text after the marker label.
// The first matching marker wins.
func (v Variant) classify(line string) (lineKind, string) {
	for _, m := range v.markers() {
		if strings.HasPrefix(line, m.label) {
			return m.kind, line[len(m.label):]
		}
	}
	return kindNone, ""
}

// pins reports whether line identifies this layout. A currency-led total
// line is too generic to identify anything.
func (v Variant) pins(line string) bool {
	kind, _ := v.classify(line)
	if kind == kindNone {
		return false
	}
	return kind != kindTotal || v.TotalShape != TotalCurrencyLine
}

// Identify returns the layout pinned by the first identifying line of text,
// the same way Parse detects it.
func Identify(text string) (Variant, bool) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t\r")
		var match *Variant
		ambiguous := false
		for i := range Variants {
			if !Variants[i].pins(line) {
				continue
			}
			if match != nil {
				ambiguous = true
				break
			}
			match = &Variants[i]
		}
		if match != nil && !ambiguous {
			return *match, true
		}
	}
	return Variant{}, false
}
