package parser

import (
	"errors"
	"fmt"
	"strings"
)

// rawDate holds the date tokens as they appear in the document; formatting
// happens when the record is finalized.
type rawDate struct {
	month  string
	day    string
	year   string
	lineNo int
	line   string
}

// extractDate splits a date such as "Thu Mar 14 10:00:00 EST 2024".
func extractDate(rest string) (month, day, year string, err error) {
	tokens := strings.Fields(rest)
	if len(tokens) != 6 {
		return "", "", "", fmt.Errorf("want 6 date tokens, got %d", len(tokens))
	}
	return tokens[1], tokens[2], tokens[5], nil
}

func extractOrderNumber(line string) (string, bool) {
	_, value, ok := strings.Cut(line, ": ")
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

// extractName drops an optional "/ role" suffix and returns the name
// tokens.
func extractName(rest string) ([]string, error) {
	name, _, _ := strings.Cut(rest, "/")
	tokens := strings.Fields(name)
	if len(tokens) == 0 {
		return nil, errors.New("empty name")
	}
	return tokens, nil
}

func extractPayment(line string, segment int) (string, error) {
	parts := strings.Split(line, ": ")
	if segment >= len(parts) {
		return "", fmt.Errorf("want segment %d, line has %d", segment, len(parts))
	}
	value := strings.TrimSpace(parts[segment])
	if value == "" {
		return "", fmt.Errorf("segment %d is empty", segment)
	}
	return value, nil
}

type catalogFields struct {
	qty   string
	price string
	total string
}

// extractCatalog cuts the quantity, unit price and line total substrings
// out of a catalog line. The three anchors must all be present, in order.
func extractCatalog(v Variant, rest string) (catalogFields, error) {
	qtyAt := strings.Index(rest, v.QtyAnchor)
	if qtyAt < 0 {
		return catalogFields{}, fmt.Errorf("missing %q", v.QtyAnchor)
	}
	afterQty := qtyAt + len(v.QtyAnchor)

	priceAt := strings.Index(rest[afterQty:], v.PriceAnchor)
	if priceAt < 0 {
		return catalogFields{}, fmt.Errorf("missing %q after %q", v.PriceAnchor, v.QtyAnchor)
	}
	priceAt += afterQty
	afterPrice := priceAt + len(v.PriceAnchor)

	totalAt := strings.Index(rest[afterPrice:], v.TotalAnchor)
	if totalAt < 0 {
		return catalogFields{}, fmt.Errorf("missing %q after %q", v.TotalAnchor, v.PriceAnchor)
	}
	totalAt += afterPrice

	return catalogFields{
		qty:   rest[afterQty:priceAt],
		price: rest[afterPrice:totalAt],
		total: rest[totalAt+len(v.TotalAnchor):],
	}, nil
}
