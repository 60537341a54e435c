// Package parser turns the plain-text rendering of an order confirmation
// into an OrderRecord. A document is read once, line by line; each line is
// classified by the markers of the document's layout and the recognised
// values are collected until end of input, when the record is finalized.
package parser

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"orderscan/internal"
	"orderscan/internal/util"
)

const maxLineSize = 1 << 20

type Options struct {
	// Variant forces a layout by name; empty means detect it per document.
	Variant string
	Logger  *zap.SugaredLogger
}

// Parser holds configuration only and may be shared between goroutines.
type Parser struct {
	variants []Variant
	log      *zap.SugaredLogger
}

func New(opts Options) (*Parser, error) {
	p := &Parser{variants: Variants, log: opts.Logger}
	if p.log == nil {
		p.log = zap.NewNop().Sugar()
	}
	if strings.TrimSpace(opts.Variant) != "" {
		v, ok := Lookup(opts.Variant)
		if !ok {
			return nil, fmt.Errorf("unknown document variant: %s", opts.Variant)
		}
		p.variants = []Variant{v}
	}
	return p, nil
}

func (p *Parser) ParseString(text string) (internal.OrderRecord, error) {
	return p.Parse(strings.NewReader(text))
}

func (p *Parser) Parse(r io.Reader) (internal.OrderRecord, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	s := &scan{candidates: p.variants, b: newOrderBuilder(p.log), log: p.log}
	if len(p.variants) == 1 {
		s.variant = &p.variants[0]
	}

	lineNo := 0
	for sc.Scan() {
		lineNo++
		if err := s.feed(lineNo, strings.TrimRight(sc.Text(), " \t\r")); err != nil {
			return internal.OrderRecord{}, err
		}
	}
	if err := sc.Err(); err != nil {
		return internal.OrderRecord{}, fmt.Errorf("read document: %w", err)
	}
	return s.finish()
}

type scan struct {
	candidates  []Variant
	variant     *Variant
	b           *orderBuilder
	expectTotal bool
	log         *zap.SugaredLogger
}

func (s *scan) feed(lineNo int, line string) error {
	if strings.TrimSpace(line) == "" {
		return nil
	}

	if s.expectTotal {
		s.expectTotal = false
		total, err := util.ParseBareAmount(line)
		if err != nil {
			return fail(KindNumericParse, lineNo, line, "order total", err)
		}
		s.b.setTotal(lineNo, total)
		return nil
	}

	if s.variant == nil && !s.sniff(line) {
		return nil
	}
	v := s.variant

	kind, rest := v.classify(line)
	switch kind {
	case kindDate:
		month, day, year, err := extractDate(rest)
		if err != nil {
			return fail(KindMalformedField, lineNo, line, "order date", err)
		}
		s.b.setDate(rawDate{month: month, day: day, year: year, lineNo: lineNo, line: line})

	case kindOrderNumber:
		number, ok := extractOrderNumber(line)
		if !ok {
			s.log.Debugw("order marker without number", "line", lineNo)
			return nil
		}
		s.b.setOrderNumber(lineNo, number)

	case kindName:
		tokens, err := extractName(rest)
		if err != nil {
			return fail(KindMalformedField, lineNo, line, "name", err)
		}
		s.b.setName(lineNo, tokens)

	case kindPayment:
		account, err := extractPayment(line, v.PaymentSegment)
		if err != nil {
			return fail(KindMalformedField, lineNo, line, "card account", err)
		}
		s.b.setCardAccount(lineNo, account)

	case kindCatalog:
		fields, err := extractCatalog(*v, rest)
		if err != nil {
			return fail(KindMalformedLineItem, lineNo, line, "", err)
		}
		qty, err := util.ParseAmount(fields.qty)
		if err != nil {
			return fail(KindNumericParse, lineNo, line, "quantity", err)
		}
		price, err := util.ParseAmount(fields.price)
		if err != nil {
			return fail(KindNumericParse, lineNo, line, "unit price", err)
		}
		total, err := util.ParseAmount(fields.total)
		if err != nil {
			return fail(KindNumericParse, lineNo, line, "line total", err)
		}
		s.b.addLineItem(qty, price, total)

	case kindDescription:
		s.b.addDescription(strings.TrimSpace(rest))

	case kindTotal:
		if v.TotalShape == TotalNextLine {
			s.expectTotal = true
			return nil
		}
		total, err := util.ParseBareAmount(line)
		if err != nil {
			s.log.Debugw("currency line is not a bare amount", "line", lineNo)
			return nil
		}
		s.b.setTotal(lineNo, total)
	}
	return nil
}

// sniff pins the layout on the first line that identifies exactly one
// candidate.
func (s *scan) sniff(line string) bool {
	var match *Variant
	for i := range s.candidates {
		if !s.candidates[i].pins(line) {
			continue
		}
		if match != nil {
			return false
		}
		match = &s.candidates[i]
	}
	if match == nil {
		return false
	}
	s.variant = match
	s.log.Debugw("document layout detected", "variant", match.Name)
	return true
}

func (s *scan) finish() (internal.OrderRecord, error) {
	if s.variant == nil {
		return internal.OrderRecord{}, &ParseError{Kind: KindUnrecognizedLayout, Err: fmt.Errorf("no markers of %s", variantNames(s.candidates))}
	}
	if s.expectTotal {
		return internal.OrderRecord{}, &ParseError{Kind: KindMissingRequiredField, Field: "order total", Err: fmt.Errorf("no amount after %q", s.variant.TotalMarker)}
	}
	return s.b.build(s.variant.Name)
}

func fail(kind Kind, lineNo int, line, field string, err error) error {
	return &ParseError{Kind: kind, LineNo: lineNo, Line: line, Field: field, Err: err}
}

func variantNames(vs []Variant) string {
	names := make([]string, 0, len(vs))
	for _, v := range vs {
		names = append(names, v.Name)
	}
	return strings.Join(names, ", ")
}
