package parser

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindUnknownMonth         Kind = "unknown_month"
	KindMalformedLineItem    Kind = "malformed_line_item"
	KindNumericParse         Kind = "numeric_parse_failure"
	KindRecordLengthMismatch Kind = "record_length_mismatch"
	KindMissingRequiredField Kind = "missing_required_field"
	KindMalformedField       Kind = "malformed_field"
	KindUnrecognizedLayout   Kind = "unrecognized_layout"
)

var (
	ErrUnknownMonth         = errors.New("unknown month")
	ErrMalformedLineItem    = errors.New("malformed line item")
	ErrNumericParse         = errors.New("numeric parse failure")
	ErrRecordLengthMismatch = errors.New("record length mismatch")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrMalformedField       = errors.New("malformed field")
	ErrUnrecognizedLayout   = errors.New("unrecognized layout")
)

var sentinels = map[Kind]error{
	KindUnknownMonth:         ErrUnknownMonth,
	KindMalformedLineItem:    ErrMalformedLineItem,
	KindNumericParse:         ErrNumericParse,
	KindRecordLengthMismatch: ErrRecordLengthMismatch,
	KindMissingRequiredField: ErrMissingRequiredField,
	KindMalformedField:       ErrMalformedField,
	KindUnrecognizedLayout:   ErrUnrecognizedLayout,
}

// ParseError is returned for every failure of a document parse. LineNo is
// 1-based and zero for failures detected at end of input.
type ParseError struct {
	Kind   Kind
	LineNo int
	Line   string
	Field  string
	Err    error
}

func (e *ParseError) Error() string {
	msg := string(e.Kind)
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.LineNo > 0 {
		msg += fmt.Sprintf(" at line %d: %q", e.LineNo, e.Line)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// KindOf reports the failure kind of err, or "" when err is not a
// ParseError.
func KindOf(err error) Kind {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
