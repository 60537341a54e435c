package parser

import (
	"fmt"
	"strconv"
)

var monthNumbers = map[string]int{
	"Jan": 1, "Feb": 2, "Mar": 3, "Apr": 4, "May": 5, "Jun": 6,
	"Jul": 7, "Aug": 8, "Sep": 9, "Oct": 10, "Nov": 11, "Dec": 12,
}

// formatDate renders the raw tokens as month/day/year without zero
// padding.
func formatDate(d rawDate) (string, error) {
	month, ok := monthNumbers[d.month]
	if !ok {
		return "", &ParseError{Kind: KindUnknownMonth, LineNo: d.lineNo, Line: d.line, Field: "order date", Err: fmt.Errorf("%q", d.month)}
	}
	day, err := strconv.Atoi(d.day)
	if err != nil || day < 1 || day > 31 {
		return "", &ParseError{Kind: KindMalformedField, LineNo: d.lineNo, Line: d.line, Field: "order date", Err: fmt.Errorf("bad day %q", d.day)}
	}
	year, err := strconv.Atoi(d.year)
	if err != nil || year < 0 {
		return "", &ParseError{Kind: KindMalformedField, LineNo: d.lineNo, Line: d.line, Field: "order date", Err: fmt.Errorf("bad year %q", d.year)}
	}
	return fmt.Sprintf("%d/%d/%d", month, day, year), nil
}

// splitName maps name tokens to first and last name. A single token is a
// last name with a blank first name.
func splitName(tokens []string) (first, last string) {
	switch len(tokens) {
	case 0:
		return "", ""
	case 1:
		return "", tokens[0]
	default:
		return tokens[0], tokens[1]
	}
}
