package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeFileName(t *testing.T) {
	cases := map[string]string{
		"Smith":           "Smith",
		"O'Brien":         "O'Brien",
		"van der Berg":    "van_der_Berg",
		"<id@mail>/x":     "id@mail_x",
		"  ":              "order",
		"../../etc":       "etc",
		"Smith-Jones\t ": "Smith-Jones",
	}
	for in, want := range cases {
		assert.Equal(t, want, SafeFileName(in), "input %q", in)
	}
}

func TestSplitLinesKeepsBlanks(t *testing.T) {
	lines := SplitLines("a\r\n\n  b \rc")
	assert.Equal(t, []string{"a", "", "b", "c"}, lines)
}

func TestNormalizeSpaces(t *testing.T) {
	assert.Equal(t, "Pipette Tips 200uL", NormalizeSpaces("  Pipette\tTips   200uL\n"))
}
