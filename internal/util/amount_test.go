package util

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "19.99", want: "19.99"},
		{name: "currency", input: "$39.98", want: "39.98"},
		{name: "nbsp and unit", input: "2\u00a0EA", want: "2"},
		{name: "narrow nbsp", input: "$19.99\u202f/EA", want: "19.99"},
		{name: "thousands", input: "$1,234.50", want: "1234.5"},
		{name: "unit with spaces", input: " 12 PK ", want: "12"},
		{name: "fullwidth digits", input: "３", want: "3"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAmount(tc.input)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "got %s want %s", got, tc.want)
		})
	}
}

func TestParseAmountRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "EA", "$", "12 of 40", "1.2.3"} {
		_, err := ParseAmount(input)
		assert.ErrorIs(t, err, ErrNotNumeric, "input %q", input)
	}
}

func TestCleanNumericIdempotent(t *testing.T) {
	dirty := "$\u00a019.99\u00a0"
	manual := "19.99"

	a, err := ParseAmount(dirty)
	require.NoError(t, err)
	b, err := ParseAmount(manual)
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
	assert.Equal(t, CleanNumeric(manual), CleanNumeric(CleanNumeric(dirty)))
}

func TestParseBareAmount(t *testing.T) {
	d, err := ParseBareAmount("$1,039.98")
	require.NoError(t, err)
	assert.Equal(t, "1039.98", d.String())

	_, err = ParseBareAmount("$19.99 /EA")
	assert.ErrorIs(t, err, ErrNotNumeric)
}
