package importer

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "brazilian thousands and decimal", input: "1.234,56", want: "1234.56"},
		{name: "plain decimal", input: "1234.56", want: "1234.56"},
		{name: "currency prefix", input: "R$ 1.234,56", want: "1234.56"},
		{name: "leading minus", input: "-50,00", want: "-50"},
		{name: "accounting parentheses", input: "(50,00)", want: "-50"},
		{name: "trailing minus", input: "50,00-", want: "-50"},
		{name: "dollar with thousands commas", input: "$1,234,567.89", want: "1234567.89"},
		{name: "comma decimal only", input: "99,90", want: "99.9"},
		{name: "dot thousands only", input: "1.234", want: "1234"},
		{name: "multiple dot thousands", input: "1.234.567", want: "1234567"},
		{name: "small dot decimal", input: "1.5", want: "1.5"},
		{name: "zero prefixed decimal", input: "0.234", want: "0.234"},
		{name: "bare integer", input: "1500", want: "1500"},
		{name: "inner whitespace", input: "R$ 1 234,56", want: "1234.56"},
		{name: "empty cell", input: "", want: "0"},
		{name: "whitespace only", input: "   ", want: "0"},
		{name: "garbage", input: "n/a", want: "0"},
		{name: "two decimal separators", input: "1,2,3.4.5", want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAmount(tt.input)
			want, err := decimal.NewFromString(tt.want)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "ParseAmount(%q) = %s, want %s", tt.input, got, want)
		})
	}
}

func TestParseAmount_RoundTrip(t *testing.T) {
	// Any non-negative value formatted with either separator convention
	// must come back unchanged within currency precision.
	values := []string{"0.01", "1", "12.5", "999.99", "1234.56", "1000000", "123456.78"}

	for _, v := range values {
		want := decimal.RequireFromString(v)

		plain := want.StringFixed(2)
		assert.True(t, want.Equal(ParseAmount(plain)), "plain %q", plain)

		brazilian := formatBrazilian(want)
		assert.True(t, want.Equal(ParseAmount(brazilian)), "brazilian %q", brazilian)
	}
}

// formatBrazilian renders a decimal as "1.234,56".
func formatBrazilian(d decimal.Decimal) string {
	s := d.StringFixed(2)
	intPart := s[:len(s)-3]
	frac := s[len(s)-2:]

	var grouped []byte
	for i, c := range []byte(intPart) {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped = append(grouped, '.')
		}
		grouped = append(grouped, c)
	}
	return string(grouped) + "," + frac
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		// Day-first wins over month-first for ambiguous values.
		{name: "day month year slash", input: "02/01/2025", want: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
		{name: "iso", input: "2025-01-02", want: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
		{name: "day month year dash", input: "02-01-2025", want: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
		{name: "unambiguous month day", input: "12/25/2024", want: time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC)},
		{name: "two digit year", input: "02/01/25", want: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
		{name: "single digit day and month", input: "2/1/2025", want: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
		})
	}
}

func TestParseDate_EmptyVsUnparseable(t *testing.T) {
	// Empty is expected and silent.
	got, err := ParseDate("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = ParseDate("   ")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	// Non-empty garbage is a distinct, reportable condition.
	_, err = ParseDate("not a date")
	assert.ErrorIs(t, err, ErrDateUnparseable)

	_, err = ParseDate("31/31/2025")
	assert.ErrorIs(t, err, ErrDateUnparseable)
}
