package importer

// parse.go converts free-text spreadsheet cells into amounts and dates.
//
// These functions handle the messy reality of human-maintained financial
// workbooks:
//   - Brazilian number formatting ("1.234,56") next to plain formatting ("1234.56")
//   - Currency symbols (R$, $, €) and stray whitespace inside the cell
//   - Accounting-style negatives "(50,00)" and trailing minus "50,00-"
//   - Several date layouts, with and without two-digit years
//
// ParseAmount never fails: an unparseable cell yields decimal.Zero, and
// callers treat a zero amount as "skip this row". ParseDate distinguishes
// an empty cell (expected, skip quietly) from an unparseable one
// (ErrDateUnparseable, reported as a row error).

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrDateUnparseable is returned by ParseDate when the cell is non-empty
// but matches none of the known layouts.
var ErrDateUnparseable = errors.New("date matches no known layout")

// dateLayouts is ordered: day-first Brazilian layouts win over the US
// month-first layout when a value like "02/01/2025" is ambiguous.
var dateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
	"02-01-2006",
	"01/02/2006",
	"2/1/2006",
	"02/01/06",
	"2/1/06",
	"2006/01/02",
}

// currencySymbols are stripped before numeric interpretation.
var currencySymbols = []string{"R$", "$", "€", "£"}

// ParseAmount converts a currency cell to a decimal value.
//
// Separator convention is detected from the cell itself: when both "." and
// "," are present the last one is the decimal separator; a lone ","
// is always decimal (Brazilian); a lone "." is thousands only when it is
// followed by exactly three digits more than once or groups cleanly,
// otherwise decimal. A leading/trailing "-" or surrounding parentheses
// negate the value. On any failure the zero value is returned.
func ParseAmount(s string) decimal.Decimal {
	s = cleanCell(s)
	if s == "" {
		return decimal.Zero
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}

	for _, sym := range currencySymbols {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.Join(strings.Fields(s), "")

	if strings.HasPrefix(s, "-") {
		neg = true
		s = strings.TrimPrefix(s, "-")
	}
	if strings.HasSuffix(s, "-") {
		neg = true
		s = strings.TrimSuffix(s, "-")
	}

	s = normalizeSeparators(s)
	if s == "" {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	if neg {
		d = d.Neg()
	}
	return d
}

// normalizeSeparators rewrites s into dot-decimal form, or returns ""
// when the separator usage is not interpretable as a number.
func normalizeSeparators(s string) string {
	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")

	switch {
	case dot >= 0 && comma >= 0:
		// Both present: the last separator is the decimal one.
		if comma > dot {
			// Brazilian: "1.234,56"
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// Plain with thousands commas: "1,234.56"
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		// Comma only: decimal separator unless it groups thousands
		// ("1,234,567" has more than one comma).
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case dot >= 0:
		// Dot only: thousands separator when it groups cleanly into
		// threes ("1.234" or "1.234.567"), decimal otherwise.
		if strings.Count(s, ".") > 1 || groupsAsThousands(s, dot) {
			s = strings.ReplaceAll(s, ".", "")
		}
	}
	return s
}

// groupsAsThousands reports whether the single dot at index dot leaves
// exactly three digits after it, the Brazilian thousands pattern.
// "1.234" -> true, "1.5" and "1234.56" -> false, "0.234" -> false (a
// leading zero never takes a thousands separator).
func groupsAsThousands(s string, dot int) bool {
	if len(s)-dot-1 != 3 {
		return false
	}
	head := s[:dot]
	if head == "" || head == "0" {
		return false
	}
	return len(head) <= 3
}

// ParseDate converts a date cell to a time.Time, trying each layout in
// order and returning the first success.
//
// An empty cell returns the zero time with a nil error; callers skip such
// rows without recording an error. A non-empty cell matching no layout
// returns ErrDateUnparseable.
func ParseDate(s string) (time.Time, error) {
	s = cleanCell(s)
	if s == "" {
		return time.Time{}, nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrDateUnparseable
}
