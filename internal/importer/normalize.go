package importer

// normalize.go provides the string normalization used by every heuristic
// in this package (sheet classification, column mapping, account lookup,
// nature classification).
//
// Spreadsheet headers and names are human-authored Brazilian Portuguese:
// the same column shows up as "Descrição", "descricao" or "DESCRICAO "
// depending on who last edited the workbook. All matching therefore
// happens over a folded form: lower-cased, diacritics stripped, inner
// whitespace collapsed.

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer decomposes to NFD, drops combining marks, and
// recomposes. "Lançamento" -> "Lancamento".
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold returns s lower-cased with diacritics removed and surrounding
// whitespace trimmed. Invalid UTF-8 falls back to the lower-cased input.
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// foldCompact additionally collapses runs of inner whitespace to a single
// space, so "Plano  de Contas" matches "plano de contas".
func foldCompact(s string) string {
	return strings.Join(strings.Fields(Fold(s)), " ")
}

// containsAny reports whether the folded form of s contains any of the
// given tokens. Tokens are expected to already be folded.
func containsAny(s string, tokens ...string) bool {
	folded := foldCompact(s)
	for _, tok := range tokens {
		if strings.Contains(folded, tok) {
			return true
		}
	}
	return false
}

// cleanCell removes common spreadsheet artifacts from a cell value:
// surrounding whitespace, Excel formula prefixes (="value") and stray
// surrounding quotes.
func cleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}

// isEmptyRow reports whether every cell in the row is blank.
func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// cellAt returns the cleaned cell at position i, or "" when the row is
// shorter than the header (the Sheets API omits trailing empty cells).
func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return cleanCell(row[i])
}
