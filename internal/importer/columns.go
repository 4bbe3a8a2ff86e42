package importer

// columns.go maps human-authored header rows to semantic field roles.
//
// Two tables exist per sheet kind and are maintained together:
//   - fieldSpecs: accepted header substrings per role (folded matching)
//   - fallback positions: the physical column index used when the header
//     is missing or unrecognized
//
// The fallback table is explicit and versioned rather than inferred: it
// encodes the business assumption that these workbooks keep a stable
// physical layout even when someone renames or deletes the header row.

import "fmt"

// Field is a semantic role a column can play on a sheet.
type Field string

const (
	FieldGroup      Field = "group"
	FieldSubgroup   Field = "subgroup"
	FieldAccount    Field = "account"
	FieldUseAccount Field = "use_account"
	FieldDate       Field = "date"
	FieldAmount     Field = "amount"
	FieldNotes      Field = "notes"
)

// fieldSpec declares how one semantic field is located on a sheet.
type fieldSpec struct {
	Field    Field
	Headers  []string // accepted folded header substrings, scanned left to right
	Fallback int      // fixed column index when no header matches; -1 disables
	Required bool
}

// accountSheetSpecs describes chart-of-accounts sheets.
// Layout versioned 2024-06: A=group, B=subgroup, C=account, D=use flag.
var accountSheetSpecs = []fieldSpec{
	{Field: FieldGroup, Headers: []string{"grupo"}, Fallback: 0, Required: true},
	{Field: FieldSubgroup, Headers: []string{"subgrupo", "sub-grupo", "sub grupo"}, Fallback: 1, Required: true},
	{Field: FieldAccount, Headers: []string{"conta", "descricao"}, Fallback: 2, Required: true},
	{Field: FieldUseAccount, Headers: []string{"usar", "utilizar", "ativa"}, Fallback: -1},
}

// entrySheetSpecs describes transaction and forecast sheets.
// Layout versioned 2024-06: A=date, B=account, C=amount, D=notes.
var entrySheetSpecs = []fieldSpec{
	{Field: FieldDate, Headers: []string{"data", "dia"}, Fallback: 0, Required: true},
	{Field: FieldAccount, Headers: []string{"conta", "descricao", "historico"}, Fallback: 1, Required: true},
	{Field: FieldAmount, Headers: []string{"valor", "montante", "total"}, Fallback: 2, Required: true},
	{Field: FieldSubgroup, Headers: []string{"subgrupo", "sub-grupo", "categoria"}, Fallback: -1},
	{Field: FieldNotes, Headers: []string{"observa", "nota", "obs"}, Fallback: -1},
}

// specsFor returns the mapping table for an imported sheet kind.
func specsFor(kind SheetKind) []fieldSpec {
	switch kind {
	case SheetAccounts:
		return accountSheetSpecs
	case SheetTransactions, SheetForecast:
		return entrySheetSpecs
	}
	return nil
}

// StructuralError marks a sheet that cannot be imported at all, as
// opposed to individual bad rows. The sheet is skipped and the run
// continues.
type StructuralError struct {
	Sheet string
	Field Field
	Msg   string
}

func (e *StructuralError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("sheet %q: %s (field %q)", e.Sheet, e.Msg, e.Field)
	}
	return fmt.Sprintf("sheet %q: %s", e.Sheet, e.Msg)
}

// ColumnMap resolves semantic fields to column positions for one sheet.
type ColumnMap map[Field]int

// Has reports whether the field was mapped.
func (m ColumnMap) Has(f Field) bool {
	_, ok := m[f]
	return ok
}

// Cell returns the cleaned cell for a mapped field, or "" when the field
// is unmapped or the row is too short.
func (m ColumnMap) Cell(row []string, f Field) string {
	i, ok := m[f]
	if !ok {
		return ""
	}
	return cellAt(row, i)
}

// MapColumns builds the ColumnMap for a sheet of the given kind.
//
// For each field the header row is scanned left to right and the first
// header containing any accepted substring wins. Fields without a header
// match fall back to their fixed position, provided the sheet is wide
// enough. A required field with neither yields a StructuralError.
func MapColumns(sheetName string, kind SheetKind, header []string, width int) (ColumnMap, error) {
	specs := specsFor(kind)
	if specs == nil {
		return nil, &StructuralError{Sheet: sheetName, Msg: fmt.Sprintf("sheet kind %q has no column mapping", kind)}
	}

	m := make(ColumnMap, len(specs))
	for _, spec := range specs {
		if pos, ok := matchHeader(header, spec.Headers); ok {
			m[spec.Field] = pos
			continue
		}
		if spec.Fallback >= 0 && spec.Fallback < width {
			m[spec.Field] = spec.Fallback
			continue
		}
		if spec.Required {
			return nil, &StructuralError{Sheet: sheetName, Field: spec.Field, Msg: "required column not found"}
		}
	}
	return m, nil
}

// matchHeader returns the position of the first header cell containing
// any accepted substring.
func matchHeader(header []string, accepted []string) (int, bool) {
	for i, h := range header {
		if h == "" {
			continue
		}
		if containsAny(h, accepted...) {
			return i, true
		}
	}
	return 0, false
}
