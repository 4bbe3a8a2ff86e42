package importer

// classify_sheet.go decides the semantic kind of a worksheet from its
// human-authored name, falling back to header inspection for renamed
// sheets. Name heuristics are checked first because they catch the common
// case cheaply; the header fallback rescues sheets someone renamed to
// "Dados" or "2025".

// SheetKind is the semantic kind of a worksheet.
type SheetKind string

const (
	SheetAccounts     SheetKind = "accounts"     // chart-of-accounts structure
	SheetTransactions SheetKind = "transactions" // realized daily entries
	SheetForecast     SheetKind = "forecast"     // planned entries
	SheetCashFlow     SheetKind = "cashflow"     // skipped: derived report
	SheetReports      SheetKind = "reports"      // skipped: DRE and the like
	SheetUnknown      SheetKind = "unknown"      // skipped, not an error
)

// Imported reports whether sheets of this kind feed the ledger.
func (k SheetKind) Imported() bool {
	switch k {
	case SheetAccounts, SheetTransactions, SheetForecast:
		return true
	}
	return false
}

// ClassifySheet determines the kind of a sheet from its display name and
// header row (which may be empty). First match wins, in this order:
//
//  1. name mentions the chart of accounts -> SheetAccounts
//  2. name mentions forecasts/budget -> SheetForecast
//  3. name mentions postings/movements -> SheetTransactions
//  4. name mentions cash flow -> SheetCashFlow
//  5. name mentions results/DRE -> SheetReports
//  6. header has both an account-like and a group-like column -> SheetAccounts
//  7. header has both a date-like and an amount-like column -> SheetTransactions
//  8. otherwise -> SheetUnknown
func ClassifySheet(name string, header []string) SheetKind {
	switch {
	case containsAny(name, "plano de contas", "plano contas", "conta"):
		return SheetAccounts
	case containsAny(name, "previs", "forecast", "orcament"):
		return SheetForecast
	case containsAny(name, "lancamento", "movimento"):
		return SheetTransactions
	case containsAny(name, "fluxo", "caixa"):
		return SheetCashFlow
	case containsAny(name, "resultado", "dre"):
		return SheetReports
	}

	var hasAccount, hasGroup, hasDate, hasAmount bool
	for _, h := range header {
		switch {
		case containsAny(h, "conta"):
			hasAccount = true
		case containsAny(h, "grupo"):
			hasGroup = true
		case containsAny(h, "data", "dia"):
			hasDate = true
		case containsAny(h, "valor", "montante"):
			hasAmount = true
		}
	}

	switch {
	case hasAccount && hasGroup:
		return SheetAccounts
	case hasDate && hasAmount:
		return SheetTransactions
	}
	return SheetUnknown
}
