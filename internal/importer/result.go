package importer

// result.go defines the outcome contract exposed to the API layer.
// Partial success is a first-class outcome: a run that lost one sheet to
// a structural error still reports everything the other sheets imported.

// SheetCounts holds the per-sheet created counts.
type SheetCounts struct {
	Groups    int `json:"groups"`
	Subgroups int `json:"subgroups"`
	Accounts  int `json:"accounts"`
	Entries   int `json:"entries"`
}

// SheetResult summarizes one processed worksheet.
type SheetResult struct {
	SheetName string      `json:"sheet_name"`
	SheetKind SheetKind   `json:"sheet_kind"`
	Success   bool        `json:"success"`
	Counts    SheetCounts `json:"counts"`
	Error     string      `json:"error,omitempty"`
}

// Totals aggregates created counts across the whole run.
type Totals struct {
	Groups       int `json:"groups"`
	Subgroups    int `json:"subgroups"`
	Accounts     int `json:"accounts"`
	Transactions int `json:"transactions"`
	Forecasts    int `json:"forecasts"`
}

// Result is the terminal outcome of one import run.
//
// Success is false only when a sheet failed structurally (or the whole
// run was fatal); row-level errors are accumulated in Errors without
// flipping Success.
type Result struct {
	Success         bool          `json:"success"`
	WorkbookTitle   string        `json:"workbook_title"`
	SheetsProcessed []SheetResult `json:"sheets_processed"`
	DataImported    Totals        `json:"data_imported"`
	Errors          []string      `json:"errors"`
}

// addSheet folds a sheet outcome into the run totals.
func (r *Result) addSheet(sr SheetResult, kind SheetKind, rowErrs []string) {
	r.SheetsProcessed = append(r.SheetsProcessed, sr)
	r.Errors = append(r.Errors, rowErrs...)

	if !sr.Success {
		r.Success = false
		if sr.Error != "" {
			r.Errors = append(r.Errors, sr.Error)
		}
		return
	}

	r.DataImported.Groups += sr.Counts.Groups
	r.DataImported.Subgroups += sr.Counts.Subgroups
	r.DataImported.Accounts += sr.Counts.Accounts
	switch kind {
	case SheetTransactions:
		r.DataImported.Transactions += sr.Counts.Entries
	case SheetForecast:
		r.DataImported.Forecasts += sr.Counts.Entries
	}
}
