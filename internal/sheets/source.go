// Package sheets abstracts the spreadsheet provider the importer reads
// from. The production implementation talks to the Google Sheets API;
// tests use an in-memory fake.
package sheets

import (
	"context"
	"errors"
	"fmt"
)

// ErrSourceUnavailable wraps connectivity and credential failures from
// the provider. It is fatal for an import run: no partial result is
// produced when the workbook itself cannot be reached.
var ErrSourceUnavailable = errors.New("spreadsheet source unavailable")

// SheetInfo describes one worksheet inside a workbook.
type SheetInfo struct {
	Name        string
	RowCount    int
	ColumnCount int
}

// Workbook is the listing result for one spreadsheet document.
type Workbook struct {
	ID     string
	Title  string
	Sheets []SheetInfo
}

// Source is the read-only spreadsheet interface the importer consumes.
type Source interface {
	// ListSheets returns the workbook title and its worksheet metadata.
	ListSheets(ctx context.Context, workbookID string) (Workbook, error)

	// Values returns the cell matrix of one worksheet. Rows may be
	// shorter than the header row; trailing empty cells are omitted.
	Values(ctx context.Context, workbookID, sheetName string) ([][]string, error)
}

// unavailable tags err as a fatal source failure.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrSourceUnavailable, err)
}
