// Package importer reconciles human-maintained financial workbooks into
// the normalized multi-tenant ledger.
//
// One run is a single sequential pipeline: hierarchy reconciliation and
// dedupe checks depend on read-after-write visibility of earlier rows,
// so rows are never processed in parallel. Independent runs (other
// tenants, or a later re-run) may execute concurrently; correctness then
// rests on the store's atomic find-or-create.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/contaflow/contaflow/internal/domain"
	"github.com/contaflow/contaflow/internal/sheets"
	"github.com/contaflow/contaflow/internal/store"
	"github.com/google/uuid"
)

// DefaultBatchSize is the number of entry rows committed per transaction.
const DefaultBatchSize = 100

// runState names the orchestrator phases, for logs. Failed is reachable
// only from authenticating and listing; once sheet processing starts,
// individual sheets fail without aborting the run.
type runState string

const (
	stateAuthenticating   runState = "authenticating"
	stateListingSheets    runState = "listing-sheets"
	stateProcessingSheets runState = "processing-sheets"
	stateAggregating      runState = "aggregating"
	stateDone             runState = "done"
)

// Request identifies what to import and for whom.
type Request struct {
	WorkbookID     string
	TenantID       uuid.UUID
	BusinessUnitID uuid.UUID
}

// Importer orchestrates import runs.
type Importer struct {
	source    sheets.Source
	store     store.Store
	log       *slog.Logger
	batchSize int
}

// New creates an Importer. batchSize <= 0 selects DefaultBatchSize.
func New(source sheets.Source, st store.Store, log *slog.Logger, batchSize int) *Importer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Importer{source: source, store: st, log: log, batchSize: batchSize}
}

// Run imports one workbook.
//
// A non-nil error is returned only for fatal failures (source
// unreachable, cancelled before processing); everything after sheet
// listing is reported through the Result, including structural sheet
// failures and row-level errors.
func (imp *Importer) Run(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()
	log := imp.log.With("workbook", req.WorkbookID, "tenant", req.TenantID)

	log.Info("import run starting", "state", stateAuthenticating)

	log.Debug("state change", "state", stateListingSheets)
	wb, err := imp.source.ListSheets(ctx, req.WorkbookID)
	if err != nil {
		return nil, fmt.Errorf("list sheets of workbook %q: %w", req.WorkbookID, err)
	}

	result := &Result{Success: true, WorkbookTitle: wb.Title, Errors: []string{}}

	tenantID := req.TenantID
	rec := newReconciler(&tenantID)
	ledger := newLedgerImporter(imp.store, log, req.TenantID, req.BusinessUnitID, imp.batchSize)

	log.Debug("state change", "state", stateProcessingSheets, "sheets", len(wb.Sheets))
	for _, info := range wb.Sheets {
		// Coarse-grained cancellation: between sheets only. Batches
		// already committed stay valid; a re-run resumes idempotently.
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("import cancelled: %w", err)
		}
		imp.processSheet(ctx, log, req.WorkbookID, info, rec, ledger, result)
	}

	log.Debug("state change", "state", stateAggregating)
	imp.recordRun(ctx, log, req, wb.Title, result, time.Since(started))

	log.Info("import run finished",
		"state", stateDone,
		"success", result.Success,
		"groups", result.DataImported.Groups,
		"subgroups", result.DataImported.Subgroups,
		"accounts", result.DataImported.Accounts,
		"transactions", result.DataImported.Transactions,
		"forecasts", result.DataImported.Forecasts,
		"errors", len(result.Errors),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return result, nil
}

// processSheet classifies and imports a single worksheet. Structural
// failures mark the sheet failed and the run moves on.
func (imp *Importer) processSheet(ctx context.Context, log *slog.Logger, workbookID string, info sheets.SheetInfo, rec *reconciler, ledger *ledgerImporter, result *Result) {
	rows, err := imp.source.Values(ctx, workbookID, info.Name)
	if err != nil {
		// An unreadable sheet is a structural failure, not a fatal one:
		// the workbook itself is reachable, this one tab is not.
		result.addSheet(SheetResult{
			SheetName: info.Name,
			SheetKind: SheetUnknown,
			Error:     fmt.Sprintf("sheet %q: unreadable: %v", info.Name, err),
		}, SheetUnknown, nil)
		return
	}

	var header []string
	if len(rows) > 0 {
		header = rows[0]
	}

	kind := ClassifySheet(info.Name, header)
	if !kind.Imported() {
		log.Info("sheet skipped", "sheet", info.Name, "kind", kind)
		return
	}

	width := info.ColumnCount
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	cols, err := MapColumns(info.Name, kind, header, width)
	if err != nil {
		result.addSheet(SheetResult{
			SheetName: info.Name,
			SheetKind: kind,
			Error:     err.Error(),
		}, kind, nil)
		return
	}

	dataRows, headerOffset := splitHeader(kind, header, rows)

	sr := SheetResult{SheetName: info.Name, SheetKind: kind, Success: true}
	var rowErrs []string

	switch kind {
	case SheetAccounts:
		sr.Counts, rowErrs, err = imp.importAccountsSheet(ctx, info.Name, rec, cols, dataRows, headerOffset)
	default:
		sr.Counts.Entries, rowErrs, err = ledger.ImportSheet(ctx, info.Name, kind, cols, dataRows, headerOffset)
	}
	if err != nil {
		sr.Success = false
		sr.Error = err.Error()
	}

	result.addSheet(sr, kind, rowErrs)
	log.Info("sheet processed",
		"sheet", info.Name, "kind", kind, "success", sr.Success,
		"entries", sr.Counts.Entries, "row_errors", len(rowErrs))
}

// splitHeader drops the header row from the data when the first row
// actually is a header for this sheet kind; headerless sheets (mapped
// purely by fallback positions) keep every row.
func splitHeader(kind SheetKind, header []string, rows [][]string) ([][]string, int) {
	if len(rows) == 0 {
		return nil, 1
	}
	specs := specsFor(kind)
	for _, spec := range specs {
		if _, ok := matchHeader(header, spec.Headers); ok {
			return rows[1:], 1
		}
	}
	return rows, 0
}

// importAccountsSheet reconciles chart-of-accounts rows.
func (imp *Importer) importAccountsSheet(ctx context.Context, sheetName string, rec *reconciler, cols ColumnMap, rows [][]string, headerOffset int) (SheetCounts, []string, error) {
	tx, err := imp.store.Begin(ctx)
	if err != nil {
		return SheetCounts{}, nil, fmt.Errorf("sheet %q: %w", sheetName, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	groupsBefore, subgroupsBefore, accountsBefore := rec.GroupsCreated, rec.SubgroupsCreated, rec.AccountsCreated
	var rowErrs []string

	for i, row := range rows {
		lineNum := headerOffset + i + 1

		if isEmptyRow(row) {
			continue
		}

		groupName := cols.Cell(row, FieldGroup)
		subgroupName := cols.Cell(row, FieldSubgroup)
		accountName := cols.Cell(row, FieldAccount)
		if groupName == "" || subgroupName == "" || accountName == "" {
			rowErrs = append(rowErrs, fmt.Sprintf("sheet %q row %d: incomplete hierarchy row", sheetName, lineNum))
			continue
		}

		useAccount := true
		if cols.Has(FieldUseAccount) {
			useAccount = parseFlag(cols.Cell(row, FieldUseAccount))
		}

		if err := rec.ReconcileRow(ctx, tx, groupName, subgroupName, accountName, useAccount); err != nil {
			return SheetCounts{}, rowErrs, fmt.Errorf("sheet %q row %d: %w", sheetName, lineNum, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return SheetCounts{}, rowErrs, fmt.Errorf("sheet %q: commit: %w", sheetName, err)
	}

	return SheetCounts{
		Groups:    rec.GroupsCreated - groupsBefore,
		Subgroups: rec.SubgroupsCreated - subgroupsBefore,
		Accounts:  rec.AccountsCreated - accountsBefore,
	}, rowErrs, nil
}

// parseFlag interprets the "use this account" column. Anything but an
// explicit negative counts as set.
func parseFlag(s string) bool {
	switch foldCompact(s) {
	case "", "nao", "n", "false", "0", "no":
		return false
	}
	return true
}

// recordRun persists the audit record; failures are logged, never fatal.
func (imp *Importer) recordRun(ctx context.Context, log *slog.Logger, req Request, title string, result *Result, elapsed time.Duration) {
	tx, err := imp.store.Begin(ctx)
	if err != nil {
		log.Error("record import run", "error", err)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	run := domain.ImportRun{
		TenantID:       req.TenantID,
		BusinessUnitID: req.BusinessUnitID,
		WorkbookID:     req.WorkbookID,
		WorkbookTitle:  title,
		Success:        result.Success,
		Groups:         result.DataImported.Groups,
		Subgroups:      result.DataImported.Subgroups,
		Accounts:       result.DataImported.Accounts,
		Transactions:   result.DataImported.Transactions,
		Forecasts:      result.DataImported.Forecasts,
		ErrorCount:     len(result.Errors),
		Duration:       elapsed,
	}
	if err := tx.RecordImportRun(ctx, run); err != nil {
		log.Error("record import run", "error", err)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		log.Error("record import run", "error", err)
	}
}
