package importer

// ledger.go turns transaction and forecast rows into ledger entries.
//
// Each row passes through: scalar parsing -> account resolution ->
// nature classification -> dedupe check -> create. The transaction is
// committed every batchSize rows so partial progress survives a crash
// mid-sheet; a re-run then picks up exactly where the dedupe check says
// work is missing.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/contaflow/contaflow/internal/domain"
	"github.com/contaflow/contaflow/internal/store"
	"github.com/google/uuid"
)

// entrySink abstracts the difference between realized and forecast
// entries: same row pipeline, different destination tables.
type entrySink struct {
	exists func(ctx context.Context, tx store.Querier, key domain.EntryKey) (bool, error)
	create func(ctx context.Context, tx store.Querier, e domain.LedgerEntry) error
}

var ledgerSink = entrySink{
	exists: func(ctx context.Context, tx store.Querier, key domain.EntryKey) (bool, error) {
		return tx.LedgerEntryExists(ctx, key)
	},
	create: func(ctx context.Context, tx store.Querier, e domain.LedgerEntry) error {
		return tx.CreateLedgerEntry(ctx, e)
	},
}

var forecastSink = entrySink{
	exists: func(ctx context.Context, tx store.Querier, key domain.EntryKey) (bool, error) {
		return tx.ForecastEntryExists(ctx, key)
	},
	create: func(ctx context.Context, tx store.Querier, e domain.LedgerEntry) error {
		return tx.CreateForecastEntry(ctx, domain.ForecastEntry(e))
	},
}

// ledgerImporter imports entry rows for one (tenant, business unit)
// within a single run. hierarchy lookups are cached per run.
type ledgerImporter struct {
	store          store.Store
	log            *slog.Logger
	tenantID       uuid.UUID
	businessUnitID uuid.UUID
	batchSize      int

	accounts  map[string]domain.Account // folded account cell -> resolved account
	subgroups map[uuid.UUID]domain.AccountSubgroup
	groups    map[uuid.UUID]domain.AccountGroup
}

func newLedgerImporter(st store.Store, log *slog.Logger, tenantID, businessUnitID uuid.UUID, batchSize int) *ledgerImporter {
	return &ledgerImporter{
		store:          st,
		log:            log,
		tenantID:       tenantID,
		businessUnitID: businessUnitID,
		batchSize:      batchSize,
		accounts:       make(map[string]domain.Account),
		subgroups:      make(map[uuid.UUID]domain.AccountSubgroup),
		groups:         make(map[uuid.UUID]domain.AccountGroup),
	}
}

// ImportSheet processes all data rows of one transactions or forecast
// sheet. Row failures are accumulated, never returned; the returned
// error is reserved for storage failures that abort the sheet.
func (li *ledgerImporter) ImportSheet(ctx context.Context, sheetName string, kind SheetKind, cols ColumnMap, rows [][]string, headerOffset int) (int, []string, error) {
	sink := ledgerSink
	if kind == SheetForecast {
		sink = forecastSink
	}

	tx, err := li.store.Begin(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("sheet %q: %w", sheetName, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var created int
	var rowErrs []string
	inBatch := 0

	for i, row := range rows {
		lineNum := headerOffset + i + 1 // 1-indexed spreadsheet line

		if isEmptyRow(row) {
			continue
		}

		entry, skip, rowErr := li.buildEntry(ctx, tx, cols, row)
		if rowErr != "" {
			rowErrs = append(rowErrs, fmt.Sprintf("sheet %q row %d: %s", sheetName, lineNum, rowErr))
			continue
		}
		if skip {
			continue
		}

		exists, err := sink.exists(ctx, tx, domain.EntryKey{
			TenantID:       entry.TenantID,
			BusinessUnitID: entry.BusinessUnitID,
			AccountID:      entry.AccountID,
			Date:           entry.Date,
			Amount:         entry.Amount,
		})
		if err != nil {
			return created, rowErrs, fmt.Errorf("sheet %q row %d: %w", sheetName, lineNum, err)
		}
		if exists {
			continue // idempotent no-op
		}

		if err := sink.create(ctx, tx, entry); err != nil {
			return created, rowErrs, fmt.Errorf("sheet %q row %d: %w", sheetName, lineNum, err)
		}
		created++
		inBatch++

		if inBatch >= li.batchSize {
			if err := tx.Commit(ctx); err != nil {
				return created, rowErrs, fmt.Errorf("sheet %q: commit batch: %w", sheetName, err)
			}
			inBatch = 0
			if tx, err = li.store.Begin(ctx); err != nil {
				return created, rowErrs, fmt.Errorf("sheet %q: %w", sheetName, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return created, rowErrs, fmt.Errorf("sheet %q: commit: %w", sheetName, err)
	}
	return created, rowErrs, nil
}

// buildEntry parses and resolves one row. The skip flag marks expected
// non-rows (empty date, zero amount, blank account cell); rowErr carries
// the reportable failures.
func (li *ledgerImporter) buildEntry(ctx context.Context, tx store.Querier, cols ColumnMap, row []string) (entry domain.LedgerEntry, skip bool, rowErr string) {
	dateCell := cols.Cell(row, FieldDate)
	date, err := ParseDate(dateCell)
	if err != nil {
		return entry, false, fmt.Sprintf("unparseable date %q", dateCell)
	}
	if date.IsZero() {
		return entry, true, ""
	}

	amount := ParseAmount(cols.Cell(row, FieldAmount))
	if amount.IsZero() {
		return entry, true, ""
	}

	accountCell := cols.Cell(row, FieldAccount)
	if accountCell == "" {
		return entry, true, ""
	}

	account, ok := li.resolveAccount(ctx, tx, cols, row, accountCell)
	if !ok {
		return entry, false, fmt.Sprintf("account %q not resolved", accountCell)
	}

	group, subgroup, err := li.hierarchyOf(ctx, tx, account)
	if err != nil {
		return entry, false, fmt.Sprintf("hierarchy of account %q: %v", account.Name, err)
	}

	return domain.LedgerEntry{
		TenantID:       li.tenantID,
		BusinessUnitID: li.businessUnitID,
		AccountID:      account.ID,
		Date:           date,
		Amount:         amount.Abs(), // entries carry a non-negative magnitude
		Nature:         ClassifyNature(group.Name, subgroup.Name),
		Notes:          cols.Cell(row, FieldNotes),
	}, false, ""
}

// resolveAccount runs the degradation chain: exact name, contains,
// subgroup column, then any account of the tenant. The last resort is
// logged as a warning so operators notice the workbook drifting from the
// chart of accounts.
func (li *ledgerImporter) resolveAccount(ctx context.Context, tx store.Querier, cols ColumnMap, row []string, accountCell string) (domain.Account, bool) {
	key := foldCompact(accountCell)
	if a, ok := li.accounts[key]; ok {
		return a, true
	}

	if a, err := tx.FindAccountByName(ctx, li.tenantID, accountCell); err == nil {
		li.accounts[key] = a
		return a, true
	} else if !errors.Is(err, store.ErrNotFound) {
		li.log.Error("account lookup failed", "account", accountCell, "error", err)
		return domain.Account{}, false
	}

	if a, err := tx.FindAccountContaining(ctx, li.tenantID, accountCell); err == nil {
		li.accounts[key] = a
		return a, true
	}

	if subgroupCell := cols.Cell(row, FieldSubgroup); subgroupCell != "" {
		if sg, err := tx.FindSubgroupByName(ctx, li.tenantID, subgroupCell); err == nil {
			if a, err := tx.FindAccountBySubgroup(ctx, li.tenantID, sg.ID); err == nil {
				li.accounts[key] = a
				return a, true
			}
		}
	}

	if a, err := tx.FindAnyAccount(ctx, li.tenantID); err == nil {
		li.log.Warn("account resolved by tenant fallback",
			"cell", accountCell, "account", a.Name)
		li.accounts[key] = a
		return a, true
	}

	return domain.Account{}, false
}

// hierarchyOf fetches (and caches) the subgroup and group of an account.
func (li *ledgerImporter) hierarchyOf(ctx context.Context, tx store.Querier, account domain.Account) (domain.AccountGroup, domain.AccountSubgroup, error) {
	subgroup, ok := li.subgroups[account.SubgroupID]
	if !ok {
		var err error
		subgroup, err = tx.GetSubgroup(ctx, account.SubgroupID)
		if err != nil {
			return domain.AccountGroup{}, domain.AccountSubgroup{}, err
		}
		li.subgroups[account.SubgroupID] = subgroup
	}

	group, ok := li.groups[subgroup.GroupID]
	if !ok {
		var err error
		group, err = tx.GetGroup(ctx, subgroup.GroupID)
		if err != nil {
			return domain.AccountGroup{}, domain.AccountSubgroup{}, err
		}
		li.groups[subgroup.GroupID] = group
	}
	return group, subgroup, nil
}
