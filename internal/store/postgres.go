package store

// postgres.go implements Store on PostgreSQL via jackc/pgx.
//
// Uniqueness invariants live in the schema (see schema.sql): the
// (tenant_id, name) indexes are declared NULLS NOT DISTINCT so shared
// rows (NULL tenant) dedupe like tenant-owned ones. find-or-create is an
// INSERT ... ON CONFLICT DO NOTHING followed by a SELECT of the winner,
// which makes concurrent runs converge on one row instead of racing.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/contaflow/contaflow/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the subset of pgx operations used by the queries below.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres is the production Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps a connection pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Begin opens a transaction.
func (p *Postgres) Begin(ctx context.Context) (Tx, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &pgTx{queries{db: tx}, tx}, nil
}

type pgTx struct {
	queries
	tx pgx.Tx
}

func (t *pgTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *pgTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

// queries implements Querier over any DBTX.
type queries struct {
	db DBTX
}

func (q queries) FindOrCreateGroup(ctx context.Context, g domain.AccountGroup) (domain.AccountGroup, bool, error) {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	tag, err := q.db.Exec(ctx, `
		INSERT INTO account_groups (id, tenant_id, code, name, description, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (tenant_id, name) DO NOTHING`,
		g.ID, g.TenantID, g.Code, g.Name, g.Description)
	if err != nil {
		return domain.AccountGroup{}, false, fmt.Errorf("insert group %q: %w", g.Name, err)
	}

	row := q.db.QueryRow(ctx, `
		SELECT id, tenant_id, code, name, description, created_at
		FROM account_groups
		WHERE name = $1 AND tenant_id IS NOT DISTINCT FROM $2`,
		g.Name, g.TenantID)
	out, err := scanGroup(row)
	if err != nil {
		return domain.AccountGroup{}, false, fmt.Errorf("select group %q: %w", g.Name, err)
	}
	return out, tag.RowsAffected() == 1, nil
}

func (q queries) FindOrCreateSubgroup(ctx context.Context, sg domain.AccountSubgroup) (domain.AccountSubgroup, bool, error) {
	if sg.ID == uuid.Nil {
		sg.ID = uuid.New()
	}
	tag, err := q.db.Exec(ctx, `
		INSERT INTO account_subgroups (id, tenant_id, group_id, code, name, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (tenant_id, group_id, name) DO NOTHING`,
		sg.ID, sg.TenantID, sg.GroupID, sg.Code, sg.Name)
	if err != nil {
		return domain.AccountSubgroup{}, false, fmt.Errorf("insert subgroup %q: %w", sg.Name, err)
	}

	row := q.db.QueryRow(ctx, `
		SELECT id, tenant_id, group_id, code, name, created_at
		FROM account_subgroups
		WHERE name = $1 AND group_id = $2 AND tenant_id IS NOT DISTINCT FROM $3`,
		sg.Name, sg.GroupID, sg.TenantID)
	out, err := scanSubgroup(row)
	if err != nil {
		return domain.AccountSubgroup{}, false, fmt.Errorf("select subgroup %q: %w", sg.Name, err)
	}
	return out, tag.RowsAffected() == 1, nil
}

func (q queries) FindOrCreateAccount(ctx context.Context, a domain.Account) (domain.Account, bool, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	tag, err := q.db.Exec(ctx, `
		INSERT INTO accounts (id, tenant_id, subgroup_id, name, class, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (tenant_id, subgroup_id, name) DO NOTHING`,
		a.ID, a.TenantID, a.SubgroupID, a.Name, string(a.Class))
	if err != nil {
		return domain.Account{}, false, fmt.Errorf("insert account %q: %w", a.Name, err)
	}

	row := q.db.QueryRow(ctx, `
		SELECT id, tenant_id, subgroup_id, name, class, created_at
		FROM accounts
		WHERE name = $1 AND subgroup_id = $2 AND tenant_id IS NOT DISTINCT FROM $3`,
		a.Name, a.SubgroupID, a.TenantID)
	out, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, false, fmt.Errorf("select account %q: %w", a.Name, err)
	}
	return out, tag.RowsAffected() == 1, nil
}

func (q queries) CodeExists(ctx context.Context, tenantID *uuid.UUID, code string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM account_groups WHERE code = $1 AND tenant_id IS NOT DISTINCT FROM $2
			UNION ALL
			SELECT 1 FROM account_subgroups WHERE code = $1 AND tenant_id IS NOT DISTINCT FROM $2
		)`, code, tenantID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check code %q: %w", code, err)
	}
	return exists, nil
}

func (q queries) GetGroup(ctx context.Context, id uuid.UUID) (domain.AccountGroup, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, tenant_id, code, name, description, created_at
		FROM account_groups WHERE id = $1`, id)
	return scanGroup(row)
}

func (q queries) GetSubgroup(ctx context.Context, id uuid.UUID) (domain.AccountSubgroup, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, tenant_id, group_id, code, name, created_at
		FROM account_subgroups WHERE id = $1`, id)
	return scanSubgroup(row)
}

func (q queries) FindAccountByName(ctx context.Context, tenantID uuid.UUID, name string) (domain.Account, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, tenant_id, subgroup_id, name, class, created_at
		FROM accounts
		WHERE name = $1 AND (tenant_id = $2 OR tenant_id IS NULL)
		ORDER BY tenant_id NULLS LAST
		LIMIT 1`, name, tenantID)
	return scanAccount(row)
}

func (q queries) FindAccountContaining(ctx context.Context, tenantID uuid.UUID, fragment string) (domain.Account, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, tenant_id, subgroup_id, name, class, created_at
		FROM accounts
		WHERE name ILIKE '%' || $1 || '%' AND (tenant_id = $2 OR tenant_id IS NULL)
		ORDER BY tenant_id NULLS LAST, length(name)
		LIMIT 1`, fragment, tenantID)
	return scanAccount(row)
}

func (q queries) FindSubgroupByName(ctx context.Context, tenantID uuid.UUID, name string) (domain.AccountSubgroup, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, tenant_id, group_id, code, name, created_at
		FROM account_subgroups
		WHERE name = $1 AND (tenant_id = $2 OR tenant_id IS NULL)
		ORDER BY tenant_id NULLS LAST
		LIMIT 1`, name, tenantID)
	return scanSubgroup(row)
}

func (q queries) FindAccountBySubgroup(ctx context.Context, tenantID, subgroupID uuid.UUID) (domain.Account, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, tenant_id, subgroup_id, name, class, created_at
		FROM accounts
		WHERE subgroup_id = $1 AND (tenant_id = $2 OR tenant_id IS NULL)
		ORDER BY name
		LIMIT 1`, subgroupID, tenantID)
	return scanAccount(row)
}

func (q queries) FindAnyAccount(ctx context.Context, tenantID uuid.UUID) (domain.Account, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, tenant_id, subgroup_id, name, class, created_at
		FROM accounts
		WHERE tenant_id = $1
		ORDER BY created_at
		LIMIT 1`, tenantID)
	return scanAccount(row)
}

func (q queries) LedgerEntryExists(ctx context.Context, key domain.EntryKey) (bool, error) {
	return q.entryExists(ctx, "ledger_entries", key)
}

func (q queries) ForecastEntryExists(ctx context.Context, key domain.EntryKey) (bool, error) {
	return q.entryExists(ctx, "forecast_entries", key)
}

func (q queries) entryExists(ctx context.Context, table string, key domain.EntryKey) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM `+table+`
			WHERE tenant_id = $1 AND business_unit_id = $2 AND account_id = $3
			  AND entry_date = $4 AND amount = $5::numeric
		)`,
		key.TenantID, key.BusinessUnitID, key.AccountID,
		key.Date, key.Amount.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", table, err)
	}
	return exists, nil
}

func (q queries) CreateLedgerEntry(ctx context.Context, e domain.LedgerEntry) error {
	return q.createEntry(ctx, "ledger_entries", e.ID, e.TenantID, e.BusinessUnitID, e.AccountID, e.Date, e.Amount.String(), string(e.Nature), e.Notes)
}

func (q queries) CreateForecastEntry(ctx context.Context, e domain.ForecastEntry) error {
	return q.createEntry(ctx, "forecast_entries", e.ID, e.TenantID, e.BusinessUnitID, e.AccountID, e.Date, e.Amount.String(), string(e.Nature), e.Notes)
}

func (q queries) createEntry(ctx context.Context, table string, id, tenantID, buID, accountID uuid.UUID, date time.Time, amount, nature, notes string) error {
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := q.db.Exec(ctx, `
		INSERT INTO `+table+` (id, tenant_id, business_unit_id, account_id, entry_date, amount, nature, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, now())`,
		id, tenantID, buID, accountID, date, amount, nature, notes)
	if err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

func (q queries) RecordImportRun(ctx context.Context, run domain.ImportRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	_, err := q.db.Exec(ctx, `
		INSERT INTO import_runs (id, tenant_id, business_unit_id, workbook_id, workbook_title,
			success, groups_created, subgroups_created, accounts_created,
			transactions_created, forecasts_created, error_count, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now())`,
		run.ID, run.TenantID, run.BusinessUnitID, run.WorkbookID, run.WorkbookTitle,
		run.Success, run.Groups, run.Subgroups, run.Accounts,
		run.Transactions, run.Forecasts, run.ErrorCount, run.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("insert import run: %w", err)
	}
	return nil
}

func (q queries) ListImportRuns(ctx context.Context, tenantID uuid.UUID, limit int) ([]domain.ImportRun, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, tenant_id, business_unit_id, workbook_id, workbook_title,
			success, groups_created, subgroups_created, accounts_created,
			transactions_created, forecasts_created, error_count, duration_ms, created_at
		FROM import_runs
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("list import runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.ImportRun
	for rows.Next() {
		var run domain.ImportRun
		var durationMS int64
		if err := rows.Scan(&run.ID, &run.TenantID, &run.BusinessUnitID, &run.WorkbookID, &run.WorkbookTitle,
			&run.Success, &run.Groups, &run.Subgroups, &run.Accounts,
			&run.Transactions, &run.Forecasts, &run.ErrorCount, &durationMS, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan import run: %w", err)
		}
		run.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// row scanners

func scanGroup(row pgx.Row) (domain.AccountGroup, error) {
	var g domain.AccountGroup
	err := row.Scan(&g.ID, &g.TenantID, &g.Code, &g.Name, &g.Description, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AccountGroup{}, ErrNotFound
	}
	return g, err
}

func scanSubgroup(row pgx.Row) (domain.AccountSubgroup, error) {
	var sg domain.AccountSubgroup
	err := row.Scan(&sg.ID, &sg.TenantID, &sg.GroupID, &sg.Code, &sg.Name, &sg.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AccountSubgroup{}, ErrNotFound
	}
	return sg, err
}

func scanAccount(row pgx.Row) (domain.Account, error) {
	var a domain.Account
	var class string
	err := row.Scan(&a.ID, &a.TenantID, &a.SubgroupID, &a.Name, &class, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, ErrNotFound
	}
	a.Class = domain.AccountClass(class)
	return a, err
}
