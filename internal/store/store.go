// Package store provides persistence for the ledger domain.
//
// Two implementations exist: Postgres (production, jackc/pgx) and an
// in-memory store used by tests. Both expose the same transactional
// surface so the importer's batching and idempotence semantics can be
// exercised without a database.
//
// The find-or-create operations are atomic: under Postgres they ride on
// unique constraints with ON CONFLICT, so two concurrent import runs
// racing to create the same group resolve to a single row instead of a
// duplicate.
package store

import (
	"context"
	"errors"

	"github.com/contaflow/contaflow/internal/domain"
	"github.com/google/uuid"
)

// ErrNotFound is returned by point lookups when no row matches.
var ErrNotFound = errors.New("store: not found")

// Store opens transactions against the underlying storage.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one storage transaction. The importer commits every batch of
// rows so partial progress survives a mid-sheet crash; Rollback after a
// failed Commit is a no-op.
type Tx interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Querier is the operation set the importer consumes. All lookups that
// take a tenant ID match rows owned by that tenant or shared rows
// (NULL tenant), never rows of another tenant.
type Querier interface {
	// FindOrCreateGroup resolves a group by (tenant, name), creating it
	// with the given code and description when absent. The bool reports
	// whether a row was created.
	FindOrCreateGroup(ctx context.Context, g domain.AccountGroup) (domain.AccountGroup, bool, error)

	// FindOrCreateSubgroup resolves a subgroup by (tenant, group, name).
	FindOrCreateSubgroup(ctx context.Context, sg domain.AccountSubgroup) (domain.AccountSubgroup, bool, error)

	// FindOrCreateAccount resolves an account by (tenant, subgroup, name).
	FindOrCreateAccount(ctx context.Context, a domain.Account) (domain.Account, bool, error)

	// CodeExists reports whether any group or subgroup of the tenant
	// already uses the given short code.
	CodeExists(ctx context.Context, tenantID *uuid.UUID, code string) (bool, error)

	// GetGroup and GetSubgroup fetch hierarchy nodes by ID.
	GetGroup(ctx context.Context, id uuid.UUID) (domain.AccountGroup, error)
	GetSubgroup(ctx context.Context, id uuid.UUID) (domain.AccountSubgroup, error)

	// Account resolution chain, in degradation order.
	FindAccountByName(ctx context.Context, tenantID uuid.UUID, name string) (domain.Account, error)
	FindAccountContaining(ctx context.Context, tenantID uuid.UUID, fragment string) (domain.Account, error)
	FindSubgroupByName(ctx context.Context, tenantID uuid.UUID, name string) (domain.AccountSubgroup, error)
	FindAccountBySubgroup(ctx context.Context, tenantID, subgroupID uuid.UUID) (domain.Account, error)
	FindAnyAccount(ctx context.Context, tenantID uuid.UUID) (domain.Account, error)

	// Entry idempotence: existence check on the dedupe key, then create.
	LedgerEntryExists(ctx context.Context, key domain.EntryKey) (bool, error)
	CreateLedgerEntry(ctx context.Context, e domain.LedgerEntry) error
	ForecastEntryExists(ctx context.Context, key domain.EntryKey) (bool, error)
	CreateForecastEntry(ctx context.Context, e domain.ForecastEntry) error

	// RecordImportRun persists the audit record of one importer execution.
	RecordImportRun(ctx context.Context, run domain.ImportRun) error

	// ListImportRuns returns the tenant's most recent runs, newest first.
	ListImportRuns(ctx context.Context, tenantID uuid.UUID, limit int) ([]domain.ImportRun, error)
}
