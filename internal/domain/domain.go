// Package domain defines the ledger entities shared by the importer,
// store, and web layers.
//
// Every entity below either belongs to exactly one tenant or, when
// TenantID is nil, is shared and visible to all tenants. Tenants and
// business units are created elsewhere; this package only references them.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountClass is the classification assigned to an Account at creation
// time. It is derived once from the surrounding group/subgroup names and
// never recomputed afterwards.
type AccountClass string

const (
	ClassRevenue   AccountClass = "revenue"
	ClassCost      AccountClass = "cost"
	ClassExpense   AccountClass = "expense"
	ClassAsset     AccountClass = "asset"
	ClassLiability AccountClass = "liability"
	ClassEquity    AccountClass = "equity"
)

// EntryNature is the nature tag carried by ledger and forecast entries.
// Unlike AccountClass it is restricted to the three natures that flow
// through the profit-and-loss statement.
type EntryNature string

const (
	NatureRevenue EntryNature = "revenue"
	NatureCost    EntryNature = "cost"
	NatureExpense EntryNature = "expense"
)

// AccountGroup is the top-level bucket of the chart of accounts
// (e.g. "Receitas", "Despesas Operacionais").
//
// Name is unique within (tenant, group level); Code is unique within the
// tenant.
type AccountGroup struct {
	ID          uuid.UUID
	TenantID    *uuid.UUID // nil means shared across tenants
	Code        string
	Name        string
	Description string
	CreatedAt   time.Time
}

// AccountSubgroup belongs to exactly one AccountGroup. Name is unique
// within (tenant, parent group).
type AccountSubgroup struct {
	ID        uuid.UUID
	TenantID  *uuid.UUID
	GroupID   uuid.UUID
	Code      string
	Name      string
	CreatedAt time.Time
}

// Account is a leaf of the chart of accounts. Name is unique within
// (tenant, parent subgroup).
type Account struct {
	ID         uuid.UUID
	TenantID   *uuid.UUID
	SubgroupID uuid.UUID
	Name       string
	Class      AccountClass
	CreatedAt  time.Time
}

// LedgerEntry is a realized, dated monetary transaction. Entries are
// created once per reconciled spreadsheet row and never mutated by the
// importer afterwards.
type LedgerEntry struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	BusinessUnitID uuid.UUID
	AccountID      uuid.UUID
	Date           time.Time
	Amount         decimal.Decimal // non-negative magnitude
	Nature         EntryNature
	Notes          string
	CreatedAt      time.Time
}

// ForecastEntry is a planned counterpart to a LedgerEntry: same shape,
// different semantic status.
type ForecastEntry struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	BusinessUnitID uuid.UUID
	AccountID      uuid.UUID
	Date           time.Time
	Amount         decimal.Decimal
	Nature         EntryNature
	Notes          string
	CreatedAt      time.Time
}

// EntryKey identifies "the same real-world entry" for idempotence.
// Two rows sharing all five fields are treated as one logical entry;
// the first imported row wins. This is ambiguous by design for two
// genuinely distinct transactions that coincide on every field.
type EntryKey struct {
	TenantID       uuid.UUID
	BusinessUnitID uuid.UUID
	AccountID      uuid.UUID
	Date           time.Time
	Amount         decimal.Decimal
}

// ImportRun is the persisted audit record of one importer execution.
type ImportRun struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	BusinessUnitID uuid.UUID
	WorkbookID     string
	WorkbookTitle  string
	Success        bool
	Groups         int
	Subgroups      int
	Accounts       int
	Transactions   int
	Forecasts      int
	ErrorCount     int
	Duration       time.Duration
	CreatedAt      time.Time
}
