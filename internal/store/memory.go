package store

// memory.go is an in-memory Store used by tests. It mirrors the Postgres
// implementation's uniqueness and tenant-or-shared visibility semantics
// but not its transactional isolation: writes land immediately and
// Commit/Rollback only end the logical transaction.

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/contaflow/contaflow/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Memory is a process-local Store.
type Memory struct {
	mu        sync.Mutex
	Groups    []domain.AccountGroup
	Subgroups []domain.AccountSubgroup
	Accounts  []domain.Account
	Ledger    []domain.LedgerEntry
	Forecasts []domain.ForecastEntry
	Runs      []domain.ImportRun
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Begin returns a transaction view over the same state.
func (m *Memory) Begin(ctx context.Context) (Tx, error) {
	return &memTx{m: m}, nil
}

type memTx struct {
	m *Memory
}

func (t *memTx) Commit(ctx context.Context) error   { return nil }
func (t *memTx) Rollback(ctx context.Context) error { return nil }

func sameTenant(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// visibleTo reports whether a row owned by `owner` is visible to reads
// scoped to `tenant` (own rows plus shared rows).
func visibleTo(owner *uuid.UUID, tenant uuid.UUID) bool {
	return owner == nil || *owner == tenant
}

func (t *memTx) FindOrCreateGroup(ctx context.Context, g domain.AccountGroup) (domain.AccountGroup, bool, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	for _, existing := range t.m.Groups {
		if existing.Name == g.Name && sameTenant(existing.TenantID, g.TenantID) {
			return existing, false, nil
		}
	}
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	g.CreatedAt = time.Now()
	t.m.Groups = append(t.m.Groups, g)
	return g, true, nil
}

func (t *memTx) FindOrCreateSubgroup(ctx context.Context, sg domain.AccountSubgroup) (domain.AccountSubgroup, bool, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	for _, existing := range t.m.Subgroups {
		if existing.Name == sg.Name && existing.GroupID == sg.GroupID && sameTenant(existing.TenantID, sg.TenantID) {
			return existing, false, nil
		}
	}
	if sg.ID == uuid.Nil {
		sg.ID = uuid.New()
	}
	sg.CreatedAt = time.Now()
	t.m.Subgroups = append(t.m.Subgroups, sg)
	return sg, true, nil
}

func (t *memTx) FindOrCreateAccount(ctx context.Context, a domain.Account) (domain.Account, bool, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	for _, existing := range t.m.Accounts {
		if existing.Name == a.Name && existing.SubgroupID == a.SubgroupID && sameTenant(existing.TenantID, a.TenantID) {
			return existing, false, nil
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	t.m.Accounts = append(t.m.Accounts, a)
	return a, true, nil
}

func (t *memTx) CodeExists(ctx context.Context, tenantID *uuid.UUID, code string) (bool, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	for _, g := range t.m.Groups {
		if g.Code == code && sameTenant(g.TenantID, tenantID) {
			return true, nil
		}
	}
	for _, sg := range t.m.Subgroups {
		if sg.Code == code && sameTenant(sg.TenantID, tenantID) {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) GetGroup(ctx context.Context, id uuid.UUID) (domain.AccountGroup, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	for _, g := range t.m.Groups {
		if g.ID == id {
			return g, nil
		}
	}
	return domain.AccountGroup{}, ErrNotFound
}

func (t *memTx) GetSubgroup(ctx context.Context, id uuid.UUID) (domain.AccountSubgroup, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	for _, sg := range t.m.Subgroups {
		if sg.ID == id {
			return sg, nil
		}
	}
	return domain.AccountSubgroup{}, ErrNotFound
}

func (t *memTx) FindAccountByName(ctx context.Context, tenantID uuid.UUID, name string) (domain.Account, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	for _, a := range t.m.Accounts {
		if a.Name == name && visibleTo(a.TenantID, tenantID) {
			return a, nil
		}
	}
	return domain.Account{}, ErrNotFound
}

func (t *memTx) FindAccountContaining(ctx context.Context, tenantID uuid.UUID, fragment string) (domain.Account, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	frag := strings.ToLower(fragment)
	var matches []domain.Account
	for _, a := range t.m.Accounts {
		if visibleTo(a.TenantID, tenantID) && strings.Contains(strings.ToLower(a.Name), frag) {
			matches = append(matches, a)
		}
	}
	if len(matches) == 0 {
		return domain.Account{}, ErrNotFound
	}
	// Shortest name first, matching the Postgres ordering.
	sort.Slice(matches, func(i, j int) bool { return len(matches[i].Name) < len(matches[j].Name) })
	return matches[0], nil
}

func (t *memTx) FindSubgroupByName(ctx context.Context, tenantID uuid.UUID, name string) (domain.AccountSubgroup, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	for _, sg := range t.m.Subgroups {
		if sg.Name == name && visibleTo(sg.TenantID, tenantID) {
			return sg, nil
		}
	}
	return domain.AccountSubgroup{}, ErrNotFound
}

func (t *memTx) FindAccountBySubgroup(ctx context.Context, tenantID, subgroupID uuid.UUID) (domain.Account, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	for _, a := range t.m.Accounts {
		if a.SubgroupID == subgroupID && visibleTo(a.TenantID, tenantID) {
			return a, nil
		}
	}
	return domain.Account{}, ErrNotFound
}

func (t *memTx) FindAnyAccount(ctx context.Context, tenantID uuid.UUID) (domain.Account, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	for _, a := range t.m.Accounts {
		if a.TenantID != nil && *a.TenantID == tenantID {
			return a, nil
		}
	}
	return domain.Account{}, ErrNotFound
}

func (t *memTx) LedgerEntryExists(ctx context.Context, key domain.EntryKey) (bool, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	for _, e := range t.m.Ledger {
		if matchesKey(key, e.TenantID, e.BusinessUnitID, e.AccountID, e.Date, e.Amount) {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) ForecastEntryExists(ctx context.Context, key domain.EntryKey) (bool, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	for _, e := range t.m.Forecasts {
		if matchesKey(key, e.TenantID, e.BusinessUnitID, e.AccountID, e.Date, e.Amount) {
			return true, nil
		}
	}
	return false, nil
}

func matchesKey(key domain.EntryKey, tenantID, buID, accountID uuid.UUID, date time.Time, amount decimal.Decimal) bool {
	return key.TenantID == tenantID &&
		key.BusinessUnitID == buID &&
		key.AccountID == accountID &&
		key.Date.Equal(date) &&
		key.Amount.Equal(amount)
}

func (t *memTx) CreateLedgerEntry(ctx context.Context, e domain.LedgerEntry) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now()
	t.m.Ledger = append(t.m.Ledger, e)
	return nil
}

func (t *memTx) CreateForecastEntry(ctx context.Context, e domain.ForecastEntry) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now()
	t.m.Forecasts = append(t.m.Forecasts, e)
	return nil
}

func (t *memTx) ListImportRuns(ctx context.Context, tenantID uuid.UUID, limit int) ([]domain.ImportRun, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	var runs []domain.ImportRun
	for i := len(t.m.Runs) - 1; i >= 0 && len(runs) < limit; i-- {
		if t.m.Runs[i].TenantID == tenantID {
			runs = append(runs, t.m.Runs[i])
		}
	}
	return runs, nil
}

func (t *memTx) RecordImportRun(ctx context.Context, run domain.ImportRun) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	run.CreatedAt = time.Now()
	t.m.Runs = append(t.m.Runs, run)
	return nil
}
