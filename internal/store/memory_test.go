package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contaflow/contaflow/internal/domain"
)

func memQuerier(t *testing.T) (Querier, *Memory) {
	t.Helper()
	mem := NewMemory()
	tx, err := mem.Begin(context.Background())
	require.NoError(t, err)
	return tx, mem
}

func TestFindOrCreateGroup_SharedVsOwned(t *testing.T) {
	tx, _ := memQuerier(t)
	ctx := context.Background()
	tenant := uuid.New()

	shared, created, err := tx.FindOrCreateGroup(ctx, domain.AccountGroup{Name: "Receitas", Code: "R"})
	require.NoError(t, err)
	assert.True(t, created)

	// Same name owned by a tenant is a distinct row.
	owned, created, err := tx.FindOrCreateGroup(ctx, domain.AccountGroup{TenantID: &tenant, Name: "Receitas", Code: "R"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, shared.ID, owned.ID)

	// Re-creating either scope finds the existing row.
	again, created, err := tx.FindOrCreateGroup(ctx, domain.AccountGroup{Name: "Receitas"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, shared.ID, again.ID)
}

func TestAccountLookups_TenantOrShared(t *testing.T) {
	tx, mem := memQuerier(t)
	tenant, other := uuid.New(), uuid.New()
	subgroupID := uuid.New()

	mem.Accounts = []domain.Account{
		{ID: uuid.New(), TenantID: &other, SubgroupID: subgroupID, Name: "Aluguel"},
		{ID: uuid.New(), TenantID: nil, SubgroupID: subgroupID, Name: "Aluguel Compartilhado"},
		{ID: uuid.New(), TenantID: &tenant, SubgroupID: subgroupID, Name: "Aluguel Sala"},
	}

	// Exact match skips the other tenant's row and hits the shared one.
	got, err := tx.FindAccountByName(context.Background(), tenant, "Aluguel Compartilhado")
	require.NoError(t, err)
	assert.Nil(t, got.TenantID)

	_, err = tx.FindAccountByName(context.Background(), tenant, "Aluguel")
	assert.ErrorIs(t, err, ErrNotFound)

	// Substring match prefers the shortest visible name.
	got, err = tx.FindAccountContaining(context.Background(), tenant, "aluguel")
	require.NoError(t, err)
	assert.Equal(t, "Aluguel Sala", got.Name)

	// FindAnyAccount never returns shared or foreign rows.
	got, err = tx.FindAnyAccount(context.Background(), tenant)
	require.NoError(t, err)
	require.NotNil(t, got.TenantID)
	assert.Equal(t, tenant, *got.TenantID)
}

func TestEntryExists_AmountFormatInsensitive(t *testing.T) {
	tx, mem := memQuerier(t)
	key := domain.EntryKey{
		TenantID:       uuid.New(),
		BusinessUnitID: uuid.New(),
		AccountID:      uuid.New(),
		Date:           time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
		Amount:         decimal.RequireFromString("1200"),
	}

	mem.Ledger = []domain.LedgerEntry{{
		ID:             uuid.New(),
		TenantID:       key.TenantID,
		BusinessUnitID: key.BusinessUnitID,
		AccountID:      key.AccountID,
		Date:           key.Date,
		Amount:         decimal.RequireFromString("1200.00"),
	}}

	exists, err := tx.LedgerEntryExists(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, exists, "1200 and 1200.00 are the same amount")

	// Different business unit is a different entry.
	key.BusinessUnitID = uuid.New()
	exists, err = tx.LedgerEntryExists(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestListImportRuns_NewestFirstWithLimit(t *testing.T) {
	tx, mem := memQuerier(t)
	tenant := uuid.New()

	for i := 0; i < 5; i++ {
		mem.Runs = append(mem.Runs, domain.ImportRun{
			ID: uuid.New(), TenantID: tenant, WorkbookID: string(rune('a' + i)),
		})
	}
	mem.Runs = append(mem.Runs, domain.ImportRun{ID: uuid.New(), TenantID: uuid.New(), WorkbookID: "foreign"})

	runs, err := tx.ListImportRuns(context.Background(), tenant, 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "e", runs[0].WorkbookID)
	assert.Equal(t, "d", runs[1].WorkbookID)
	assert.Equal(t, "c", runs[2].WorkbookID)
}
