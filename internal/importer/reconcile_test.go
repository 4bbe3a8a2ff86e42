package importer

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contaflow/contaflow/internal/domain"
	"github.com/contaflow/contaflow/internal/store"
)

func TestCodeInitials(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "Custo das Mercadorias Vendidas", want: "CMV"},
		{input: "Despesas Operacionais", want: "DO"},
		{input: "Receitas", want: "R"},
		{input: "Folha de Pagamento", want: "FP"},
		{input: "de da do", want: "X"},
		{input: "", want: "X"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, codeInitials(tt.input), "codeInitials(%q)", tt.input)
	}
}

func beginTx(t *testing.T, mem *store.Memory) store.Tx {
	t.Helper()
	tx, err := mem.Begin(context.Background())
	require.NoError(t, err)
	return tx
}

func TestReconciler_ResolveGroupIdempotent(t *testing.T) {
	mem := store.NewMemory()
	tx := beginTx(t, mem)
	tenant := uuid.New()
	r := newReconciler(&tenant)

	g1, err := r.ResolveGroup(context.Background(), tx, "Despesas Operacionais")
	require.NoError(t, err)
	assert.Equal(t, "DO", g1.Code)
	assert.Equal(t, 1, r.GroupsCreated)

	// Same name again, same run: cache hit, nothing new.
	g2, err := r.ResolveGroup(context.Background(), tx, "Despesas Operacionais")
	require.NoError(t, err)
	assert.Equal(t, g1.ID, g2.ID)
	assert.Equal(t, 1, r.GroupsCreated)

	// Fresh reconciler over the same store: found, not created.
	r2 := newReconciler(&tenant)
	g3, err := r2.ResolveGroup(context.Background(), tx, "Despesas Operacionais")
	require.NoError(t, err)
	assert.Equal(t, g1.ID, g3.ID)
	assert.Equal(t, 0, r2.GroupsCreated)
	assert.Len(t, mem.Groups, 1)
}

func TestReconciler_CodeCollisionSuffix(t *testing.T) {
	mem := store.NewMemory()
	tx := beginTx(t, mem)
	tenant := uuid.New()
	r := newReconciler(&tenant)

	g1, err := r.ResolveGroup(context.Background(), tx, "Despesas Operacionais")
	require.NoError(t, err)
	g2, err := r.ResolveGroup(context.Background(), tx, "Dividendos Obrigatórios") // also "DO" by initials
	require.NoError(t, err)
	g3, err := r.ResolveGroup(context.Background(), tx, "Depósitos de Origem")
	require.NoError(t, err)

	assert.Equal(t, "DO", g1.Code)
	assert.Equal(t, "DO1", g2.Code)
	assert.Equal(t, "DO2", g3.Code)
}

func TestReconciler_TenantsDoNotShareCodes(t *testing.T) {
	mem := store.NewMemory()
	tx := beginTx(t, mem)
	tenantA, tenantB := uuid.New(), uuid.New()

	ga, err := newReconciler(&tenantA).ResolveGroup(context.Background(), tx, "Despesas Operacionais")
	require.NoError(t, err)
	gb, err := newReconciler(&tenantB).ResolveGroup(context.Background(), tx, "Despesas Operacionais")
	require.NoError(t, err)

	// Code uniqueness is per tenant, so both get the plain initials.
	assert.Equal(t, "DO", ga.Code)
	assert.Equal(t, "DO", gb.Code)
	assert.NotEqual(t, ga.ID, gb.ID)
}

func TestReconciler_ReconcileRow(t *testing.T) {
	mem := store.NewMemory()
	tx := beginTx(t, mem)
	tenant := uuid.New()
	r := newReconciler(&tenant)
	ctx := context.Background()

	// Account gated off: only the hierarchy above it materializes.
	require.NoError(t, r.ReconcileRow(ctx, tx, "Despesas", "Marketing", "Google Ads", false))
	assert.Equal(t, 1, r.GroupsCreated)
	assert.Equal(t, 1, r.SubgroupsCreated)
	assert.Equal(t, 0, r.AccountsCreated)
	assert.Empty(t, mem.Accounts)

	// Same row with the flag on creates the account under the existing nodes.
	require.NoError(t, r.ReconcileRow(ctx, tx, "Despesas", "Marketing", "Google Ads", true))
	assert.Equal(t, 1, r.GroupsCreated)
	assert.Equal(t, 1, r.SubgroupsCreated)
	assert.Equal(t, 1, r.AccountsCreated)

	require.Len(t, mem.Accounts, 1)
	got := mem.Accounts[0]
	assert.Equal(t, "Google Ads", got.Name)
	assert.Equal(t, domain.ClassExpense, got.Class)
	require.Len(t, mem.Subgroups, 1)
	assert.Equal(t, mem.Subgroups[0].ID, got.SubgroupID)
}

func TestReconciler_SameSubgroupNameUnderDifferentGroups(t *testing.T) {
	mem := store.NewMemory()
	tx := beginTx(t, mem)
	tenant := uuid.New()
	r := newReconciler(&tenant)
	ctx := context.Background()

	require.NoError(t, r.ReconcileRow(ctx, tx, "Despesas", "Outros", "Multas", true))
	require.NoError(t, r.ReconcileRow(ctx, tx, "Receitas", "Outros", "Juros Recebidos", true))

	assert.Equal(t, 2, r.GroupsCreated)
	// "Outros" exists once per parent group.
	assert.Equal(t, 2, r.SubgroupsCreated)
	assert.Len(t, mem.Subgroups, 2)
}
