package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapColumns_ByHeader(t *testing.T) {
	header := []string{"Grupo", "Sub-Grupo", "Conta Contábil", "Usar?"}

	m, err := MapColumns("Plano de Contas", SheetAccounts, header, len(header))
	require.NoError(t, err)

	assert.Equal(t, 0, m[FieldGroup])
	assert.Equal(t, 1, m[FieldSubgroup])
	assert.Equal(t, 2, m[FieldAccount])
	assert.Equal(t, 3, m[FieldUseAccount])
}

func TestMapColumns_ReorderedHeader(t *testing.T) {
	// Header matching follows names, not positions.
	header := []string{"Valor", "Data", "Observações", "Conta"}

	m, err := MapColumns("Lançamentos", SheetTransactions, header, len(header))
	require.NoError(t, err)

	assert.Equal(t, 1, m[FieldDate])
	assert.Equal(t, 3, m[FieldAccount])
	assert.Equal(t, 0, m[FieldAmount])
	assert.Equal(t, 2, m[FieldNotes])
}

func TestMapColumns_FixedFallback(t *testing.T) {
	// No recognizable header: positions come from the versioned layout.
	header := []string{"A", "B", "C"}

	m, err := MapColumns("Lançamentos", SheetTransactions, header, 3)
	require.NoError(t, err)

	assert.Equal(t, 0, m[FieldDate])
	assert.Equal(t, 1, m[FieldAccount])
	assert.Equal(t, 2, m[FieldAmount])

	// Optional fields without a fallback position stay unmapped.
	assert.False(t, m.Has(FieldNotes))
	assert.False(t, m.Has(FieldSubgroup))
}

func TestMapColumns_TooNarrow(t *testing.T) {
	// Two columns cannot hold date+account+amount, and no header matches.
	_, err := MapColumns("Lançamentos", SheetTransactions, []string{"A", "B"}, 2)

	var serr *StructuralError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "Lançamentos", serr.Sheet)
	assert.Equal(t, FieldAmount, serr.Field)
}

func TestMapColumns_UnimportedKind(t *testing.T) {
	_, err := MapColumns("Fluxo", SheetCashFlow, nil, 4)

	var serr *StructuralError
	require.ErrorAs(t, err, &serr)
}

func TestColumnMap_Cell(t *testing.T) {
	m := ColumnMap{FieldAccount: 1, FieldNotes: 5}
	row := []string{"01/02/2025", ` "Aluguel" `, "1.200,00"}

	assert.Equal(t, "Aluguel", m.Cell(row, FieldAccount))
	// Mapped past the row's end: Sheets drops trailing empties.
	assert.Equal(t, "", m.Cell(row, FieldNotes))
	// Unmapped field.
	assert.Equal(t, "", m.Cell(row, FieldDate))
}
