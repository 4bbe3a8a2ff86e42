package importer

// classify_type.go derives the nature of a ledger entry from the
// group/subgroup the resolved account hangs under.
//
// The classifier is a pure function over folded strings: identical input
// always yields identical output, independent of call order. Keep it that
// way — the importer's idempotence tests depend on it.

import "github.com/contaflow/contaflow/internal/domain"

var (
	revenueTokens      = []string{"receita", "venda", "renda", "faturamento"}
	costGroupTokens    = []string{"custo"}
	costSubgroupTokens = []string{"custo", "mercadoria", "cmv"}
	expenseTokens      = []string{"despesa", "gasto", "operacional", "administrativa"}
)

// ClassifyNature maps group and subgroup names to an entry nature.
// Ordered keyword match, first hit wins:
//
//  1. revenue tokens in the group or subgroup -> revenue
//  2. cost tokens in the group, or cost/merchandise tokens in the subgroup -> cost
//  3. expense tokens in the group or subgroup -> expense
//  4. no match -> expense
//
// The expense default is a documented business assumption: groups outside
// the P&L (assets, liabilities, equity) rarely appear on transaction
// sheets, and when they do the operators prefer a visible misclassification
// over a dropped row.
func ClassifyNature(groupName, subgroupName string) domain.EntryNature {
	if containsAny(groupName, revenueTokens...) || containsAny(subgroupName, revenueTokens...) {
		return domain.NatureRevenue
	}
	if containsAny(groupName, costGroupTokens...) || containsAny(subgroupName, costSubgroupTokens...) {
		return domain.NatureCost
	}
	if containsAny(groupName, expenseTokens...) || containsAny(subgroupName, expenseTokens...) {
		return domain.NatureExpense
	}
	return domain.NatureExpense
}

var (
	assetTokens     = []string{"ativo", "imobilizado", "estoque", "banco", "caixa"}
	liabilityTokens = []string{"passivo", "emprestimo", "financiamento", "fornecedor"}
	equityTokens    = []string{"patrimonio", "capital social"}
)

// ClassifyAccount assigns the classification tag stored on a new Account.
// It extends ClassifyNature with balance-sheet classes, checked first so
// that "Caixa e Bancos" under "Ativo Circulante" is not swallowed by the
// expense default. Assigned once at account creation, never recomputed.
func ClassifyAccount(groupName, subgroupName, accountName string) domain.AccountClass {
	if containsAny(groupName, assetTokens...) {
		return domain.ClassAsset
	}
	if containsAny(groupName, liabilityTokens...) {
		return domain.ClassLiability
	}
	if containsAny(groupName, equityTokens...) {
		return domain.ClassEquity
	}

	switch ClassifyNature(groupName, subgroupName) {
	case domain.NatureRevenue:
		return domain.ClassRevenue
	case domain.NatureCost:
		return domain.ClassCost
	default:
		return domain.ClassExpense
	}
}
