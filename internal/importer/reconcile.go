package importer

// reconcile.go builds and looks up the Group -> Subgroup -> Account
// hierarchy from chart-of-accounts rows.
//
// Every step is lookup-before-create through the store's atomic
// find-or-create, so re-running the same sheet creates nothing the second
// time. A per-run cache of resolved nodes avoids redundant lookups within
// one pass; the cache belongs to the reconciler instance and is discarded
// with it, so nothing leaks across tenants or runs.

import (
	"context"
	"fmt"
	"strings"

	"github.com/contaflow/contaflow/internal/domain"
	"github.com/contaflow/contaflow/internal/store"
	"github.com/google/uuid"
)

// codeStopwords are connective words skipped when deriving a short code
// from a name's initials ("Custo das Mercadorias Vendidas" -> "CMV").
var codeStopwords = map[string]bool{
	"de": true, "da": true, "do": true, "das": true, "dos": true,
	"e": true, "a": true, "o": true, "em": true, "para": true,
}

// reconciler resolves hierarchy rows for a single tenant within one run.
type reconciler struct {
	tenantID  *uuid.UUID
	groups    map[string]domain.AccountGroup    // folded name -> group
	subgroups map[string]domain.AccountSubgroup // folded "group name|name" -> subgroup

	// Counts of nodes created during this run.
	GroupsCreated    int
	SubgroupsCreated int
	AccountsCreated  int
}

func newReconciler(tenantID *uuid.UUID) *reconciler {
	return &reconciler{
		tenantID:  tenantID,
		groups:    make(map[string]domain.AccountGroup),
		subgroups: make(map[string]domain.AccountSubgroup),
	}
}

// ResolveGroup returns the group with the given name, creating it when
// absent.
func (r *reconciler) ResolveGroup(ctx context.Context, tx store.Querier, name string) (domain.AccountGroup, error) {
	key := foldCompact(name)
	if g, ok := r.groups[key]; ok {
		return g, nil
	}

	code, err := r.generateCode(ctx, tx, name)
	if err != nil {
		return domain.AccountGroup{}, err
	}

	g, created, err := tx.FindOrCreateGroup(ctx, domain.AccountGroup{
		TenantID: r.tenantID,
		Code:     code,
		Name:     name,
	})
	if err != nil {
		return domain.AccountGroup{}, fmt.Errorf("resolve group %q: %w", name, err)
	}
	if created {
		r.GroupsCreated++
	}
	r.groups[key] = g
	return g, nil
}

// ResolveSubgroup returns the subgroup with the given name under the
// group, creating it when absent.
func (r *reconciler) ResolveSubgroup(ctx context.Context, tx store.Querier, group domain.AccountGroup, name string) (domain.AccountSubgroup, error) {
	key := foldCompact(group.Name) + "|" + foldCompact(name)
	if sg, ok := r.subgroups[key]; ok {
		return sg, nil
	}

	code, err := r.generateCode(ctx, tx, name)
	if err != nil {
		return domain.AccountSubgroup{}, err
	}

	sg, created, err := tx.FindOrCreateSubgroup(ctx, domain.AccountSubgroup{
		TenantID: r.tenantID,
		GroupID:  group.ID,
		Code:     code,
		Name:     name,
	})
	if err != nil {
		return domain.AccountSubgroup{}, fmt.Errorf("resolve subgroup %q: %w", name, err)
	}
	if created {
		r.SubgroupsCreated++
	}
	r.subgroups[key] = sg
	return sg, nil
}

// ResolveAccount returns the account with the given name under the
// subgroup, creating it with a classification derived from the full
// hierarchy path when absent.
func (r *reconciler) ResolveAccount(ctx context.Context, tx store.Querier, group domain.AccountGroup, subgroup domain.AccountSubgroup, name string) (domain.Account, error) {
	a, created, err := tx.FindOrCreateAccount(ctx, domain.Account{
		TenantID:   r.tenantID,
		SubgroupID: subgroup.ID,
		Name:       name,
		Class:      ClassifyAccount(group.Name, subgroup.Name, name),
	})
	if err != nil {
		return domain.Account{}, fmt.Errorf("resolve account %q: %w", name, err)
	}
	if created {
		r.AccountsCreated++
	}
	return a, nil
}

// ReconcileRow processes one chart-of-accounts row. Groups and subgroups
// are always materialized so later rows can reference them; the account
// itself is only materialized when useAccount is set.
func (r *reconciler) ReconcileRow(ctx context.Context, tx store.Querier, groupName, subgroupName, accountName string, useAccount bool) error {
	group, err := r.ResolveGroup(ctx, tx, groupName)
	if err != nil {
		return err
	}
	subgroup, err := r.ResolveSubgroup(ctx, tx, group, subgroupName)
	if err != nil {
		return err
	}
	if !useAccount {
		return nil
	}
	_, err = r.ResolveAccount(ctx, tx, group, subgroup, accountName)
	return err
}

// generateCode derives a stable short code from the name's initials and
// disambiguates collisions with an incrementing numeric suffix: "DO",
// then "DO1", "DO2", ...
func (r *reconciler) generateCode(ctx context.Context, tx store.Querier, name string) (string, error) {
	base := codeInitials(name)

	candidate := base
	for i := 1; ; i++ {
		exists, err := tx.CodeExists(ctx, r.tenantID, candidate)
		if err != nil {
			return "", fmt.Errorf("generate code for %q: %w", name, err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
}

// codeInitials returns the upper-cased initials of the name's significant
// words, or "X" for a name with none.
func codeInitials(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(foldCompact(name)) {
		if codeStopwords[word] {
			continue
		}
		b.WriteByte(word[0])
	}
	if b.Len() == 0 {
		return "X"
	}
	return strings.ToUpper(b.String())
}
