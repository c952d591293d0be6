package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/outlinebot/internal/bot/models"
	"github.com/dmitrijs2005/outlinebot/internal/bot/repositories/keys"
)

// keyPlan holds the changes that bring the stored keys of one server in
// line with the remote list. The three sets are disjoint by key id.
type keyPlan struct {
	insert []models.Key
	update []models.Key
	delete []models.Key
}

func (p *keyPlan) empty() bool {
	return len(p.insert) == 0 && len(p.update) == 0 && len(p.delete) == 0
}

// diffKeys compares by key id. Remote-only keys are inserted, stored-only
// keys deleted, and keys present on both sides are rewritten from the
// remote copy unless every field already matches.
func diffKeys(stored, remote []models.Key) *keyPlan {
	byID := make(map[int64]models.Key, len(stored))
	for _, k := range stored {
		byID[k.KeyID] = k
	}

	plan := &keyPlan{}
	seen := make(map[int64]struct{}, len(remote))
	for _, r := range remote {
		if _, dup := seen[r.KeyID]; dup {
			continue
		}
		seen[r.KeyID] = struct{}{}

		l, ok := byID[r.KeyID]
		switch {
		case !ok:
			plan.insert = append(plan.insert, r)
		case !l.SameAs(&r):
			plan.update = append(plan.update, r)
		}
	}
	for _, l := range stored {
		if _, ok := seen[l.KeyID]; !ok {
			plan.delete = append(plan.delete, l)
		}
	}

	for _, set := range [][]models.Key{plan.insert, plan.update, plan.delete} {
		sort.Slice(set, func(i, j int) bool { return set[i].KeyID < set[j].KeyID })
	}
	return plan
}

// apply writes the plan through repo, which must be bound to a transaction.
func (p *keyPlan) apply(ctx context.Context, repo keys.Repository) error {
	for i := range p.delete {
		k := &p.delete[i]
		if err := repo.Delete(ctx, k.ServerAddress, k.KeyID); err != nil {
			return fmt.Errorf("error deleting key %d: %w", k.KeyID, err)
		}
	}
	for i := range p.update {
		if err := repo.Update(ctx, &p.update[i]); err != nil {
			return fmt.Errorf("error updating key %d: %w", p.update[i].KeyID, err)
		}
	}
	for i := range p.insert {
		if err := repo.Insert(ctx, &p.insert[i]); err != nil {
			return fmt.Errorf("error inserting key %d: %w", p.insert[i].KeyID, err)
		}
	}
	return nil
}
