package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/oddsmux/lineledger/internal/domain/unresolved"
)

type UnresolvedRepository struct {
	mu    sync.RWMutex
	items map[string]unresolved.Event
	byRef map[refKey]string
}

func NewUnresolvedRepository() *UnresolvedRepository {
	return &UnresolvedRepository{
		items: make(map[string]unresolved.Event),
		byRef: make(map[refKey]string),
	}
}

func (r *UnresolvedRepository) Insert(_ context.Context, item *unresolved.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref := refKey{provider: item.Provider, externalID: item.ExternalID}
	if existingID, ok := r.byRef[ref]; ok {
		// Repeat deliveries keep the original row; only the reason refreshes.
		existing := r.items[existingID]
		existing.Reason = item.Reason
		r.items[existingID] = existing
		return nil
	}

	r.items[item.ID] = *item
	r.byRef[ref] = item.ID
	return nil
}

func (r *UnresolvedRepository) List(_ context.Context, limit int) ([]unresolved.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]unresolved.Event, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (r *UnresolvedRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return nil
	}
	delete(r.byRef, refKey{provider: item.Provider, externalID: item.ExternalID})
	delete(r.items, id)
	return nil
}

func (r *UnresolvedRepository) IncrementAttempts(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return nil
	}
	item.Attempts++
	r.items[id] = item
	return nil
}
