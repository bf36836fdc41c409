package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/oddsmux/lineledger/internal/domain/linestate"
)

type LineStateRepository struct {
	mu    sync.RWMutex
	items map[marketKey]linestate.LineState
}

func NewLineStateRepository() *LineStateRepository {
	return &LineStateRepository{
		items: make(map[marketKey]linestate.LineState),
	}
}

func (r *LineStateRepository) Get(_ context.Context, gameID, market string) (*linestate.LineState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.items[marketKey{gameID: gameID, market: market}]
	if !ok {
		return nil, nil
	}

	out := state
	return &out, nil
}

func (r *LineStateRepository) ListByGame(_ context.Context, gameID string) ([]linestate.LineState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]linestate.LineState, 0, 4)
	for key, state := range r.items {
		if key.gameID == gameID {
			out = append(out, state)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Market < out[j].Market
	})

	return out, nil
}

func (r *LineStateRepository) Upsert(_ context.Context, state *linestate.LineState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := marketKey{gameID: state.GameID, market: state.Market}
	next := *state
	if prev, ok := r.items[key]; ok && next.Closing == nil && prev.Closing != nil {
		closing := *prev.Closing
		next.Closing = &closing
	}
	r.items[key] = next
	return nil
}

func (r *LineStateRepository) Freeze(_ context.Context, gameID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, state := range r.items {
		if key.gameID != gameID || state.Closing != nil {
			continue
		}
		closing := state.Current
		state.Closing = &closing
		r.items[key] = state
	}
	return nil
}

func (r *LineStateRepository) DeleteByGame(_ context.Context, gameID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key := range r.items {
		if key.gameID == gameID {
			delete(r.items, key)
		}
	}
	return nil
}
