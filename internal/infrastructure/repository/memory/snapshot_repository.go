package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oddsmux/lineledger/internal/domain/snapshot"
)

type marketKey struct {
	gameID string
	market string
}

type snapshotKey struct {
	gameID     string
	market     string
	bookmaker  string
	observedAt int64
}

type SnapshotRepository struct {
	mu    sync.RWMutex
	items map[marketKey][]snapshot.Snapshot
	seen  map[snapshotKey]struct{}
}

func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{
		items: make(map[marketKey][]snapshot.Snapshot),
		seen:  make(map[snapshotKey]struct{}),
	}
}

func (r *SnapshotRepository) Insert(_ context.Context, item snapshot.Snapshot) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := snapshotKey{
		gameID:     item.GameID,
		market:     item.Market,
		bookmaker:  item.Bookmaker,
		observedAt: item.ObservedAt.UnixNano(),
	}
	if _, ok := r.seen[key]; ok {
		return false, nil
	}
	r.seen[key] = struct{}{}

	mk := marketKey{gameID: item.GameID, market: item.Market}
	r.items[mk] = append(r.items[mk], item)
	return true, nil
}

func (r *SnapshotRepository) LatestObservedAt(_ context.Context, gameID, market, bookmaker string) (time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest time.Time
	for _, item := range r.items[marketKey{gameID: gameID, market: market}] {
		if item.Bookmaker == bookmaker && item.ObservedAt.After(latest) {
			latest = item.ObservedAt
		}
	}

	return latest, nil
}

func (r *SnapshotRepository) ListByGameMarket(_ context.Context, gameID, market string) ([]snapshot.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.items[marketKey{gameID: gameID, market: market}]
	out := make([]snapshot.Snapshot, len(stored))
	copy(out, stored)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ObservedAt.Before(out[j].ObservedAt)
	})

	return out, nil
}

func (r *SnapshotRepository) ListMarketsByGame(_ context.Context, gameID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, 4)
	for key := range r.items {
		if key.gameID == gameID && len(r.items[key]) > 0 {
			out = append(out, key.market)
		}
	}
	sort.Strings(out)

	return out, nil
}

func (r *SnapshotRepository) CountByGameMarket(_ context.Context, gameID, market string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.items[marketKey{gameID: gameID, market: market}]), nil
}
