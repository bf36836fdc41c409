package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/oddsmux/lineledger/internal/domain/archive"
)

type ArchiveRepository struct {
	mu    sync.RWMutex
	items map[marketKey]archive.HistoricalRecord
}

func NewArchiveRepository() *ArchiveRepository {
	return &ArchiveRepository{
		items: make(map[marketKey]archive.HistoricalRecord),
	}
}

func (r *ArchiveRepository) InsertBatch(_ context.Context, records []archive.HistoricalRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, record := range records {
		key := marketKey{gameID: record.GameID, market: record.Market}
		if _, ok := r.items[key]; ok {
			continue
		}
		r.items[key] = record
	}
	return nil
}

func (r *ArchiveRepository) ListByGame(_ context.Context, gameID string) ([]archive.HistoricalRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]archive.HistoricalRecord, 0, 4)
	for key, record := range r.items {
		if key.gameID == gameID {
			out = append(out, record)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Market < out[j].Market
	})

	return out, nil
}

func (r *ArchiveRepository) GetByGameMarket(_ context.Context, gameID, market string) (*archive.HistoricalRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.items[marketKey{gameID: gameID, market: market}]
	if !ok {
		return nil, nil
	}

	out := record
	return &out, nil
}

func (r *ArchiveRepository) ExistsForGame(_ context.Context, gameID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for key := range r.items {
		if key.gameID == gameID {
			return true, nil
		}
	}
	return false, nil
}
