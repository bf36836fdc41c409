package cache

import (
	"context"
	"time"

	"github.com/oddsmux/lineledger/internal/domain/archive"
	"github.com/oddsmux/lineledger/internal/domain/game"
	"github.com/oddsmux/lineledger/internal/domain/linestate"
	basecache "github.com/oddsmux/lineledger/internal/platform/cache"
)

// ArchiveRepository caches historical reads. Archived rows are immutable, so
// entries only need invalidation when a new archive lands for the game.
type ArchiveRepository struct {
	next  archive.Repository
	cache *basecache.Store
}

func NewArchiveRepository(next archive.Repository, cache *basecache.Store) *ArchiveRepository {
	return &ArchiveRepository{next: next, cache: cache}
}

func (r *ArchiveRepository) InsertBatch(ctx context.Context, records []archive.HistoricalRecord) error {
	if err := r.next.InsertBatch(ctx, records); err != nil {
		return err
	}
	for _, record := range records {
		r.cache.DeletePrefix(ctx, "archive:"+record.GameID)
	}
	return nil
}

func (r *ArchiveRepository) ListByGame(ctx context.Context, gameID string) ([]archive.HistoricalRecord, error) {
	key := "archive:" + gameID + ":list"
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.ListByGame(ctx, gameID)
		if err != nil {
			return nil, err
		}
		return append([]archive.HistoricalRecord(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]archive.HistoricalRecord)
	return append([]archive.HistoricalRecord(nil), items...), nil
}

func (r *ArchiveRepository) GetByGameMarket(ctx context.Context, gameID, market string) (*archive.HistoricalRecord, error) {
	key := "archive:" + gameID + ":market:" + market
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		record, err := r.next.GetByGameMarket(ctx, gameID, market)
		if err != nil {
			return nil, err
		}
		return cachedRecord{value: record}, nil
	})
	if err != nil {
		return nil, err
	}

	cached, _ := v.(cachedRecord)
	if cached.value == nil {
		return nil, nil
	}
	out := *cached.value
	return &out, nil
}

func (r *ArchiveRepository) ExistsForGame(ctx context.Context, gameID string) (bool, error) {
	return r.next.ExistsForGame(ctx, gameID)
}

type cachedRecord struct {
	value *archive.HistoricalRecord
}

// GameRepository caches lookups that feed every ingest event: external-id
// resolution and team aliases. Status writes drop the affected game entry.
type GameRepository struct {
	next  game.Repository
	cache *basecache.Store
}

func NewGameRepository(next game.Repository, cache *basecache.Store) *GameRepository {
	return &GameRepository{next: next, cache: cache}
}

func (r *GameRepository) GetByID(ctx context.Context, gameID string) (game.Game, bool, error) {
	key := "game:id:" + gameID
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByID(ctx, gameID)
		if err != nil {
			return nil, err
		}
		return cachedGame{value: item, exists: exists}, nil
	})
	if err != nil {
		return game.Game{}, false, err
	}

	cached, _ := v.(cachedGame)
	return cached.value, cached.exists, nil
}

func (r *GameRepository) GetByExternalID(ctx context.Context, provider, externalID string) (game.Game, bool, error) {
	key := "game:ref:" + provider + ":" + externalID
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByExternalID(ctx, provider, externalID)
		if err != nil {
			return nil, err
		}
		if !exists {
			// Misses are not cached; the ref may be written moments later.
			return cachedGame{}, basecache.ErrSkipCache
		}
		return cachedGame{value: item, exists: true}, nil
	})
	if err != nil {
		return game.Game{}, false, err
	}

	cached, _ := v.(cachedGame)
	return cached.value, cached.exists, nil
}

func (r *GameRepository) ListByTeamsAround(ctx context.Context, sport, homeTeamID, awayTeamID string, at time.Time, tolerance time.Duration) ([]game.Game, error) {
	return r.next.ListByTeamsAround(ctx, sport, homeTeamID, awayTeamID, at, tolerance)
}

func (r *GameRepository) SaveExternalRef(ctx context.Context, ref game.ExternalRef) error {
	if err := r.next.SaveExternalRef(ctx, ref); err != nil {
		return err
	}
	r.cache.Delete(ctx, "game:ref:"+ref.Provider+":"+ref.ExternalID)
	return nil
}

func (r *GameRepository) UpdateStatus(ctx context.Context, gameID, status string) error {
	if err := r.next.UpdateStatus(ctx, gameID, status); err != nil {
		return err
	}
	r.cache.Delete(ctx, "game:id:"+gameID)
	return nil
}

func (r *GameRepository) SetFinalScore(ctx context.Context, gameID string, homeScore, awayScore int) error {
	if err := r.next.SetFinalScore(ctx, gameID, homeScore, awayScore); err != nil {
		return err
	}
	r.cache.Delete(ctx, "game:id:"+gameID)
	return nil
}

func (r *GameRepository) SetLockedAt(ctx context.Context, gameID string, at time.Time) error {
	if err := r.next.SetLockedAt(ctx, gameID, at); err != nil {
		return err
	}
	r.cache.Delete(ctx, "game:id:"+gameID)
	return nil
}

func (r *GameRepository) ListLockable(ctx context.Context, now time.Time) ([]game.Game, error) {
	return r.next.ListLockable(ctx, now)
}

func (r *GameRepository) ResolveTeamAlias(ctx context.Context, sport, alias string) (string, bool, error) {
	key := "alias:" + sport + ":" + game.NormalizeTeamKey(alias)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		teamID, found, err := r.next.ResolveTeamAlias(ctx, sport, alias)
		if err != nil {
			return nil, err
		}
		return cachedAlias{teamID: teamID, found: found}, nil
	})
	if err != nil {
		return "", false, err
	}

	cached, _ := v.(cachedAlias)
	return cached.teamID, cached.found, nil
}

// LineStateRepository caches the hot read path of line dashboards. Any write
// for a game drops every cached entry under that game.
type LineStateRepository struct {
	next  linestate.Repository
	cache *basecache.Store
}

func NewLineStateRepository(next linestate.Repository, cache *basecache.Store) *LineStateRepository {
	return &LineStateRepository{next: next, cache: cache}
}

func (r *LineStateRepository) Get(ctx context.Context, gameID, market string) (*linestate.LineState, error) {
	key := "linestate:" + gameID + ":market:" + market
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		state, err := r.next.Get(ctx, gameID, market)
		if err != nil {
			return nil, err
		}
		return cachedState{value: state}, nil
	})
	if err != nil {
		return nil, err
	}

	cached, _ := v.(cachedState)
	if cached.value == nil {
		return nil, nil
	}
	out := *cached.value
	return &out, nil
}

func (r *LineStateRepository) ListByGame(ctx context.Context, gameID string) ([]linestate.LineState, error) {
	key := "linestate:" + gameID + ":list"
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.ListByGame(ctx, gameID)
		if err != nil {
			return nil, err
		}
		return append([]linestate.LineState(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]linestate.LineState)
	return append([]linestate.LineState(nil), items...), nil
}

func (r *LineStateRepository) Upsert(ctx context.Context, state *linestate.LineState) error {
	if err := r.next.Upsert(ctx, state); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, "linestate:"+state.GameID)
	return nil
}

func (r *LineStateRepository) Freeze(ctx context.Context, gameID string) error {
	if err := r.next.Freeze(ctx, gameID); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, "linestate:"+gameID)
	return nil
}

func (r *LineStateRepository) DeleteByGame(ctx context.Context, gameID string) error {
	if err := r.next.DeleteByGame(ctx, gameID); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, "linestate:"+gameID)
	return nil
}

type cachedState struct {
	value *linestate.LineState
}

type cachedGame struct {
	value  game.Game
	exists bool
}

type cachedAlias struct {
	teamID string
	found  bool
}
