package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oddsmux/lineledger/internal/domain/game"
)

type refKey struct {
	provider   string
	externalID string
}

type aliasKey struct {
	sport string
	alias string
}

type GameRepository struct {
	mu      sync.RWMutex
	items   map[string]game.Game
	refs    map[refKey]string
	aliases map[aliasKey]string
}

func NewGameRepository(games []game.Game) *GameRepository {
	items := make(map[string]game.Game, len(games))
	for _, g := range games {
		items[g.ID] = g
	}

	return &GameRepository{
		items:   items,
		refs:    make(map[refKey]string),
		aliases: make(map[aliasKey]string),
	}
}

// RegisterTeamAlias seeds a provider name to team id mapping.
func (r *GameRepository) RegisterTeamAlias(sport, alias, teamID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.aliases[aliasKey{sport: sport, alias: game.NormalizeTeamKey(alias)}] = teamID
}

func (r *GameRepository) GetByID(_ context.Context, gameID string) (game.Game, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.items[gameID]
	if !ok {
		return game.Game{}, false, nil
	}

	return g, true, nil
}

func (r *GameRepository) GetByExternalID(_ context.Context, provider, externalID string) (game.Game, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	gameID, ok := r.refs[refKey{provider: provider, externalID: externalID}]
	if !ok {
		return game.Game{}, false, nil
	}
	g, ok := r.items[gameID]
	if !ok {
		return game.Game{}, false, nil
	}

	return g, true, nil
}

func (r *GameRepository) ListByTeamsAround(_ context.Context, sport, homeTeamID, awayTeamID string, at time.Time, tolerance time.Duration) ([]game.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]game.Game, 0, 2)
	for _, g := range r.items {
		if g.Sport != sport || g.HomeTeamID != homeTeamID || g.AwayTeamID != awayTeamID {
			continue
		}
		delta := g.ScheduledAt.Sub(at)
		if delta < 0 {
			delta = -delta
		}
		if delta <= tolerance {
			out = append(out, g)
		}
	}

	return out, nil
}

func (r *GameRepository) SaveExternalRef(_ context.Context, ref game.ExternalRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refs[refKey{provider: ref.Provider, externalID: ref.ExternalID}] = ref.GameID
	return nil
}

func (r *GameRepository) UpdateStatus(_ context.Context, gameID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.items[gameID]
	if !ok {
		return nil
	}
	g.Status = status
	r.items[gameID] = g
	return nil
}

func (r *GameRepository) SetFinalScore(_ context.Context, gameID string, homeScore, awayScore int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.items[gameID]
	if !ok {
		return nil
	}
	g.HomeScore = &homeScore
	g.AwayScore = &awayScore
	r.items[gameID] = g
	return nil
}

func (r *GameRepository) SetLockedAt(_ context.Context, gameID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.items[gameID]
	if !ok {
		return nil
	}
	g.LockedAt = &at
	r.items[gameID] = g
	return nil
}

func (r *GameRepository) ListLockable(_ context.Context, now time.Time) ([]game.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]game.Game, 0, 4)
	for _, g := range r.items {
		if g.Locked() {
			continue
		}
		if !g.ScheduledAt.After(now) {
			out = append(out, g)
		}
	}

	return out, nil
}

func (r *GameRepository) ResolveTeamAlias(_ context.Context, sport, alias string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	teamID, ok := r.aliases[aliasKey{sport: sport, alias: game.NormalizeTeamKey(alias)}]
	return teamID, ok, nil
}
