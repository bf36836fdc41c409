package game

import (
	"context"
	"time"
)

// Repository exposes canonical game reads and identity writes.
type Repository interface {
	GetByID(ctx context.Context, gameID string) (Game, bool, error)
	GetByExternalID(ctx context.Context, provider, externalID string) (Game, bool, error)
	// ListByTeamsAround returns candidate games for the same sport and team
	// pair scheduled within the tolerance window around at.
	ListByTeamsAround(ctx context.Context, sport, homeTeamID, awayTeamID string, at time.Time, tolerance time.Duration) ([]Game, error)
	SaveExternalRef(ctx context.Context, ref ExternalRef) error
	UpdateStatus(ctx context.Context, gameID, status string) error
	SetFinalScore(ctx context.Context, gameID string, homeScore, awayScore int) error
	SetLockedAt(ctx context.Context, gameID string, at time.Time) error
	// ListLockable returns scheduled games whose kickoff is at or before now
	// and that have not been locked yet.
	ListLockable(ctx context.Context, now time.Time) ([]Game, error)
	// ResolveTeamAlias maps a provider team name or abbreviation to a team id
	// for the sport; returns false when the alias is unknown.
	ResolveTeamAlias(ctx context.Context, sport, alias string) (string, bool, error)
}
