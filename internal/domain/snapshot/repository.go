package snapshot

import (
	"context"
	"time"
)

// Repository is the append-only snapshot store. Insert must enforce
// uniqueness on (game, market, bookmaker, observed_at) so that concurrent
// producers remain commutative.
type Repository interface {
	// Insert appends one snapshot. Returns false without error when a row
	// with the same key already exists.
	Insert(ctx context.Context, item Snapshot) (bool, error)
	// LatestObservedAt returns the newest observed_at for the key, or zero
	// time when no snapshot exists.
	LatestObservedAt(ctx context.Context, gameID, market, bookmaker string) (time.Time, error)
	ListByGameMarket(ctx context.Context, gameID, market string) ([]Snapshot, error)
	ListMarketsByGame(ctx context.Context, gameID string) ([]string, error)
	// CountByGameMarket supports the incomplete-lifecycle check at archival.
	CountByGameMarket(ctx context.Context, gameID, market string) (int, error)
}
