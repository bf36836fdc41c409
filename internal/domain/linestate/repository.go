package linestate

import "context"

type Repository interface {
	Get(ctx context.Context, gameID, market string) (*LineState, error)
	ListByGame(ctx context.Context, gameID string) ([]LineState, error)
	// Upsert replaces the derived state for (game, market). Implementations
	// must preserve an existing closing point when the incoming state has
	// none, so a late re-derivation cannot unfreeze a locked line.
	Upsert(ctx context.Context, state *LineState) error
	// Freeze records the closing point for every market of the game that
	// does not already have one. Markets with no derived state are skipped.
	Freeze(ctx context.Context, gameID string) error
	DeleteByGame(ctx context.Context, gameID string) error
}
