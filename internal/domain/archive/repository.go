package archive

import "context"

type Repository interface {
	InsertBatch(ctx context.Context, records []HistoricalRecord) error
	ListByGame(ctx context.Context, gameID string) ([]HistoricalRecord, error)
	GetByGameMarket(ctx context.Context, gameID, market string) (*HistoricalRecord, error)
	ExistsForGame(ctx context.Context, gameID string) (bool, error)
}
