package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/oddsmux/lineledger/internal/domain/archive"
	qb "github.com/oddsmux/lineledger/internal/platform/querybuilder"
)

type ArchiveRepository struct {
	db *sqlx.DB
}

func NewArchiveRepository(db *sqlx.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

// InsertBatch writes all records in one transaction so a partially archived
// game can never be observed.
func (r *ArchiveRepository) InsertBatch(ctx context.Context, records []archive.HistoricalRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrapQueryErr("begin archive transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, record := range records {
		query, args, err := qb.InsertModel("historical_records", historicalRecordToModel(record),
			"ON CONFLICT (game_id, market) DO NOTHING")
		if err != nil {
			return fmt.Errorf("build insert historical record query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return wrapQueryErr("insert historical record", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapQueryErr("commit archive transaction", err)
	}

	return nil
}

func (r *ArchiveRepository) ListByGame(ctx context.Context, gameID string) ([]archive.HistoricalRecord, error) {
	query, args, err := qb.Select("*").From("historical_records").
		Where(qb.Eq("game_id", gameID)).
		OrderBy("market").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list historical records query: %w", err)
	}

	var rows []historicalRecordTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, wrapQueryErr("list historical records", err)
	}

	out := make([]archive.HistoricalRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}

func (r *ArchiveRepository) GetByGameMarket(ctx context.Context, gameID, market string) (*archive.HistoricalRecord, error) {
	query, args, err := qb.Select("*").From("historical_records").
		Where(
			qb.Eq("game_id", gameID),
			qb.Eq("market", market),
		).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get historical record query: %w", err)
	}

	var row historicalRecordTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, wrapQueryErr("get historical record", err)
	}

	record := row.toDomain()
	return &record, nil
}

func (r *ArchiveRepository) ExistsForGame(ctx context.Context, gameID string) (bool, error) {
	query, args, err := qb.Select("COUNT(*)").From("historical_records").
		Where(qb.Eq("game_id", gameID)).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build archive exists query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, wrapQueryErr("check archive exists", err)
	}

	return count > 0, nil
}
