package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/oddsmux/lineledger/internal/domain/snapshot"
	qb "github.com/oddsmux/lineledger/internal/platform/querybuilder"
)

type SnapshotRepository struct {
	db *sqlx.DB
}

func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) Insert(ctx context.Context, item snapshot.Snapshot) (bool, error) {
	query, args, err := qb.InsertModel("line_snapshots", snapshotToModel(item),
		"ON CONFLICT (game_id, market, bookmaker, observed_at) DO NOTHING")
	if err != nil {
		return false, fmt.Errorf("build insert snapshot query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, wrapQueryErr("insert snapshot", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert snapshot rows affected: %w", err)
	}

	return affected > 0, nil
}

func (r *SnapshotRepository) LatestObservedAt(ctx context.Context, gameID, market, bookmaker string) (time.Time, error) {
	query, args, err := qb.Select("MAX(observed_at)").From("line_snapshots").
		Where(
			qb.Eq("game_id", gameID),
			qb.Eq("market", market),
			qb.Eq("bookmaker", bookmaker),
		).
		ToSQL()
	if err != nil {
		return time.Time{}, fmt.Errorf("build latest observed at query: %w", err)
	}

	var latest sql.NullTime
	if err := r.db.GetContext(ctx, &latest, query, args...); err != nil {
		return time.Time{}, wrapQueryErr("get latest observed at", err)
	}
	if !latest.Valid {
		return time.Time{}, nil
	}

	return latest.Time, nil
}

func (r *SnapshotRepository) ListByGameMarket(ctx context.Context, gameID, market string) ([]snapshot.Snapshot, error) {
	query, args, err := qb.Select("*").From("line_snapshots").
		Where(
			qb.Eq("game_id", gameID),
			qb.Eq("market", market),
		).
		OrderBy("observed_at").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list snapshots query: %w", err)
	}

	var rows []snapshotTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, wrapQueryErr("list snapshots", err)
	}

	out := make([]snapshot.Snapshot, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}

func (r *SnapshotRepository) ListMarketsByGame(ctx context.Context, gameID string) ([]string, error) {
	query, args, err := qb.Select("market").From("line_snapshots").
		Where(qb.Eq("game_id", gameID)).
		GroupBy("market").
		OrderBy("market").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list markets query: %w", err)
	}

	var out []string
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, wrapQueryErr("list markets", err)
	}

	return out, nil
}

func (r *SnapshotRepository) CountByGameMarket(ctx context.Context, gameID, market string) (int, error) {
	query, args, err := qb.Select("COUNT(*)").From("line_snapshots").
		Where(
			qb.Eq("game_id", gameID),
			qb.Eq("market", market),
		).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count snapshots query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, wrapQueryErr("count snapshots", err)
	}

	return count, nil
}
