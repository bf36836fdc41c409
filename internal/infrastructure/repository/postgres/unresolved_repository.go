package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/oddsmux/lineledger/internal/domain/unresolved"
	qb "github.com/oddsmux/lineledger/internal/platform/querybuilder"
)

type UnresolvedRepository struct {
	db *sqlx.DB
}

func NewUnresolvedRepository(db *sqlx.DB) *UnresolvedRepository {
	return &UnresolvedRepository{db: db}
}

func (r *UnresolvedRepository) Insert(ctx context.Context, item *unresolved.Event) error {
	query, args, err := qb.InsertModel("unresolved_events", unresolvedToModel(item),
		"ON CONFLICT (provider, external_id) DO UPDATE SET reason = EXCLUDED.reason")
	if err != nil {
		return fmt.Errorf("build insert unresolved event query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return wrapQueryErr("insert unresolved event", err)
	}

	return nil
}

func (r *UnresolvedRepository) List(ctx context.Context, limit int) ([]unresolved.Event, error) {
	builder := qb.Select("*").From("unresolved_events").
		OrderBy("created_at DESC")
	if limit > 0 {
		builder = builder.Limit(limit)
	}
	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list unresolved events query: %w", err)
	}

	var rows []unresolvedEventTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, wrapQueryErr("list unresolved events", err)
	}

	out := make([]unresolved.Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}

func (r *UnresolvedRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM unresolved_events WHERE id = $1", id); err != nil {
		return wrapQueryErr("delete unresolved event", err)
	}

	return nil
}

func (r *UnresolvedRepository) IncrementAttempts(ctx context.Context, id string) error {
	query, args, err := qb.Update("unresolved_events").
		SetExpr("attempts", "attempts + 1").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build increment attempts query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return wrapQueryErr("increment unresolved attempts", err)
	}

	return nil
}
