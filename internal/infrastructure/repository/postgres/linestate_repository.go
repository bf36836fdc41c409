package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/oddsmux/lineledger/internal/domain/linestate"
	qb "github.com/oddsmux/lineledger/internal/platform/querybuilder"
)

type LineStateRepository struct {
	db *sqlx.DB
}

func NewLineStateRepository(db *sqlx.DB) *LineStateRepository {
	return &LineStateRepository{db: db}
}

func (r *LineStateRepository) Get(ctx context.Context, gameID, market string) (*linestate.LineState, error) {
	query, args, err := qb.Select("*").From("line_state").
		Where(
			qb.Eq("game_id", gameID),
			qb.Eq("market", market),
		).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get line state query: %w", err)
	}

	var row lineStateTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, wrapQueryErr("get line state", err)
	}

	state := row.toDomain()
	return &state, nil
}

func (r *LineStateRepository) ListByGame(ctx context.Context, gameID string) ([]linestate.LineState, error) {
	query, args, err := qb.Select("*").From("line_state").
		Where(qb.Eq("game_id", gameID)).
		OrderBy("market").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list line states query: %w", err)
	}

	var rows []lineStateTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, wrapQueryErr("list line states", err)
	}

	out := make([]linestate.LineState, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}

// Upsert rewrites opening/current but deliberately leaves closing_* columns
// out of the conflict update so a re-derivation can never unfreeze a locked
// line.
func (r *LineStateRepository) Upsert(ctx context.Context, state *linestate.LineState) error {
	query, args, err := qb.InsertModel("line_state", lineStateToModel(state),
		`ON CONFLICT (game_id, market) DO UPDATE SET
			opening_value = EXCLUDED.opening_value,
			opening_price_home = EXCLUDED.opening_price_home,
			opening_price_away = EXCLUDED.opening_price_away,
			opening_bookmaker = EXCLUDED.opening_bookmaker,
			opening_observed_at = EXCLUDED.opening_observed_at,
			current_value = EXCLUDED.current_value,
			current_price_home = EXCLUDED.current_price_home,
			current_price_away = EXCLUDED.current_price_away,
			current_bookmaker = EXCLUDED.current_bookmaker,
			current_observed_at = EXCLUDED.current_observed_at,
			bookmaker_count = EXCLUDED.bookmaker_count,
			updated_at = EXCLUDED.updated_at`)
	if err != nil {
		return fmt.Errorf("build upsert line state query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return wrapQueryErr("upsert line state", err)
	}

	return nil
}

func (r *LineStateRepository) Freeze(ctx context.Context, gameID string) error {
	query, args, err := qb.Update("line_state").
		SetExpr("closing_value", "current_value").
		SetExpr("closing_price_home", "current_price_home").
		SetExpr("closing_price_away", "current_price_away").
		SetExpr("closing_bookmaker", "current_bookmaker").
		SetExpr("closing_observed_at", "current_observed_at").
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("game_id", gameID),
			qb.IsNull("closing_value"),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build freeze line states query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return wrapQueryErr("freeze line states", err)
	}

	return nil
}

func (r *LineStateRepository) DeleteByGame(ctx context.Context, gameID string) error {
	query := "DELETE FROM line_state WHERE game_id = $1"
	if _, err := r.db.ExecContext(ctx, query, gameID); err != nil {
		return wrapQueryErr("delete line states", err)
	}

	return nil
}
