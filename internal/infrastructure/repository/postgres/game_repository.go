package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/oddsmux/lineledger/internal/domain/game"
	qb "github.com/oddsmux/lineledger/internal/platform/querybuilder"
)

type GameRepository struct {
	db *sqlx.DB
}

func NewGameRepository(db *sqlx.DB) *GameRepository {
	return &GameRepository{db: db}
}

func (r *GameRepository) GetByID(ctx context.Context, gameID string) (game.Game, bool, error) {
	query, args, err := qb.Select("*").From("games").
		Where(qb.Eq("id", gameID)).
		ToSQL()
	if err != nil {
		return game.Game{}, false, fmt.Errorf("build get game query: %w", err)
	}

	var row gameTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return game.Game{}, false, nil
		}
		return game.Game{}, false, wrapQueryErr("get game by id", err)
	}

	return row.toDomain(), true, nil
}

func (r *GameRepository) GetByExternalID(ctx context.Context, provider, externalID string) (game.Game, bool, error) {
	query, args, err := qb.Select("g.*").From("games g").
		Where(
			qb.Expr("g.id = (SELECT game_id FROM game_external_ids WHERE provider = ? AND external_id = ?)", provider, externalID),
		).
		ToSQL()
	if err != nil {
		return game.Game{}, false, fmt.Errorf("build get game by external id query: %w", err)
	}

	var row gameTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return game.Game{}, false, nil
		}
		return game.Game{}, false, wrapQueryErr("get game by external id", err)
	}

	return row.toDomain(), true, nil
}

func (r *GameRepository) ListByTeamsAround(ctx context.Context, sport, homeTeamID, awayTeamID string, at time.Time, tolerance time.Duration) ([]game.Game, error) {
	query, args, err := qb.Select("*").From("games").
		Where(
			qb.Eq("sport", sport),
			qb.Eq("home_team_id", homeTeamID),
			qb.Eq("away_team_id", awayTeamID),
			qb.Between("scheduled_at", at.Add(-tolerance), at.Add(tolerance)),
		).
		OrderBy("scheduled_at").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list candidate games query: %w", err)
	}

	var rows []gameTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, wrapQueryErr("list candidate games", err)
	}

	out := make([]game.Game, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}

func (r *GameRepository) SaveExternalRef(ctx context.Context, ref game.ExternalRef) error {
	query, args, err := qb.InsertModel("game_external_ids", externalRefTableModel{
		Provider:   ref.Provider,
		ExternalID: ref.ExternalID,
		GameID:     ref.GameID,
	}, "ON CONFLICT (provider, external_id) DO UPDATE SET game_id = EXCLUDED.game_id")
	if err != nil {
		return fmt.Errorf("build save external ref query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return wrapQueryErr("save external ref", err)
	}

	return nil
}

func (r *GameRepository) UpdateStatus(ctx context.Context, gameID, status string) error {
	query, args, err := qb.Update("games").
		Set("status", status).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("id", gameID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update game status query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return wrapQueryErr("update game status", err)
	}

	return nil
}

func (r *GameRepository) SetFinalScore(ctx context.Context, gameID string, homeScore, awayScore int) error {
	query, args, err := qb.Update("games").
		Set("home_score", homeScore).
		Set("away_score", awayScore).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("id", gameID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build set final score query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return wrapQueryErr("set final score", err)
	}

	return nil
}

func (r *GameRepository) SetLockedAt(ctx context.Context, gameID string, at time.Time) error {
	query, args, err := qb.Update("games").
		Set("locked_at", at).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("id", gameID),
			qb.IsNull("locked_at"),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build set locked at query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return wrapQueryErr("set locked at", err)
	}

	return nil
}

func (r *GameRepository) ListLockable(ctx context.Context, now time.Time) ([]game.Game, error) {
	query, args, err := qb.Select("*").From("games").
		Where(
			qb.IsNull("locked_at"),
			qb.Lte("scheduled_at", now),
		).
		OrderBy("scheduled_at").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list lockable games query: %w", err)
	}

	var rows []gameTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, wrapQueryErr("list lockable games", err)
	}

	out := make([]game.Game, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}

func (r *GameRepository) ResolveTeamAlias(ctx context.Context, sport, alias string) (string, bool, error) {
	query, args, err := qb.Select("team_id").From("team_aliases").
		Where(
			qb.Eq("sport", sport),
			qb.Eq("alias", game.NormalizeTeamKey(alias)),
		).
		ToSQL()
	if err != nil {
		return "", false, fmt.Errorf("build resolve team alias query: %w", err)
	}

	var teamID string
	if err := r.db.GetContext(ctx, &teamID, query, args...); err != nil {
		if isNotFound(err) {
			return "", false, nil
		}
		return "", false, wrapQueryErr("resolve team alias", err)
	}

	return teamID, true, nil
}
