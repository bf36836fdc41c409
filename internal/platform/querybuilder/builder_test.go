package querybuilder

import (
	"reflect"
	"testing"
	"time"
)

func TestSelectBuilder_ToSQL(t *testing.T) {
	t.Run("conditions and ordering", func(t *testing.T) {
		low := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
		high := low.Add(24 * time.Hour)

		query, args, err := Select("id", "sport", "scheduled_at").
			From("games").
			Where(
				Eq("sport", "basketball"),
				Between("scheduled_at", low, high),
				IsNull("locked_at"),
			).
			OrderBy("scheduled_at ASC").
			Limit(10).
			ToSQL()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		wantQuery := "SELECT id, sport, scheduled_at FROM games" +
			" WHERE sport = $1 AND scheduled_at BETWEEN $2 AND $3 AND locked_at IS NULL" +
			" ORDER BY scheduled_at ASC LIMIT 10"
		if query != wantQuery {
			t.Fatalf("unexpected query:\n got=%s\nwant=%s", query, wantQuery)
		}
		wantArgs := []any{"basketball", low, high}
		if !reflect.DeepEqual(args, wantArgs) {
			t.Fatalf("unexpected args: got=%v want=%v", args, wantArgs)
		}
	})

	t.Run("lte condition", func(t *testing.T) {
		cutoff := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

		query, args, err := Select("id").
			From("games").
			Where(Lte("scheduled_at", cutoff), IsNull("locked_at")).
			ToSQL()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		wantQuery := "SELECT id FROM games WHERE scheduled_at <= $1 AND locked_at IS NULL"
		if query != wantQuery {
			t.Fatalf("unexpected query: got=%s", query)
		}
		if len(args) != 1 || !args[0].(time.Time).Equal(cutoff) {
			t.Fatalf("unexpected args: %v", args)
		}
	})

	t.Run("expr subquery rewrites markers", func(t *testing.T) {
		query, args, err := Select("game_id", "market").
			From("line_state").
			Where(
				Eq("game_id", "g-1"),
				Expr("game_id IN (SELECT game_id FROM game_external_ids WHERE provider = ?)", "oddsfeed"),
			).
			ToSQL()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		wantQuery := "SELECT game_id, market FROM line_state" +
			" WHERE game_id = $1 AND game_id IN (SELECT game_id FROM game_external_ids WHERE provider = $2)"
		if query != wantQuery {
			t.Fatalf("unexpected query: got=%s", query)
		}
		wantArgs := []any{"g-1", "oddsfeed"}
		if !reflect.DeepEqual(args, wantArgs) {
			t.Fatalf("unexpected args: got=%v want=%v", args, wantArgs)
		}
	})

	t.Run("group by", func(t *testing.T) {
		query, _, err := Select("market", "COUNT(*)").
			From("line_snapshots").
			Where(Eq("game_id", "g-1")).
			GroupBy("market").
			OrderBy("market ASC").
			ToSQL()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		wantQuery := "SELECT market, COUNT(*) FROM line_snapshots WHERE game_id = $1 GROUP BY market ORDER BY market ASC"
		if query != wantQuery {
			t.Fatalf("unexpected query: got=%s", query)
		}
	})

	t.Run("missing columns", func(t *testing.T) {
		if _, _, err := Select().From("games").ToSQL(); err == nil {
			t.Fatal("expected error for missing columns")
		}
	})

	t.Run("missing table", func(t *testing.T) {
		if _, _, err := Select("id").ToSQL(); err == nil {
			t.Fatal("expected error for missing table")
		}
	})
}

func TestInsertBuilder_ToSQL(t *testing.T) {
	t.Run("multi row with conflict suffix", func(t *testing.T) {
		query, args, err := InsertInto("team_aliases").
			Columns("sport", "alias", "team_id").
			Values("basketball", "la lakers", "nba-lal").
			Values("basketball", "boston celtics", "nba-bos").
			Suffix("ON CONFLICT (sport, alias) DO NOTHING").
			ToSQL()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		wantQuery := "INSERT INTO team_aliases (sport, alias, team_id)" +
			" VALUES ($1, $2, $3), ($4, $5, $6) ON CONFLICT (sport, alias) DO NOTHING"
		if query != wantQuery {
			t.Fatalf("unexpected query:\n got=%s\nwant=%s", query, wantQuery)
		}
		if len(args) != 6 {
			t.Fatalf("unexpected arg count: %d", len(args))
		}
	})

	t.Run("row arity mismatch", func(t *testing.T) {
		_, _, err := InsertInto("team_aliases").
			Columns("sport", "alias", "team_id").
			Values("basketball", "la lakers").
			ToSQL()
		if err == nil {
			t.Fatal("expected error for short row")
		}
	})

	t.Run("missing values", func(t *testing.T) {
		if _, _, err := InsertInto("games").Columns("id").ToSQL(); err == nil {
			t.Fatal("expected error for missing values")
		}
	})
}

func TestUpdateBuilder_ToSQL(t *testing.T) {
	t.Run("set and set expr", func(t *testing.T) {
		lockedAt := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

		query, args, err := Update("games").
			Set("locked_at", lockedAt).
			SetExpr("updated_at", "GREATEST(updated_at, ?)", lockedAt).
			Where(Eq("id", "g-1"), IsNull("locked_at")).
			ToSQL()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		wantQuery := "UPDATE games SET locked_at = $1, updated_at = GREATEST(updated_at, $2)" +
			" WHERE id = $3 AND locked_at IS NULL"
		if query != wantQuery {
			t.Fatalf("unexpected query:\n got=%s\nwant=%s", query, wantQuery)
		}
		wantArgs := []any{lockedAt, lockedAt, "g-1"}
		if !reflect.DeepEqual(args, wantArgs) {
			t.Fatalf("unexpected args: got=%v want=%v", args, wantArgs)
		}
	})

	t.Run("missing sets", func(t *testing.T) {
		if _, _, err := Update("games").Where(Eq("id", "g-1")).ToSQL(); err == nil {
			t.Fatal("expected error for missing sets")
		}
	})
}

func TestInsertModel(t *testing.T) {
	type aliasRow struct {
		Sport  string `db:"sport"`
		Alias  string `db:"alias"`
		TeamID string `db:"team_id"`
		note   string `db:"note"`
		Skip   string `db:"-"`
	}

	t.Run("tagged exported fields only", func(t *testing.T) {
		query, args, err := InsertModel("team_aliases", aliasRow{
			Sport:  "basketball",
			Alias:  "la lakers",
			TeamID: "nba-lal",
		}, "ON CONFLICT (sport, alias) DO UPDATE SET team_id = EXCLUDED.team_id")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		wantQuery := "INSERT INTO team_aliases (sport, alias, team_id) VALUES ($1, $2, $3)" +
			" ON CONFLICT (sport, alias) DO UPDATE SET team_id = EXCLUDED.team_id"
		if query != wantQuery {
			t.Fatalf("unexpected query:\n got=%s\nwant=%s", query, wantQuery)
		}
		wantArgs := []any{"basketball", "la lakers", "nba-lal"}
		if !reflect.DeepEqual(args, wantArgs) {
			t.Fatalf("unexpected args: got=%v want=%v", args, wantArgs)
		}
	})

	t.Run("pointer model", func(t *testing.T) {
		query, _, err := InsertModel("team_aliases", &aliasRow{
			Sport:  "basketball",
			Alias:  "boston celtics",
			TeamID: "nba-bos",
		}, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if query != "INSERT INTO team_aliases (sport, alias, team_id) VALUES ($1, $2, $3)" {
			t.Fatalf("unexpected query: %s", query)
		}
	})

	t.Run("nil model", func(t *testing.T) {
		if _, _, err := InsertModel("team_aliases", (*aliasRow)(nil), ""); err == nil {
			t.Fatal("expected error for nil model")
		}
	})

	t.Run("no db columns", func(t *testing.T) {
		type bare struct {
			ID string
		}
		if _, _, err := InsertModel("games", bare{ID: "g-1"}, ""); err == nil {
			t.Fatal("expected error for untagged model")
		}
	})
}
