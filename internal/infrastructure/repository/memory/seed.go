package memory

import (
	"time"

	"github.com/oddsmux/lineledger/internal/domain/game"
)

const (
	GameIDLakersCeltics   = "nba-2026-01-15-lal-bos"
	GameIDKnicksHeat      = "nba-2026-01-15-nyk-mia"
	GameIDChiefsBills     = "nfl-2026-01-18-kc-buf"
	GameIDRaptorsWarriors = "nba-2026-01-16-tor-gsw"
)

func SeedGames(now time.Time) []game.Game {
	return []game.Game{
		{
			ID:          GameIDLakersCeltics,
			Sport:       "basketball",
			HomeTeamID:  "nba-lal",
			AwayTeamID:  "nba-bos",
			ScheduledAt: now.Add(26 * time.Hour),
			Status:      game.StatusScheduled,
		},
		{
			ID:          GameIDKnicksHeat,
			Sport:       "basketball",
			HomeTeamID:  "nba-nyk",
			AwayTeamID:  "nba-mia",
			ScheduledAt: now.Add(28 * time.Hour),
			Status:      game.StatusScheduled,
		},
		{
			ID:          GameIDRaptorsWarriors,
			Sport:       "basketball",
			HomeTeamID:  "nba-tor",
			AwayTeamID:  "nba-gsw",
			ScheduledAt: now.Add(50 * time.Hour),
			Status:      game.StatusScheduled,
		},
		{
			ID:          GameIDChiefsBills,
			Sport:       "football",
			HomeTeamID:  "nfl-kc",
			AwayTeamID:  "nfl-buf",
			ScheduledAt: now.Add(3 * 24 * time.Hour),
			Status:      game.StatusScheduled,
		},
	}
}

// SeedTeamAliases registers the provider spellings seen in dev feeds.
func SeedTeamAliases(repo *GameRepository) {
	aliases := []struct {
		sport  string
		alias  string
		teamID string
	}{
		{"basketball", "Los Angeles Lakers", "nba-lal"},
		{"basketball", "LA Lakers", "nba-lal"},
		{"basketball", "Boston Celtics", "nba-bos"},
		{"basketball", "New York Knicks", "nba-nyk"},
		{"basketball", "NY Knicks", "nba-nyk"},
		{"basketball", "Miami Heat", "nba-mia"},
		{"basketball", "Toronto Raptors", "nba-tor"},
		{"basketball", "Golden State Warriors", "nba-gsw"},
		{"football", "Kansas City Chiefs", "nfl-kc"},
		{"football", "Buffalo Bills", "nfl-buf"},
	}
	for _, a := range aliases {
		repo.RegisterTeamAlias(a.sport, a.alias, a.teamID)
	}
}
