package postgres

import (
	"time"

	"github.com/oddsmux/lineledger/internal/domain/game"
)

type gameTableModel struct {
	ID          string     `db:"id"`
	Sport       string     `db:"sport"`
	HomeTeamID  string     `db:"home_team_id"`
	AwayTeamID  string     `db:"away_team_id"`
	ScheduledAt time.Time  `db:"scheduled_at"`
	Status      string     `db:"status"`
	HomeScore   *int       `db:"home_score"`
	AwayScore   *int       `db:"away_score"`
	LockedAt    *time.Time `db:"locked_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

func (m gameTableModel) toDomain() game.Game {
	return game.Game{
		ID:          m.ID,
		Sport:       m.Sport,
		HomeTeamID:  m.HomeTeamID,
		AwayTeamID:  m.AwayTeamID,
		ScheduledAt: m.ScheduledAt,
		Status:      m.Status,
		HomeScore:   m.HomeScore,
		AwayScore:   m.AwayScore,
		LockedAt:    m.LockedAt,
	}
}

type externalRefTableModel struct {
	Provider   string `db:"provider"`
	ExternalID string `db:"external_id"`
	GameID     string `db:"game_id"`
}

type teamAliasTableModel struct {
	Sport  string `db:"sport"`
	Alias  string `db:"alias"`
	TeamID string `db:"team_id"`
}
