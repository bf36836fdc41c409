package postgres

import (
	"time"

	"github.com/oddsmux/lineledger/internal/domain/unresolved"
)

type unresolvedEventTableModel struct {
	ID         string    `db:"id"`
	Provider   string    `db:"provider"`
	ExternalID string    `db:"external_id"`
	Sport      string    `db:"sport"`
	HomeTeam   string    `db:"home_team"`
	AwayTeam   string    `db:"away_team"`
	StartsAt   time.Time `db:"starts_at"`
	Reason     string    `db:"reason"`
	Payload    []byte    `db:"payload"`
	CreatedAt  time.Time `db:"created_at"`
	Attempts   int       `db:"attempts"`
}

func unresolvedToModel(item *unresolved.Event) unresolvedEventTableModel {
	return unresolvedEventTableModel(*item)
}

func (m unresolvedEventTableModel) toDomain() unresolved.Event {
	return unresolved.Event(m)
}
