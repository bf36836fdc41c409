package unresolved

import "time"

// Event is an identity-resolution failure parked for later reconciliation.
// Reason distinguishes no-candidate misses from ambiguous multi-candidate
// matches; the raw payload keeps enough context to retry the resolution.
type Event struct {
	ID         string    `db:"id" json:"id"`
	Provider   string    `db:"provider" json:"provider"`
	ExternalID string    `db:"external_id" json:"externalId"`
	Sport      string    `db:"sport" json:"sport"`
	HomeTeam   string    `db:"home_team" json:"homeTeam"`
	AwayTeam   string    `db:"away_team" json:"awayTeam"`
	StartsAt   time.Time `db:"starts_at" json:"startsAt"`
	Reason     string    `db:"reason" json:"reason"`
	Payload    []byte    `db:"payload" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	Attempts   int       `db:"attempts" json:"attempts"`
}

const (
	ReasonNoMatch   = "NO_MATCH"
	ReasonAmbiguous = "AMBIGUOUS"
)
