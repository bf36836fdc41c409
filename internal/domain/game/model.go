package game

import (
	"strings"
	"time"
)

const (
	StatusScheduled = "SCHEDULED"
	StatusLive      = "LIVE"
	StatusFinal     = "FINAL"
)

// Game is the canonical event entity. Every provider-specific id maps onto
// exactly one Game through ExternalRef rows.
type Game struct {
	ID          string
	Sport       string
	HomeTeamID  string
	AwayTeamID  string
	ScheduledAt time.Time
	Status      string
	HomeScore   *int
	AwayScore   *int
	LockedAt    *time.Time
}

// ExternalRef is one provider's id for a canonical game.
type ExternalRef struct {
	Provider   string
	ExternalID string
	GameID     string
}

func NormalizeStatus(value string) string {
	status := strings.ToUpper(strings.TrimSpace(value))
	if status == "" {
		return StatusScheduled
	}
	return status
}

func IsLiveStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusLive, "IN_PROGRESS", "INPLAY", "HALFTIME":
		return true
	default:
		return false
	}
}

func IsFinalStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusFinal, "FINISHED", "COMPLETE", "COMPLETED", "FT":
		return true
	default:
		return false
	}
}

// Locked reports whether the game has passed its lock point, after which
// closing lines are frozen.
func (g Game) Locked() bool {
	return g.LockedAt != nil && !g.LockedAt.IsZero()
}

// HasFinalScore reports whether both scores are present for outcome grading.
func (g Game) HasFinalScore() bool {
	return g.HomeScore != nil && g.AwayScore != nil
}

// NormalizeTeamKey collapses team names and abbreviations into a comparable
// key: lowercase, no punctuation, single spaces.
func NormalizeTeamKey(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
