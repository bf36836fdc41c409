package archive

import (
	"time"

	"github.com/shopspring/decimal"
)

// Outcome values for a graded market.
const (
	OutcomeHomeCovered = "HOME_COVERED"
	OutcomeAwayCovered = "AWAY_COVERED"
	OutcomeWentOver    = "WENT_OVER"
	OutcomeWentUnder   = "WENT_UNDER"
	OutcomeHomeWin     = "HOME_WIN"
	OutcomeAwayWin     = "AWAY_WIN"
	OutcomePush        = "PUSH"
	OutcomeUngraded    = "UNGRADED"
)

// HistoricalRecord is the immutable archival row for one (game, market)
// produced when a finished game transitions out of the active store.
type HistoricalRecord struct {
	ID             string          `db:"id" json:"id"`
	GameID         string          `db:"game_id" json:"gameId"`
	Sport          string          `db:"sport" json:"sport"`
	Market         string          `db:"market" json:"market"`
	OpeningValue   decimal.Decimal `db:"opening_value" json:"openingValue"`
	ClosingValue   decimal.Decimal `db:"closing_value" json:"closingValue"`
	Movement       decimal.Decimal `db:"movement" json:"movement"`
	Outcome        string          `db:"outcome" json:"outcome"`
	HomeScore      int             `db:"home_score" json:"homeScore"`
	AwayScore      int             `db:"away_score" json:"awayScore"`
	BookmakerCount int             `db:"bookmaker_count" json:"bookmakerCount"`
	SnapshotCount  int             `db:"snapshot_count" json:"snapshotCount"`
	ArchivedAt     time.Time       `db:"archived_at" json:"archivedAt"`
}
