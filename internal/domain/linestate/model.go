package linestate

import (
	"time"

	"github.com/shopspring/decimal"
)

// Point is a single derived observation inside a line state.
type Point struct {
	Value      decimal.Decimal `db:"value" json:"value"`
	PriceHome  int             `db:"price_home" json:"priceHome"`
	PriceAway  int             `db:"price_away" json:"priceAway"`
	Bookmaker  string          `db:"bookmaker" json:"bookmaker"`
	ObservedAt time.Time       `db:"observed_at" json:"observedAt"`
}

// LineState is the derived lifecycle view for one (game, market) pair.
// Opening and Current are recomputed from the snapshot log on every write;
// Closing is set once at lock time and never changes afterwards.
type LineState struct {
	GameID         string    `db:"game_id" json:"gameId"`
	Market         string    `db:"market" json:"market"`
	Opening        Point     `json:"opening"`
	Current        Point     `json:"current"`
	Closing        *Point    `json:"closing,omitempty"`
	BookmakerCount int       `db:"bookmaker_count" json:"bookmakerCount"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// Locked reports whether the closing point has been frozen.
func (s *LineState) Locked() bool {
	return s.Closing != nil
}

// Movement returns current minus opening value. For totals a positive
// movement means the number went up; for spreads it tracks the home side.
func (s *LineState) Movement() decimal.Decimal {
	return s.Current.Value.Sub(s.Opening.Value)
}
