package snapshot

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MarketSpread     = "spread"
	MarketTotal      = "total"
	MarketMoneyline  = "moneyline"
	MarketPlayerProp = "player_prop"
)

// Snapshot is one immutable point-in-time observation of a bookmaker's line.
// Rows are append-only; values are stored exactly as received from the feed.
type Snapshot struct {
	GameID     string
	Market     string
	Bookmaker  string
	ObservedAt time.Time
	Value      decimal.Decimal
	PriceHome  int
	PriceAway  int
}

func NormalizeMarket(value string) string {
	market := strings.ToLower(strings.TrimSpace(value))
	switch market {
	case "spreads", "handicap":
		return MarketSpread
	case "totals", "over_under", "ou":
		return MarketTotal
	case "h2h", "ml":
		return MarketMoneyline
	case "player-prop", "props", "prop":
		return MarketPlayerProp
	default:
		return market
	}
}

func IsValidMarket(value string) bool {
	switch NormalizeMarket(value) {
	case MarketSpread, MarketTotal, MarketMoneyline, MarketPlayerProp:
		return true
	default:
		return false
	}
}

func NormalizeBookmaker(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
