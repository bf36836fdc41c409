package postgres

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/oddsmux/lineledger/internal/domain/linestate"
)

type lineStateTableModel struct {
	GameID            string              `db:"game_id"`
	Market            string              `db:"market"`
	OpeningValue      decimal.Decimal     `db:"opening_value"`
	OpeningPriceHome  int                 `db:"opening_price_home"`
	OpeningPriceAway  int                 `db:"opening_price_away"`
	OpeningBookmaker  string              `db:"opening_bookmaker"`
	OpeningObservedAt time.Time           `db:"opening_observed_at"`
	CurrentValue      decimal.Decimal     `db:"current_value"`
	CurrentPriceHome  int                 `db:"current_price_home"`
	CurrentPriceAway  int                 `db:"current_price_away"`
	CurrentBookmaker  string              `db:"current_bookmaker"`
	CurrentObservedAt time.Time           `db:"current_observed_at"`
	ClosingValue      decimal.NullDecimal `db:"closing_value"`
	ClosingPriceHome  *int                `db:"closing_price_home"`
	ClosingPriceAway  *int                `db:"closing_price_away"`
	ClosingBookmaker  *string             `db:"closing_bookmaker"`
	ClosingObservedAt *time.Time          `db:"closing_observed_at"`
	BookmakerCount    int                 `db:"bookmaker_count"`
	UpdatedAt         time.Time           `db:"updated_at"`
}

func lineStateToModel(state *linestate.LineState) lineStateTableModel {
	m := lineStateTableModel{
		GameID:            state.GameID,
		Market:            state.Market,
		OpeningValue:      state.Opening.Value,
		OpeningPriceHome:  state.Opening.PriceHome,
		OpeningPriceAway:  state.Opening.PriceAway,
		OpeningBookmaker:  state.Opening.Bookmaker,
		OpeningObservedAt: state.Opening.ObservedAt,
		CurrentValue:      state.Current.Value,
		CurrentPriceHome:  state.Current.PriceHome,
		CurrentPriceAway:  state.Current.PriceAway,
		CurrentBookmaker:  state.Current.Bookmaker,
		CurrentObservedAt: state.Current.ObservedAt,
		BookmakerCount:    state.BookmakerCount,
		UpdatedAt:         state.UpdatedAt,
	}
	if state.Closing != nil {
		closing := *state.Closing
		m.ClosingValue = decimal.NullDecimal{Decimal: closing.Value, Valid: true}
		m.ClosingPriceHome = &closing.PriceHome
		m.ClosingPriceAway = &closing.PriceAway
		m.ClosingBookmaker = &closing.Bookmaker
		m.ClosingObservedAt = &closing.ObservedAt
	}
	return m
}

func (m lineStateTableModel) toDomain() linestate.LineState {
	state := linestate.LineState{
		GameID: m.GameID,
		Market: m.Market,
		Opening: linestate.Point{
			Value:      m.OpeningValue,
			PriceHome:  m.OpeningPriceHome,
			PriceAway:  m.OpeningPriceAway,
			Bookmaker:  m.OpeningBookmaker,
			ObservedAt: m.OpeningObservedAt,
		},
		Current: linestate.Point{
			Value:      m.CurrentValue,
			PriceHome:  m.CurrentPriceHome,
			PriceAway:  m.CurrentPriceAway,
			Bookmaker:  m.CurrentBookmaker,
			ObservedAt: m.CurrentObservedAt,
		},
		BookmakerCount: m.BookmakerCount,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.ClosingValue.Valid && m.ClosingObservedAt != nil {
		closing := linestate.Point{
			Value:      m.ClosingValue.Decimal,
			ObservedAt: *m.ClosingObservedAt,
		}
		if m.ClosingPriceHome != nil {
			closing.PriceHome = *m.ClosingPriceHome
		}
		if m.ClosingPriceAway != nil {
			closing.PriceAway = *m.ClosingPriceAway
		}
		if m.ClosingBookmaker != nil {
			closing.Bookmaker = *m.ClosingBookmaker
		}
		state.Closing = &closing
	}
	return state
}
