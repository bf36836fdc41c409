package postgres

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/oddsmux/lineledger/internal/domain/snapshot"
)

type snapshotTableModel struct {
	GameID     string          `db:"game_id"`
	Market     string          `db:"market"`
	Bookmaker  string          `db:"bookmaker"`
	ObservedAt time.Time       `db:"observed_at"`
	Value      decimal.Decimal `db:"value"`
	PriceHome  int             `db:"price_home"`
	PriceAway  int             `db:"price_away"`
}

func snapshotToModel(item snapshot.Snapshot) snapshotTableModel {
	return snapshotTableModel{
		GameID:     item.GameID,
		Market:     item.Market,
		Bookmaker:  item.Bookmaker,
		ObservedAt: item.ObservedAt,
		Value:      item.Value,
		PriceHome:  item.PriceHome,
		PriceAway:  item.PriceAway,
	}
}

func (m snapshotTableModel) toDomain() snapshot.Snapshot {
	return snapshot.Snapshot{
		GameID:     m.GameID,
		Market:     m.Market,
		Bookmaker:  m.Bookmaker,
		ObservedAt: m.ObservedAt,
		Value:      m.Value,
		PriceHome:  m.PriceHome,
		PriceAway:  m.PriceAway,
	}
}
