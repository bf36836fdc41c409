package postgres

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/oddsmux/lineledger/internal/domain/archive"
)

type historicalRecordTableModel struct {
	ID             string          `db:"id"`
	GameID         string          `db:"game_id"`
	Sport          string          `db:"sport"`
	Market         string          `db:"market"`
	OpeningValue   decimal.Decimal `db:"opening_value"`
	ClosingValue   decimal.Decimal `db:"closing_value"`
	Movement       decimal.Decimal `db:"movement"`
	Outcome        string          `db:"outcome"`
	HomeScore      int             `db:"home_score"`
	AwayScore      int             `db:"away_score"`
	BookmakerCount int             `db:"bookmaker_count"`
	SnapshotCount  int             `db:"snapshot_count"`
	ArchivedAt     time.Time       `db:"archived_at"`
}

func historicalRecordToModel(record archive.HistoricalRecord) historicalRecordTableModel {
	return historicalRecordTableModel(record)
}

func (m historicalRecordTableModel) toDomain() archive.HistoricalRecord {
	return archive.HistoricalRecord(m)
}
