package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/oddsmux/lineledger/internal/config"
	"github.com/oddsmux/lineledger/internal/platform/resilience"
)

// openDB connects to Postgres with OpenTelemetry instrumentation. Startup
// races against the database container in most deploys, so the connect is
// retried before giving up.
func openDB(cfg config.Config, logger *slog.Logger) (*sqlx.DB, error) {
	var db *sqlx.DB

	retryCfg := resilience.RetryConfig{
		MaxAttempts: cfg.DBMaxRetries,
		Backoff:     cfg.DBRetryBackoff,
	}
	err := resilience.Retry(context.Background(), retryCfg, func() error {
		opened, err := otelsqlx.Connect("postgres", cfg.DBURL,
			otelsql.WithDBSystem("postgresql"),
			otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
			otelsql.WithQueryFormatter(formatDBQueryForTrace),
		)
		if err != nil {
			logger.Warn("database connect failed, retrying", "error", err)
			return err
		}
		db = opened
		return nil
	})
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	logger.Info("database connected", "db_name", dbNameFromURL(cfg.DBURL))

	return db, nil
}
