package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/oddsmux/lineledger/internal/config"
	"github.com/oddsmux/lineledger/internal/domain/archive"
	"github.com/oddsmux/lineledger/internal/domain/game"
	"github.com/oddsmux/lineledger/internal/domain/linestate"
	"github.com/oddsmux/lineledger/internal/domain/snapshot"
	"github.com/oddsmux/lineledger/internal/domain/unresolved"
	repocache "github.com/oddsmux/lineledger/internal/infrastructure/repository/cache"
	"github.com/oddsmux/lineledger/internal/infrastructure/repository/memory"
	"github.com/oddsmux/lineledger/internal/infrastructure/repository/postgres"
	"github.com/oddsmux/lineledger/internal/interfaces/httpapi"
	basecache "github.com/oddsmux/lineledger/internal/platform/cache"
	idgen "github.com/oddsmux/lineledger/internal/platform/id"
	"github.com/oddsmux/lineledger/internal/usecase"
)

type repositories struct {
	games      game.Repository
	snapshots  snapshot.Repository
	states     linestate.Repository
	archives   archive.Repository
	unresolved unresolved.Repository
	closeDB    func() error
}

func buildRepositories(cfg config.Config, logger *slog.Logger) (repositories, error) {
	if cfg.DBURL == "" {
		logger.Info("using in-memory repositories", "reason", "DB_URL empty")
		gameRepo := memory.NewGameRepository(memory.SeedGames(time.Now().UTC()))
		memory.SeedTeamAliases(gameRepo)
		return repositories{
			games:      gameRepo,
			snapshots:  memory.NewSnapshotRepository(),
			states:     memory.NewLineStateRepository(),
			archives:   memory.NewArchiveRepository(),
			unresolved: memory.NewUnresolvedRepository(),
			closeDB:    func() error { return nil },
		}, nil
	}

	db, err := openDB(cfg, logger)
	if err != nil {
		return repositories{}, fmt.Errorf("open database: %w", err)
	}

	return repositories{
		games:      postgres.NewGameRepository(db),
		snapshots:  postgres.NewSnapshotRepository(db),
		states:     postgres.NewLineStateRepository(db),
		archives:   postgres.NewArchiveRepository(db),
		unresolved: postgres.NewUnresolvedRepository(db),
		closeDB:    db.Close,
	}, nil
}

func NewHTTPServer(cfg config.Config, logger *slog.Logger) (*http.Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	repos, err := buildRepositories(cfg, logger)
	if err != nil {
		return nil, err
	}

	if cfg.CacheEnabled {
		store := basecache.NewStore(cfg.CacheTTL)
		repos.games = repocache.NewGameRepository(repos.games, store)
		repos.states = repocache.NewLineStateRepository(repos.states, store)
		repos.archives = repocache.NewArchiveRepository(repos.archives, store)
	}

	generator := idgen.NewUUIDGenerator()

	identitySvc := usecase.NewIdentityService(repos.games, repos.unresolved, generator, usecase.IdentityConfig{
		StartTolerance:  cfg.IdentityStartTolerance,
		AmbiguityMargin: cfg.IdentityAmbiguityMargin,
	})
	lifecycleSvc := usecase.NewLifecycleService(repos.games, repos.snapshots, repos.states, usecase.LifecycleConfig{
		BookmakerPriority:  cfg.BookmakerPriority,
		StalenessThreshold: cfg.StalenessThreshold,
		LockSweepWorkers:   cfg.LockSweepWorkers,
	})
	snapshotSvc := usecase.NewSnapshotService(repos.games, repos.snapshots, lifecycleSvc)
	archiveSvc := usecase.NewArchiveService(
		repos.games,
		repos.snapshots,
		repos.states,
		repos.archives,
		generator,
		usecase.ArchiveConfig{MarketWorkers: cfg.ArchiveMarketWorkers},
	)
	ingestSvc := usecase.NewIngestService(identitySvc, snapshotSvc, usecase.IngestConfig{MaxWorkers: cfg.IngestMaxWorkers})
	resultsSvc := usecase.NewResultsService(identitySvc, repos.games, lifecycleSvc, archiveSvc)

	handler := httpapi.NewHandler(identitySvc, lifecycleSvc, archiveSvc, ingestSvc, resultsSvc, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	server.RegisterOnShutdown(func() {
		if err := repos.closeDB(); err != nil {
			logger.Error("close database", "error", err)
		}
	})

	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	poller := NewFeedPoller(cfg, ingestSvc, resultsSvc, logger)
	if poller != nil {
		poller.Start()
		server.RegisterOnShutdown(poller.Stop)
	}

	return server, nil
}
