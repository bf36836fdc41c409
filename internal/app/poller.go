package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oddsmux/lineledger/external/oddsfeed"
	"github.com/oddsmux/lineledger/external/statsfeed"
	"github.com/oddsmux/lineledger/internal/config"
	"github.com/oddsmux/lineledger/internal/platform/resilience"
	"github.com/oddsmux/lineledger/internal/usecase"
)

// FeedPoller periodically pulls odds and results from the configured feed
// providers and pushes them through the ingest and results pipelines.
type FeedPoller struct {
	cfg        config.Config
	oddsClient *oddsfeed.Client
	statsCli   *statsfeed.Client
	ingest     *usecase.IngestService
	results    *usecase.ResultsService
	logger     *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewFeedPoller returns nil when no feed is enabled.
func NewFeedPoller(cfg config.Config, ingest *usecase.IngestService, results *usecase.ResultsService, logger *slog.Logger) *FeedPoller {
	if !cfg.OddsFeedEnabled && !cfg.StatsFeedEnabled {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &FeedPoller{
		cfg:     cfg,
		ingest:  ingest,
		results: results,
		logger:  logger,
	}

	if cfg.OddsFeedEnabled {
		p.oddsClient = oddsfeed.NewClient(oddsfeed.ClientConfig{
			BaseURL: cfg.OddsFeedBaseURL,
			Token:   cfg.OddsFeedToken,
			Timeout: cfg.OddsFeedTimeout,
			Retry: resilience.RetryConfig{
				MaxAttempts: cfg.OddsFeedMaxRetries,
				Backoff:     cfg.OddsFeedRetryBackoff,
			},
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.OddsFeedCircuitEnabled,
				FailureThreshold: cfg.OddsFeedCircuitFailureCount,
				OpenTimeout:      cfg.OddsFeedCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.OddsFeedCircuitHalfOpenMaxReq,
			},
		})
	}
	if cfg.StatsFeedEnabled {
		p.statsCli = statsfeed.NewClient(statsfeed.ClientConfig{
			BaseURL: cfg.StatsFeedBaseURL,
			Token:   cfg.StatsFeedToken,
			Timeout: cfg.StatsFeedTimeout,
			Retry: resilience.RetryConfig{
				MaxAttempts: cfg.StatsFeedMaxRetries,
				Backoff:     cfg.StatsFeedRetryBackoff,
			},
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.StatsFeedCircuitEnabled,
				FailureThreshold: cfg.StatsFeedCircuitFailureCount,
				OpenTimeout:      cfg.StatsFeedCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.StatsFeedCircuitHalfOpenMaxReq,
			},
		})
	}

	return p
}

func (p *FeedPoller) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	if p.oddsClient != nil {
		p.wg.Add(1)
		go p.run(ctx, "odds", p.cfg.OddsFeedPollInterval, p.pollOdds)
	}
	if p.statsCli != nil {
		p.wg.Add(1)
		go p.run(ctx, "results", p.cfg.StatsFeedPollInterval, p.pollResults)
	}
}

func (p *FeedPoller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *FeedPoller) run(ctx context.Context, name string, interval time.Duration, poll func(ctx context.Context, sport string)) {
	defer p.wg.Done()

	p.logger.Info("feed poller starting", "feed", name, "interval", interval.String(), "sports", p.cfg.FeedSports)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("feed poller stopped", "feed", name)
			return
		case <-ticker.C:
			for _, sport := range p.cfg.FeedSports {
				poll(ctx, sport)
				if ctx.Err() != nil {
					return
				}
			}
		}
	}
}

func (p *FeedPoller) pollOdds(ctx context.Context, sport string) {
	events, err := p.oddsClient.FetchOdds(ctx, sport)
	if err != nil {
		p.logger.ErrorContext(ctx, "poll odds failed", "sport", sport, "error", err)
		return
	}
	if len(events) == 0 {
		return
	}

	result, err := p.ingest.IngestOdds(ctx, usecase.IngestInput{
		Provider: p.oddsClient.Provider(),
		Events:   events,
	})
	if err != nil {
		p.logger.ErrorContext(ctx, "ingest polled odds failed", "sport", sport, "error", err)
		return
	}

	p.logger.InfoContext(ctx, "polled odds ingested",
		"sport", sport,
		"event_count", result.EventCount,
		"success_count", result.SuccessCount,
		"stale_count", result.StaleCount,
		"unmatched_count", result.UnmatchedCount,
		"failed_count", result.FailedCount,
	)
}

func (p *FeedPoller) pollResults(ctx context.Context, sport string) {
	events, err := p.statsCli.FetchResults(ctx, sport)
	if err != nil {
		p.logger.ErrorContext(ctx, "poll results failed", "sport", sport, "error", err)
		return
	}
	if len(events) == 0 {
		return
	}

	outcome, err := p.results.ApplyBatch(ctx, events)
	if err != nil {
		p.logger.ErrorContext(ctx, "apply polled results failed", "sport", sport, "error", err)
		return
	}

	p.logger.InfoContext(ctx, "polled results applied",
		"sport", sport,
		"event_count", outcome.EventCount,
		"applied_count", outcome.AppliedCount,
		"failed_count", outcome.FailedCount,
	)
}
