package resilience

import (
	"context"
	"errors"
	"time"
)

type RetryConfig struct {
	MaxAttempts int
	Backoff     time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		Backoff:     200 * time.Millisecond,
	}
}

func NormalizeRetryConfig(cfg RetryConfig) RetryConfig {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = 0
	}
	return cfg
}

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }

func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err so Retry returns it without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// Retry runs fn up to MaxAttempts times with a linearly growing pause
// between attempts. The last error wins; a cancelled context or an error
// wrapped with Permanent stops the loop early.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	cfg = NormalizeRetryConfig(cfg)

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		var permanent permanentError
		if errors.As(lastErr, &permanent) {
			return permanent.err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		pause := time.Duration(attempt) * cfg.Backoff
		if pause <= 0 {
			continue
		}
		timer := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}
