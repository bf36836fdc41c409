// Package statsfeed pulls final scores and status transitions from the
// upstream stats provider.
package statsfeed

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/oddsmux/lineledger/internal/platform/logging"
	"github.com/oddsmux/lineledger/internal/platform/resilience"
	"github.com/oddsmux/lineledger/internal/usecase"
)

const (
	defaultTimeout  = 10 * time.Second
	maxResponseSize = 6 << 20
)

var errStatsFeedTransient = crerr.New("stats feed transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Token          string
	Provider       string
	Timeout        time.Duration
	Retry          resilience.RetryConfig
	CircuitBreaker resilience.CircuitBreakerConfig
	Logger         *logging.Logger
}

type Client struct {
	httpClient     *http.Client
	baseURL        string
	token          string
	provider       string
	retryCfg       resilience.RetryConfig
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultTimeout
	}

	provider := strings.TrimSpace(cfg.Provider)
	if provider == "" {
		provider = "statsfeed"
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		token:          strings.TrimSpace(cfg.Token),
		provider:       provider,
		retryCfg:       resilience.NormalizeRetryConfig(cfg.Retry),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

// Provider reports the provider name used for identity resolution.
func (c *Client) Provider() string {
	return c.provider
}

type resultEventPayload struct {
	ID        string `json:"id"`
	Sport     string `json:"sport"`
	HomeTeam  string `json:"home_team"`
	AwayTeam  string `json:"away_team"`
	StartsAt  string `json:"starts_at"`
	Status    string `json:"status"`
	HomeScore *int   `json:"home_score"`
	AwayScore *int   `json:"away_score"`
}

type resultsEnvelope struct {
	Events []resultEventPayload `json:"events"`
}

// FetchResults returns the provider's recent status and score updates for
// one sport.
func (c *Client) FetchResults(ctx context.Context, sport string) ([]usecase.ResultEvent, error) {
	sport = strings.ToLower(strings.TrimSpace(sport))
	if sport == "" {
		return nil, fmt.Errorf("%w: sport is required", usecase.ErrInvalidInput)
	}

	var envelope resultsEnvelope
	if err := c.doJSON(ctx, "/v2/results", map[string]string{"sport": sport}, &envelope); err != nil {
		return nil, fmt.Errorf("fetch results sport=%s: %w", sport, err)
	}

	out := make([]usecase.ResultEvent, 0, len(envelope.Events))
	for _, item := range envelope.Events {
		event, err := mapResultEvent(c.provider, item)
		if err != nil {
			c.logger.WarnContext(ctx, "skip malformed result event", "external_id", item.ID, "error", err)
			continue
		}
		out = append(out, event)
	}

	return out, nil
}

func mapResultEvent(provider string, item resultEventPayload) (usecase.ResultEvent, error) {
	if strings.TrimSpace(item.ID) == "" {
		return usecase.ResultEvent{}, crerr.New("event id is empty")
	}
	if strings.TrimSpace(item.Status) == "" {
		return usecase.ResultEvent{}, crerr.New("event status is empty")
	}
	startsAt, err := time.Parse(time.RFC3339, item.StartsAt)
	if err != nil {
		return usecase.ResultEvent{}, crerr.Wrapf(err, "parse starts_at %q", item.StartsAt)
	}

	return usecase.ResultEvent{
		Provider:   provider,
		ExternalID: strings.TrimSpace(item.ID),
		Sport:      strings.ToLower(strings.TrimSpace(item.Sport)),
		HomeTeam:   strings.TrimSpace(item.HomeTeam),
		AwayTeam:   strings.TrimSpace(item.AwayTeam),
		StartsAt:   startsAt.UTC(),
		Status:     item.Status,
		HomeScore:  item.HomeScore,
		AwayScore:  item.AwayScore,
	}, nil
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "stats feed circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: stats provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}

	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	key := path + "?" + values.Encode()
	out, err, _ := c.flight.Do(key, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && stderrors.Is(reqErr, errStatsFeedTransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode provider payload: %w", err)
	}

	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var raw []byte
	err := resilience.Retry(ctx, c.retryCfg, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return resilience.Permanent(crerr.Wrap(err, "build request"))
		}
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: send request: %v", errStatsFeedTransient, err)
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		if err != nil {
			return fmt.Errorf("%w: read response body: %v", errStatsFeedTransient, err)
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			raw = body
			return nil
		}
		if isRetryableStatus(resp.StatusCode) {
			return fmt.Errorf("%w: provider status=%d body=%s", errStatsFeedTransient, resp.StatusCode, abbreviateBody(body))
		}
		return resilience.Permanent(fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(body)))
	})
	if err != nil {
		c.logger.WarnContext(ctx, "stats feed request failed", "url", fullURL, "error", err)
		return nil, err
	}

	return raw, nil
}

func isRetryableStatus(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= http.StatusInternalServerError
}

func abbreviateBody(raw []byte) string {
	const max = 512
	body := strings.TrimSpace(string(raw))
	if len(body) <= max {
		return body
	}
	return body[:max] + "...(truncated)"
}
