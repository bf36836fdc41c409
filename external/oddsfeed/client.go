// Package oddsfeed pulls bookmaker odds batches from the upstream odds
// provider and maps them onto ingest events.
package oddsfeed

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
	"github.com/shopspring/decimal"
	"github.com/valyala/bytebufferpool"

	"github.com/oddsmux/lineledger/internal/platform/logging"
	"github.com/oddsmux/lineledger/internal/platform/resilience"
	"github.com/oddsmux/lineledger/internal/usecase"
)

const (
	defaultTimeout  = 10 * time.Second
	maxResponseSize = 6 << 20
)

var errOddsFeedTransient = crerr.New("odds feed transient failure")

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
		provider = "oddsfeed"
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

type oddsLinePayload struct {
	Market     string `json:"market"`
	Bookmaker  string `json:"bookmaker"`
	ObservedAt string `json:"observed_at"`
	Value      string `json:"value"`
	PriceHome  int    `json:"price_home"`
	PriceAway  int    `json:"price_away"`
}

type oddsEventPayload struct {
	ID       string            `json:"id"`
	Sport    string            `json:"sport"`
	HomeTeam string            `json:"home_team"`
	AwayTeam string            `json:"away_team"`
	StartsAt string            `json:"starts_at"`
	Lines    []oddsLinePayload `json:"lines"`
}

type oddsEnvelope struct {
	Events []oddsEventPayload `json:"events"`
}

// FetchOdds returns the provider's current odds events for one sport.
func (c *Client) FetchOdds(ctx context.Context, sport string) ([]usecase.OddsEvent, error) {
	sport = strings.ToLower(strings.TrimSpace(sport))
	if sport == "" {
		return nil, fmt.Errorf("%w: sport is required", usecase.ErrInvalidInput)
	}

	var envelope oddsEnvelope
	if err := c.doJSON(ctx, "/v4/odds", map[string]string{"sport": sport}, &envelope); err != nil {
		return nil, fmt.Errorf("fetch odds sport=%s: %w", sport, err)
	}

	out := make([]usecase.OddsEvent, 0, len(envelope.Events))
	for _, item := range envelope.Events {
		event, err := mapOddsEvent(item)
		if err != nil {
			c.logger.WarnContext(ctx, "skip malformed odds event", "external_id", item.ID, "error", err)
			continue
		}
		out = append(out, event)
	}

	return out, nil
}

func mapOddsEvent(item oddsEventPayload) (usecase.OddsEvent, error) {
	if strings.TrimSpace(item.ID) == "" {
		return usecase.OddsEvent{}, crerr.New("event id is empty")
	}
	startsAt, err := time.Parse(time.RFC3339, item.StartsAt)
	if err != nil {
		return usecase.OddsEvent{}, crerr.Wrapf(err, "parse starts_at %q", item.StartsAt)
	}

	lines := make([]usecase.OddsLine, 0, len(item.Lines))
	for _, line := range item.Lines {
		observedAt, err := time.Parse(time.RFC3339, line.ObservedAt)
		if err != nil {
			return usecase.OddsEvent{}, crerr.Wrapf(err, "parse observed_at %q", line.ObservedAt)
		}
		value := decimal.Zero
		if strings.TrimSpace(line.Value) != "" {
			value, err = decimal.NewFromString(strings.TrimSpace(line.Value))
			if err != nil {
				return usecase.OddsEvent{}, crerr.Wrapf(err, "parse line value %q", line.Value)
			}
		}
		lines = append(lines, usecase.OddsLine{
			Market:     line.Market,
			Bookmaker:  line.Bookmaker,
			ObservedAt: observedAt.UTC(),
			Value:      value,
			PriceHome:  line.PriceHome,
			PriceAway:  line.PriceAway,
		})
	}

	return usecase.OddsEvent{
		ExternalID: strings.TrimSpace(item.ID),
		Sport:      strings.ToLower(strings.TrimSpace(item.Sport)),
		HomeTeam:   strings.TrimSpace(item.HomeTeam),
		AwayTeam:   strings.TrimSpace(item.AwayTeam),
		StartsAt:   startsAt.UTC(),
		Lines:      lines,
	}, nil
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "odds feed circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: odds provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
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
			if reqErr != nil && stderrors.Is(reqErr, errOddsFeedTransient) {
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
			return fmt.Errorf("%w: send request: %v", errOddsFeedTransient, err)
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		if err != nil {
			return fmt.Errorf("%w: read response body: %v", errOddsFeedTransient, err)
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			raw = body
			return nil
		}
		if isRetryableStatus(resp.StatusCode) {
			return fmt.Errorf("%w: provider status=%d body=%s", errOddsFeedTransient, resp.StatusCode, abbreviateBody(body))
		}
		return resilience.Permanent(fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(body)))
	})
	if err != nil {
		c.logger.WarnContext(ctx, "odds feed request failed",
			"curl_preview", buildCurlPreview(fullURL, c.token != ""),
			"error", err,
		)
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

func buildCurlPreview(fullURL string, withToken bool) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString("curl ")
	_, _ = buf.WriteString(shellQuote(fullURL))
	_, _ = buf.WriteString(" -H 'Accept: application/json'")
	if withToken {
		_, _ = buf.WriteString(" -H 'Authorization: Bearer ***'")
	}

	return buf.String()
}

func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "'\"'\"'") + "'"
}
