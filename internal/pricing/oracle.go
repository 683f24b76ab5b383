// Package pricing fetches the ETH/USD spot price used only for display
// conversion. Availability wins over accuracy here: a caller never blocks on
// or errors from a price lookup.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/paxr/paxr-gateway/internal/domain"
	"github.com/paxr/paxr-gateway/shared/logging"
	"github.com/paxr/paxr-gateway/shared/metrics"
	"github.com/paxr/paxr-gateway/shared/resilience"
)

// Source is one candidate price endpoint with its response parser
type Source struct {
	Name   string
	URL    string
	Method string // defaults to GET
	Body   string // request body for POST sources
	Parse  func(body []byte) (float64, error)
}

// Client tries sources in priority order and falls back to a constant
type Client struct {
	httpClient *http.Client
	sources    []Source
	fallback   float64
	attempts   int
	retryDelay time.Duration
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// ClientConfig holds oracle settings
type ClientConfig struct {
	Sources        []Source
	FallbackUSD    float64
	SourceAttempts int
	RetryDelay     time.Duration
	HTTPTimeout    time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithMetrics attaches fetch instrumentation
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithHTTPClient overrides the transport, for tests
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a price oracle client
func NewClient(cfg ClientConfig, logger *logging.Logger, opts ...Option) *Client {
	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	attempts := cfg.SourceAttempts
	if attempts <= 0 {
		attempts = 2
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 500 * time.Millisecond
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		sources:    cfg.Sources,
		fallback:   cfg.FallbackUSD,
		attempts:   attempts,
		retryDelay: retryDelay,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SpotPrice returns the current ETH/USD quote. Sources are tried in fixed
// order with bounded linear-backoff retries; the first parseable success wins
// and later sources are not queried. When every source fails the hardcoded
// fallback is returned, flagged as such, rather than an error.
func (c *Client) SpotPrice(ctx context.Context) domain.Quote {
	for _, source := range c.sources {
		var price float64
		err := resilience.RetryWithBackoffStrategy(ctx, c.attempts, resilience.LinearBackoff(c.retryDelay), func(ctx context.Context) error {
			v, err := c.fetch(ctx, source)
			if err != nil {
				return err
			}
			price = v
			return nil
		})
		if err == nil {
			c.count(source.Name, "ok")
			if c.metrics != nil {
				c.metrics.PriceQuoteUSD.Set(price)
			}
			return domain.Quote{ETH: price, USDC: 1, UpdatedAt: time.Now()}
		}
		c.count(source.Name, "error")
		c.logger.WithError(err).WithField("source", source.Name).Warn("price source failed")
	}

	return domain.Quote{ETH: c.fallback, USDC: 1, UpdatedAt: time.Now(), Fallback: true}
}

func (c *Client) fetch(ctx context.Context, source Source) (float64, error) {
	method := source.Method
	if method == "" {
		method = http.MethodGet
	}

	var reqBody io.Reader
	if source.Body != "" {
		reqBody = strings.NewReader(source.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, source.URL, reqBody)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return 0, fmt.Errorf("%s: unexpected status %s", source.Name, res.Status)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return 0, err
	}

	price, err := source.Parse(body)
	if err != nil {
		return 0, fmt.Errorf("%s: parse response: %w", source.Name, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("%s: non-positive price %f", source.Name, price)
	}
	return price, nil
}

func (c *Client) count(source, outcome string) {
	if c.metrics != nil {
		c.metrics.PriceFetchesTotal.WithLabelValues(source, outcome).Inc()
	}
}

// ChainlinkFeedSource parses the Chainlink data-feed API shape, an 8-decimal
// fixed-point value nested under data[0].price.round.value.
func ChainlinkFeedSource(url string) Source {
	return Source{
		Name: "chainlink-feed",
		URL:  url,
		Parse: func(body []byte) (float64, error) {
			var payload struct {
				Data []struct {
					Price struct {
						Round struct {
							Value json.Number `json:"value"`
						} `json:"round"`
					} `json:"price"`
				} `json:"data"`
			}
			if err := json.Unmarshal(body, &payload); err != nil {
				return 0, err
			}
			if len(payload.Data) == 0 {
				return 0, fmt.Errorf("empty data array")
			}
			raw, err := payload.Data[0].Price.Round.Value.Float64()
			if err != nil {
				return 0, err
			}
			return raw / 1e8, nil
		},
	}
}

// Chainlink ETH/USD aggregator on mainnet; latestAnswer() selector
const (
	ethUSDAggregator     = "0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419"
	latestAnswerSelector = "0x50d25bcd"
)

// RPCHexSource calls latestAnswer on the Chainlink ETH/USD aggregator through
// a JSON-RPC endpoint and parses the hex result, again 8-decimal fixed point.
func RPCHexSource(url string) Source {
	return Source{
		Name:   "rpc-latest-answer",
		URL:    url,
		Method: http.MethodPost,
		Body: fmt.Sprintf(
			`{"jsonrpc":"2.0","id":1,"method":"eth_call","params":[{"to":%q,"data":%q},"latest"]}`,
			ethUSDAggregator, latestAnswerSelector),
		Parse: func(body []byte) (float64, error) {
			var payload struct {
				Result string `json:"result"`
			}
			if err := json.Unmarshal(body, &payload); err != nil {
				return 0, err
			}
			raw := strings.TrimPrefix(payload.Result, "0x")
			if raw == "" {
				return 0, fmt.Errorf("empty result")
			}
			answer, err := strconv.ParseUint(raw, 16, 64)
			if err != nil {
				return 0, err
			}
			return float64(answer) / 1e8, nil
		},
	}
}
