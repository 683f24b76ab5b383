package pricing

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/paxr/paxr-gateway/internal/domain"
	"github.com/paxr/paxr-gateway/shared/logging"
	"github.com/paxr/paxr-gateway/shared/redis"
)

// Refresher keeps a periodically refreshed quote available to concurrent
// readers. A refresh that lands on the fallback does not overwrite a real
// quote already held; stale real data beats the hardcoded constant.
type Refresher struct {
	client   *Client
	interval time.Duration
	cache    *redis.Redis
	cacheTTL time.Duration
	logger   *logging.Logger

	mu    sync.RWMutex
	quote domain.Quote

	done chan struct{}
}

// RefresherOption configures a Refresher
type RefresherOption func(*Refresher)

// WithCache enables redis write-through of refreshed quotes
func WithCache(cache *redis.Redis, ttl time.Duration) RefresherOption {
	return func(r *Refresher) {
		r.cache = cache
		r.cacheTTL = ttl
	}
}

// NewRefresher creates a refresher around the given oracle client. The quote
// is seeded with the fallback constant so readers see a usable value before
// the first refresh lands.
func NewRefresher(client *Client, interval time.Duration, logger *logging.Logger, opts ...RefresherOption) *Refresher {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	r := &Refresher{
		client:   client,
		interval: interval,
		logger:   logger,
		quote:    domain.Quote{ETH: client.fallback, USDC: 1, UpdatedAt: time.Now(), Fallback: true},
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start performs an immediate refresh and then refreshes on the interval
// until the context is cancelled. It blocks; run it in a goroutine.
func (r *Refresher) Start(ctx context.Context) {
	defer close(r.done)

	r.refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

// Done is closed once Start has returned
func (r *Refresher) Done() <-chan struct{} { return r.done }

// Quote returns the most recent quote; the fallback seed until the first
// successful refresh
func (r *Refresher) Quote() domain.Quote {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.quote
}

func (r *Refresher) refresh(ctx context.Context) {
	q := r.client.SpotPrice(ctx)

	r.mu.Lock()
	if q.Fallback && !r.quote.Fallback {
		// keep the last real value
		r.mu.Unlock()
		r.logger.Warn("price refresh fell back, retaining previous quote")
		return
	}
	r.quote = q
	r.mu.Unlock()

	r.logger.WithFields(map[string]interface{}{
		"eth_usd":  q.ETH,
		"fallback": q.Fallback,
	}).Debug("price refreshed")

	if r.cache != nil && !q.Fallback {
		payload, err := json.Marshal(q)
		if err != nil {
			return
		}
		if err := r.cache.SetWithExpiration(ctx, redis.SpotPriceKey("eth-usd"), string(payload), r.cacheTTL); err != nil {
			r.logger.WithError(err).Warn("failed to cache price quote")
		}
	}
}
