// Package chain implements the read-only aggregation layer over the deployed
// ticketing contracts. Every record it returns is a read-through projection:
// correct as of the last successful call and stale immediately after.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"

	"github.com/paxr/paxr-gateway/internal/contracts"
	"github.com/paxr/paxr-gateway/internal/domain"
	"github.com/paxr/paxr-gateway/shared/logging"
	"github.com/paxr/paxr-gateway/shared/metrics"
	"github.com/paxr/paxr-gateway/shared/redis"
)

// ContractCaller is the read primitive the aggregator needs from an RPC client.
// *ethclient.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Cache stores immutable lookup results between replicas. *redis.Redis
// satisfies it.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	SetWithExpiration(ctx context.Context, key, value string, expiration time.Duration) error
}

// Reader aggregates view-function reads into domain records
type Reader struct {
	caller   ContractCaller
	registry *contracts.Registry
	limiter  *rate.Limiter
	cache    Cache
	cacheTTL time.Duration
	logger   *logging.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option configures a Reader
type Option func(*Reader)

// WithRateLimit throttles outgoing view calls
func WithRateLimit(perSecond float64, burst int) Option {
	return func(r *Reader) {
		r.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithMetrics attaches read instrumentation
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reader) { r.metrics = m }
}

// WithCache enables read-through caching of token URIs, which never change
// once minted
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(r *Reader) {
		r.cache = cache
		r.cacheTTL = ttl
	}
}

// WithClock overrides the wall clock, for tests
func WithClock(now func() time.Time) Option {
	return func(r *Reader) { r.now = now }
}

// NewReader creates a reader over an existing caller
func NewReader(caller ContractCaller, registry *contracts.Registry, logger *logging.Logger, opts ...Option) *Reader {
	r := &Reader{
		caller:   caller,
		registry: registry,
		limiter:  rate.NewLimiter(rate.Inf, 1),
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dial connects to the RPC endpoint and returns a reader over it
func Dial(ctx context.Context, rpcURL string, registry *contracts.Registry, logger *logging.Logger, opts ...Option) (*Reader, *ethclient.Client, error) {
	if rpcURL == "" {
		return nil, nil, fmt.Errorf("RPC URL cannot be empty")
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial RPC %s: %w", rpcURL, err)
	}
	return NewReader(client, registry, logger, opts...), client, nil
}

// call packs one view call, sends it and unpacks the positional outputs
func (r *Reader) call(ctx context.Context, contract string, a abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	data, err := a.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	started := time.Now()
	raw, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if r.metrics != nil {
		r.metrics.ObserveContractRead(contract, method, err, started)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: call %s.%s: %v", domain.ErrRPCUnreachable, contract, method, err)
	}

	out, err := a.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s.%s: %w", contract, method, err)
	}
	return out, nil
}

// EventCount returns the total number of events ever created
func (r *Reader) EventCount(ctx context.Context) (uint64, error) {
	out, err := r.call(ctx, "event", r.registry.EventABI, r.registry.EventAddr, "eventCount")
	if err != nil {
		return 0, err
	}
	count, err := asBig(out, 0)
	if err != nil {
		return 0, err
	}
	return count.Uint64(), nil
}

// Event hydrates one event record. A nonexistent id and a failed per-item read
// both degrade to nil; only batch operations surface connectivity errors.
func (r *Reader) Event(ctx context.Context, eventID domain.EventID) *domain.EventRecord {
	id := new(big.Int).SetUint64(eventID)

	out, err := r.call(ctx, "event", r.registry.EventABI, r.registry.EventAddr, "eventExists", id)
	if err != nil {
		r.logger.WithError(err).WithField("event_id", eventID).Debug("event existence check failed")
		return nil
	}
	exists, err := asBool(out, 0)
	if err != nil || !exists {
		return nil
	}

	out, err = r.call(ctx, "event", r.registry.EventABI, r.registry.EventAddr, "events", id)
	if err != nil {
		r.logger.WithError(err).WithField("event_id", eventID).Debug("event read failed")
		return nil
	}

	rec, err := decodeEventRecord(eventID, out)
	if err != nil {
		r.logger.WithError(err).WithField("event_id", eventID).Warn("event record decode failed")
		return nil
	}
	return rec
}

// AllEvents enumerates ids 1..count in ascending order and collects every
// record that resolves. Ids whose read fails are skipped. The result is not an
// atomic snapshot; concurrent on-chain changes can produce a torn read.
func (r *Reader) AllEvents(ctx context.Context) ([]*domain.EventRecord, error) {
	count, err := r.EventCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("event count: %w", err)
	}

	events := make([]*domain.EventRecord, 0, count)
	for id := uint64(1); id <= count; id++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if rec := r.Event(ctx, id); rec != nil {
			events = append(events, rec)
		}
	}
	return events, nil
}

// ActiveEvents fetches all events once and filters to those currently on sale
func (r *Reader) ActiveEvents(ctx context.Context) ([]*domain.EventRecord, error) {
	all, err := r.AllEvents(ctx)
	if err != nil {
		return nil, err
	}
	return FilterActive(all, r.now()), nil
}

// FilterActive is the pure on-sale filter over an already-fetched set
func FilterActive(events []*domain.EventRecord, now time.Time) []*domain.EventRecord {
	active := make([]*domain.EventRecord, 0, len(events))
	for _, e := range events {
		if e.OnSaleAt(now) {
			active = append(active, e)
		}
	}
	return active
}

// TicketData hydrates one ticket record, nil on any read failure
func (r *Reader) TicketData(ctx context.Context, tokenID domain.TokenID) *domain.TicketRecord {
	out, err := r.call(ctx, "ticket", r.registry.TicketABI, r.registry.TicketAddr, "ticketData", new(big.Int).SetUint64(tokenID))
	if err != nil {
		r.logger.WithError(err).WithField("token_id", tokenID).Debug("ticket read failed")
		return nil
	}

	rec, err := decodeTicketRecord(tokenID, out)
	if err != nil {
		r.logger.WithError(err).WithField("token_id", tokenID).Warn("ticket record decode failed")
		return nil
	}
	if rec.EventID == 0 {
		// unminted token id resolves to the zero struct
		return nil
	}
	return rec
}

// UserTickets resolves the token ids held by owner, ascending by enumeration
// index. A zero balance yields an empty slice. Only the balance read itself
// propagates an error; failed index resolutions are skipped.
func (r *Reader) UserTickets(ctx context.Context, owner domain.Address) ([]domain.TokenID, error) {
	ownerAddr := common.HexToAddress(owner)

	out, err := r.call(ctx, "ticket", r.registry.TicketABI, r.registry.TicketAddr, "balanceOf", ownerAddr)
	if err != nil {
		return nil, fmt.Errorf("balance of %s: %w", owner, err)
	}
	balance, err := asBig(out, 0)
	if err != nil {
		return nil, err
	}

	tickets := make([]domain.TokenID, 0, balance.Uint64())
	for i := uint64(0); i < balance.Uint64(); i++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		out, err := r.call(ctx, "ticket", r.registry.TicketABI, r.registry.TicketAddr, "tokenOfOwnerByIndex", ownerAddr, new(big.Int).SetUint64(i))
		if err != nil {
			r.logger.WithError(err).WithFields(map[string]interface{}{
				"owner": owner,
				"index": i,
			}).Warn("token enumeration failed, skipping index")
			continue
		}
		tokenID, err := asBig(out, 0)
		if err != nil {
			continue
		}
		tickets = append(tickets, tokenID.Uint64())
	}
	return tickets, nil
}

// Listing hydrates one resale listing, nil when the token was never listed
func (r *Reader) Listing(ctx context.Context, tokenID domain.TokenID) *domain.ListingRecord {
	out, err := r.call(ctx, "marketplace", r.registry.MarketplaceABI, r.registry.MarketplaceAddr, "listings", new(big.Int).SetUint64(tokenID))
	if err != nil {
		r.logger.WithError(err).WithField("token_id", tokenID).Debug("listing read failed")
		return nil
	}

	rec, err := decodeListingRecord(out)
	if err != nil {
		r.logger.WithError(err).WithField("token_id", tokenID).Warn("listing decode failed")
		return nil
	}
	if rec.Seller == domain.ZeroAddress {
		// never-listed token ids resolve to the zero struct
		return nil
	}
	return rec
}

// TicketURI resolves the metadata URI for a token, empty string on any
// failure. With a cache attached the RPC read is skipped on a hit and
// successful reads are written back best-effort.
func (r *Reader) TicketURI(ctx context.Context, tokenID domain.TokenID) string {
	if r.cache != nil {
		if uri, err := r.cache.Get(ctx, redis.TicketURIKey(tokenID)); err == nil && uri != "" {
			return uri
		}
	}

	out, err := r.call(ctx, "ticket", r.registry.TicketABI, r.registry.TicketAddr, "tokenURI", new(big.Int).SetUint64(tokenID))
	if err != nil {
		r.logger.WithError(err).WithField("token_id", tokenID).Debug("token URI read failed")
		return ""
	}
	uri, err := asString(out, 0)
	if err != nil || uri == "" {
		return ""
	}

	if r.cache != nil {
		if err := r.cache.SetWithExpiration(ctx, redis.TicketURIKey(tokenID), uri, r.cacheTTL); err != nil {
			r.logger.WithError(err).WithField("token_id", tokenID).Debug("token URI cache write failed")
		}
	}
	return uri
}
