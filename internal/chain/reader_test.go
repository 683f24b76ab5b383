package chain

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paxr/paxr-gateway/internal/contracts"
	"github.com/paxr/paxr-gateway/internal/domain"
	"github.com/paxr/paxr-gateway/shared/config"
	"github.com/paxr/paxr-gateway/shared/logging"
)

const (
	organizerAddr = "0x1111111111111111111111111111111111111111"
	buyerAddr     = "0x2222222222222222222222222222222222222222"
)

// callHandler answers one view method with output values or an error
type callHandler func(args []interface{}) ([]interface{}, error)

// stubCaller decodes calldata against the registry ABIs and dispatches to
// per-method handlers. Methods without a handler fail like an RPC outage.
type stubCaller struct {
	registry *contracts.Registry
	handlers map[string]callHandler
	calls    map[string]int
}

func newStubCaller(registry *contracts.Registry) *stubCaller {
	return &stubCaller{
		registry: registry,
		handlers: make(map[string]callHandler),
		calls:    make(map[string]int),
	}
}

func (c *stubCaller) on(method string, h callHandler) { c.handlers[method] = h }

func (c *stubCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	method := c.lookup(msg.Data[:4])
	if method == nil {
		return nil, errors.New("unknown method selector")
	}
	c.calls[method.Name]++

	handler, ok := c.handlers[method.Name]
	if !ok {
		return nil, errors.New("connection refused")
	}

	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}

	outs, err := handler(args)
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(outs...)
}

func (c *stubCaller) lookup(selector []byte) *abi.Method {
	for _, a := range []abi.ABI{c.registry.EventABI, c.registry.TicketABI, c.registry.MarketplaceABI} {
		for name := range a.Methods {
			method := a.Methods[name]
			if bytes.Equal(method.ID, selector) {
				return &method
			}
		}
	}
	return nil
}

func newTestRegistry(t *testing.T) *contracts.Registry {
	t.Helper()
	registry, err := contracts.NewRegistry(config.DefaultEventAddr, config.DefaultTicketAddr, config.DefaultMarketAddr)
	require.NoError(t, err)
	return registry
}

func testLogger() *logging.Logger {
	return logging.NewLogger(&logging.Config{Level: logging.LevelError, Service: "test", Output: bytes.NewBuffer(nil)})
}

// eventTuple builds the 17-output events() response for an on-sale event
func eventTuple(name string, totalTickets, ticketsSold int64, saleStart, saleEnd int64, isActive bool) []interface{} {
	return []interface{}{
		name,
		"description",
		"ipfs://QmImage",
		"Berlin",
		big.NewInt(50000000000000000), // 0.05 ETH
		big.NewInt(totalTickets),
		big.NewInt(ticketsSold),
		big.NewInt(saleEnd + 86400),
		big.NewInt(saleStart),
		big.NewInt(saleEnd),
		common.HexToAddress(organizerAddr),
		common.Address{},
		isActive,
		true,
		big.NewInt(0),
		big.NewInt(250),
		big.NewInt(0),
	}
}

func TestEventCount(t *testing.T) {
	registry := newTestRegistry(t)
	caller := newStubCaller(registry)
	caller.on("eventCount", func([]interface{}) ([]interface{}, error) {
		return []interface{}{big.NewInt(7)}, nil
	})

	reader := NewReader(caller, registry, testLogger())
	count, err := reader.EventCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(7), count)
}

func TestEventCountRPCFailure(t *testing.T) {
	registry := newTestRegistry(t)
	reader := NewReader(newStubCaller(registry), registry, testLogger())

	_, err := reader.EventCount(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRPCUnreachable)
}

func TestEventResolves(t *testing.T) {
	registry := newTestRegistry(t)
	caller := newStubCaller(registry)
	caller.on("eventExists", func(args []interface{}) ([]interface{}, error) {
		return []interface{}{args[0].(*big.Int).Uint64() == 3}, nil
	})
	caller.on("events", func([]interface{}) ([]interface{}, error) {
		return eventTuple("GopherCon", 100, 40, 1000, 2000, true), nil
	})

	reader := NewReader(caller, registry, testLogger())

	event := reader.Event(context.Background(), 3)
	require.NotNil(t, event)
	assert.Equal(t, domain.EventID(3), event.EventID)
	assert.Equal(t, "GopherCon", event.Name)
	assert.Equal(t, uint64(100), event.TotalTickets)
	assert.Equal(t, uint64(40), event.TicketsSold)
	assert.Equal(t, big.NewInt(50000000000000000), event.TicketPrice)
	assert.Equal(t, domain.ZeroAddress, event.PaymentToken)
	assert.True(t, event.IsActive)
}

func TestEventNonexistentDegradesToNil(t *testing.T) {
	registry := newTestRegistry(t)
	caller := newStubCaller(registry)
	caller.on("eventExists", func([]interface{}) ([]interface{}, error) {
		return []interface{}{false}, nil
	})

	reader := NewReader(caller, registry, testLogger())

	assert.Nil(t, reader.Event(context.Background(), 99))
	assert.Zero(t, caller.calls["events"])
}

func TestEventReadFailureDegradesToNil(t *testing.T) {
	registry := newTestRegistry(t)
	caller := newStubCaller(registry)
	caller.on("eventExists", func([]interface{}) ([]interface{}, error) {
		return []interface{}{true}, nil
	})
	caller.on("events", func([]interface{}) ([]interface{}, error) {
		return nil, errors.New("timeout")
	})

	reader := NewReader(caller, registry, testLogger())
	assert.Nil(t, reader.Event(context.Background(), 1))
}

func TestAllEventsAscendingAndSkipsFailures(t *testing.T) {
	registry := newTestRegistry(t)
	caller := newStubCaller(registry)
	caller.on("eventCount", func([]interface{}) ([]interface{}, error) {
		return []interface{}{big.NewInt(3)}, nil
	})
	caller.on("eventExists", func(args []interface{}) ([]interface{}, error) {
		// id 2 was never created
		return []interface{}{args[0].(*big.Int).Uint64() != 2}, nil
	})
	caller.on("events", func(args []interface{}) ([]interface{}, error) {
		id := args[0].(*big.Int).Uint64()
		if id == 1 {
			return eventTuple("First", 10, 0, 1000, 2000, true), nil
		}
		return eventTuple("Third", 10, 0, 1000, 2000, true), nil
	})

	reader := NewReader(caller, registry, testLogger())
	events, err := reader.AllEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "First", events[0].Name)
	assert.Equal(t, domain.EventID(1), events[0].EventID)
	assert.Equal(t, "Third", events[1].Name)
	assert.Equal(t, domain.EventID(3), events[1].EventID)
}

func TestAllEventsCountFailurePropagates(t *testing.T) {
	registry := newTestRegistry(t)
	reader := NewReader(newStubCaller(registry), registry, testLogger())

	_, err := reader.AllEvents(context.Background())
	require.Error(t, err)
}

func TestActiveEventsFiltersByClock(t *testing.T) {
	registry := newTestRegistry(t)
	caller := newStubCaller(registry)
	caller.on("eventCount", func([]interface{}) ([]interface{}, error) {
		return []interface{}{big.NewInt(3)}, nil
	})
	caller.on("eventExists", func([]interface{}) ([]interface{}, error) {
		return []interface{}{true}, nil
	})
	caller.on("events", func(args []interface{}) ([]interface{}, error) {
		switch args[0].(*big.Int).Uint64() {
		case 1:
			return eventTuple("OnSale", 100, 10, 1000, 2000, true), nil
		case 2:
			return eventTuple("SoldOut", 100, 100, 1000, 2000, true), nil
		default:
			return eventTuple("Ended", 100, 10, 100, 200, true), nil
		}
	})

	reader := NewReader(caller, registry, testLogger(),
		WithClock(func() time.Time { return time.Unix(1500, 0) }))

	active, err := reader.ActiveEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "OnSale", active[0].Name)
}

func TestTicketData(t *testing.T) {
	registry := newTestRegistry(t)
	caller := newStubCaller(registry)
	caller.on("ticketData", func([]interface{}) ([]interface{}, error) {
		return []interface{}{
			big.NewInt(5),
			big.NewInt(50000000000000000),
			big.NewInt(1700000000),
			common.HexToAddress(buyerAddr),
			false,
		}, nil
	})

	reader := NewReader(caller, registry, testLogger())
	ticket := reader.TicketData(context.Background(), 12)
	require.NotNil(t, ticket)
	assert.Equal(t, domain.TokenID(12), ticket.TokenID)
	assert.Equal(t, domain.EventID(5), ticket.EventID)
	assert.False(t, ticket.IsUsed)
}

func TestTicketDataUnmintedDegradesToNil(t *testing.T) {
	registry := newTestRegistry(t)
	caller := newStubCaller(registry)
	caller.on("ticketData", func([]interface{}) ([]interface{}, error) {
		// unminted ids resolve to the zero struct
		return []interface{}{big.NewInt(0), big.NewInt(0), big.NewInt(0), common.Address{}, false}, nil
	})

	reader := NewReader(caller, registry, testLogger())
	assert.Nil(t, reader.TicketData(context.Background(), 9999))
}

func TestUserTickets(t *testing.T) {
	registry := newTestRegistry(t)
	caller := newStubCaller(registry)
	caller.on("balanceOf", func([]interface{}) ([]interface{}, error) {
		return []interface{}{big.NewInt(3)}, nil
	})
	caller.on("tokenOfOwnerByIndex", func(args []interface{}) ([]interface{}, error) {
		index := args[1].(*big.Int).Uint64()
		if index == 1 {
			return nil, errors.New("timeout")
		}
		return []interface{}{big.NewInt(int64(100 + index))}, nil
	})

	reader := NewReader(caller, registry, testLogger())
	tickets, err := reader.UserTickets(context.Background(), buyerAddr)
	require.NoError(t, err)
	assert.Equal(t, []domain.TokenID{100, 102}, tickets)
}

func TestUserTicketsZeroBalance(t *testing.T) {
	registry := newTestRegistry(t)
	caller := newStubCaller(registry)
	caller.on("balanceOf", func([]interface{}) ([]interface{}, error) {
		return []interface{}{big.NewInt(0)}, nil
	})

	reader := NewReader(caller, registry, testLogger())
	tickets, err := reader.UserTickets(context.Background(), buyerAddr)
	require.NoError(t, err)
	assert.NotNil(t, tickets)
	assert.Empty(t, tickets)
	assert.Zero(t, caller.calls["tokenOfOwnerByIndex"])
}

func TestUserTicketsBalanceFailurePropagates(t *testing.T) {
	registry := newTestRegistry(t)
	reader := NewReader(newStubCaller(registry), registry, testLogger())

	_, err := reader.UserTickets(context.Background(), buyerAddr)
	require.Error(t, err)
}

func TestListing(t *testing.T) {
	registry := newTestRegistry(t)
	caller := newStubCaller(registry)
	caller.on("listings", func([]interface{}) ([]interface{}, error) {
		return []interface{}{
			common.HexToAddress(organizerAddr),
			big.NewInt(12),
			big.NewInt(60000000000000000),
			big.NewInt(5),
			big.NewInt(1700000000),
			true,
		}, nil
	})

	reader := NewReader(caller, registry, testLogger())
	listing := reader.Listing(context.Background(), 12)
	require.NotNil(t, listing)
	assert.Equal(t, domain.TokenID(12), listing.TokenID)
	assert.True(t, listing.Active)
}

func TestListingNeverListedDegradesToNil(t *testing.T) {
	registry := newTestRegistry(t)
	caller := newStubCaller(registry)
	caller.on("listings", func([]interface{}) ([]interface{}, error) {
		return []interface{}{common.Address{}, big.NewInt(0), big.NewInt(0), big.NewInt(0), big.NewInt(0), false}, nil
	})

	reader := NewReader(caller, registry, testLogger())
	assert.Nil(t, reader.Listing(context.Background(), 12))
}

func TestTicketURI(t *testing.T) {
	registry := newTestRegistry(t)
	caller := newStubCaller(registry)
	caller.on("tokenURI", func([]interface{}) ([]interface{}, error) {
		return []interface{}{"ipfs://QmTicket"}, nil
	})

	reader := NewReader(caller, registry, testLogger())
	assert.Equal(t, "ipfs://QmTicket", reader.TicketURI(context.Background(), 12))
}

func TestTicketURIFailureDegradesToEmpty(t *testing.T) {
	registry := newTestRegistry(t)
	reader := NewReader(newStubCaller(registry), registry, testLogger())

	assert.Equal(t, "", reader.TicketURI(context.Background(), 12))
}

// fakeCache is an in-memory Cache for read-through tests
type fakeCache struct {
	entries map[string]string
	gets    int
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]string)}
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) {
	f.gets++
	if v, ok := f.entries[key]; ok {
		return v, nil
	}
	return "", errors.New("miss")
}

func (f *fakeCache) SetWithExpiration(ctx context.Context, key, value string, _ time.Duration) error {
	f.sets++
	f.entries[key] = value
	return nil
}

func TestTicketURIReadThroughCache(t *testing.T) {
	registry := newTestRegistry(t)
	caller := newStubCaller(registry)
	caller.on("tokenURI", func([]interface{}) ([]interface{}, error) {
		return []interface{}{"ipfs://QmTicket"}, nil
	})

	cache := newFakeCache()
	reader := NewReader(caller, registry, testLogger(), WithCache(cache, time.Minute))

	// miss populates the cache from the chain read
	assert.Equal(t, "ipfs://QmTicket", reader.TicketURI(context.Background(), 12))
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, 1, caller.calls["tokenURI"])

	// hit skips the RPC entirely
	assert.Equal(t, "ipfs://QmTicket", reader.TicketURI(context.Background(), 12))
	assert.Equal(t, 1, caller.calls["tokenURI"])
}

func TestTicketURICacheMissFailureNotCached(t *testing.T) {
	registry := newTestRegistry(t)
	cache := newFakeCache()
	reader := NewReader(newStubCaller(registry), registry, testLogger(), WithCache(cache, time.Minute))

	assert.Equal(t, "", reader.TicketURI(context.Background(), 12))
	assert.Zero(t, cache.sets)
}

func TestFilterActive(t *testing.T) {
	now := time.Unix(1500, 0)
	events := []*domain.EventRecord{
		{Name: "live", IsActive: true, SaleStartTime: 1000, SaleEndTime: 2000, TotalTickets: 10, TicketsSold: 5},
		{Name: "inactive", IsActive: false, SaleStartTime: 1000, SaleEndTime: 2000, TotalTickets: 10, TicketsSold: 5},
		{Name: "upcoming", IsActive: true, SaleStartTime: 1600, SaleEndTime: 2000, TotalTickets: 10, TicketsSold: 5},
	}

	active := FilterActive(events, now)
	require.Len(t, active, 1)
	assert.Equal(t, "live", active[0].Name)
}
