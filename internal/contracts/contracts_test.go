package contracts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paxr/paxr-gateway/shared/config"
)

func TestNewRegistry(t *testing.T) {
	registry, err := NewRegistry(config.DefaultEventAddr, config.DefaultTicketAddr, config.DefaultMarketAddr)
	require.NoError(t, err)

	for _, method := range []string{"eventCount", "eventExists", "events", "createEvent", "purchaseTicket"} {
		assert.Contains(t, registry.EventABI.Methods, method)
	}
	for _, method := range []string{"ticketData", "balanceOf", "tokenOfOwnerByIndex", "tokenURI", "safeTransferFrom"} {
		assert.Contains(t, registry.TicketABI.Methods, method)
	}
	for _, method := range []string{"listings", "listTicket", "buyTicket"} {
		assert.Contains(t, registry.MarketplaceABI.Methods, method)
	}

	assert.Contains(t, registry.EventABI.Events, "EventCreated")
	assert.Contains(t, registry.EventABI.Events, "TicketPurchased")
	assert.Contains(t, registry.MarketplaceABI.Events, "TicketListed")
	assert.Contains(t, registry.MarketplaceABI.Events, "TicketSold")

	assert.Equal(t, 17, len(registry.EventABI.Methods["events"].Outputs))
	assert.Equal(t, 13, len(registry.EventABI.Methods["createEvent"].Inputs))
	assert.Equal(t, 5, len(registry.TicketABI.Methods["ticketData"].Outputs))
	assert.Equal(t, 6, len(registry.MarketplaceABI.Methods["listings"].Outputs))
}

func TestNewRegistryAddresses(t *testing.T) {
	registry, err := NewRegistry(config.DefaultEventAddr, config.DefaultTicketAddr, config.DefaultMarketAddr)
	require.NoError(t, err)

	assert.Equal(t, config.DefaultEventAddr, strings.ToLower(registry.EventAddr.Hex()))
	assert.Equal(t, config.DefaultTicketAddr, strings.ToLower(registry.TicketAddr.Hex()))
	assert.Equal(t, config.DefaultMarketAddr, strings.ToLower(registry.MarketplaceAddr.Hex()))
	assert.NotEqual(t, registry.EventAddr, registry.TicketAddr)
	assert.NotEqual(t, registry.TicketAddr, registry.MarketplaceAddr)
}

func TestNewRegistryInvalidAddress(t *testing.T) {
	_, err := NewRegistry("0x123", config.DefaultTicketAddr, config.DefaultMarketAddr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "event")

	_, err = NewRegistry(config.DefaultEventAddr, "nope", config.DefaultMarketAddr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ticket")
}
