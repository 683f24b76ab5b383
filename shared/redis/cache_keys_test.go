package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpotPriceKey(t *testing.T) {
	assert.Equal(t, "paxr:dev:v1:price:eth-usd", SpotPriceKey("ETH-USD"))
}

func TestTicketURIKey(t *testing.T) {
	assert.Equal(t, "paxr:dev:v1:ticket:uri:42", TicketURIKey(42))
	assert.Equal(t, "paxr:dev:v1:ticket:uri:0", TicketURIKey(0))
}
