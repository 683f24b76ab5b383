package redis

import (
	"strconv"
	"strings"
)

var (
	App     = "paxr" // project code
	Env     = "dev"  // dev|stg|prod
	Version = "v1"   // schema version for easy bust
)

func join(parts ...string) string {
	return strings.Join(parts, ":")
}

func pfx() string {
	return join(App, Env, Version)
}

// SpotPriceKey is the shared cache slot for the latest price quote
func SpotPriceKey(pair string) string {
	return join(pfx(), "price", strings.ToLower(pair))
}

// TicketURIKey caches resolved token metadata URIs
func TicketURIKey(tokenID uint64) string {
	return join(pfx(), "ticket", "uri", strconv.FormatUint(tokenID, 10))
}
