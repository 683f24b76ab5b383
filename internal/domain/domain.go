package domain

import (
	"math/big"
	"time"
)

// Type aliases for better readability
type Address = string
type TokenID = uint64
type EventID = uint64

// ZeroAddress is the payment-token sentinel for the native currency
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

// EventStatus is derived from on-chain fields against wall-clock time
type EventStatus string

const (
	StatusInactive EventStatus = "inactive"
	StatusUpcoming EventStatus = "upcoming"
	StatusEnded    EventStatus = "ended"
	StatusSoldOut  EventStatus = "sold_out"
	StatusOnSale   EventStatus = "on_sale"
)

// EventRecord is a read-through projection of one on-chain event.
// Monetary fields stay in base units (18 decimals) until the display boundary.
type EventRecord struct {
	EventID            EventID  `json:"eventId"`
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	ImageURI           string   `json:"imageURI"`
	Location           string   `json:"location"`
	TicketPrice        *big.Int `json:"ticketPrice"`
	TotalTickets       uint64   `json:"totalTickets"`
	TicketsSold        uint64   `json:"ticketsSold"`
	EventDate          int64    `json:"eventDate"`
	SaleStartTime      int64    `json:"saleStartTime"`
	SaleEndTime        int64    `json:"saleEndTime"`
	Organizer          Address  `json:"organizer"`
	PaymentToken       Address  `json:"paymentToken"`
	IsActive           bool     `json:"isActive"`
	ResaleEnabled      bool     `json:"resaleEnabled"`
	MaxResalePrice     *big.Int `json:"maxResalePrice"`
	PlatformFeePercent *big.Int `json:"platformFeePercent"`
	GroupBuyDiscount   *big.Int `json:"groupBuyDiscount"`
}

// StatusAt derives the event status at the given instant.
// First matching condition wins: Inactive > Upcoming > Ended > SoldOut > OnSale.
func (e *EventRecord) StatusAt(now time.Time) EventStatus {
	ts := now.Unix()
	switch {
	case !e.IsActive:
		return StatusInactive
	case e.SaleStartTime > ts:
		return StatusUpcoming
	case e.SaleEndTime < ts:
		return StatusEnded
	case e.TicketsSold >= e.TotalTickets:
		return StatusSoldOut
	default:
		return StatusOnSale
	}
}

// OnSaleAt reports whether the event passes the active-events filter at now
func (e *EventRecord) OnSaleAt(now time.Time) bool {
	ts := now.Unix()
	return e.IsActive &&
		e.SaleStartTime <= ts &&
		e.SaleEndTime >= ts &&
		e.TicketsSold < e.TotalTickets
}

// TicketRecord is a read-through projection of one minted ticket
type TicketRecord struct {
	TokenID       TokenID  `json:"tokenId"`
	EventID       EventID  `json:"eventId"`
	PurchasePrice *big.Int `json:"purchasePrice"`
	PurchaseTime  int64    `json:"purchaseTime"`
	OriginalBuyer Address  `json:"originalBuyer"`
	IsUsed        bool     `json:"isUsed"`
}

// ListingRecord is a read-through projection of one resale listing
type ListingRecord struct {
	Seller      Address  `json:"seller"`
	TokenID     TokenID  `json:"tokenId"`
	Price       *big.Int `json:"price"`
	EventID     EventID  `json:"eventId"`
	ListingTime int64    `json:"listingTime"`
	Active      bool     `json:"active"`
}

// Quote is the latest spot price snapshot. Fallback marks a quote that was
// substituted from the hardcoded constant rather than fetched.
type Quote struct {
	ETH       float64   `json:"ETH"`
	USDC      float64   `json:"USDC"`
	UpdatedAt time.Time `json:"lastUpdated"`
	Fallback  bool      `json:"isFallback"`
}

// EventMetadata is the off-chain metadata document pinned per event
type EventMetadata struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Image          string `json:"image"`
	Location       string `json:"location"`
	EventDate      string `json:"eventDate"`
	TicketPrice    string `json:"ticketPrice"`
	TicketPriceUSD string `json:"ticketPriceUSD"`
	TotalTickets   uint64 `json:"totalTickets"`
	Organizer      string `json:"organizer"`
	ExternalURL    string `json:"external_url,omitempty"`
}

// LinkedAccount is one signer known to the wallet/session layer
type LinkedAccount struct {
	Address Address `json:"address"`
	Type    string  `json:"type"` // "embedded" | "external"
}
