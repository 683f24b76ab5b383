// Package contracts holds the fixed ABIs and deployment addresses of the
// Paxr event, ticket and marketplace contracts. The signatures here must match
// the deployed bytecode exactly; any drift makes every call revert.
package contracts

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const eventABIJSON = `[
  {"name":"eventCount","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"eventExists","type":"function","stateMutability":"view","inputs":[{"name":"","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"name":"events","type":"function","stateMutability":"view","inputs":[{"name":"","type":"uint256"}],"outputs":[
    {"name":"name","type":"string"},
    {"name":"description","type":"string"},
    {"name":"imageURI","type":"string"},
    {"name":"location","type":"string"},
    {"name":"ticketPrice","type":"uint256"},
    {"name":"totalTickets","type":"uint256"},
    {"name":"ticketsSold","type":"uint256"},
    {"name":"eventDate","type":"uint256"},
    {"name":"saleStartTime","type":"uint256"},
    {"name":"saleEndTime","type":"uint256"},
    {"name":"organizer","type":"address"},
    {"name":"paymentToken","type":"address"},
    {"name":"isActive","type":"bool"},
    {"name":"resaleEnabled","type":"bool"},
    {"name":"maxResalePrice","type":"uint256"},
    {"name":"platformFeePercent","type":"uint256"},
    {"name":"groupBuyDiscount","type":"uint256"}
  ]},
  {"name":"createEvent","type":"function","stateMutability":"nonpayable","inputs":[
    {"name":"_name","type":"string"},
    {"name":"_description","type":"string"},
    {"name":"_imageURI","type":"string"},
    {"name":"_location","type":"string"},
    {"name":"_ticketPrice","type":"uint256"},
    {"name":"_totalTickets","type":"uint256"},
    {"name":"_eventDate","type":"uint256"},
    {"name":"_saleStartTime","type":"uint256"},
    {"name":"_saleEndTime","type":"uint256"},
    {"name":"_paymentToken","type":"address"},
    {"name":"_resaleEnabled","type":"bool"},
    {"name":"_maxResalePrice","type":"uint256"},
    {"name":"_groupBuyDiscount","type":"uint256"}
  ],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"purchaseTicket","type":"function","stateMutability":"payable","inputs":[
    {"name":"eventId","type":"uint256"},
    {"name":"quantity","type":"uint256"}
  ],"outputs":[]},
  {"type":"event","name":"EventCreated","inputs":[
    {"name":"eventId","type":"uint256","indexed":true},
    {"name":"organizer","type":"address","indexed":true}
  ]},
  {"type":"event","name":"TicketPurchased","inputs":[
    {"name":"eventId","type":"uint256","indexed":true},
    {"name":"buyer","type":"address","indexed":true},
    {"name":"amount","type":"uint256","indexed":false}
  ]}
]`

const ticketABIJSON = `[
  {"name":"ticketData","type":"function","stateMutability":"view","inputs":[{"name":"","type":"uint256"}],"outputs":[
    {"name":"eventId","type":"uint256"},
    {"name":"purchasePrice","type":"uint256"},
    {"name":"purchaseTime","type":"uint256"},
    {"name":"originalBuyer","type":"address"},
    {"name":"isUsed","type":"bool"}
  ]},
  {"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"tokenOfOwnerByIndex","type":"function","stateMutability":"view","inputs":[
    {"name":"owner","type":"address"},
    {"name":"index","type":"uint256"}
  ],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"tokenURI","type":"function","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"string"}]},
  {"name":"safeTransferFrom","type":"function","stateMutability":"nonpayable","inputs":[
    {"name":"from","type":"address"},
    {"name":"to","type":"address"},
    {"name":"tokenId","type":"uint256"}
  ],"outputs":[]}
]`

const marketplaceABIJSON = `[
  {"name":"listings","type":"function","stateMutability":"view","inputs":[{"name":"","type":"uint256"}],"outputs":[
    {"name":"seller","type":"address"},
    {"name":"tokenId","type":"uint256"},
    {"name":"price","type":"uint256"},
    {"name":"eventId","type":"uint256"},
    {"name":"listingTime","type":"uint256"},
    {"name":"active","type":"bool"}
  ]},
  {"name":"listTicket","type":"function","stateMutability":"nonpayable","inputs":[
    {"name":"ticketId","type":"uint256"},
    {"name":"price","type":"uint256"}
  ],"outputs":[]},
  {"name":"buyTicket","type":"function","stateMutability":"payable","inputs":[
    {"name":"listingId","type":"uint256"}
  ],"outputs":[]},
  {"type":"event","name":"TicketListed","inputs":[
    {"name":"tokenId","type":"uint256","indexed":true},
    {"name":"seller","type":"address","indexed":true},
    {"name":"price","type":"uint256","indexed":false}
  ]},
  {"type":"event","name":"TicketSold","inputs":[
    {"name":"tokenId","type":"uint256","indexed":true},
    {"name":"buyer","type":"address","indexed":true},
    {"name":"price","type":"uint256","indexed":false}
  ]}
]`

// Registry holds the parsed ABIs and addresses for one deployment
type Registry struct {
	EventABI       abi.ABI
	TicketABI      abi.ABI
	MarketplaceABI abi.ABI

	EventAddr       common.Address
	TicketAddr      common.Address
	MarketplaceAddr common.Address
}

// NewRegistry parses the fixed ABIs and validates the deployment addresses
func NewRegistry(eventAddr, ticketAddr, marketplaceAddr string) (*Registry, error) {
	eventABI, err := abi.JSON(strings.NewReader(eventABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse event abi: %w", err)
	}
	ticketABI, err := abi.JSON(strings.NewReader(ticketABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse ticket abi: %w", err)
	}
	marketplaceABI, err := abi.JSON(strings.NewReader(marketplaceABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse marketplace abi: %w", err)
	}

	for name, addr := range map[string]string{
		"event":       eventAddr,
		"ticket":      ticketAddr,
		"marketplace": marketplaceAddr,
	} {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("invalid %s contract address: %q", name, addr)
		}
	}

	return &Registry{
		EventABI:        eventABI,
		TicketABI:       ticketABI,
		MarketplaceABI:  marketplaceABI,
		EventAddr:       common.HexToAddress(eventAddr),
		TicketAddr:      common.HexToAddress(ticketAddr),
		MarketplaceAddr: common.HexToAddress(marketplaceAddr),
	}, nil
}
