package txsubmit

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/paxr/paxr-gateway/internal/domain"
)

// CreateEventParams carries the createEvent argument tuple in contract order
type CreateEventParams struct {
	Name             string
	Description      string
	ImageURI         string
	Location         string
	TicketPrice      *big.Int
	TotalTickets     uint64
	EventDate        int64
	SaleStartTime    int64
	SaleEndTime      int64
	PaymentToken     domain.Address
	ResaleEnabled    bool
	MaxResalePrice   *big.Int
	GroupBuyDiscount *big.Int
}

// CreateEvent submits a createEvent transaction
func (s *Service) CreateEvent(ctx context.Context, p CreateEventParams) (string, *TxError) {
	maxResale := p.MaxResalePrice
	if maxResale == nil {
		maxResale = big.NewInt(0)
	}
	discount := p.GroupBuyDiscount
	if discount == nil {
		discount = big.NewInt(0)
	}

	return s.Submit(ctx, Request{
		Function: "createEvent",
		Args: []interface{}{
			p.Name,
			p.Description,
			p.ImageURI,
			p.Location,
			p.TicketPrice,
			new(big.Int).SetUint64(p.TotalTickets),
			big.NewInt(p.EventDate),
			big.NewInt(p.SaleStartTime),
			big.NewInt(p.SaleEndTime),
			common.HexToAddress(p.PaymentToken),
			p.ResaleEnabled,
			maxResale,
			discount,
		},
	})
}

// PurchaseTicket submits a purchaseTicket transaction. For native-currency
// events the attached value is ticketPrice * quantity in base units.
func (s *Service) PurchaseTicket(ctx context.Context, eventID domain.EventID, quantity uint64, ticketPrice *big.Int, paymentToken domain.Address) (string, *TxError) {
	var value *big.Int
	if paymentToken == domain.ZeroAddress {
		value = new(big.Int).Mul(ticketPrice, new(big.Int).SetUint64(quantity))
	}

	return s.Submit(ctx, Request{
		Function: "purchaseTicket",
		Args: []interface{}{
			new(big.Int).SetUint64(eventID),
			new(big.Int).SetUint64(quantity),
		},
		Value: value,
	})
}

// ListTicket submits a marketplace listTicket transaction
func (s *Service) ListTicket(ctx context.Context, tokenID domain.TokenID, price *big.Int) (string, *TxError) {
	return s.Submit(ctx, Request{
		ABI:      &s.registry.MarketplaceABI,
		Contract: &s.registry.MarketplaceAddr,
		Function: "listTicket",
		Args: []interface{}{
			new(big.Int).SetUint64(tokenID),
			price,
		},
	})
}

// BuyTicket submits a marketplace buyTicket transaction paying the asking price
func (s *Service) BuyTicket(ctx context.Context, listingID domain.TokenID, price *big.Int) (string, *TxError) {
	return s.Submit(ctx, Request{
		ABI:      &s.registry.MarketplaceABI,
		Contract: &s.registry.MarketplaceAddr,
		Function: "buyTicket",
		Args: []interface{}{
			new(big.Int).SetUint64(listingID),
		},
		Value: price,
	})
}

// TransferTicket submits an ERC-721 safeTransferFrom on the ticket contract
func (s *Service) TransferTicket(ctx context.Context, from, to domain.Address, tokenID domain.TokenID) (string, *TxError) {
	return s.Submit(ctx, Request{
		ABI:      &s.registry.TicketABI,
		Contract: &s.registry.TicketAddr,
		Function: "safeTransferFrom",
		Args: []interface{}{
			common.HexToAddress(from),
			common.HexToAddress(to),
			new(big.Int).SetUint64(tokenID),
		},
	})
}
