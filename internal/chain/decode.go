package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/paxr/paxr-gateway/internal/domain"
)

// The contracts return positional tuples. Decoding happens here, once, so the
// rest of the codebase only ever sees named struct fields.

func decodeEventRecord(eventID domain.EventID, out []interface{}) (*domain.EventRecord, error) {
	if len(out) != 17 {
		return nil, fmt.Errorf("event tuple has %d fields, want 17", len(out))
	}

	name, err := asString(out, 0)
	if err != nil {
		return nil, err
	}
	description, err := asString(out, 1)
	if err != nil {
		return nil, err
	}
	imageURI, err := asString(out, 2)
	if err != nil {
		return nil, err
	}
	location, err := asString(out, 3)
	if err != nil {
		return nil, err
	}
	ticketPrice, err := asBig(out, 4)
	if err != nil {
		return nil, err
	}
	totalTickets, err := asBig(out, 5)
	if err != nil {
		return nil, err
	}
	ticketsSold, err := asBig(out, 6)
	if err != nil {
		return nil, err
	}
	eventDate, err := asBig(out, 7)
	if err != nil {
		return nil, err
	}
	saleStart, err := asBig(out, 8)
	if err != nil {
		return nil, err
	}
	saleEnd, err := asBig(out, 9)
	if err != nil {
		return nil, err
	}
	organizer, err := asAddress(out, 10)
	if err != nil {
		return nil, err
	}
	paymentToken, err := asAddress(out, 11)
	if err != nil {
		return nil, err
	}
	isActive, err := asBool(out, 12)
	if err != nil {
		return nil, err
	}
	resaleEnabled, err := asBool(out, 13)
	if err != nil {
		return nil, err
	}
	maxResalePrice, err := asBig(out, 14)
	if err != nil {
		return nil, err
	}
	platformFee, err := asBig(out, 15)
	if err != nil {
		return nil, err
	}
	groupBuyDiscount, err := asBig(out, 16)
	if err != nil {
		return nil, err
	}

	return &domain.EventRecord{
		EventID:            eventID,
		Name:               name,
		Description:        description,
		ImageURI:           imageURI,
		Location:           location,
		TicketPrice:        ticketPrice,
		TotalTickets:       totalTickets.Uint64(),
		TicketsSold:        ticketsSold.Uint64(),
		EventDate:          eventDate.Int64(),
		SaleStartTime:      saleStart.Int64(),
		SaleEndTime:        saleEnd.Int64(),
		Organizer:          organizer,
		PaymentToken:       paymentToken,
		IsActive:           isActive,
		ResaleEnabled:      resaleEnabled,
		MaxResalePrice:     maxResalePrice,
		PlatformFeePercent: platformFee,
		GroupBuyDiscount:   groupBuyDiscount,
	}, nil
}

func decodeTicketRecord(tokenID domain.TokenID, out []interface{}) (*domain.TicketRecord, error) {
	if len(out) != 5 {
		return nil, fmt.Errorf("ticket tuple has %d fields, want 5", len(out))
	}

	eventID, err := asBig(out, 0)
	if err != nil {
		return nil, err
	}
	purchasePrice, err := asBig(out, 1)
	if err != nil {
		return nil, err
	}
	purchaseTime, err := asBig(out, 2)
	if err != nil {
		return nil, err
	}
	originalBuyer, err := asAddress(out, 3)
	if err != nil {
		return nil, err
	}
	isUsed, err := asBool(out, 4)
	if err != nil {
		return nil, err
	}

	return &domain.TicketRecord{
		TokenID:       tokenID,
		EventID:       eventID.Uint64(),
		PurchasePrice: purchasePrice,
		PurchaseTime:  purchaseTime.Int64(),
		OriginalBuyer: originalBuyer,
		IsUsed:        isUsed,
	}, nil
}

func decodeListingRecord(out []interface{}) (*domain.ListingRecord, error) {
	if len(out) != 6 {
		return nil, fmt.Errorf("listing tuple has %d fields, want 6", len(out))
	}

	seller, err := asAddress(out, 0)
	if err != nil {
		return nil, err
	}
	tokenID, err := asBig(out, 1)
	if err != nil {
		return nil, err
	}
	price, err := asBig(out, 2)
	if err != nil {
		return nil, err
	}
	eventID, err := asBig(out, 3)
	if err != nil {
		return nil, err
	}
	listingTime, err := asBig(out, 4)
	if err != nil {
		return nil, err
	}
	active, err := asBool(out, 5)
	if err != nil {
		return nil, err
	}

	return &domain.ListingRecord{
		Seller:      seller,
		TokenID:     tokenID.Uint64(),
		Price:       price,
		EventID:     eventID.Uint64(),
		ListingTime: listingTime.Int64(),
		Active:      active,
	}, nil
}

func asBig(out []interface{}, i int) (*big.Int, error) {
	if i >= len(out) {
		return nil, fmt.Errorf("output index %d out of range", i)
	}
	v, ok := out[i].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("output %d is %T, want *big.Int", i, out[i])
	}
	return v, nil
}

func asString(out []interface{}, i int) (string, error) {
	if i >= len(out) {
		return "", fmt.Errorf("output index %d out of range", i)
	}
	v, ok := out[i].(string)
	if !ok {
		return "", fmt.Errorf("output %d is %T, want string", i, out[i])
	}
	return v, nil
}

func asBool(out []interface{}, i int) (bool, error) {
	if i >= len(out) {
		return false, fmt.Errorf("output index %d out of range", i)
	}
	v, ok := out[i].(bool)
	if !ok {
		return false, fmt.Errorf("output %d is %T, want bool", i, out[i])
	}
	return v, nil
}

func asAddress(out []interface{}, i int) (domain.Address, error) {
	if i >= len(out) {
		return "", fmt.Errorf("output index %d out of range", i)
	}
	v, ok := out[i].(common.Address)
	if !ok {
		return "", fmt.Errorf("output %d is %T, want common.Address", i, out[i])
	}
	return v.Hex(), nil
}
