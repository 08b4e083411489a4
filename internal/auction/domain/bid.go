package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bid is a committed monetary offer against an auction. Immutable once
// accepted except for the IsWinning flag, which flips to false when a higher
// bid supersedes it.
type Bid struct {
	ID        uuid.UUID
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	Amount    decimal.Decimal
	// PaymentMethodRef is an optional pre-authorized payment token used by
	// settlement to capture the winning amount.
	PaymentMethodRef *string
	IsWinning        bool
	PlacedAt         time.Time
}

// NewBid builds a bid record; the caller commits it atomically together with
// the auction price update.
func NewBid(id, auctionID, bidderID uuid.UUID, amount decimal.Decimal, paymentMethodRef *string, placedAt time.Time) *Bid {
	return &Bid{
		ID:               id,
		AuctionID:        auctionID,
		BidderID:         bidderID,
		Amount:           amount,
		PaymentMethodRef: paymentMethodRef,
		IsWinning:        true,
		PlacedAt:         placedAt,
	}
}
