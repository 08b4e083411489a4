package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WinStatus tracks the post-settlement fulfilment of an auction win.
type WinStatus string

const (
	WinPendingPayment WinStatus = "pending_payment"
	WinPaid           WinStatus = "paid"
	WinShipped        WinStatus = "shipped"
	WinCompleted      WinStatus = "completed"
	WinCancelled      WinStatus = "cancelled"
)

// AuctionWin records the binding sale produced by winner resolution. The
// unique constraint on AuctionID makes settlement single-writer: at most one
// win ever exists per auction.
type AuctionWin struct {
	ID            uuid.UUID
	AuctionID     uuid.UUID
	UserID        uuid.UUID
	WinningAmount decimal.Decimal
	OrderID       *uuid.UUID
	PaidAt        *time.Time
	Status        WinStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewAuctionWin builds a pending-payment win for the resolved winner.
func NewAuctionWin(id, auctionID, userID uuid.UUID, winningAmount decimal.Decimal) *AuctionWin {
	return &AuctionWin{
		ID:            id,
		AuctionID:     auctionID,
		UserID:        userID,
		WinningAmount: winningAmount,
		Status:        WinPendingPayment,
	}
}
