package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuctionRepository is the persisted auction store. Implementations must make
// CommitBid and Sweep atomic and conditional; no in-process lock spans them.
type AuctionRepository interface {
	Create(ctx context.Context, auction *Auction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Auction, error)

	// CommitBid atomically inserts the bid, clears the previous winning flag
	// and advances current_bid/bid_count, conditioned on the auction still
	// being active with current_bid equal to expectedCurrent (nil for a first
	// bid). A falsified condition yields ErrConcurrencyConflict when another
	// bid advanced the price, or ErrInvalidState when the auction left the
	// active state.
	CommitBid(ctx context.Context, bid *Bid, expectedCurrent *decimal.Decimal) error

	// Sweep performs the two idempotent bulk transitions (upcoming→active on
	// startsAt, active→ended on endsAt) and enqueues one settlement task per
	// newly ended auction, all in a single transaction.
	Sweep(ctx context.Context, now time.Time) (activated int, ended []uuid.UUID, err error)

	// UpdateStatus applies the from→to transition only if the auction is
	// still in the from state; otherwise ErrInvalidState.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error

	StatusCounts(ctx context.Context) (map[Status]int, error)
}

type BidRepository interface {
	// GetWinningBid returns the bid currently flagged winning, or nil when
	// the auction has no bids.
	GetWinningBid(ctx context.Context, auctionID uuid.UUID) (*Bid, error)
	ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*Bid, error)
}

type WinRepository interface {
	// RecordSettlement inserts the win and sets the auction's winner in one
	// transaction. The unique auction_id constraint makes this first-writer-
	// wins: created is false when a win already exists.
	RecordSettlement(ctx context.Context, win *AuctionWin) (created bool, err error)
	GetByAuctionID(ctx context.Context, auctionID uuid.UUID) (*AuctionWin, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*AuctionWin, error)
	MarkPaid(ctx context.Context, winID uuid.UUID, paidAt time.Time) error
	SetOrderID(ctx context.Context, winID, orderID uuid.UUID) error
}

// SettlementQueue hands ended auctions to winner resolution with at-least-
// once delivery; consumption is idempotent so duplicates are harmless.
type SettlementQueue interface {
	// ClaimPending returns auction ids awaiting resolution and bumps their
	// attempt counters. Concurrently claimed ids may overlap across replicas.
	ClaimPending(ctx context.Context, limit int) ([]uuid.UUID, error)
	MarkDone(ctx context.Context, auctionID uuid.UUID) error
}

// PaymentGateway captures a pre-authorized amount. A decline surfaces as
// ErrPaymentDeclined; any error leaves auction state untouched.
type PaymentGateway interface {
	Capture(ctx context.Context, paymentMethodRef string, amount decimal.Decimal) error
}

// OrderService creates the downstream order for a paid auction win.
type OrderService interface {
	CreateOrder(ctx context.Context, winID uuid.UUID) (uuid.UUID, error)
}

// EventType labels a notification handed to the dispatcher.
type EventType string

const (
	EventOutbid          EventType = "outbid"
	EventAuctionWon      EventType = "auction_won"
	EventPaymentRequired EventType = "payment_required"
)

// Event is the payload of a user notification. Delivery is at-least-once;
// consumers deduplicate on DedupKey.
type Event struct {
	Type      EventType
	AuctionID uuid.UUID
	Amount    decimal.Decimal
	DedupKey  string
}

// Notifier dispatches user notifications. It must never block a bid commit
// or a settlement write.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event Event) error
}
