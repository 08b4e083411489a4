package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the lifecycle state of an auction.
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusActive    Status = "active"
	StatusEnded     Status = "ended"
	StatusCancelled Status = "cancelled"
)

// validNext encodes the only legal lifecycle edges. Ended and cancelled are
// terminal.
var validNext = map[Status]map[Status]bool{
	StatusUpcoming:  {StatusActive: true, StatusCancelled: true},
	StatusActive:    {StatusEnded: true, StatusCancelled: true},
	StatusEnded:     {},
	StatusCancelled: {},
}

// CanTransition reports whether the from→to lifecycle edge is legal.
func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// IsTerminal reports whether s admits no further transitions.
func (s Status) IsTerminal() bool {
	return len(validNext[s]) == 0
}

// SubjectKind tags the variant of the item an auction sells.
type SubjectKind string

const (
	SubjectBook    SubjectKind = "book"
	SubjectProduct SubjectKind = "product"
)

// Subject is the tagged book-or-product variant an auction references.
// Resolution to the catalog record is an explicit per-variant lookup, never
// a dynamic foreign key.
type Subject struct {
	Kind SubjectKind
	ID   string
}

// Resolve invokes exactly one of the per-variant lookup functions.
func (s Subject) Resolve(book func(id string) error, product func(id string) error) error {
	switch s.Kind {
	case SubjectBook:
		return book(s.ID)
	case SubjectProduct:
		return product(s.ID)
	default:
		return ErrInvalidSubject
	}
}

func (s Subject) validate() error {
	if s.Kind != SubjectBook && s.Kind != SubjectProduct {
		return ErrInvalidSubject
	}
	if s.ID == "" {
		return ErrInvalidSubject
	}
	return nil
}

// Auction is a timed competitive sale of a single subject.
type Auction struct {
	ID          uuid.UUID
	Subject     Subject
	VendorID    uuid.UUID
	StartingBid decimal.Decimal
	// CurrentBid is nil until the first bid is accepted; afterwards it always
	// equals the maximum committed bid amount.
	CurrentBid   *decimal.Decimal
	ReservePrice *decimal.Decimal
	BidCount     int
	StartsAt     time.Time
	EndsAt       time.Time
	Status       Status
	WinnerID     *uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewAuction validates and builds an upcoming auction.
func NewAuction(id uuid.UUID, subject Subject, vendorID uuid.UUID, startingBid decimal.Decimal, reservePrice *decimal.Decimal, startsAt, endsAt time.Time) (*Auction, error) {
	if err := subject.validate(); err != nil {
		return nil, err
	}
	if startingBid.IsNegative() {
		return nil, ErrInvalidAmount
	}
	if !endsAt.After(startsAt) {
		return nil, ErrInvalidSchedule
	}
	return &Auction{
		ID:           id,
		Subject:      subject,
		VendorID:     vendorID,
		StartingBid:  startingBid,
		ReservePrice: reservePrice,
		StartsAt:     startsAt,
		EndsAt:       endsAt,
		Status:       StatusUpcoming,
	}, nil
}

// MinNextBid returns the smallest acceptable bid amount: the starting bid
// while no bid exists, current bid plus the increment afterwards.
func (a *Auction) MinNextBid(minIncrement decimal.Decimal) decimal.Decimal {
	if a.BidCount == 0 || a.CurrentBid == nil {
		return a.StartingBid
	}
	return a.CurrentBid.Add(minIncrement)
}

// ValidateBid checks the bid preconditions against the auction state as read.
// The store-level conditional write still arbitrates races after this passes.
func (a *Auction) ValidateBid(amount decimal.Decimal, now time.Time, minIncrement decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if a.Status != StatusActive {
		return ErrInvalidState
	}
	if now.Before(a.StartsAt) || !now.Before(a.EndsAt) {
		return ErrInvalidState
	}
	if amount.LessThan(a.MinNextBid(minIncrement)) {
		return ErrBidTooLow
	}
	return nil
}

// ReserveMet reports whether the final price satisfies the reserve. A bid
// exactly equal to the reserve counts as met. Unset reserve always passes.
func (a *Auction) ReserveMet() bool {
	if a.ReservePrice == nil {
		return true
	}
	if a.CurrentBid == nil {
		return false
	}
	return a.CurrentBid.GreaterThanOrEqual(*a.ReservePrice)
}
