package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bidhaus/auction-engine/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var errTransient = errors.New("gateway timeout")

// memStore is an in-memory implementation of the persistence interfaces with
// the same atomicity contract as the postgres repositories: CommitBid and
// Sweep hold the lock for their whole read-check-write cycle, and readers get
// copies, never the live structs.
type memStore struct {
	mu       sync.Mutex
	auctions map[uuid.UUID]*domain.Auction
	bids     map[uuid.UUID][]*domain.Bid
	wins     map[uuid.UUID]*domain.AuctionWin
	tasks    map[uuid.UUID]bool // settlement tasks, true once consumed
	attempts map[uuid.UUID]int
}

func newMemStore() *memStore {
	return &memStore{
		auctions: make(map[uuid.UUID]*domain.Auction),
		bids:     make(map[uuid.UUID][]*domain.Bid),
		wins:     make(map[uuid.UUID]*domain.AuctionWin),
		tasks:    make(map[uuid.UUID]bool),
		attempts: make(map[uuid.UUID]int),
	}
}

func cloneAuction(a *domain.Auction) *domain.Auction {
	c := *a
	if a.CurrentBid != nil {
		v := *a.CurrentBid
		c.CurrentBid = &v
	}
	if a.ReservePrice != nil {
		v := *a.ReservePrice
		c.ReservePrice = &v
	}
	if a.WinnerID != nil {
		v := *a.WinnerID
		c.WinnerID = &v
	}
	return &c
}

func cloneBid(b *domain.Bid) *domain.Bid {
	c := *b
	if b.PaymentMethodRef != nil {
		v := *b.PaymentMethodRef
		c.PaymentMethodRef = &v
	}
	return &c
}

func cloneWin(w *domain.AuctionWin) *domain.AuctionWin {
	c := *w
	if w.OrderID != nil {
		v := *w.OrderID
		c.OrderID = &v
	}
	if w.PaidAt != nil {
		v := *w.PaidAt
		c.PaidAt = &v
	}
	return &c
}

func (s *memStore) Create(_ context.Context, auction *domain.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auctions[auction.ID] = cloneAuction(auction)
	return nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.auctions[id]
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	return cloneAuction(a), nil
}

func (s *memStore) CommitBid(_ context.Context, bid *domain.Bid, expectedCurrent *decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.auctions[bid.AuctionID]
	if !ok {
		return domain.ErrAuctionNotFound
	}
	if a.Status != domain.StatusActive {
		return domain.ErrInvalidState
	}
	switch {
	case expectedCurrent == nil && a.CurrentBid != nil:
		return domain.ErrConcurrencyConflict
	case expectedCurrent != nil && (a.CurrentBid == nil || !a.CurrentBid.Equal(*expectedCurrent)):
		return domain.ErrConcurrencyConflict
	}

	for _, b := range s.bids[bid.AuctionID] {
		b.IsWinning = false
	}
	s.bids[bid.AuctionID] = append(s.bids[bid.AuctionID], cloneBid(bid))
	amount := bid.Amount
	a.CurrentBid = &amount
	a.BidCount++
	return nil
}

func (s *memStore) Sweep(_ context.Context, now time.Time) (int, []uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Mirrors the store transaction: the activation pass runs before the end
	// pass, so an auction whose whole window already passed ends in one sweep.
	activated := 0
	for _, a := range s.auctions {
		if a.Status == domain.StatusUpcoming && !a.StartsAt.After(now) {
			a.Status = domain.StatusActive
			activated++
		}
	}
	var ended []uuid.UUID
	for id, a := range s.auctions {
		if a.Status == domain.StatusActive && !a.EndsAt.After(now) {
			a.Status = domain.StatusEnded
			ended = append(ended, id)
			if _, exists := s.tasks[id]; !exists {
				s.tasks[id] = false
			}
		}
	}
	return activated, ended, nil
}

func (s *memStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.auctions[id]
	if !ok {
		return domain.ErrAuctionNotFound
	}
	if a.Status != from {
		return domain.ErrInvalidState
	}
	a.Status = to
	return nil
}

func (s *memStore) StatusCounts(_ context.Context) (map[domain.Status]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[domain.Status]int)
	for _, a := range s.auctions {
		counts[a.Status]++
	}
	return counts, nil
}

func (s *memStore) GetWinningBid(_ context.Context, auctionID uuid.UUID) (*domain.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bids[auctionID] {
		if b.IsWinning {
			return cloneBid(b), nil
		}
	}
	return nil, nil
}

func (s *memStore) ListByAuction(_ context.Context, auctionID uuid.UUID) ([]*domain.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Bid, 0, len(s.bids[auctionID]))
	for _, b := range s.bids[auctionID] {
		out = append(out, cloneBid(b))
	}
	return out, nil
}

func (s *memStore) RecordSettlement(_ context.Context, win *domain.AuctionWin) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.wins[win.AuctionID]; exists {
		return false, nil
	}
	s.wins[win.AuctionID] = cloneWin(win)
	if a, ok := s.auctions[win.AuctionID]; ok {
		winner := win.UserID
		a.WinnerID = &winner
	}
	return true, nil
}

func (s *memStore) GetByAuctionID(_ context.Context, auctionID uuid.UUID) (*domain.AuctionWin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wins[auctionID]
	if !ok {
		return nil, nil
	}
	return cloneWin(w), nil
}

func (s *memStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.AuctionWin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.AuctionWin
	for _, w := range s.wins {
		if w.UserID == userID {
			out = append(out, cloneWin(w))
		}
	}
	return out, nil
}

func (s *memStore) MarkPaid(_ context.Context, winID uuid.UUID, paidAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.wins {
		if w.ID == winID {
			if w.Status != domain.WinPendingPayment {
				return domain.ErrInvalidState
			}
			w.Status = domain.WinPaid
			at := paidAt
			w.PaidAt = &at
			return nil
		}
	}
	return domain.ErrAuctionNotFound
}

func (s *memStore) SetOrderID(_ context.Context, winID, orderID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.wins {
		if w.ID == winID {
			id := orderID
			w.OrderID = &id
			return nil
		}
	}
	return domain.ErrAuctionNotFound
}

func (s *memStore) ClaimPending(_ context.Context, limit int) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uuid.UUID
	for id, done := range s.tasks {
		if done {
			continue
		}
		out = append(out, id)
		s.attempts[id]++
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memStore) MarkDone(_ context.Context, auctionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[auctionID] = true
	return nil
}

func (s *memStore) pendingTasks() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uuid.UUID
	for id, done := range s.tasks {
		if !done {
			out = append(out, id)
		}
	}
	return out
}

// recordedEvent pairs a notification with its recipient.
type recordedEvent struct {
	UserID uuid.UUID
	Event  domain.Event
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (n *recordingNotifier) Notify(_ context.Context, userID uuid.UUID, event domain.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{UserID: userID, Event: event})
	return nil
}

func (n *recordingNotifier) recorded() []recordedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]recordedEvent, len(n.events))
	copy(out, n.events)
	return out
}

func (n *recordingNotifier) byType(t domain.EventType) []recordedEvent {
	var out []recordedEvent
	for _, e := range n.recorded() {
		if e.Event.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// fakeGateway declines or fails a configurable number of leading attempts.
type fakeGateway struct {
	mu        sync.Mutex
	declineAs error // returned on every call when set
	failFirst int   // transient failures before succeeding
	calls     int
}

func (g *fakeGateway) Capture(_ context.Context, _ string, _ decimal.Decimal) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.declineAs != nil {
		return g.declineAs
	}
	if g.calls <= g.failFirst {
		return errTransient
	}
	return nil
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fakeOrders struct {
	mu      sync.Mutex
	orderID uuid.UUID
	err     error
	calls   int
}

func (o *fakeOrders) CreateOrder(_ context.Context, _ uuid.UUID) (uuid.UUID, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if o.err != nil {
		return uuid.Nil, o.err
	}
	return o.orderID, nil
}

func (o *fakeOrders) callCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}
