package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bidhaus/auction-engine/internal/auction/domain"
	"github.com/bidhaus/auction-engine/internal/shared/clock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func decPtr(t *testing.T, s string) *decimal.Decimal {
	d := dec(t, s)
	return &d
}

func strPtr(s string) *string { return &s }

// seedAuction stores an auction that started at baseTime and runs for an
// hour, already in the given status.
func seedAuction(t *testing.T, store *memStore, status domain.Status, starting string, reserve *decimal.Decimal) *domain.Auction {
	t.Helper()
	a, err := domain.NewAuction(
		uuid.New(),
		domain.Subject{Kind: domain.SubjectBook, ID: "book-1"},
		uuid.New(),
		dec(t, starting),
		reserve,
		baseTime,
		baseTime.Add(time.Hour),
	)
	require.NoError(t, err)
	a.Status = status
	require.NoError(t, store.Create(context.Background(), a))
	return a
}

func newPlaceBidUC(store *memStore, notifier *recordingNotifier, clk clock.Clock) *PlaceBidUseCase {
	return NewPlaceBidUseCase(store, store, notifier, clk, decimal.NewFromInt(1))
}

func TestPlaceBid_FirstBid(t *testing.T) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	clk := clock.NewManual(baseTime.Add(time.Minute))
	uc := newPlaceBidUC(store, notifier, clk)

	auction := seedAuction(t, store, domain.StatusActive, "100", nil)
	bidder := uuid.New()

	receipt, err := uc.Execute(context.Background(), PlaceBidDTO{
		AuctionID: auction.ID,
		BidderID:  bidder,
		Amount:    dec(t, "100"),
	})
	require.NoError(t, err)
	require.True(t, receipt.IsWinning)
	require.True(t, receipt.CurrentBid.Equal(dec(t, "100")))

	stored, err := store.GetByID(context.Background(), auction.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stored.BidCount)
	require.NotNil(t, stored.CurrentBid)
	require.True(t, stored.CurrentBid.Equal(dec(t, "100")))

	// No previous bidder, so nobody to outbid.
	require.Empty(t, notifier.recorded())
}

func TestPlaceBid_Rejections(t *testing.T) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	clk := clock.NewManual(baseTime.Add(time.Minute))
	uc := newPlaceBidUC(store, notifier, clk)

	active := seedAuction(t, store, domain.StatusActive, "100", nil)
	upcoming := seedAuction(t, store, domain.StatusUpcoming, "100", nil)
	ended := seedAuction(t, store, domain.StatusEnded, "100", nil)

	tests := []struct {
		name    string
		dto     PlaceBidDTO
		at      time.Time
		wantErr error
	}{
		{
			name:    "unknown_auction",
			dto:     PlaceBidDTO{AuctionID: uuid.New(), BidderID: uuid.New(), Amount: dec(t, "100")},
			at:      baseTime.Add(time.Minute),
			wantErr: domain.ErrAuctionNotFound,
		},
		{
			name:    "below_starting_bid",
			dto:     PlaceBidDTO{AuctionID: active.ID, BidderID: uuid.New(), Amount: dec(t, "99")},
			at:      baseTime.Add(time.Minute),
			wantErr: domain.ErrBidTooLow,
		},
		{
			name:    "zero_amount",
			dto:     PlaceBidDTO{AuctionID: active.ID, BidderID: uuid.New(), Amount: decimal.Zero},
			at:      baseTime.Add(time.Minute),
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "not_yet_active",
			dto:     PlaceBidDTO{AuctionID: upcoming.ID, BidderID: uuid.New(), Amount: dec(t, "100")},
			at:      baseTime.Add(time.Minute),
			wantErr: domain.ErrInvalidState,
		},
		{
			name:    "already_ended",
			dto:     PlaceBidDTO{AuctionID: ended.ID, BidderID: uuid.New(), Amount: dec(t, "100")},
			at:      baseTime.Add(time.Minute),
			wantErr: domain.ErrInvalidState,
		},
		{
			name:    "past_end_of_window",
			dto:     PlaceBidDTO{AuctionID: active.ID, BidderID: uuid.New(), Amount: dec(t, "100")},
			at:      baseTime.Add(time.Hour),
			wantErr: domain.ErrInvalidState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk.Set(tt.at)
			_, err := uc.Execute(context.Background(), tt.dto)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	// Nothing committed by any rejected attempt.
	stored, err := store.GetByID(context.Background(), active.ID)
	require.NoError(t, err)
	require.Equal(t, 0, stored.BidCount)
	require.Nil(t, stored.CurrentBid)
}

func TestPlaceBid_OutbidNotification(t *testing.T) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	clk := clock.NewManual(baseTime.Add(time.Minute))
	uc := newPlaceBidUC(store, notifier, clk)

	auction := seedAuction(t, store, domain.StatusActive, "100", nil)
	first := uuid.New()
	second := uuid.New()

	_, err := uc.Execute(context.Background(), PlaceBidDTO{AuctionID: auction.ID, BidderID: first, Amount: dec(t, "100")})
	require.NoError(t, err)

	_, err = uc.Execute(context.Background(), PlaceBidDTO{AuctionID: auction.ID, BidderID: second, Amount: dec(t, "150")})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(notifier.byType(domain.EventOutbid)) == 1
	}, time.Second, 5*time.Millisecond)

	out := notifier.byType(domain.EventOutbid)[0]
	require.Equal(t, first, out.UserID)
	require.Equal(t, auction.ID, out.Event.AuctionID)
	require.True(t, out.Event.Amount.Equal(dec(t, "150")))
	require.NotEmpty(t, out.Event.DedupKey)

	// Raising one's own bid does not notify anyone.
	_, err = uc.Execute(context.Background(), PlaceBidDTO{AuctionID: auction.ID, BidderID: second, Amount: dec(t, "160")})
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	require.Len(t, notifier.byType(domain.EventOutbid), 1)
}

func TestPlaceBid_LedgerInvariants(t *testing.T) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	clk := clock.NewManual(baseTime.Add(time.Minute))
	uc := newPlaceBidUC(store, notifier, clk)

	auction := seedAuction(t, store, domain.StatusActive, "10", nil)
	amounts := []string{"10", "12", "15", "20"}
	for _, amt := range amounts {
		_, err := uc.Execute(context.Background(), PlaceBidDTO{AuctionID: auction.ID, BidderID: uuid.New(), Amount: dec(t, amt)})
		require.NoError(t, err)
	}

	bids, err := store.ListByAuction(context.Background(), auction.ID)
	require.NoError(t, err)
	require.Len(t, bids, len(amounts))

	winning := 0
	for i, b := range bids {
		if b.IsWinning {
			winning++
			require.Equal(t, len(bids)-1, i, "only the last bid may be winning")
		}
		if i > 0 {
			require.True(t, bids[i].Amount.GreaterThan(bids[i-1].Amount), "amounts must be strictly increasing")
		}
	}
	require.Equal(t, 1, winning)

	stored, err := store.GetByID(context.Background(), auction.ID)
	require.NoError(t, err)
	require.Equal(t, len(amounts), stored.BidCount)
	require.True(t, stored.CurrentBid.Equal(dec(t, "20")))
}

// Concurrent bidders racing on the same observed price: the conditional
// commit lets exactly one through, the rest lose with a retryable conflict
// or a stale-price rejection.
func TestPlaceBid_ConcurrentSamePricePoint(t *testing.T) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	clk := clock.NewManual(baseTime.Add(time.Minute))
	uc := newPlaceBidUC(store, notifier, clk)

	auction := seedAuction(t, store, domain.StatusActive, "100", nil)
	_, err := uc.Execute(context.Background(), PlaceBidDTO{AuctionID: auction.ID, BidderID: uuid.New(), Amount: dec(t, "100")})
	require.NoError(t, err)

	const racers = 16
	var wg sync.WaitGroup
	results := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Execute(context.Background(), PlaceBidDTO{
				AuctionID: auction.ID,
				BidderID:  uuid.New(),
				Amount:    dec(t, "150"),
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins, losses := 0, 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		losses++
		require.True(t,
			errors.Is(err, domain.ErrConcurrencyConflict) || errors.Is(err, domain.ErrBidTooLow),
			"unexpected loss reason: %v", err)
	}
	require.Equal(t, 1, wins)
	require.Equal(t, racers-1, losses)

	stored, err := store.GetByID(context.Background(), auction.ID)
	require.NoError(t, err)
	require.Equal(t, 2, stored.BidCount)
	require.True(t, stored.CurrentBid.Equal(dec(t, "150")))

	bids, err := store.ListByAuction(context.Background(), auction.ID)
	require.NoError(t, err)
	require.Len(t, bids, 2)
}

// Losers that retry against the refreshed price all eventually land, and the
// ledger stays strictly increasing.
func TestPlaceBid_RetryAfterConflict(t *testing.T) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	clk := clock.NewManual(baseTime.Add(time.Minute))
	uc := newPlaceBidUC(store, notifier, clk)

	auction := seedAuction(t, store, domain.StatusActive, "0", nil)

	const bidders = 8
	var wg sync.WaitGroup
	unexpected := make(chan error, bidders)
	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bidder := uuid.New()
			for {
				state, err := store.GetByID(context.Background(), auction.ID)
				if err != nil {
					unexpected <- err
					return
				}
				amount := state.MinNextBid(decimal.NewFromInt(1)).Add(decimal.NewFromInt(1))
				_, err = uc.Execute(context.Background(), PlaceBidDTO{AuctionID: auction.ID, BidderID: bidder, Amount: amount})
				if err == nil {
					return
				}
				if !errors.Is(err, domain.ErrConcurrencyConflict) && !errors.Is(err, domain.ErrBidTooLow) {
					unexpected <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(unexpected)
	for err := range unexpected {
		require.NoError(t, err)
	}

	bids, err := store.ListByAuction(context.Background(), auction.ID)
	require.NoError(t, err)
	require.Len(t, bids, bidders)
	for i := 1; i < len(bids); i++ {
		require.True(t, bids[i].Amount.GreaterThan(bids[i-1].Amount))
	}

	stored, err := store.GetByID(context.Background(), auction.ID)
	require.NoError(t, err)
	require.Equal(t, bidders, stored.BidCount)
	require.True(t, stored.CurrentBid.Equal(bids[len(bids)-1].Amount))
}
