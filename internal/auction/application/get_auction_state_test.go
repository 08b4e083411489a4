package application

import (
	"context"
	"testing"
	"time"

	"github.com/bidhaus/auction-engine/internal/auction/domain"
	"github.com/bidhaus/auction-engine/internal/shared/clock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newStateUC(store *memStore) *GetAuctionStateUseCase {
	return NewGetAuctionStateUseCase(store, store, store, decimal.NewFromInt(1))
}

func TestGetAuctionState(t *testing.T) {
	store := newMemStore()
	uc := newStateUC(store)
	ctx := context.Background()

	auction := seedAuction(t, store, domain.StatusActive, "100", decPtr(t, "300"))

	state, err := uc.Execute(ctx, auction.ID)
	require.NoError(t, err)
	require.Equal(t, auction.ID, state.AuctionID)
	require.Equal(t, "active", state.Status)
	require.Nil(t, state.CurrentBid)
	require.True(t, state.MinNextBid.Equal(dec(t, "100")), "min next bid is the starting bid before any bid")

	bid := domain.NewBid(uuid.New(), auction.ID, uuid.New(), dec(t, "120"), nil, baseTime.Add(time.Minute))
	require.NoError(t, store.CommitBid(ctx, bid, nil))

	state, err = uc.Execute(ctx, auction.ID)
	require.NoError(t, err)
	require.NotNil(t, state.CurrentBid)
	require.True(t, state.CurrentBid.Equal(dec(t, "120")))
	require.True(t, state.MinNextBid.Equal(dec(t, "121")))
	require.Equal(t, 1, state.BidCount)

	_, err = uc.Execute(ctx, uuid.New())
	require.ErrorIs(t, err, domain.ErrAuctionNotFound)
}

func TestListBids(t *testing.T) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	clk := clock.NewManual(baseTime.Add(time.Minute))
	placeUC := newPlaceBidUC(store, notifier, clk)
	uc := newStateUC(store)
	ctx := context.Background()

	auction := seedAuction(t, store, domain.StatusActive, "10", nil)
	for _, amt := range []string{"10", "12", "14"} {
		_, err := placeUC.Execute(ctx, PlaceBidDTO{AuctionID: auction.ID, BidderID: uuid.New(), Amount: dec(t, amt)})
		require.NoError(t, err)
	}

	bids, err := uc.ListBids(ctx, auction.ID)
	require.NoError(t, err)
	require.Len(t, bids, 3)
	require.True(t, bids[2].IsWinning)
	require.False(t, bids[0].IsWinning)
	require.False(t, bids[1].IsWinning)

	_, err = uc.ListBids(ctx, uuid.New())
	require.ErrorIs(t, err, domain.ErrAuctionNotFound)
}

func TestGetWin(t *testing.T) {
	store := newMemStore()
	uc := newStateUC(store)
	ctx := context.Background()

	auction := seedAuction(t, store, domain.StatusEnded, "100", nil)

	// Unsettled auctions have no win, and that is not an error.
	win, err := uc.GetWin(ctx, auction.ID)
	require.NoError(t, err)
	require.Nil(t, win)

	userID := uuid.New()
	record := domain.NewAuctionWin(uuid.New(), auction.ID, userID, dec(t, "180"))
	created, err := store.RecordSettlement(ctx, record)
	require.NoError(t, err)
	require.True(t, created)

	win, err = uc.GetWin(ctx, auction.ID)
	require.NoError(t, err)
	require.NotNil(t, win)
	require.Equal(t, userID, win.UserID)
	require.Equal(t, string(domain.WinPendingPayment), win.Status)
	require.True(t, win.WinningAmount.Equal(dec(t, "180")))
}

func TestListWinsByUser(t *testing.T) {
	store := newMemStore()
	uc := newStateUC(store)
	ctx := context.Background()

	userID := uuid.New()
	for i := 0; i < 2; i++ {
		a := seedAuction(t, store, domain.StatusEnded, "100", nil)
		_, err := store.RecordSettlement(ctx, domain.NewAuctionWin(uuid.New(), a.ID, userID, dec(t, "150")))
		require.NoError(t, err)
	}
	other := seedAuction(t, store, domain.StatusEnded, "100", nil)
	_, err := store.RecordSettlement(ctx, domain.NewAuctionWin(uuid.New(), other.ID, uuid.New(), dec(t, "150")))
	require.NoError(t, err)

	wins, err := uc.ListWinsByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, wins, 2)

	wins, err = uc.ListWinsByUser(ctx, uuid.New())
	require.NoError(t, err)
	require.Empty(t, wins)
}
