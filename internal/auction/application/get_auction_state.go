package application

import (
	"context"
	"fmt"
	"time"

	"github.com/bidhaus/auction-engine/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuctionStateDTO exposes an auction's state to dashboards, catalog pages
// and the websocket feed.
type AuctionStateDTO struct {
	AuctionID    uuid.UUID        `json:"auction_id"`
	SubjectKind  string           `json:"subject_kind"`
	SubjectID    string           `json:"subject_id"`
	VendorID     uuid.UUID        `json:"vendor_id"`
	StartingBid  decimal.Decimal  `json:"starting_bid"`
	CurrentBid   *decimal.Decimal `json:"current_bid,omitempty"`
	ReservePrice *decimal.Decimal `json:"reserve_price,omitempty"`
	BidCount     int              `json:"bid_count"`
	StartsAt     time.Time        `json:"starts_at"`
	EndsAt       time.Time        `json:"ends_at"`
	Status       string           `json:"status"`
	WinnerID     *uuid.UUID       `json:"winner_id,omitempty"`
	MinNextBid   decimal.Decimal  `json:"min_next_bid"`
}

// BidDTO is a read model of a committed bid.
type BidDTO struct {
	BidID     uuid.UUID       `json:"bid_id"`
	BidderID  uuid.UUID       `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	IsWinning bool            `json:"is_winning"`
	PlacedAt  time.Time       `json:"placed_at"`
}

// WinDTO is a read model of a settled auction win.
type WinDTO struct {
	WinID         uuid.UUID       `json:"win_id"`
	AuctionID     uuid.UUID       `json:"auction_id"`
	UserID        uuid.UUID       `json:"user_id"`
	WinningAmount decimal.Decimal `json:"winning_amount"`
	OrderID       *uuid.UUID      `json:"order_id,omitempty"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	Status        string          `json:"status"`
}

// GetAuctionStateUseCase serves the read accessors consumed by external
// collaborators. All reads go through the store; nothing here mutates state.
type GetAuctionStateUseCase struct {
	auctionRepo  domain.AuctionRepository
	bidRepo      domain.BidRepository
	winRepo      domain.WinRepository
	minIncrement decimal.Decimal
}

func NewGetAuctionStateUseCase(auctionRepo domain.AuctionRepository, bidRepo domain.BidRepository, winRepo domain.WinRepository, minIncrement decimal.Decimal) *GetAuctionStateUseCase {
	return &GetAuctionStateUseCase{
		auctionRepo:  auctionRepo,
		bidRepo:      bidRepo,
		winRepo:      winRepo,
		minIncrement: minIncrement,
	}
}

func (uc *GetAuctionStateUseCase) Execute(ctx context.Context, auctionID uuid.UUID) (*AuctionStateDTO, error) {
	auction, err := uc.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	return toStateDTO(auction, uc.minIncrement), nil
}

func (uc *GetAuctionStateUseCase) ListBids(ctx context.Context, auctionID uuid.UUID) ([]BidDTO, error) {
	if _, err := uc.auctionRepo.GetByID(ctx, auctionID); err != nil {
		return nil, err
	}
	bids, err := uc.bidRepo.ListByAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("list bids for %s: %w", auctionID, err)
	}
	out := make([]BidDTO, 0, len(bids))
	for _, b := range bids {
		out = append(out, BidDTO{
			BidID:     b.ID,
			BidderID:  b.BidderID,
			Amount:    b.Amount,
			IsWinning: b.IsWinning,
			PlacedAt:  b.PlacedAt,
		})
	}
	return out, nil
}

// GetWin returns the settlement record, or nil when the auction has not been
// settled (or ended with no winner).
func (uc *GetAuctionStateUseCase) GetWin(ctx context.Context, auctionID uuid.UUID) (*WinDTO, error) {
	win, err := uc.winRepo.GetByAuctionID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if win == nil {
		return nil, nil
	}
	dto := toWinDTO(win)
	return &dto, nil
}

func (uc *GetAuctionStateUseCase) ListWinsByUser(ctx context.Context, userID uuid.UUID) ([]WinDTO, error) {
	wins, err := uc.winRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list wins for user %s: %w", userID, err)
	}
	out := make([]WinDTO, 0, len(wins))
	for _, w := range wins {
		out = append(out, toWinDTO(w))
	}
	return out, nil
}

func toStateDTO(a *domain.Auction, minIncrement decimal.Decimal) *AuctionStateDTO {
	return &AuctionStateDTO{
		AuctionID:    a.ID,
		SubjectKind:  string(a.Subject.Kind),
		SubjectID:    a.Subject.ID,
		VendorID:     a.VendorID,
		StartingBid:  a.StartingBid,
		CurrentBid:   a.CurrentBid,
		ReservePrice: a.ReservePrice,
		BidCount:     a.BidCount,
		StartsAt:     a.StartsAt,
		EndsAt:       a.EndsAt,
		Status:       string(a.Status),
		WinnerID:     a.WinnerID,
		MinNextBid:   a.MinNextBid(minIncrement),
	}
}

func toWinDTO(w *domain.AuctionWin) WinDTO {
	return WinDTO{
		WinID:         w.ID,
		AuctionID:     w.AuctionID,
		UserID:        w.UserID,
		WinningAmount: w.WinningAmount,
		OrderID:       w.OrderID,
		PaidAt:        w.PaidAt,
		Status:        string(w.Status),
	}
}
