package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/bidhaus/auction-engine/internal/auction/domain"
	"github.com/bidhaus/auction-engine/internal/shared/clock"
	"github.com/bidhaus/auction-engine/internal/shared/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// PlaceBidDTO carries the input for a single bid attempt.
type PlaceBidDTO struct {
	AuctionID        uuid.UUID
	BidderID         uuid.UUID
	Amount           decimal.Decimal
	PaymentMethodRef *string
}

// BidReceipt is returned to the bidder after a successful commit.
type BidReceipt struct {
	BidID      uuid.UUID       `json:"bid_id"`
	CurrentBid decimal.Decimal `json:"current_bid"`
	IsWinning  bool            `json:"is_winning"`
}

// PlaceBidUseCase validates and atomically commits one bid against an
// auction. Contention between concurrent bidders is resolved by the store's
// conditional write; losers get ErrConcurrencyConflict and retry with the
// refreshed price.
type PlaceBidUseCase struct {
	auctionRepo  domain.AuctionRepository
	bidRepo      domain.BidRepository
	notifier     domain.Notifier
	clock        clock.Clock
	minIncrement decimal.Decimal
}

func NewPlaceBidUseCase(auctionRepo domain.AuctionRepository, bidRepo domain.BidRepository, notifier domain.Notifier, clk clock.Clock, minIncrement decimal.Decimal) *PlaceBidUseCase {
	return &PlaceBidUseCase{
		auctionRepo:  auctionRepo,
		bidRepo:      bidRepo,
		notifier:     notifier,
		clock:        clk,
		minIncrement: minIncrement,
	}
}

func (uc *PlaceBidUseCase) Execute(ctx context.Context, cmd PlaceBidDTO) (*BidReceipt, error) {
	if !cmd.Amount.IsPositive() {
		return nil, fmt.Errorf("place bid: %w", domain.ErrInvalidAmount)
	}

	auction, err := uc.auctionRepo.GetByID(ctx, cmd.AuctionID)
	if err != nil {
		return nil, fmt.Errorf("place bid: load auction %s: %w", cmd.AuctionID, err)
	}

	now := uc.clock.Now()
	if err := auction.ValidateBid(cmd.Amount, now, uc.minIncrement); err != nil {
		log.Warn("bid rejected",
			zap.String("auctionID", auction.ID.String()),
			zap.String("bidderID", cmd.BidderID.String()),
			zap.String("amount", cmd.Amount.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("place bid: auction %s: %w", cmd.AuctionID, err)
	}

	// The current top bidder, read in the same snapshot as expectedCurrent;
	// notified only after the commit that outbids them succeeds.
	prevWinning, err := uc.bidRepo.GetWinningBid(ctx, cmd.AuctionID)
	if err != nil {
		return nil, fmt.Errorf("place bid: read winning bid for %s: %w", cmd.AuctionID, err)
	}

	bid := domain.NewBid(uuid.New(), cmd.AuctionID, cmd.BidderID, cmd.Amount, cmd.PaymentMethodRef, now)
	if err := uc.auctionRepo.CommitBid(ctx, bid, auction.CurrentBid); err != nil {
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			log.Info("bid lost commit race",
				zap.String("auctionID", auction.ID.String()),
				zap.String("bidderID", cmd.BidderID.String()),
				zap.String("amount", cmd.Amount.String()),
			)
		}
		return nil, fmt.Errorf("place bid: commit for auction %s: %w", cmd.AuctionID, err)
	}

	log.Info("bid placed",
		zap.String("auctionID", auction.ID.String()),
		zap.String("bidID", bid.ID.String()),
		zap.String("bidderID", cmd.BidderID.String()),
		zap.String("amount", cmd.Amount.String()),
	)

	if prevWinning != nil && prevWinning.BidderID != cmd.BidderID {
		uc.notifyOutbid(prevWinning, bid)
	}

	return &BidReceipt{
		BidID:      bid.ID,
		CurrentBid: bid.Amount,
		IsWinning:  true,
	}, nil
}

// notifyOutbid dispatches the at-least-once outbid notification without ever
// blocking the committed bid. Failures are logged and left to the consumer's
// dedup/retry machinery.
func (uc *PlaceBidUseCase) notifyOutbid(prev, winner *domain.Bid) {
	event := domain.Event{
		Type:      domain.EventOutbid,
		AuctionID: winner.AuctionID,
		Amount:    winner.Amount,
		DedupKey:  winner.ID.String(),
	}
	go func() {
		if err := uc.notifier.Notify(context.Background(), prev.BidderID, event); err != nil {
			log.Warn("outbid notification failed",
				zap.String("auctionID", winner.AuctionID.String()),
				zap.String("outbidUserID", prev.BidderID.String()),
				zap.Error(err),
			)
		}
	}()
}
