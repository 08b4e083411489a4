package application

import (
	"context"
	"fmt"

	"github.com/bidhaus/auction-engine/internal/auction/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CancelAuctionUseCase applies the explicit cancel transition. Only upcoming
// and active auctions can be cancelled; terminal auctions are rejected, never
// silently ignored. The bid ledger is kept for audit.
type CancelAuctionUseCase struct {
	auctionRepo domain.AuctionRepository
}

func NewCancelAuctionUseCase(auctionRepo domain.AuctionRepository) *CancelAuctionUseCase {
	return &CancelAuctionUseCase{auctionRepo: auctionRepo}
}

func (uc *CancelAuctionUseCase) Execute(ctx context.Context, auctionID uuid.UUID) error {
	auction, err := uc.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("cancel auction: load %s: %w", auctionID, err)
	}

	if !domain.CanTransition(auction.Status, domain.StatusCancelled) {
		return fmt.Errorf("cancel auction: %s has status %s: %w", auctionID, auction.Status, domain.ErrInvalidState)
	}

	if err := uc.auctionRepo.UpdateStatus(ctx, auctionID, auction.Status, domain.StatusCancelled); err != nil {
		return fmt.Errorf("cancel auction: %s: %w", auctionID, err)
	}

	log.Info("auction cancelled",
		zap.String("auctionID", auctionID.String()),
		zap.String("from", string(auction.Status)),
	)
	return nil
}
