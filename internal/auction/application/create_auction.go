package application

import (
	"context"
	"fmt"
	"time"

	"github.com/bidhaus/auction-engine/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateAuctionDTO is the input supplied by the vendor/catalog collaborator.
type CreateAuctionDTO struct {
	SubjectKind  string
	SubjectID    string
	VendorID     uuid.UUID
	StartingBid  decimal.Decimal
	ReservePrice *decimal.Decimal
	StartsAt     time.Time
	EndsAt       time.Time
}

// CreateAuctionUseCase registers a new upcoming auction. The scheduler takes
// over its lifecycle from there.
type CreateAuctionUseCase struct {
	auctionRepo domain.AuctionRepository
}

func NewCreateAuctionUseCase(auctionRepo domain.AuctionRepository) *CreateAuctionUseCase {
	return &CreateAuctionUseCase{auctionRepo: auctionRepo}
}

func (uc *CreateAuctionUseCase) Execute(ctx context.Context, cmd CreateAuctionDTO) (*AuctionStateDTO, error) {
	subject := domain.Subject{Kind: domain.SubjectKind(cmd.SubjectKind), ID: cmd.SubjectID}
	auction, err := domain.NewAuction(uuid.New(), subject, cmd.VendorID, cmd.StartingBid, cmd.ReservePrice, cmd.StartsAt, cmd.EndsAt)
	if err != nil {
		return nil, fmt.Errorf("create auction: %w", err)
	}

	if err := uc.auctionRepo.Create(ctx, auction); err != nil {
		return nil, fmt.Errorf("create auction: persist: %w", err)
	}

	log.Info("auction created",
		zap.String("auctionID", auction.ID.String()),
		zap.String("subjectKind", string(auction.Subject.Kind)),
		zap.String("vendorID", auction.VendorID.String()),
		zap.Time("startsAt", auction.StartsAt),
		zap.Time("endsAt", auction.EndsAt),
	)
	return toStateDTO(auction, decimal.Zero), nil
}
