package application

import (
	"context"

	"github.com/bidhaus/auction-engine/internal/auction/domain"
	"github.com/google/uuid"
)

// AuctionService is the application interface of the auction module, exposed
// to the transport layers (HTTP, websocket) and the scheduler.
type AuctionService interface {
	CreateAuction(ctx context.Context, cmd CreateAuctionDTO) (*AuctionStateDTO, error)
	PlaceBid(ctx context.Context, cmd PlaceBidDTO) (*BidReceipt, error)
	GetAuctionState(ctx context.Context, auctionID uuid.UUID) (*AuctionStateDTO, error)
	ListBids(ctx context.Context, auctionID uuid.UUID) ([]BidDTO, error)
	GetWin(ctx context.Context, auctionID uuid.UUID) (*WinDTO, error)
	ListWinsByUser(ctx context.Context, userID uuid.UUID) ([]WinDTO, error)
	CancelAuction(ctx context.Context, auctionID uuid.UUID) error
	RunStatusSweep(ctx context.Context) (*SweepResult, error)
	ResolveWinner(ctx context.Context, auctionID uuid.UUID) error
	GetStatusStats(ctx context.Context) (map[domain.Status]int, error)
}

type auctionService struct {
	createUC        *CreateAuctionUseCase
	placeBidUC      *PlaceBidUseCase
	getStateUC      *GetAuctionStateUseCase
	cancelUC        *CancelAuctionUseCase
	sweepUC         *StatusSweepUseCase
	resolveWinnerUC *ResolveWinnerUseCase
	statsUC         *GetStatusStatsUseCase
}

func NewAuctionService(
	createUC *CreateAuctionUseCase,
	placeBidUC *PlaceBidUseCase,
	getStateUC *GetAuctionStateUseCase,
	cancelUC *CancelAuctionUseCase,
	sweepUC *StatusSweepUseCase,
	resolveWinnerUC *ResolveWinnerUseCase,
	statsUC *GetStatusStatsUseCase,
) AuctionService {
	return &auctionService{
		createUC:        createUC,
		placeBidUC:      placeBidUC,
		getStateUC:      getStateUC,
		cancelUC:        cancelUC,
		sweepUC:         sweepUC,
		resolveWinnerUC: resolveWinnerUC,
		statsUC:         statsUC,
	}
}

func (s *auctionService) CreateAuction(ctx context.Context, cmd CreateAuctionDTO) (*AuctionStateDTO, error) {
	return s.createUC.Execute(ctx, cmd)
}

func (s *auctionService) PlaceBid(ctx context.Context, cmd PlaceBidDTO) (*BidReceipt, error) {
	return s.placeBidUC.Execute(ctx, cmd)
}

func (s *auctionService) GetAuctionState(ctx context.Context, auctionID uuid.UUID) (*AuctionStateDTO, error) {
	return s.getStateUC.Execute(ctx, auctionID)
}

func (s *auctionService) ListBids(ctx context.Context, auctionID uuid.UUID) ([]BidDTO, error) {
	return s.getStateUC.ListBids(ctx, auctionID)
}

func (s *auctionService) GetWin(ctx context.Context, auctionID uuid.UUID) (*WinDTO, error) {
	return s.getStateUC.GetWin(ctx, auctionID)
}

func (s *auctionService) ListWinsByUser(ctx context.Context, userID uuid.UUID) ([]WinDTO, error) {
	return s.getStateUC.ListWinsByUser(ctx, userID)
}

func (s *auctionService) CancelAuction(ctx context.Context, auctionID uuid.UUID) error {
	return s.cancelUC.Execute(ctx, auctionID)
}

func (s *auctionService) RunStatusSweep(ctx context.Context) (*SweepResult, error) {
	return s.sweepUC.Execute(ctx)
}

func (s *auctionService) ResolveWinner(ctx context.Context, auctionID uuid.UUID) error {
	return s.resolveWinnerUC.Execute(ctx, auctionID)
}

func (s *auctionService) GetStatusStats(ctx context.Context) (map[domain.Status]int, error) {
	return s.statsUC.Execute(ctx)
}
