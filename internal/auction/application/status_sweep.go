package application

import (
	"context"
	"fmt"

	"github.com/bidhaus/auction-engine/internal/auction/domain"
	"github.com/bidhaus/auction-engine/internal/shared/clock"
	"go.uber.org/zap"
)

// SweepResult reports what one status sweep tick changed.
type SweepResult struct {
	Activated int `json:"activated"`
	Ended     int `json:"ended"`
}

// StatusSweepUseCase advances auctions between lifecycle states based on
// wall-clock time. Both transitions are conditional on the current state, so
// re-running a tick, or running it from several replicas, changes nothing.
type StatusSweepUseCase struct {
	auctionRepo domain.AuctionRepository
	clock       clock.Clock
}

func NewStatusSweepUseCase(auctionRepo domain.AuctionRepository, clk clock.Clock) *StatusSweepUseCase {
	return &StatusSweepUseCase{auctionRepo: auctionRepo, clock: clk}
}

func (uc *StatusSweepUseCase) Execute(ctx context.Context) (*SweepResult, error) {
	now := uc.clock.Now()
	activated, ended, err := uc.auctionRepo.Sweep(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("status sweep: %w", err)
	}

	if activated > 0 || len(ended) > 0 {
		log.Info("status sweep applied",
			zap.Int("activated", activated),
			zap.Int("ended", len(ended)),
			zap.Time("now", now),
		)
	}

	return &SweepResult{Activated: activated, Ended: len(ended)}, nil
}
