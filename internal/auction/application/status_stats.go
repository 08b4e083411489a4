package application

import (
	"context"
	"fmt"

	"github.com/bidhaus/auction-engine/internal/auction/domain"
	"go.uber.org/zap"
)

// StatsCache is a short-TTL cache for the status histogram, so dashboard
// polling does not hammer the store. A miss or cache failure falls through to
// the store.
type StatsCache interface {
	GetStatusStats(ctx context.Context) (map[domain.Status]int, bool)
	SetStatusStats(ctx context.Context, stats map[domain.Status]int)
}

// GetStatusStatsUseCase returns the auction count per lifecycle status.
type GetStatusStatsUseCase struct {
	auctionRepo domain.AuctionRepository
	cache       StatsCache
}

// NewGetStatusStatsUseCase builds the use case; cache may be nil.
func NewGetStatusStatsUseCase(auctionRepo domain.AuctionRepository, cache StatsCache) *GetStatusStatsUseCase {
	return &GetStatusStatsUseCase{auctionRepo: auctionRepo, cache: cache}
}

func (uc *GetStatusStatsUseCase) Execute(ctx context.Context) (map[domain.Status]int, error) {
	if uc.cache != nil {
		if stats, ok := uc.cache.GetStatusStats(ctx); ok {
			return stats, nil
		}
	}

	stats, err := uc.auctionRepo.StatusCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("status stats: %w", err)
	}

	if uc.cache != nil {
		uc.cache.SetStatusStats(ctx, stats)
	}

	log.Debug("status stats computed", zap.Int("statuses", len(stats)))
	return stats, nil
}
