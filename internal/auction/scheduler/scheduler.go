package scheduler

import (
	"context"
	"time"

	"github.com/bidhaus/auction-engine/internal/auction/application"
	"github.com/bidhaus/auction-engine/internal/auction/domain"
	"github.com/bidhaus/auction-engine/internal/shared/logger"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// claimBatch caps how many settlement tasks one dispatcher pass takes.
const claimBatch = 50

// Scheduler owns the two recurring loops of the engine: the status sweep
// that moves auctions through their lifecycle, and the settlement dispatcher
// that drains the outbox into winner resolution. Both loops are idempotent,
// so several replicas can run them concurrently without coordination.
type Scheduler struct {
	service application.AuctionService
	queue   domain.SettlementQueue

	sweepInterval  time.Duration
	settleInterval time.Duration
}

func New(service application.AuctionService, queue domain.SettlementQueue, sweepInterval, settleInterval time.Duration) *Scheduler {
	return &Scheduler{
		service:        service,
		queue:          queue,
		sweepInterval:  sweepInterval,
		settleInterval: settleInterval,
	}
}

// Run blocks until ctx is cancelled, driving both loops.
func (s *Scheduler) Run(ctx context.Context) {
	go s.runSweepLoop(ctx)
	s.runSettleLoop(ctx)
}

func (s *Scheduler) runSweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	log.Info("status sweep loop started", zap.Duration("interval", s.sweepInterval))
	for {
		select {
		case <-ctx.Done():
			log.Info("status sweep loop stopped")
			return
		case <-ticker.C:
			// A failed tick leaves state untouched; the next timer fire
			// retries the same predicates.
			if _, err := s.service.RunStatusSweep(ctx); err != nil {
				log.Error("status sweep tick failed", zap.Error(err))
			}
		}
	}
}

func (s *Scheduler) runSettleLoop(ctx context.Context) {
	ticker := time.NewTicker(s.settleInterval)
	defer ticker.Stop()

	log.Info("settlement dispatcher started", zap.Duration("interval", s.settleInterval))
	for {
		select {
		case <-ctx.Done():
			log.Info("settlement dispatcher stopped")
			return
		case <-ticker.C:
			s.dispatchSettlements(ctx)
		}
	}
}

func (s *Scheduler) dispatchSettlements(ctx context.Context) {
	ids, err := s.queue.ClaimPending(ctx, claimBatch)
	if err != nil {
		log.Error("failed to claim settlement tasks", zap.Error(err))
		return
	}

	for _, auctionID := range ids {
		if err := s.service.ResolveWinner(ctx, auctionID); err != nil {
			// Left pending; the next pass re-claims it.
			log.Error("winner resolution failed",
				zap.String("auctionID", auctionID.String()),
				zap.Error(err),
			)
			continue
		}
		if err := s.queue.MarkDone(ctx, auctionID); err != nil {
			// Resolution is idempotent, so a re-delivery after this failure
			// is harmless.
			log.Warn("failed to mark settlement task done",
				zap.String("auctionID", auctionID.String()),
				zap.Error(err),
			)
		}
	}
}
