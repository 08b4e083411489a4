package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bidhaus/auction-engine/internal/auction/domain"
	"github.com/bidhaus/auction-engine/internal/shared/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ResolveWinnerUseCase turns an ended auction into a binding sale exactly
// once. It is safe to deliver the same auction twice, concurrently or not:
// the unique win row makes every run after the first a no-op.
type ResolveWinnerUseCase struct {
	auctionRepo domain.AuctionRepository
	bidRepo     domain.BidRepository
	winRepo     domain.WinRepository
	gateway     domain.PaymentGateway
	orders      domain.OrderService
	notifier    domain.Notifier
	clock       clock.Clock

	captureRetries int
	captureBackoff time.Duration
	captures       sync.WaitGroup
}

func NewResolveWinnerUseCase(
	auctionRepo domain.AuctionRepository,
	bidRepo domain.BidRepository,
	winRepo domain.WinRepository,
	gateway domain.PaymentGateway,
	orders domain.OrderService,
	notifier domain.Notifier,
	clk clock.Clock,
	captureRetries int,
) *ResolveWinnerUseCase {
	return &ResolveWinnerUseCase{
		auctionRepo:    auctionRepo,
		bidRepo:        bidRepo,
		winRepo:        winRepo,
		gateway:        gateway,
		orders:         orders,
		notifier:       notifier,
		clock:          clk,
		captureRetries: captureRetries,
		captureBackoff: 2 * time.Second,
	}
}

func (uc *ResolveWinnerUseCase) Execute(ctx context.Context, auctionID uuid.UUID) error {
	existing, err := uc.winRepo.GetByAuctionID(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("resolve winner: check existing win for %s: %w", auctionID, err)
	}
	if existing != nil {
		log.Debug("auction already settled", zap.String("auctionID", auctionID.String()))
		return nil
	}

	auction, err := uc.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("resolve winner: load auction %s: %w", auctionID, err)
	}
	if auction.Status != domain.StatusEnded {
		return fmt.Errorf("resolve winner: auction %s has status %s: %w", auctionID, auction.Status, domain.ErrInvalidState)
	}

	if auction.BidCount == 0 || !auction.ReserveMet() {
		log.Info("auction ended with no winner",
			zap.String("auctionID", auctionID.String()),
			zap.Int("bidCount", auction.BidCount),
			zap.Bool("reserveMet", auction.ReserveMet()),
		)
		return nil
	}

	winning, err := uc.bidRepo.GetWinningBid(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("resolve winner: read winning bid for %s: %w", auctionID, err)
	}
	if winning == nil {
		return fmt.Errorf("resolve winner: auction %s has bid_count %d but no winning bid", auctionID, auction.BidCount)
	}

	win := domain.NewAuctionWin(uuid.New(), auctionID, winning.BidderID, *auction.CurrentBid)
	created, err := uc.winRepo.RecordSettlement(ctx, win)
	if err != nil {
		return fmt.Errorf("resolve winner: record settlement for %s: %w", auctionID, err)
	}
	if !created {
		// A concurrent delivery settled first.
		log.Debug("settlement lost to concurrent resolver", zap.String("auctionID", auctionID.String()))
		return nil
	}

	log.Info("auction settled",
		zap.String("auctionID", auctionID.String()),
		zap.String("winnerID", winning.BidderID.String()),
		zap.String("winningAmount", win.WinningAmount.String()),
	)

	// Payment capture happens strictly after the settlement commit and never
	// blocks or reverts it; a decline leaves the win pending_payment.
	uc.captures.Add(1)
	go func() {
		defer uc.captures.Done()
		uc.capturePayment(context.Background(), win, winning)
	}()

	return nil
}

// WaitForPayments blocks until every in-flight capture finishes. Used on
// shutdown so a decline/notify is not lost mid-flight.
func (uc *ResolveWinnerUseCase) WaitForPayments() {
	uc.captures.Wait()
}

func (uc *ResolveWinnerUseCase) capturePayment(ctx context.Context, win *domain.AuctionWin, winning *domain.Bid) {
	if winning.PaymentMethodRef == nil {
		uc.notifyWinner(ctx, win, domain.EventPaymentRequired)
		return
	}

	var err error
	backoff := uc.captureBackoff
	for attempt := 0; attempt < uc.captureRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}
		err = uc.gateway.Capture(ctx, *winning.PaymentMethodRef, win.WinningAmount)
		if err == nil || errors.Is(err, domain.ErrPaymentDeclined) {
			break
		}
		log.Warn("payment capture attempt failed",
			zap.String("auctionID", win.AuctionID.String()),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}

	if err != nil {
		log.Warn("payment capture did not complete, win stays pending payment",
			zap.String("auctionID", win.AuctionID.String()),
			zap.String("winID", win.ID.String()),
			zap.Error(err),
		)
		uc.notifyWinner(ctx, win, domain.EventPaymentRequired)
		return
	}

	paidAt := uc.clock.Now()
	if err := uc.winRepo.MarkPaid(ctx, win.ID, paidAt); err != nil {
		log.Error("failed to mark win paid after successful capture",
			zap.String("winID", win.ID.String()),
			zap.Error(err),
		)
		return
	}

	orderID, err := uc.orders.CreateOrder(ctx, win.ID)
	if err != nil {
		// The order service is retried by its own reconciliation; the win is
		// already paid and must not be rolled back.
		log.Error("order creation failed for paid win",
			zap.String("winID", win.ID.String()),
			zap.Error(err),
		)
	} else if err := uc.winRepo.SetOrderID(ctx, win.ID, orderID); err != nil {
		log.Error("failed to attach order to win",
			zap.String("winID", win.ID.String()),
			zap.String("orderID", orderID.String()),
			zap.Error(err),
		)
	}

	uc.notifyWinner(ctx, win, domain.EventAuctionWon)
}

func (uc *ResolveWinnerUseCase) notifyWinner(ctx context.Context, win *domain.AuctionWin, eventType domain.EventType) {
	event := domain.Event{
		Type:      eventType,
		AuctionID: win.AuctionID,
		Amount:    win.WinningAmount,
		DedupKey:  win.ID.String() + ":" + string(eventType),
	}
	if err := uc.notifier.Notify(ctx, win.UserID, event); err != nil {
		log.Warn("winner notification failed",
			zap.String("winID", win.ID.String()),
			zap.String("event", string(eventType)),
			zap.Error(err),
		)
	}
}
