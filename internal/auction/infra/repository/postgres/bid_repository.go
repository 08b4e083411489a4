package postgres

import (
	"context"
	"errors"

	"github.com/bidhaus/auction-engine/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BidRepository implements domain.BidRepository. Bid inserts happen inside
// AuctionRepository.CommitBid; this repository only reads the ledger.
type BidRepository struct {
	pool *pgxpool.Pool
}

func NewBidRepository(pool *pgxpool.Pool) *BidRepository {
	return &BidRepository{pool: pool}
}

const bidColumns = `id, auction_id, bidder_id, amount, payment_method_ref, is_winning, placed_at`

func (r *BidRepository) GetWinningBid(ctx context.Context, auctionID uuid.UUID) (*domain.Bid, error) {
	row := r.pool.QueryRow(ctx, `
        SELECT `+bidColumns+` FROM bids
        WHERE auction_id = $1 AND is_winning
    `, auctionID)

	bid, err := scanBid(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return bid, nil
}

func (r *BidRepository) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*domain.Bid, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT `+bidColumns+` FROM bids
        WHERE auction_id = $1
        ORDER BY placed_at ASC, amount ASC
    `, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, bid)
	}
	return bids, rows.Err()
}

func scanBid(row pgx.Row) (*domain.Bid, error) {
	bid := &domain.Bid{}
	var paymentMethodRef *string
	err := row.Scan(
		&bid.ID,
		&bid.AuctionID,
		&bid.BidderID,
		&bid.Amount,
		&paymentMethodRef,
		&bid.IsWinning,
		&bid.PlacedAt,
	)
	if err != nil {
		return nil, err
	}
	bid.PaymentMethodRef = paymentMethodRef
	return bid, nil
}
