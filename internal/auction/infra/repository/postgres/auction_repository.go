package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bidhaus/auction-engine/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// AuctionRepository implements domain.AuctionRepository on PostgreSQL. All
// multi-row operations run inside a single transaction; the bid commit and
// the status sweep are conditional writes so concurrent racers cannot apply
// the same transition twice.
type AuctionRepository struct {
	pool *pgxpool.Pool
}

func NewAuctionRepository(pool *pgxpool.Pool) *AuctionRepository {
	return &AuctionRepository{pool: pool}
}

const auctionColumns = `id, subject_kind, subject_id, vendor_id, starting_bid, current_bid,
        reserve_price, bid_count, starts_at, ends_at, status, winner_id, created_at, updated_at`

func (r *AuctionRepository) Create(ctx context.Context, a *domain.Auction) error {
	query := `
        INSERT INTO auctions (id, subject_kind, subject_id, vendor_id, starting_bid, current_bid,
            reserve_price, bid_count, starts_at, ends_at, status, winner_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `
	_, err := r.pool.Exec(ctx, query,
		a.ID,
		a.Subject.Kind,
		a.Subject.ID,
		a.VendorID,
		a.StartingBid,
		nullDecimal(a.CurrentBid),
		nullDecimal(a.ReservePrice),
		a.BidCount,
		a.StartsAt,
		a.EndsAt,
		a.Status,
		nullUUID(a.WinnerID),
	)
	return err
}

func (r *AuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE id = $1`, id)
	return scanAuction(row)
}

func (r *AuctionRepository) CommitBid(ctx context.Context, bid *domain.Bid, expectedCurrent *decimal.Decimal) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin bid commit: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Conditional advance of the price: zero rows means the auction either
	// left the active state or another bid moved current_bid past the value
	// this bidder read.
	var ct int64
	if expectedCurrent == nil {
		res, execErr := tx.Exec(ctx, `
            UPDATE auctions
            SET current_bid = $1, bid_count = bid_count + 1, updated_at = NOW()
            WHERE id = $2 AND status = 'active' AND current_bid IS NULL
        `, bid.Amount, bid.AuctionID)
		if execErr != nil {
			return execErr
		}
		ct = res.RowsAffected()
	} else {
		res, execErr := tx.Exec(ctx, `
            UPDATE auctions
            SET current_bid = $1, bid_count = bid_count + 1, updated_at = NOW()
            WHERE id = $2 AND status = 'active' AND current_bid = $3
        `, bid.Amount, bid.AuctionID, *expectedCurrent)
		if execErr != nil {
			return execErr
		}
		ct = res.RowsAffected()
	}

	if ct == 0 {
		return r.classifyConflict(ctx, tx, bid.AuctionID)
	}

	if _, err := tx.Exec(ctx, `
        UPDATE bids SET is_winning = FALSE WHERE auction_id = $1 AND is_winning
    `, bid.AuctionID); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
        INSERT INTO bids (id, auction_id, bidder_id, amount, payment_method_ref, is_winning, placed_at)
        VALUES ($1, $2, $3, $4, $5, TRUE, $6)
    `, bid.ID, bid.AuctionID, bid.BidderID, bid.Amount, bid.PaymentMethodRef, bid.PlacedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// classifyConflict tells apart the reasons a conditional bid write matched
// zero rows, so the caller gets the right sentinel.
func (r *AuctionRepository) classifyConflict(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID) error {
	var status domain.Status
	err := tx.QueryRow(ctx, `SELECT status FROM auctions WHERE id = $1`, auctionID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrAuctionNotFound
		}
		return err
	}
	if status != domain.StatusActive {
		return domain.ErrInvalidState
	}
	return domain.ErrConcurrencyConflict
}

func (r *AuctionRepository) Sweep(ctx context.Context, now time.Time) (activated int, ended []uuid.UUID, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, nil, fmt.Errorf("begin sweep: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	res, err := tx.Exec(ctx, `
        UPDATE auctions SET status = 'active', updated_at = NOW()
        WHERE status = 'upcoming' AND starts_at <= $1
    `, now)
	if err != nil {
		return 0, nil, err
	}
	activated = int(res.RowsAffected())

	rows, err := tx.Query(ctx, `
        UPDATE auctions SET status = 'ended', updated_at = NOW()
        WHERE status = 'active' AND ends_at <= $1
        RETURNING id
    `, now)
	if err != nil {
		return 0, nil, err
	}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, nil, err
		}
		ended = append(ended, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, nil, err
	}

	// One settlement task per ended auction, in the same transaction as the
	// status flip. ON CONFLICT keeps re-delivery at exactly one row.
	for _, id := range ended {
		if _, err := tx.Exec(ctx, `
            INSERT INTO settlement_outbox (auction_id) VALUES ($1)
            ON CONFLICT (auction_id) DO NOTHING
        `, id); err != nil {
			return 0, nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, nil, err
	}
	return activated, ended, nil
}

func (r *AuctionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status) error {
	res, err := r.pool.Exec(ctx, `
        UPDATE auctions SET status = $1, updated_at = NOW()
        WHERE id = $2 AND status = $3
    `, to, id, from)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM auctions WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrAuctionNotFound
		}
		return domain.ErrInvalidState
	}
	return nil
}

func (r *AuctionRepository) StatusCounts(ctx context.Context) (map[domain.Status]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM auctions GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make(map[domain.Status]int)
	for rows.Next() {
		var status domain.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func scanAuction(row pgx.Row) (*domain.Auction, error) {
	a := &domain.Auction{}
	var currentBid, reservePrice decimal.NullDecimal
	var winnerID uuid.NullUUID

	err := row.Scan(
		&a.ID,
		&a.Subject.Kind,
		&a.Subject.ID,
		&a.VendorID,
		&a.StartingBid,
		&currentBid,
		&reservePrice,
		&a.BidCount,
		&a.StartsAt,
		&a.EndsAt,
		&a.Status,
		&winnerID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAuctionNotFound
		}
		return nil, err
	}

	if currentBid.Valid {
		a.CurrentBid = &currentBid.Decimal
	}
	if reservePrice.Valid {
		a.ReservePrice = &reservePrice.Decimal
	}
	if winnerID.Valid {
		a.WinnerID = &winnerID.UUID
	}
	return a, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
