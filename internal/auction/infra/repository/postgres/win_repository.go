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
)

// WinRepository implements domain.WinRepository. The UNIQUE constraint on
// auction_id is what enforces at-most-one settlement per auction.
type WinRepository struct {
	pool *pgxpool.Pool
}

func NewWinRepository(pool *pgxpool.Pool) *WinRepository {
	return &WinRepository{pool: pool}
}

const winColumns = `id, auction_id, user_id, winning_amount, order_id, paid_at, status, created_at, updated_at`

func (r *WinRepository) RecordSettlement(ctx context.Context, win *domain.AuctionWin) (created bool, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("begin settlement: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	res, err := tx.Exec(ctx, `
        INSERT INTO auction_wins (id, auction_id, user_id, winning_amount, status)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (auction_id) DO NOTHING
    `, win.ID, win.AuctionID, win.UserID, win.WinningAmount, win.Status)
	if err != nil {
		return false, err
	}
	if res.RowsAffected() == 0 {
		// Someone else settled this auction first.
		return false, nil
	}

	if _, err := tx.Exec(ctx, `
        UPDATE auctions SET winner_id = $1, updated_at = NOW() WHERE id = $2
    `, win.UserID, win.AuctionID); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (r *WinRepository) GetByAuctionID(ctx context.Context, auctionID uuid.UUID) (*domain.AuctionWin, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+winColumns+` FROM auction_wins WHERE auction_id = $1`, auctionID)
	win, err := scanWin(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return win, nil
}

func (r *WinRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.AuctionWin, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT `+winColumns+` FROM auction_wins
        WHERE user_id = $1
        ORDER BY created_at DESC
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wins []*domain.AuctionWin
	for rows.Next() {
		win, err := scanWin(rows)
		if err != nil {
			return nil, err
		}
		wins = append(wins, win)
	}
	return wins, rows.Err()
}

func (r *WinRepository) MarkPaid(ctx context.Context, winID uuid.UUID, paidAt time.Time) error {
	res, err := r.pool.Exec(ctx, `
        UPDATE auction_wins SET status = $1, paid_at = $2, updated_at = NOW()
        WHERE id = $3 AND status = $4
    `, domain.WinPaid, paidAt, winID, domain.WinPendingPayment)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrInvalidState
	}
	return nil
}

func (r *WinRepository) SetOrderID(ctx context.Context, winID, orderID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
        UPDATE auction_wins SET order_id = $1, updated_at = NOW() WHERE id = $2
    `, orderID, winID)
	return err
}

func scanWin(row pgx.Row) (*domain.AuctionWin, error) {
	win := &domain.AuctionWin{}
	var orderID uuid.NullUUID
	var paidAt *time.Time

	err := row.Scan(
		&win.ID,
		&win.AuctionID,
		&win.UserID,
		&win.WinningAmount,
		&orderID,
		&paidAt,
		&win.Status,
		&win.CreatedAt,
		&win.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if orderID.Valid {
		win.OrderID = &orderID.UUID
	}
	win.PaidAt = paidAt
	return win, nil
}
