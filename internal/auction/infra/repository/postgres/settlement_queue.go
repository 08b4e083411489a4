package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SettlementQueue implements domain.SettlementQueue on the settlement_outbox
// table. Rows are enqueued by the sweep in the same transaction that ends an
// auction; consumption is at-least-once, the resolver itself is idempotent.
type SettlementQueue struct {
	pool *pgxpool.Pool
}

func NewSettlementQueue(pool *pgxpool.Pool) *SettlementQueue {
	return &SettlementQueue{pool: pool}
}

func (q *SettlementQueue) ClaimPending(ctx context.Context, limit int) ([]uuid.UUID, error) {
	tx, err := q.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin claim: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// SKIP LOCKED lets concurrent dispatcher replicas claim disjoint batches
	// without blocking each other.
	rows, err := tx.Query(ctx, `
        SELECT auction_id FROM settlement_outbox
        WHERE status = 'pending'
        ORDER BY created_at ASC
        LIMIT $1
        FOR UPDATE SKIP LOCKED
    `, limit)
	if err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range ids {
		if _, err := tx.Exec(ctx, `
            UPDATE settlement_outbox SET attempts = attempts + 1, updated_at = NOW()
            WHERE auction_id = $1
        `, id); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

func (q *SettlementQueue) MarkDone(ctx context.Context, auctionID uuid.UUID) error {
	_, err := q.pool.Exec(ctx, `
        UPDATE settlement_outbox SET status = 'done', updated_at = NOW()
        WHERE auction_id = $1
    `, auctionID)
	return err
}
