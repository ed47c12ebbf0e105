package repository

import (
	"context"
	"fmt"

	"racepool/database"
)

// PoolRepository implements the PoolRepository interface over the single-row
// pool aggregate
type PoolRepository struct {
	q queryable
}

// NewPoolRepository creates a new pool repository
func NewPoolRepository(db *database.DB) *PoolRepository {
	return &PoolRepository{q: db.Pool}
}

// newPoolRepositoryWithTx creates a new pool repository with a transaction
func newPoolRepositoryWithTx(tx queryable) *PoolRepository {
	return &PoolRepository{q: tx}
}

// GetTotal returns the ledger's running pool total
func (r *PoolRepository) GetTotal(ctx context.Context) (int64, error) {
	query := `SELECT total_amount FROM pool_aggregate WHERE id = 1`

	var total int64
	if err := r.q.QueryRow(ctx, query).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to get pool total: %w", err)
	}

	return total, nil
}

// Increment adds amount to the pool total. Negative amounts record payouts.
func (r *PoolRepository) Increment(ctx context.Context, amount int64) error {
	query := `
		UPDATE pool_aggregate
		SET total_amount = total_amount + $1, updated_at = NOW()
		WHERE id = 1
	`

	tag, err := r.q.Exec(ctx, query, amount)
	if err != nil {
		return fmt.Errorf("failed to increment pool by %d: %w", amount, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pool aggregate row missing")
	}

	return nil
}

// Rebuild recomputes the pool total as the per-payment contribution times the
// number of verified payments, minus all paid-out prizes
func (r *PoolRepository) Rebuild(ctx context.Context, perPayment int64) (int64, error) {
	query := `
		UPDATE pool_aggregate
		SET total_amount = (SELECT COUNT(*) FROM entitlements) * $1
			- (SELECT COALESCE(SUM(prize_amount), 0) FROM draw_records WHERE status = 'paid'),
			updated_at = NOW()
		WHERE id = 1
		RETURNING total_amount
	`

	var total int64
	if err := r.q.QueryRow(ctx, query, perPayment).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to rebuild pool total: %w", err)
	}

	return total, nil
}
