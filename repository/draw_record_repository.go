package repository

import (
	"context"
	"fmt"

	"racepool/database"
	"racepool/models"

	"github.com/jackc/pgx/v5"
)

// DrawRecordRepository implements the DrawRecordRepository interface
type DrawRecordRepository struct {
	q queryable
}

// NewDrawRecordRepository creates a new draw record repository
func NewDrawRecordRepository(db *database.DB) *DrawRecordRepository {
	return &DrawRecordRepository{q: db.Pool}
}

// newDrawRecordRepositoryWithTx creates a new draw record repository with a transaction
func newDrawRecordRepositoryWithTx(tx queryable) *DrawRecordRepository {
	return &DrawRecordRepository{q: tx}
}

const drawRecordColumns = `id, period_id, status, winner_wallet, winner_tickets, total_tickets, prize_amount, payout_reference, created_at, updated_at`

// GetByPeriod retrieves the draw record for a period, or nil if the period
// has not been drawn
func (r *DrawRecordRepository) GetByPeriod(ctx context.Context, periodID string) (*models.DrawRecord, error) {
	query := `SELECT ` + drawRecordColumns + ` FROM draw_records WHERE period_id = $1`

	rec, err := scanDrawRecord(r.q.QueryRow(ctx, query, periodID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draw record for period %s: %w", periodID, err)
	}

	return rec, nil
}

// Claim inserts the record with status drawing, claiming the period for this
// caller. Returns false if another draw already holds the period; the caller
// should re-read the stored record in that case.
func (r *DrawRecordRepository) Claim(ctx context.Context, rec *models.DrawRecord) (bool, error) {
	query := `
		INSERT INTO draw_records (period_id, status, winner_wallet, winner_tickets, total_tickets, prize_amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (period_id) DO NOTHING
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		rec.PeriodID,
		models.DrawStatusDrawing,
		rec.WinnerWallet,
		rec.WinnerTickets,
		rec.TotalTickets,
		rec.PrizeAmount,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)

	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to claim draw for period %s: %w", rec.PeriodID, err)
	}

	rec.Status = models.DrawStatusDrawing
	return true, nil
}

// ReclaimFailed atomically moves a failed record back to drawing so a retry
// can re-attempt the payout. Returns nil, false if the period has no failed
// record to reclaim.
func (r *DrawRecordRepository) ReclaimFailed(ctx context.Context, periodID string) (*models.DrawRecord, bool, error) {
	query := `
		UPDATE draw_records
		SET status = $2, updated_at = NOW()
		WHERE period_id = $1 AND status = $3
		RETURNING ` + drawRecordColumns

	rec, err := scanDrawRecord(r.q.QueryRow(ctx, query, periodID, models.DrawStatusDrawing, models.DrawStatusFailed))
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to reclaim failed draw for period %s: %w", periodID, err)
	}

	return rec, true, nil
}

// Finalize records the outcome of a claimed draw
func (r *DrawRecordRepository) Finalize(ctx context.Context, periodID string, status models.DrawStatus, payoutReference *string) error {
	query := `
		UPDATE draw_records
		SET status = $2, payout_reference = $3, updated_at = NOW()
		WHERE period_id = $1
	`

	tag, err := r.q.Exec(ctx, query, periodID, status, payoutReference)
	if err != nil {
		return fmt.Errorf("failed to finalize draw for period %s: %w", periodID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no draw record to finalize for period %s", periodID)
	}

	return nil
}

// GetMostRecent returns the latest draw record, or nil if nothing has ever
// been drawn
func (r *DrawRecordRepository) GetMostRecent(ctx context.Context) (*models.DrawRecord, error) {
	query := `SELECT ` + drawRecordColumns + ` FROM draw_records ORDER BY created_at DESC, id DESC LIMIT 1`

	rec, err := scanDrawRecord(r.q.QueryRow(ctx, query))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get most recent draw record: %w", err)
	}

	return rec, nil
}

func scanDrawRecord(row pgx.Row) (*models.DrawRecord, error) {
	var rec models.DrawRecord
	err := row.Scan(
		&rec.ID,
		&rec.PeriodID,
		&rec.Status,
		&rec.WinnerWallet,
		&rec.WinnerTickets,
		&rec.TotalTickets,
		&rec.PrizeAmount,
		&rec.PayoutReference,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
