package repository

import (
	"context"
	"fmt"

	"racepool/database"
	"racepool/models"

	"github.com/jackc/pgx/v5"
)

// PeriodSnapshotRepository implements the PeriodSnapshotRepository interface
type PeriodSnapshotRepository struct {
	q queryable
}

// NewPeriodSnapshotRepository creates a new period snapshot repository
func NewPeriodSnapshotRepository(db *database.DB) *PeriodSnapshotRepository {
	return &PeriodSnapshotRepository{q: db.Pool}
}

// newPeriodSnapshotRepositoryWithTx creates a new period snapshot repository with a transaction
func newPeriodSnapshotRepositoryWithTx(tx queryable) *PeriodSnapshotRepository {
	return &PeriodSnapshotRepository{q: tx}
}

// Upsert writes the cumulative earnings of every participant for a period.
// Re-running a snapshot for the same period overwrites with latest values.
// Returns the number of rows written.
func (r *PeriodSnapshotRepository) Upsert(ctx context.Context, periodID string, participants []*models.ParticipantEarnings) (int64, error) {
	query := `
		INSERT INTO period_snapshots (period_id, participant_id, earnings)
		VALUES ($1, $2, $3)
		ON CONFLICT (period_id, participant_id) DO UPDATE SET
			earnings = EXCLUDED.earnings
	`

	var written int64
	for _, p := range participants {
		if _, err := r.q.Exec(ctx, query, periodID, p.ParticipantID, p.CumulativeEarnings); err != nil {
			return written, fmt.Errorf("failed to upsert snapshot for participant %s in period %s: %w",
				p.ParticipantID, periodID, err)
		}
		written++
	}

	return written, nil
}

// GetLatestPeriodBefore returns the most recent snapshot period strictly
// earlier than the given one, or "" if none exists. Period ids sort
// lexicographically because the week component is zero padded.
func (r *PeriodSnapshotRepository) GetLatestPeriodBefore(ctx context.Context, periodID string) (string, error) {
	query := `
		SELECT period_id
		FROM period_snapshots
		WHERE period_id < $1
		ORDER BY period_id DESC
		LIMIT 1
	`

	var latest string
	err := r.q.QueryRow(ctx, query, periodID).Scan(&latest)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get latest snapshot period before %s: %w", periodID, err)
	}

	return latest, nil
}

// GetBaselines returns participant id to cumulative earnings for a snapshot
// period
func (r *PeriodSnapshotRepository) GetBaselines(ctx context.Context, periodID string) (map[string]int64, error) {
	query := `
		SELECT participant_id, earnings
		FROM period_snapshots
		WHERE period_id = $1
	`

	rows, err := r.q.Query(ctx, query, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot baselines for period %s: %w", periodID, err)
	}
	defer rows.Close()

	baselines := make(map[string]int64)
	for rows.Next() {
		var participantID string
		var earnings int64
		if err := rows.Scan(&participantID, &earnings); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot baseline: %w", err)
		}
		baselines[participantID] = earnings
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot baselines: %w", err)
	}

	return baselines, nil
}
