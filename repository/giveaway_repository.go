package repository

import (
	"context"
	"fmt"

	"racepool/database"
	"racepool/models"

	"github.com/jackc/pgx/v5"
)

// GiveawayRepository implements the GiveawayRepository interface
type GiveawayRepository struct {
	q queryable
}

// NewGiveawayRepository creates a new giveaway repository
func NewGiveawayRepository(db *database.DB) *GiveawayRepository {
	return &GiveawayRepository{q: db.Pool}
}

// newGiveawayRepositoryWithTx creates a new giveaway repository with a transaction
func newGiveawayRepositoryWithTx(tx queryable) *GiveawayRepository {
	return &GiveawayRepository{q: tx}
}

// CreateEntry records a participant's entry for a period. The unique
// constraint on (period_id, participant_id) makes re-entry a no-op for the
// caller to detect with IsUniqueViolation.
func (r *GiveawayRepository) CreateEntry(ctx context.Context, entry *models.GiveawayEntry) error {
	query := `
		INSERT INTO giveaway_entries (period_id, participant_id)
		VALUES ($1, $2)
		RETURNING id, entered_at
	`

	err := r.q.QueryRow(ctx, query, entry.PeriodID, entry.ParticipantID).
		Scan(&entry.ID, &entry.EnteredAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("participant %s already entered period %s: %w",
				entry.ParticipantID, entry.PeriodID, err)
		}
		return fmt.Errorf("failed to create giveaway entry for %s in period %s: %w",
			entry.ParticipantID, entry.PeriodID, err)
	}

	return nil
}

// GetEntryByParticipant retrieves a participant's entry for a period, or nil
func (r *GiveawayRepository) GetEntryByParticipant(ctx context.Context, periodID, participantID string) (*models.GiveawayEntry, error) {
	query := `
		SELECT id, period_id, participant_id, entered_at
		FROM giveaway_entries
		WHERE period_id = $1 AND participant_id = $2
	`

	var entry models.GiveawayEntry
	err := r.q.QueryRow(ctx, query, periodID, participantID).Scan(
		&entry.ID,
		&entry.PeriodID,
		&entry.ParticipantID,
		&entry.EnteredAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get giveaway entry for %s in period %s: %w",
			participantID, periodID, err)
	}

	return &entry, nil
}

// GetEntriesByPeriod returns all entries for a period in entry order
func (r *GiveawayRepository) GetEntriesByPeriod(ctx context.Context, periodID string) ([]*models.GiveawayEntry, error) {
	query := `
		SELECT id, period_id, participant_id, entered_at
		FROM giveaway_entries
		WHERE period_id = $1
		ORDER BY entered_at, id
	`

	rows, err := r.q.Query(ctx, query, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to get giveaway entries for period %s: %w", periodID, err)
	}
	defer rows.Close()

	var entries []*models.GiveawayEntry
	for rows.Next() {
		var entry models.GiveawayEntry
		err := rows.Scan(&entry.ID, &entry.PeriodID, &entry.ParticipantID, &entry.EnteredAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan giveaway entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating giveaway entries: %w", err)
	}

	return entries, nil
}

// CreateDraw records a giveaway draw outcome. The unique constraint on
// period_id guards against drawing the same period twice.
func (r *GiveawayRepository) CreateDraw(ctx context.Context, draw *models.GiveawayDraw) error {
	query := `
		INSERT INTO giveaway_draws (period_id, winner_id, entry_count, prize_amount, snapshot_count)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		draw.PeriodID,
		draw.WinnerID,
		draw.EntryCount,
		draw.PrizeAmount,
		draw.SnapshotCount,
	).Scan(&draw.ID, &draw.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("giveaway draw for period %s already exists: %w", draw.PeriodID, err)
		}
		return fmt.Errorf("failed to create giveaway draw for period %s: %w", draw.PeriodID, err)
	}

	return nil
}

// GetDrawByPeriod retrieves the giveaway draw for a period, or nil
func (r *GiveawayRepository) GetDrawByPeriod(ctx context.Context, periodID string) (*models.GiveawayDraw, error) {
	query := `
		SELECT id, period_id, winner_id, entry_count, prize_amount, snapshot_count, created_at
		FROM giveaway_draws
		WHERE period_id = $1
	`

	draw, err := scanGiveawayDraw(r.q.QueryRow(ctx, query, periodID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get giveaway draw for period %s: %w", periodID, err)
	}

	return draw, nil
}

// GetRecentDraws returns the most recent giveaway draws, newest first
func (r *GiveawayRepository) GetRecentDraws(ctx context.Context, limit int) ([]*models.GiveawayDraw, error) {
	query := `
		SELECT id, period_id, winner_id, entry_count, prize_amount, snapshot_count, created_at
		FROM giveaway_draws
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent giveaway draws: %w", err)
	}
	defer rows.Close()

	var draws []*models.GiveawayDraw
	for rows.Next() {
		draw, err := scanGiveawayDraw(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan giveaway draw: %w", err)
		}
		draws = append(draws, draw)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating giveaway draws: %w", err)
	}

	return draws, nil
}

func scanGiveawayDraw(row pgx.Row) (*models.GiveawayDraw, error) {
	var draw models.GiveawayDraw
	err := row.Scan(
		&draw.ID,
		&draw.PeriodID,
		&draw.WinnerID,
		&draw.EntryCount,
		&draw.PrizeAmount,
		&draw.SnapshotCount,
		&draw.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &draw, nil
}
