package repository

import (
	"context"
	"fmt"
	"time"

	"racepool/database"
	"racepool/models"

	"github.com/jackc/pgx/v5"
)

// WalletAggregateRepository implements the WalletAggregateRepository interface
type WalletAggregateRepository struct {
	q queryable
}

// NewWalletAggregateRepository creates a new wallet aggregate repository
func NewWalletAggregateRepository(db *database.DB) *WalletAggregateRepository {
	return &WalletAggregateRepository{q: db.Pool}
}

// newWalletAggregateRepositoryWithTx creates a new wallet aggregate repository with a transaction
func newWalletAggregateRepositoryWithTx(tx queryable) *WalletAggregateRepository {
	return &WalletAggregateRepository{q: tx}
}

// GetByWallet retrieves the aggregate for a wallet, or nil if it has never paid
func (r *WalletAggregateRepository) GetByWallet(ctx context.Context, wallet string) (*models.WalletAggregate, error) {
	query := `
		SELECT wallet_address, ticket_count, total_paid, first_seen, last_seen
		FROM wallet_aggregates
		WHERE wallet_address = $1
	`

	var agg models.WalletAggregate
	err := r.q.QueryRow(ctx, query, wallet).Scan(
		&agg.WalletAddress,
		&agg.TicketCount,
		&agg.TotalPaid,
		&agg.FirstSeen,
		&agg.LastSeen,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet aggregate for %s: %w", wallet, err)
	}

	return &agg, nil
}

// ApplyCredit adds one ticket and the paid amount to a wallet's aggregate,
// creating the row on first payment
func (r *WalletAggregateRepository) ApplyCredit(ctx context.Context, wallet string, amount int64, seenAt time.Time) (*models.WalletAggregate, error) {
	query := `
		INSERT INTO wallet_aggregates (wallet_address, ticket_count, total_paid, first_seen, last_seen)
		VALUES ($1, 1, $2, $3, $3)
		ON CONFLICT (wallet_address) DO UPDATE SET
			ticket_count = wallet_aggregates.ticket_count + 1,
			total_paid = wallet_aggregates.total_paid + EXCLUDED.total_paid,
			last_seen = EXCLUDED.last_seen
		RETURNING wallet_address, ticket_count, total_paid, first_seen, last_seen
	`

	var agg models.WalletAggregate
	err := r.q.QueryRow(ctx, query, wallet, amount, seenAt).Scan(
		&agg.WalletAddress,
		&agg.TicketCount,
		&agg.TotalPaid,
		&agg.FirstSeen,
		&agg.LastSeen,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to apply credit to wallet %s: %w", wallet, err)
	}

	return &agg, nil
}

// GetTicketHolders returns all wallets holding at least one ticket, ordered by
// wallet address for a deterministic draw traversal
func (r *WalletAggregateRepository) GetTicketHolders(ctx context.Context) ([]*models.WalletAggregate, error) {
	query := `
		SELECT wallet_address, ticket_count, total_paid, first_seen, last_seen
		FROM wallet_aggregates
		WHERE ticket_count > 0
		ORDER BY wallet_address
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket holders: %w", err)
	}
	defer rows.Close()

	return scanWalletAggregates(rows)
}

// GetTop returns the wallets with the most tickets
func (r *WalletAggregateRepository) GetTop(ctx context.Context, limit int) ([]*models.WalletAggregate, error) {
	query := `
		SELECT wallet_address, ticket_count, total_paid, first_seen, last_seen
		FROM wallet_aggregates
		WHERE ticket_count > 0
		ORDER BY ticket_count DESC, total_paid DESC, wallet_address
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top wallets: %w", err)
	}
	defer rows.Close()

	return scanWalletAggregates(rows)
}

// TotalTickets returns the sum of all outstanding tickets
func (r *WalletAggregateRepository) TotalTickets(ctx context.Context) (int64, error) {
	query := `SELECT COALESCE(SUM(ticket_count), 0) FROM wallet_aggregates`

	var total int64
	if err := r.q.QueryRow(ctx, query).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum tickets: %w", err)
	}

	return total, nil
}

// Rebuild recomputes every wallet aggregate from the entitlement rows. Used by
// the admin rebuild operation after manual corrections; returns the number of
// wallets in the rebuilt table.
func (r *WalletAggregateRepository) Rebuild(ctx context.Context) (int64, error) {
	if _, err := r.q.Exec(ctx, `DELETE FROM wallet_aggregates`); err != nil {
		return 0, fmt.Errorf("failed to clear wallet aggregates: %w", err)
	}

	query := `
		INSERT INTO wallet_aggregates (wallet_address, ticket_count, total_paid, first_seen, last_seen)
		SELECT wallet_address, COUNT(*), SUM(amount_paid), MIN(created_at), MAX(created_at)
		FROM entitlements
		GROUP BY wallet_address
	`

	tag, err := r.q.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to rebuild wallet aggregates: %w", err)
	}

	return tag.RowsAffected(), nil
}

func scanWalletAggregates(rows pgx.Rows) ([]*models.WalletAggregate, error) {
	var aggregates []*models.WalletAggregate
	for rows.Next() {
		var agg models.WalletAggregate
		err := rows.Scan(
			&agg.WalletAddress,
			&agg.TicketCount,
			&agg.TotalPaid,
			&agg.FirstSeen,
			&agg.LastSeen,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet aggregate: %w", err)
		}
		aggregates = append(aggregates, &agg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallet aggregates: %w", err)
	}

	return aggregates, nil
}
