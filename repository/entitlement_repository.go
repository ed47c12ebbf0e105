package repository

import (
	"context"
	"fmt"
	"time"

	"racepool/database"
	"racepool/models"

	"github.com/jackc/pgx/v5"
)

// EntitlementRepository implements the EntitlementRepository interface
type EntitlementRepository struct {
	q queryable
}

// NewEntitlementRepository creates a new entitlement repository
func NewEntitlementRepository(db *database.DB) *EntitlementRepository {
	return &EntitlementRepository{q: db.Pool}
}

// newEntitlementRepositoryWithTx creates a new entitlement repository with a transaction
func newEntitlementRepositoryWithTx(tx queryable) *EntitlementRepository {
	return &EntitlementRepository{q: tx}
}

// Create inserts a new entitlement row. The unique constraint on
// payment_reference makes this the serialization point for concurrent
// verification of the same payment; callers should check the returned error
// with IsUniqueViolation to detect the idempotent-duplicate case.
func (r *EntitlementRepository) Create(ctx context.Context, entitlement *models.Entitlement) error {
	query := `
		INSERT INTO entitlements (wallet_address, payment_reference, amount_paid, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		entitlement.WalletAddress,
		entitlement.PaymentReference,
		entitlement.AmountPaid,
		entitlement.ExpiresAt,
	).Scan(&entitlement.ID, &entitlement.CreatedAt)

	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("entitlement for payment %s already exists: %w",
				entitlement.PaymentReference, err)
		}
		return fmt.Errorf("failed to create entitlement for payment %s: %w",
			entitlement.PaymentReference, err)
	}

	return nil
}

// GetByPaymentReference retrieves an entitlement by its payment reference
func (r *EntitlementRepository) GetByPaymentReference(ctx context.Context, reference string) (*models.Entitlement, error) {
	query := `
		SELECT id, wallet_address, payment_reference, amount_paid, expires_at, created_at
		FROM entitlements
		WHERE payment_reference = $1
	`

	var entitlement models.Entitlement
	err := r.q.QueryRow(ctx, query, reference).Scan(
		&entitlement.ID,
		&entitlement.WalletAddress,
		&entitlement.PaymentReference,
		&entitlement.AmountPaid,
		&entitlement.ExpiresAt,
		&entitlement.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entitlement by payment reference %s: %w", reference, err)
	}

	return &entitlement, nil
}

// GetActiveByWallet returns the entitlement with the latest expiry that is
// still active at the given time, or nil if the wallet has none
func (r *EntitlementRepository) GetActiveByWallet(ctx context.Context, wallet string, at time.Time) (*models.Entitlement, error) {
	query := `
		SELECT id, wallet_address, payment_reference, amount_paid, expires_at, created_at
		FROM entitlements
		WHERE wallet_address = $1
		  AND expires_at > $2
		ORDER BY expires_at DESC
		LIMIT 1
	`

	var entitlement models.Entitlement
	err := r.q.QueryRow(ctx, query, wallet, at).Scan(
		&entitlement.ID,
		&entitlement.WalletAddress,
		&entitlement.PaymentReference,
		&entitlement.AmountPaid,
		&entitlement.ExpiresAt,
		&entitlement.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active entitlement for wallet %s: %w", wallet, err)
	}

	return &entitlement, nil
}

// CountAll returns the total number of entitlement rows
func (r *EntitlementRepository) CountAll(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM entitlements`

	var count int64
	if err := r.q.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count entitlements: %w", err)
	}

	return count, nil
}
