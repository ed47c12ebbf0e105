package service

import (
	"context"
	"time"

	"racepool/chain"
	"racepool/events"
	"racepool/models"
)

// EntitlementRepository defines the interface for entitlement data access
type EntitlementRepository interface {
	// Create inserts a new entitlement; the payment reference is unique
	Create(ctx context.Context, entitlement *models.Entitlement) error

	// GetByPaymentReference retrieves an entitlement by payment reference, nil if absent
	GetByPaymentReference(ctx context.Context, reference string) (*models.Entitlement, error)

	// GetActiveByWallet returns the wallet's entitlement still active at the given time, nil if none
	GetActiveByWallet(ctx context.Context, wallet string, at time.Time) (*models.Entitlement, error)

	// CountAll returns the total number of entitlements
	CountAll(ctx context.Context) (int64, error)
}

// WalletAggregateRepository defines the interface for wallet aggregate data access
type WalletAggregateRepository interface {
	// GetByWallet retrieves a wallet's aggregate, nil if it has never paid
	GetByWallet(ctx context.Context, wallet string) (*models.WalletAggregate, error)

	// ApplyCredit adds one ticket and the paid amount to a wallet's aggregate
	ApplyCredit(ctx context.Context, wallet string, amount int64, seenAt time.Time) (*models.WalletAggregate, error)

	// GetTicketHolders returns all wallets with at least one ticket in deterministic order
	GetTicketHolders(ctx context.Context) ([]*models.WalletAggregate, error)

	// GetTop returns the wallets with the most tickets
	GetTop(ctx context.Context, limit int) ([]*models.WalletAggregate, error)

	// TotalTickets returns the sum of all outstanding tickets
	TotalTickets(ctx context.Context) (int64, error)

	// Rebuild recomputes all aggregates from the entitlement rows
	Rebuild(ctx context.Context) (int64, error)
}

// PoolRepository defines the interface for the pool aggregate
type PoolRepository interface {
	// GetTotal returns the running pool total
	GetTotal(ctx context.Context) (int64, error)

	// Increment adds amount to the pool total; negative amounts record payouts
	Increment(ctx context.Context, amount int64) error

	// Rebuild recomputes the pool total from entitlements and paid draws
	Rebuild(ctx context.Context, perPayment int64) (int64, error)
}

// DrawRecordRepository defines the interface for draw record data access
type DrawRecordRepository interface {
	// GetByPeriod retrieves the draw record for a period, nil if not drawn
	GetByPeriod(ctx context.Context, periodID string) (*models.DrawRecord, error)

	// Claim inserts the record with status drawing; false means another draw holds the period
	Claim(ctx context.Context, rec *models.DrawRecord) (bool, error)

	// ReclaimFailed moves a failed record back to drawing for a retry
	ReclaimFailed(ctx context.Context, periodID string) (*models.DrawRecord, bool, error)

	// Finalize records the outcome of a claimed draw
	Finalize(ctx context.Context, periodID string, status models.DrawStatus, payoutReference *string) error

	// GetMostRecent returns the latest draw record, nil if none
	GetMostRecent(ctx context.Context) (*models.DrawRecord, error)
}

// PeriodSnapshotRepository defines the interface for period snapshot data access
type PeriodSnapshotRepository interface {
	// Upsert writes cumulative earnings for every participant in a period
	Upsert(ctx context.Context, periodID string, participants []*models.ParticipantEarnings) (int64, error)

	// GetLatestPeriodBefore returns the newest snapshot period before the given one, "" if none
	GetLatestPeriodBefore(ctx context.Context, periodID string) (string, error)

	// GetBaselines returns participant id to cumulative earnings for a snapshot period
	GetBaselines(ctx context.Context, periodID string) (map[string]int64, error)
}

// GiveawayRepository defines the interface for giveaway data access
type GiveawayRepository interface {
	// CreateEntry records a participant's entry; (period, participant) is unique
	CreateEntry(ctx context.Context, entry *models.GiveawayEntry) error

	// GetEntryByParticipant retrieves a participant's entry for a period, nil if none
	GetEntryByParticipant(ctx context.Context, periodID, participantID string) (*models.GiveawayEntry, error)

	// GetEntriesByPeriod returns all entries for a period in entry order
	GetEntriesByPeriod(ctx context.Context, periodID string) ([]*models.GiveawayEntry, error)

	// CreateDraw records a giveaway draw outcome; period id is unique
	CreateDraw(ctx context.Context, draw *models.GiveawayDraw) error

	// GetDrawByPeriod retrieves the giveaway draw for a period, nil if not drawn
	GetDrawByPeriod(ctx context.Context, periodID string) (*models.GiveawayDraw, error)

	// GetRecentDraws returns the most recent giveaway draws, newest first
	GetRecentDraws(ctx context.Context, limit int) ([]*models.GiveawayDraw, error)
}

// ChainGateway defines the interface for talking to the external ledger
type ChainGateway interface {
	// GetTransaction returns a transaction by reference, or chain.ErrTransactionNotFound
	GetTransaction(ctx context.Context, reference string) (*chain.Transaction, error)

	// GetBalance returns the spendable balance of an account in base units
	GetBalance(ctx context.Context, account string) (int64, error)

	// SubmitTransfer submits a transfer and returns the ledger's reference for it
	SubmitTransfer(ctx context.Context, from, to string, amount int64) (string, error)

	// ConfirmTransfer reports whether the transfer confirmed; false with nil error means it failed on-ledger
	ConfirmTransfer(ctx context.Context, reference string) (bool, error)
}

// EarningsFeed defines the interface for the partner earnings feed
type EarningsFeed interface {
	// GetParticipantEarnings fetches current cumulative earnings for all participants
	GetParticipantEarnings(ctx context.Context) ([]*models.ParticipantEarnings, error)
}

// PaymentService defines the interface for payment verification
type PaymentService interface {
	// Verify checks a claimed payment on the ledger and grants an entitlement exactly once
	Verify(ctx context.Context, walletAddress, paymentReference string) (*models.VerifyResult, error)
}

// DrawService defines the interface for jackpot draws
type DrawService interface {
	// Draw runs the weighted draw for a period and pays the winner
	Draw(ctx context.Context, periodID string) (*models.DrawResult, error)

	// RetryDraw re-attempts the payout for a period whose draw failed
	RetryDraw(ctx context.Context, periodID string) (*models.DrawResult, error)
}

// SnapshotTracker defines the interface for period earnings snapshots
type SnapshotTracker interface {
	// TakeSnapshot records cumulative earnings for every participant in a period
	TakeSnapshot(ctx context.Context, periodID string, participants []*models.ParticipantEarnings) (int64, error)

	// ComputeActiveSet returns participant id to earnings delta for participants active this period
	ComputeActiveSet(ctx context.Context, periodID string, current []*models.ParticipantEarnings) (map[string]int64, error)
}

// GiveawayService defines the interface for the equal-weight giveaway
type GiveawayService interface {
	// Enter registers a participant for the period's giveaway; idempotent per period
	Enter(ctx context.Context, periodID, participantID string) (*models.GiveawayEntry, error)

	// Draw picks an equal-weight winner among active entrants and snapshots all participants
	Draw(ctx context.Context, periodID string) (*models.GiveawayDraw, error)

	// GetEntries returns all entries for a period
	GetEntries(ctx context.Context, periodID string) ([]*models.GiveawayEntry, error)

	// GetRecentDraws returns the most recent giveaway draws
	GetRecentDraws(ctx context.Context, limit int) ([]*models.GiveawayDraw, error)
}

// StatsService defines the interface for read-side queries
type StatsService interface {
	// GetPoolSummary returns the pool totals, top wallets and most recent draw
	GetPoolSummary(ctx context.Context) (*models.PoolSummary, error)

	// CheckEntitlement returns the wallet's active entitlement, nil if none
	CheckEntitlement(ctx context.Context, wallet string) (*models.Entitlement, error)

	// RebuildAggregates recomputes wallet and pool aggregates from the entitlement rows
	RebuildAggregates(ctx context.Context) (*models.RebuildSummary, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	EntitlementRepository() EntitlementRepository
	WalletAggregateRepository() WalletAggregateRepository
	PoolRepository() PoolRepository
	DrawRecordRepository() DrawRecordRepository
	PeriodSnapshotRepository() PeriodSnapshotRepository
	GiveawayRepository() GiveawayRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// Create creates a new UnitOfWork instance
	Create() UnitOfWork
}
