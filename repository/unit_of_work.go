package repository

import (
	"context"
	"fmt"

	"racepool/database"
	"racepool/events"
	"racepool/service"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	entitlementRepo  service.EntitlementRepository
	walletAggRepo    service.WalletAggregateRepository
	poolRepo         service.PoolRepository
	drawRecordRepo   service.DrawRecordRepository
	snapshotRepo     service.PeriodSnapshotRepository
	giveawayRepo     service.GiveawayRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories with the transaction
	u.entitlementRepo = newEntitlementRepositoryWithTx(tx)
	u.walletAggRepo = newWalletAggregateRepositoryWithTx(tx)
	u.poolRepo = newPoolRepositoryWithTx(tx)
	u.drawRecordRepo = newDrawRecordRepositoryWithTx(tx)
	u.snapshotRepo = newPeriodSnapshotRepositoryWithTx(tx)
	u.giveawayRepo = newGiveawayRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Flush pending events after successful commit
	if u.transactionalBus != nil {
		u.transactionalBus.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	// Discard pending events on rollback
	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}

	return nil
}

// EntitlementRepository returns the entitlement repository for this unit of work
func (u *unitOfWork) EntitlementRepository() service.EntitlementRepository {
	if u.entitlementRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.entitlementRepo
}

// WalletAggregateRepository returns the wallet aggregate repository for this unit of work
func (u *unitOfWork) WalletAggregateRepository() service.WalletAggregateRepository {
	if u.walletAggRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.walletAggRepo
}

// PoolRepository returns the pool repository for this unit of work
func (u *unitOfWork) PoolRepository() service.PoolRepository {
	if u.poolRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.poolRepo
}

// DrawRecordRepository returns the draw record repository for this unit of work
func (u *unitOfWork) DrawRecordRepository() service.DrawRecordRepository {
	if u.drawRecordRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.drawRecordRepo
}

// PeriodSnapshotRepository returns the period snapshot repository for this unit of work
func (u *unitOfWork) PeriodSnapshotRepository() service.PeriodSnapshotRepository {
	if u.snapshotRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.snapshotRepo
}

// GiveawayRepository returns the giveaway repository for this unit of work
func (u *unitOfWork) GiveawayRepository() service.GiveawayRepository {
	if u.giveawayRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.giveawayRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
