package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"racepool/chain"
	"racepool/config"
	"racepool/database"
	"racepool/events"
	"racepool/models"

	log "github.com/sirupsen/logrus"
)

type paymentService struct {
	uowFactory UnitOfWorkFactory
	gateway    ChainGateway
	cfg        *config.Config
}

// NewPaymentService creates a new payment verification service
func NewPaymentService(uowFactory UnitOfWorkFactory, gateway ChainGateway, cfg *config.Config) PaymentService {
	return &paymentService{
		uowFactory: uowFactory,
		gateway:    gateway,
		cfg:        cfg,
	}
}

func (s *paymentService) Verify(ctx context.Context, walletAddress, paymentReference string) (*models.VerifyResult, error) {
	walletAddress = strings.TrimSpace(walletAddress)
	paymentReference = strings.TrimSpace(paymentReference)
	if walletAddress == "" {
		return nil, fmt.Errorf("%w: wallet address required", ErrValidation)
	}
	if paymentReference == "" {
		return nil, fmt.Errorf("%w: payment reference required", ErrValidation)
	}

	// Cheap pre-check before touching the ledger. The authoritative gate is
	// the unique constraint inside the transaction below.
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	existing, err := uow.EntitlementRepository().GetByPaymentReference(ctx, paymentReference)
	if rbErr := uow.Rollback(); rbErr != nil {
		return nil, rbErr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check payment %s: %w", paymentReference, err)
	}
	if existing != nil {
		return s.alreadyProcessed(ctx, walletAddress, existing)
	}

	tx, err := s.fetchTransaction(ctx, paymentReference)
	if err != nil {
		return nil, err
	}

	if tx.Failed {
		return nil, fmt.Errorf("%w: transaction %s failed on-ledger", ErrPermanentRejection, paymentReference)
	}

	if err := s.validateTransfers(tx, walletAddress); err != nil {
		return nil, err
	}

	return s.grant(ctx, walletAddress, paymentReference)
}

// fetchTransaction looks the transaction up, retrying once after a short
// delay so a payment submitted moments ago gets a chance to land
func (s *paymentService) fetchTransaction(ctx context.Context, reference string) (*chain.Transaction, error) {
	tx, err := s.gateway.GetTransaction(ctx, reference)
	if err == nil {
		return tx, nil
	}
	if !errors.Is(err, chain.ErrTransactionNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.cfg.ConfirmRetryDelay):
	}

	tx, err = s.gateway.GetTransaction(ctx, reference)
	if err != nil {
		if errors.Is(err, chain.ErrTransactionNotFound) {
			return nil, fmt.Errorf("%w: transaction %s not visible", ErrNotYetConfirmed, reference)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return tx, nil
}

// validateTransfers checks the transaction moves the required amounts from the
// claimed wallet to the treasury and pool accounts, within the fee tolerance
func (s *paymentService) validateTransfers(tx *chain.Transaction, walletAddress string) error {
	var treasuryPaid, poolPaid int64
	for _, t := range tx.Transfers {
		if t.Source != walletAddress {
			continue
		}
		switch t.Destination {
		case s.cfg.TreasuryAddress:
			treasuryPaid += t.Amount
		case s.cfg.PoolAddress:
			poolPaid += t.Amount
		}
	}

	if treasuryPaid < s.cfg.TreasuryAmount-s.cfg.FeeTolerance {
		return fmt.Errorf("%w: treasury received %d of %d required",
			ErrPermanentRejection, treasuryPaid, s.cfg.TreasuryAmount)
	}
	if poolPaid < s.cfg.PoolAmount-s.cfg.FeeTolerance {
		return fmt.Errorf("%w: pool received %d of %d required",
			ErrPermanentRejection, poolPaid, s.cfg.PoolAmount)
	}

	return nil
}

// grant writes the entitlement and folds the payment into the aggregates in
// one transaction. A unique violation on the entitlement insert means a
// concurrent request won the race; that request's work stands and this one
// reports the idempotent outcome.
func (s *paymentService) grant(ctx context.Context, walletAddress, paymentReference string) (*models.VerifyResult, error) {
	now := time.Now()
	entitlement := &models.Entitlement{
		WalletAddress:    walletAddress,
		PaymentReference: paymentReference,
		AmountPaid:       s.cfg.TreasuryAmount + s.cfg.PoolAmount,
		ExpiresAt:        now.Add(s.cfg.EntitlementDuration),
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	if err := uow.EntitlementRepository().Create(ctx, entitlement); err != nil {
		if database.IsUniqueViolation(err) {
			// Lost the race to a concurrent request for the same payment
			if rbErr := uow.Rollback(); rbErr != nil {
				return nil, rbErr
			}
			return s.lookupProcessed(ctx, walletAddress, paymentReference)
		}
		return nil, err
	}

	agg, err := uow.WalletAggregateRepository().ApplyCredit(ctx, walletAddress, entitlement.AmountPaid, now)
	if err != nil {
		return nil, fmt.Errorf("failed to credit wallet %s: %w", walletAddress, err)
	}

	if err := uow.PoolRepository().Increment(ctx, s.cfg.PoolAmount); err != nil {
		return nil, fmt.Errorf("failed to grow pool for payment %s: %w", paymentReference, err)
	}

	uow.EventBus().Publish(events.PaymentVerifiedEvent{
		WalletAddress:    walletAddress,
		PaymentReference: paymentReference,
		AmountPaid:       entitlement.AmountPaid,
		ExpiresAt:        entitlement.ExpiresAt,
		TicketCount:      agg.TicketCount,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"wallet":    walletAddress,
		"payment":   paymentReference,
		"tickets":   agg.TicketCount,
		"expiresAt": entitlement.ExpiresAt,
	}).Info("payment verified, entitlement granted")

	return &models.VerifyResult{
		Granted:          true,
		WalletAddress:    walletAddress,
		PaymentReference: paymentReference,
		ExpiresAt:        entitlement.ExpiresAt,
		TicketCount:      agg.TicketCount,
	}, nil
}

// lookupProcessed re-reads the entitlement after losing the insert race
func (s *paymentService) lookupProcessed(ctx context.Context, walletAddress, paymentReference string) (*models.VerifyResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	existing, err := uow.EntitlementRepository().GetByPaymentReference(ctx, paymentReference)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read payment %s: %w", paymentReference, err)
	}
	if existing == nil {
		return nil, fmt.Errorf("payment %s vanished after duplicate insert", paymentReference)
	}

	return s.alreadyProcessed(ctx, walletAddress, existing)
}

// alreadyProcessed reports the stored grant for a payment that was verified
// before. A different wallet claiming someone else's payment reference is
// rejected outright.
func (s *paymentService) alreadyProcessed(ctx context.Context, walletAddress string, existing *models.Entitlement) (*models.VerifyResult, error) {
	if existing.WalletAddress != walletAddress {
		return nil, fmt.Errorf("%w: payment %s belongs to another wallet",
			ErrPermanentRejection, existing.PaymentReference)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	agg, err := uow.WalletAggregateRepository().GetByWallet(ctx, walletAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to get aggregate for wallet %s: %w", walletAddress, err)
	}

	var tickets int64
	if agg != nil {
		tickets = agg.TicketCount
	}

	return &models.VerifyResult{
		Granted:          true,
		AlreadyProcessed: true,
		WalletAddress:    existing.WalletAddress,
		PaymentReference: existing.PaymentReference,
		ExpiresAt:        existing.ExpiresAt,
		TicketCount:      tickets,
	}, nil
}
