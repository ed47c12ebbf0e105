package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"racepool/config"
	"racepool/models"

	log "github.com/sirupsen/logrus"
)

type statsService struct {
	uowFactory UnitOfWorkFactory
	gateway    ChainGateway
	cfg        *config.Config
}

// NewStatsService creates a new stats service
func NewStatsService(uowFactory UnitOfWorkFactory, gateway ChainGateway, cfg *config.Config) StatsService {
	return &statsService{
		uowFactory: uowFactory,
		gateway:    gateway,
		cfg:        cfg,
	}
}

func (s *statsService) GetPoolSummary(ctx context.Context) (*models.PoolSummary, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	ledgerTotal, err := uow.PoolRepository().GetTotal(ctx)
	if err != nil {
		return nil, err
	}

	topWallets, err := uow.WalletAggregateRepository().GetTop(ctx, 10)
	if err != nil {
		return nil, err
	}

	recentDraw, err := uow.DrawRecordRepository().GetMostRecent(ctx)
	if err != nil {
		return nil, err
	}

	// Display degrades gracefully when the ledger node is unreachable
	onChain, err := s.gateway.GetBalance(ctx, s.cfg.PoolAddress)
	if err != nil {
		log.WithError(err).Warn("failed to read on-chain pool balance")
		onChain = 0
	}

	return &models.PoolSummary{
		LedgerTotal:    ledgerTotal,
		OnChainBalance: onChain,
		TopWallets:     topWallets,
		RecentDraw:     recentDraw,
	}, nil
}

func (s *statsService) CheckEntitlement(ctx context.Context, wallet string) (*models.Entitlement, error) {
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		return nil, fmt.Errorf("%w: wallet address required", ErrValidation)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.EntitlementRepository().GetActiveByWallet(ctx, wallet, time.Now())
}

// RebuildAggregates refolds the wallet and pool aggregates from the
// entitlement audit trail in one transaction
func (s *statsService) RebuildAggregates(ctx context.Context) (*models.RebuildSummary, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	wallets, err := uow.WalletAggregateRepository().Rebuild(ctx)
	if err != nil {
		return nil, err
	}

	poolTotal, err := uow.PoolRepository().Rebuild(ctx, s.cfg.PoolAmount)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"wallets":   wallets,
		"poolTotal": poolTotal,
	}).Info("aggregates rebuilt")

	return &models.RebuildSummary{
		Wallets:   wallets,
		PoolTotal: poolTotal,
	}, nil
}
