package service

import (
	"context"
	"testing"
	"time"

	"racepool/chain"
	"racepool/config"
	"racepool/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func testConfig() *config.Config {
	return &config.Config{
		TreasuryAddress:     "TREASURY",
		PoolAddress:         "POOL",
		TreasuryAmount:      10_000_000,
		PoolAmount:          10_000_000,
		FeeTolerance:        1_000,
		PerTicketPayout:     10_000_000,
		ReserveBuffer:       5_000,
		EntitlementDuration: 24 * time.Hour,
		ConfirmRetryDelay:   time.Millisecond,
		Environment:         "test",
	}
}

func paymentTransaction(wallet string, treasuryAmount, poolAmount int64) *chain.Transaction {
	return &chain.Transaction{
		Reference: "pay-1",
		Transfers: []chain.Transfer{
			{Source: wallet, Destination: "TREASURY", Amount: treasuryAmount},
			{Source: wallet, Destination: "POOL", Amount: poolAmount},
		},
	}
}

func TestPaymentService_Verify_GrantsEntitlement(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockEntitlementRepo := new(MockEntitlementRepository)
	mockWalletRepo := new(MockWalletAggregateRepository)
	mockPoolRepo := new(MockPoolRepository)
	mockGateway := new(MockChainGateway)

	mockUoW.SetRepositories(mockEntitlementRepo, mockWalletRepo, mockPoolRepo, nil, nil, nil)

	svc := NewPaymentService(mockFactory, mockGateway, testConfig())

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockEntitlementRepo.On("GetByPaymentReference", ctx, "pay-1").Return(nil, nil)
	mockGateway.On("GetTransaction", ctx, "pay-1").
		Return(paymentTransaction("wallet-a", 10_000_000, 10_000_000), nil)

	mockEntitlementRepo.On("Create", ctx, mock.MatchedBy(func(e *models.Entitlement) bool {
		return e.WalletAddress == "wallet-a" &&
			e.PaymentReference == "pay-1" &&
			e.AmountPaid == 20_000_000 &&
			e.ExpiresAt.After(time.Now())
	})).Return(nil)

	mockWalletRepo.On("ApplyCredit", ctx, "wallet-a", int64(20_000_000), mock.AnythingOfType("time.Time")).
		Return(&models.WalletAggregate{WalletAddress: "wallet-a", TicketCount: 1, TotalPaid: 20_000_000}, nil)
	mockPoolRepo.On("Increment", ctx, int64(10_000_000)).Return(nil)

	result, err := svc.Verify(ctx, "wallet-a", "pay-1")

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.True(t, result.Granted)
	assert.False(t, result.AlreadyProcessed)
	assert.Equal(t, int64(1), result.TicketCount)

	mockEntitlementRepo.AssertExpectations(t)
	mockWalletRepo.AssertExpectations(t)
	mockPoolRepo.AssertExpectations(t)
	mockGateway.AssertExpectations(t)
}

func TestPaymentService_Verify_Idempotent(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockEntitlementRepo := new(MockEntitlementRepository)
	mockWalletRepo := new(MockWalletAggregateRepository)
	mockGateway := new(MockChainGateway)

	mockUoW.SetRepositories(mockEntitlementRepo, mockWalletRepo, nil, nil, nil, nil)

	svc := NewPaymentService(mockFactory, mockGateway, testConfig())

	expiresAt := time.Now().Add(12 * time.Hour)
	existing := &models.Entitlement{
		ID:               7,
		WalletAddress:    "wallet-a",
		PaymentReference: "pay-1",
		ExpiresAt:        expiresAt,
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockEntitlementRepo.On("GetByPaymentReference", ctx, "pay-1").Return(existing, nil)
	mockWalletRepo.On("GetByWallet", ctx, "wallet-a").
		Return(&models.WalletAggregate{WalletAddress: "wallet-a", TicketCount: 3}, nil)

	result, err := svc.Verify(ctx, "wallet-a", "pay-1")

	assert.NoError(t, err)
	assert.True(t, result.Granted)
	assert.True(t, result.AlreadyProcessed)
	assert.Equal(t, expiresAt, result.ExpiresAt)
	assert.Equal(t, int64(3), result.TicketCount)

	// The ledger must never be consulted for a payment already settled
	mockGateway.AssertNotCalled(t, "GetTransaction", mock.Anything, mock.Anything)
}

func TestPaymentService_Verify_ReferenceBoundToOtherWallet(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockEntitlementRepo := new(MockEntitlementRepository)
	mockGateway := new(MockChainGateway)

	mockUoW.SetRepositories(mockEntitlementRepo, nil, nil, nil, nil, nil)

	svc := NewPaymentService(mockFactory, mockGateway, testConfig())

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockEntitlementRepo.On("GetByPaymentReference", ctx, "pay-1").
		Return(&models.Entitlement{WalletAddress: "wallet-a", PaymentReference: "pay-1"}, nil)

	result, err := svc.Verify(ctx, "wallet-b", "pay-1")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrPermanentRejection)
}

func TestPaymentService_Verify_NotYetConfirmed(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockEntitlementRepo := new(MockEntitlementRepository)
	mockGateway := new(MockChainGateway)

	mockUoW.SetRepositories(mockEntitlementRepo, nil, nil, nil, nil, nil)

	svc := NewPaymentService(mockFactory, mockGateway, testConfig())

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockEntitlementRepo.On("GetByPaymentReference", ctx, "pay-1").Return(nil, nil)
	mockGateway.On("GetTransaction", ctx, "pay-1").
		Return(nil, chain.ErrTransactionNotFound).Times(2)

	result, err := svc.Verify(ctx, "wallet-a", "pay-1")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrNotYetConfirmed)
	mockGateway.AssertExpectations(t)
}

func TestPaymentService_Verify_SecondLookupFindsTransaction(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockEntitlementRepo := new(MockEntitlementRepository)
	mockWalletRepo := new(MockWalletAggregateRepository)
	mockPoolRepo := new(MockPoolRepository)
	mockGateway := new(MockChainGateway)

	mockUoW.SetRepositories(mockEntitlementRepo, mockWalletRepo, mockPoolRepo, nil, nil, nil)

	svc := NewPaymentService(mockFactory, mockGateway, testConfig())

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockEntitlementRepo.On("GetByPaymentReference", ctx, "pay-1").Return(nil, nil)
	mockGateway.On("GetTransaction", ctx, "pay-1").
		Return(nil, chain.ErrTransactionNotFound).Once()
	mockGateway.On("GetTransaction", ctx, "pay-1").
		Return(paymentTransaction("wallet-a", 10_000_000, 10_000_000), nil).Once()

	mockEntitlementRepo.On("Create", ctx, mock.AnythingOfType("*models.Entitlement")).Return(nil)
	mockWalletRepo.On("ApplyCredit", ctx, "wallet-a", int64(20_000_000), mock.AnythingOfType("time.Time")).
		Return(&models.WalletAggregate{WalletAddress: "wallet-a", TicketCount: 1}, nil)
	mockPoolRepo.On("Increment", ctx, int64(10_000_000)).Return(nil)

	result, err := svc.Verify(ctx, "wallet-a", "pay-1")

	assert.NoError(t, err)
	assert.True(t, result.Granted)
	mockGateway.AssertExpectations(t)
}

func TestPaymentService_Verify_FailedTransaction(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockEntitlementRepo := new(MockEntitlementRepository)
	mockGateway := new(MockChainGateway)

	mockUoW.SetRepositories(mockEntitlementRepo, nil, nil, nil, nil, nil)

	svc := NewPaymentService(mockFactory, mockGateway, testConfig())

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockEntitlementRepo.On("GetByPaymentReference", ctx, "pay-1").Return(nil, nil)
	mockGateway.On("GetTransaction", ctx, "pay-1").
		Return(&chain.Transaction{Reference: "pay-1", Failed: true}, nil)

	result, err := svc.Verify(ctx, "wallet-a", "pay-1")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrPermanentRejection)
}

func TestPaymentService_Verify_TransferValidation(t *testing.T) {
	tests := []struct {
		name     string
		tx       *chain.Transaction
		rejected bool
	}{
		{
			name:     "exact amounts accepted",
			tx:       paymentTransaction("wallet-a", 10_000_000, 10_000_000),
			rejected: false,
		},
		{
			name:     "shortfall within fee tolerance accepted",
			tx:       paymentTransaction("wallet-a", 9_999_000, 9_999_000),
			rejected: false,
		},
		{
			name:     "treasury shortfall beyond tolerance rejected",
			tx:       paymentTransaction("wallet-a", 9_998_999, 10_000_000),
			rejected: true,
		},
		{
			name:     "pool shortfall beyond tolerance rejected",
			tx:       paymentTransaction("wallet-a", 10_000_000, 8_000_000),
			rejected: true,
		},
		{
			name:     "transfers from another wallet rejected",
			tx:       paymentTransaction("wallet-b", 10_000_000, 10_000_000),
			rejected: true,
		},
		{
			name: "split transfers summed per destination",
			tx: &chain.Transaction{
				Reference: "pay-1",
				Transfers: []chain.Transfer{
					{Source: "wallet-a", Destination: "TREASURY", Amount: 6_000_000},
					{Source: "wallet-a", Destination: "TREASURY", Amount: 4_000_000},
					{Source: "wallet-a", Destination: "POOL", Amount: 10_000_000},
				},
			},
			rejected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()

			mockUoW := new(MockUnitOfWork)
			mockFactory := new(MockUnitOfWorkFactory)
			mockEntitlementRepo := new(MockEntitlementRepository)
			mockWalletRepo := new(MockWalletAggregateRepository)
			mockPoolRepo := new(MockPoolRepository)
			mockGateway := new(MockChainGateway)

			mockUoW.SetRepositories(mockEntitlementRepo, mockWalletRepo, mockPoolRepo, nil, nil, nil)

			svc := NewPaymentService(mockFactory, mockGateway, testConfig())

			mockFactory.On("Create").Return(mockUoW)
			mockUoW.On("Begin", ctx).Return(nil)
			mockUoW.On("Commit").Return(nil).Maybe()
			mockUoW.On("Rollback").Return(nil)

			mockEntitlementRepo.On("GetByPaymentReference", ctx, "pay-1").Return(nil, nil)
			mockGateway.On("GetTransaction", ctx, "pay-1").Return(tt.tx, nil)

			if !tt.rejected {
				mockEntitlementRepo.On("Create", ctx, mock.AnythingOfType("*models.Entitlement")).Return(nil)
				mockWalletRepo.On("ApplyCredit", ctx, "wallet-a", mock.AnythingOfType("int64"), mock.AnythingOfType("time.Time")).
					Return(&models.WalletAggregate{WalletAddress: "wallet-a", TicketCount: 1}, nil)
				mockPoolRepo.On("Increment", ctx, int64(10_000_000)).Return(nil)
			}

			result, err := svc.Verify(ctx, "wallet-a", "pay-1")

			if tt.rejected {
				assert.ErrorIs(t, err, ErrPermanentRejection)
				assert.Nil(t, result)
			} else {
				assert.NoError(t, err)
				assert.True(t, result.Granted)
			}
		})
	}
}

func TestPaymentService_Verify_LosesInsertRace(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockEntitlementRepo := new(MockEntitlementRepository)
	mockWalletRepo := new(MockWalletAggregateRepository)
	mockGateway := new(MockChainGateway)

	mockUoW.SetRepositories(mockEntitlementRepo, mockWalletRepo, nil, nil, nil, nil)

	svc := NewPaymentService(mockFactory, mockGateway, testConfig())

	expiresAt := time.Now().Add(24 * time.Hour)
	winner := &models.Entitlement{
		WalletAddress:    "wallet-a",
		PaymentReference: "pay-1",
		ExpiresAt:        expiresAt,
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	// Not present at the pre-check, then a concurrent request wins the insert
	mockEntitlementRepo.On("GetByPaymentReference", ctx, "pay-1").Return(nil, nil).Once()
	mockGateway.On("GetTransaction", ctx, "pay-1").
		Return(paymentTransaction("wallet-a", 10_000_000, 10_000_000), nil)
	mockEntitlementRepo.On("Create", ctx, mock.AnythingOfType("*models.Entitlement")).
		Return(&pgconn.PgError{Code: "23505"})
	mockEntitlementRepo.On("GetByPaymentReference", ctx, "pay-1").Return(winner, nil).Once()
	mockWalletRepo.On("GetByWallet", ctx, "wallet-a").
		Return(&models.WalletAggregate{WalletAddress: "wallet-a", TicketCount: 1}, nil)

	result, err := svc.Verify(ctx, "wallet-a", "pay-1")

	assert.NoError(t, err)
	assert.True(t, result.Granted)
	assert.True(t, result.AlreadyProcessed)
	assert.Equal(t, expiresAt, result.ExpiresAt)
	mockEntitlementRepo.AssertExpectations(t)
}

func TestPaymentService_Verify_Validation(t *testing.T) {
	svc := NewPaymentService(new(MockUnitOfWorkFactory), new(MockChainGateway), testConfig())

	_, err := svc.Verify(context.Background(), "", "pay-1")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Verify(context.Background(), "wallet-a", "  ")
	assert.ErrorIs(t, err, ErrValidation)
}
