package repository

import (
	"context"
	"testing"
	"time"

	"racepool/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletAggregateRepository_ApplyCredit(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewWalletAggregateRepository(testDB.DB)
	ctx := context.Background()
	now := time.Now()

	t.Run("first payment creates the aggregate", func(t *testing.T) {
		agg, err := repo.ApplyCredit(ctx, "wallet-a", 20_000_000, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), agg.TicketCount)
		assert.Equal(t, int64(20_000_000), agg.TotalPaid)
	})

	t.Run("repeat payments accumulate", func(t *testing.T) {
		agg, err := repo.ApplyCredit(ctx, "wallet-a", 20_000_000, now.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, int64(2), agg.TicketCount)
		assert.Equal(t, int64(40_000_000), agg.TotalPaid)
		assert.True(t, agg.LastSeen.After(agg.FirstSeen))
	})
}

func TestWalletAggregateRepository_TicketQueries(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewWalletAggregateRepository(testDB.DB)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		_, err := repo.ApplyCredit(ctx, "wallet-a", 20_000_000, now)
		require.NoError(t, err)
	}
	_, err := repo.ApplyCredit(ctx, "wallet-b", 20_000_000, now)
	require.NoError(t, err)

	t.Run("ticket holders in deterministic order", func(t *testing.T) {
		holders, err := repo.GetTicketHolders(ctx)
		require.NoError(t, err)
		require.Len(t, holders, 2)
		assert.Equal(t, "wallet-a", holders[0].WalletAddress)
		assert.Equal(t, int64(3), holders[0].TicketCount)
		assert.Equal(t, "wallet-b", holders[1].WalletAddress)
	})

	t.Run("total tickets", func(t *testing.T) {
		total, err := repo.TotalTickets(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
	})

	t.Run("top wallets by tickets", func(t *testing.T) {
		top, err := repo.GetTop(ctx, 1)
		require.NoError(t, err)
		require.Len(t, top, 1)
		assert.Equal(t, "wallet-a", top[0].WalletAddress)
	})
}

func TestWalletAggregateRepository_Rebuild(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	walletRepo := NewWalletAggregateRepository(testDB.DB)
	entitlementRepo := NewEntitlementRepository(testDB.DB)
	ctx := context.Background()

	// Two payments for wallet-a, one for wallet-b
	require.NoError(t, entitlementRepo.Create(ctx, testutil.CreateTestEntitlement("wallet-a", "pay-rebuild-1")))
	require.NoError(t, entitlementRepo.Create(ctx, testutil.CreateTestEntitlement("wallet-a", "pay-rebuild-2")))
	require.NoError(t, entitlementRepo.Create(ctx, testutil.CreateTestEntitlement("wallet-b", "pay-rebuild-3")))

	// A drifted aggregate the rebuild should correct
	_, err := walletRepo.ApplyCredit(ctx, "wallet-a", 20_000_000, time.Now())
	require.NoError(t, err)

	wallets, err := walletRepo.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), wallets)

	agg, err := walletRepo.GetByWallet(ctx, "wallet-a")
	require.NoError(t, err)
	require.NotNil(t, agg)
	assert.Equal(t, int64(2), agg.TicketCount)
	assert.Equal(t, int64(40_000_000), agg.TotalPaid)

	total, err := walletRepo.TotalTickets(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}
