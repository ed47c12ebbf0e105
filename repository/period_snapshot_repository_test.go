package repository

import (
	"context"
	"testing"

	"racepool/models"
	"racepool/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodSnapshotRepository_Upsert(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewPeriodSnapshotRepository(testDB.DB)
	ctx := context.Background()

	participants := []*models.ParticipantEarnings{
		testutil.CreateTestEarnings("alpha", 100),
		testutil.CreateTestEarnings("beta", 50),
	}

	written, err := repo.Upsert(ctx, "2026-W10", participants)
	require.NoError(t, err)
	assert.Equal(t, int64(2), written)

	t.Run("re-running overwrites with latest values", func(t *testing.T) {
		updated := []*models.ParticipantEarnings{
			testutil.CreateTestEarnings("alpha", 120),
		}
		written, err := repo.Upsert(ctx, "2026-W10", updated)
		require.NoError(t, err)
		assert.Equal(t, int64(1), written)

		baselines, err := repo.GetBaselines(ctx, "2026-W10")
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"alpha": 120, "beta": 50}, baselines)
	})
}

func TestPeriodSnapshotRepository_GetLatestPeriodBefore(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewPeriodSnapshotRepository(testDB.DB)
	ctx := context.Background()

	t.Run("no snapshots at all", func(t *testing.T) {
		latest, err := repo.GetLatestPeriodBefore(ctx, "2026-W10")
		require.NoError(t, err)
		assert.Equal(t, "", latest)
	})

	t.Run("closest earlier period wins", func(t *testing.T) {
		for _, period := range []string{"2026-W05", "2026-W08", "2026-W12"} {
			_, err := repo.Upsert(ctx, period, []*models.ParticipantEarnings{
				testutil.CreateTestEarnings("alpha", 10),
			})
			require.NoError(t, err)
		}

		latest, err := repo.GetLatestPeriodBefore(ctx, "2026-W10")
		require.NoError(t, err)
		assert.Equal(t, "2026-W08", latest)

		// The current period's own snapshot never serves as its baseline
		latest, err = repo.GetLatestPeriodBefore(ctx, "2026-W12")
		require.NoError(t, err)
		assert.Equal(t, "2026-W08", latest)
	})
}

func TestPeriodSnapshotRepository_GetBaselines(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewPeriodSnapshotRepository(testDB.DB)
	ctx := context.Background()

	baselines, err := repo.GetBaselines(ctx, "2026-W10")
	require.NoError(t, err)
	assert.Empty(t, baselines)

	_, err = repo.Upsert(ctx, "2026-W10", []*models.ParticipantEarnings{
		testutil.CreateTestEarnings("alpha", 100),
		testutil.CreateTestEarnings("beta", 0),
	})
	require.NoError(t, err)

	baselines, err = repo.GetBaselines(ctx, "2026-W10")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"alpha": 100, "beta": 0}, baselines)
}
