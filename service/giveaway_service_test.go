package service

import (
	"context"
	"testing"
	"time"

	"racepool/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func giveawayEntries(periodID string, participants ...string) []*models.GiveawayEntry {
	var entries []*models.GiveawayEntry
	for i, p := range participants {
		entries = append(entries, &models.GiveawayEntry{
			ID:            int64(i + 1),
			PeriodID:      periodID,
			ParticipantID: p,
			EnteredAt:     time.Now(),
		})
	}
	return entries
}

func TestGiveawayService_Enter(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockGiveawayRepo := new(MockGiveawayRepository)

	mockUoW.SetRepositories(nil, nil, nil, nil, nil, mockGiveawayRepo)

	svc := NewGiveawayService(mockFactory, new(MockEarningsFeed), NewSnapshotTracker(mockFactory))

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockGiveawayRepo.On("GetDrawByPeriod", ctx, "2026-W36").Return(nil, nil)
	mockGiveawayRepo.On("CreateEntry", ctx, mock.MatchedBy(func(e *models.GiveawayEntry) bool {
		return e.PeriodID == "2026-W36" && e.ParticipantID == "alpha"
	})).Return(nil)

	entry, err := svc.Enter(ctx, "2026-W36", "alpha")

	assert.NoError(t, err)
	assert.Equal(t, "alpha", entry.ParticipantID)
	mockGiveawayRepo.AssertExpectations(t)
}

func TestGiveawayService_Enter_Twice(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockGiveawayRepo := new(MockGiveawayRepository)

	mockUoW.SetRepositories(nil, nil, nil, nil, nil, mockGiveawayRepo)

	svc := NewGiveawayService(mockFactory, new(MockEarningsFeed), NewSnapshotTracker(mockFactory))

	stored := &models.GiveawayEntry{ID: 4, PeriodID: "2026-W36", ParticipantID: "alpha"}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockGiveawayRepo.On("GetDrawByPeriod", ctx, "2026-W36").Return(nil, nil)
	mockGiveawayRepo.On("CreateEntry", ctx, mock.AnythingOfType("*models.GiveawayEntry")).
		Return(&pgconn.PgError{Code: "23505"})
	mockGiveawayRepo.On("GetEntryByParticipant", ctx, "2026-W36", "alpha").Return(stored, nil)

	entry, err := svc.Enter(ctx, "2026-W36", "alpha")

	assert.NoError(t, err)
	assert.Equal(t, int64(4), entry.ID)
}

func TestGiveawayService_Enter_PeriodClosed(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockGiveawayRepo := new(MockGiveawayRepository)

	mockUoW.SetRepositories(nil, nil, nil, nil, nil, mockGiveawayRepo)

	svc := NewGiveawayService(mockFactory, new(MockEarningsFeed), NewSnapshotTracker(mockFactory))

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockGiveawayRepo.On("GetDrawByPeriod", ctx, "2026-W36").
		Return(&models.GiveawayDraw{PeriodID: "2026-W36", WinnerID: "beta"}, nil)

	entry, err := svc.Enter(ctx, "2026-W36", "alpha")

	assert.Nil(t, entry)
	assert.ErrorIs(t, err, ErrAlreadyDrawn)
	mockGiveawayRepo.AssertNotCalled(t, "CreateEntry", mock.Anything, mock.Anything)
}

func TestGiveawayService_Draw(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockGiveawayRepo := new(MockGiveawayRepository)
	mockSnapshotRepo := new(MockPeriodSnapshotRepository)
	mockFeed := new(MockEarningsFeed)

	mockUoW.SetRepositories(nil, nil, nil, nil, mockSnapshotRepo, mockGiveawayRepo)

	svc := NewGiveawayService(mockFactory, mockFeed, NewSnapshotTracker(mockFactory)).(*giveawayService)
	svc.drawIndex = func(n int64) int64 { return 1 } // second eligible entrant

	current := earnings("alpha", 100, "beta", 50, "gamma", 90)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockGiveawayRepo.On("GetDrawByPeriod", ctx, "2026-W36").Return(nil, nil)
	mockFeed.On("GetParticipantEarnings", ctx).Return(current, nil)

	// beta was idle this period; alpha and gamma earned
	mockSnapshotRepo.On("GetLatestPeriodBefore", ctx, "2026-W36").Return("2026-W35", nil)
	mockSnapshotRepo.On("GetBaselines", ctx, "2026-W35").
		Return(map[string]int64{"alpha": 60, "beta": 50, "gamma": 70}, nil)

	mockGiveawayRepo.On("GetEntriesByPeriod", ctx, "2026-W36").
		Return(giveawayEntries("2026-W36", "alpha", "beta", "gamma"), nil)

	// alpha delta 40 plus gamma delta 20 is 60; half funds the prize
	mockGiveawayRepo.On("CreateDraw", ctx, mock.MatchedBy(func(d *models.GiveawayDraw) bool {
		return d.PeriodID == "2026-W36" &&
			d.WinnerID == "gamma" &&
			d.EntryCount == 3 &&
			d.PrizeAmount == 30 &&
			d.SnapshotCount == 3
	})).Return(nil)

	// Everyone is snapshotted, including idle beta
	mockSnapshotRepo.On("Upsert", ctx, "2026-W36", current).Return(int64(3), nil)

	draw, err := svc.Draw(ctx, "2026-W36")

	assert.NoError(t, err)
	assert.Equal(t, "gamma", draw.WinnerID)
	assert.Equal(t, int64(30), draw.PrizeAmount)

	mockGiveawayRepo.AssertExpectations(t)
	mockSnapshotRepo.AssertExpectations(t)
}

func TestGiveawayService_Draw_Idempotent(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockGiveawayRepo := new(MockGiveawayRepository)
	mockFeed := new(MockEarningsFeed)

	mockUoW.SetRepositories(nil, nil, nil, nil, nil, mockGiveawayRepo)

	svc := NewGiveawayService(mockFactory, mockFeed, NewSnapshotTracker(mockFactory))

	stored := &models.GiveawayDraw{ID: 2, PeriodID: "2026-W36", WinnerID: "beta"}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockGiveawayRepo.On("GetDrawByPeriod", ctx, "2026-W36").Return(stored, nil)

	draw, err := svc.Draw(ctx, "2026-W36")

	assert.NoError(t, err)
	assert.Equal(t, "beta", draw.WinnerID)
	mockFeed.AssertNotCalled(t, "GetParticipantEarnings", mock.Anything)
}

func TestGiveawayService_Draw_NoActiveEntrants(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockGiveawayRepo := new(MockGiveawayRepository)
	mockSnapshotRepo := new(MockPeriodSnapshotRepository)
	mockFeed := new(MockEarningsFeed)

	mockUoW.SetRepositories(nil, nil, nil, nil, mockSnapshotRepo, mockGiveawayRepo)

	svc := NewGiveawayService(mockFactory, mockFeed, NewSnapshotTracker(mockFactory))

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockGiveawayRepo.On("GetDrawByPeriod", ctx, "2026-W36").Return(nil, nil)
	mockFeed.On("GetParticipantEarnings", ctx).Return(earnings("alpha", 100), nil)
	mockSnapshotRepo.On("GetLatestPeriodBefore", ctx, "2026-W36").Return("2026-W35", nil)
	mockSnapshotRepo.On("GetBaselines", ctx, "2026-W35").
		Return(map[string]int64{"alpha": 100}, nil)
	mockGiveawayRepo.On("GetEntriesByPeriod", ctx, "2026-W36").
		Return(giveawayEntries("2026-W36", "alpha"), nil)

	draw, err := svc.Draw(ctx, "2026-W36")

	assert.Nil(t, draw)
	assert.ErrorIs(t, err, ErrNoEligibleEntrants)
	mockGiveawayRepo.AssertNotCalled(t, "CreateDraw", mock.Anything, mock.Anything)
}
