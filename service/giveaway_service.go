package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"racepool/database"
	"racepool/events"
	"racepool/models"

	log "github.com/sirupsen/logrus"
)

type giveawayService struct {
	uowFactory UnitOfWorkFactory
	feed       EarningsFeed
	tracker    SnapshotTracker

	// drawIndex picks a uniform value in [0, n); swapped out in tests
	drawIndex func(n int64) int64
}

// NewGiveawayService creates a new giveaway service
func NewGiveawayService(uowFactory UnitOfWorkFactory, feed EarningsFeed, tracker SnapshotTracker) GiveawayService {
	return &giveawayService{
		uowFactory: uowFactory,
		feed:       feed,
		tracker:    tracker,
		drawIndex:  rand.Int63n,
	}
}

func (s *giveawayService) Enter(ctx context.Context, periodID, participantID string) (*models.GiveawayEntry, error) {
	participantID = strings.TrimSpace(participantID)
	if !ValidPeriodID(periodID) {
		return nil, fmt.Errorf("%w: malformed period id %q", ErrValidation, periodID)
	}
	if participantID == "" {
		return nil, fmt.Errorf("%w: participant id required", ErrValidation)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	// Entries close once the period is drawn
	drawn, err := uow.GiveawayRepository().GetDrawByPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}
	if drawn != nil {
		return nil, fmt.Errorf("%w: giveaway for period %s is closed", ErrAlreadyDrawn, periodID)
	}

	entry := &models.GiveawayEntry{
		PeriodID:      periodID,
		ParticipantID: participantID,
	}
	if err := uow.GiveawayRepository().CreateEntry(ctx, entry); err != nil {
		if database.IsUniqueViolation(err) {
			// Entering twice is a no-op; hand back the stored entry
			if rbErr := uow.Rollback(); rbErr != nil {
				return nil, rbErr
			}
			return s.getEntry(ctx, periodID, participantID)
		}
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return entry, nil
}

func (s *giveawayService) Draw(ctx context.Context, periodID string) (*models.GiveawayDraw, error) {
	if !ValidPeriodID(periodID) {
		return nil, fmt.Errorf("%w: malformed period id %q", ErrValidation, periodID)
	}

	existing, err := s.getDraw(ctx, periodID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	current, err := s.feed.GetParticipantEarnings(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	active, err := s.tracker.ComputeActiveSet(ctx, periodID, current)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	entries, err := uow.GiveawayRepository().GetEntriesByPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}

	// Only entrants who actually earned this period are in the running
	var eligible []*models.GiveawayEntry
	var deltaSum int64
	for _, e := range entries {
		if delta, ok := active[e.ParticipantID]; ok {
			eligible = append(eligible, e)
			deltaSum += delta
		}
	}
	if len(eligible) == 0 {
		return nil, fmt.Errorf("%w: no active entrants for period %s", ErrNoEligibleEntrants, periodID)
	}

	// Half of what the active entrants earned this period funds the prize.
	// Every eligible entrant has an equal chance regardless of their delta.
	prize := deltaSum / 2
	winner := eligible[s.drawIndex(int64(len(eligible)))]

	draw := &models.GiveawayDraw{
		PeriodID:      periodID,
		WinnerID:      winner.ParticipantID,
		EntryCount:    int64(len(entries)),
		PrizeAmount:   prize,
		SnapshotCount: int64(len(current)),
	}
	if err := uow.GiveawayRepository().CreateDraw(ctx, draw); err != nil {
		if database.IsUniqueViolation(err) {
			if rbErr := uow.Rollback(); rbErr != nil {
				return nil, rbErr
			}
			return s.getDraw(ctx, periodID)
		}
		return nil, err
	}

	// Snapshot everyone, not just entrants, so next period's baseline covers
	// participants who sat this one out
	if _, err := uow.PeriodSnapshotRepository().Upsert(ctx, periodID, current); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.GiveawayDrawnEvent{
		PeriodID:    periodID,
		WinnerID:    winner.ParticipantID,
		EntryCount:  int64(len(entries)),
		PrizeAmount: prize,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"period":  periodID,
		"winner":  winner.ParticipantID,
		"entries": len(entries),
		"prize":   prize,
	}).Info("giveaway drawn")

	return draw, nil
}

func (s *giveawayService) GetEntries(ctx context.Context, periodID string) ([]*models.GiveawayEntry, error) {
	if !ValidPeriodID(periodID) {
		return nil, fmt.Errorf("%w: malformed period id %q", ErrValidation, periodID)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.GiveawayRepository().GetEntriesByPeriod(ctx, periodID)
}

func (s *giveawayService) GetRecentDraws(ctx context.Context, limit int) ([]*models.GiveawayDraw, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.GiveawayRepository().GetRecentDraws(ctx, limit)
}

func (s *giveawayService) getEntry(ctx context.Context, periodID, participantID string) (*models.GiveawayEntry, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	entry, err := uow.GiveawayRepository().GetEntryByParticipant(ctx, periodID, participantID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("giveaway entry for %s in period %s vanished after duplicate insert",
			participantID, periodID)
	}
	return entry, nil
}

func (s *giveawayService) getDraw(ctx context.Context, periodID string) (*models.GiveawayDraw, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.GiveawayRepository().GetDrawByPeriod(ctx, periodID)
}
