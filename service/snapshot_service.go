package service

import (
	"context"
	"fmt"

	"racepool/models"

	log "github.com/sirupsen/logrus"
)

type snapshotTracker struct {
	uowFactory UnitOfWorkFactory
}

// NewSnapshotTracker creates a new period snapshot tracker
func NewSnapshotTracker(uowFactory UnitOfWorkFactory) SnapshotTracker {
	return &snapshotTracker{
		uowFactory: uowFactory,
	}
}

func (s *snapshotTracker) TakeSnapshot(ctx context.Context, periodID string, participants []*models.ParticipantEarnings) (int64, error) {
	if !ValidPeriodID(periodID) {
		return 0, fmt.Errorf("%w: malformed period id %q", ErrValidation, periodID)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	written, err := uow.PeriodSnapshotRepository().Upsert(ctx, periodID, participants)
	if err != nil {
		return 0, err
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"period":       periodID,
		"participants": written,
	}).Info("period snapshot taken")

	return written, nil
}

// ComputeActiveSet compares current cumulative earnings against the most
// recent prior snapshot. A participant is active when they earned anything
// this period; with no prior snapshot at all, lifetime earnings stand in for
// the period delta.
func (s *snapshotTracker) ComputeActiveSet(ctx context.Context, periodID string, current []*models.ParticipantEarnings) (map[string]int64, error) {
	if !ValidPeriodID(periodID) {
		return nil, fmt.Errorf("%w: malformed period id %q", ErrValidation, periodID)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	baselinePeriod, err := uow.PeriodSnapshotRepository().GetLatestPeriodBefore(ctx, periodID)
	if err != nil {
		return nil, err
	}

	baselines := map[string]int64{}
	if baselinePeriod != "" {
		baselines, err = uow.PeriodSnapshotRepository().GetBaselines(ctx, baselinePeriod)
		if err != nil {
			return nil, err
		}
	}

	active := make(map[string]int64)
	for _, p := range current {
		delta := p.CumulativeEarnings - baselines[p.ParticipantID]
		// Upstream corrections can shrink cumulative totals; a negative
		// delta never counts as activity
		if delta > 0 {
			active[p.ParticipantID] = delta
		}
	}

	return active, nil
}
