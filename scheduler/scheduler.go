// Package scheduler fires the weekly jackpot and giveaway draws on a cron
// schedule. Both draw operations are idempotent per period, so a tick that
// races an operator-triggered draw is harmless.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"racepool/service"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// drawTimeout bounds one scheduled tick, payout confirmation included.
const drawTimeout = 2 * time.Minute

// Scheduler runs the periodic draws.
type Scheduler struct {
	cron     *cron.Cron
	draws    service.DrawService
	giveaway service.GiveawayService
}

// New creates a scheduler with the weekly draw job registered on the given
// cron expression (standard 5-field syntax, evaluated in UTC).
func New(schedule string, draws service.DrawService, giveaway service.GiveawayService) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		draws:    draws,
		giveaway: giveaway,
	}

	if _, err := s.cron.AddFunc(schedule, s.runDraws); err != nil {
		return nil, fmt.Errorf("invalid draw schedule %q: %w", schedule, err)
	}

	return s, nil
}

// Start begins firing scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info("Draw scheduler started")
}

// Stop halts the schedule and waits for any running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Draw scheduler stopped")
}

// runDraws settles the current period: jackpot first, then the giveaway. A
// failure in one does not block the other.
func (s *Scheduler) runDraws() {
	ctx, cancel := context.WithTimeout(context.Background(), drawTimeout)
	defer cancel()

	periodID := service.CurrentPeriodID()
	log.WithField("period", periodID).Info("Scheduled draw tick")

	if result, err := s.draws.Draw(ctx, periodID); err != nil {
		if errors.Is(err, service.ErrInsufficientFunds) {
			log.WithField("period", periodID).Warn("Skipping jackpot draw: pool cannot cover the prize")
		} else if errors.Is(err, service.ErrNoEligibleEntrants) {
			log.WithField("period", periodID).Info("Skipping jackpot draw: no tickets outstanding")
		} else {
			log.WithError(err).WithField("period", periodID).Error("Scheduled jackpot draw failed")
		}
	} else if result.AlreadyDrawn {
		log.WithField("period", periodID).Info("Jackpot already drawn for period")
	}

	if draw, err := s.giveaway.Draw(ctx, periodID); err != nil {
		if errors.Is(err, service.ErrNoEligibleEntrants) {
			log.WithField("period", periodID).Info("Skipping giveaway draw: no active entrants")
		} else {
			log.WithError(err).WithField("period", periodID).Error("Scheduled giveaway draw failed")
		}
	} else {
		log.WithFields(log.Fields{
			"period": periodID,
			"winner": draw.WinnerID,
		}).Info("Scheduled giveaway settled")
	}
}
