package service

import (
	"context"
	"fmt"
	"math/rand"

	"racepool/config"
	"racepool/events"
	"racepool/models"

	log "github.com/sirupsen/logrus"
)

type drawService struct {
	uowFactory UnitOfWorkFactory
	gateway    ChainGateway
	cfg        *config.Config

	// drawValue picks a uniform value in [0, n); swapped out in tests
	drawValue func(n int64) int64
}

// NewDrawService creates a new jackpot draw service
func NewDrawService(uowFactory UnitOfWorkFactory, gateway ChainGateway, cfg *config.Config) DrawService {
	return &drawService{
		uowFactory: uowFactory,
		gateway:    gateway,
		cfg:        cfg,
		drawValue:  rand.Int63n,
	}
}

func (s *drawService) Draw(ctx context.Context, periodID string) (*models.DrawResult, error) {
	if !ValidPeriodID(periodID) {
		return nil, fmt.Errorf("%w: malformed period id %q", ErrValidation, periodID)
	}

	// A period that already has a record is settled or settling; report the
	// stored outcome instead of drawing again
	existing, err := s.getRecord(ctx, periodID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return resultFromRecord(existing, true), nil
	}

	holders, totalTickets, err := s.ticketHolders(ctx)
	if err != nil {
		return nil, err
	}
	if totalTickets == 0 {
		return nil, fmt.Errorf("%w: no tickets outstanding for period %s", ErrNoEligibleEntrants, periodID)
	}

	prize := s.cfg.PerTicketPayout * totalTickets

	// Fail closed before claiming the period: an unaffordable draw leaves no
	// record, so the period can be drawn once funds arrive
	if err := s.checkAffordable(ctx, prize); err != nil {
		return nil, err
	}

	winner := pickWinner(holders, s.drawValue(totalTickets))

	rec := &models.DrawRecord{
		PeriodID:      periodID,
		WinnerWallet:  winner.WalletAddress,
		WinnerTickets: winner.TicketCount,
		TotalTickets:  totalTickets,
		PrizeAmount:   prize,
	}

	claimed, err := s.claim(ctx, rec)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// Lost the race to a concurrent draw; its record stands
		stored, err := s.getRecord(ctx, periodID)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			return nil, fmt.Errorf("draw record for period %s vanished after claim conflict", periodID)
		}
		return resultFromRecord(stored, true), nil
	}

	return s.settle(ctx, rec)
}

func (s *drawService) RetryDraw(ctx context.Context, periodID string) (*models.DrawResult, error) {
	if !ValidPeriodID(periodID) {
		return nil, fmt.Errorf("%w: malformed period id %q", ErrValidation, periodID)
	}

	existing, err := s.getRecord(ctx, periodID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("%w: period %s has no draw to retry", ErrValidation, periodID)
	}
	if existing.Status != models.DrawStatusFailed {
		return resultFromRecord(existing, true), nil
	}

	// The failed record keeps its winner and prize; a retry only re-attempts
	// the payout
	if err := s.checkAffordable(ctx, existing.PrizeAmount); err != nil {
		return nil, err
	}

	rec, reclaimed, err := s.reclaim(ctx, periodID)
	if err != nil {
		return nil, err
	}
	if !reclaimed {
		// Another retry got there first
		stored, err := s.getRecord(ctx, periodID)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			return nil, fmt.Errorf("draw record for period %s vanished during retry", periodID)
		}
		return resultFromRecord(stored, true), nil
	}

	return s.settle(ctx, rec)
}

// settle pays the claimed winner and finalizes the record. A payout that does
// not land marks the record failed; the period's slot is consumed either way
// and only an explicit retry touches it again.
func (s *drawService) settle(ctx context.Context, rec *models.DrawRecord) (*models.DrawResult, error) {
	reference, err := s.gateway.SubmitTransfer(ctx, s.cfg.PoolAddress, rec.WinnerWallet, rec.PrizeAmount)
	if err != nil {
		log.WithError(err).WithField("period", rec.PeriodID).Error("payout submission failed")
		return s.finalize(ctx, rec, models.DrawStatusFailed, nil)
	}

	confirmed, err := s.gateway.ConfirmTransfer(ctx, reference)
	if err != nil || !confirmed {
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"period":   rec.PeriodID,
				"transfer": reference,
			}).Error("payout confirmation failed")
		} else {
			log.WithFields(log.Fields{
				"period":   rec.PeriodID,
				"transfer": reference,
			}).Error("payout transfer failed on-ledger")
		}
		// The transfer may still land if confirmation merely timed out, so the
		// reference is kept for the operator to reconcile before retrying
		return s.finalize(ctx, rec, models.DrawStatusFailed, &reference)
	}

	return s.finalize(ctx, rec, models.DrawStatusPaid, &reference)
}

// finalize records the draw outcome, adjusts the pool on success, and emits
// the completion event
func (s *drawService) finalize(ctx context.Context, rec *models.DrawRecord, status models.DrawStatus, payoutReference *string) (*models.DrawResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	if err := uow.DrawRecordRepository().Finalize(ctx, rec.PeriodID, status, payoutReference); err != nil {
		return nil, err
	}

	if status == models.DrawStatusPaid {
		if err := uow.PoolRepository().Increment(ctx, -rec.PrizeAmount); err != nil {
			return nil, fmt.Errorf("failed to deduct payout from pool: %w", err)
		}
	}

	uow.EventBus().Publish(events.DrawCompletedEvent{
		PeriodID:        rec.PeriodID,
		WinnerWallet:    rec.WinnerWallet,
		PrizeAmount:     rec.PrizeAmount,
		PayoutReference: payoutReference,
		Paid:            status == models.DrawStatusPaid,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"period": rec.PeriodID,
		"winner": rec.WinnerWallet,
		"prize":  rec.PrizeAmount,
		"status": status,
	}).Info("draw settled")

	rec.Status = status
	rec.PayoutReference = payoutReference
	return resultFromRecord(rec, false), nil
}

// checkAffordable refuses a payout the pool account cannot cover with the
// reserve buffer left intact
func (s *drawService) checkAffordable(ctx context.Context, prize int64) error {
	balance, err := s.gateway.GetBalance(ctx, s.cfg.PoolAddress)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if balance < prize+s.cfg.ReserveBuffer {
		return fmt.Errorf("%w: pool holds %d, payout needs %d plus %d reserve",
			ErrInsufficientFunds, balance, prize, s.cfg.ReserveBuffer)
	}
	return nil
}

func (s *drawService) getRecord(ctx context.Context, periodID string) (*models.DrawRecord, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.DrawRecordRepository().GetByPeriod(ctx, periodID)
}

func (s *drawService) ticketHolders(ctx context.Context) ([]*models.WalletAggregate, int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	holders, err := uow.WalletAggregateRepository().GetTicketHolders(ctx)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	for _, h := range holders {
		total += h.TicketCount
	}
	return holders, total, nil
}

func (s *drawService) claim(ctx context.Context, rec *models.DrawRecord) (bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	claimed, err := uow.DrawRecordRepository().Claim(ctx, rec)
	if err != nil {
		return false, err
	}
	if !claimed {
		return false, nil
	}

	if err := uow.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit claim: %w", err)
	}
	return true, nil
}

func (s *drawService) reclaim(ctx context.Context, periodID string) (*models.DrawRecord, bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	rec, reclaimed, err := uow.DrawRecordRepository().ReclaimFailed(ctx, periodID)
	if err != nil {
		return nil, false, err
	}
	if !reclaimed {
		return nil, false, nil
	}

	if err := uow.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit reclaim: %w", err)
	}
	return rec, true, nil
}

// pickWinner walks the holders in order, handing the win to the holder whose
// cumulative ticket range contains drawValue. Each ticket carries equal
// weight, so a wallet's chance is proportional to its ticket count.
func pickWinner(holders []*models.WalletAggregate, drawValue int64) *models.WalletAggregate {
	var cumulative int64
	for _, h := range holders {
		cumulative += h.TicketCount
		if drawValue < cumulative {
			return h
		}
	}
	return holders[len(holders)-1]
}

func resultFromRecord(rec *models.DrawRecord, alreadyDrawn bool) *models.DrawResult {
	return &models.DrawResult{
		PeriodID:        rec.PeriodID,
		Winner:          rec.WinnerWallet,
		WinnerTickets:   rec.WinnerTickets,
		TotalTickets:    rec.TotalTickets,
		PrizeAmount:     rec.PrizeAmount,
		PayoutReference: rec.PayoutReference,
		Status:          rec.Status,
		AlreadyDrawn:    alreadyDrawn,
	}
}
