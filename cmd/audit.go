package cmd

import (
	"context"

	"racepool/events"

	log "github.com/sirupsen/logrus"
)

// registerAuditLog subscribes structured log handlers for every money-moving
// event, so each verified payment and payout leaves a durable trail.
func registerAuditLog(bus *events.Bus) {
	bus.Subscribe(events.EventTypePaymentVerified, func(ctx context.Context, e events.Event) {
		ev, ok := e.(events.PaymentVerifiedEvent)
		if !ok {
			return
		}
		log.WithFields(log.Fields{
			"wallet":    ev.WalletAddress,
			"reference": ev.PaymentReference,
			"amount":    ev.AmountPaid,
			"expiresAt": ev.ExpiresAt,
			"tickets":   ev.TicketCount,
		}).Info("audit: payment verified")
	})

	bus.Subscribe(events.EventTypeDrawCompleted, func(ctx context.Context, e events.Event) {
		ev, ok := e.(events.DrawCompletedEvent)
		if !ok {
			return
		}
		fields := log.Fields{
			"period": ev.PeriodID,
			"winner": ev.WinnerWallet,
			"prize":  ev.PrizeAmount,
			"paid":   ev.Paid,
		}
		if ev.PayoutReference != nil {
			fields["payoutReference"] = *ev.PayoutReference
		}
		log.WithFields(fields).Info("audit: jackpot draw completed")
	})

	bus.Subscribe(events.EventTypeGiveawayDrawn, func(ctx context.Context, e events.Event) {
		ev, ok := e.(events.GiveawayDrawnEvent)
		if !ok {
			return
		}
		log.WithFields(log.Fields{
			"period":  ev.PeriodID,
			"winner":  ev.WinnerID,
			"entries": ev.EntryCount,
			"prize":   ev.PrizeAmount,
		}).Info("audit: giveaway drawn")
	})
}
