package testutil

import (
	"fmt"
	"time"

	"racepool/models"
)

// CreateTestEntitlement creates a test entitlement active for 24 hours
func CreateTestEntitlement(wallet, reference string) *models.Entitlement {
	return &models.Entitlement{
		WalletAddress:    wallet,
		PaymentReference: reference,
		AmountPaid:       20_000_000,
		ExpiresAt:        time.Now().Add(24 * time.Hour),
	}
}

// CreateExpiredEntitlement creates a test entitlement that expired an hour ago
func CreateExpiredEntitlement(wallet, reference string) *models.Entitlement {
	entitlement := CreateTestEntitlement(wallet, reference)
	entitlement.ExpiresAt = time.Now().Add(-time.Hour)
	return entitlement
}

// CreateTestDrawRecord creates a test draw record ready to be claimed
func CreateTestDrawRecord(periodID, winner string) *models.DrawRecord {
	return &models.DrawRecord{
		PeriodID:      periodID,
		WinnerWallet:  winner,
		WinnerTickets: 3,
		TotalTickets:  4,
		PrizeAmount:   40_000_000,
	}
}

// CreateTestEarnings creates a participant earnings row
func CreateTestEarnings(participantID string, cumulative int64) *models.ParticipantEarnings {
	return &models.ParticipantEarnings{
		ParticipantID:      participantID,
		CumulativeEarnings: cumulative,
	}
}

// CreateTestGiveawayEntry creates a test giveaway entry
func CreateTestGiveawayEntry(periodID, participantID string) *models.GiveawayEntry {
	return &models.GiveawayEntry{
		PeriodID:      periodID,
		ParticipantID: participantID,
	}
}

// UniqueReference returns a payment reference unique within a test
func UniqueReference(prefix string, n int) string {
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano(), n)
}
