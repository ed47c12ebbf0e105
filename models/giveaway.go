package models

import (
	"time"
)

// GiveawayEntry is a community giveaway entry. A participant may enter at most
// once per period; the unique constraint on (period_id, participant_id)
// enforces it.
type GiveawayEntry struct {
	ID            int64     `db:"id" json:"id"`
	PeriodID      string    `db:"period_id" json:"periodId"`
	ParticipantID string    `db:"participant_id" json:"participantId"`
	EnteredAt     time.Time `db:"entered_at" json:"enteredAt"`
}

// GiveawayDraw records one equal-weight community draw per period.
type GiveawayDraw struct {
	ID            int64     `db:"id" json:"id"`
	PeriodID      string    `db:"period_id" json:"periodId"`
	WinnerID      string    `db:"winner_id" json:"winnerId"`
	EntryCount    int64     `db:"entry_count" json:"entryCount"`
	PrizeAmount   int64     `db:"prize_amount" json:"prizeAmount"`
	SnapshotCount int64     `db:"snapshot_count" json:"snapshotCount"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}
