package models

import (
	"time"
)

// PeriodSnapshot records a participant's cumulative upstream earnings at a
// period boundary. One row per (period, participant) with upsert semantics;
// the latest write for the key wins.
type PeriodSnapshot struct {
	ID            int64     `db:"id"`
	PeriodID      string    `db:"period_id"`
	ParticipantID string    `db:"participant_id"`
	Earnings      int64     `db:"earnings"`
	CreatedAt     time.Time `db:"created_at"`
}

// ParticipantEarnings is one row of the upstream partner feed after boundary
// validation.
type ParticipantEarnings struct {
	ParticipantID      string
	CumulativeEarnings int64
}
