package models

import (
	"time"
)

// DrawStatus represents the terminal state of a jackpot draw period
type DrawStatus string

const (
	// DrawStatusDrawing marks a period claimed by a draw in progress. The row
	// exists so that exactly one caller ever submits the payout transfer.
	DrawStatusDrawing DrawStatus = "drawing"
	// DrawStatusPaid marks a period whose payout was confirmed on-chain
	DrawStatusPaid DrawStatus = "paid"
	// DrawStatusFailed marks a period whose payout submission failed; the slot
	// stays consumed so an ambiguous transfer is never retried automatically
	DrawStatusFailed DrawStatus = "failed"
)

// DrawRecord represents one jackpot draw. The unique constraint on PeriodID is
// the serialization point for concurrent draws of the same period.
type DrawRecord struct {
	ID              int64      `db:"id" json:"id"`
	PeriodID        string     `db:"period_id" json:"periodId"`
	Status          DrawStatus `db:"status" json:"status"`
	WinnerWallet    string     `db:"winner_wallet" json:"winnerWallet"`
	WinnerTickets   int64      `db:"winner_tickets" json:"winnerTickets"`
	TotalTickets    int64      `db:"total_tickets" json:"totalTickets"`
	PrizeAmount     int64      `db:"prize_amount" json:"prizeAmount"`
	PayoutReference *string    `db:"payout_reference" json:"payoutReference,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`
}

// DrawResult is the outcome returned to callers of the draw engine.
type DrawResult struct {
	PeriodID        string     `json:"periodId"`
	Winner          string     `json:"winner"`
	WinnerTickets   int64      `json:"winnerTickets"`
	TotalTickets    int64      `json:"totalTickets"`
	PrizeAmount     int64      `json:"prizeAmount"`
	PayoutReference *string    `json:"payoutReference,omitempty"`
	Status          DrawStatus `json:"status"`
	AlreadyDrawn    bool       `json:"alreadyDrawn"`
}
