package models

import (
	"time"
)

// Entitlement represents a time-boxed access grant created by a verified payment.
// Rows are insert-only: the unique constraint on PaymentReference is the
// idempotency gate for payment verification, and the table doubles as the
// audit trail that aggregates are rebuilt from.
type Entitlement struct {
	ID               int64     `db:"id"`
	WalletAddress    string    `db:"wallet_address"`
	PaymentReference string    `db:"payment_reference"`
	AmountPaid       int64     `db:"amount_paid"`
	ExpiresAt        time.Time `db:"expires_at"`
	CreatedAt        time.Time `db:"created_at"`
}

// Active reports whether the entitlement grants access at the given time.
func (e *Entitlement) Active(at time.Time) bool {
	return e.ExpiresAt.After(at)
}

// VerifyResult is the outcome of a payment verification. AlreadyProcessed
// marks the idempotent path where the payment had been verified before; the
// grant fields describe the stored entitlement either way.
type VerifyResult struct {
	Granted          bool      `json:"granted"`
	AlreadyProcessed bool      `json:"alreadyProcessed"`
	WalletAddress    string    `json:"walletAddress"`
	PaymentReference string    `json:"paymentReference"`
	ExpiresAt        time.Time `json:"expiresAt"`
	TicketCount      int64     `json:"ticketCount"`
}
