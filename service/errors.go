package service

import "errors"

// Sentinel errors for the money paths. Callers classify with errors.Is; the
// HTTP layer maps each to a status code.
var (
	// ErrValidation marks malformed or missing input. Never retryable.
	ErrValidation = errors.New("invalid input")

	// ErrNotYetConfirmed means the ledger does not show the transaction yet.
	// The payment may still confirm; callers should retry later.
	ErrNotYetConfirmed = errors.New("transaction not yet confirmed")

	// ErrPermanentRejection means the transaction is visible but does not
	// satisfy the payment requirements. Retrying cannot change the outcome.
	ErrPermanentRejection = errors.New("payment permanently rejected")

	// ErrInsufficientFunds means the payout source cannot cover the prize
	// plus the reserve buffer. The draw is refused before any money moves.
	ErrInsufficientFunds = errors.New("insufficient funds for payout")

	// ErrNoEligibleEntrants means a draw was requested with nobody to win it.
	ErrNoEligibleEntrants = errors.New("no eligible entrants")

	// ErrAlreadyDrawn means the period already has a settled draw record.
	ErrAlreadyDrawn = errors.New("period already drawn")

	// ErrUpstreamUnavailable means a dependency (ledger node, partner feed)
	// could not be reached or answered garbage. Retryable.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
