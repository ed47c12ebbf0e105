package models

import (
	"time"
)

// WalletAggregate is the per-wallet rollup of verified payments: one lottery
// ticket per payment plus the lifetime totals. It is a cache over entitlement
// rows and must stay re-derivable from them.
type WalletAggregate struct {
	WalletAddress string    `db:"wallet_address" json:"walletAddress"`
	TicketCount   int64     `db:"ticket_count" json:"ticketCount"`
	TotalPaid     int64     `db:"total_paid" json:"totalPaid"`
	FirstSeen     time.Time `db:"first_seen" json:"firstSeen"`
	LastSeen      time.Time `db:"last_seen" json:"lastSeen"`
}
