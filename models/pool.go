package models

import (
	"time"
)

// PoolAggregate tracks the accumulated jackpot pool contributions recorded by
// the ledger. It is advisory: the on-chain balance of the pool account is the
// only authority consulted before a payout.
type PoolAggregate struct {
	TotalAmount int64     `db:"total_amount"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// RebuildSummary reports what an aggregate rebuild recomputed.
type RebuildSummary struct {
	Wallets   int64 `json:"wallets"`
	PoolTotal int64 `json:"poolTotal"`
}

// PoolSummary is the read-model returned by the pool query endpoint.
type PoolSummary struct {
	LedgerTotal    int64              `json:"ledgerTotal"`
	OnChainBalance int64              `json:"onChainBalance"`
	TopWallets     []*WalletAggregate `json:"topWallets"`
	RecentDraw     *DrawRecord        `json:"recentDraw,omitempty"`
}
