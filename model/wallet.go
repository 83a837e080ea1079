// api/model/wallet.go
package model

import "time"

// Wallet statuses.
const (
	WalletStatusActive  = "Active"
	WalletStatusFrozen  = "Frozen"
	WalletStatusPending = "Pending"
)

// Wallet is a user's stored-value account. Balance mutation happens in the
// ledger service; this API only reads balances and toggles wallet status.
type Wallet struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Currency  string    `json:"currency"`
	Balance   int64     `json:"balance"` // minor units
	Status    string    `json:"status"`  // "Active", "Frozen", "Pending"
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
