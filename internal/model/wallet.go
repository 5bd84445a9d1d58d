package model

import "time"

// Wallet is a customer's enrollment in one loyalty program. One wallet
// per (customer, program) pair.
type Wallet struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customer_id"`
	ProgramID  int64     `json:"program_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Participation holds the wallet's balances. Points may drop on
// redemption; AllTimePoints only ever grows.
type Participation struct {
	WalletID      int64 `json:"wallet_id"`
	ProgramID     int64 `json:"program_id"`
	Points        int   `json:"points"`
	AllTimePoints int   `json:"all_time_points"`
}
