package wallet

import "time"

// Wallet holds a named balance in minor units (scaled by 10,000).
type Wallet struct {
	ID        string
	Name      string
	Balance   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
