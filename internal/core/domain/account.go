package domain

import "time"

// Account represents a ledger account within the core domain.
// Accounts are created lazily by the first posting that references them and
// are immutable afterwards; balances are always derived, never stored here.
type Account struct {
	AccountID    string    `json:"accountID"`    // Caller-supplied opaque identifier
	CurrencyCode string    `json:"currencyCode"` // Fixed at creation (Not Null)
	CreatedAt    time.Time `json:"createdAt"`
}
