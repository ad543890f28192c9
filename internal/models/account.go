package models

import "time"

// Account represents a ledger account row.
type Account struct {
	AccountID    string    `db:"account_id"`
	CurrencyCode string    `db:"currency_code"`
	CreatedAt    time.Time `db:"created_at"`
}
