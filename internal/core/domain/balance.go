package domain

import "github.com/shopspring/decimal"

// Balance is the derived position of an account at a point in causal time.
// OwnAmount counts committed postings only; the min/max bounds additionally
// admit the pending postings of open plans that could still commit.
// MinAvailableAmount <= OwnAmount <= MaxAvailableAmount always holds.
type Balance struct {
	AccountID          string          `json:"accountID"`
	CurrencyCode       string          `json:"currencyCode"`
	OwnAmount          decimal.Decimal `json:"ownAmount"`
	MinAvailableAmount decimal.Decimal `json:"minAvailableAmount"`
	MaxAvailableAmount decimal.Decimal `json:"maxAvailableAmount"`
	Clock              Clock           `json:"clock"` // Clock the balance was computed at
}

// AccountPosting is one posting touching an account, joined with the current
// status of the plan that recorded it. Balance folds consume these.
type AccountPosting struct {
	PlanID     string     `json:"planID"`
	BatchID    int64      `json:"batchID"`
	PlanStatus PlanStatus `json:"planStatus"`
	Posting    Posting    `json:"posting"`
}
