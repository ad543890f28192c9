package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/trestleworks/planledger/internal/core/domain"
)

// Loader op kinds, matching the export format of the legacy system.
const (
	LoadOpHold     = "hold"
	LoadOpCommit   = "commit"
	LoadOpRollback = "rollback"
)

// LoadAccountRecord seeds one account before replay.
type LoadAccountRecord struct {
	AccountID    string    `json:"accountID" validate:"required"`
	CurrencyCode string    `json:"currencyCode" validate:"required"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ToDomainAccount converts a seed record to a domain Account.
func (r LoadAccountRecord) ToDomainAccount() domain.Account {
	return domain.Account{
		AccountID:    r.AccountID,
		CurrencyCode: r.CurrencyCode,
		CreatedAt:    r.CreatedAt,
	}
}

// LoadRecord is one flattened row of exported ledger history: a single
// posting of a hold, or a commit/rollback marker. Rows appear in historical
// order, with each batch's hold rows contiguous.
type LoadRecord struct {
	PlanID        string          `json:"planID" validate:"required"`
	BatchID       int64           `json:"batchID"`
	Op            string          `json:"op" validate:"required,oneof=hold commit rollback"`
	FromAccountID string          `json:"fromAccountID,omitempty"`
	ToAccountID   string          `json:"toAccountID,omitempty"`
	Amount        decimal.Decimal `json:"amount" validate:"nonnegative_decimal"`
	CurrencyCode  string          `json:"currencyCode,omitempty"`
	Description   string          `json:"description,omitempty"`
	RecordedAt    time.Time       `json:"recordedAt"`
}

// ToDomainPosting converts a hold row to a domain Posting.
func (r LoadRecord) ToDomainPosting() domain.Posting {
	return domain.Posting{
		FromAccountID: r.FromAccountID,
		ToAccountID:   r.ToAccountID,
		Amount:        r.Amount,
		CurrencyCode:  r.CurrencyCode,
		Description:   r.Description,
	}
}

// LoadSummary reports what a replay run did.
type LoadSummary struct {
	AccountsSeeded  int          `json:"accountsSeeded"`
	PlansTouched    int          `json:"plansTouched"`
	BatchesHeld     int          `json:"batchesHeld"`
	PostingsLoaded  int          `json:"postingsLoaded"`
	PlansCommitted  int          `json:"plansCommitted"`
	PlansRolledBack int          `json:"plansRolledBack"`
	Clock           domain.Clock `json:"clock"`
}
