package domain

import "github.com/shopspring/decimal"

// PlanStatus indicates the lifecycle state of a plan.
type PlanStatus string

const (
	PlanOpen       PlanStatus = "OPEN"
	PlanCommitted  PlanStatus = "COMMITTED"
	PlanRolledBack PlanStatus = "ROLLED_BACK"
)

// Terminal reports whether the status admits no further transitions.
func (s PlanStatus) Terminal() bool {
	return s == PlanCommitted || s == PlanRolledBack
}

// Posting represents a single double-entry transfer: it debits the From
// account and credits the To account by Amount. Amount must be non-negative.
type Posting struct {
	FromAccountID string          `json:"fromAccountID"` // FK -> Account.accountID (Not Null)
	ToAccountID   string          `json:"toAccountID"`   // FK -> Account.accountID (Not Null)
	Amount        decimal.Decimal `json:"amount"`        // Non-negative; precise decimal type
	CurrencyCode  string          `json:"currencyCode"`  // Must match both accounts (Not Null)
	Description   string          `json:"description"`   // Nullable
}

// Batch is an ordered group of postings recorded together under a plan.
// BatchID is caller-supplied and unique within its plan.
type Batch struct {
	BatchID  int64     `json:"batchID"`
	Postings []Posting `json:"postings"`
}

// Plan is a two-phase money movement: it accumulates posting batches while
// Open and then commits or rolls back exactly once. Clock is the clock
// returned by the plan's most recent effective mutation.
type Plan struct {
	PlanID  string     `json:"planID"` // Caller-supplied opaque identifier
	Status  PlanStatus `json:"status"`
	Batches []Batch    `json:"batches"`
	Clock   Clock      `json:"clock"`
	AuditFields
}

// Terminal reports whether the plan has reached a terminal status.
func (p *Plan) Terminal() bool {
	return p.Status.Terminal()
}

// FindBatch returns the recorded batch with the given id, or nil.
func (p *Plan) FindBatch(batchID int64) *Batch {
	for i := range p.Batches {
		if p.Batches[i].BatchID == batchID {
			return &p.Batches[i]
		}
	}
	return nil
}
