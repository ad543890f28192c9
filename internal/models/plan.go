package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlanStatus indicates the state of a plan row.
type PlanStatus string

const (
	PlanOpen       PlanStatus = "OPEN"
	PlanCommitted  PlanStatus = "COMMITTED"
	PlanRolledBack PlanStatus = "ROLLED_BACK"
)

// Plan represents a plan header row. Clock holds the serialized vector
// clock of the plan's last mutation (JSONB in postgres).
type Plan struct {
	PlanID string     `db:"plan_id"`
	Status PlanStatus `db:"status"`
	Clock  []byte     `db:"clock"`
	AuditFields
}

// Batch represents one held batch of a plan. PostingsDigest is the
// canonical digest of the batch postings used as a cheap equality check
// before the full multiset comparison.
type Batch struct {
	PlanID         string    `db:"plan_id"`
	BatchID        int64     `db:"batch_id"`
	PostingsDigest string    `db:"postings_digest"`
	CreatedAt      time.Time `db:"created_at"`
}

// Posting represents a single posting row within a batch. Seq preserves
// the order the posting was submitted in.
type Posting struct {
	PlanID        string          `db:"plan_id"`
	BatchID       int64           `db:"batch_id"`
	Seq           int             `db:"seq"`
	FromAccountID string          `db:"from_account_id"`
	ToAccountID   string          `db:"to_account_id"`
	Amount        decimal.Decimal `db:"amount"`
	CurrencyCode  string          `db:"currency_code"`
	Description   string          `db:"description"`
}
