package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/trestleworks/planledger/internal/core/domain"
)

// PostingPayload is one posting line as it travels over the wire. Shape
// validation happens in the posting validator so malformed postings come
// back with per-posting reasons rather than a bare binding error.
type PostingPayload struct {
	FromAccountID string          `json:"fromAccountID"`
	ToAccountID   string          `json:"toAccountID"`
	Amount        decimal.Decimal `json:"amount"`
	CurrencyCode  string          `json:"currencyCode"`
	Description   string          `json:"description"`
}

// ToDomainPosting converts a posting payload to a domain Posting.
func (p PostingPayload) ToDomainPosting() domain.Posting {
	return domain.Posting{
		FromAccountID: p.FromAccountID,
		ToAccountID:   p.ToAccountID,
		Amount:        p.Amount,
		CurrencyCode:  p.CurrencyCode,
		Description:   p.Description,
	}
}

// ToPostingPayload converts a domain Posting to its wire form.
func ToPostingPayload(d domain.Posting) PostingPayload {
	return PostingPayload{
		FromAccountID: d.FromAccountID,
		ToAccountID:   d.ToAccountID,
		Amount:        d.Amount,
		CurrencyCode:  d.CurrencyCode,
		Description:   d.Description,
	}
}

// BatchPayload is one batch of postings, as submitted or as recorded.
type BatchPayload struct {
	BatchID  int64            `json:"batchID"`
	Postings []PostingPayload `json:"postings"`
}

// ToDomainBatch converts a batch payload to a domain Batch.
func (b BatchPayload) ToDomainBatch() domain.Batch {
	postings := make([]domain.Posting, len(b.Postings))
	for i, p := range b.Postings {
		postings[i] = p.ToDomainPosting()
	}
	return domain.Batch{BatchID: b.BatchID, Postings: postings}
}

// ToBatchPayload converts a domain Batch to its wire form.
func ToBatchPayload(d domain.Batch) BatchPayload {
	postings := make([]PostingPayload, len(d.Postings))
	for i, p := range d.Postings {
		postings[i] = ToPostingPayload(p)
	}
	return BatchPayload{BatchID: d.BatchID, Postings: postings}
}

// HoldRequest records one batch of postings under a plan.
type HoldRequest struct {
	BatchID  int64            `json:"batchID"`
	Postings []PostingPayload `json:"postings"`
}

// ToDomainBatch converts the hold request to a domain Batch.
func (r HoldRequest) ToDomainBatch() domain.Batch {
	return BatchPayload{BatchID: r.BatchID, Postings: r.Postings}.ToDomainBatch()
}

// HoldResponse acknowledges a recorded (or re-submitted) batch.
type HoldResponse struct {
	PlanID  string       `json:"planID"`
	BatchID int64        `json:"batchID"`
	Clock   ClockPayload `json:"clock"`
}

// FinalizePlanRequest carries the caller's complete view of a plan for
// commit or rollback. The engine validates it against the recorded batches
// before acting. Clock is the clock of the caller's last known mutation.
type FinalizePlanRequest struct {
	Batches []BatchPayload `json:"batches"`
	Clock   ClockPayload   `json:"clock"`
}

// ToDomainPlan converts the finalize request to the submitted plan view.
func (r FinalizePlanRequest) ToDomainPlan(planID string) domain.Plan {
	batches := make([]domain.Batch, len(r.Batches))
	for i, b := range r.Batches {
		batches[i] = b.ToDomainBatch()
	}
	return domain.Plan{PlanID: planID, Batches: batches}
}

// FinalizePlanResponse acknowledges a terminal transition. Clock is the
// plan's clock after the call, also on the idempotent repeat path.
type FinalizePlanResponse struct {
	PlanID string       `json:"planID"`
	Clock  ClockPayload `json:"clock"`
}

// PlanResponse defines the data returned for a plan.
type PlanResponse struct {
	PlanID        string         `json:"planID"`
	Status        string         `json:"status"`
	Batches       []BatchPayload `json:"batches"`
	Clock         ClockPayload   `json:"clock"`
	CreatedAt     time.Time      `json:"createdAt"`
	LastUpdatedAt time.Time      `json:"lastUpdatedAt"`
}

// ToPlanResponse converts a domain.Plan to PlanResponse DTO.
func ToPlanResponse(p *domain.Plan) PlanResponse {
	batches := make([]BatchPayload, len(p.Batches))
	for i, b := range p.Batches {
		batches[i] = ToBatchPayload(b)
	}
	return PlanResponse{
		PlanID:        p.PlanID,
		Status:        string(p.Status),
		Batches:       batches,
		Clock:         ToClockPayload(p.Clock),
		CreatedAt:     p.CreatedAt,
		LastUpdatedAt: p.LastUpdatedAt,
	}
}
