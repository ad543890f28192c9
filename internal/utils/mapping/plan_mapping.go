package mapping

import (
	"encoding/json"
	"fmt"

	"github.com/trestleworks/planledger/internal/core/domain"
	"github.com/trestleworks/planledger/internal/models"
)

// ToModelClock serializes a domain Clock for storage.
func ToModelClock(d domain.Clock) ([]byte, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to encode clock: %w", err)
	}
	return raw, nil
}

// ToDomainClock deserializes a stored clock document. Empty input maps to
// the zero clock.
func ToDomainClock(raw []byte) (domain.Clock, error) {
	if len(raw) == 0 {
		return domain.Clock{}, nil
	}
	var c domain.Clock
	if err := json.Unmarshal(raw, &c); err != nil {
		return domain.Clock{}, fmt.Errorf("failed to decode stored clock: %w", err)
	}
	return c, nil
}

// ToModelPosting converts a domain Posting into a posting row keyed by its
// plan, batch and position within the batch.
func ToModelPosting(planID string, batchID int64, seq int, d domain.Posting) models.Posting {
	return models.Posting{
		PlanID:        planID,
		BatchID:       batchID,
		Seq:           seq,
		FromAccountID: d.FromAccountID,
		ToAccountID:   d.ToAccountID,
		Amount:        d.Amount,
		CurrencyCode:  d.CurrencyCode,
		Description:   d.Description,
	}
}

// ToDomainPosting converts a posting row back to a domain Posting.
func ToDomainPosting(m models.Posting) domain.Posting {
	return domain.Posting{
		FromAccountID: m.FromAccountID,
		ToAccountID:   m.ToAccountID,
		Amount:        m.Amount,
		CurrencyCode:  m.CurrencyCode,
		Description:   m.Description,
	}
}

// ToDomainPlan assembles a domain Plan from its header row and batches.
func ToDomainPlan(m models.Plan, batches []domain.Batch) (domain.Plan, error) {
	clock, err := ToDomainClock(m.Clock)
	if err != nil {
		return domain.Plan{}, fmt.Errorf("plan %s: %w", m.PlanID, err)
	}
	return domain.Plan{
		PlanID:  m.PlanID,
		Status:  domain.PlanStatus(m.Status),
		Batches: batches,
		Clock:   clock,
		AuditFields: domain.AuditFields{
			CreatedAt:     m.CreatedAt,
			LastUpdatedAt: m.LastUpdatedAt,
		},
	}, nil
}

// GroupDomainBatches folds ordered posting rows into domain Batches. Rows
// must already be sorted by batch id then seq.
func GroupDomainBatches(batchIDs []int64, rows []models.Posting) []domain.Batch {
	byBatch := make(map[int64][]domain.Posting, len(batchIDs))
	for _, row := range rows {
		byBatch[row.BatchID] = append(byBatch[row.BatchID], ToDomainPosting(row))
	}
	batches := make([]domain.Batch, 0, len(batchIDs))
	for _, id := range batchIDs {
		batches = append(batches, domain.Batch{BatchID: id, Postings: byBatch[id]})
	}
	return batches
}
