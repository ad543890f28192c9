package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trestleworks/planledger/internal/apperrors"
	"github.com/trestleworks/planledger/internal/core/domain"
	portsrepo "github.com/trestleworks/planledger/internal/core/ports/repositories"
	"github.com/trestleworks/planledger/internal/utils/postings"
	bolt "go.etcd.io/bbolt"
)

// planDocument is the stored representation of a plan with all its batches.
// The whole plan lives under one key so every mutation rewrites one value.
type planDocument struct {
	PlanID        string            `json:"planID"`
	Status        domain.PlanStatus `json:"status"`
	Clock         domain.Clock      `json:"clock"`
	Batches       []batchDocument   `json:"batches"`
	CreatedAt     time.Time         `json:"createdAt"`
	LastUpdatedAt time.Time         `json:"lastUpdatedAt"`
}

type batchDocument struct {
	BatchID        int64             `json:"batchID"`
	PostingsDigest string            `json:"postingsDigest"`
	Postings       []postingDocument `json:"postings"`
	CreatedAt      time.Time         `json:"createdAt"`
}

type postingDocument struct {
	FromAccountID string          `json:"fromAccountID"`
	ToAccountID   string          `json:"toAccountID"`
	Amount        decimal.Decimal `json:"amount"`
	CurrencyCode  string          `json:"currencyCode"`
	Description   string          `json:"description"`
}

func toPostingDocuments(ds []domain.Posting) []postingDocument {
	docs := make([]postingDocument, len(ds))
	for i, d := range ds {
		docs[i] = postingDocument{
			FromAccountID: d.FromAccountID,
			ToAccountID:   d.ToAccountID,
			Amount:        d.Amount,
			CurrencyCode:  d.CurrencyCode,
			Description:   d.Description,
		}
	}
	return docs
}

func (doc postingDocument) toDomain() domain.Posting {
	return domain.Posting{
		FromAccountID: doc.FromAccountID,
		ToAccountID:   doc.ToAccountID,
		Amount:        doc.Amount,
		CurrencyCode:  doc.CurrencyCode,
		Description:   doc.Description,
	}
}

func toDomainPostings(docs []postingDocument) []domain.Posting {
	ds := make([]domain.Posting, len(docs))
	for i, doc := range docs {
		ds[i] = doc.toDomain()
	}
	return ds
}

func (doc planDocument) toDomain() domain.Plan {
	batches := make([]domain.Batch, len(doc.Batches))
	for i, b := range doc.Batches {
		batches[i] = domain.Batch{BatchID: b.BatchID, Postings: toDomainPostings(b.Postings)}
	}
	return domain.Plan{
		PlanID:  doc.PlanID,
		Status:  doc.Status,
		Batches: batches,
		Clock:   doc.Clock,
		AuditFields: domain.AuditFields{
			CreatedAt:     doc.CreatedAt,
			LastUpdatedAt: doc.LastUpdatedAt,
		},
	}
}

type BoltPlanRepository struct {
	store *Store
}

// newBoltPlanRepository creates a new repository for plan data.
func newBoltPlanRepository(store *Store) portsrepo.PlanRepositoryFacade {
	return &BoltPlanRepository{store: store}
}

// Ensure BoltPlanRepository implements portsrepo.PlanRepositoryFacade
var _ portsrepo.PlanRepositoryFacade = (*BoltPlanRepository)(nil)

// AppendBatch records a batch under the plan inside one bbolt update,
// creating the plan document and any missing accounts along the way.
func (r *BoltPlanRepository) AppendBatch(ctx context.Context, planID string, batch domain.Batch, newAccounts []domain.Account, clock domain.Clock) error {
	return r.store.db.Update(func(tx *bolt.Tx) error {
		plans := tx.Bucket([]byte(bucketPlans))
		accounts := tx.Bucket([]byte(bucketAccounts))
		now := time.Now().UTC()

		doc, err := getPlanDocument(plans, planID)
		if err != nil {
			return err
		}
		if doc == nil {
			doc = &planDocument{
				PlanID:    planID,
				Status:    domain.PlanOpen,
				CreatedAt: now,
			}
		}
		if doc.Status.Terminal() {
			return fmt.Errorf("%w: plan %s is already %s", apperrors.ErrConflict, planID, doc.Status)
		}
		for _, existing := range doc.Batches {
			if existing.BatchID == batch.BatchID {
				return fmt.Errorf("%w: batch %d already recorded for plan %s", apperrors.ErrDuplicate, batch.BatchID, planID)
			}
		}

		// Create missing accounts, then re-check currencies inside the same
		// update so a mismatch aborts the whole mutation.
		for _, acc := range newAccounts {
			if accounts.Get([]byte(acc.AccountID)) != nil {
				continue
			}
			accDoc := toAccountDocument(acc)
			if accDoc.CreatedAt.IsZero() {
				accDoc.CreatedAt = now
			}
			if err := putAccount(accounts, accDoc); err != nil {
				return err
			}
		}
		for _, p := range batch.Postings {
			for _, id := range []string{p.FromAccountID, p.ToAccountID} {
				raw := accounts.Get([]byte(id))
				if raw == nil {
					continue
				}
				var accDoc accountDocument
				if err := json.Unmarshal(raw, &accDoc); err != nil {
					return fmt.Errorf("failed to decode account %s: %w", id, err)
				}
				if accDoc.CurrencyCode != p.CurrencyCode {
					return fmt.Errorf("%w: account %s holds %s, posting uses %s", apperrors.ErrValidation, id, accDoc.CurrencyCode, p.CurrencyCode)
				}
			}
		}

		doc.Batches = append(doc.Batches, batchDocument{
			BatchID:        batch.BatchID,
			PostingsDigest: postings.Digest(batch.Postings),
			Postings:       toPostingDocuments(batch.Postings),
			CreatedAt:      now,
		})
		doc.Clock = clock
		doc.LastUpdatedAt = now

		if err := putPlanDocument(plans, *doc); err != nil {
			return err
		}
		return putReplicaCounters(tx, clock)
	})
}

// TransitionPlan moves an Open plan to a terminal status.
func (r *BoltPlanRepository) TransitionPlan(ctx context.Context, planID string, status domain.PlanStatus, clock domain.Clock) error {
	return r.store.db.Update(func(tx *bolt.Tx) error {
		plans := tx.Bucket([]byte(bucketPlans))
		doc, err := getPlanDocument(plans, planID)
		if err != nil {
			return err
		}
		if doc == nil {
			return fmt.Errorf("%w: %s", apperrors.ErrPlanNotFound, planID)
		}
		if doc.Status != domain.PlanOpen {
			return fmt.Errorf("%w: plan %s is no longer open", apperrors.ErrConflict, planID)
		}

		doc.Status = status
		doc.Clock = clock
		doc.LastUpdatedAt = time.Now().UTC()

		if err := putPlanDocument(plans, *doc); err != nil {
			return err
		}
		return putReplicaCounters(tx, clock)
	})
}

// FindPlanByID retrieves a plan with all its batches and postings.
func (r *BoltPlanRepository) FindPlanByID(ctx context.Context, planID string) (*domain.Plan, error) {
	var plan domain.Plan
	err := r.store.db.View(func(tx *bolt.Tx) error {
		doc, err := getPlanDocument(tx.Bucket([]byte(bucketPlans)), planID)
		if err != nil {
			return err
		}
		if doc == nil {
			return fmt.Errorf("%w: %s", apperrors.ErrPlanNotFound, planID)
		}
		plan = doc.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// FindPostingsByAccountID scans every plan for postings touching the account.
// The single View reads one consistent snapshot.
func (r *BoltPlanRepository) FindPostingsByAccountID(ctx context.Context, accountID string) ([]domain.AccountPosting, error) {
	var out []domain.AccountPosting
	err := r.store.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketPlans)).ForEach(func(k, v []byte) error {
			var doc planDocument
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("failed to decode plan %s: %w", string(k), err)
			}
			for _, b := range doc.Batches {
				for _, p := range b.Postings {
					if p.FromAccountID != accountID && p.ToAccountID != accountID {
						continue
					}
					out = append(out, domain.AccountPosting{
						PlanID:     doc.PlanID,
						BatchID:    b.BatchID,
						PlanStatus: doc.Status,
						Posting:    p.toDomain(),
					})
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// getPlanDocument loads a plan document, returning nil when absent.
func getPlanDocument(bucket *bolt.Bucket, planID string) (*planDocument, error) {
	raw := bucket.Get([]byte(planID))
	if raw == nil {
		return nil, nil
	}
	var doc planDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode plan %s: %w", planID, err)
	}
	return &doc, nil
}

// putPlanDocument encodes and stores a plan document.
func putPlanDocument(bucket *bolt.Bucket, doc planDocument) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode plan %s: %w", doc.PlanID, err)
	}
	return bucket.Put([]byte(doc.PlanID), raw)
}

// putReplicaCounters records the clock's counters, keeping stored values
// monotonic.
func putReplicaCounters(tx *bolt.Tx, clock domain.Clock) error {
	if clock.IsLatest() || len(clock.Counters) == 0 {
		return nil
	}
	bucket := tx.Bucket([]byte(bucketReplicaClocks))
	for replicaID, counter := range clock.Counters {
		if existing := btoc(bucket.Get([]byte(replicaID))); existing >= counter {
			continue
		}
		if err := bucket.Put([]byte(replicaID), ctob(counter)); err != nil {
			return fmt.Errorf("failed to store counter for replica %s: %w", replicaID, err)
		}
	}
	return nil
}
