package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/trestleworks/planledger/internal/apperrors"
	"github.com/trestleworks/planledger/internal/core/domain"
	portsrepo "github.com/trestleworks/planledger/internal/core/ports/repositories"
	"github.com/trestleworks/planledger/internal/models"
	"github.com/trestleworks/planledger/internal/utils/mapping"
	"github.com/trestleworks/planledger/internal/utils/postings"
)

type PgxPlanRepository struct {
	BaseRepository
}

// newPgxPlanRepository creates a new repository for plan, batch and posting data.
func newPgxPlanRepository(pool *pgxpool.Pool) portsrepo.PlanRepositoryFacade {
	return &PgxPlanRepository{BaseRepository{Pool: pool}}
}

// Ensure PgxPlanRepository implements portsrepo.PlanRepositoryFacade
var _ portsrepo.PlanRepositoryFacade = (*PgxPlanRepository)(nil)

// AppendBatch records a batch under a plan inside a single DB transaction,
// creating the plan row and any missing accounts along the way. The plan row
// is locked for the duration so batch inserts under one plan serialize.
func (r *PgxPlanRepository) AppendBatch(ctx context.Context, planID string, batch domain.Batch, newAccounts []domain.Account, clock domain.Clock) error {
	clockJSON, err := mapping.ToModelClock(clock)
	if err != nil {
		return apperrors.NewAppError(500, "failed to encode clock for plan "+planID, err)
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx) // Ignored once the transaction commits

	now := time.Now().UTC()

	// 1. Ensure the plan row exists, then lock it. The insert is race-safe;
	// the FOR UPDATE serializes concurrent appends to the same plan.
	createPlanQuery := `
		INSERT INTO plans (plan_id, status, clock, created_at, last_updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (plan_id) DO NOTHING;
	`
	if _, err := tx.Exec(ctx, createPlanQuery, planID, models.PlanOpen, clockJSON, now); err != nil {
		return apperrors.NewAppError(500, "failed to create plan "+planID, err)
	}

	var status models.PlanStatus
	lockPlanQuery := `SELECT status FROM plans WHERE plan_id = $1 FOR UPDATE;`
	if err := tx.QueryRow(ctx, lockPlanQuery, planID).Scan(&status); err != nil {
		return apperrors.NewAppError(500, "failed to lock plan "+planID, err)
	}
	if domain.PlanStatus(status).Terminal() {
		return fmt.Errorf("%w: plan %s is already %s", apperrors.ErrConflict, planID, status)
	}

	// 2. Record the batch. A unique violation means another replica recorded
	// this batch id first; the service reconciles against the stored batch.
	batchQuery := `
		INSERT INTO batches (plan_id, batch_id, postings_digest, created_at)
		VALUES ($1, $2, $3, $4);
	`
	digest := postings.Digest(batch.Postings)
	if _, err := tx.Exec(ctx, batchQuery, planID, batch.BatchID, digest, now); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique violation
			return fmt.Errorf("%w: batch %d already recorded for plan %s", apperrors.ErrDuplicate, batch.BatchID, planID)
		}
		return apperrors.NewAppError(500, fmt.Sprintf("failed to insert batch %d for plan %s", batch.BatchID, planID), err)
	}

	// 3. Create any accounts this batch references for the first time.
	// ON CONFLICT DO NOTHING keeps the insert race-safe across replicas.
	pgBatch := &pgx.Batch{}
	accountQuery := `
		INSERT INTO accounts (account_id, currency_code, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id) DO NOTHING;
	`
	for _, acc := range newAccounts {
		modelAcc := mapping.ToModelAccount(acc)
		createdAt := modelAcc.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		pgBatch.Queue(accountQuery, modelAcc.AccountID, modelAcc.CurrencyCode, createdAt)
	}

	// 4. Insert the posting rows, preserving submitted order via seq.
	postingQuery := `
		INSERT INTO postings (plan_id, batch_id, seq, from_account_id, to_account_id, amount, currency_code, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	for seq, p := range batch.Postings {
		modelPosting := mapping.ToModelPosting(planID, batch.BatchID, seq, p)
		pgBatch.Queue(postingQuery,
			modelPosting.PlanID,
			modelPosting.BatchID,
			modelPosting.Seq,
			modelPosting.FromAccountID,
			modelPosting.ToAccountID,
			modelPosting.Amount,
			modelPosting.CurrencyCode,
			modelPosting.Description,
		)
	}

	// 5. Persist the replica counters carried by the mutation clock.
	queueReplicaCounters(pgBatch, clock)

	br := tx.SendBatch(ctx, pgBatch)
	if err := br.Close(); err != nil {
		return apperrors.NewAppError(500, fmt.Sprintf("failed to write batch %d rows for plan %s", batch.BatchID, planID), err)
	}

	// 6. Re-check currencies under the lock. A concurrent creation may have
	// won the account insert with a different currency than validated.
	if err := r.verifyBatchCurrenciesInTx(ctx, tx, batch); err != nil {
		return err
	}

	// 7. Stamp the plan with the mutation clock.
	stampQuery := `UPDATE plans SET clock = $2, last_updated_at = $3 WHERE plan_id = $1;`
	if _, err := tx.Exec(ctx, stampQuery, planID, clockJSON, now); err != nil {
		return apperrors.NewAppError(500, "failed to stamp plan "+planID, err)
	}

	return r.Commit(ctx, tx)
}

// verifyBatchCurrenciesInTx re-reads the accounts referenced by the batch
// within the transaction and reports any currency mismatch as a validation
// error.
func (r *PgxPlanRepository) verifyBatchCurrenciesInTx(ctx context.Context, tx pgx.Tx, batch domain.Batch) error {
	ids := make([]string, 0, len(batch.Postings)*2)
	seen := make(map[string]struct{}, len(batch.Postings)*2)
	for _, p := range batch.Postings {
		for _, id := range []string{p.FromAccountID, p.ToAccountID} {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}

	query := `SELECT account_id, currency_code FROM accounts WHERE account_id = ANY($1);`
	rows, err := tx.Query(ctx, query, ids)
	if err != nil {
		return apperrors.NewAppError(500, "failed to verify account currencies", err)
	}
	defer rows.Close()

	currencies := make(map[string]string, len(ids))
	for rows.Next() {
		var id, code string
		if err := rows.Scan(&id, &code); err != nil {
			return apperrors.NewAppError(500, "failed to scan account currency row", err)
		}
		currencies[id] = code
	}
	if err := rows.Err(); err != nil {
		return apperrors.NewAppError(500, "error iterating account currency rows", err)
	}

	for _, p := range batch.Postings {
		for _, id := range []string{p.FromAccountID, p.ToAccountID} {
			if code, ok := currencies[id]; ok && code != p.CurrencyCode {
				return fmt.Errorf("%w: account %s holds %s, posting uses %s", apperrors.ErrValidation, id, code, p.CurrencyCode)
			}
		}
	}
	return nil
}

// TransitionPlan moves an Open plan to a terminal status. The conditional
// update means losing a transition race surfaces as zero affected rows.
func (r *PgxPlanRepository) TransitionPlan(ctx context.Context, planID string, status domain.PlanStatus, clock domain.Clock) error {
	clockJSON, err := mapping.ToModelClock(clock)
	if err != nil {
		return apperrors.NewAppError(500, "failed to encode clock for plan "+planID, err)
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	query := `
		UPDATE plans
		SET status = $2, clock = $3, last_updated_at = $4
		WHERE plan_id = $1 AND status = $5;
	`
	tag, err := tx.Exec(ctx, query, planID, models.PlanStatus(status), clockJSON, time.Now().UTC(), models.PlanOpen)
	if err != nil {
		return apperrors.NewAppError(500, "failed to transition plan "+planID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		checkQuery := `SELECT EXISTS (SELECT 1 FROM plans WHERE plan_id = $1);`
		if err := tx.QueryRow(ctx, checkQuery, planID).Scan(&exists); err != nil {
			return apperrors.NewAppError(500, "failed to check plan "+planID, err)
		}
		if !exists {
			return fmt.Errorf("%w: %s", apperrors.ErrPlanNotFound, planID)
		}
		return fmt.Errorf("%w: plan %s is no longer open", apperrors.ErrConflict, planID)
	}

	pgBatch := &pgx.Batch{}
	queueReplicaCounters(pgBatch, clock)
	if pgBatch.Len() > 0 {
		br := tx.SendBatch(ctx, pgBatch)
		if err := br.Close(); err != nil {
			return apperrors.NewAppError(500, "failed to persist replica counters for plan "+planID, err)
		}
	}

	return r.Commit(ctx, tx)
}

// FindPlanByID retrieves a plan with all its batches and postings.
func (r *PgxPlanRepository) FindPlanByID(ctx context.Context, planID string) (*domain.Plan, error) {
	planQuery := `
		SELECT plan_id, status, clock, created_at, last_updated_at
		FROM plans
		WHERE plan_id = $1;
	`
	var modelPlan models.Plan
	err := r.Pool.QueryRow(ctx, planQuery, planID).Scan(
		&modelPlan.PlanID,
		&modelPlan.Status,
		&modelPlan.Clock,
		&modelPlan.CreatedAt,
		&modelPlan.LastUpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrPlanNotFound, planID)
		}
		return nil, fmt.Errorf("failed to find plan by ID %s: %w", planID, err)
	}

	batchIDs, err := r.findBatchIDs(ctx, planID)
	if err != nil {
		return nil, err
	}
	postingRows, err := r.findPostingRows(ctx, planID)
	if err != nil {
		return nil, err
	}

	plan, err := mapping.ToDomainPlan(modelPlan, mapping.GroupDomainBatches(batchIDs, postingRows))
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// findBatchIDs returns the plan's batch ids in the order they were recorded.
func (r *PgxPlanRepository) findBatchIDs(ctx context.Context, planID string) ([]int64, error) {
	query := `
		SELECT batch_id
		FROM batches
		WHERE plan_id = $1
		ORDER BY created_at, batch_id;
	`
	rows, err := r.Pool.Query(ctx, query, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches for plan %s: %w", planID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan batch row for plan %s: %w", planID, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batch rows for plan %s: %w", planID, err)
	}
	return ids, nil
}

// findPostingRows returns every posting row of the plan ordered by batch and seq.
func (r *PgxPlanRepository) findPostingRows(ctx context.Context, planID string) ([]models.Posting, error) {
	query := `
		SELECT plan_id, batch_id, seq, from_account_id, to_account_id, amount, currency_code, description
		FROM postings
		WHERE plan_id = $1
		ORDER BY batch_id, seq;
	`
	rows, err := r.Pool.Query(ctx, query, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to query postings for plan %s: %w", planID, err)
	}
	defer rows.Close()

	var out []models.Posting
	for rows.Next() {
		var m models.Posting
		err := rows.Scan(
			&m.PlanID,
			&m.BatchID,
			&m.Seq,
			&m.FromAccountID,
			&m.ToAccountID,
			&m.Amount,
			&m.CurrencyCode,
			&m.Description,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan posting row for plan %s: %w", planID, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posting rows for plan %s: %w", planID, err)
	}
	return out, nil
}

// FindPostingsByAccountID retrieves every posting touching the account joined
// with the owning plan's status. The single statement reads one snapshot.
func (r *PgxPlanRepository) FindPostingsByAccountID(ctx context.Context, accountID string) ([]domain.AccountPosting, error) {
	query := `
		SELECT p.plan_id, p.batch_id, pl.status, p.from_account_id, p.to_account_id, p.amount, p.currency_code, p.description
		FROM postings p
		JOIN plans pl ON pl.plan_id = p.plan_id
		WHERE p.from_account_id = $1 OR p.to_account_id = $1
		ORDER BY p.plan_id, p.batch_id, p.seq;
	`
	rows, err := r.Pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query postings for account %s: %w", accountID, err)
	}
	defer rows.Close()

	var out []domain.AccountPosting
	for rows.Next() {
		var m models.Posting
		var status models.PlanStatus
		err := rows.Scan(
			&m.PlanID,
			&m.BatchID,
			&status,
			&m.FromAccountID,
			&m.ToAccountID,
			&m.Amount,
			&m.CurrencyCode,
			&m.Description,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan posting row for account %s: %w", accountID, err)
		}
		out = append(out, domain.AccountPosting{
			PlanID:     m.PlanID,
			BatchID:    m.BatchID,
			PlanStatus: domain.PlanStatus(status),
			Posting:    mapping.ToDomainPosting(m),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posting rows for account %s: %w", accountID, err)
	}
	return out, nil
}

// queueReplicaCounters enqueues a monotonic upsert for every counter in the
// clock. GREATEST keeps replays from an older clock harmless.
func queueReplicaCounters(pgBatch *pgx.Batch, clock domain.Clock) {
	if clock.IsLatest() || len(clock.Counters) == 0 {
		return
	}
	query := `
		INSERT INTO replica_clocks (replica_id, counter)
		VALUES ($1, $2)
		ON CONFLICT (replica_id) DO UPDATE
		SET counter = GREATEST(replica_clocks.counter, EXCLUDED.counter);
	`
	for replicaID, counter := range clock.Counters {
		pgBatch.Queue(query, replicaID, counter)
	}
}
