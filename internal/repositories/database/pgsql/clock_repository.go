package pgsql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	portsrepo "github.com/trestleworks/planledger/internal/core/ports/repositories"
)

type PgxClockRepository struct {
	BaseRepository
}

// newPgxClockRepository creates a new repository for replica clock counters.
func newPgxClockRepository(pool *pgxpool.Pool) portsrepo.ClockReader {
	return &PgxClockRepository{BaseRepository{Pool: pool}}
}

// Ensure PgxClockRepository implements portsrepo.ClockReader
var _ portsrepo.ClockReader = (*PgxClockRepository)(nil)

// LoadReplicaCounters returns the recorded counter of every replica that has
// ever written to this store.
func (r *PgxClockRepository) LoadReplicaCounters(ctx context.Context) (map[string]uint64, error) {
	query := `SELECT replica_id, counter FROM replica_clocks;`
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query replica clocks: %w", err)
	}
	defer rows.Close()

	counters := make(map[string]uint64)
	for rows.Next() {
		var replicaID string
		var counter uint64
		if err := rows.Scan(&replicaID, &counter); err != nil {
			return nil, fmt.Errorf("failed to scan replica clock row: %w", err)
		}
		counters[replicaID] = counter
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating replica clock rows: %w", err)
	}
	return counters, nil
}
