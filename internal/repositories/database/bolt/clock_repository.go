package bolt

import (
	"context"

	portsrepo "github.com/trestleworks/planledger/internal/core/ports/repositories"
	bolt "go.etcd.io/bbolt"
)

type BoltClockRepository struct {
	store *Store
}

// newBoltClockRepository creates a new repository for replica clock counters.
func newBoltClockRepository(store *Store) portsrepo.ClockReader {
	return &BoltClockRepository{store: store}
}

// Ensure BoltClockRepository implements portsrepo.ClockReader
var _ portsrepo.ClockReader = (*BoltClockRepository)(nil)

// LoadReplicaCounters returns the recorded counter of every replica that has
// ever written to this store.
func (r *BoltClockRepository) LoadReplicaCounters(ctx context.Context) (map[string]uint64, error) {
	counters := make(map[string]uint64)
	err := r.store.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketReplicaClocks)).ForEach(func(k, v []byte) error {
			counters[string(k)] = btoc(v)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return counters, nil
}
