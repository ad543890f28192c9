package repositories

import "context"

// ClockReader defines read operations for persisted replica clock counters.
// Counters are written as part of PlanWriter mutations, never independently,
// so no writer interface exists.
type ClockReader interface {
	// LoadReplicaCounters returns the durably recorded counter of every
	// replica that has ever written to this store.
	LoadReplicaCounters(ctx context.Context) (map[string]uint64, error)
}
