package services

import (
	"context"

	"github.com/trestleworks/planledger/internal/core/domain"
)

// ClockManagerSvc tracks this replica's view of causal time across the
// ledger replica set. One instance exists per process.
type ClockManagerSvc interface {
	// ReplicaID returns the identifier this replica stamps into clocks.
	ReplicaID() string

	// Current returns a copy of the merged vector clock observed so far.
	Current() domain.Clock

	// Next allocates the clock for the next local mutation. Concurrent calls
	// receive distinct local counters. Current is not advanced until the
	// mutation is durable and Observe is called; an abandoned allocation
	// leaves a harmless counter gap.
	Next() domain.Clock

	// Observe merges a durably committed clock into the current view.
	Observe(clock domain.Clock)

	// EnsureReady checks that this replica's view satisfies the requested
	// clock, refreshing once from the store when it does not. It returns the
	// clock the subsequent read is served at, or ErrNotReady.
	EnsureReady(ctx context.Context, clock domain.Clock) (domain.Clock, error)
}
