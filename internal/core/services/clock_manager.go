package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/trestleworks/planledger/internal/apperrors"
	"github.com/trestleworks/planledger/internal/core/domain"
	portsrepo "github.com/trestleworks/planledger/internal/core/ports/repositories"
	portssvc "github.com/trestleworks/planledger/internal/core/ports/services"
	"github.com/trestleworks/planledger/internal/middleware"
)

// clockManager tracks this replica's merged view of causal time across the
// replica set. Counter allocation and observation are serialized under one
// mutex; the persisted counters in the store are the recovery source.
type clockManager struct {
	replicaID string
	clockRepo portsrepo.ClockReader

	mu        sync.RWMutex
	current   domain.Clock
	allocated uint64 // highest local counter handed out by Next
}

// NewClockManager creates a clock manager for replicaID, primed with the
// counters persisted in the store.
func NewClockManager(ctx context.Context, replicaID string, clockRepo portsrepo.ClockReader) (portssvc.ClockManagerSvc, error) {
	if replicaID == "" {
		return nil, fmt.Errorf("%w: replica id is required", apperrors.ErrValidation)
	}
	counters, err := clockRepo.LoadReplicaCounters(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load replica counters: %w", err)
	}
	m := &clockManager{
		replicaID: replicaID,
		clockRepo: clockRepo,
		current:   domain.NewClock(counters),
	}
	m.allocated = m.current.Counter(replicaID)
	return m, nil
}

// Ensure clockManager implements the portssvc.ClockManagerSvc interface
var _ portssvc.ClockManagerSvc = (*clockManager)(nil)

func (m *clockManager) ReplicaID() string {
	return m.replicaID
}

func (m *clockManager) Current() domain.Clock {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Clone()
}

func (m *clockManager) Next() domain.Clock {
	m.mu.Lock()
	defer m.mu.Unlock()

	if observed := m.current.Counter(m.replicaID); observed > m.allocated {
		m.allocated = observed
	}
	m.allocated++

	next := m.current.Clone()
	if next.Counters == nil {
		next.Counters = make(map[string]uint64, 1)
	}
	next.Counters[m.replicaID] = m.allocated
	return next
}

func (m *clockManager) Observe(clock domain.Clock) {
	if clock.IsLatest() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.current.Merge(clock)
}

func (m *clockManager) EnsureReady(ctx context.Context, clock domain.Clock) (domain.Clock, error) {
	// Legacy latest marker and absent clocks carry no causal requirement.
	if clock.IsLatest() || clock.IsZero() {
		return m.Current(), nil
	}

	if current := m.Current(); current.Dominates(clock) {
		return current, nil
	}

	// One refresh from the store before declaring this replica behind.
	counters, err := m.clockRepo.LoadReplicaCounters(ctx)
	if err != nil {
		return domain.Clock{}, fmt.Errorf("failed to refresh replica counters: %w", err)
	}

	m.mu.Lock()
	m.current = m.current.Merge(domain.NewClock(counters))
	current := m.current.Clone()
	m.mu.Unlock()

	if current.Dominates(clock) {
		return current, nil
	}

	middleware.GetLoggerFromCtx(ctx).Warn("replica behind requested clock",
		slog.String("replica_id", m.replicaID),
		slog.String("requested", clock.String()),
		slog.String("current", current.String()),
	)
	return domain.Clock{}, fmt.Errorf("%w: requested %s, replica at %s", apperrors.ErrNotReady, clock, current)
}
