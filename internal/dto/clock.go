package dto

import (
	"github.com/trestleworks/planledger/internal/core/domain"
)

// ClockPayload is the wire form of a clock: either the legacy latest marker
// or a vector of per-replica counters. The zero payload behaves as latest.
type ClockPayload struct {
	Latest   bool              `json:"latest,omitempty"`
	Counters map[string]uint64 `json:"counters,omitempty"`
}

// ToDomainClock converts the payload to a domain Clock.
func (p ClockPayload) ToDomainClock() domain.Clock {
	if p.Latest {
		return domain.LatestClock()
	}
	return domain.NewClock(p.Counters)
}

// ToClockPayload converts a domain Clock to its wire form.
func ToClockPayload(c domain.Clock) ClockPayload {
	if c.IsLatest() {
		return ClockPayload{Latest: true}
	}
	return ClockPayload{Counters: c.Counters}
}
