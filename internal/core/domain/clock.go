package domain

import (
	"fmt"
	"sort"
	"strings"
)

// ClockOrdering is the result of comparing two vector clocks under the
// causal partial order.
type ClockOrdering int

const (
	ClockEqual ClockOrdering = iota
	ClockBefore
	ClockAfter
	ClockConcurrent
)

// Clock is a logical timestamp over the set of ledger replicas. It is a
// tagged variant: either the legacy "latest" marker, which every replica
// satisfies unconditionally, or a vector of per-replica counters. A missing
// replica entry counts as zero.
type Clock struct {
	Latest   bool              `json:"latest,omitempty"`
	Counters map[string]uint64 `json:"counters,omitempty"`
}

// LatestClock returns the legacy always-satisfied clock.
func LatestClock() Clock {
	return Clock{Latest: true}
}

// NewClock returns a vector clock with a copy of the given counters.
func NewClock(counters map[string]uint64) Clock {
	c := Clock{Counters: make(map[string]uint64, len(counters))}
	for k, v := range counters {
		c.Counters[k] = v
	}
	return c
}

// IsLatest reports whether this is the legacy latest marker.
func (c Clock) IsLatest() bool {
	return c.Latest
}

// IsZero reports whether the clock carries neither the latest marker nor any
// counter. Zero clocks decode from absent request fields and behave as latest.
func (c Clock) IsZero() bool {
	return !c.Latest && len(c.Counters) == 0
}

// Counter returns the counter recorded for replicaID, zero when absent.
func (c Clock) Counter(replicaID string) uint64 {
	return c.Counters[replicaID]
}

// Clone returns a deep copy.
func (c Clock) Clone() Clock {
	if c.Counters == nil {
		return Clock{Latest: c.Latest}
	}
	return Clock{Latest: c.Latest, Counters: NewClock(c.Counters).Counters}
}

// Dominates reports whether every component of other is covered by c, i.e. a
// replica at c has observed everything other requires. Latest markers carry
// no counters, so they are dominated by any clock.
func (c Clock) Dominates(other Clock) bool {
	for k, v := range other.Counters {
		if c.Counters[k] < v {
			return false
		}
	}
	return true
}

// Compare orders two vector clocks under the causal partial order.
func (c Clock) Compare(other Clock) ClockOrdering {
	var cAhead, otherAhead bool
	for k, v := range c.Counters {
		if v > other.Counter(k) {
			cAhead = true
		}
	}
	for k, v := range other.Counters {
		if v > c.Counter(k) {
			otherAhead = true
		}
	}
	switch {
	case cAhead && otherAhead:
		return ClockConcurrent
	case cAhead:
		return ClockAfter
	case otherAhead:
		return ClockBefore
	default:
		return ClockEqual
	}
}

// Merge returns a fresh vector holding the pairwise maximum of both clocks.
func (c Clock) Merge(other Clock) Clock {
	merged := make(map[string]uint64, len(c.Counters)+len(other.Counters))
	for k, v := range c.Counters {
		merged[k] = v
	}
	for k, v := range other.Counters {
		if v > merged[k] {
			merged[k] = v
		}
	}
	return Clock{Counters: merged}
}

// Tick returns a copy of the clock with replicaID's counter advanced by one.
// Ticking a latest marker yields a plain vector.
func (c Clock) Tick(replicaID string) Clock {
	next := Clock{Counters: make(map[string]uint64, len(c.Counters)+1)}
	for k, v := range c.Counters {
		next.Counters[k] = v
	}
	next.Counters[replicaID]++
	return next
}

// String renders the clock compactly for logs.
func (c Clock) String() string {
	if c.Latest {
		return "latest"
	}
	if len(c.Counters) == 0 {
		return "empty"
	}
	keys := make([]string, 0, len(c.Counters))
	for k := range c.Counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s:%d", k, c.Counters[k])
	}
	return strings.Join(parts, ",")
}
