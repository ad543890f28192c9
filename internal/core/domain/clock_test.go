package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trestleworks/planledger/internal/core/domain"
)

func TestClock_Compare(t *testing.T) {
	tests := []struct {
		name string
		a    domain.Clock
		b    domain.Clock
		want domain.ClockOrdering
	}{
		{
			name: "equal vectors",
			a:    domain.NewClock(map[string]uint64{"r1": 2, "r2": 1}),
			b:    domain.NewClock(map[string]uint64{"r1": 2, "r2": 1}),
			want: domain.ClockEqual,
		},
		{
			name: "strictly after",
			a:    domain.NewClock(map[string]uint64{"r1": 3, "r2": 1}),
			b:    domain.NewClock(map[string]uint64{"r1": 2, "r2": 1}),
			want: domain.ClockAfter,
		},
		{
			name: "strictly before",
			a:    domain.NewClock(map[string]uint64{"r1": 1}),
			b:    domain.NewClock(map[string]uint64{"r1": 1, "r2": 4}),
			want: domain.ClockBefore,
		},
		{
			name: "concurrent",
			a:    domain.NewClock(map[string]uint64{"r1": 3, "r2": 1}),
			b:    domain.NewClock(map[string]uint64{"r1": 1, "r2": 3}),
			want: domain.ClockConcurrent,
		},
		{
			name: "missing component counts as zero",
			a:    domain.NewClock(map[string]uint64{"r1": 1, "r2": 0}),
			b:    domain.NewClock(map[string]uint64{"r1": 1}),
			want: domain.ClockEqual,
		},
		{
			name: "both empty",
			a:    domain.Clock{},
			b:    domain.Clock{},
			want: domain.ClockEqual,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Compare(tt.b))
		})
	}
}

func TestClock_Dominates(t *testing.T) {
	tests := []struct {
		name string
		c    domain.Clock
		req  domain.Clock
		want bool
	}{
		{
			name: "covers every component",
			c:    domain.NewClock(map[string]uint64{"r1": 5, "r2": 2}),
			req:  domain.NewClock(map[string]uint64{"r1": 3, "r2": 2}),
			want: true,
		},
		{
			name: "behind on one component",
			c:    domain.NewClock(map[string]uint64{"r1": 5}),
			req:  domain.NewClock(map[string]uint64{"r1": 3, "r2": 1}),
			want: false,
		},
		{
			name: "empty requirement is always satisfied",
			c:    domain.Clock{},
			req:  domain.Clock{},
			want: true,
		},
		{
			name: "latest marker requires nothing",
			c:    domain.NewClock(map[string]uint64{"r1": 1}),
			req:  domain.LatestClock(),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.c.Dominates(tt.req))
		})
	}
}

func TestClock_Merge(t *testing.T) {
	a := domain.NewClock(map[string]uint64{"r1": 3, "r2": 1})
	b := domain.NewClock(map[string]uint64{"r2": 5, "r3": 2})

	merged := a.Merge(b)

	assert.Equal(t, uint64(3), merged.Counter("r1"))
	assert.Equal(t, uint64(5), merged.Counter("r2"))
	assert.Equal(t, uint64(2), merged.Counter("r3"))

	// Merge returns a fresh vector; mutating it must not alias the inputs.
	merged.Counters["r1"] = 99
	assert.Equal(t, uint64(3), a.Counter("r1"))
}

func TestClock_Tick(t *testing.T) {
	base := domain.NewClock(map[string]uint64{"r1": 1})

	ticked := base.Tick("r1")
	assert.Equal(t, uint64(2), ticked.Counter("r1"))
	assert.Equal(t, uint64(1), base.Counter("r1"))

	fresh := domain.Clock{}.Tick("r9")
	assert.Equal(t, uint64(1), fresh.Counter("r9"))
	assert.False(t, fresh.IsLatest())
}

func TestClock_JSON(t *testing.T) {
	tests := []struct {
		name string
		c    domain.Clock
		json string
	}{
		{
			name: "latest marker",
			c:    domain.LatestClock(),
			json: `{"latest":true}`,
		},
		{
			name: "vector",
			c:    domain.NewClock(map[string]uint64{"r1": 5}),
			json: `{"counters":{"r1":5}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.c)
			require.NoError(t, err)
			assert.JSONEq(t, tt.json, string(raw))

			var back domain.Clock
			require.NoError(t, json.Unmarshal(raw, &back))
			assert.Equal(t, tt.c.IsLatest(), back.IsLatest())
			assert.Equal(t, domain.ClockEqual, tt.c.Compare(back))
		})
	}
}

func TestClock_String(t *testing.T) {
	assert.Equal(t, "latest", domain.LatestClock().String())
	assert.Equal(t, "empty", domain.Clock{}.String())
	assert.Equal(t, "r1:2,r2:7", domain.NewClock(map[string]uint64{"r2": 7, "r1": 2}).String())
}
