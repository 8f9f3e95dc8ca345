// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package patterns

import (
	"fmt"
	"testing"
	"time"
)

func TestStore_Decay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		elapsed time.Duration
		want    float64
	}{
		{"no time elapsed", 0, 0.5},
		{"one half-life", 24 * time.Hour, 0.25},
		{"two half-lives", 48 * time.Hour, 0.125},
		{"far past floors to zero", 30 * 24 * time.Hour, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store, clock := newTestStore(t, func(c *Config) {
				c.HalfLife = 24 * time.Hour
				c.MinScore = 0.001
			})
			_, _ = store.Upsert("m1", 1, 1, clock.Now())

			store.Decay(clock.Now().Add(tt.elapsed))
			p, _ := store.Get("m1")
			if diff := p.Score - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Score = %f, want %f", p.Score, tt.want)
			}
		})
	}
}

func TestStore_DecayDoesNotCompound(t *testing.T) {
	t.Parallel()

	store, clock := newTestStore(t, func(c *Config) { c.HalfLife = time.Hour })
	_, _ = store.Upsert("m1", 1, 1, clock.Now())

	// Many small sweeps must equal one large sweep.
	for i := 1; i <= 4; i++ {
		store.Decay(clock.Now().Add(time.Duration(i) * 15 * time.Minute))
	}
	p, _ := store.Get("m1")
	if diff := p.Score - 0.25; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Score after four quarter-hour sweeps = %f, want 0.25", p.Score)
	}

	// Sweeping the same instant again changes nothing.
	store.Decay(clock.Now().Add(time.Hour))
	again, _ := store.Get("m1")
	if again.Score != p.Score {
		t.Errorf("repeated sweep changed score %f -> %f", p.Score, again.Score)
	}
}

func TestStore_DecayMonotonicity(t *testing.T) {
	t.Parallel()

	store, clock := newTestStore(t, func(c *Config) { c.HalfLife = 6 * time.Hour })
	_, _ = store.Upsert("m1", 0.9, 1, clock.Now())

	prev := 1.0
	for step := 0; step < 48; step++ {
		snap := store.SnapshotAt(clock.Now().Add(time.Duration(step) * time.Hour))
		p, _ := snap.Get("m1")
		if p.Score > prev {
			t.Fatalf("step %d: score rose from %f to %f", step, prev, p.Score)
		}
		prev = p.Score
	}
}

func TestStore_EvictIfOverCapacity(t *testing.T) {
	t.Parallel()

	t.Run("under capacity removes nothing", func(t *testing.T) {
		t.Parallel()
		store, clock := newTestStore(t, func(c *Config) { c.Capacity = 10 })
		_, _ = store.Upsert("a", 0.5, 1, clock.Now())
		if n := store.EvictIfOverCapacity(); n != 0 {
			t.Errorf("EvictIfOverCapacity() = %d, want 0", n)
		}
	})

	t.Run("prefers high conviction over recent noise", func(t *testing.T) {
		t.Parallel()
		store, clock := newTestStore(t, func(c *Config) {
			c.Capacity = 2
			c.HalfLife = 24 * time.Hour
			c.LearningRate = 1
		})
		_, _ = store.Upsert("strong", 1, 1, clock.Now())
		clock.Advance(12 * time.Hour)
		_, _ = store.Upsert("noise", 0.05, 1, clock.Now())
		_, _ = store.Upsert("mid", 0.5, 1, clock.Now())

		if _, ok := store.Get("strong"); !ok {
			t.Error("rarely touched strong pattern should survive")
		}
		if _, ok := store.Get("noise"); ok {
			t.Error("recent low-conviction pattern should have been evicted")
		}
	})

	t.Run("equal scores evict larger id first", func(t *testing.T) {
		t.Parallel()
		store, clock := newTestStore(t, func(c *Config) { c.Capacity = 4 })
		for _, id := range []string{"a", "b", "c", "d"} {
			_, _ = store.Upsert(id, 0.5, 1, clock.Now())
		}
		if err := store.SetCapacity(2); err != nil {
			t.Fatalf("SetCapacity() error = %v", err)
		}
		if n := store.EvictIfOverCapacity(); n != 2 {
			t.Fatalf("EvictIfOverCapacity() = %d, want 2", n)
		}
		for _, id := range []string{"a", "b"} {
			if _, ok := store.Get(id); !ok {
				t.Errorf("entry %s should remain", id)
			}
		}
	})
}

func TestStore_SetCapacityRejectsNonPositive(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, nil)
	if err := store.SetCapacity(0); err == nil {
		t.Error("SetCapacity(0) should fail")
	}
	if got := store.Config().Capacity; got != DefaultConfig().Capacity {
		t.Errorf("Capacity = %d, want unchanged %d", got, DefaultConfig().Capacity)
	}
}

func TestScenario_EvictHalfOfTwoHundred(t *testing.T) {
	t.Parallel()

	store, clock := newTestStore(t, func(c *Config) {
		c.Capacity = 200
		c.LearningRate = 1
	})

	// Scores 0.005 .. 1.0, all touched at the same instant so recency is equal.
	for i := 1; i <= 200; i++ {
		id := fmt.Sprintf("m%03d", i)
		if _, err := store.Upsert(id, float64(i)/200, 1, clock.Now()); err != nil {
			t.Fatalf("Upsert(%s) error = %v", id, err)
		}
	}
	if store.Len() != 200 {
		t.Fatalf("Len() = %d, want 200", store.Len())
	}

	if err := store.SetCapacity(100); err != nil {
		t.Fatalf("SetCapacity() error = %v", err)
	}
	before := store.Version()
	removed := store.EvictIfOverCapacity()

	if removed != 100 {
		t.Errorf("EvictIfOverCapacity() = %d, want 100", removed)
	}
	if store.Len() != 100 {
		t.Errorf("Len() = %d, want 100", store.Len())
	}
	if store.Version() <= before {
		t.Error("eviction must bump the version")
	}
	for i := 1; i <= 200; i++ {
		id := fmt.Sprintf("m%03d", i)
		_, ok := store.Get(id)
		if i <= 100 && ok {
			t.Errorf("low-significance entry %s should have been removed", id)
		}
		if i > 100 && !ok {
			t.Errorf("high-significance entry %s should remain", id)
		}
	}
}

func TestStore_AdmitEvictsWhenFull(t *testing.T) {
	t.Parallel()

	store, clock := newTestStore(t, func(c *Config) {
		c.Capacity = 3
		c.LearningRate = 1
	})
	_, _ = store.Upsert("a", 0.9, 1, clock.Now())
	_, _ = store.Upsert("b", 0.1, 1, clock.Now())
	_, _ = store.Upsert("c", 0.8, 1, clock.Now())

	if _, err := store.Upsert("d", 0.7, 1, clock.Now()); err != nil {
		t.Fatalf("Upsert() at capacity error = %v", err)
	}
	if store.Len() != 3 {
		t.Errorf("Len() = %d, want 3", store.Len())
	}
	if _, ok := store.Get("b"); ok {
		t.Error("lowest entry b should have been evicted to admit d")
	}
	if _, ok := store.Get("d"); !ok {
		t.Error("new entry d should be present")
	}
}
