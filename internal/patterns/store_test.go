// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package patterns

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"
)

var testEpoch = time.Date(2026, 1, 15, 20, 0, 0, 0, time.UTC)

// fakeClock is a settable clock for deterministic decay and eviction.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: testEpoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T, mutate func(*Config)) (*Store, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	cfg := DefaultConfig()
	cfg.Now = clock.Now
	if mutate != nil {
		mutate(&cfg)
	}
	store, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store, clock
}

func TestNewStore_InvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Capacity = 0
	if _, err := NewStore(cfg); err == nil {
		t.Fatal("NewStore() with zero capacity should fail")
	}
}

func TestStore_Upsert(t *testing.T) {
	t.Parallel()

	t.Run("rejects empty id", func(t *testing.T) {
		t.Parallel()
		store, _ := newTestStore(t, nil)
		before := store.Version()

		_, err := store.Upsert("", 0.5, 1, testEpoch)
		if !errors.Is(err, ErrEmptyID) {
			t.Fatalf("Upsert(\"\") error = %v, want ErrEmptyID", err)
		}
		if store.Version() != before {
			t.Error("rejected upsert must not bump the version")
		}
		if store.Len() != 0 {
			t.Errorf("Len() = %d, want 0", store.Len())
		}
	})

	t.Run("creates entry blending from zero", func(t *testing.T) {
		t.Parallel()
		store, _ := newTestStore(t, nil)

		if _, err := store.Upsert("m1", 0.8, 1, testEpoch); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		p, ok := store.Get("m1")
		if !ok {
			t.Fatal("entry m1 not created")
		}
		// alpha = 0.5 * 1, score = 0*0.5 + 0.8*0.5
		if diff := p.Score - 0.4; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("Score = %f, want 0.4", p.Score)
		}
		if p.Samples != 1 {
			t.Errorf("Samples = %d, want 1", p.Samples)
		}
		if p.Origin != OriginLocal {
			t.Errorf("Origin = %v, want local", p.Origin)
		}
	})

	t.Run("clamps sample weight and delta", func(t *testing.T) {
		t.Parallel()
		store, _ := newTestStore(t, func(c *Config) { c.LearningRate = 1 })

		if _, err := store.Upsert("m1", 7, 42, testEpoch); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		p, _ := store.Get("m1")
		if p.Score != 1 {
			t.Errorf("Score = %f, want 1 (clamped)", p.Score)
		}

		if _, err := store.Upsert("m2", -3, -1, testEpoch); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		p, _ = store.Get("m2")
		if p.Score != 0 {
			t.Errorf("Score = %f, want 0", p.Score)
		}
	})

	t.Run("updated_at never moves backwards", func(t *testing.T) {
		t.Parallel()
		store, _ := newTestStore(t, nil)

		_, _ = store.Upsert("m1", 0.5, 1, testEpoch)
		_, _ = store.Upsert("m1", 0.5, 1, testEpoch.Add(-time.Hour))
		p, _ := store.Get("m1")
		if !p.UpdatedAt.Equal(testEpoch) {
			t.Errorf("UpdatedAt = %v, want %v", p.UpdatedAt, testEpoch)
		}
	})

	t.Run("records features once", func(t *testing.T) {
		t.Parallel()
		store, _ := newTestStore(t, nil)

		_, _ = store.UpsertWithFeatures("m1", 0.5, 1, testEpoch, []string{"genre:drama", "tag:space"})
		_, _ = store.UpsertWithFeatures("m1", 0.5, 1, testEpoch, []string{"genre:drama", "", "tag:robots"})
		p, _ := store.Get("m1")
		want := []string{"genre:drama", "tag:space", "tag:robots"}
		if fmt.Sprint(p.Features) != fmt.Sprint(want) {
			t.Errorf("Features = %v, want %v", p.Features, want)
		}
	})
}

func TestStore_ScoreBounds(t *testing.T) {
	t.Parallel()

	store, clock := newTestStore(t, func(c *Config) { c.Capacity = 50 })
	rng := rand.New(rand.NewSource(7)) //nolint:gosec // deterministic test data

	for i := 0; i < 5000; i++ {
		id := fmt.Sprintf("m%d", rng.Intn(80))
		delta := rng.Float64()*4 - 2
		weight := rng.Float64()*4 - 2
		if _, err := store.Upsert(id, delta, weight, clock.Now()); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		if i%500 == 0 {
			clock.Advance(time.Duration(rng.Intn(72)) * time.Hour)
			store.Decay(clock.Now())
		}
	}

	snap := store.Snapshot()
	if err := snap.Validate(); err != nil {
		t.Fatalf("snapshot violates invariants: %v", err)
	}
	for _, p := range snap.Patterns() {
		if p.Score < 0 || p.Score > 1 {
			t.Errorf("pattern %s score %f out of [0,1]", p.ID, p.Score)
		}
	}
	if store.Len() > 50 {
		t.Errorf("Len() = %d, exceeds capacity 50", store.Len())
	}
}

func TestStore_MonotonicVersion(t *testing.T) {
	t.Parallel()

	store, clock := newTestStore(t, func(c *Config) { c.Capacity = 3 })

	ops := []struct {
		name string
		run  func() error
	}{
		{"upsert", func() error { _, err := store.Upsert("a", 0.5, 1, clock.Now()); return err }},
		{"upsert existing", func() error { _, err := store.Upsert("a", 0.9, 0.5, clock.Now()); return err }},
		{"decay", func() error { store.Decay(clock.Now().Add(time.Hour)); return nil }},
		{"evict under capacity", func() error { store.EvictIfOverCapacity(); return nil }},
		{"merge", func() error {
			_, err := store.MergeFederated(FederatedSet{Patterns: []FederatedPattern{{ID: "b", Score: 0.3}}})
			return err
		}},
		{"empty merge", func() error { _, err := store.MergeFederated(FederatedSet{}); return err }},
		{"restore", func() error { _, err := store.Restore(store.State()); return err }},
		{"clear", func() error { store.Clear(); return nil }},
		{"upsert after clear", func() error { _, err := store.Upsert("c", 0.1, 0.1, clock.Now()); return err }},
	}

	for _, op := range ops {
		before := store.Version()
		if err := op.run(); err != nil {
			t.Fatalf("%s: unexpected error %v", op.name, err)
		}
		if after := store.Version(); after <= before {
			t.Errorf("%s: version %d -> %d, want strictly increasing", op.name, before, after)
		}
	}
}

func TestStore_ConcurrentUpserts(t *testing.T) {
	t.Parallel()

	store, clock := newTestStore(t, nil)
	const workers = 8
	const perWorker = 250

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_, _ = store.Upsert("shared", 0.7, 0.5, clock.Now())
			}
		}()
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = store.Snapshot()
			}
		}()
	}
	wg.Wait()

	p, _ := store.Get("shared")
	if p.Samples != workers*perWorker {
		t.Errorf("Samples = %d, want %d (lost updates)", p.Samples, workers*perWorker)
	}
	if store.Version() != Version(workers*perWorker) {
		t.Errorf("Version() = %d, want %d", store.Version(), workers*perWorker)
	}
}

func TestStore_SnapshotIsImmutable(t *testing.T) {
	t.Parallel()

	store, clock := newTestStore(t, nil)
	_, _ = store.UpsertWithFeatures("m1", 0.9, 1, clock.Now(), []string{"genre:drama"})

	snap := store.Snapshot()
	_, _ = store.Upsert("m1", 0, 1, clock.Now())
	_, _ = store.Upsert("m2", 1, 1, clock.Now())

	if snap.Len() != 1 {
		t.Errorf("snapshot Len() = %d, want 1", snap.Len())
	}
	p, ok := snap.Get("m1")
	if !ok || p.Samples != 1 {
		t.Errorf("snapshot entry changed after later upserts: %+v", p)
	}
	if snap.Version() >= store.Version() {
		t.Error("snapshot version should lag the store after mutations")
	}
}

func TestStore_SnapshotAppliesDecayLazily(t *testing.T) {
	t.Parallel()

	store, clock := newTestStore(t, func(c *Config) { c.HalfLife = time.Hour })
	_, _ = store.Upsert("m1", 1, 1, clock.Now())
	stored, _ := store.Get("m1")

	snap := store.SnapshotAt(clock.Now().Add(time.Hour))
	p, _ := snap.Get("m1")
	if diff := p.Score - stored.Score/2; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("snapshot score = %f, want %f", p.Score, stored.Score/2)
	}

	again, _ := store.Get("m1")
	if again.Score != stored.Score {
		t.Error("snapshot must not mutate the store")
	}
}

func TestStore_RestoreRejectsInvalidState(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, nil)
	tests := []struct {
		name  string
		state State
	}{
		{"score above one", State{Patterns: []Pattern{{ID: "a", Score: 1.5}}}},
		{"negative samples", State{Patterns: []Pattern{{ID: "a", Score: 0.5, Samples: -1}}}},
		{"empty id", State{Patterns: []Pattern{{ID: "", Score: 0.5}}}},
		{"duplicate id", State{Patterns: []Pattern{{ID: "a", Score: 0.5}, {ID: "a", Score: 0.2}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.Restore(tt.state); !errors.Is(err, ErrInvariant) {
				t.Errorf("Restore() error = %v, want ErrInvariant", err)
			}
		})
	}
}

func TestStore_RestoreRoundTrip(t *testing.T) {
	t.Parallel()

	src, clock := newTestStore(t, nil)
	_, _ = src.UpsertWithFeatures("m1", 0.9, 1, clock.Now(), []string{"genre:drama"})
	_, _ = src.Upsert("genre:drama", 0.9, 1, clock.Now())
	state := src.State()

	dst, _ := newTestStore(t, nil)
	v, err := dst.Restore(state)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if v <= state.Version {
		t.Errorf("restored version %d should exceed persisted %d", v, state.Version)
	}
	if dst.Len() != 2 {
		t.Errorf("Len() = %d, want 2", dst.Len())
	}
	p, _ := dst.Get("m1")
	if len(p.Features) != 1 || p.Features[0] != "genre:drama" {
		t.Errorf("Features = %v, want [genre:drama]", p.Features)
	}
}

func TestStore_Clear(t *testing.T) {
	t.Parallel()

	store, clock := newTestStore(t, nil)
	for i := 0; i < 10; i++ {
		_, _ = store.Upsert(fmt.Sprintf("m%d", i), 0.5, 1, clock.Now())
	}
	store.MarkSynced(clock.Now())

	store.Clear()
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0", store.Len())
	}
	if !store.LastSync().IsZero() {
		t.Error("Clear() should reset the last sync time")
	}
	if store.Snapshot().Len() != 0 {
		t.Error("snapshot after Clear() should be empty")
	}
}

func TestScenario_RepeatedCompletionsBeatOnePartialView(t *testing.T) {
	t.Parallel()

	store, clock := newTestStore(t, nil)
	for i := 0; i < 3; i++ {
		_, _ = store.Upsert("m1", 0.95, 0.95, clock.Now())
	}
	_, _ = store.Upsert("m2", 0.1, 0.1, clock.Now())

	m1, _ := store.Get("m1")
	m2, _ := store.Get("m2")
	if m1.Samples != 3 {
		t.Errorf("m1 Samples = %d, want 3", m1.Samples)
	}
	if m1.Score <= m2.Score {
		t.Errorf("m1 score %f should exceed m2 score %f", m1.Score, m2.Score)
	}
}
