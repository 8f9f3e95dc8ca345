// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package patterns

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// Errors
var (
	// ErrEmptyID is returned when an operation is given an empty identifier.
	ErrEmptyID = errors.New("pattern id cannot be empty")

	// ErrCapacity is returned when a new entry cannot be admitted because
	// eviction could not free a slot.
	ErrCapacity = errors.New("pattern store at capacity")

	// ErrMalformedSet is returned when a federated set fails validation.
	// The store is left unchanged.
	ErrMalformedSet = errors.New("malformed federated pattern set")

	// ErrInvariant is returned when stored data violates a store invariant.
	ErrInvariant = errors.New("pattern invariant violated")
)

// Store is the concurrency-safe pattern map. The zero value is not usable;
// create stores with NewStore.
type Store struct {
	mu       sync.RWMutex
	config   Config
	entries  map[string]*Pattern
	version  Version
	lastSync time.Time
}

// NewStore creates an empty store.
//
//nolint:gocritic // hugeParam: config copied once at construction
func NewStore(cfg Config) (*Store, error) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid store config: %w", err)
	}
	return &Store{
		config:  cfg,
		entries: make(map[string]*Pattern, min(cfg.Capacity, 1024)),
	}, nil
}

// Config returns the store configuration.
func (s *Store) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Version returns the current mutation counter.
func (s *Store) Version() Version {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Get returns a copy of one entry.
func (s *Store) Get(id string) (Pattern, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.entries[id]
	if !ok {
		return Pattern{}, false
	}
	return p.Clone(), true
}

// LastSync returns the time of the last successful federated merge.
func (s *Store) LastSync() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync
}

// MarkSynced records a successful sync time.
func (s *Store) MarkSynced(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.After(s.lastSync) {
		s.lastSync = t
	}
}

// Upsert blends one observation into the entry for id.
//
// alpha = LearningRate * clamp(sampleWeight, 0, 1) and
// score = score*(1-alpha) + clamp(deltaScore, 0, 1)*alpha. Absent entries
// start from a zero score. The sample count is incremented and the version
// bumped.
func (s *Store) Upsert(id string, deltaScore, sampleWeight float64, ts time.Time) (Version, error) {
	return s.UpsertWithFeatures(id, deltaScore, sampleWeight, ts, nil)
}

// UpsertWithFeatures is Upsert that also records feature ids on the entry.
// Existing features are kept; new ones are appended once.
func (s *Store) UpsertWithFeatures(id string, deltaScore, sampleWeight float64, ts time.Time, features []string) (Version, error) {
	if id == "" {
		return 0, ErrEmptyID
	}
	if ts.IsZero() {
		ts = s.config.Now()
	}

	alpha := s.config.LearningRate * clamp01(sampleWeight)
	target := clamp01(deltaScore)

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.entries[id]
	if !ok {
		if err := s.admitLocked(); err != nil {
			return s.version, err
		}
		p = &Pattern{ID: id, DecayedAt: ts, UpdatedAt: ts}
		s.entries[id] = p
	} else if ts.After(p.DecayedAt) {
		// Catch up on decay before blending so stale evidence is not
		// weighted as if it were fresh.
		p.Score = s.decayedScore(p, ts)
	}

	p.Score = clamp01(p.Score*(1-alpha) + target*alpha)
	p.Samples++
	p.Origin = OriginLocal
	if ts.After(p.UpdatedAt) {
		p.UpdatedAt = ts
	}
	if ts.After(p.DecayedAt) {
		p.DecayedAt = ts
	}
	p.Features = mergeFeatures(p.Features, features)

	s.version++
	return s.version, nil
}

// admitLocked frees a slot for a new entry when the store is full.
// Must be called with mu held for writing.
func (s *Store) admitLocked() error {
	if len(s.entries) < s.config.Capacity {
		return nil
	}
	s.evictLocked(s.config.Capacity-1, s.config.Now())
	if len(s.entries) >= s.config.Capacity {
		return ErrCapacity
	}
	return nil
}

// Snapshot returns an immutable copy of all entries as of now, with decay
// applied to the copies. The store itself is not modified.
func (s *Store) Snapshot() *Snapshot {
	return s.SnapshotAt(s.config.Now())
}

// SnapshotAt is Snapshot with an explicit evaluation time.
func (s *Store) SnapshotAt(now time.Time) *Snapshot {
	s.mu.RLock()
	version := s.version
	out := make([]Pattern, 0, len(s.entries))
	for _, p := range s.entries {
		out = append(out, p.Clone())
	}
	s.mu.RUnlock()

	for i := range out {
		out[i].Score = s.decayedScore(&out[i], now)
	}
	return newSnapshot(version, now, out)
}

// Clear removes every entry. Irreversible.
func (s *Store) Clear() Version {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*Pattern)
	s.lastSync = time.Time{}
	s.version++
	return s.version
}

// State exports the store for persistence.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Pattern, 0, len(s.entries))
	for _, p := range s.entries {
		out = append(out, p.Clone())
	}
	return State{
		Version:  s.version,
		Patterns: out,
		SavedAt:  s.config.Now(),
	}
}

// Restore replaces the store contents with a persisted state. Invalid
// entries are rejected as a whole. The resulting version is strictly greater
// than both the current and the persisted version.
//
//nolint:gocritic // hugeParam: state is consumed once
func (s *Store) Restore(state State) (Version, error) {
	entries := make(map[string]*Pattern, len(state.Patterns))
	for i := range state.Patterns {
		p := state.Patterns[i].Clone()
		if !p.valid() {
			return 0, fmt.Errorf("%w: restored pattern %q", ErrInvariant, p.ID)
		}
		if _, dup := entries[p.ID]; dup {
			return 0, fmt.Errorf("%w: duplicate restored pattern %q", ErrInvariant, p.ID)
		}
		entries[p.ID] = &p
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = entries
	if state.Version > s.version {
		s.version = state.Version
	}
	s.version++
	s.evictLocked(s.config.Capacity, s.config.Now())
	return s.version, nil
}

// decayedScore returns the score of p after half-life decay up to now.
func (s *Store) decayedScore(p *Pattern, now time.Time) float64 {
	elapsed := now.Sub(p.DecayedAt)
	if elapsed <= 0 {
		return p.Score
	}
	score := p.Score * math.Exp2(-elapsed.Seconds()/s.config.HalfLife.Seconds())
	if score < s.config.MinScore {
		return 0
	}
	return clamp01(score)
}

// clamp01 bounds v to [0, 1]; NaN maps to 0.
func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// mergeFeatures appends features not already present.
func mergeFeatures(existing, add []string) []string {
	if len(add) == 0 {
		return existing
	}
	seen := make(map[string]struct{}, len(existing)+len(add))
	for _, f := range existing {
		seen[f] = struct{}{}
	}
	for _, f := range add {
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		existing = append(existing, f)
	}
	return existing
}
