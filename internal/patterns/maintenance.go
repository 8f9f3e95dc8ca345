// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package patterns

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Decay applies half-life forgetting to every entry up to now.
// Entries whose decayed score falls below MinScore are floored to zero but
// kept; eviction decides whether they go. Returns the new version.
func (s *Store) Decay(now time.Time) Version {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.entries {
		if !now.After(p.DecayedAt) {
			continue
		}
		p.Score = s.decayedScore(p, now)
		p.DecayedAt = now
	}

	s.version++
	return s.version
}

// EvictIfOverCapacity removes the lowest score x recency entries until the
// store is within Capacity. Returns the number of entries removed.
func (s *Store) EvictIfOverCapacity() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.evictLocked(s.config.Capacity, s.config.Now())
	s.version++
	return removed
}

// evictionScore is score x recency, where recency halves every HalfLife
// since the last update.
func (s *Store) evictionScore(p *Pattern, now time.Time) float64 {
	age := now.Sub(p.UpdatedAt)
	if age < 0 {
		age = 0
	}
	return p.Score * math.Exp2(-age.Seconds()/s.config.HalfLife.Seconds())
}

// evictLocked trims the map to at most limit entries. Ordering is by
// eviction score ascending, then by id descending, so the outcome does not
// depend on map iteration order. Must be called with mu held for writing.
func (s *Store) evictLocked(limit int, now time.Time) int {
	excess := len(s.entries) - limit
	if excess <= 0 {
		return 0
	}

	type ranked struct {
		id    string
		score float64
	}
	candidates := make([]ranked, 0, len(s.entries))
	for id, p := range s.entries {
		candidates = append(candidates, ranked{id: id, score: s.evictionScore(p, now)})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score < candidates[j].score
		}
		return candidates[i].id > candidates[j].id
	})

	for _, c := range candidates[:excess] {
		delete(s.entries, c.id)
	}
	return excess
}

// SetCapacity changes the entry ceiling. Nothing is evicted here; the next
// EvictIfOverCapacity or admission enforces the new limit.
func (s *Store) SetCapacity(n int) error {
	if n <= 0 {
		return fmt.Errorf("store.capacity must be positive, got %d", n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.Capacity = n
	return nil
}
