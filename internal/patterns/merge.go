// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package patterns

import (
	"fmt"
	"math"
)

// MergeFederated folds a peer's aggregated set into the store.
//
// The whole set is validated before the write lock is taken; a malformed set
// returns ErrMalformedSet and leaves the store untouched. For an id already
// present, the score moves toward the federated score by
//
//	(fed - local) * FederatedWeight * K / (samples + K)
//
// with K = StrongEvidenceSamples, so strong local evidence is barely moved.
// The local score is decayed up to the set timestamp before blending.
// Unknown ids are inserted with OriginFederated and zero local samples.
// The merge is a single logical write with one version bump.
//
//nolint:gocritic // hugeParam: set is read-only
func (s *Store) MergeFederated(set FederatedSet) (MergeResult, error) {
	if err := ValidateFederatedSet(set); err != nil {
		return MergeResult{}, err
	}

	now := s.config.Now()
	ts := set.Timestamp
	if ts.IsZero() || ts.After(now) {
		ts = now
	}
	k := float64(s.config.StrongEvidenceSamples)

	s.mu.Lock()
	defer s.mu.Unlock()

	var result MergeResult
	for _, fp := range set.Patterns {
		fed := clamp01(fp.Score)
		p, ok := s.entries[fp.ID]
		if !ok {
			p = &Pattern{
				ID:        fp.ID,
				Score:     fed,
				Origin:    OriginFederated,
				UpdatedAt: ts,
				DecayedAt: ts,
			}
			if fp.Genre != "" && !IsFeature(fp.ID) {
				p.Features = []string{GenreID(fp.Genre)}
			}
			s.entries[fp.ID] = p
			result.Inserted++
			continue
		}

		if ts.After(p.DecayedAt) {
			p.Score = s.decayedScore(p, ts)
		}
		if p.Origin == OriginFederated && p.Samples == 0 {
			// Nothing local to protect: take the fresher aggregate.
			p.Score = fed
		} else {
			step := s.config.FederatedWeight * k / (float64(p.Samples) + k)
			p.Score = clamp01(p.Score + (fed-p.Score)*step)
		}
		if ts.After(p.UpdatedAt) {
			p.UpdatedAt = ts
		}
		if ts.After(p.DecayedAt) {
			p.DecayedAt = ts
		}
		result.Updated++
	}

	result.Evicted = s.evictLocked(s.config.Capacity, now)
	s.version++
	result.Version = s.version
	return result, nil
}

// ValidateFederatedSet checks a federated set without touching any store.
//
//nolint:gocritic // hugeParam: set is read-only
func ValidateFederatedSet(set FederatedSet) error {
	seen := make(map[string]struct{}, len(set.Patterns))
	for i, fp := range set.Patterns {
		if fp.ID == "" {
			return fmt.Errorf("%w: pattern %d has empty id", ErrMalformedSet, i)
		}
		if math.IsNaN(fp.Score) || fp.Score < 0 || fp.Score > 1 {
			return fmt.Errorf("%w: pattern %q score %v out of range", ErrMalformedSet, fp.ID, fp.Score)
		}
		if fp.Samples < 0 {
			return fmt.Errorf("%w: pattern %q negative sample count", ErrMalformedSet, fp.ID)
		}
		if _, dup := seen[fp.ID]; dup {
			return fmt.Errorf("%w: duplicate pattern %q", ErrMalformedSet, fp.ID)
		}
		seen[fp.ID] = struct{}{}
	}
	return nil
}
