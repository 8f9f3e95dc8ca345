// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package recommend

import "testing"

func TestHashedEmbeddingScorer_Relevance(t *testing.T) {
	t.Parallel()

	s := NewHashedEmbeddingScorer(64)
	vc := ViewingContext{Genre: "drama"}

	tests := []struct {
		name     string
		features []string
		check    func(float64) bool
	}{
		{"no features", nil, func(v float64) bool { return v == 0 }},
		{"identical token", []string{"genre:drama"}, func(v float64) bool { return v > 0.999 }},
		{"partial overlap", []string{"genre:drama", "tag:space"}, func(v float64) bool { return v >= 0 && v <= 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := s.Relevance(vc, Candidate{ID: "m1", Features: tt.features})
			if !tt.check(got) {
				t.Errorf("Relevance() = %f", got)
			}
		})
	}
}

func TestHashedEmbeddingScorer_BoundsAndDeterminism(t *testing.T) {
	t.Parallel()

	s := NewHashedEmbeddingScorer(8)
	vc := ViewingContext{TimeOfDay: "night", DayOfWeek: "sunday", Genre: "horror", Mood: "scared"}
	c := Candidate{ID: "x", Features: []string{"genre:comedy", "tag:family", "tag:cartoon", "genre:horror"}}

	first := s.Relevance(vc, c)
	if first < 0 || first > 1 {
		t.Fatalf("Relevance() = %f, outside [0,1]", first)
	}
	for i := 0; i < 10; i++ {
		if got := s.Relevance(vc, c); got != first {
			t.Fatalf("Relevance() not deterministic: %f vs %f", got, first)
		}
	}
}

func TestNewHashedEmbeddingScorer_DefaultsDimensions(t *testing.T) {
	t.Parallel()

	if s := NewHashedEmbeddingScorer(0); s.dims != 64 {
		t.Errorf("dims = %d, want 64", s.dims)
	}
}
