// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package reranking

import (
	"context"
	"testing"

	"github.com/tomtom215/tvbrain/internal/recommend"
)

func item(id string, score float64, features ...string) recommend.ScoredItem {
	return recommend.ScoredItem{ID: id, Score: score, Features: features}
}

func TestNewMMR(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		lambda     float64
		wantLambda float64
	}{
		{"normal value", 0.7, 0.7},
		{"zero value", 0.0, 0.0},
		{"negative clamped to zero", -0.5, 0.0},
		{"above one clamped to one", 1.5, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := NewMMR(tt.lambda).lambda; got != tt.wantLambda {
				t.Errorf("lambda = %f, want %f", got, tt.wantLambda)
			}
		})
	}
}

func TestMMR_Rerank(t *testing.T) {
	t.Parallel()

	items := []recommend.ScoredItem{
		item("a1", 1.0, "genre:action"),
		item("a2", 0.95, "genre:action"),
		item("a3", 0.9, "genre:action"),
		item("c1", 0.5, "genre:comedy"),
		item("d1", 0.4, "genre:drama"),
	}

	tests := []struct {
		name    string
		lambda  float64
		k       int
		wantIDs []string
	}{
		{"pure relevance keeps order", 1.0, 3, []string{"a1", "a2", "a3"}},
		{"strong diversity spreads genres", 0.3, 3, []string{"a1", "c1", "d1"}},
		{"k larger than items", 0.7, 10, nil},
		{"k zero returns input", 0.7, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := NewMMR(tt.lambda).Rerank(context.Background(), items, tt.k)
			if tt.wantIDs == nil {
				if len(got) != len(items) {
					t.Errorf("len(result) = %d, want %d", len(got), len(items))
				}
				return
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("len(result) = %d, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("result[%d] = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestMMR_Rerank_Deterministic(t *testing.T) {
	t.Parallel()

	items := []recommend.ScoredItem{
		item("a", 0.5, "genre:x"),
		item("b", 0.5, "genre:x"),
		item("c", 0.5, "genre:y"),
	}
	mmr := NewMMR(0.5)
	first := mmr.Rerank(context.Background(), items, 3)
	for i := 0; i < 20; i++ {
		again := mmr.Rerank(context.Background(), items, 3)
		for j := range first {
			if again[j].ID != first[j].ID {
				t.Fatalf("run %d differs at %d: %s vs %s", i, j, again[j].ID, first[j].ID)
			}
		}
	}
}

func TestJaccard(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []string
		want float64
	}{
		{"identical", []string{"genre:action", "tag:space"}, []string{"genre:action", "tag:space"}, 1},
		{"no overlap", []string{"genre:action"}, []string{"genre:comedy"}, 0},
		{"partial overlap", []string{"genre:action", "tag:space"}, []string{"genre:action", "genre:drama"}, 1.0 / 3.0},
		{"both empty", nil, nil, 0},
		{"one empty", []string{"genre:action"}, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := jaccard(toSet(tt.a), toSet(tt.b))
			if got < tt.want-0.001 || got > tt.want+0.001 {
				t.Errorf("jaccard(%v, %v) = %f, want %f", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
