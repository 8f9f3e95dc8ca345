// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package reranking

import (
	"context"

	"github.com/tomtom215/tvbrain/internal/recommend"
)

// MMR implements Maximal Marginal Relevance reranking over feature ids.
type MMR struct {
	// lambda balances relevance vs. diversity (0.0 to 1.0)
	lambda float64
}

// NewMMR creates a new MMR reranker.
func NewMMR(lambda float64) *MMR {
	if lambda < 0 {
		lambda = 0
	}
	if lambda > 1 {
		lambda = 1
	}
	return &MMR{lambda: lambda}
}

// Name returns the reranker identifier.
func (m *MMR) Name() string {
	return "mmr"
}

// Rerank applies MMR to diversify the list and returns at most k items.
//
//nolint:gocritic // rangeValCopy: ScoredItem passed by value in range, acceptable for clarity
func (m *MMR) Rerank(_ context.Context, items []recommend.ScoredItem, k int) []recommend.ScoredItem {
	if len(items) == 0 || k <= 0 {
		return items
	}
	if k > len(items) {
		k = len(items)
	}
	if m.lambda >= 1.0 {
		return items[:k]
	}

	sets := make([]map[string]struct{}, len(items))
	for i := range items {
		sets[i] = toSet(items[i].Features)
	}

	selected := make([]recommend.ScoredItem, 0, k)
	picked := make([]int, 0, k)
	taken := make([]bool, len(items))

	for len(selected) < k {
		bestIdx := -1
		bestMMR := 0.0

		for i, item := range items {
			if taken[i] {
				continue
			}
			maxSim := 0.0
			for _, j := range picked {
				if sim := jaccard(sets[i], sets[j]); sim > maxSim {
					maxSim = sim
				}
			}
			score := m.lambda*item.Score - (1-m.lambda)*maxSim
			if bestIdx < 0 || score > bestMMR {
				bestMMR = score
				bestIdx = i
			}
		}

		selected = append(selected, items[bestIdx])
		picked = append(picked, bestIdx)
		taken[bestIdx] = true
	}

	return selected
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// jaccard computes |a ∩ b| / |a ∪ b|; two empty sets are dissimilar.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for id := range a {
		if _, ok := b[id]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// Ensure MMR implements the interface.
var _ recommend.Reranker = (*MMR)(nil)
