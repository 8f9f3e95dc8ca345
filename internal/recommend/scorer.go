// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package recommend

import (
	"math"

	"github.com/cespare/xxhash/v2"
)

// HashedEmbeddingScorer embeds context tokens and candidate features into a
// fixed-size vector with the hashing trick and returns their cosine
// similarity. It allocates two small vectors per call and holds no state.
type HashedEmbeddingScorer struct {
	dims int
}

// NewHashedEmbeddingScorer creates a scorer with the given vector size.
func NewHashedEmbeddingScorer(dims int) *HashedEmbeddingScorer {
	if dims < 1 {
		dims = 64
	}
	return &HashedEmbeddingScorer{dims: dims}
}

// Relevance returns cosine(context, candidate) clamped to [0, 1].
//
//nolint:gocritic // hugeParam: arguments passed by value for immutability
func (s *HashedEmbeddingScorer) Relevance(vc ViewingContext, c Candidate) float64 {
	tokens := vc.Tokens()
	if len(tokens) == 0 || len(c.Features) == 0 {
		return 0
	}

	a := s.embed(tokens)
	b := s.embed(c.Features)
	return clamp01(cosine(a, b))
}

// embed hashes tokens into a signed bag-of-features vector.
func (s *HashedEmbeddingScorer) embed(tokens []string) []float64 {
	v := make([]float64, s.dims)
	for _, tok := range tokens {
		h := xxhash.Sum64String(tok)
		idx := int(h % uint64(s.dims)) //nolint:gosec // dims is positive and small
		if h&(1<<63) != 0 {
			v[idx]--
		} else {
			v[idx]++
		}
	}
	return v
}

func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Ensure HashedEmbeddingScorer implements the interface.
var _ Scorer = (*HashedEmbeddingScorer)(nil)
