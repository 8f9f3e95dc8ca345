// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package recommend

import (
	"fmt"
	"math"
	"time"
)

// Config contains all configuration for the scoring engine.
type Config struct {
	// Weights defines the relative contribution of each ranking component.
	// Weights are normalized at runtime, so they don't need to sum to 1.0.
	Weights Weights `json:"weights"`

	// FeatureBlend is the share of affinity taken from a candidate's genre
	// and tag patterns rather than its own score.
	FeatureBlend float64 `json:"feature_blend"`

	// Embedding configures the default context scorer.
	Embedding EmbeddingConfig `json:"embedding"`

	// Diversity configures optional MMR reranking.
	Diversity DiversityConfig `json:"diversity"`

	// Limits contains operational limits.
	Limits LimitsConfig `json:"limits"`
}

// Weights defines the relative contribution of each ranking component.
type Weights struct {
	Affinity float64 `json:"affinity"`
	Context  float64 `json:"context"`
	Recency  float64 `json:"recency"`
}

// Normalize returns a copy with weights normalized to sum to 1.0.
func (w Weights) Normalize() Weights {
	sum := w.Affinity + w.Context + w.Recency
	if sum <= 0 {
		const third = 1.0 / 3.0
		return Weights{Affinity: third, Context: third, Recency: third}
	}
	return Weights{
		Affinity: w.Affinity / sum,
		Context:  w.Context / sum,
		Recency:  w.Recency / sum,
	}
}

// EmbeddingConfig contains parameters for HashedEmbeddingScorer.
type EmbeddingConfig struct {
	// Dimensions is the size of the hashed feature vector.
	Dimensions int `json:"dimensions"`
}

// DiversityConfig contains parameters for diversity reranking.
type DiversityConfig struct {
	// MMRLambda balances relevance against genre diversity.
	// 1.0 disables reranking.
	MMRLambda float64 `json:"mmr_lambda"`
}

// LimitsConfig contains operational limits.
type LimitsConfig struct {
	// DefaultK is used when a request does not specify K.
	DefaultK int `json:"default_k"`

	// MaxK caps the result length.
	MaxK int `json:"max_k"`

	// Timeout is the per-request latency budget.
	Timeout time.Duration `json:"timeout"`

	// DeadlineCheckEvery is how many candidates are scored between deadline checks.
	DeadlineCheckEvery int `json:"deadline_check_every"`

	// MinScore drops candidates whose final score falls below it.
	MinScore float64 `json:"min_score"`
}

// DefaultConfig returns production-ready default configuration.
func DefaultConfig() *Config {
	return &Config{
		Weights: Weights{
			Affinity: 0.6,
			Context:  0.25,
			Recency:  0.15,
		},
		FeatureBlend: 0.3,
		Embedding: EmbeddingConfig{
			Dimensions: 64,
		},
		Diversity: DiversityConfig{
			MMRLambda: 1.0,
		},
		Limits: LimitsConfig{
			DefaultK:           20,
			MaxK:               100,
			Timeout:            15 * time.Millisecond,
			DeadlineCheckEvery: 256,
			MinScore:           0.05,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Weights.Affinity < 0 || c.Weights.Context < 0 || c.Weights.Recency < 0 {
		return fmt.Errorf("weights must be non-negative, got %+v", c.Weights)
	}
	if c.FeatureBlend < 0 || c.FeatureBlend > 1 {
		return fmt.Errorf("feature_blend must be in [0, 1], got %f", c.FeatureBlend)
	}
	if c.Embedding.Dimensions < 1 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Diversity.MMRLambda < 0 || c.Diversity.MMRLambda > 1 {
		return fmt.Errorf("diversity.mmr_lambda must be in [0, 1], got %f", c.Diversity.MMRLambda)
	}
	if c.Limits.DefaultK < 1 {
		return fmt.Errorf("limits.default_k must be positive, got %d", c.Limits.DefaultK)
	}
	if c.Limits.MaxK < c.Limits.DefaultK {
		return fmt.Errorf("limits.max_k must be >= limits.default_k, got %d < %d", c.Limits.MaxK, c.Limits.DefaultK)
	}
	if c.Limits.Timeout <= 0 {
		return fmt.Errorf("limits.timeout must be positive, got %v", c.Limits.Timeout)
	}
	if c.Limits.DeadlineCheckEvery < 1 {
		return fmt.Errorf("limits.deadline_check_every must be positive, got %d", c.Limits.DeadlineCheckEvery)
	}
	if math.IsNaN(c.Limits.MinScore) || c.Limits.MinScore < 0 || c.Limits.MinScore >= 1 {
		return fmt.Errorf("limits.min_score must be in [0, 1), got %f", c.Limits.MinScore)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	// All nested structs contain only value types.
	cp := *c
	return &cp
}
