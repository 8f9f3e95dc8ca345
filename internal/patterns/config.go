// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package patterns

import (
	"fmt"
	"time"
)

// Config holds the tunable constants of the pattern store.
type Config struct {
	// Capacity is the maximum number of entries kept on the device.
	Capacity int `json:"capacity"`

	// HalfLife is the time after which an untouched score halves.
	HalfLife time.Duration `json:"half_life"`

	// LearningRate scales the EMA step: alpha = LearningRate * sample_weight.
	LearningRate float64 `json:"learning_rate"`

	// StrongEvidenceSamples is the local sample count at which federated
	// evidence moves a score by half of FederatedWeight.
	StrongEvidenceSamples int64 `json:"strong_evidence_samples"`

	// FederatedWeight is the largest share of the gap between local and
	// federated score that a merge may close.
	FederatedWeight float64 `json:"federated_weight"`

	// MinScore floors decayed scores to zero below this value.
	MinScore float64 `json:"min_score"`

	// Now is the clock. Defaults to time.Now.
	Now func() time.Time `json:"-"`
}

// DefaultConfig returns the store configuration used on devices.
func DefaultConfig() Config {
	return Config{
		Capacity:              10000,
		HalfLife:              7 * 24 * time.Hour,
		LearningRate:          0.5,
		StrongEvidenceSamples: 10,
		FederatedWeight:       0.5,
		MinScore:              0.001,
		Now:                   time.Now,
	}
}

// Validate checks that the configuration values are usable.
//
//nolint:gocritic // value receiver matches DefaultConfig usage
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("store.capacity must be positive, got %d", c.Capacity)
	}
	if c.HalfLife <= 0 {
		return fmt.Errorf("store.half_life must be positive, got %v", c.HalfLife)
	}
	if c.LearningRate <= 0 || c.LearningRate > 1 {
		return fmt.Errorf("store.learning_rate must be in (0, 1], got %f", c.LearningRate)
	}
	if c.StrongEvidenceSamples <= 0 {
		return fmt.Errorf("store.strong_evidence_samples must be positive, got %d", c.StrongEvidenceSamples)
	}
	if c.FederatedWeight < 0 || c.FederatedWeight > 1 {
		return fmt.Errorf("store.federated_weight must be in [0, 1], got %f", c.FederatedWeight)
	}
	if c.MinScore < 0 || c.MinScore >= 1 {
		return fmt.Errorf("store.min_score must be in [0, 1), got %f", c.MinScore)
	}
	return nil
}
