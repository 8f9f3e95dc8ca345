// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package sync

import (
	"fmt"
	"time"
)

// Wire size caps for compressed payloads.
const (
	MaxDeltaBytes  = 2048
	MaxGlobalBytes = 10240
)

// Config holds the reconciler settings.
type Config struct {
	// DeviceID identifies this device to the peer. Pseudonymous.
	DeviceID string `json:"device_id"`

	// MinSamples and MinScore gate which local patterns are exported.
	MinSamples int64   `json:"min_samples"`
	MinScore   float64 `json:"min_score"`

	// ExportBudget caps the number of patterns in one delta.
	ExportBudget int `json:"export_budget"`

	// Timeout bounds one exchange with the peer.
	Timeout time.Duration `json:"timeout"`

	// TrendFreshness is how long a trend signal stays usable.
	TrendFreshness time.Duration `json:"trend_freshness"`

	// MaxDeltaBytes and MaxGlobalBytes cap the compressed payloads.
	MaxDeltaBytes  int `json:"max_delta_bytes"`
	MaxGlobalBytes int `json:"max_global_bytes"`
}

// DefaultConfig returns the reconciler defaults.
func DefaultConfig() *Config {
	return &Config{
		MinSamples:     10,
		MinScore:       0.7,
		ExportBudget:   32,
		Timeout:        30 * time.Second,
		TrendFreshness: 24 * time.Hour,
		MaxDeltaBytes:  MaxDeltaBytes,
		MaxGlobalBytes: MaxGlobalBytes,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.DeviceID == "" {
		return fmt.Errorf("sync.device_id is required")
	}
	if c.MinSamples < 0 {
		return fmt.Errorf("sync.min_samples must not be negative, got %d", c.MinSamples)
	}
	if c.MinScore < 0 || c.MinScore > 1 {
		return fmt.Errorf("sync.min_score must be in [0, 1], got %f", c.MinScore)
	}
	if c.ExportBudget < 1 {
		return fmt.Errorf("sync.export_budget must be positive, got %d", c.ExportBudget)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("sync.timeout must be positive, got %v", c.Timeout)
	}
	if c.TrendFreshness <= 0 {
		return fmt.Errorf("sync.trend_freshness must be positive, got %v", c.TrendFreshness)
	}
	if c.MaxDeltaBytes < 64 {
		return fmt.Errorf("sync.max_delta_bytes must be at least 64, got %d", c.MaxDeltaBytes)
	}
	if c.MaxGlobalBytes < 64 {
		return fmt.Errorf("sync.max_global_bytes must be at least 64, got %d", c.MaxGlobalBytes)
	}
	return nil
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}
