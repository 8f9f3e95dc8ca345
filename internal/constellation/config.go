// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package constellation

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tomtom215/tvbrain/internal/auth"
	tvsync "github.com/tomtom215/tvbrain/internal/sync"
)

// Config configures a constellation peer.
type Config struct {
	// Region is stamped on every trend this peer computes.
	Region string `koanf:"region" json:"region"`

	// MaxDevices bounds the number of devices tracked at once. New devices
	// beyond it are refused with ErrShardOverload.
	MaxDevices int `koanf:"max_devices" json:"max_devices"`

	// DeviceTTL drops a device's delta when it has not synced for this long.
	DeviceTTL time.Duration `koanf:"device_ttl" json:"device_ttl"`

	// MinQuality filters incoming patterns by score.
	MinQuality float64 `koanf:"min_quality" json:"min_quality"`

	// MinSources is the number of devices that must report a pattern before
	// it enters the global set.
	MinSources int `koanf:"min_sources" json:"min_sources"`

	MaxGlobalPatterns int `koanf:"max_global_patterns" json:"max_global_patterns"`
	MaxTrends         int `koanf:"max_trends" json:"max_trends"`

	// Schedule is a cron expression or descriptor for federation rounds.
	Schedule string `koanf:"schedule" json:"schedule"`

	MaxDeltaBytes  int `koanf:"max_delta_bytes" json:"max_delta_bytes"`
	MaxGlobalBytes int `koanf:"max_global_bytes" json:"max_global_bytes"`

	// TokenSecret enables bearer verification on the sync endpoint.
	TokenSecret string `koanf:"token_secret" json:"-"`

	RateLimitRequests int           `koanf:"rate_limit_requests" json:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" json:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled" json:"rate_limit_disabled"`
}

// DefaultConfig returns peer defaults.
func DefaultConfig() *Config {
	return &Config{
		Region:            "global",
		MaxDevices:        100000,
		DeviceTTL:         24 * time.Hour,
		MinQuality:        0.7,
		MinSources:        3,
		MaxGlobalPatterns: 200,
		MaxTrends:         50,
		Schedule:          "@every 1m",
		MaxDeltaBytes:     tvsync.MaxDeltaBytes,
		MaxGlobalBytes:    tvsync.MaxGlobalBytes,
		RateLimitRequests: 10,
		RateLimitWindow:   time.Minute,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MaxDevices < 1 {
		return fmt.Errorf("constellation.max_devices must be positive, got %d", c.MaxDevices)
	}
	if c.DeviceTTL <= 0 {
		return fmt.Errorf("constellation.device_ttl must be positive, got %v", c.DeviceTTL)
	}
	if c.MinQuality < 0 || c.MinQuality > 1 {
		return fmt.Errorf("constellation.min_quality must be in [0,1], got %v", c.MinQuality)
	}
	if c.MinSources < 1 {
		return fmt.Errorf("constellation.min_sources must be positive, got %d", c.MinSources)
	}
	if c.MaxGlobalPatterns < 0 {
		return fmt.Errorf("constellation.max_global_patterns must not be negative, got %d", c.MaxGlobalPatterns)
	}
	if c.MaxTrends < 0 {
		return fmt.Errorf("constellation.max_trends must not be negative, got %d", c.MaxTrends)
	}
	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("constellation.schedule is invalid: %w", err)
	}
	if c.MaxDeltaBytes < 64 {
		return fmt.Errorf("constellation.max_delta_bytes must be at least 64, got %d", c.MaxDeltaBytes)
	}
	if c.MaxGlobalBytes < 64 {
		return fmt.Errorf("constellation.max_global_bytes must be at least 64, got %d", c.MaxGlobalBytes)
	}
	if c.TokenSecret != "" && len(c.TokenSecret) < auth.MinSecretLength {
		return fmt.Errorf("constellation.token_secret must be at least %d bytes", auth.MinSecretLength)
	}
	if !c.RateLimitDisabled {
		if c.RateLimitRequests < 1 {
			return fmt.Errorf("constellation.rate_limit_requests must be positive, got %d", c.RateLimitRequests)
		}
		if c.RateLimitWindow <= 0 {
			return fmt.Errorf("constellation.rate_limit_window must be positive, got %v", c.RateLimitWindow)
		}
	}
	return nil
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}
