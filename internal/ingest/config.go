// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package ingest

import (
	"fmt"
	"time"
)

// Config holds the ingestion pipeline settings.
type Config struct {
	// QueueSize bounds the number of folds in flight. Beyond it, Observe
	// applies folds on the caller's goroutine without remote metadata.
	QueueSize int `json:"queue_size"`

	// CompletionThreshold is the watch fraction counted as a full view.
	CompletionThreshold float64 `json:"completion_threshold"`

	// WatchWeight and EngagementWeight form the reward blend.
	WatchWeight      float64 `json:"watch_weight"`
	EngagementWeight float64 `json:"engagement_weight"`

	// MinSampleWeight is the smallest weight an observation carries.
	MinSampleWeight float64 `json:"min_sample_weight"`

	// ZapThreshold marks views shorter than this as channel surfing.
	ZapThreshold time.Duration `json:"zap_threshold"`

	// ResolveTimeout bounds one metadata lookup.
	ResolveTimeout time.Duration `json:"resolve_timeout"`

	// CloseTimeout bounds the drain performed by Close.
	CloseTimeout time.Duration `json:"close_timeout"`

	// Topic is the in-process topic folds are published to.
	Topic string `json:"topic"`

	// MetadataCacheSize and MetadataCacheTTL configure CachedResolver.
	MetadataCacheSize int           `json:"metadata_cache_size"`
	MetadataCacheTTL  time.Duration `json:"metadata_cache_ttl"`
}

// DefaultConfig returns the pipeline defaults.
func DefaultConfig() *Config {
	return &Config{
		QueueSize:           1024,
		CompletionThreshold: 0.9,
		WatchWeight:         0.7,
		EngagementWeight:    0.3,
		MinSampleWeight:     0.1,
		ZapThreshold:        10 * time.Second,
		ResolveTimeout:      50 * time.Millisecond,
		CloseTimeout:        5 * time.Second,
		Topic:               "tvbrain.observations",
		MetadataCacheSize:   4096,
		MetadataCacheTTL:    30 * time.Minute,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.QueueSize < 1 {
		return fmt.Errorf("ingest.queue_size must be positive, got %d", c.QueueSize)
	}
	if c.CompletionThreshold <= 0 || c.CompletionThreshold > 1 {
		return fmt.Errorf("ingest.completion_threshold must be in (0, 1], got %f", c.CompletionThreshold)
	}
	if c.WatchWeight < 0 || c.EngagementWeight < 0 {
		return fmt.Errorf("ingest reward weights must be non-negative, got %f/%f", c.WatchWeight, c.EngagementWeight)
	}
	if c.WatchWeight+c.EngagementWeight == 0 {
		return fmt.Errorf("ingest reward weights must not both be zero")
	}
	if c.MinSampleWeight < 0 || c.MinSampleWeight > 1 {
		return fmt.Errorf("ingest.min_sample_weight must be in [0, 1], got %f", c.MinSampleWeight)
	}
	if c.ZapThreshold < 0 {
		return fmt.Errorf("ingest.zap_threshold must not be negative, got %v", c.ZapThreshold)
	}
	if c.ResolveTimeout <= 0 {
		return fmt.Errorf("ingest.resolve_timeout must be positive, got %v", c.ResolveTimeout)
	}
	if c.CloseTimeout <= 0 {
		return fmt.Errorf("ingest.close_timeout must be positive, got %v", c.CloseTimeout)
	}
	if c.Topic == "" {
		return fmt.Errorf("ingest.topic is required")
	}
	if c.MetadataCacheSize < 0 {
		return fmt.Errorf("ingest.metadata_cache_size must not be negative, got %d", c.MetadataCacheSize)
	}
	return nil
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}
