// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package engine

import (
	"fmt"
	"time"

	"github.com/tomtom215/tvbrain/internal/ingest"
	"github.com/tomtom215/tvbrain/internal/patterns"
	"github.com/tomtom215/tvbrain/internal/recommend"
	tvsync "github.com/tomtom215/tvbrain/internal/sync"
)

// Config bundles the settings of every engine component.
type Config struct {
	Store     patterns.Config
	Recommend *recommend.Config
	Ingest    *ingest.Config
	Sync      *tvsync.Config

	// PersistTimeout bounds one load or save.
	PersistTimeout time.Duration

	// DrainTimeout bounds the ingestion drain during Shutdown.
	DrainTimeout time.Duration
}

// DefaultConfig returns defaults for a device with the given id.
func DefaultConfig(deviceID string) *Config {
	syncCfg := tvsync.DefaultConfig()
	syncCfg.DeviceID = deviceID
	return &Config{
		Store:          patterns.DefaultConfig(),
		Recommend:      recommend.DefaultConfig(),
		Ingest:         ingest.DefaultConfig(),
		Sync:           syncCfg,
		PersistTimeout: 10 * time.Second,
		DrainTimeout:   5 * time.Second,
	}
}

// Validate checks every component configuration.
func (c *Config) Validate() error {
	if c.Recommend == nil || c.Ingest == nil || c.Sync == nil {
		return fmt.Errorf("engine config sections must not be nil")
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := c.Recommend.Validate(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	if err := c.Ingest.Validate(); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if err := c.Sync.Validate(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if c.PersistTimeout <= 0 {
		return fmt.Errorf("engine.persist_timeout must be positive, got %v", c.PersistTimeout)
	}
	if c.DrainTimeout <= 0 {
		return fmt.Errorf("engine.drain_timeout must be positive, got %v", c.DrainTimeout)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	cp := *c
	if c.Recommend != nil {
		cp.Recommend = c.Recommend.Clone()
	}
	if c.Ingest != nil {
		cp.Ingest = c.Ingest.Clone()
	}
	if c.Sync != nil {
		cp.Sync = c.Sync.Clone()
	}
	return &cp
}
