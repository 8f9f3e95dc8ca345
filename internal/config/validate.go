// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tvbrain/internal/validation"
)

// ErrUnknownProfile is returned for a profile other than the three known ones.
var ErrUnknownProfile = errors.New("unknown profile")

// Validate checks the configuration. Component sections are validated by
// the packages that own them, so the rules stay in one place.
func (c *Config) Validate() error {
	switch c.Profile {
	case ProfileDefault, ProfileProduction, ProfileDevelopment:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProfile, c.Profile)
	}

	if err := validation.GetValidator().Var(c.Device.ID, "required,device_id"); err != nil {
		return fmt.Errorf("device.id %q is invalid: must be 1-128 characters of letters, digits, '.', '_' or '-'", c.Device.ID)
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateIntervals(); err != nil {
		return err
	}

	if err := c.EngineConfig().Validate(); err != nil {
		return err
	}
	if err := c.PersistConfig().Validate(); err != nil {
		return fmt.Errorf("persistence: %w", err)
	}
	if transport, ok := c.TransportConfig(); ok {
		if err := transport.Validate(); err != nil {
			return fmt.Errorf("sync: %w", err)
		}
	}
	if err := c.ConstellationConfig().Validate(); err != nil {
		return fmt.Errorf("constellation: %w", err)
	}

	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		return fmt.Errorf("metrics.listen_addr is required when metrics are enabled")
	}
	if c.Constellation.ListenAddr == "" {
		return fmt.Errorf("constellation.listen_addr is required")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Logging.Level)); err != nil {
		return fmt.Errorf("logging.level %q is invalid: %w", c.Logging.Level, err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateIntervals() error {
	if c.Store.SweepInterval <= 0 {
		return fmt.Errorf("store.sweep_interval must be positive, got %v", c.Store.SweepInterval)
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("sync.interval must be positive, got %v", c.Sync.Interval)
	}
	if c.Sync.TriggerInterval < 0 {
		return fmt.Errorf("sync.trigger_interval must not be negative, got %v", c.Sync.TriggerInterval)
	}
	if c.Persistence.CheckpointInterval <= 0 {
		return fmt.Errorf("persistence.checkpoint_interval must be positive, got %v", c.Persistence.CheckpointInterval)
	}
	if c.Persistence.GCInterval < 0 {
		return fmt.Errorf("persistence.gc_interval must not be negative, got %v", c.Persistence.GCInterval)
	}
	if c.Supervisor.ShutdownTimeout <= 0 {
		return fmt.Errorf("supervisor.shutdown_timeout must be positive, got %v", c.Supervisor.ShutdownTimeout)
	}
	if c.Supervisor.FailureBackoff < 0 {
		return fmt.Errorf("supervisor.failure_backoff must not be negative, got %v", c.Supervisor.FailureBackoff)
	}
	return nil
}
