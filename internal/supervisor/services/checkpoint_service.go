// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Checkpointer persists the store when it changed. Satisfied by
// *engine.Engine.
type Checkpointer interface {
	Checkpoint(ctx context.Context) (bool, error)
}

// GarbageCollector reclaims space in the persistence backend. Satisfied by
// *persist.BadgerStore.
type GarbageCollector interface {
	RunGC() error
}

// CheckpointServiceConfig configures CheckpointService.
type CheckpointServiceConfig struct {
	// Interval between checkpoints.
	Interval time.Duration

	// GCInterval between value log collections. Zero disables GC.
	GCInterval time.Duration
}

// CheckpointService periodically persists the pattern store and, when a
// collector is given, runs value log GC.
type CheckpointService struct {
	target Checkpointer
	gc     GarbageCollector
	config CheckpointServiceConfig
	logger zerolog.Logger
	name   string
}

// NewCheckpointService creates a checkpoint service. gc may be nil.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewCheckpointService(target Checkpointer, gc GarbageCollector, cfg CheckpointServiceConfig, logger zerolog.Logger) *CheckpointService {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	return &CheckpointService{
		target: target,
		gc:     gc,
		config: cfg,
		logger: logger.With().Str("service", "checkpoint").Logger(),
		name:   "checkpoint-service",
	}
}

// Serve implements suture.Service. Save failures are logged and retried
// on the next tick; the engine keeps serving from memory meanwhile.
func (s *CheckpointService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	var gcC <-chan time.Time
	if s.gc != nil && s.config.GCInterval > 0 {
		gcTicker := time.NewTicker(s.config.GCInterval)
		defer gcTicker.Stop()
		gcC = gcTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.target.Checkpoint(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn().Err(err).Msg("checkpoint failed (will retry)")
			}
		case <-gcC:
			if err := s.gc.RunGC(); err != nil {
				s.logger.Warn().Err(err).Msg("value log GC failed")
			}
		}
	}
}

// String implements fmt.Stringer for logging.
func (s *CheckpointService) String() string {
	return s.name
}
