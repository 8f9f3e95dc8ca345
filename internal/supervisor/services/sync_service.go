// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	tvsync "github.com/tomtom215/tvbrain/internal/sync"
)

// Syncer runs one reconciliation. Satisfied by *engine.Engine.
type Syncer interface {
	Sync(ctx context.Context) (*tvsync.Result, error)
}

// SyncServiceConfig configures SyncService.
type SyncServiceConfig struct {
	// Interval between periodic syncs.
	Interval time.Duration

	// SyncOnStart runs a sync as soon as the service starts.
	SyncOnStart bool

	// TriggerInterval and TriggerBurst limit manual triggers.
	TriggerInterval time.Duration
	TriggerBurst    int
}

// DefaultSyncServiceConfig returns defaults: every 10 minutes, manual
// triggers at most once a minute with a burst of 2.
func DefaultSyncServiceConfig() SyncServiceConfig {
	return SyncServiceConfig{
		Interval:        600 * time.Second,
		TriggerInterval: time.Minute,
		TriggerBurst:    2,
	}
}

// SyncService drives periodic synchronization with the constellation peer
// and accepts rate-limited manual triggers.
type SyncService struct {
	syncer  Syncer
	config  SyncServiceConfig
	limiter *rate.Limiter
	trigger chan struct{}
	logger  zerolog.Logger
	name    string
}

// NewSyncService creates a sync service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewSyncService(syncer Syncer, cfg SyncServiceConfig, logger zerolog.Logger) *SyncService {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSyncServiceConfig().Interval
	}
	if cfg.TriggerBurst < 1 {
		cfg.TriggerBurst = 1
	}
	limit := rate.Inf
	if cfg.TriggerInterval > 0 {
		limit = rate.Every(cfg.TriggerInterval)
	}
	return &SyncService{
		syncer:  syncer,
		config:  cfg,
		limiter: rate.NewLimiter(limit, cfg.TriggerBurst),
		trigger: make(chan struct{}, 1),
		logger:  logger.With().Str("service", "sync").Logger(),
		name:    "sync-service",
	}
}

// Trigger requests an immediate sync. It returns false when the request
// is rate limited; a trigger while one is already pending is coalesced.
func (s *SyncService) Trigger() bool {
	if !s.limiter.Allow() {
		return false
	}
	select {
	case s.trigger <- struct{}{}:
	default:
	}
	return true
}

// Serve implements suture.Service.
func (s *SyncService) Serve(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.config.Interval).Msg("sync service starting")

	if s.config.SyncOnStart {
		s.run(ctx, "startup")
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("sync service shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.run(ctx, "schedule")
		case <-s.trigger:
			s.run(ctx, "manual")
		}
	}
}

func (s *SyncService) run(ctx context.Context, reason string) {
	res, err := s.syncer.Sync(ctx)
	switch {
	case err == nil:
		s.logger.Debug().
			Str("reason", reason).
			Int("received", res.Received).
			Int("inserted", res.Merge.Inserted).
			Int("updated", res.Merge.Updated).
			Uint64("version", uint64(res.Merge.Version)).
			Msg("sync complete")
	case errors.Is(err, tvsync.ErrSyncInProgress):
		s.logger.Debug().Str("reason", reason).Msg("sync already in progress")
	case ctx.Err() != nil:
		// shutting down
	default:
		s.logger.Warn().Err(err).Str("reason", reason).Msg("sync failed (will retry on schedule)")
	}
}

// String implements fmt.Stringer for logging.
func (s *SyncService) String() string {
	return s.name
}
