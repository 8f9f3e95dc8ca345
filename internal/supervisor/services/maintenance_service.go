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

// Maintainer applies decay and capacity eviction. Satisfied by
// *engine.Engine.
type Maintainer interface {
	Maintain(now time.Time) (int, error)
}

// MaintenanceService sweeps the pattern store on a fixed interval.
type MaintenanceService struct {
	target   Maintainer
	interval time.Duration
	now      func() time.Time
	logger   zerolog.Logger
	name     string
}

// NewMaintenanceService creates a maintenance service. A non-positive
// interval defaults to one minute.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewMaintenanceService(target Maintainer, interval time.Duration, logger zerolog.Logger) *MaintenanceService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &MaintenanceService{
		target:   target,
		interval: interval,
		now:      time.Now,
		logger:   logger.With().Str("service", "maintenance").Logger(),
		name:     "maintenance-service",
	}
}

// Serve implements suture.Service. A failing sweep returns the error so
// the supervisor restarts the service with backoff.
func (s *MaintenanceService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			evicted, err := s.target.Maintain(s.now())
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return err
			}
			if evicted > 0 {
				s.logger.Debug().Int("evicted", evicted).Msg("maintenance sweep")
			}
		}
	}
}

// String implements fmt.Stringer for logging.
func (s *MaintenanceService) String() string {
	return s.name
}
