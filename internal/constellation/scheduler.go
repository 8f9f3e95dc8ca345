// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package constellation

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs federation rounds on a cron schedule. It implements
// suture.Service.
type Scheduler struct {
	agg      *Aggregator
	schedule cron.Schedule
	spec     string
	logger   zerolog.Logger
}

// NewScheduler parses spec, a standard cron expression or a descriptor
// such as "@every 1m".
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewScheduler(agg *Aggregator, spec string, logger zerolog.Logger) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	return &Scheduler{
		agg:      agg,
		schedule: schedule,
		spec:     spec,
		logger:   logger.With().Str("component", "federation_scheduler").Logger(),
	}, nil
}

// Serve runs rounds until ctx is cancelled. A round that is still running
// when the next one is due is skipped.
func (s *Scheduler) Serve(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(s.schedule, cron.FuncJob(func() {
		if _, err := s.agg.RunRound(); err != nil {
			s.logger.Error().Err(err).Msg("Federation round failed")
		}
	}))

	c.Start()
	s.logger.Info().Str("schedule", s.spec).Msg("Federation scheduler started")

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info().Msg("Federation scheduler stopped")
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logging.
func (s *Scheduler) String() string {
	return "federation-scheduler"
}
