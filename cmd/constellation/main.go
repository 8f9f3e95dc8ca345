// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

/*
Command constellation runs the reference aggregation peer that TVBrain
devices sync with.

Devices POST compressed pattern deltas to /api/v1/sync and receive the
current global pattern set. Federation rounds run on CONSTELLATION_SCHEDULE
(every minute by default) and combine the deltas of at least
CONSTELLATION_MIN_SOURCES devices into global patterns and genre trends.

	export CONSTELLATION_ADDR=:8080
	export CONSTELLATION_REGION=eu-west
	export CONSTELLATION_TOKEN_SECRET=$(openssl rand -base64 32)
	./constellation

State is kept in memory; a restarted peer serves an empty set until the
next round after devices resubmit.
*/
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/tvbrain/internal/config"
	"github.com/tomtom215/tvbrain/internal/constellation"
	"github.com/tomtom215/tvbrain/internal/logging"
	"github.com/tomtom215/tvbrain/internal/supervisor"
	"github.com/tomtom215/tvbrain/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(cfg.LoggingConfig("constellation"))

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Constellation stopped with error")
	}
	logging.Info().Msg("Constellation stopped gracefully")
}

func run(cfg *config.Config) error {
	logger := logging.Logger()
	peerCfg := cfg.ConstellationConfig()

	logging.Info().
		Str("addr", cfg.Constellation.ListenAddr).
		Str("region", peerCfg.Region).
		Str("schedule", peerCfg.Schedule).
		Int("min_sources", peerCfg.MinSources).
		Bool("auth", peerCfg.TokenSecret != "").
		Msg("Starting constellation peer")
	if peerCfg.TokenSecret == "" {
		logging.Warn().Msg("CONSTELLATION_TOKEN_SECRET is not set: sync endpoint accepts unauthenticated devices")
	}

	agg, err := constellation.NewAggregator(peerCfg, logger)
	if err != nil {
		return err
	}
	server, err := constellation.NewServer(peerCfg, agg, logger)
	if err != nil {
		return err
	}
	scheduler, err := constellation.NewScheduler(agg, peerCfg.Schedule, logger)
	if err != nil {
		return err
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), cfg.TreeConfig("constellation"))
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Constellation.ListenAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	tree.AddSyncService(scheduler)
	tree.AddAPIService(services.NewHTTPServerService("constellation-http", srv, cfg.Supervisor.ShutdownTimeout, logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	if err := <-tree.ServeBackground(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	st := agg.Stats()
	logging.Info().
		Uint64("version", st.Version).
		Int64("rounds", st.Rounds).
		Int("devices", st.Devices).
		Msg("Final federation state")
	return nil
}
