// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

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
	"github.com/tomtom215/tvbrain/internal/engine"
	"github.com/tomtom215/tvbrain/internal/logging"
	"github.com/tomtom215/tvbrain/internal/persist"
	"github.com/tomtom215/tvbrain/internal/supervisor"
	"github.com/tomtom215/tvbrain/internal/supervisor/services"
	tvsync "github.com/tomtom215/tvbrain/internal/sync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(cfg.LoggingConfig("tvbrain"))

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("TVBrain stopped with error")
	}
	logging.Info().Msg("TVBrain stopped gracefully")
}

//nolint:gocyclo // sequential startup
func run(cfg *config.Config) error {
	logger := logging.Logger()
	logging.Info().
		Str("profile", cfg.Profile).
		Str("device_id", logging.SanitizeDeviceID(cfg.Device.ID)).
		Str("data_path", cfg.Persistence.Path).
		Bool("in_memory", cfg.Persistence.InMemory).
		Bool("sync_enabled", cfg.Sync.PeerURL != "").
		Msg("Starting TVBrain")

	store, err := persist.Open(cfg.PersistConfig(), logger)
	if err != nil {
		return err
	}

	opts := engine.Options{
		Persistence: store,
		Logger:      logger,
	}
	if tcfg, ok := cfg.TransportConfig(); ok {
		transport, err := tvsync.NewHTTPTransport(tcfg, nil, logger)
		if err != nil {
			_ = store.Close()
			return err
		}
		opts.Transport = transport
	} else {
		logging.Info().Msg("No constellation URL configured, sync disabled")
	}

	// engine.New owns store from here on; Shutdown closes it.
	eng, err := engine.New(cfg.EngineConfig(), opts)
	if err != nil {
		_ = store.Close()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := eng.Start(ctx); err != nil {
		_ = shutdownEngine(eng, cfg.Supervisor.ShutdownTimeout)
		return err
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), cfg.TreeConfig("tvbrain"))
	if err != nil {
		_ = shutdownEngine(eng, cfg.Supervisor.ShutdownTimeout)
		return err
	}

	tree.AddStorageService(services.NewCheckpointService(eng, store, cfg.CheckpointServiceConfig(), logger))
	tree.AddStorageService(services.NewMaintenanceService(eng, cfg.Store.SweepInterval, logger))

	var trigger syncTrigger
	if opts.Transport != nil {
		syncSvc := services.NewSyncService(eng, cfg.SyncServiceConfig(), logger)
		tree.AddSyncService(syncSvc)
		trigger = syncSvc
	}

	if cfg.Metrics.Enabled {
		srv := &http.Server{
			Addr:              cfg.Metrics.ListenAddr,
			Handler:           newRouter(eng, trigger),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
		}
		tree.AddAPIService(services.NewHTTPServerService("device-http", srv, cfg.Supervisor.ShutdownTimeout, logger))
		logging.Info().Str("addr", cfg.Metrics.ListenAddr).Msg("Local endpoint enabled")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	var treeErr error
	if err := <-tree.ServeBackground(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
		treeErr = err
	}
	cancel()

	reportUnstopped(tree)

	if err := shutdownEngine(eng, cfg.Supervisor.ShutdownTimeout); err != nil {
		return err
	}
	return treeErr
}

// shutdownEngine saves and closes the engine within timeout.
func shutdownEngine(eng *engine.Engine, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := eng.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("Engine shutdown failed")
		return err
	}
	return nil
}

func reportUnstopped(tree *supervisor.SupervisorTree) {
	unstopped, err := tree.UnstoppedServiceReport()
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to collect unstopped services")
		return
	}
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}
}
