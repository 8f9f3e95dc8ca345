// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

/*
Package supervisor provides process supervision for TVBrain using suture v4.

Both binaries run their long-lived work under one tree:

	tvbrain
	├── storage-layer
	│   ├── CheckpointService
	│   └── MaintenanceService
	├── sync-layer
	│   └── SyncService            (when a constellation URL is configured)
	└── api-layer
	    └── HTTPServerService      (metrics endpoint)

	constellation
	├── storage-layer
	├── sync-layer
	│   └── constellation.Scheduler
	└── api-layer
	    └── HTTPServerService      (sync API)

A crashed service is restarted with suture's backoff without touching its
siblings in other layers. Supervisor events go to slog through sutureslog;
the binaries bridge slog onto zerolog with logging.NewSlogHandler.

# Usage

	tree, err := supervisor.NewSupervisorTree(slogger, supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddStorageService(services.NewCheckpointService(eng, store, cpCfg, logger))
	tree.AddSyncService(services.NewSyncService(eng, syncCfg, logger))
	tree.AddAPIService(services.NewHTTPServerService("metrics-server", srv, 10*time.Second, logger))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

After Serve returns, UnstoppedServiceReport lists services that did not
stop within ShutdownTimeout.
*/
package supervisor
