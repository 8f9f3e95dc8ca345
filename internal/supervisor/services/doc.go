// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

/*
Package services provides suture.Service wrappers for the engine's
background work.

Each wrapper implements:

	type Service interface {
	    Serve(ctx context.Context) error
	}

and fmt.Stringer so the supervisor can name it in events.

# Available Services

SyncService:
  - Calls Sync on a fixed interval (600s by default)
  - Trigger requests an immediate sync, limited by a token bucket
  - Failures are logged; the next tick retries

MaintenanceService:
  - Applies decay and capacity eviction every sweep interval
  - Returns the sweep error so the supervisor restarts it with backoff

CheckpointService:
  - Persists the store when its version changed
  - Optionally runs Badger value log GC on its own interval

HTTPServerService:
  - Wraps *http.Server with graceful shutdown
  - Serves /metrics on devices and the API on the constellation peer

Services depend on small interfaces (Syncer, Maintainer, Checkpointer,
GarbageCollector) rather than on the engine package, so tests use hand
written mocks.
*/
package services
