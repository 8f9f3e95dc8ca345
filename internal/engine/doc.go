// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

/*
Package engine provides the caller-owned handle that ties the pattern store,
scoring engine, ingestion pipeline, sync reconciler and persistence together.

Lifecycle:

	e, err := engine.New(cfg, engine.Options{Transport: t, Persistence: p, Logger: log})
	_ = e.Start(ctx)            // optional: asynchronous ingestion
	resp, err := e.Recommend(ctx, vc, 10)
	out, err := e.Observe(ctx, ev)
	res, err := e.Sync(ctx)
	err = e.ClearData(ctx)
	err = e.Shutdown(ctx)       // later calls fail with ErrClosed

Several handles may coexist; they share only the process-wide metrics and
logger.

# Errors

Every operation returns *Error with a Kind (validation, capacity,
sync_transport, sync_conflict, persistence, internal_invariant, in_progress,
closed, canceled, internal) and the operation name. Code maps an error to the
numeric status codes used by non-Go callers:

	 0 success           -5 invalid argument
	-1 init              -6 decode (sync conflict)
	-2 recommend         -8 not initialized / shut down
	-3 observe          -10 internal
	-4 sync             -11 sync in progress

Sync failures never affect Recommend. A failed periodic Checkpoint is logged
and counted; the engine keeps serving from memory.
*/
package engine
