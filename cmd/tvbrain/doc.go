// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

/*
Command tvbrain runs the recommendation engine on a TV device.

# Startup

 1. Configuration: koanf layers (profile defaults, YAML file, environment)
 2. Persistence: badger store at PERSIST_PATH, restored into the pattern store
 3. Engine: scoring, ingestion and, when CONSTELLATION_URL is set, sync
 4. Supervisor tree:
    - storage-layer: checkpoint (and value log GC), decay/evict sweep
    - sync-layer: periodic sync with the constellation peer
    - api-layer: local HTTP endpoint

# Local Endpoint

Bound to METRICS_ADDR (127.0.0.1:9464 by default):

	GET  /healthz   200 while the engine is open
	GET  /status    engine.Status as JSON
	POST /sync      request an immediate sync (rate limited)
	GET  /metrics   Prometheus metrics

# Signal Handling

SIGINT and SIGTERM stop the supervisor tree, then the engine aborts any
in-flight sync, drains ingestion, runs a final sweep and saves.

# Example

	export TVBRAIN_PROFILE=production
	export TVBRAIN_DEVICE_ID=living-room-tv
	export CONSTELLATION_URL=https://constellation.example
	export SYNC_TOKEN_SECRET=$(cat /run/secrets/constellation)
	./tvbrain
*/
package main
