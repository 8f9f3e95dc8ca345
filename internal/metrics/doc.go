// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

/*
Package metrics provides Prometheus metrics for the recommendation engine and
the constellation peer.

All metrics are registered with the default registry through promauto and are
exposed by the HTTP services at /metrics:

	curl http://localhost:9464/metrics

# Available Metrics

Recommendation:
  - tvbrain_recommend_duration_seconds: request latency (histogram, sub-ms buckets)
  - tvbrain_recommend_requests_total: requests by result (ok, empty, safe_mode, truncated, error)

Ingestion:
  - tvbrain_observations_total: viewing events by result (async, sync, rejected)
  - tvbrain_fold_duration_seconds, tvbrain_fold_errors_total
  - tvbrain_ingest_in_flight: published but not yet applied
  - tvbrain_metadata_lookups_total: resolver lookups (hit, miss, error)

Pattern store:
  - tvbrain_pattern_store_entries, tvbrain_pattern_store_version
  - tvbrain_pattern_evictions_total, tvbrain_maintenance_sweeps_total

Sync:
  - tvbrain_sync_attempts_total: attempts by result
  - tvbrain_sync_duration_seconds
  - tvbrain_sync_patterns_exported_total, tvbrain_sync_patterns_merged_total
  - tvbrain_sync_payload_bytes: compressed payload size (up, down)
  - tvbrain_sync_last_success_timestamp
  - tvbrain_circuit_breaker_state, tvbrain_circuit_breaker_state_transitions_total

Persistence:
  - tvbrain_checkpoint_duration_seconds, tvbrain_checkpoint_errors_total
  - tvbrain_checkpoint_last_success_timestamp

HTTP and constellation:
  - tvbrain_http_requests_total, tvbrain_http_request_duration_seconds,
    tvbrain_http_requests_in_flight
  - tvbrain_constellation_deltas_received_total
  - tvbrain_constellation_federation_rounds_total and _duration_seconds
  - tvbrain_constellation_devices, tvbrain_constellation_global_patterns

# Usage

Components call the Record* helpers rather than touching collectors directly:

	start := time.Now()
	resp, err := engine.Recommend(ctx, req, snap)
	metrics.RecordRecommend(time.Since(start), "ok")

# Thread Safety

All collectors and helpers are safe for concurrent use.
*/
package metrics
