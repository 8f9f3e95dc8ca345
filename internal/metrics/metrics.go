// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Latency buckets for the recommendation hot path. The budget is 15ms, so
// resolution below a millisecond matters more than the default buckets allow.
var hotPathBuckets = []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .015, .025, .05, .1}

var (
	// Recommendation Metrics
	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tvbrain_recommend_duration_seconds",
			Help:    "Duration of recommendation requests in seconds",
			Buckets: hotPathBuckets,
		},
	)

	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tvbrain_recommend_requests_total",
			Help: "Total number of recommendation requests",
		},
		[]string{"result"}, // "ok", "empty", "safe_mode", "truncated", "error"
	)

	// Ingestion Metrics
	ObservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tvbrain_observations_total",
			Help: "Total number of viewing events submitted",
		},
		[]string{"result"}, // "async", "sync", "rejected"
	)

	FoldDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tvbrain_fold_duration_seconds",
			Help:    "Time to resolve metadata and apply one observation to the store",
			Buckets: prometheus.DefBuckets,
		},
	)

	FoldErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tvbrain_fold_errors_total",
			Help: "Total number of observation folds that failed to apply",
		},
	)

	IngestInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tvbrain_ingest_in_flight",
			Help: "Observations published but not yet applied",
		},
	)

	MetadataLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tvbrain_metadata_lookups_total",
			Help: "Total number of metadata resolver lookups",
		},
		[]string{"result"}, // "hit", "miss", "error"
	)

	// Pattern Store Metrics
	PatternStoreSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tvbrain_pattern_store_entries",
			Help: "Current number of entries in the pattern store",
		},
	)

	PatternStoreVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tvbrain_pattern_store_version",
			Help: "Current pattern store version",
		},
	)

	PatternEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tvbrain_pattern_evictions_total",
			Help: "Total number of patterns evicted for capacity",
		},
	)

	MaintenanceSweeps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tvbrain_maintenance_sweeps_total",
			Help: "Total number of decay and eviction sweeps",
		},
	)

	// Sync Metrics
	SyncAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tvbrain_sync_attempts_total",
			Help: "Total number of sync attempts",
		},
		[]string{"result"}, // "success", "transport", "conflict", "in_progress", "error"
	)

	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tvbrain_sync_duration_seconds",
			Help:    "Duration of sync attempts in seconds",
			Buckets: []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	SyncPatternsExported = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tvbrain_sync_patterns_exported_total",
			Help: "Total number of patterns exported in sync deltas",
		},
	)

	SyncPatternsMerged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tvbrain_sync_patterns_merged_total",
			Help: "Total number of federated patterns merged into the store",
		},
		[]string{"action"}, // "inserted", "updated", "skipped"
	)

	SyncPayloadBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tvbrain_sync_payload_bytes",
			Help:    "Compressed sync payload size in bytes",
			Buckets: []float64{128, 256, 512, 1024, 2048, 4096, 8192, 10240},
		},
		[]string{"direction"}, // "up", "down"
	)

	SyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tvbrain_sync_last_success_timestamp",
			Help: "Unix timestamp of the last successful sync",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tvbrain_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tvbrain_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tvbrain_circuit_breaker_requests_total",
			Help: "Requests through a circuit breaker by result (success, failure, rejected)",
		},
		[]string{"name", "result"},
	)

	// Persistence Metrics
	CheckpointDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tvbrain_checkpoint_duration_seconds",
			Help:    "Duration of pattern store checkpoints in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	CheckpointErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tvbrain_checkpoint_errors_total",
			Help: "Total number of failed checkpoints",
		},
	)

	CheckpointLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tvbrain_checkpoint_last_success_timestamp",
			Help: "Unix timestamp of the last successful checkpoint",
		},
	)

	// HTTP API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tvbrain_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tvbrain_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tvbrain_http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
	)

	// Constellation Metrics
	DeltasReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tvbrain_constellation_deltas_received_total",
			Help: "Total number of device deltas received",
		},
		[]string{"result"}, // "accepted", "rejected", "overload"
	)

	FederationRounds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tvbrain_constellation_federation_rounds_total",
			Help: "Total number of federation rounds",
		},
		[]string{"result"}, // "success", "error"
	)

	FederationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tvbrain_constellation_federation_duration_seconds",
			Help:    "Duration of federation rounds in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	FederationDevices = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tvbrain_constellation_devices",
			Help: "Number of devices contributing to the current global set",
		},
	)

	FederationPatterns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tvbrain_constellation_global_patterns",
			Help: "Number of patterns in the current global set",
		},
	)
)

// RecordRecommend records a recommendation request
func RecordRecommend(duration time.Duration, result string) {
	RecommendDuration.Observe(duration.Seconds())
	RecommendRequests.WithLabelValues(result).Inc()
}

// RecordObservation records the outcome of a submitted viewing event
func RecordObservation(result string) {
	ObservationsTotal.WithLabelValues(result).Inc()
}

// RecordFold records one applied observation
func RecordFold(duration time.Duration, err error) {
	FoldDuration.Observe(duration.Seconds())
	if err != nil {
		FoldErrors.Inc()
	}
}

// SetIngestInFlight updates the in-flight observation gauge
func SetIngestInFlight(n int) {
	IngestInFlight.Set(float64(n))
}

// RecordMetadataLookup records a metadata resolver lookup
func RecordMetadataLookup(result string) {
	MetadataLookups.WithLabelValues(result).Inc()
}

// UpdateStoreGauges sets the pattern store size and version
func UpdateStoreGauges(size int, version uint64) {
	PatternStoreSize.Set(float64(size))
	PatternStoreVersion.Set(float64(version))
}

// RecordMaintenanceSweep records a decay and eviction sweep
func RecordMaintenanceSweep(evicted int) {
	MaintenanceSweeps.Inc()
	if evicted > 0 {
		PatternEvictions.Add(float64(evicted))
	}
}

// SyncMergeCounts is the subset of a merge result recorded as metrics.
type SyncMergeCounts struct {
	Inserted int
	Updated  int
	Skipped  int
}

// RecordSyncAttempt records a sync attempt
func RecordSyncAttempt(duration time.Duration, result string, exported int, merged SyncMergeCounts) {
	SyncAttempts.WithLabelValues(result).Inc()
	SyncDuration.Observe(duration.Seconds())
	if exported > 0 {
		SyncPatternsExported.Add(float64(exported))
	}
	if merged.Inserted > 0 {
		SyncPatternsMerged.WithLabelValues("inserted").Add(float64(merged.Inserted))
	}
	if merged.Updated > 0 {
		SyncPatternsMerged.WithLabelValues("updated").Add(float64(merged.Updated))
	}
	if merged.Skipped > 0 {
		SyncPatternsMerged.WithLabelValues("skipped").Add(float64(merged.Skipped))
	}
	if result == "success" {
		SyncLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordSyncPayload records the compressed size of a sync payload
func RecordSyncPayload(direction string, size int) {
	SyncPayloadBytes.WithLabelValues(direction).Observe(float64(size))
}

// RecordCircuitBreakerTransition records a state change and the new state
func RecordCircuitBreakerTransition(name, from, to string, toValue float64) {
	CircuitBreakerState.WithLabelValues(name).Set(toValue)
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}

// RecordCircuitBreakerRequest counts one request through a breaker
func RecordCircuitBreakerRequest(name, result string) {
	CircuitBreakerRequests.WithLabelValues(name, result).Inc()
}

// RecordCheckpoint records a pattern store checkpoint
func RecordCheckpoint(duration time.Duration, err error) {
	CheckpointDuration.Observe(duration.Seconds())
	if err != nil {
		CheckpointErrors.Inc()
		return
	}
	CheckpointLastSuccess.Set(float64(time.Now().Unix()))
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordDeltaReceived records a device delta arriving at the constellation
func RecordDeltaReceived(result string) {
	DeltasReceived.WithLabelValues(result).Inc()
}

// RecordFederationRound records a federation round
func RecordFederationRound(duration time.Duration, devices, globalPatterns int, err error) {
	FederationDuration.Observe(duration.Seconds())
	if err != nil {
		FederationRounds.WithLabelValues("error").Inc()
		return
	}
	FederationRounds.WithLabelValues("success").Inc()
	FederationDevices.Set(float64(devices))
	FederationPatterns.Set(float64(globalPatterns))
}
