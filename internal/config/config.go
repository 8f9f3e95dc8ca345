// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package config

import (
	"time"
)

// Deployment profiles.
const (
	ProfileDefault     = "default"
	ProfileProduction  = "production"
	ProfileDevelopment = "development"
)

// Config holds the configuration of both binaries. The device daemon reads
// every section except Constellation; the constellation peer reads
// Constellation, Logging and Supervisor.
//
// Loading order:
//  1. Defaults for the profile selected by TVBRAIN_PROFILE
//  2. Optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment variables listed in envMappings
//
// Config is immutable after Load and safe for concurrent reads.
type Config struct {
	Profile       string              `koanf:"profile"`
	Device        DeviceConfig        `koanf:"device"`
	Store         StoreConfig         `koanf:"store"`
	Recommend     RecommendConfig     `koanf:"recommend"`
	Ingest        IngestConfig        `koanf:"ingest"`
	Sync          SyncConfig          `koanf:"sync"`
	Persistence   PersistenceConfig   `koanf:"persistence"`
	Metrics       MetricsConfig       `koanf:"metrics"`
	Logging       LoggingConfig       `koanf:"logging"`
	Constellation ConstellationConfig `koanf:"constellation"`
	Supervisor    SupervisorConfig    `koanf:"supervisor"`
}

// DeviceConfig identifies the device.
type DeviceConfig struct {
	// ID is the pseudonymous device id sent to the peer. A random id is
	// generated when empty.
	ID string `koanf:"id"`
}

// StoreConfig configures the pattern store.
type StoreConfig struct {
	Capacity              int           `koanf:"capacity"`
	HalfLife              time.Duration `koanf:"half_life"`
	LearningRate          float64       `koanf:"learning_rate"`
	StrongEvidenceSamples int64         `koanf:"strong_evidence_samples"`
	FederatedWeight       float64       `koanf:"federated_weight"`
	MinScore              float64       `koanf:"min_score"`

	// SweepInterval is how often decay and eviction run.
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// RecommendConfig configures the scoring engine.
type RecommendConfig struct {
	AffinityWeight      float64       `koanf:"affinity_weight"`
	ContextWeight       float64       `koanf:"context_weight"`
	RecencyWeight       float64       `koanf:"recency_weight"`
	FeatureBlend        float64       `koanf:"feature_blend"`
	EmbeddingDimensions int           `koanf:"embedding_dimensions"`
	MMRLambda           float64       `koanf:"mmr_lambda"`
	DefaultK            int           `koanf:"default_k"`
	MaxK                int           `koanf:"max_k"`
	Timeout             time.Duration `koanf:"timeout"`
	MinScore            float64       `koanf:"min_score"`
}

// IngestConfig configures the event ingestion pipeline.
type IngestConfig struct {
	QueueSize           int           `koanf:"queue_size"`
	CompletionThreshold float64       `koanf:"completion_threshold"`
	WatchWeight         float64       `koanf:"watch_weight"`
	EngagementWeight    float64       `koanf:"engagement_weight"`
	MinSampleWeight     float64       `koanf:"min_sample_weight"`
	ZapThreshold        time.Duration `koanf:"zap_threshold"`
	ResolveTimeout      time.Duration `koanf:"resolve_timeout"`
	MetadataCacheSize   int           `koanf:"metadata_cache_size"`
	MetadataCacheTTL    time.Duration `koanf:"metadata_cache_ttl"`
}

// SyncConfig configures reconciliation with the constellation peer.
type SyncConfig struct {
	// PeerURL is the constellation base URL. Empty disables sync.
	PeerURL string `koanf:"peer_url"`

	Interval       time.Duration `koanf:"interval"`
	SyncOnStart    bool          `koanf:"sync_on_start"`
	MinSamples     int64         `koanf:"min_samples"`
	MinScore       float64       `koanf:"min_score"`
	ExportBudget   int           `koanf:"export_budget"`
	Timeout        time.Duration `koanf:"timeout"`
	TrendFreshness time.Duration `koanf:"trend_freshness"`

	// TokenSecret enables bearer tokens; it must match the peer's.
	TokenSecret string `koanf:"token_secret"`

	// RateInterval spaces requests to the peer; TriggerInterval limits
	// manual sync triggers.
	RateInterval    time.Duration `koanf:"rate_interval"`
	TriggerInterval time.Duration `koanf:"trigger_interval"`
}

// PersistenceConfig configures on-device persistence.
type PersistenceConfig struct {
	Path               string        `koanf:"path"`
	InMemory           bool          `koanf:"in_memory"`
	SyncWrites         bool          `koanf:"sync_writes"`
	CheckpointInterval time.Duration `koanf:"checkpoint_interval"`
	GCInterval         time.Duration `koanf:"gc_interval"`
	Timeout            time.Duration `koanf:"timeout"`
}

// MetricsConfig configures the Prometheus endpoint on devices.
type MetricsConfig struct {
	Enabled    bool   `koanf:"enabled"`
	ListenAddr string `koanf:"listen_addr"`
}

// LoggingConfig configures zerolog.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// ConstellationConfig configures the aggregation peer.
type ConstellationConfig struct {
	ListenAddr        string        `koanf:"listen_addr"`
	Region            string        `koanf:"region"`
	MaxDevices        int           `koanf:"max_devices"`
	DeviceTTL         time.Duration `koanf:"device_ttl"`
	MinQuality        float64       `koanf:"min_quality"`
	MinSources        int           `koanf:"min_sources"`
	MaxGlobalPatterns int           `koanf:"max_global_patterns"`
	MaxTrends         int           `koanf:"max_trends"`
	Schedule          string        `koanf:"schedule"`
	TokenSecret       string        `koanf:"token_secret"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// SupervisorConfig configures the suture tree.
type SupervisorConfig struct {
	FailureBackoff  time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}
