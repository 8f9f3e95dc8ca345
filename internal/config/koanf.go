// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/tvbrain/internal/constellation"
	"github.com/tomtom215/tvbrain/internal/ingest"
	"github.com/tomtom215/tvbrain/internal/patterns"
	"github.com/tomtom215/tvbrain/internal/persist"
	"github.com/tomtom215/tvbrain/internal/recommend"
	tvsync "github.com/tomtom215/tvbrain/internal/sync"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"tvbrain.yaml",
	"tvbrain.yml",
	"/etc/tvbrain/config.yaml",
	"/etc/tvbrain/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// ProfileEnvVar selects the deployment profile.
const ProfileEnvVar = "TVBRAIN_PROFILE"

// defaultConfig returns the defaults for profile. Unknown profiles are
// rejected later by Validate.
func defaultConfig(profile string) *Config {
	store := patterns.DefaultConfig()
	rec := recommend.DefaultConfig()
	ing := ingest.DefaultConfig()
	syn := tvsync.DefaultConfig()
	transport := tvsync.DefaultTransportConfig()
	per := persist.DefaultConfig()
	peer := constellation.DefaultConfig()

	if profile == "" {
		profile = ProfileDefault
	}

	cfg := &Config{
		Profile: profile,
		Store: StoreConfig{
			Capacity:              store.Capacity,
			HalfLife:              store.HalfLife,
			LearningRate:          store.LearningRate,
			StrongEvidenceSamples: store.StrongEvidenceSamples,
			FederatedWeight:       store.FederatedWeight,
			MinScore:              store.MinScore,
			SweepInterval:         time.Minute,
		},
		Recommend: RecommendConfig{
			AffinityWeight:      rec.Weights.Affinity,
			ContextWeight:       rec.Weights.Context,
			RecencyWeight:       rec.Weights.Recency,
			FeatureBlend:        rec.FeatureBlend,
			EmbeddingDimensions: rec.Embedding.Dimensions,
			MMRLambda:           rec.Diversity.MMRLambda,
			DefaultK:            rec.Limits.DefaultK,
			MaxK:                rec.Limits.MaxK,
			Timeout:             rec.Limits.Timeout,
			MinScore:            rec.Limits.MinScore,
		},
		Ingest: IngestConfig{
			QueueSize:           ing.QueueSize,
			CompletionThreshold: ing.CompletionThreshold,
			WatchWeight:         ing.WatchWeight,
			EngagementWeight:    ing.EngagementWeight,
			MinSampleWeight:     ing.MinSampleWeight,
			ZapThreshold:        ing.ZapThreshold,
			ResolveTimeout:      ing.ResolveTimeout,
			MetadataCacheSize:   ing.MetadataCacheSize,
			MetadataCacheTTL:    ing.MetadataCacheTTL,
		},
		Sync: SyncConfig{
			Interval:        600 * time.Second,
			MinSamples:      syn.MinSamples,
			MinScore:        syn.MinScore,
			ExportBudget:    syn.ExportBudget,
			Timeout:         syn.Timeout,
			TrendFreshness:  syn.TrendFreshness,
			RateInterval:    transport.RateInterval,
			TriggerInterval: time.Minute,
		},
		Persistence: PersistenceConfig{
			Path:               per.Path,
			SyncWrites:         per.SyncWrites,
			CheckpointInterval: 30 * time.Second,
			GCInterval:         10 * time.Minute,
			Timeout:            10 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:    true,
			ListenAddr: "127.0.0.1:9464",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Constellation: ConstellationConfig{
			ListenAddr:        ":8080",
			Region:            peer.Region,
			MaxDevices:        peer.MaxDevices,
			DeviceTTL:         peer.DeviceTTL,
			MinQuality:        peer.MinQuality,
			MinSources:        peer.MinSources,
			MaxGlobalPatterns: peer.MaxGlobalPatterns,
			MaxTrends:         peer.MaxTrends,
			Schedule:          peer.Schedule,
			RateLimitRequests: peer.RateLimitRequests,
			RateLimitWindow:   peer.RateLimitWindow,
		},
		Supervisor: SupervisorConfig{
			FailureBackoff:  15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
	}

	switch profile {
	case ProfileProduction:
		cfg.Sync.Interval = 900 * time.Second
		cfg.Sync.SyncOnStart = true
	case ProfileDevelopment:
		cfg.Sync.Interval = 300 * time.Second
		cfg.Sync.RateInterval = time.Second
		cfg.Sync.TriggerInterval = time.Second
		cfg.Persistence.Path = "./data/tvbrain"
		cfg.Persistence.SyncWrites = false
		cfg.Persistence.CheckpointInterval = 10 * time.Second
		cfg.Metrics.ListenAddr = ":9464"
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "console"
		cfg.Logging.Caller = true
		cfg.Constellation.MinSources = 1
		cfg.Constellation.Schedule = "@every 10s"
		cfg.Constellation.RateLimitDisabled = true
	}
	return cfg
}

// Load reads the configuration from defaults, an optional YAML file and
// the environment, then validates it. Precedence: env > file > defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: profile defaults
	defaults := defaultConfig(os.Getenv(ProfileEnvVar))
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// Devices without a provisioned id get a random one for this run.
	if cfg.Device.ID == "" {
		cfg.Device.ID = uuid.NewString()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns CONFIG_PATH if it exists, else the first default
// path that exists, else "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps environment variable names (lower case) to koanf paths.
// Variables not listed are ignored.
var envMappings = map[string]string{
	"tvbrain_profile":   "profile",
	"tvbrain_device_id": "device.id",

	// Pattern store
	"store_capacity":         "store.capacity",
	"store_half_life":        "store.half_life",
	"store_learning_rate":    "store.learning_rate",
	"store_federated_weight": "store.federated_weight",
	"store_min_score":        "store.min_score",
	"store_sweep_interval":   "store.sweep_interval",

	// Scoring
	"recommend_affinity_weight": "recommend.affinity_weight",
	"recommend_context_weight":  "recommend.context_weight",
	"recommend_recency_weight":  "recommend.recency_weight",
	"recommend_feature_blend":   "recommend.feature_blend",
	"recommend_mmr_lambda":      "recommend.mmr_lambda",
	"recommend_default_k":       "recommend.default_k",
	"recommend_max_k":           "recommend.max_k",
	"recommend_timeout":         "recommend.timeout",
	"recommend_min_score":       "recommend.min_score",

	// Ingestion
	"ingest_queue_size":    "ingest.queue_size",
	"ingest_zap_threshold": "ingest.zap_threshold",
	"metadata_cache_size":  "ingest.metadata_cache_size",
	"metadata_cache_ttl":   "ingest.metadata_cache_ttl",

	// Sync
	"constellation_url":     "sync.peer_url",
	"sync_interval":         "sync.interval",
	"sync_on_start":         "sync.sync_on_start",
	"sync_min_samples":      "sync.min_samples",
	"sync_min_score":        "sync.min_score",
	"sync_export_budget":    "sync.export_budget",
	"sync_timeout":          "sync.timeout",
	"sync_trend_freshness":  "sync.trend_freshness",
	"sync_token_secret":     "sync.token_secret",
	"sync_rate_interval":    "sync.rate_interval",
	"sync_trigger_interval": "sync.trigger_interval",

	// Persistence
	"persist_path":        "persistence.path",
	"persist_in_memory":   "persistence.in_memory",
	"persist_sync_writes": "persistence.sync_writes",
	"checkpoint_interval": "persistence.checkpoint_interval",
	"persist_gc_interval": "persistence.gc_interval",
	"persist_timeout":     "persistence.timeout",

	// Metrics
	"metrics_enabled": "metrics.enabled",
	"metrics_addr":    "metrics.listen_addr",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Constellation peer
	"constellation_addr":               "constellation.listen_addr",
	"constellation_region":             "constellation.region",
	"constellation_max_devices":        "constellation.max_devices",
	"constellation_device_ttl":         "constellation.device_ttl",
	"constellation_min_quality":        "constellation.min_quality",
	"constellation_min_sources":        "constellation.min_sources",
	"constellation_max_patterns":       "constellation.max_global_patterns",
	"constellation_max_trends":         "constellation.max_trends",
	"constellation_schedule":           "constellation.schedule",
	"constellation_token_secret":       "constellation.token_secret",
	"constellation_rate_limit":         "constellation.rate_limit_requests",
	"constellation_rate_window":        "constellation.rate_limit_window",
	"constellation_disable_rate_limit": "constellation.rate_limit_disabled",

	// Supervisor
	"supervisor_failure_backoff": "supervisor.failure_backoff",
	"shutdown_timeout":           "supervisor.shutdown_timeout",
}

// envTransformFunc maps an environment variable name to its koanf path,
// e.g. SYNC_INTERVAL -> sync.interval. Unmapped names return "" and are
// skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
