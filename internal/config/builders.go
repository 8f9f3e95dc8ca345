// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package config

import (
	"github.com/tomtom215/tvbrain/internal/constellation"
	"github.com/tomtom215/tvbrain/internal/engine"
	"github.com/tomtom215/tvbrain/internal/logging"
	"github.com/tomtom215/tvbrain/internal/persist"
	"github.com/tomtom215/tvbrain/internal/supervisor"
	"github.com/tomtom215/tvbrain/internal/supervisor/services"
	tvsync "github.com/tomtom215/tvbrain/internal/sync"
)

// EngineConfig builds the engine configuration. Settings not exposed in
// Config keep the package defaults.
func (c *Config) EngineConfig() *engine.Config {
	cfg := engine.DefaultConfig(c.Device.ID)

	cfg.Store.Capacity = c.Store.Capacity
	cfg.Store.HalfLife = c.Store.HalfLife
	cfg.Store.LearningRate = c.Store.LearningRate
	cfg.Store.StrongEvidenceSamples = c.Store.StrongEvidenceSamples
	cfg.Store.FederatedWeight = c.Store.FederatedWeight
	cfg.Store.MinScore = c.Store.MinScore

	cfg.Recommend.Weights.Affinity = c.Recommend.AffinityWeight
	cfg.Recommend.Weights.Context = c.Recommend.ContextWeight
	cfg.Recommend.Weights.Recency = c.Recommend.RecencyWeight
	cfg.Recommend.FeatureBlend = c.Recommend.FeatureBlend
	cfg.Recommend.Embedding.Dimensions = c.Recommend.EmbeddingDimensions
	cfg.Recommend.Diversity.MMRLambda = c.Recommend.MMRLambda
	cfg.Recommend.Limits.DefaultK = c.Recommend.DefaultK
	cfg.Recommend.Limits.MaxK = c.Recommend.MaxK
	cfg.Recommend.Limits.Timeout = c.Recommend.Timeout
	cfg.Recommend.Limits.MinScore = c.Recommend.MinScore

	cfg.Ingest.QueueSize = c.Ingest.QueueSize
	cfg.Ingest.CompletionThreshold = c.Ingest.CompletionThreshold
	cfg.Ingest.WatchWeight = c.Ingest.WatchWeight
	cfg.Ingest.EngagementWeight = c.Ingest.EngagementWeight
	cfg.Ingest.MinSampleWeight = c.Ingest.MinSampleWeight
	cfg.Ingest.ZapThreshold = c.Ingest.ZapThreshold
	cfg.Ingest.ResolveTimeout = c.Ingest.ResolveTimeout
	cfg.Ingest.MetadataCacheSize = c.Ingest.MetadataCacheSize
	cfg.Ingest.MetadataCacheTTL = c.Ingest.MetadataCacheTTL

	cfg.Sync.MinSamples = c.Sync.MinSamples
	cfg.Sync.MinScore = c.Sync.MinScore
	cfg.Sync.ExportBudget = c.Sync.ExportBudget
	cfg.Sync.Timeout = c.Sync.Timeout
	cfg.Sync.TrendFreshness = c.Sync.TrendFreshness

	if c.Persistence.Timeout > 0 {
		cfg.PersistTimeout = c.Persistence.Timeout
	}
	return cfg
}

// PersistConfig builds the badger configuration.
func (c *Config) PersistConfig() persist.Config {
	cfg := persist.DefaultConfig()
	cfg.Path = c.Persistence.Path
	cfg.InMemory = c.Persistence.InMemory
	cfg.SyncWrites = c.Persistence.SyncWrites
	return cfg
}

// TransportConfig builds the HTTP transport configuration. ok is false
// when no peer URL is configured and sync is disabled.
func (c *Config) TransportConfig() (cfg tvsync.TransportConfig, ok bool) {
	if c.Sync.PeerURL == "" {
		return tvsync.TransportConfig{}, false
	}
	cfg = tvsync.DefaultTransportConfig()
	cfg.BaseURL = c.Sync.PeerURL
	cfg.TokenSecret = c.Sync.TokenSecret
	cfg.RateInterval = c.Sync.RateInterval
	if c.Sync.Timeout > 0 {
		cfg.RequestTimeout = c.Sync.Timeout
	}
	return cfg, true
}

// SyncServiceConfig builds the sync scheduler configuration.
func (c *Config) SyncServiceConfig() services.SyncServiceConfig {
	cfg := services.DefaultSyncServiceConfig()
	cfg.Interval = c.Sync.Interval
	cfg.SyncOnStart = c.Sync.SyncOnStart
	cfg.TriggerInterval = c.Sync.TriggerInterval
	return cfg
}

// CheckpointServiceConfig builds the checkpoint scheduler configuration.
// GC is disabled for in-memory stores.
func (c *Config) CheckpointServiceConfig() services.CheckpointServiceConfig {
	cfg := services.CheckpointServiceConfig{
		Interval:   c.Persistence.CheckpointInterval,
		GCInterval: c.Persistence.GCInterval,
	}
	if c.Persistence.InMemory {
		cfg.GCInterval = 0
	}
	return cfg
}

// ConstellationConfig builds the peer configuration.
func (c *Config) ConstellationConfig() *constellation.Config {
	cfg := constellation.DefaultConfig()
	cfg.Region = c.Constellation.Region
	cfg.MaxDevices = c.Constellation.MaxDevices
	cfg.DeviceTTL = c.Constellation.DeviceTTL
	cfg.MinQuality = c.Constellation.MinQuality
	cfg.MinSources = c.Constellation.MinSources
	cfg.MaxGlobalPatterns = c.Constellation.MaxGlobalPatterns
	cfg.MaxTrends = c.Constellation.MaxTrends
	cfg.Schedule = c.Constellation.Schedule
	cfg.TokenSecret = c.Constellation.TokenSecret
	cfg.RateLimitRequests = c.Constellation.RateLimitRequests
	cfg.RateLimitWindow = c.Constellation.RateLimitWindow
	cfg.RateLimitDisabled = c.Constellation.RateLimitDisabled
	return cfg
}

// LoggingConfig builds the zerolog configuration for service.
func (c *Config) LoggingConfig(service string) logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Logging.Level
	cfg.Format = c.Logging.Format
	cfg.Caller = c.Logging.Caller
	cfg.Service = service
	return cfg
}

// TreeConfig builds the supervisor tree configuration for name.
func (c *Config) TreeConfig(name string) supervisor.TreeConfig {
	cfg := supervisor.DefaultTreeConfig()
	cfg.Name = name
	if c.Supervisor.FailureBackoff > 0 {
		cfg.FailureBackoff = c.Supervisor.FailureBackoff
	}
	cfg.ShutdownTimeout = c.Supervisor.ShutdownTimeout
	return cfg
}
