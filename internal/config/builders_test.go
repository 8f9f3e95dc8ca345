// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package config

import (
	"testing"
	"time"
)

func testConfig() *Config {
	cfg := defaultConfig(ProfileDefault)
	cfg.Device.ID = "dev-1"
	return cfg
}

func TestEngineConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Recommend.MMRLambda = 0.7
	cfg.Recommend.MinScore = 0.2
	cfg.Ingest.QueueSize = 64
	cfg.Sync.ExportBudget = 8
	cfg.Persistence.Timeout = 3 * time.Second

	ec := cfg.EngineConfig()
	if err := ec.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if ec.Recommend.Diversity.MMRLambda != 0.7 {
		t.Errorf("MMRLambda = %v", ec.Recommend.Diversity.MMRLambda)
	}
	if ec.Recommend.Limits.MinScore != 0.2 {
		t.Errorf("MinScore = %v", ec.Recommend.Limits.MinScore)
	}
	if ec.Ingest.QueueSize != 64 {
		t.Errorf("QueueSize = %d", ec.Ingest.QueueSize)
	}
	if ec.Sync.ExportBudget != 8 || ec.Sync.DeviceID != "dev-1" {
		t.Errorf("Sync = %+v", ec.Sync)
	}
	if ec.PersistTimeout != 3*time.Second {
		t.Errorf("PersistTimeout = %v", ec.PersistTimeout)
	}
	if ec.Store.Now == nil {
		t.Error("store clock must keep its default")
	}
}

func TestCheckpointServiceConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cp := cfg.CheckpointServiceConfig()
	if cp.Interval != 30*time.Second || cp.GCInterval != 10*time.Minute {
		t.Errorf("CheckpointServiceConfig = %+v", cp)
	}

	cfg.Persistence.InMemory = true
	if got := cfg.CheckpointServiceConfig().GCInterval; got != 0 {
		t.Errorf("in-memory GCInterval = %v, want 0", got)
	}
}

func TestSyncServiceAndTreeConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Sync.SyncOnStart = true
	cfg.Sync.Interval = time.Minute

	sc := cfg.SyncServiceConfig()
	if !sc.SyncOnStart || sc.Interval != time.Minute || sc.TriggerBurst != 2 {
		t.Errorf("SyncServiceConfig = %+v", sc)
	}

	tc := cfg.TreeConfig("constellation")
	if tc.Name != "constellation" || tc.ShutdownTimeout != 10*time.Second {
		t.Errorf("TreeConfig = %+v", tc)
	}

	lc := cfg.LoggingConfig("tvbrain")
	if lc.Service != "tvbrain" || lc.Format != "json" || !lc.Timestamp {
		t.Errorf("LoggingConfig = %+v", lc)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty device id", func(c *Config) { c.Device.ID = "" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"zero sweep", func(c *Config) { c.Store.SweepInterval = 0 }},
		{"zero sync interval", func(c *Config) { c.Sync.Interval = 0 }},
		{"zero checkpoint", func(c *Config) { c.Persistence.CheckpointInterval = 0 }},
		{"metrics without addr", func(c *Config) { c.Metrics.ListenAddr = "" }},
		{"bad k", func(c *Config) { c.Recommend.DefaultK = 500 }},
		{"recommend min score of one", func(c *Config) { c.Recommend.MinScore = 1 }},
		{"no persist path", func(c *Config) { c.Persistence.Path = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := testConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
