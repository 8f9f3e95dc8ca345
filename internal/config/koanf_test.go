// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate points CONFIG_PATH at a missing file and clears the variables
// these tests set, so nothing from the host leaks in.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	for env := range envMappings {
		name := strings.ToUpper(env)
		t.Setenv(name, "")
		_ = os.Unsetenv(name)
	}
}

func TestDefaultConfig_Profiles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		profile  string
		interval time.Duration
		format   string
		level    string
	}{
		{"", 600 * time.Second, "json", "info"},
		{ProfileDefault, 600 * time.Second, "json", "info"},
		{ProfileProduction, 900 * time.Second, "json", "info"},
		{ProfileDevelopment, 300 * time.Second, "console", "debug"},
	}

	for _, tt := range tests {
		t.Run("profile_"+tt.profile, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig(tt.profile)
			if cfg.Sync.Interval != tt.interval {
				t.Errorf("Sync.Interval = %v, want %v", cfg.Sync.Interval, tt.interval)
			}
			if cfg.Logging.Format != tt.format {
				t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, tt.format)
			}
			if cfg.Logging.Level != tt.level {
				t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, tt.level)
			}
			cfg.Device.ID = "dev-1"
			if err := cfg.Validate(); err != nil {
				t.Errorf("defaults do not validate: %v", err)
			}
		})
	}
}

func TestDefaultConfig_MatchesPackageDefaults(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig(ProfileDefault)
	if cfg.Store.Capacity != 10000 {
		t.Errorf("Store.Capacity = %d, want 10000", cfg.Store.Capacity)
	}
	if cfg.Store.HalfLife != 7*24*time.Hour {
		t.Errorf("Store.HalfLife = %v, want 168h", cfg.Store.HalfLife)
	}
	if cfg.Recommend.DefaultK != 20 || cfg.Recommend.MaxK != 100 {
		t.Errorf("Recommend K = %d/%d, want 20/100", cfg.Recommend.DefaultK, cfg.Recommend.MaxK)
	}
	if cfg.Sync.PeerURL != "" {
		t.Errorf("Sync.PeerURL = %q, want empty", cfg.Sync.PeerURL)
	}
	if cfg.Constellation.MinSources != 3 {
		t.Errorf("Constellation.MinSources = %d, want 3", cfg.Constellation.MinSources)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		env  string
		want string
	}{
		{"TVBRAIN_DEVICE_ID", "device.id"},
		{"CONSTELLATION_URL", "sync.peer_url"},
		{"SYNC_INTERVAL", "sync.interval"},
		{"store_capacity", "store.capacity"},
		{"METRICS_ADDR", "metrics.listen_addr"},
		{"CONSTELLATION_DISABLE_RATE_LIMIT", "constellation.rate_limit_disabled"},
		{"HOME", ""},
		{"PATH", ""},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.env); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("profile: default\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(ConfigPathEnvVar, path)
	if got := findConfigFile(); got != path {
		t.Errorf("findConfigFile() = %q, want %q", got, path)
	}

	t.Setenv(ConfigPathEnvVar, filepath.Join(dir, "nope.yaml"))
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			t.Skipf("default config %s exists on this host", p)
		}
	}
	if got := findConfigFile(); got != "" {
		t.Errorf("findConfigFile() = %q, want empty", got)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Profile != ProfileDefault {
		t.Errorf("Profile = %q, want default", cfg.Profile)
	}
	if cfg.Device.ID == "" {
		t.Error("device id was not generated")
	}
	if _, ok := cfg.TransportConfig(); ok {
		t.Error("sync should be disabled without a peer URL")
	}
}

func TestLoad_EnvVars(t *testing.T) {
	isolate(t)
	t.Setenv("TVBRAIN_PROFILE", "production")
	t.Setenv("TVBRAIN_DEVICE_ID", "living-room")
	t.Setenv("CONSTELLATION_URL", "https://peer.example")
	t.Setenv("STORE_CAPACITY", "500")
	t.Setenv("SYNC_INTERVAL", "2m")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Profile != ProfileProduction {
		t.Errorf("Profile = %q, want production", cfg.Profile)
	}
	if cfg.Device.ID != "living-room" {
		t.Errorf("Device.ID = %q", cfg.Device.ID)
	}
	if cfg.Store.Capacity != 500 {
		t.Errorf("Store.Capacity = %d, want 500", cfg.Store.Capacity)
	}
	if cfg.Sync.Interval != 2*time.Minute {
		t.Errorf("Sync.Interval = %v, want 2m", cfg.Sync.Interval)
	}
	if !cfg.Sync.SyncOnStart {
		t.Error("production profile should sync on start")
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}

	transport, ok := cfg.TransportConfig()
	if !ok {
		t.Fatal("sync should be enabled")
	}
	if transport.BaseURL != "https://peer.example" {
		t.Errorf("BaseURL = %q", transport.BaseURL)
	}
	if got := cfg.EngineConfig(); got.Sync.DeviceID != "living-room" || got.Store.Capacity != 500 {
		t.Errorf("engine config not built from sections: %+v", got.Sync)
	}
}

func TestLoad_FileAndEnvPrecedence(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "tvbrain.yaml")
	yaml := `
profile: development
device:
  id: bedroom
store:
  capacity: 2000
recommend:
  default_k: 10
logging:
  level: error
constellation:
  region: eu-west
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Device.ID != "bedroom" {
		t.Errorf("Device.ID = %q, want bedroom", cfg.Device.ID)
	}
	if cfg.Store.Capacity != 2000 {
		t.Errorf("Store.Capacity = %d, want 2000", cfg.Store.Capacity)
	}
	if cfg.Recommend.DefaultK != 10 {
		t.Errorf("Recommend.DefaultK = %d, want 10", cfg.Recommend.DefaultK)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("env should override file: Logging.Level = %q", cfg.Logging.Level)
	}
	if cfg.ConstellationConfig().Region != "eu-west" {
		t.Errorf("Region = %q", cfg.ConstellationConfig().Region)
	}
	// The profile key in the file does not change which defaults were
	// loaded, only the recorded profile.
	if cfg.Profile != ProfileDevelopment {
		t.Errorf("Profile = %q", cfg.Profile)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown profile", map[string]string{"TVBRAIN_PROFILE": "staging"}},
		{"bad device id", map[string]string{"TVBRAIN_DEVICE_ID": "has spaces"}},
		{"zero capacity", map[string]string{"STORE_CAPACITY": "0"}},
		{"bad peer url", map[string]string{"CONSTELLATION_URL": "ftp://peer"}},
		{"short peer secret", map[string]string{"CONSTELLATION_TOKEN_SECRET": "short"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}},
		{"bad schedule", map[string]string{"CONSTELLATION_SCHEDULE": "whenever"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("Load() succeeded, want error")
			}
		})
	}
}

func TestLoad_UnknownProfileError(t *testing.T) {
	isolate(t)
	t.Setenv(ProfileEnvVar, "staging")

	_, err := Load()
	if !errors.Is(err, ErrUnknownProfile) {
		t.Errorf("err = %v, want ErrUnknownProfile", err)
	}
}
