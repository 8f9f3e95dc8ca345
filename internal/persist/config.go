// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package persist

import (
	"time"
)

// Config holds the badger store settings.
type Config struct {
	// Path is the directory badger stores its files in. Ignored when
	// InMemory is set.
	Path string `koanf:"path"`

	// InMemory keeps everything in RAM. Used by tests and by devices
	// without writable storage; nothing survives a restart.
	InMemory bool `koanf:"in_memory"`

	// SyncWrites forces fsync on every commit.
	SyncWrites bool `koanf:"sync_writes"`

	// Compression enables Snappy block compression.
	Compression bool `koanf:"compression"`

	// MemTableSize and ValueLogFileSize size badger's files. TV devices
	// have little flash, so the defaults are far below badger's.
	MemTableSize     int64 `koanf:"memtable_size"`
	ValueLogFileSize int64 `koanf:"vlog_size"`
	BlockCacheSize   int64 `koanf:"block_cache_size"`

	// NumCompactors is the number of compaction workers (badger needs 2).
	NumCompactors int `koanf:"num_compactors"`

	// GCRatio is the value log garbage collection threshold.
	GCRatio float64 `koanf:"gc_ratio"`

	// CloseTimeout bounds Close.
	CloseTimeout time.Duration `koanf:"close_timeout"`
}

// DefaultConfig returns settings sized for a TV device.
func DefaultConfig() Config {
	return Config{
		Path:             "/data/tvbrain",
		SyncWrites:       true,
		Compression:      true,
		MemTableSize:     4 * 1024 * 1024,
		ValueLogFileSize: 16 * 1024 * 1024,
		BlockCacheSize:   8 * 1024 * 1024,
		NumCompactors:    2,
		GCRatio:          0.5,
		CloseTimeout:     10 * time.Second,
	}
}

// Validate checks that the configuration is usable.
//
//nolint:gocritic // value receiver matches DefaultConfig usage
func (c Config) Validate() error {
	if !c.InMemory && c.Path == "" {
		return &ConfigError{Field: "Path", Message: "path is required unless in_memory is set"}
	}
	if c.MemTableSize < 1024*1024 {
		return &ConfigError{Field: "MemTableSize", Message: "must be at least 1MB"}
	}
	if c.ValueLogFileSize < 1024*1024 {
		return &ConfigError{Field: "ValueLogFileSize", Message: "must be at least 1MB"}
	}
	if c.NumCompactors < 2 {
		return &ConfigError{Field: "NumCompactors", Message: "must be at least 2 (BadgerDB requirement)"}
	}
	if c.GCRatio <= 0 || c.GCRatio >= 1 {
		return &ConfigError{Field: "GCRatio", Message: "must be in (0, 1)"}
	}
	if c.CloseTimeout <= 0 {
		return &ConfigError{Field: "CloseTimeout", Message: "must be positive"}
	}
	return nil
}

// ConfigError reports an invalid persistence setting.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "persist config error: " + e.Field + ": " + e.Message
}
