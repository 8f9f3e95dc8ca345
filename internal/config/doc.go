// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

/*
Package config loads the configuration of the tvbrain device daemon and the
constellation peer.

# Configuration Sources

Values are layered with koanf, later layers winning:

 1. Profile defaults (TVBRAIN_PROFILE: default, production, development)
 2. YAML file at CONFIG_PATH, or the first of DefaultConfigPaths that exists
 3. Environment variables listed in envMappings

Unlisted environment variables are ignored, so the process environment
cannot leak into unrelated keys.

# Profiles

  - default: sync every 10 minutes, JSON logs at info
  - production: sync every 15 minutes and once at start
  - development: sync every 5 minutes, console logs at debug, local data
    directory, single-source federation rounds every 10 seconds

# Environment Variables

Device:
  - TVBRAIN_DEVICE_ID: pseudonymous device id (random per run when unset)
  - CONSTELLATION_URL: peer base URL; empty disables sync
  - SYNC_INTERVAL, SYNC_TIMEOUT, SYNC_TOKEN_SECRET
  - STORE_CAPACITY, STORE_HALF_LIFE, STORE_SWEEP_INTERVAL
  - RECOMMEND_DEFAULT_K, RECOMMEND_MAX_K, RECOMMEND_TIMEOUT, RECOMMEND_MMR_LAMBDA
  - PERSIST_PATH, PERSIST_IN_MEMORY, CHECKPOINT_INTERVAL
  - METRICS_ENABLED, METRICS_ADDR

Constellation peer:
  - CONSTELLATION_ADDR, CONSTELLATION_REGION, CONSTELLATION_SCHEDULE
  - CONSTELLATION_MIN_SOURCES, CONSTELLATION_MAX_DEVICES
  - CONSTELLATION_TOKEN_SECRET (at least 32 bytes when set)
  - CONSTELLATION_RATE_LIMIT, CONSTELLATION_RATE_WINDOW

Shared:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER, SHUTDOWN_TIMEOUT

# Usage

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal().Err(err).Msg("invalid configuration")
	}
	eng, err := engine.New(cfg.EngineConfig(), opts)

The builder methods (EngineConfig, PersistConfig, TransportConfig, ...)
translate the flat sections into the option types of each package.
*/
package config
