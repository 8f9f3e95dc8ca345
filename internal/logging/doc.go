// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

// Package logging provides the zerolog-based structured logging used by the
// device daemon and the constellation server.
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:   "info",
//	    Format:  "json",
//	    Service: "tvbrain",
//	})
//
//	logging.Info().Str("profile", "production").Msg("starting")
//	logging.Ctx(r.Context()).Warn().Err(err).Msg("Submit delta failed")
//
// Components receive a zerolog.Logger by value and add a component field:
//
//	logger = logger.With().Str("component", "sync").Logger()
//
// # Context
//
// The constellation server attaches a request id to every request and the
// sanitized device id once a delta is decoded. Ctx(ctx) returns the global
// logger carrying whichever of them are present.
//
// # slog Bridge
//
// SlogHandler routes log/slog output from suture (via sutureslog) and
// watermill into zerolog.
//
// # Privacy
//
// Content identifiers describe what a household watches. They are logged at
// debug level only. Device ids and tokens go through SanitizeDeviceID and
// SanitizeToken before they are attached to entries.
//
// # Configuration
//
// The config package maps LOG_LEVEL, LOG_FORMAT and LOG_CALLER onto Config.
package logging
