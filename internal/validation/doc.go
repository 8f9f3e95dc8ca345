// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

// Package validation provides struct validation using go-playground/validator v10.
//
// It wraps a thread-safe singleton validator with the custom rules shared by
// the engine and the constellation peer, and translates failures into
// human-readable messages keyed by the JSON field name.
//
// # Custom Rules
//
//   - unit: float in [0, 1] and not NaN (watch fractions, scores)
//   - device_id: 1-128 characters of [A-Za-z0-9._-]
//
// # Usage
//
//	type ViewingEvent struct {
//	    ContentID string  `json:"content_id" validate:"required"`
//	    WatchPct  float64 `json:"watch_pct" validate:"unit"`
//	}
//
//	if verr := validation.ValidateStruct(&ev); verr != nil {
//	    for _, fe := range verr.Errors() {
//	        log.Printf("%s: %s", fe.Field(), fe.Error())
//	    }
//	}
//
// HTTP handlers convert failures with ToAPIError to a VALIDATION_ERROR body.
package validation
