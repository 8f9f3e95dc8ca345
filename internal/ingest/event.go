// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package ingest

import (
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/tvbrain/internal/patterns"
	"github.com/tomtom215/tvbrain/internal/validation"
)

// ErrInvalidEvent matches every *ValidationError with errors.Is.
var ErrInvalidEvent = errors.New("invalid viewing event")

// ViewingEvent is one behavioural observation reported by the platform.
// Events are never persisted; only their folded effect on the store is.
type ViewingEvent struct {
	// ContentID identifies the watched item.
	ContentID string `json:"content_id" validate:"required,max=256"`

	// WatchPct is the watched fraction of the item.
	WatchPct float64 `json:"watch_pct" validate:"unit"`

	// Duration is how long the viewer stayed on the item.
	Duration time.Duration `json:"duration,omitempty" validate:"gte=0"`

	// Rating is an optional explicit rating from 1 to 5.
	Rating int `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`

	// Engagement is an optional platform engagement signal in [0, 1].
	Engagement *float64 `json:"engagement,omitempty" validate:"omitempty,unit"`

	// Genre is an optional genre reported with the event.
	Genre string `json:"genre,omitempty" validate:"max=64"`

	// Timestamp defaults to the pipeline clock when zero.
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Reason classifies a rejected event.
type Reason string

// Rejection reasons.
const (
	ReasonMissingField  Reason = "missing_field"
	ReasonOutOfRange    Reason = "out_of_range"
	ReasonInvalidFormat Reason = "invalid_format"
)

// ValidationError reports why an event was rejected.
type ValidationError struct {
	Field   string `json:"field"`
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
}

// Error implements error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid viewing event: %s", e.Message)
}

// Is reports whether target is ErrInvalidEvent.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidEvent
}

// Validate checks the event. The first failing field is reported.
//
//nolint:gocritic // hugeParam: event passed by value for immutability
func (ev ViewingEvent) Validate() error {
	if verr := validation.ValidateStruct(ev); verr != nil {
		first := verr.First()
		reason := ReasonOutOfRange
		if first.Missing() {
			reason = ReasonMissingField
		}
		return &ValidationError{
			Field:   first.Field(),
			Reason:  reason,
			Message: verr.Error(),
		}
	}
	if patterns.IsFeature(ev.ContentID) {
		return &ValidationError{
			Field:   "content_id",
			Reason:  ReasonInvalidFormat,
			Message: fmt.Sprintf("content_id %q uses a reserved feature prefix", ev.ContentID),
		}
	}
	return nil
}

// engagement returns the explicit signal, else the rating mapped onto
// [0, 1], else the watch fraction.
//
//nolint:gocritic // hugeParam: event passed by value for immutability
func (ev ViewingEvent) engagement() float64 {
	switch {
	case ev.Engagement != nil:
		return *ev.Engagement
	case ev.Rating > 0:
		return float64(ev.Rating-1) / 4
	default:
		return ev.WatchPct
	}
}

// Critique labels a watch fraction for logs.
func Critique(watch float64) string {
	switch {
	case watch > 0.9:
		return "Excellent"
	case watch > 0.7:
		return "Good"
	case watch > 0.3:
		return "Partial interest"
	default:
		return "Poor match"
	}
}

// fold is the store-ready form of one event.
type fold struct {
	ContentID string    `json:"content_id"`
	Reward    float64   `json:"reward"`
	Weight    float64   `json:"weight"`
	Genre     string    `json:"genre,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// newFold derives reward and sample weight from a validated event.
//
//nolint:gocritic // hugeParam: event passed by value for immutability
func newFold(ev ViewingEvent, cfg *Config, now time.Time) fold {
	reward := cfg.WatchWeight*ev.WatchPct + cfg.EngagementWeight*ev.engagement()

	weight := ev.WatchPct
	switch {
	case ev.WatchPct >= cfg.CompletionThreshold:
		weight = 1
	case ev.Duration > 0 && ev.Duration < cfg.ZapThreshold:
		weight = cfg.MinSampleWeight
	case weight < cfg.MinSampleWeight:
		weight = cfg.MinSampleWeight
	}

	ts := ev.Timestamp
	if ts.IsZero() {
		ts = now
	}

	return fold{
		ContentID: ev.ContentID,
		Reward:    clamp01(reward),
		Weight:    clamp01(weight),
		Genre:     ev.Genre,
		Timestamp: ts,
	}
}

func clamp01(v float64) float64 {
	if v != v || v < 0 { // NaN
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
