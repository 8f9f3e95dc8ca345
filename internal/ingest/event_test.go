// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package ingest

import (
	"errors"
	"math"
	"testing"
	"time"
)

func ptr(v float64) *float64 { return &v }

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestViewingEvent_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		event      ViewingEvent
		wantReason Reason
		wantField  string
	}{
		{
			name:  "valid minimal",
			event: ViewingEvent{ContentID: "m1", WatchPct: 0.5},
		},
		{
			name:  "valid full",
			event: ViewingEvent{ContentID: "m1", WatchPct: 1, Duration: time.Hour, Rating: 5, Engagement: ptr(0), Genre: "drama"},
		},
		{
			name:       "missing content id",
			event:      ViewingEvent{WatchPct: 0.5},
			wantReason: ReasonMissingField,
			wantField:  "content_id",
		},
		{
			name:       "watch above one",
			event:      ViewingEvent{ContentID: "m1", WatchPct: 1.5},
			wantReason: ReasonOutOfRange,
			wantField:  "watch_pct",
		},
		{
			name:       "watch negative",
			event:      ViewingEvent{ContentID: "m1", WatchPct: -0.1},
			wantReason: ReasonOutOfRange,
			wantField:  "watch_pct",
		},
		{
			name:       "watch NaN",
			event:      ViewingEvent{ContentID: "m1", WatchPct: math.NaN()},
			wantReason: ReasonOutOfRange,
			wantField:  "watch_pct",
		},
		{
			name:       "rating above five",
			event:      ViewingEvent{ContentID: "m1", WatchPct: 0.5, Rating: 6},
			wantReason: ReasonOutOfRange,
			wantField:  "rating",
		},
		{
			name:       "engagement out of range",
			event:      ViewingEvent{ContentID: "m1", WatchPct: 0.5, Engagement: ptr(1.2)},
			wantReason: ReasonOutOfRange,
			wantField:  "engagement",
		},
		{
			name:       "negative duration",
			event:      ViewingEvent{ContentID: "m1", WatchPct: 0.5, Duration: -time.Second},
			wantReason: ReasonOutOfRange,
			wantField:  "duration",
		},
		{
			name:       "reserved prefix",
			event:      ViewingEvent{ContentID: "genre:action", WatchPct: 0.5},
			wantReason: ReasonInvalidFormat,
			wantField:  "content_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.event.Validate()
			if tt.wantReason == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if verr.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", verr.Reason, tt.wantReason)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
			}
			if !errors.Is(err, ErrInvalidEvent) {
				t.Error("errors.Is(err, ErrInvalidEvent) = false")
			}
		})
	}
}

func TestNewFold_RewardAndWeight(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	now := time.Date(2026, 1, 15, 20, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		event      ViewingEvent
		wantReward float64
		wantWeight float64
	}{
		{
			name:       "completion uses watch as engagement",
			event:      ViewingEvent{ContentID: "m1", WatchPct: 0.95},
			wantReward: 0.95,
			wantWeight: 1,
		},
		{
			name:       "abandoned view",
			event:      ViewingEvent{ContentID: "m1", WatchPct: 0.1},
			wantReward: 0.1,
			wantWeight: 0.1,
		},
		{
			name:       "rating maps to engagement",
			event:      ViewingEvent{ContentID: "m1", WatchPct: 0.5, Rating: 5},
			wantReward: 0.7*0.5 + 0.3*1,
			wantWeight: 0.5,
		},
		{
			name:       "lowest rating",
			event:      ViewingEvent{ContentID: "m1", WatchPct: 0.5, Rating: 1},
			wantReward: 0.35,
			wantWeight: 0.5,
		},
		{
			name:       "explicit engagement wins over rating",
			event:      ViewingEvent{ContentID: "m1", WatchPct: 0.5, Rating: 5, Engagement: ptr(0)},
			wantReward: 0.35,
			wantWeight: 0.5,
		},
		{
			name:       "zero watch floors weight",
			event:      ViewingEvent{ContentID: "m1", WatchPct: 0},
			wantReward: 0,
			wantWeight: 0.1,
		},
		{
			name:       "zap counts at minimum weight",
			event:      ViewingEvent{ContentID: "m1", WatchPct: 0.6, Duration: 3 * time.Second},
			wantReward: 0.6,
			wantWeight: 0.1,
		},
		{
			name:       "completion is not a zap",
			event:      ViewingEvent{ContentID: "m1", WatchPct: 0.95, Duration: 3 * time.Second},
			wantReward: 0.95,
			wantWeight: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFold(tt.event, cfg, now)
			if !approxEqual(f.Reward, tt.wantReward) {
				t.Errorf("Reward = %v, want %v", f.Reward, tt.wantReward)
			}
			if !approxEqual(f.Weight, tt.wantWeight) {
				t.Errorf("Weight = %v, want %v", f.Weight, tt.wantWeight)
			}
			if !f.Timestamp.Equal(now) {
				t.Errorf("Timestamp = %v, want %v", f.Timestamp, now)
			}
		})
	}
}

func TestNewFold_KeepsEventTimestamp(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	f := newFold(ViewingEvent{ContentID: "m1", WatchPct: 0.5, Timestamp: ts}, DefaultConfig(), ts.Add(time.Hour))
	if !f.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", f.Timestamp, ts)
	}
}

func TestCritique(t *testing.T) {
	t.Parallel()

	tests := []struct {
		watch float64
		want  string
	}{
		{0.95, "Excellent"},
		{0.9, "Good"},
		{0.75, "Good"},
		{0.7, "Partial interest"},
		{0.31, "Partial interest"},
		{0.3, "Poor match"},
		{0, "Poor match"},
	}

	for _, tt := range tests {
		if got := Critique(tt.watch); got != tt.want {
			t.Errorf("Critique(%v) = %q, want %q", tt.watch, got, tt.want)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "zero queue", mutate: func(c *Config) { c.QueueSize = 0 }, wantErr: true},
		{name: "threshold above one", mutate: func(c *Config) { c.CompletionThreshold = 1.1 }, wantErr: true},
		{name: "negative weight", mutate: func(c *Config) { c.WatchWeight = -1 }, wantErr: true},
		{name: "both weights zero", mutate: func(c *Config) { c.WatchWeight, c.EngagementWeight = 0, 0 }, wantErr: true},
		{name: "zero resolve timeout", mutate: func(c *Config) { c.ResolveTimeout = 0 }, wantErr: true},
		{name: "empty topic", mutate: func(c *Config) { c.Topic = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
