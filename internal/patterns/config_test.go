// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package patterns

import (
	"strings"
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"zero capacity", func(c *Config) { c.Capacity = 0 }, "store.capacity"},
		{"zero half life", func(c *Config) { c.HalfLife = 0 }, "store.half_life"},
		{"learning rate above one", func(c *Config) { c.LearningRate = 1.5 }, "store.learning_rate"},
		{"zero learning rate", func(c *Config) { c.LearningRate = 0 }, "store.learning_rate"},
		{"zero strong evidence", func(c *Config) { c.StrongEvidenceSamples = 0 }, "store.strong_evidence_samples"},
		{"negative federated weight", func(c *Config) { c.FederatedWeight = -0.1 }, "store.federated_weight"},
		{"min score of one", func(c *Config) { c.MinScore = 1 }, "store.min_score"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestOrigin_TextRoundTrip(t *testing.T) {
	t.Parallel()

	for _, o := range []Origin{OriginLocal, OriginFederated} {
		text, err := o.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText() error = %v", err)
		}
		var got Origin
		if err := got.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q) error = %v", text, err)
		}
		if got != o {
			t.Errorf("round trip %v -> %v", o, got)
		}
	}

	var o Origin
	if err := o.UnmarshalText([]byte("satellite")); err == nil {
		t.Error("UnmarshalText() should reject unknown origins")
	}
}

func TestFeatureIDs(t *testing.T) {
	t.Parallel()

	if got := GenreID(" Sci-Fi "); got != "genre:sci-fi" {
		t.Errorf("GenreID() = %q", got)
	}
	if got := TagID("Space"); got != "tag:space" {
		t.Errorf("TagID() = %q", got)
	}
	if !IsFeature("genre:drama") || IsFeature("m1") {
		t.Error("IsFeature() misclassified ids")
	}
	if got := FeatureName("tag:space"); got != "space" {
		t.Errorf("FeatureName() = %q", got)
	}
	if got := FeatureName("m:1"); got != "m:1" {
		t.Errorf("FeatureName() on content id = %q", got)
	}

	p := Pattern{ID: "m1", Score: 0.5, Samples: 3, Features: []string{"tag:space", "genre:drama"}}
	if p.Genre() != "drama" {
		t.Errorf("Genre() = %q, want drama", p.Genre())
	}
	if p.Significance() <= 0 {
		t.Error("Significance() should be positive for scored, sampled patterns")
	}
}
