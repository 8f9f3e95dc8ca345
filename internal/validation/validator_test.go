// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package validation

import (
	"math"
	"strings"
	"testing"
)

type testEvent struct {
	ContentID string   `json:"content_id" validate:"required,max=256"`
	WatchPct  float64  `json:"watch_pct" validate:"unit"`
	Rating    int      `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	DeviceID  string   `json:"device_id,omitempty" validate:"omitempty,device_id"`
	Mode      string   `json:"mode,omitempty" validate:"omitempty,oneof=live vod"`
	Score     *float64 `json:"score,omitempty" validate:"omitempty,unit"`
}

func TestGetValidator_Singleton(t *testing.T) {
	t.Parallel()

	v1 := GetValidator()
	v2 := GetValidator()
	if v1 == nil || v1 != v2 {
		t.Error("GetValidator() should return one non-nil instance")
	}
}

func TestValidateStruct(t *testing.T) {
	t.Parallel()

	half := 0.5
	tooHigh := 1.5

	tests := []struct {
		name        string
		input       testEvent
		wantField   string
		wantTag     string
		wantMissing bool
		wantMsg     string
	}{
		{name: "valid", input: testEvent{ContentID: "m1", WatchPct: 0.5, Rating: 4, DeviceID: "tv-01", Score: &half}},
		{name: "zero watch is valid", input: testEvent{ContentID: "m1"}},
		{
			name: "missing content id", input: testEvent{WatchPct: 0.5},
			wantField: "content_id", wantTag: "required", wantMissing: true, wantMsg: "content_id is required",
		},
		{
			name: "watch above one", input: testEvent{ContentID: "m1", WatchPct: 1.01},
			wantField: "watch_pct", wantTag: "unit", wantMsg: "watch_pct must be between 0 and 1",
		},
		{
			name: "NaN watch", input: testEvent{ContentID: "m1", WatchPct: math.NaN()},
			wantField: "watch_pct", wantTag: "unit",
		},
		{
			name: "rating out of range", input: testEvent{ContentID: "m1", Rating: 9},
			wantField: "rating", wantTag: "max", wantMsg: "rating must be at most 5",
		},
		{
			name: "bad device id", input: testEvent{ContentID: "m1", DeviceID: "tv 01!"},
			wantField: "device_id", wantTag: "device_id",
		},
		{
			name: "oneof", input: testEvent{ContentID: "m1", Mode: "cable"},
			wantField: "mode", wantTag: "oneof", wantMsg: "mode must be one of: live vod",
		},
		{
			name: "pointer unit", input: testEvent{ContentID: "m1", Score: &tooHigh},
			wantField: "score", wantTag: "unit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			verr := ValidateStruct(&tt.input)
			if tt.wantField == "" {
				if verr != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			first := verr.First()
			if first.Field() != tt.wantField || first.Tag() != tt.wantTag {
				t.Errorf("first error = %s/%s, want %s/%s", first.Field(), first.Tag(), tt.wantField, tt.wantTag)
			}
			if first.Missing() != tt.wantMissing {
				t.Errorf("Missing() = %v, want %v", first.Missing(), tt.wantMissing)
			}
			if tt.wantMsg != "" && first.Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", first.Error(), tt.wantMsg)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	t.Parallel()

	t.Run("single error", func(t *testing.T) {
		t.Parallel()
		verr := ValidateStruct(&testEvent{WatchPct: 0.5})
		api := verr.ToAPIError()
		if api.Code != "VALIDATION_ERROR" {
			t.Errorf("Code = %q", api.Code)
		}
		if api.Details["field"] != "content_id" {
			t.Errorf("Details = %v", api.Details)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		t.Parallel()
		verr := ValidateStruct(&testEvent{WatchPct: 3, Rating: 7})
		if len(verr.Errors()) != 3 {
			t.Fatalf("len(Errors()) = %d, want 3", len(verr.Errors()))
		}
		api := verr.ToAPIError()
		if !strings.Contains(api.Message, "content_id is required") {
			t.Errorf("Message = %q", api.Message)
		}
		fields, ok := api.Details["fields"].([]map[string]interface{})
		if !ok || len(fields) != 3 {
			t.Errorf("Details[fields] = %v", api.Details["fields"])
		}
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		verr := &RequestValidationError{}
		if verr.ToAPIError().Message != "Validation failed" || verr.Error() != "validation failed" {
			t.Error("empty RequestValidationError should use generic messages")
		}
		if verr.First() != nil {
			t.Error("First() on empty should be nil")
		}
	})
}
