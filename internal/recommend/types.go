// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package recommend

import (
	"context"
	"strconv"
	"strings"

	"github.com/tomtom215/tvbrain/internal/patterns"
)

// TimeOfDay is a coarse viewing-time bucket.
type TimeOfDay int

const (
	// TimeUnknown is used for missing or unrecognized values.
	TimeUnknown TimeOfDay = iota
	TimeMorning
	TimeAfternoon
	TimeEvening
	TimeNight
)

// String returns the bucket name.
func (t TimeOfDay) String() string {
	switch t {
	case TimeMorning:
		return "morning"
	case TimeAfternoon:
		return "afternoon"
	case TimeEvening:
		return "evening"
	case TimeNight:
		return "night"
	default:
		return "unknown"
	}
}

// TimeOfDayFromHour maps an hour (0-23) to its bucket.
func TimeOfDayFromHour(hour int) TimeOfDay {
	switch {
	case hour < 0 || hour > 23:
		return TimeUnknown
	case hour >= 5 && hour < 12:
		return TimeMorning
	case hour >= 12 && hour < 17:
		return TimeAfternoon
	case hour >= 17 && hour < 22:
		return TimeEvening
	default:
		return TimeNight
	}
}

// ParseTimeOfDay accepts a bucket name or an hour. Unknown values map to
// TimeUnknown rather than an error.
func ParseTimeOfDay(s string) TimeOfDay {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "morning":
		return TimeMorning
	case "afternoon":
		return TimeAfternoon
	case "evening", "primetime":
		return TimeEvening
	case "night", "late_night":
		return TimeNight
	}
	if h, err := strconv.Atoi(s); err == nil {
		return TimeOfDayFromHour(h)
	}
	return TimeUnknown
}

// ViewingContext describes the moment a recommendation is requested.
// It is never persisted.
type ViewingContext struct {
	// TimeOfDay is a bucket name or an hour (0-23).
	TimeOfDay string `json:"time_of_day,omitempty"`

	// DayOfWeek is a day name ("saturday") or "weekend"/"weekday".
	DayOfWeek string `json:"day_of_week,omitempty"`

	// Mood is a free-form mood or profile tag.
	Mood string `json:"mood,omitempty"`

	// Genre is an optional genre hint.
	Genre string `json:"genre,omitempty"`

	// Recent lists recently viewed content identifiers, newest first.
	Recent []string `json:"recent,omitempty"`

	// Extra carries fields this version does not understand. Ignored.
	Extra map[string]string `json:"extra,omitempty"`
}

// Bucket returns the parsed time-of-day bucket.
//
//nolint:gocritic // hugeParam: context passed by value for immutability
func (vc ViewingContext) Bucket() TimeOfDay {
	return ParseTimeOfDay(vc.TimeOfDay)
}

// Tokens returns the normalized tokens the context scorer operates on.
// Unrecognized enum values contribute nothing.
//
//nolint:gocritic // hugeParam: context passed by value for immutability
func (vc ViewingContext) Tokens() []string {
	tokens := make([]string, 0, 4)
	if b := vc.Bucket(); b != TimeUnknown {
		tokens = append(tokens, "time:"+b.String())
	}
	if day := normalizeDay(vc.DayOfWeek); day != "" {
		tokens = append(tokens, "day:"+day)
	}
	if m := strings.TrimSpace(vc.Mood); m != "" {
		tokens = append(tokens, patterns.TagID(m))
	}
	if g := strings.TrimSpace(vc.Genre); g != "" {
		tokens = append(tokens, patterns.GenreID(g))
	}
	return tokens
}

func normalizeDay(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "saturday", "sat", "sunday", "sun", "weekend":
		return "weekend"
	case "monday", "mon", "tuesday", "tue", "wednesday", "wed",
		"thursday", "thu", "friday", "fri", "weekday":
		return "weekday"
	default:
		return ""
	}
}

// Candidate is one scorable content pattern handed to a Scorer.
type Candidate struct {
	ID       string
	Score    float64
	Samples  int64
	Origin   patterns.Origin
	Genre    string
	Features []string
}

// Scorer relates a viewing context to a candidate. Implementations must be
// pure, fast and safe for concurrent use. Results are clamped to [0, 1].
type Scorer interface {
	Relevance(vc ViewingContext, c Candidate) float64
}

// ScorerFunc adapts a plain function to Scorer.
type ScorerFunc func(vc ViewingContext, c Candidate) float64

// Relevance calls f.
//
//nolint:gocritic // hugeParam: arguments passed by value for immutability
func (f ScorerFunc) Relevance(vc ViewingContext, c Candidate) float64 {
	return f(vc, c)
}

// Reranker post-processes a ranked list.
type Reranker interface {
	// Name returns the reranker identifier.
	Name() string

	// Rerank reorders items and returns at most k of them.
	Rerank(ctx context.Context, items []ScoredItem, k int) []ScoredItem
}

// Recommendation reasons.
const (
	ReasonHistory        = "Highly similar to your viewing history"
	ReasonViewingHistory = "Based on your viewing history"
	ReasonInterestFmt    = "Based on your interest in %s"
	ReasonPopularFmt     = "Popular in %s category"
	ReasonTrending       = "Trending now"
	ReasonContext        = "Recommended for you"
	ReasonRecent         = "Because you watched recently"
)

// Breakdown is the weighted contribution of each ranking component.
type Breakdown struct {
	Affinity float64 `json:"affinity"`
	Context  float64 `json:"context"`
	Recency  float64 `json:"recency"`
}

// ScoredItem is one ranked recommendation.
type ScoredItem struct {
	// ID is the content identifier.
	ID string `json:"id"`

	// Score is the final rank key (0-1, higher is better).
	Score float64 `json:"score"`

	// Reason is a human-readable label for the dominant component.
	Reason string `json:"reason"`

	// Genre is the candidate's primary genre, if known.
	Genre string `json:"genre,omitempty"`

	// Origin is "local" or "federated".
	Origin string `json:"origin"`

	// Features are the candidate's feature ids, used by diversity reranking.
	Features []string `json:"-"`

	// Scores is the per-component breakdown.
	Scores Breakdown `json:"scores"`
}

// Request represents a recommendation request.
type Request struct {
	// Context describes the viewing moment.
	Context ViewingContext `json:"context"`

	// K is the number of recommendations to return.
	// Defaults to Config.Limits.DefaultK if zero.
	K int `json:"k,omitempty"`

	// Exclude lists content identifiers that must not be returned.
	Exclude []string `json:"exclude,omitempty"`

	// RequestID is a unique identifier for tracing.
	RequestID string `json:"request_id,omitempty"`
}

// Response represents a recommendation response.
type Response struct {
	// Items is the ordered list of recommended items.
	Items []ScoredItem `json:"items"`

	// TotalCandidates is the number of candidates considered.
	TotalCandidates int `json:"total_candidates"`

	// SafeMode is set when the snapshot failed invariant checks.
	SafeMode bool `json:"safe_mode,omitempty"`

	// Truncated is set when the latency budget expired before all
	// candidates were scored.
	Truncated bool `json:"truncated,omitempty"`

	// Metadata contains timing and diagnostic information.
	Metadata ResponseMetadata `json:"metadata"`
}

// ResponseMetadata contains timing and diagnostic information.
type ResponseMetadata struct {
	RequestID       string   `json:"request_id,omitempty"`
	SnapshotVersion uint64   `json:"snapshot_version"`
	LatencyMicros   int64    `json:"latency_us"`
	Rerankers       []string `json:"rerankers,omitempty"`
}

// Stats is a point-in-time copy of the engine counters.
type Stats struct {
	Requests  int64 `json:"requests"`
	Empty     int64 `json:"empty"`
	SafeMode  int64 `json:"safe_mode"`
	Truncated int64 `json:"truncated"`
}
