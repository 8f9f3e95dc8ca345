// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package patterns

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Origin records where a pattern's evidence came from.
type Origin int

const (
	// OriginLocal marks a pattern built from on-device observations.
	OriginLocal Origin = iota

	// OriginFederated marks a pattern received from the constellation peer.
	OriginFederated
)

// String returns the wire name of the origin.
func (o Origin) String() string {
	switch o {
	case OriginLocal:
		return "local"
	case OriginFederated:
		return "federated"
	default:
		return "unknown"
	}
}

// ParseOrigin converts a wire name back into an Origin.
func ParseOrigin(s string) (Origin, error) {
	switch s {
	case "local", "":
		return OriginLocal, nil
	case "federated":
		return OriginFederated, nil
	default:
		return OriginLocal, fmt.Errorf("unknown origin: %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Origin) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Origin) UnmarshalText(text []byte) error {
	parsed, err := ParseOrigin(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// Feature id prefixes.
const (
	GenrePrefix = "genre:"
	TagPrefix   = "tag:"
)

// GenreID returns the feature id for a genre name.
func GenreID(genre string) string {
	return GenrePrefix + strings.ToLower(strings.TrimSpace(genre))
}

// TagID returns the feature id for a tag name.
func TagID(tag string) string {
	return TagPrefix + strings.ToLower(strings.TrimSpace(tag))
}

// IsFeature reports whether id names a feature pattern rather than content.
func IsFeature(id string) bool {
	return strings.HasPrefix(id, GenrePrefix) || strings.HasPrefix(id, TagPrefix)
}

// FeatureName strips the kind prefix from a feature id.
func FeatureName(id string) string {
	if i := strings.IndexByte(id, ':'); i >= 0 && IsFeature(id) {
		return id[i+1:]
	}
	return id
}

// Pattern is the accumulated evidence about one content item or feature.
type Pattern struct {
	// ID is the content or feature identifier.
	ID string `json:"id"`

	// Score is the decayed engagement average, always within [0, 1].
	Score float64 `json:"score"`

	// Samples counts local observations folded into Score.
	Samples int64 `json:"samples"`

	// UpdatedAt is the latest observation or merge time. Never moves backwards.
	UpdatedAt time.Time `json:"updated_at"`

	// DecayedAt is the instant up to which decay has already been applied.
	DecayedAt time.Time `json:"decayed_at"`

	// Origin is local or federated.
	Origin Origin `json:"origin"`

	// Features lists feature ids associated with a content pattern.
	Features []string `json:"features,omitempty"`
}

// Clone returns a deep copy of the pattern.
//
//nolint:gocritic // value receiver keeps Pattern usable as a map value
func (p Pattern) Clone() Pattern {
	if p.Features != nil {
		p.Features = append([]string(nil), p.Features...)
	}
	return p
}

// Genre returns the first genre feature name, or "" if none is recorded.
//
//nolint:gocritic // value receiver keeps Pattern usable as a map value
func (p Pattern) Genre() string {
	if IsFeature(p.ID) && strings.HasPrefix(p.ID, GenrePrefix) {
		return FeatureName(p.ID)
	}
	for _, f := range p.Features {
		if strings.HasPrefix(f, GenrePrefix) {
			return FeatureName(f)
		}
	}
	return ""
}

// Significance ranks patterns for sync export: score x ln(1 + samples).
//
//nolint:gocritic // value receiver keeps Pattern usable as a map value
func (p Pattern) Significance() float64 {
	return p.Score * math.Log1p(float64(p.Samples))
}

// valid reports whether the pattern satisfies the store invariants.
func (p *Pattern) valid() bool {
	return p.ID != "" &&
		!math.IsNaN(p.Score) &&
		p.Score >= 0 && p.Score <= 1 &&
		p.Samples >= 0
}

// Version is the store's monotonic mutation counter.
type Version uint64

// FederatedPattern is one entry of a peer's aggregated set.
type FederatedPattern struct {
	ID      string
	Score   float64
	Samples int64
	Genre   string
}

// FederatedSet is the input to MergeFederated.
type FederatedSet struct {
	Patterns []FederatedPattern

	// Timestamp is the peer's generation time; zero means "now".
	Timestamp time.Time
}

// MergeResult summarizes one federated merge.
type MergeResult struct {
	Inserted int
	Updated  int
	Evicted  int
	Version  Version
}

// State is the persisted form of the store.
type State struct {
	Version  Version   `json:"version"`
	Patterns []Pattern `json:"patterns"`
	SavedAt  time.Time `json:"saved_at"`
}

// Snapshot is an immutable, point-in-time copy of the store.
// Callers must not modify the returned patterns.
type Snapshot struct {
	version  Version
	takenAt  time.Time
	patterns []Pattern
	index    map[string]int
}

// newSnapshot builds a snapshot from already-copied patterns.
func newSnapshot(version Version, takenAt time.Time, patterns []Pattern) *Snapshot {
	sort.Slice(patterns, func(i, j int) bool {
		return patterns[i].ID < patterns[j].ID
	})
	index := make(map[string]int, len(patterns))
	for i := range patterns {
		index[patterns[i].ID] = i
	}
	return &Snapshot{
		version:  version,
		takenAt:  takenAt,
		patterns: patterns,
		index:    index,
	}
}

// NewSnapshot builds a snapshot from arbitrary patterns. It is intended for
// tests and for callers scoring against data that is not in a Store.
func NewSnapshot(version Version, takenAt time.Time, patterns []Pattern) *Snapshot {
	cp := make([]Pattern, len(patterns))
	for i := range patterns {
		cp[i] = patterns[i].Clone()
	}
	return newSnapshot(version, takenAt, cp)
}

// Version returns the store version the snapshot was taken at.
func (s *Snapshot) Version() Version {
	return s.version
}

// TakenAt returns the time the snapshot was taken.
func (s *Snapshot) TakenAt() time.Time {
	return s.takenAt
}

// Len returns the number of patterns in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.patterns)
}

// Patterns returns the patterns ordered by id. The slice is shared; do not modify.
func (s *Snapshot) Patterns() []Pattern {
	if s == nil {
		return nil
	}
	return s.patterns
}

// Get returns the pattern with the given id.
func (s *Snapshot) Get(id string) (Pattern, bool) {
	if s == nil {
		return Pattern{}, false
	}
	i, ok := s.index[id]
	if !ok {
		return Pattern{}, false
	}
	return s.patterns[i], true
}

// Validate checks every pattern against the store invariants.
func (s *Snapshot) Validate() error {
	if s == nil {
		return nil
	}
	for i := range s.patterns {
		if !s.patterns[i].valid() {
			return fmt.Errorf("%w: pattern %q score=%v samples=%d",
				ErrInvariant, s.patterns[i].ID, s.patterns[i].Score, s.patterns[i].Samples)
		}
	}
	return nil
}
