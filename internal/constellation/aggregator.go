// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package constellation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tvbrain/internal/cache"
	"github.com/tomtom215/tvbrain/internal/logging"
	"github.com/tomtom215/tvbrain/internal/metrics"
	"github.com/tomtom215/tvbrain/internal/patterns"
	tvsync "github.com/tomtom215/tvbrain/internal/sync"
)

// ErrShardOverload is returned when a new device arrives at a full peer.
var ErrShardOverload = errors.New("constellation shard overloaded")

type deviceDelta struct {
	patterns   []tvsync.WirePattern
	version    uint64
	receivedAt time.Time
}

// Stats holds aggregator counters.
type Stats struct {
	Devices        int       `json:"devices"`
	Version        uint64    `json:"version"`
	GlobalPatterns int       `json:"global_patterns"`
	Trends         int       `json:"trends"`
	Rounds         int64     `json:"rounds"`
	Accepted       int64     `json:"accepted"`
	Refused        int64     `json:"refused"`
	Filtered       int64     `json:"filtered"`
	Expired        int64     `json:"expired"`
	LastRound      time.Time `json:"last_round"`

	// RecentSubmissions counts accepted deltas over the last five minutes.
	RecentSubmissions int64 `json:"recent_submissions"`
}

// Aggregator keeps the latest delta per device and folds them into a
// global pattern set on each federation round.
type Aggregator struct {
	config *Config
	logger zerolog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	devices map[string]*deviceDelta

	globalMu  sync.RWMutex
	global    *tvsync.GlobalSet
	payload   []byte
	version   uint64
	lastRound time.Time

	rounds   atomic.Int64
	accepted atomic.Int64
	refused  atomic.Int64
	filtered atomic.Int64
	expired  atomic.Int64

	recent *cache.SlidingWindowCounter
}

// NewAggregator creates an aggregator. Until the first round it serves an
// empty global set at version 0.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewAggregator(cfg *Config, logger zerolog.Logger) (*Aggregator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Aggregator{
		config:  cfg.Clone(),
		logger:  logger.With().Str("component", "constellation_aggregator").Logger(),
		now:     time.Now,
		devices: make(map[string]*deviceDelta),
		recent:  cache.NewSlidingWindowCounter(5*time.Minute, 10),
	}

	empty := &tvsync.GlobalSet{Patterns: []tvsync.WirePattern{}, Trends: []tvsync.Trend{}}
	payload, err := tvsync.EncodeGlobal(empty, a.config.MaxGlobalBytes)
	if err != nil {
		return nil, fmt.Errorf("encode empty global set: %w", err)
	}
	a.global, a.payload = empty, payload
	return a, nil
}

// Submit records d as the latest delta of its device. Patterns scoring
// below MinQuality are dropped. It returns the number of patterns kept.
func (a *Aggregator) Submit(d *tvsync.Delta) (int, error) {
	kept := make([]tvsync.WirePattern, 0, len(d.Patterns))
	for _, wp := range d.Patterns {
		if wp.Score < a.config.MinQuality {
			continue
		}
		kept = append(kept, wp)
	}
	a.filtered.Add(int64(len(d.Patterns) - len(kept)))

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, known := a.devices[d.DeviceID]; !known && len(a.devices) >= a.config.MaxDevices {
		a.refused.Add(1)
		return 0, fmt.Errorf("%w: %d devices", ErrShardOverload, len(a.devices))
	}
	a.devices[d.DeviceID] = &deviceDelta{
		patterns:   kept,
		version:    d.Version,
		receivedAt: a.now(),
	}
	a.accepted.Add(1)
	a.recent.Inc()

	a.logger.Debug().
		Str("device_id", logging.SanitizeDeviceID(d.DeviceID)).
		Int("patterns", len(kept)).
		Uint64("device_version", d.Version).
		Msg("Delta accepted")
	return len(kept), nil
}

// Devices returns the number of devices currently tracked.
func (a *Aggregator) Devices() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.devices)
}

type accumulator struct {
	weight   float64
	weighted float64
	samples  int64
	sources  int
	genres   map[string]int
}

// RunRound folds the tracked deltas into a new global set, encodes it and
// makes it the set returned to devices.
func (a *Aggregator) RunRound() (*tvsync.GlobalSet, error) {
	start := time.Now()
	now := a.now()

	a.mu.Lock()
	for id, dd := range a.devices {
		if now.Sub(dd.receivedAt) > a.config.DeviceTTL {
			delete(a.devices, id)
			a.expired.Add(1)
		}
	}
	devices := len(a.devices)
	acc := make(map[string]*accumulator)
	genreScores := make(map[string]float64)
	for _, dd := range a.devices {
		for _, wp := range dd.patterns {
			if g := trendGenre(wp); g != "" {
				genreScores[g] += wp.Score
			}

			w := wp.Score * float64(wp.SampleCount)
			if w <= 0 {
				continue
			}
			e := acc[wp.ID]
			if e == nil {
				e = &accumulator{genres: make(map[string]int)}
				acc[wp.ID] = e
			}
			e.weight += w
			e.weighted += w * wp.Score
			e.samples += wp.SampleCount
			e.sources++
			if wp.Genre != "" {
				e.genres[wp.Genre]++
			}
		}
	}
	a.mu.Unlock()

	global := &tvsync.GlobalSet{
		Patterns:  a.globalPatterns(acc),
		Trends:    a.trends(genreScores, now),
		Timestamp: now,
	}

	a.globalMu.Lock()
	defer a.globalMu.Unlock()

	global.Version = a.version + 1
	payload, err := tvsync.EncodeGlobal(global, a.config.MaxGlobalBytes)
	if err != nil {
		metrics.RecordFederationRound(time.Since(start), devices, 0, err)
		return nil, fmt.Errorf("encode global set: %w", err)
	}
	a.version = global.Version
	a.global, a.payload, a.lastRound = global, payload, now
	a.rounds.Add(1)

	metrics.RecordFederationRound(time.Since(start), devices, len(global.Patterns), nil)
	a.logger.Info().
		Uint64("version", global.Version).
		Int("devices", devices).
		Int("patterns", len(global.Patterns)).
		Int("trends", len(global.Trends)).
		Int("bytes", len(payload)).
		Msg("Federation round complete")
	return global, nil
}

func (a *Aggregator) globalPatterns(acc map[string]*accumulator) []tvsync.WirePattern {
	out := make([]tvsync.WirePattern, 0, len(acc))
	for id, e := range acc {
		if e.sources < a.config.MinSources {
			continue
		}
		out = append(out, tvsync.WirePattern{
			ID:          id,
			Score:       clampUnit(e.weighted / e.weight),
			SampleCount: e.samples,
			Genre:       dominantGenre(e.genres),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].SampleCount != out[j].SampleCount {
			return out[i].SampleCount > out[j].SampleCount
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > a.config.MaxGlobalPatterns {
		out = out[:a.config.MaxGlobalPatterns]
	}
	return out
}

// trends ranks genres by summed pattern quality, normalised to the leader.
func (a *Aggregator) trends(genreScores map[string]float64, now time.Time) []tvsync.Trend {
	var top float64
	for _, s := range genreScores {
		if s > top {
			top = s
		}
	}
	out := make([]tvsync.Trend, 0, len(genreScores))
	if top <= 0 {
		return out
	}
	for g, s := range genreScores {
		out = append(out, tvsync.Trend{
			ContentID:    patterns.GenreID(g),
			Score:        clampUnit(s / top),
			Region:       a.config.Region,
			Genre:        g,
			CalculatedAt: now,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Genre < out[j].Genre
	})
	if len(out) > a.config.MaxTrends {
		out = out[:a.config.MaxTrends]
	}
	return out
}

// Global returns the encoded global set and its version.
func (a *Aggregator) Global() ([]byte, uint64) {
	a.globalMu.RLock()
	defer a.globalMu.RUnlock()
	return a.payload, a.version
}

// Version returns the current global set version.
func (a *Aggregator) Version() uint64 {
	a.globalMu.RLock()
	defer a.globalMu.RUnlock()
	return a.version
}

// Stats returns a snapshot of the aggregator counters.
func (a *Aggregator) Stats() Stats {
	st := Stats{
		Devices:  a.Devices(),
		Rounds:   a.rounds.Load(),
		Accepted: a.accepted.Load(),
		Refused:  a.refused.Load(),
		Filtered: a.filtered.Load(),
		Expired:  a.expired.Load(),

		RecentSubmissions: a.recent.Count(),
	}
	a.globalMu.RLock()
	st.Version = a.version
	st.GlobalPatterns = len(a.global.Patterns)
	st.Trends = len(a.global.Trends)
	st.LastRound = a.lastRound
	a.globalMu.RUnlock()
	return st
}

func trendGenre(wp tvsync.WirePattern) string {
	if wp.Genre != "" {
		return strings.ToLower(strings.TrimSpace(wp.Genre))
	}
	if strings.HasPrefix(wp.ID, patterns.GenrePrefix) {
		return patterns.FeatureName(wp.ID)
	}
	return ""
}

// dominantGenre returns the most reported genre, the smaller name on ties.
func dominantGenre(counts map[string]int) string {
	best, bestN := "", 0
	for g, n := range counts {
		if n > bestN || (n == bestN && g < best) {
			best, bestN = g, n
		}
	}
	return best
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
