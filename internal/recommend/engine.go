// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package recommend

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tvbrain/internal/patterns"
)

// Engine ranks snapshot patterns for a viewing context.
// It is safe for concurrent use.
type Engine struct {
	config  *Config
	weights Weights
	logger  zerolog.Logger
	scorer  Scorer

	rerankers []Reranker
	rrMu      sync.RWMutex

	requestCount   atomic.Int64
	emptyCount     atomic.Int64
	safeModeCount  atomic.Int64
	truncatedCount atomic.Int64
}

// NewEngine creates a scoring engine. A nil scorer selects
// HashedEmbeddingScorer with the configured dimensions.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, scorer Scorer, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if scorer == nil {
		scorer = NewHashedEmbeddingScorer(cfg.Embedding.Dimensions)
	}

	return &Engine{
		config:  cfg.Clone(),
		weights: cfg.Weights.Normalize(),
		logger:  logger.With().Str("component", "recommend").Logger(),
		scorer:  scorer,
	}, nil
}

// RegisterReranker adds a reranker to the post-processing pipeline.
func (e *Engine) RegisterReranker(rr Reranker) {
	e.rrMu.Lock()
	defer e.rrMu.Unlock()

	e.rerankers = append(e.rerankers, rr)
	e.logger.Info().
		Str("reranker", rr.Name()).
		Msg("registered reranker")
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() *Config {
	return e.config.Clone()
}

// Stats returns the engine counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Requests:  e.requestCount.Load(),
		Empty:     e.emptyCount.Load(),
		SafeMode:  e.safeModeCount.Load(),
		Truncated: e.truncatedCount.Load(),
	}
}

// Recommend ranks the content patterns of snap for req.Context.
//
// An empty or nil snapshot yields an empty response. A snapshot that fails
// invariant checks yields an empty response with SafeMode set. Neither is an
// error; the only error is a cancelled parent context.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) Recommend(ctx context.Context, req Request, snap *patterns.Snapshot) (*Response, error) {
	start := time.Now()
	e.requestCount.Add(1)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("recommend: %w", err)
	}

	req = e.prepareRequest(req)
	var version uint64
	if snap != nil {
		version = uint64(snap.Version())
	}

	if snap.Len() == 0 {
		e.emptyCount.Add(1)
		return e.emptyResponse(req, version, start), nil
	}

	if err := snap.Validate(); err != nil {
		e.safeModeCount.Add(1)
		e.logger.Error().Err(err).
			Str("request_id", req.RequestID).
			Uint64("snapshot_version", version).
			Msg("snapshot failed invariant check, serving safe mode")
		resp := e.emptyResponse(req, version, start)
		resp.SafeMode = true
		return resp, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.config.Limits.Timeout)
	defer cancel()

	items, total, truncated := e.scoreSnapshot(ctx, req, snap)
	if truncated {
		e.truncatedCount.Add(1)
		e.logger.Warn().
			Str("request_id", req.RequestID).
			Int("scored", len(items)).
			Int("candidates", total).
			Dur("budget", e.config.Limits.Timeout).
			Msg("latency budget exceeded, returning partial ranking")
	}

	sortItems(items)
	items, used := e.applyRerankers(ctx, items, req.K)
	if len(items) > req.K {
		items = items[:req.K]
	}
	if len(items) == 0 {
		e.emptyCount.Add(1)
	}

	return &Response{
		Items:           items,
		TotalCandidates: total,
		Truncated:       truncated,
		Metadata: ResponseMetadata{
			RequestID:       req.RequestID,
			SnapshotVersion: version,
			LatencyMicros:   time.Since(start).Microseconds(),
			Rerankers:       used,
		},
	}, nil
}

// prepareRequest applies K defaults and limits.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) prepareRequest(req Request) Request {
	if req.K <= 0 {
		req.K = e.config.Limits.DefaultK
	}
	if req.K > e.config.Limits.MaxK {
		req.K = e.config.Limits.MaxK
	}
	return req
}

//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) emptyResponse(req Request, version uint64, start time.Time) *Response {
	return &Response{
		Items: []ScoredItem{},
		Metadata: ResponseMetadata{
			RequestID:       req.RequestID,
			SnapshotVersion: version,
			LatencyMicros:   time.Since(start).Microseconds(),
		},
	}
}

// scoringInput holds per-request lookups derived from the snapshot.
type scoringInput struct {
	featureScores  map[string]float64
	recent         map[string]struct{}
	recentFeatures map[string]struct{}
	exclude        map[string]struct{}
}

//nolint:gocritic // hugeParam: req passed by value for immutability
func buildInput(req Request, snap *patterns.Snapshot) scoringInput {
	in := scoringInput{
		featureScores:  make(map[string]float64),
		recent:         make(map[string]struct{}, len(req.Context.Recent)),
		recentFeatures: make(map[string]struct{}),
		exclude:        make(map[string]struct{}, len(req.Exclude)),
	}
	for _, p := range snap.Patterns() {
		if patterns.IsFeature(p.ID) {
			in.featureScores[p.ID] = p.Score
		}
	}
	for _, id := range req.Context.Recent {
		in.recent[id] = struct{}{}
		if p, ok := snap.Get(id); ok {
			for _, f := range p.Features {
				in.recentFeatures[f] = struct{}{}
			}
		}
	}
	for _, id := range req.Exclude {
		in.exclude[id] = struct{}{}
	}
	return in
}

// scoreSnapshot scores every eligible content pattern. It stops early when
// ctx expires and reports how many candidates were eligible in total.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) scoreSnapshot(ctx context.Context, req Request, snap *patterns.Snapshot) ([]ScoredItem, int, bool) {
	in := buildInput(req, snap)
	all := snap.Patterns()
	items := make([]ScoredItem, 0, min(len(all), 4*req.K+16))

	total := 0
	truncated := false
	every := e.config.Limits.DeadlineCheckEvery
	for i := range all {
		p := &all[i]
		if patterns.IsFeature(p.ID) {
			continue
		}
		if _, skip := in.exclude[p.ID]; skip {
			continue
		}
		total++
		if truncated {
			continue
		}
		if total%every == 0 && ctx.Err() != nil {
			truncated = true
			continue
		}
		if item, ok := e.scoreCandidate(req.Context, p, &in); ok {
			items = append(items, item)
		}
	}
	return items, total, truncated
}

// scoreCandidate computes the weighted rank key and reason for one pattern.
func (e *Engine) scoreCandidate(vc ViewingContext, p *patterns.Pattern, in *scoringInput) (ScoredItem, bool) {
	affinity := e.affinity(p, in)

	cand := Candidate{
		ID:       p.ID,
		Score:    p.Score,
		Samples:  p.Samples,
		Origin:   p.Origin,
		Genre:    p.Genre(),
		Features: p.Features,
	}
	contextScore := clamp01(e.scorer.Relevance(vc, cand))
	recency := recencyBoost(p, in)

	b := Breakdown{
		Affinity: e.weights.Affinity * affinity,
		Context:  e.weights.Context * contextScore,
		Recency:  e.weights.Recency * recency,
	}
	final := clamp01(b.Affinity + b.Context + b.Recency)
	if final <= 0 || final < e.config.Limits.MinScore {
		return ScoredItem{}, false
	}

	return ScoredItem{
		ID:       p.ID,
		Score:    final,
		Reason:   reasonFor(b, affinity, cand),
		Genre:    cand.Genre,
		Origin:   p.Origin.String(),
		Features: p.Features,
		Scores:   b,
	}, true
}

// affinity blends a pattern's own score with its feature patterns.
func (e *Engine) affinity(p *patterns.Pattern, in *scoringInput) float64 {
	var sum float64
	var n int
	for _, f := range p.Features {
		if s, ok := in.featureScores[f]; ok {
			sum += s
			n++
		}
	}
	if n == 0 {
		return p.Score
	}
	blend := e.config.FeatureBlend
	return clamp01((1-blend)*p.Score + blend*(sum/float64(n)))
}

// recencyBoost is 1 for a recently viewed item, otherwise the share of its
// features that also appear on recently viewed items.
func recencyBoost(p *patterns.Pattern, in *scoringInput) float64 {
	if _, ok := in.recent[p.ID]; ok {
		return 1
	}
	if len(p.Features) == 0 || len(in.recentFeatures) == 0 {
		return 0
	}
	shared := 0
	for _, f := range p.Features {
		if _, ok := in.recentFeatures[f]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(p.Features))
}

// reasonFor labels the dominant weighted component. Affinity wins ties.
//
//nolint:gocritic // hugeParam: candidate passed by value for immutability
func reasonFor(b Breakdown, affinity float64, c Candidate) string {
	switch {
	case b.Affinity >= b.Context && b.Affinity >= b.Recency:
		if c.Origin == patterns.OriginFederated {
			if c.Genre != "" {
				return fmt.Sprintf(ReasonPopularFmt, c.Genre)
			}
			return ReasonTrending
		}
		if affinity >= 0.9 {
			return ReasonHistory
		}
		if c.Genre != "" {
			return fmt.Sprintf(ReasonInterestFmt, c.Genre)
		}
		return ReasonViewingHistory
	case b.Context >= b.Recency:
		return ReasonContext
	default:
		return ReasonRecent
	}
}

// sortItems orders by score descending, then id ascending.
func sortItems(items []ScoredItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ID < items[j].ID
	})
}

// applyRerankers runs registered rerankers in order.
func (e *Engine) applyRerankers(ctx context.Context, items []ScoredItem, k int) ([]ScoredItem, []string) {
	e.rrMu.RLock()
	rerankers := e.rerankers
	e.rrMu.RUnlock()

	if len(rerankers) == 0 || len(items) == 0 {
		return items, nil
	}

	used := make([]string, 0, len(rerankers))
	for _, rr := range rerankers {
		items = rr.Rerank(ctx, items, k)
		used = append(used, rr.Name())
	}
	return items, used
}
