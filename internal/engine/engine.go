// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tvbrain/internal/ingest"
	"github.com/tomtom215/tvbrain/internal/logging"
	"github.com/tomtom215/tvbrain/internal/metrics"
	"github.com/tomtom215/tvbrain/internal/patterns"
	"github.com/tomtom215/tvbrain/internal/persist"
	"github.com/tomtom215/tvbrain/internal/recommend"
	"github.com/tomtom215/tvbrain/internal/recommend/reranking"
	tvsync "github.com/tomtom215/tvbrain/internal/sync"
)

// Persistence loads and saves the pattern store state.
type Persistence interface {
	// Load returns the last saved state, or nil when nothing was saved.
	Load(ctx context.Context) (*patterns.State, error)
	Save(ctx context.Context, state patterns.State) error
	Close() error
}

// Options carries the collaborators of an Engine. Every field is optional.
type Options struct {
	// Resolver supplies genres and tags for observed content. Wrapped in a
	// CachedResolver when Ingest.MetadataCacheSize is positive.
	Resolver ingest.MetadataResolver

	// Scorer is the context relevance model. Defaults to
	// recommend.HashedEmbeddingScorer.
	Scorer recommend.Scorer

	// Transport carries sync exchanges. Without one, Sync returns
	// ErrSyncDisabled.
	Transport tvsync.Transport

	// Persistence defaults to an in-memory store.
	Persistence Persistence

	// Rerankers run after ranking, in order.
	Rerankers []recommend.Reranker

	Logger zerolog.Logger
}

// Engine is a caller-owned recommendation engine handle. Handles are
// independent of each other and safe for concurrent use.
type Engine struct {
	config *Config
	logger zerolog.Logger

	store       *patterns.Store
	ranker      *recommend.Engine
	pipeline    *ingest.Pipeline
	reconciler  *tvsync.Reconciler
	persistence Persistence

	// lifetime is cancelled by Shutdown and bounds every sync attempt.
	lifetime context.Context
	stop     context.CancelFunc

	// opsMu is held for reading by every operation and for writing by
	// Shutdown, which therefore waits for in-flight calls.
	opsMu  sync.RWMutex
	closed atomic.Bool

	saveMu       sync.Mutex
	savedVersion patterns.Version
	lastSaveAt   time.Time
	lastSaveErr  error
}

// New creates an engine and restores any persisted state. A load failure is
// returned as a KindPersistence error.
//
//nolint:gocritic // hugeParam: options consumed once
func New(cfg *Config, opts Options) (*Engine, error) {
	if cfg == nil {
		return nil, &Error{Kind: KindValidation, Op: OpInit, Err: errors.New("config is required")}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &Error{Kind: KindValidation, Op: OpInit, Err: err}
	}
	cfg = cfg.Clone()

	logger := opts.Logger.With().
		Str("component", "engine").
		Str("device_id", logging.SanitizeDeviceID(cfg.Sync.DeviceID)).
		Logger()

	store, err := patterns.NewStore(cfg.Store)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Op: OpInit, Err: err}
	}

	persistence := opts.Persistence
	if persistence == nil {
		persistence = persist.NewMemoryStore()
	}

	loadCtx, cancel := context.WithTimeout(context.Background(), cfg.PersistTimeout)
	state, err := persistence.Load(loadCtx)
	cancel()
	if err != nil {
		return nil, &Error{Kind: KindPersistence, Op: OpInit, Err: fmt.Errorf("load state: %w", err)}
	}
	if state != nil {
		if _, err := store.Restore(*state); err != nil {
			return nil, &Error{Kind: KindPersistence, Op: OpInit, Err: fmt.Errorf("restore state: %w", err)}
		}
		logger.Info().
			Int("patterns", store.Len()).
			Uint64("persisted_version", uint64(state.Version)).
			Time("saved_at", state.SavedAt).
			Msg("Pattern store restored")
	}

	ranker, err := recommend.NewEngine(cfg.Recommend, opts.Scorer, opts.Logger)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Op: OpInit, Err: err}
	}
	if cfg.Recommend.Diversity.MMRLambda < 1 {
		ranker.RegisterReranker(reranking.NewMMR(cfg.Recommend.Diversity.MMRLambda))
	}
	for _, rr := range opts.Rerankers {
		ranker.RegisterReranker(rr)
	}

	resolver := opts.Resolver
	if resolver != nil && cfg.Ingest.MetadataCacheSize > 0 {
		resolver = ingest.NewCachedResolver(resolver, cfg.Ingest.MetadataCacheSize, cfg.Ingest.MetadataCacheTTL)
	}
	pipeline, err := ingest.NewPipeline(cfg.Ingest, store, resolver, opts.Logger)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Op: OpInit, Err: err}
	}

	var reconciler *tvsync.Reconciler
	if opts.Transport != nil {
		reconciler, err = tvsync.NewReconciler(cfg.Sync, store, opts.Transport, opts.Logger)
		if err != nil {
			return nil, &Error{Kind: KindValidation, Op: OpInit, Err: err}
		}
	}

	lifetime, stop := context.WithCancel(context.Background())
	e := &Engine{
		config:       cfg,
		logger:       logger,
		store:        store,
		ranker:       ranker,
		pipeline:     pipeline,
		reconciler:   reconciler,
		persistence:  persistence,
		lifetime:     lifetime,
		stop:         stop,
		savedVersion: store.Version(),
	}
	e.updateGauges()

	logger.Info().
		Int("patterns", store.Len()).
		Int("capacity", cfg.Store.Capacity).
		Bool("sync_enabled", reconciler != nil).
		Msg("Engine initialized")
	return e, nil
}

// enter admits one operation. Callers must call e.opsMu.RUnlock when it
// returns nil.
func (e *Engine) enter(op string) error {
	e.opsMu.RLock()
	if e.closed.Load() {
		e.opsMu.RUnlock()
		return &Error{Kind: KindClosed, Op: op, Err: ErrClosed}
	}
	return nil
}

func (e *Engine) updateGauges() {
	metrics.UpdateStoreGauges(e.store.Len(), uint64(e.store.Version()))
}

// Start runs the asynchronous ingestion path until the engine shuts down.
// ctx bounds only startup: cancelling it later leaves queued observations
// for Shutdown to drain. Before Start, observations are folded inline.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.enter(OpInit); err != nil {
		return err
	}
	defer e.opsMu.RUnlock()
	return wrap(OpInit, e.pipeline.Start(ctx))
}

// Recommend returns up to k recommendations for vc. k of zero selects the
// configured default.
//
//nolint:gocritic // hugeParam: context passed by value for immutability
func (e *Engine) Recommend(ctx context.Context, vc recommend.ViewingContext, k int) (*recommend.Response, error) {
	return e.RecommendRequest(ctx, recommend.Request{Context: vc, K: k})
}

// RecommendRequest is Recommend with exclusions and a request id.
//
//nolint:gocritic // hugeParam: request passed by value for immutability
func (e *Engine) RecommendRequest(ctx context.Context, req recommend.Request) (*recommend.Response, error) {
	start := time.Now()
	if err := e.enter(OpRecommend); err != nil {
		metrics.RecordRecommend(time.Since(start), "closed")
		return nil, err
	}
	defer e.opsMu.RUnlock()

	if req.K < 0 {
		metrics.RecordRecommend(time.Since(start), "invalid")
		return nil, &Error{Kind: KindValidation, Op: OpRecommend, Err: fmt.Errorf("k must not be negative, got %d", req.K)}
	}
	if req.RequestID == "" {
		req.RequestID = logging.RequestIDFromContext(ctx)
	}

	resp, err := e.ranker.Recommend(ctx, req, e.store.Snapshot())
	if err != nil {
		metrics.RecordRecommend(time.Since(start), "error")
		return nil, wrap(OpRecommend, err)
	}

	result := "ok"
	switch {
	case resp.SafeMode:
		result = "safe_mode"
	case resp.Truncated:
		result = "truncated"
	case len(resp.Items) == 0:
		result = "empty"
	}
	metrics.RecordRecommend(time.Since(start), result)
	return resp, nil
}

// Observe validates ev and folds it into the store. The effect may become
// visible after the call returns.
//
//nolint:gocritic // hugeParam: event passed by value for immutability
func (e *Engine) Observe(ctx context.Context, ev ingest.ViewingEvent) (ingest.Outcome, error) {
	if err := e.enter(OpObserve); err != nil {
		return ingest.Outcome{}, err
	}
	defer e.opsMu.RUnlock()

	out, err := e.pipeline.Observe(ctx, ev)
	if err != nil {
		return out, wrap(OpObserve, err)
	}
	return out, nil
}

// Sync runs one reconciliation with the constellation peer. Failures leave
// the store unchanged and never affect Recommend.
func (e *Engine) Sync(ctx context.Context) (*tvsync.Result, error) {
	if err := e.enter(OpSync); err != nil {
		return nil, err
	}
	defer e.opsMu.RUnlock()

	if e.reconciler == nil {
		return nil, &Error{Kind: KindSyncTransport, Op: OpSync, Err: ErrSyncDisabled}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopAfter := context.AfterFunc(e.lifetime, cancel)
	defer stopAfter()

	res, err := e.reconciler.Sync(ctx)
	e.updateGauges()
	if err != nil {
		return res, wrap(OpSync, err)
	}
	return res, nil
}

// ClearData removes every learned pattern and persists the empty state.
// Queued observations are drained first so they cannot reappear.
func (e *Engine) ClearData(ctx context.Context) error {
	if err := e.enter(OpClearData); err != nil {
		return err
	}
	defer e.opsMu.RUnlock()

	drainCtx, cancel := context.WithTimeout(ctx, e.config.DrainTimeout)
	if err := e.pipeline.Drain(drainCtx); err != nil {
		e.logger.Warn().Err(err).Msg("Clearing data with observations still queued")
	}
	cancel()

	version := e.store.Clear()
	e.updateGauges()
	e.logger.Info().Uint64("version", uint64(version)).Msg("User data cleared")

	if _, err := e.save(ctx, true); err != nil {
		return &Error{Kind: KindPersistence, Op: OpClearData, Err: err}
	}
	return nil
}

// Checkpoint saves the store when it changed since the last save. It
// reports whether a save happened. Failures are logged and counted; the
// engine keeps serving.
func (e *Engine) Checkpoint(ctx context.Context) (bool, error) {
	if err := e.enter("checkpoint"); err != nil {
		return false, err
	}
	defer e.opsMu.RUnlock()

	saved, err := e.save(ctx, false)
	if err != nil {
		return false, &Error{Kind: KindPersistence, Op: "checkpoint", Err: err}
	}
	return saved, nil
}

func (e *Engine) save(ctx context.Context, force bool) (bool, error) {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	if !force && e.store.Version() == e.savedVersion {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.config.PersistTimeout)
	defer cancel()

	start := time.Now()
	state := e.store.State()
	err := e.persistence.Save(ctx, state)
	metrics.RecordCheckpoint(time.Since(start), err)
	if err != nil {
		e.lastSaveErr = err
		e.logger.Error().Err(err).
			Uint64("version", uint64(state.Version)).
			Msg("Failed to persist pattern store")
		return false, err
	}

	e.savedVersion = state.Version
	e.lastSaveAt = state.SavedAt
	e.lastSaveErr = nil
	e.logger.Debug().
		Uint64("version", uint64(state.Version)).
		Int("patterns", len(state.Patterns)).
		Msg("Pattern store persisted")
	return true, nil
}

// Maintain applies decay up to now and evicts down to capacity.
func (e *Engine) Maintain(now time.Time) (int, error) {
	if err := e.enter("maintain"); err != nil {
		return 0, err
	}
	defer e.opsMu.RUnlock()
	return e.maintain(now), nil
}

func (e *Engine) maintain(now time.Time) int {
	e.store.Decay(now)
	evicted := e.store.EvictIfOverCapacity()
	metrics.RecordMaintenanceSweep(evicted)
	e.updateGauges()
	if evicted > 0 {
		e.logger.Info().Int("evicted", evicted).Int("patterns", e.store.Len()).Msg("Evicted patterns over capacity")
	}
	return evicted
}

// SetCapacity changes the store ceiling. The next maintenance pass
// enforces it.
func (e *Engine) SetCapacity(n int) error {
	if err := e.enter("set_capacity"); err != nil {
		return err
	}
	defer e.opsMu.RUnlock()
	if err := e.store.SetCapacity(n); err != nil {
		return &Error{Kind: KindValidation, Op: "set_capacity", Err: err}
	}
	return nil
}

// SyncState returns the reconciler state, or idle when sync is disabled.
func (e *Engine) SyncState() tvsync.State {
	if e.reconciler == nil {
		return tvsync.StateIdle
	}
	return e.reconciler.State()
}

// Shutdown aborts an in-flight sync, drains ingestion, runs a final
// maintenance pass, saves and closes persistence. Later calls return a
// KindClosed error.
func (e *Engine) Shutdown(ctx context.Context) error {
	if !e.closed.CompareAndSwap(false, true) {
		return &Error{Kind: KindClosed, Op: OpShutdown, Err: ErrClosed}
	}
	e.logger.Info().Msg("Engine shutting down")

	e.stop()
	if e.reconciler != nil && e.reconciler.Abort() {
		e.logger.Info().Msg("Aborted in-flight sync")
	}

	// Wait for in-flight operations.
	e.opsMu.Lock()
	defer e.opsMu.Unlock()

	var errs []error
	drainCtx, cancel := context.WithTimeout(ctx, e.config.DrainTimeout)
	if err := e.pipeline.Drain(drainCtx); err != nil {
		errs = append(errs, err)
	}
	cancel()
	if err := e.pipeline.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close ingestion: %w", err))
	}

	e.maintain(e.store.Config().Now())

	_, saveErr := e.save(ctx, true)
	if err := e.persistence.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close persistence: %w", err))
	}

	if saveErr != nil {
		return &Error{Kind: KindPersistence, Op: OpShutdown, Err: errors.Join(append([]error{saveErr}, errs...)...)}
	}
	if len(errs) > 0 {
		return wrap(OpShutdown, errors.Join(errs...))
	}
	e.logger.Info().Uint64("version", uint64(e.store.Version())).Msg("Engine shut down")
	return nil
}
