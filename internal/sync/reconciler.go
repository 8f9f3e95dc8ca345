// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	stdsync "sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tvbrain/internal/logging"
	"github.com/tomtom215/tvbrain/internal/metrics"
	"github.com/tomtom215/tvbrain/internal/patterns"
)

var (
	// ErrSyncInProgress is returned when Sync is called while another
	// attempt has not finished.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrAborted is the cause carried by a TransportError after Abort.
	ErrAborted = errors.New("sync aborted")
)

// TransportError reports a failed, timed out or cancelled exchange.
// The store is unchanged.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "sync transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ConflictError reports a peer response that could not be decoded or
// merged. The store is unchanged.
type ConflictError struct {
	Err error
}

func (e *ConflictError) Error() string {
	return "sync conflict: " + e.Err.Error()
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// State is the reconciler's position in one sync attempt.
type State int

const (
	StateIdle State = iota
	StateExporting
	StateAwaitingPeer
	StateMerging
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExporting:
		return "exporting"
	case StateAwaitingPeer:
		return "awaiting_peer"
	case StateMerging:
		return "merging"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome labels, also used as the sync metrics result label.
const (
	OutcomeSuccess   = "success"
	OutcomeTransport = "transport_error"
	OutcomeConflict  = "conflict"
	OutcomeInternal  = "internal_error"
)

// ExchangeRequest is one outbound delta.
type ExchangeRequest struct {
	DeviceID string
	Version  uint64
	Payload  []byte
}

// Transport carries a compressed delta to the peer and returns its
// compressed global set.
type Transport interface {
	Exchange(ctx context.Context, req ExchangeRequest) ([]byte, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req ExchangeRequest) ([]byte, error)

// Exchange calls f.
func (f TransportFunc) Exchange(ctx context.Context, req ExchangeRequest) ([]byte, error) {
	return f(ctx, req)
}

// Store is the part of the pattern store the reconciler uses.
type Store interface {
	Snapshot() *patterns.Snapshot
	MergeFederated(set patterns.FederatedSet) (patterns.MergeResult, error)
	MarkSynced(t time.Time)
	LastSync() time.Time
}

// Result summarizes one sync attempt.
type Result struct {
	Outcome       string               `json:"outcome"`
	FailedIn      string               `json:"failed_in,omitempty"`
	StartedAt     time.Time            `json:"started_at"`
	Duration      time.Duration        `json:"duration"`
	Exported      int                  `json:"exported"`
	Trimmed       int                  `json:"trimmed"`
	BytesSent     int                  `json:"bytes_sent"`
	BytesReceived int                  `json:"bytes_received"`
	Received      int                  `json:"received"`
	TrendsApplied int                  `json:"trends_applied"`
	TrendsSkipped int                  `json:"trends_skipped"`
	PeerVersion   uint64               `json:"peer_version"`
	Merge         patterns.MergeResult `json:"merge"`
	Err           error                `json:"-"`
}

// Reconciler exchanges significant local patterns for the peer's aggregated
// set. At most one attempt runs at a time; the store is never locked across
// the network round trip.
type Reconciler struct {
	config    *Config
	store     Store
	transport Transport
	logger    zerolog.Logger
	now       func() time.Time

	mu         stdsync.Mutex
	state      State
	cancel     context.CancelFunc
	aborted    bool
	lastResult *Result
}

// NewReconciler creates a reconciler for store using transport.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewReconciler(cfg *Config, store Store, transport Transport, logger zerolog.Logger) (*Reconciler, error) {
	if cfg == nil {
		return nil, errors.New("sync: config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if store == nil {
		return nil, errors.New("sync: store is required")
	}
	if transport == nil {
		return nil, errors.New("sync: transport is required")
	}

	return &Reconciler{
		config:    cfg.Clone(),
		store:     store,
		transport: transport,
		logger: logger.With().
			Str("component", "sync").
			Str("device_id", logging.SanitizeDeviceID(cfg.DeviceID)).
			Logger(),
		now: time.Now,
	}, nil
}

// State returns the current state.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// LastSync returns the time of the last successful merge.
func (r *Reconciler) LastSync() time.Time {
	return r.store.LastSync()
}

// LastResult returns the most recent attempt's result, or nil.
func (r *Reconciler) LastResult() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastResult == nil {
		return nil
	}
	cp := *r.lastResult
	return &cp
}

// Abort cancels an in-flight exchange. It reports whether an attempt was
// running.
func (r *Reconciler) Abort() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel == nil {
		return false
	}
	r.aborted = true
	r.cancel()
	return true
}

// Sync runs one attempt. Transport failures return a *TransportError and
// undecodable or unmergeable responses a *ConflictError; in both cases the
// store is unchanged. A concurrent call returns ErrSyncInProgress.
func (r *Reconciler) Sync(ctx context.Context) (*Result, error) {
	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	attemptCtx, cancel := context.WithCancel(ctx)
	r.state = StateExporting
	r.cancel = cancel
	r.aborted = false
	r.mu.Unlock()
	defer cancel()

	res := &Result{StartedAt: r.now()}
	err := r.run(attemptCtx, res)
	res.Duration = r.now().Sub(res.StartedAt)
	res.Err = err

	res.Outcome = outcomeOf(err)

	r.mu.Lock()
	if err != nil {
		res.FailedIn = r.state.String()
		r.state = StateFailed
	}
	r.lastResult = res
	r.cancel = nil
	r.mu.Unlock()

	metrics.RecordSyncAttempt(res.Duration, res.Outcome, res.Exported, metrics.SyncMergeCounts{
		Inserted: res.Merge.Inserted,
		Updated:  res.Merge.Updated,
		Skipped:  res.TrendsSkipped,
	})

	if err != nil {
		r.logger.Warn().
			Err(err).
			Str("outcome", res.Outcome).
			Str("failed_in", res.FailedIn).
			Int("exported", res.Exported).
			Dur("duration", res.Duration).
			Msg("Sync attempt failed")
		r.setState(StateIdle)
		return res, err
	}

	r.setState(StateIdle)
	r.logger.Info().
		Int("exported", res.Exported).
		Int("trimmed", res.Trimmed).
		Int("received", res.Received).
		Int("inserted", res.Merge.Inserted).
		Int("updated", res.Merge.Updated).
		Int("trends", res.TrendsApplied).
		Uint64("peer_version", res.PeerVersion).
		Dur("duration", res.Duration).
		Msg("Sync complete")
	return res, nil
}

func (r *Reconciler) run(ctx context.Context, res *Result) error {
	// Exporting
	snap := r.store.Snapshot()
	selected := selectExports(snap, r.config)
	delta := &Delta{
		DeviceID:  r.config.DeviceID,
		Patterns:  selected,
		Version:   uint64(snap.Version()),
		Timestamp: r.now().UTC(),
	}
	payload, err := EncodeDelta(delta, r.config.MaxDeltaBytes)
	if err != nil {
		return fmt.Errorf("encode delta: %w", err)
	}
	res.Exported = len(delta.Patterns)
	res.Trimmed = len(selected) - len(delta.Patterns)
	res.BytesSent = len(payload)
	metrics.RecordSyncPayload("out", len(payload))

	// AwaitingPeer
	r.setState(StateAwaitingPeer)
	exchangeCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	response, err := r.transport.Exchange(exchangeCtx, ExchangeRequest{
		DeviceID: delta.DeviceID,
		Version:  delta.Version,
		Payload:  payload,
	})
	cancel()
	if err != nil {
		if r.wasAborted() {
			err = fmt.Errorf("%w: %w", ErrAborted, err)
		}
		return &TransportError{Err: err}
	}
	res.BytesReceived = len(response)
	metrics.RecordSyncPayload("in", len(response))

	global, err := DecodeGlobal(response, r.config.MaxGlobalBytes)
	if err != nil {
		return &ConflictError{Err: err}
	}
	res.PeerVersion = global.Version
	res.Received = len(global.Patterns)

	// Merging
	r.setState(StateMerging)
	now := r.now()
	set, skipped := global.FederatedSet(now, r.config.TrendFreshness)
	res.TrendsSkipped = skipped
	res.TrendsApplied = len(set.Patterns) - len(global.Patterns)

	merged, err := r.store.MergeFederated(set)
	if err != nil {
		return &ConflictError{Err: err}
	}
	res.Merge = merged
	r.store.MarkSynced(now)
	return nil
}

func (r *Reconciler) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *Reconciler) wasAborted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.aborted
}

func outcomeOf(err error) string {
	var te *TransportError
	var ce *ConflictError
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.As(err, &te):
		return OutcomeTransport
	case errors.As(err, &ce):
		return OutcomeConflict
	default:
		return OutcomeInternal
	}
}

// selectExports picks local patterns with enough evidence, ranked by
// significance (ties by id) and capped at the export budget.
func selectExports(snap *patterns.Snapshot, cfg *Config) []WirePattern {
	all := snap.Patterns()
	candidates := make([]*patterns.Pattern, 0, len(all))
	for i := range all {
		p := &all[i]
		if p.Origin != patterns.OriginLocal {
			continue
		}
		if p.Samples < cfg.MinSamples || p.Score < cfg.MinScore {
			continue
		}
		candidates = append(candidates, p)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := candidates[i].Significance(), candidates[j].Significance()
		if si != sj {
			return si > sj
		}
		return candidates[i].ID < candidates[j].ID
	})
	if len(candidates) > cfg.ExportBudget {
		candidates = candidates[:cfg.ExportBudget]
	}

	out := make([]WirePattern, len(candidates))
	for i, p := range candidates {
		out[i] = WirePattern{
			ID:          p.ID,
			Score:       p.Score,
			SampleCount: p.Samples,
			Genre:       p.Genre(),
		}
	}
	return out
}
