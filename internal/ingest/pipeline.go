// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/tvbrain/internal/logging"
	"github.com/tomtom215/tvbrain/internal/metrics"
	"github.com/tomtom215/tvbrain/internal/patterns"
)

// ErrClosed is returned by Observe and Start after Close.
var ErrClosed = errors.New("ingestion pipeline closed")

const foldHandlerName = "fold-observations"

// Store is the part of the pattern store the pipeline writes to.
type Store interface {
	UpsertWithFeatures(id string, deltaScore, sampleWeight float64, ts time.Time, features []string) (patterns.Version, error)
}

// Outcome describes how an accepted event was handled.
type Outcome struct {
	// Accepted is set for every event that passed validation.
	Accepted bool `json:"accepted"`

	// Deferred is set when the fold was queued rather than applied inline.
	// The effect becomes visible once the pipeline drains.
	Deferred bool `json:"deferred"`

	// Reward and Weight are the values folded into the store.
	Reward float64 `json:"reward"`
	Weight float64 `json:"weight"`

	// Critique is a label for the watch fraction.
	Critique string `json:"critique"`
}

// Stats is a point-in-time copy of the pipeline counters.
type Stats struct {
	Accepted int64 `json:"accepted"`
	Deferred int64 `json:"deferred"`
	Inline   int64 `json:"inline"`
	Rejected int64 `json:"rejected"`
	Applied  int64 `json:"applied"`
	Failed   int64 `json:"failed"`
	InFlight int   `json:"in_flight"`
}

// Pipeline validates viewing events and folds them into a pattern store.
//
// Once started, folds are published to an in-process watermill topic and
// applied by a router handler, so metadata lookups never run on the
// caller's goroutine. Before Start, after the router stops, or when
// QueueSize folds are already in flight, folds are applied inline with
// only the features a LocalResolver can answer from memory.
type Pipeline struct {
	config   *Config
	store    Store
	resolver MetadataResolver
	logger   zerolog.Logger
	wmLogger watermill.LoggerAdapter
	now      func() time.Time

	pubsub     *gochannel.GoChannel
	router     *message.Router
	stopRouter context.CancelFunc

	mu      sync.Mutex
	pending int
	idle    chan struct{}
	started bool
	running bool
	closed  bool

	accepted atomic.Int64
	deferred atomic.Int64
	inline   atomic.Int64
	rejected atomic.Int64
	applied  atomic.Int64
	failed   atomic.Int64
}

// NewPipeline creates a pipeline writing to store. A nil resolver folds
// content ids and event genres only.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewPipeline(cfg *Config, store Store, resolver MetadataResolver, logger zerolog.Logger) (*Pipeline, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if store == nil {
		return nil, errors.New("ingest: store is required")
	}

	logger = logger.With().Str("component", "ingest").Logger()
	wmLogger := watermill.NewSlogLogger(slog.New(logging.NewSlogHandlerWithLogger(logger)))

	return &Pipeline{
		config:   cfg.Clone(),
		store:    store,
		resolver: resolver,
		logger:   logger,
		wmLogger: wmLogger,
		now:      time.Now,
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: int64(cfg.QueueSize),
		}, wmLogger),
		idle: make(chan struct{}),
	}, nil
}

// Start runs the router until Close. ctx only bounds the wait for the fold
// handler to subscribe; the router keeps running after ctx is cancelled so
// Close can still drain queued folds. Calling Start twice is a no-op.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = true
	p.mu.Unlock()

	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: p.config.CloseTimeout,
	}, p.wmLogger)
	if err != nil {
		return fmt.Errorf("create watermill router: %w", err)
	}

	// settle is outermost so every delivery is acked and released exactly once.
	router.AddMiddleware(p.settle, middleware.Recoverer)
	router.AddConsumerHandler(foldHandlerName, p.config.Topic, p.pubsub, p.handle)

	runCtx, stopRouter := context.WithCancel(context.WithoutCancel(ctx))
	go func() {
		if err := router.Run(runCtx); err != nil {
			p.logger.Error().Err(err).Msg("ingestion router stopped with error")
		}
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	select {
	case <-router.Running():
	case <-ctx.Done():
		stopRouter()
		return ctx.Err()
	}

	p.mu.Lock()
	p.router = router
	p.stopRouter = stopRouter
	p.running = !p.closed
	p.mu.Unlock()

	p.logger.Info().
		Str("topic", p.config.Topic).
		Int("queue_size", p.config.QueueSize).
		Msg("ingestion pipeline started")
	return nil
}

// Observe validates ev and folds it into the store, asynchronously when
// the pipeline is running. Validation failures return *ValidationError.
//
//nolint:gocritic // hugeParam: event passed by value for immutability
func (p *Pipeline) Observe(ctx context.Context, ev ViewingEvent) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, fmt.Errorf("observe: %w", err)
	}
	if err := ev.Validate(); err != nil {
		p.rejected.Add(1)
		metrics.RecordObservation("rejected")
		return Outcome{}, err
	}

	f := newFold(ev, p.config, p.now())
	out := Outcome{
		Accepted: true,
		Reward:   f.Reward,
		Weight:   f.Weight,
		Critique: Critique(ev.WatchPct),
	}

	queued, err := p.publish(f)
	if err != nil {
		return Outcome{}, err
	}
	if queued {
		p.accepted.Add(1)
		p.deferred.Add(1)
		metrics.RecordObservation("async")
		out.Deferred = true
		return out, nil
	}

	if err := p.apply(f, p.localFeatures(f)); err != nil {
		return Outcome{}, err
	}
	p.accepted.Add(1)
	p.inline.Add(1)
	metrics.RecordObservation("sync")
	return out, nil
}

// publish queues f when the router is running and has room. It reports
// false when the caller must apply the fold itself.
func (p *Pipeline) publish(f fold) (bool, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false, ErrClosed
	}
	if !p.running || p.pending >= p.config.QueueSize {
		p.mu.Unlock()
		return false, nil
	}
	p.pending++
	pending := p.pending
	p.mu.Unlock()
	metrics.SetIngestInFlight(pending)

	payload, err := json.Marshal(f)
	if err != nil {
		p.release()
		return false, fmt.Errorf("encode fold: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := p.pubsub.Publish(p.config.Topic, msg); err != nil {
		p.release()
		p.logger.Warn().Err(err).Msg("publish failed, folding inline")
		return false, nil
	}
	return true, nil
}

// release marks one queued fold as finished.
func (p *Pipeline) release() {
	p.mu.Lock()
	p.pending--
	pending := p.pending
	if pending == 0 {
		close(p.idle)
		p.idle = make(chan struct{})
	}
	p.mu.Unlock()
	metrics.SetIngestInFlight(pending)
}

// settle acks every delivery after the inner handler ran, logging failures
// instead of letting the pub/sub redeliver them.
func (p *Pipeline) settle(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		defer p.release()
		if _, err := h(msg); err != nil {
			p.logger.Error().Err(err).
				Str("message_uuid", msg.UUID).
				Msg("dropping observation")
		}
		return nil, nil
	}
}

// handle is the router handler for queued folds.
func (p *Pipeline) handle(msg *message.Message) error {
	var f fold
	if err := json.Unmarshal(msg.Payload, &f); err != nil {
		p.failed.Add(1)
		return fmt.Errorf("decode fold: %w", err)
	}
	return p.apply(f, p.features(msg.Context(), f))
}

// apply upserts the content id and every feature id with the same reward
// and weight.
func (p *Pipeline) apply(f fold, features []string) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordFold(time.Since(start), err)
		if err != nil {
			p.failed.Add(1)
			return
		}
		p.applied.Add(1)
	}()

	if _, err := p.store.UpsertWithFeatures(f.ContentID, f.Reward, f.Weight, f.Timestamp, features); err != nil {
		return fmt.Errorf("fold %s: %w", f.ContentID, err)
	}

	var errs []error
	for _, id := range features {
		if _, err := p.store.UpsertWithFeatures(id, f.Reward, f.Weight, f.Timestamp, nil); err != nil {
			errs = append(errs, fmt.Errorf("fold %s: %w", id, err))
		}
	}

	p.logger.Debug().
		Str("content_id", f.ContentID).
		Float64("reward", f.Reward).
		Float64("weight", f.Weight).
		Int("features", len(features)).
		Msg("observation folded")
	return errors.Join(errs...)
}

// features returns the event genre plus resolved metadata as feature ids.
// Resolver failures degrade to the event genre alone.
func (p *Pipeline) features(ctx context.Context, f fold) []string {
	if p.resolver == nil {
		return mergeFeatures(f.Genre, Metadata{})
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.ResolveTimeout)
	defer cancel()

	md, err := p.resolver.Resolve(ctx, f.ContentID)
	if err != nil {
		if !errors.Is(err, ErrUnknownContent) {
			p.logger.Warn().Err(err).Msg("metadata lookup failed, folding without features")
		}
		return mergeFeatures(f.Genre, Metadata{})
	}
	return mergeFeatures(f.Genre, md)
}

// localFeatures is features for the caller's goroutine: the resolver is
// consulted only if it can answer from memory.
func (p *Pipeline) localFeatures(f fold) []string {
	local, ok := p.resolver.(LocalResolver)
	if !ok {
		return mergeFeatures(f.Genre, Metadata{})
	}
	md, _ := local.Lookup(f.ContentID)
	return mergeFeatures(f.Genre, md)
}

func mergeFeatures(genre string, md Metadata) []string {
	var ids []string
	if genre != "" {
		ids = append(ids, patterns.GenreID(genre))
	}
	for _, id := range md.FeatureIDs() {
		if slices.Contains(ids, id) {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// Drain blocks until every queued fold has been applied or ctx expires.
func (p *Pipeline) Drain(ctx context.Context) error {
	p.mu.Lock()
	if p.pending == 0 {
		p.mu.Unlock()
		return nil
	}
	idle := p.idle
	p.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain ingestion pipeline: %w", ctx.Err())
	}
}

// Close stops accepting events, drains queued folds for up to CloseTimeout
// and stops the router. Later calls are no-ops.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	router := p.router
	stopRouter := p.stopRouter
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), p.config.CloseTimeout)
	defer cancel()

	var errs []error
	if err := p.Drain(ctx); err != nil {
		p.logger.Warn().Err(err).Int("in_flight", p.Stats().InFlight).Msg("closing with folds still queued")
		errs = append(errs, err)
	}
	if router != nil {
		if err := router.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close router: %w", err))
		}
		stopRouter()
	}
	if err := p.pubsub.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close pubsub: %w", err))
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	p.logger.Info().Msg("ingestion pipeline closed")
	return errors.Join(errs...)
}

// Running reports whether folds are currently queued rather than applied inline.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Stats returns the pipeline counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	inFlight := p.pending
	p.mu.Unlock()

	return Stats{
		Accepted: p.accepted.Load(),
		Deferred: p.deferred.Load(),
		Inline:   p.inline.Load(),
		Rejected: p.rejected.Load(),
		Applied:  p.applied.Load(),
		Failed:   p.failed.Load(),
		InFlight: inFlight,
	}
}
