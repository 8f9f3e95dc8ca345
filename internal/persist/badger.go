// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/tvbrain/internal/patterns"
)

// Errors
var (
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("persistence store is closed")

	// ErrCorrupt is returned when the stored generation does not match its
	// metadata record.
	ErrCorrupt = errors.New("persisted state is corrupt")
)

// Key layout:
//
//	meta                      -> metaRecord (current generation)
//	gen:<016x>:p:<pattern id> -> patterns.Pattern
//
// A save writes a complete new generation, switches meta to it in one
// transaction and then drops the previous generation. A crash at any point
// leaves meta pointing at a complete generation.
const (
	keyMeta   = "meta"
	prefixGen = "gen:"
)

type metaRecord struct {
	Generation uint64           `json:"generation"`
	Version    patterns.Version `json:"version"`
	SavedAt    time.Time        `json:"saved_at"`
	Count      int              `json:"count"`
	Checksum   uint64           `json:"checksum"`
}

func generationPrefix(gen uint64) []byte {
	return []byte(fmt.Sprintf("%s%016x:p:", prefixGen, gen))
}

// parseGeneration extracts the generation from a pattern key.
func parseGeneration(key []byte) (uint64, bool) {
	rest := bytes.TrimPrefix(key, []byte(prefixGen))
	if len(rest) < 16 || len(rest) == len(key) {
		return 0, false
	}
	gen, err := strconv.ParseUint(string(rest[:16]), 16, 64)
	if err != nil {
		return 0, false
	}
	return gen, true
}

// Stats reports persistence counters.
type Stats struct {
	Saves      int64
	Loads      int64
	Failures   int64
	Generation uint64
	LastSaveAt time.Time
	LSMBytes   int64
	VLogBytes  int64
}

// BadgerStore persists pattern store state in BadgerDB.
type BadgerStore struct {
	db     *badger.DB
	config Config
	logger zerolog.Logger

	saves    atomic.Int64
	loads    atomic.Int64
	failures atomic.Int64

	// saveMu serializes Save so generations never interleave.
	saveMu     sync.Mutex
	generation uint64
	lastSave   time.Time

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the store described by cfg.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func Open(cfg Config, logger zerolog.Logger) (*BadgerStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid persist config: %w", err)
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites
	opts.MemTableSize = cfg.MemTableSize
	opts.ValueLogFileSize = cfg.ValueLogFileSize
	opts.NumCompactors = cfg.NumCompactors
	if cfg.BlockCacheSize > 0 {
		opts.BlockCacheSize = cfg.BlockCacheSize
	}
	if cfg.Compression {
		opts.Compression = options.Snappy
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	s := &BadgerStore{
		db:     db,
		config: cfg,
		logger: logger.With().Str("component", "persist").Logger(),
	}

	meta, err := s.readMeta()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if meta != nil {
		s.generation = meta.Generation
		s.lastSave = meta.SavedAt
	}
	if dropped, err := s.dropStaleGenerations(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to drop stale generations")
	} else if dropped > 0 {
		s.logger.Info().Int("generations", dropped).Msg("Dropped incomplete generations")
	}

	s.logger.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Uint64("generation", s.generation).
		Msg("Persistence store opened")
	return s, nil
}

func (s *BadgerStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *BadgerStore) readMeta() (*metaRecord, error) {
	var meta *metaRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyMeta))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get meta: %w", err)
		}
		return item.Value(func(val []byte) error {
			var m metaRecord
			if err := json.Unmarshal(val, &m); err != nil {
				return fmt.Errorf("%w: meta record: %w", ErrCorrupt, err)
			}
			meta = &m
			return nil
		})
	})
	return meta, err
}

// dropStaleGenerations removes generations left behind by an interrupted save.
func (s *BadgerStore) dropStaleGenerations() (int, error) {
	stale := make(map[uint64]struct{})
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixGen)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			gen, ok := parseGeneration(it.Item().Key())
			if ok && gen != s.generation {
				stale[gen] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan generations: %w", err)
	}
	for gen := range stale {
		if err := s.db.DropPrefix(generationPrefix(gen)); err != nil {
			return 0, fmt.Errorf("drop generation %d: %w", gen, err)
		}
	}
	return len(stale), nil
}

// Load returns the last saved state, or nil if nothing was ever saved.
func (s *BadgerStore) Load(ctx context.Context) (*patterns.State, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	meta, err := s.readMeta()
	if err != nil {
		s.failures.Add(1)
		return nil, err
	}
	if meta == nil {
		return nil, nil
	}

	state := &patterns.State{
		Version:  meta.Version,
		SavedAt:  meta.SavedAt,
		Patterns: make([]patterns.Pattern, 0, meta.Count),
	}
	digest := xxhash.New()
	err = s.db.View(func(txn *badger.Txn) error {
		prefix := generationPrefix(meta.Generation)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(val []byte) error {
				_, _ = digest.Write(val)
				var p patterns.Pattern
				if err := json.Unmarshal(val, &p); err != nil {
					return fmt.Errorf("%w: pattern record: %w", ErrCorrupt, err)
				}
				state.Patterns = append(state.Patterns, p)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.failures.Add(1)
		return nil, err
	}
	if len(state.Patterns) != meta.Count || digest.Sum64() != meta.Checksum {
		s.failures.Add(1)
		return nil, fmt.Errorf("%w: generation %d has %d patterns, expected %d",
			ErrCorrupt, meta.Generation, len(state.Patterns), meta.Count)
	}

	s.loads.Add(1)
	s.logger.Debug().
		Uint64("version", uint64(state.Version)).
		Int("patterns", len(state.Patterns)).
		Msg("State loaded")
	return state, nil
}

// Save replaces the stored state.
//
//nolint:gocritic // hugeParam: state is consumed once
func (s *BadgerStore) Save(ctx context.Context, state patterns.State) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if err := s.save(ctx, &state); err != nil {
		s.failures.Add(1)
		return err
	}
	s.saves.Add(1)
	return nil
}

func (s *BadgerStore) save(ctx context.Context, state *patterns.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Keys are iterated in id order on load, so the checksum is taken in
	// the same order.
	order := make([]int, len(state.Patterns))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return state.Patterns[order[a]].ID < state.Patterns[order[b]].ID
	})

	next := s.generation + 1
	prefix := generationPrefix(next)
	digest := xxhash.New()

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, i := range order {
		p := &state.Patterns[i]
		val, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal pattern: %w", err)
		}
		_, _ = digest.Write(val)
		key := append(append([]byte(nil), prefix...), p.ID...)
		if err := wb.Set(key, val); err != nil {
			return fmt.Errorf("write pattern: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush generation: %w", err)
	}

	if err := ctx.Err(); err != nil {
		_ = s.db.DropPrefix(prefix)
		return err
	}

	savedAt := state.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now().UTC()
	}
	meta, err := json.Marshal(&metaRecord{
		Generation: next,
		Version:    state.Version,
		SavedAt:    savedAt,
		Count:      len(state.Patterns),
		Checksum:   digest.Sum64(),
	})
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyMeta), meta)
	})
	if err != nil {
		_ = s.db.DropPrefix(prefix)
		return fmt.Errorf("commit meta: %w", err)
	}

	previous := s.generation
	s.generation = next
	s.lastSave = savedAt

	if previous > 0 {
		if err := s.db.DropPrefix(generationPrefix(previous)); err != nil {
			// Dropped again on next open.
			s.logger.Warn().Err(err).Uint64("generation", previous).Msg("Failed to drop previous generation")
		}
	}

	s.logger.Debug().
		Uint64("generation", next).
		Uint64("version", uint64(state.Version)).
		Int("patterns", len(state.Patterns)).
		Msg("State saved")
	return nil
}

// RunGC reclaims value log space until badger reports nothing to rewrite.
func (s *BadgerStore) RunGC() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.config.InMemory {
		return nil
	}
	for {
		err := s.db.RunValueLogGC(s.config.GCRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// Stats returns a snapshot of the store counters.
func (s *BadgerStore) Stats() Stats {
	s.saveMu.Lock()
	gen, last := s.generation, s.lastSave
	s.saveMu.Unlock()

	st := Stats{
		Saves:      s.saves.Load(),
		Loads:      s.loads.Load(),
		Failures:   s.failures.Load(),
		Generation: gen,
		LastSaveAt: last,
	}
	if s.checkOpen() == nil {
		st.LSMBytes, st.VLogBytes = s.db.Size()
	}
	return st
}

// Close flushes and closes the database. Closing twice is a no-op.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	// Wait for an in-flight save.
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- s.db.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close BadgerDB: %w", err)
		}
		s.logger.Info().Msg("Persistence store closed")
		return nil
	case <-time.After(s.config.CloseTimeout):
		s.logger.Warn().Dur("timeout", s.config.CloseTimeout).Msg("BadgerDB close timed out")
		return fmt.Errorf("badgerdb close timeout after %v", s.config.CloseTimeout)
	}
}
