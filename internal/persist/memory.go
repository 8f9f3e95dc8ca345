// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package persist

import (
	"context"
	"sync"

	"github.com/tomtom215/tvbrain/internal/patterns"
)

// MemoryStore keeps the saved state in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	state  *patterns.State
	saves  int
	closed bool

	// SaveErr, when set, is returned by Save instead of storing.
	SaveErr error
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func cloneState(in *patterns.State) *patterns.State {
	out := &patterns.State{
		Version:  in.Version,
		SavedAt:  in.SavedAt,
		Patterns: make([]patterns.Pattern, len(in.Patterns)),
	}
	for i := range in.Patterns {
		out.Patterns[i] = in.Patterns[i].Clone()
	}
	return out
}

// Load returns a copy of the last saved state, or nil.
func (m *MemoryStore) Load(ctx context.Context) (*patterns.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if m.state == nil {
		return nil, nil
	}
	return cloneState(m.state), nil
}

// Save stores a copy of state.
//
//nolint:gocritic // hugeParam: state is consumed once
func (m *MemoryStore) Save(ctx context.Context, state patterns.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.state = cloneState(&state)
	m.saves++
	return nil
}

// Saves returns the number of successful saves.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Close marks the store closed. The saved state is kept for inspection.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
