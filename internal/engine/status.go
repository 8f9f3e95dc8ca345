// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package engine

import (
	"time"

	"github.com/tomtom215/tvbrain/internal/ingest"
	"github.com/tomtom215/tvbrain/internal/recommend"
	tvsync "github.com/tomtom215/tvbrain/internal/sync"
)

// Status is a point-in-time view of an engine.
type Status struct {
	Closed      bool   `json:"closed"`
	Version     uint64 `json:"version"`
	Patterns    int    `json:"patterns"`
	Capacity    int    `json:"capacity"`
	SyncEnabled bool   `json:"sync_enabled"`
	SyncState   string `json:"sync_state"`

	LastSync       time.Time      `json:"last_sync"`
	LastSyncResult *tvsync.Result `json:"last_sync_result,omitempty"`

	SavedVersion  uint64    `json:"saved_version"`
	LastSaveAt    time.Time `json:"last_save_at"`
	LastSaveError string    `json:"last_save_error,omitempty"`

	Ingest    ingest.Stats    `json:"ingest"`
	Recommend recommend.Stats `json:"recommend"`
}

// Status reports the engine state. It is available after Shutdown.
func (e *Engine) Status() Status {
	st := Status{
		Closed:      e.closed.Load(),
		Version:     uint64(e.store.Version()),
		Patterns:    e.store.Len(),
		Capacity:    e.store.Config().Capacity,
		SyncEnabled: e.reconciler != nil,
		SyncState:   e.SyncState().String(),
		LastSync:    e.store.LastSync(),
		Ingest:      e.pipeline.Stats(),
		Recommend:   e.ranker.Stats(),
	}
	if e.reconciler != nil {
		st.LastSyncResult = e.reconciler.LastResult()
	}

	e.saveMu.Lock()
	st.SavedVersion = uint64(e.savedVersion)
	st.LastSaveAt = e.lastSaveAt
	if e.lastSaveErr != nil {
		st.LastSaveError = e.lastSaveErr.Error()
	}
	e.saveMu.Unlock()
	return st
}
