// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/tvbrain/internal/engine"
	"github.com/tomtom215/tvbrain/internal/logging"
)

// statusProvider is satisfied by *engine.Engine.
type statusProvider interface {
	Status() engine.Status
}

// syncTrigger is satisfied by *services.SyncService.
type syncTrigger interface {
	Trigger() bool
}

// newRouter builds the device's local endpoint. It listens on loopback by
// default and carries no authentication. trigger may be nil when sync is
// disabled.
func newRouter(eng statusProvider, trigger syncTrigger) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		st := eng.Status()
		if st.Closed {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "closed"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, eng.Status())
	})

	r.Post("/sync", func(w http.ResponseWriter, _ *http.Request) {
		if trigger == nil {
			writeJSON(w, http.StatusConflict, map[string]string{"status": "sync disabled"})
			return
		}
		if !trigger.Trigger() {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"status": "rate limited"})
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "triggered"})
	})

	r.Handle("/metrics", promhttp.Handler())
	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug().Err(err).Msg("Failed to write response")
	}
}
