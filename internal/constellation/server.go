// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package constellation

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tomtom215/tvbrain/internal/auth"
	"github.com/tomtom215/tvbrain/internal/logging"
	"github.com/tomtom215/tvbrain/internal/metrics"
	tvsync "github.com/tomtom215/tvbrain/internal/sync"
)

// Server exposes an Aggregator over HTTP.
type Server struct {
	config *Config
	agg    *Aggregator
	tokens *auth.TokenManager
	logger zerolog.Logger
	router chi.Router
}

// NewServer builds the peer's router. Bearer verification is enabled when
// cfg.TokenSecret is set.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewServer(cfg *Config, agg *Aggregator, logger zerolog.Logger) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		config: cfg.Clone(),
		agg:    agg,
		logger: logger.With().Str("component", "constellation_server").Logger(),
	}
	if cfg.TokenSecret != "" {
		tm, err := auth.NewTokenManager(cfg.TokenSecret, time.Hour)
		if err != nil {
			return nil, err
		}
		s.tokens = tm
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(recordRequests)

	r.Get(tvsync.EndpointHealth, s.handleHealth)
	r.Get(tvsync.EndpointVersion, s.handleVersion)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit())
		r.Use(s.authenticate)
		r.Post(tvsync.EndpointSync, s.handleSync)
	})
	return r
}

// requestID wraps chi's RequestID and carries the id into the logging
// context.
func requestID(next http.Handler) http.Handler {
	chiRequestID := chimiddleware.RequestID(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(chimiddleware.RequestIDHeader)
		if id == "" {
			id = logging.GenerateRequestID()
			r.Header.Set(chimiddleware.RequestIDHeader, id)
		}
		ctx := logging.ContextWithRequestID(r.Context(), id)
		chiRequestID.ServeHTTP(w, r.WithContext(ctx))
	})
}

func recordRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			endpoint = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordAPIRequest(r.Method, endpoint, strconv.Itoa(status), time.Since(start))
	})
}

// rateLimit limits sync requests per device, falling back to the client IP
// when the device header is missing.
func (s *Server) rateLimit() func(http.Handler) http.Handler {
	if s.config.RateLimitDisabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	return httprate.Limit(
		s.config.RateLimitRequests,
		s.config.RateLimitWindow,
		httprate.WithKeyFuncs(keyByDevice),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.RecordDeltaReceived("rate_limited")
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many sync requests")
		}),
	)
}

func keyByDevice(r *http.Request) (string, error) {
	if id := r.Header.Get(tvsync.HeaderDeviceID); id != "" {
		return "device:" + id, nil
	}
	return httprate.KeyByIP(r)
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	if s.tokens == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			metrics.RecordDeltaReceived("unauthorized")
			writeError(w, http.StatusUnauthorized, "unauthorized", "bearer token required")
			return
		}
		claims, err := s.tokens.Verify(token)
		if err != nil {
			metrics.RecordDeltaReceived("unauthorized")
			s.logger.Warn().Err(err).Msg("Rejected device token")
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid bearer token")
			return
		}
		if claims.DeviceID() != r.Header.Get(tvsync.HeaderDeviceID) {
			metrics.RecordDeltaReceived("unauthorized")
			writeError(w, http.StatusForbidden, "forbidden", "token does not match device")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, int64(s.config.MaxDeltaBytes)+1))
	if err != nil {
		metrics.RecordDeltaReceived("malformed")
		writeError(w, http.StatusBadRequest, "bad_request", "could not read body")
		return
	}
	if len(body) > s.config.MaxDeltaBytes {
		metrics.RecordDeltaReceived("too_large")
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", "delta exceeds size limit")
		return
	}

	delta, err := tvsync.DecodeDelta(body, s.config.MaxDeltaBytes)
	if err != nil {
		metrics.RecordDeltaReceived("malformed")
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Malformed delta")
		writeError(w, http.StatusBadRequest, "malformed", "delta could not be decoded")
		return
	}
	ctx := logging.ContextWithDeviceID(r.Context(), logging.SanitizeDeviceID(delta.DeviceID))
	if hdr := r.Header.Get(tvsync.HeaderDeviceID); hdr != "" && hdr != delta.DeviceID {
		metrics.RecordDeltaReceived("malformed")
		writeError(w, http.StatusBadRequest, "device_mismatch", "device header does not match delta")
		return
	}

	if _, err := s.agg.Submit(delta); err != nil {
		if errors.Is(err, ErrShardOverload) {
			metrics.RecordDeltaReceived("overload")
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusServiceUnavailable, "overload", "peer is at capacity")
			return
		}
		metrics.RecordDeltaReceived("error")
		logging.Ctx(ctx).Error().Err(err).Msg("Submit delta failed")
		writeError(w, http.StatusInternalServerError, "internal", "delta not accepted")
		return
	}
	metrics.RecordDeltaReceived("accepted")
	logging.Ctx(ctx).Debug().Int("patterns", len(delta.Patterns)).Msg("Delta accepted")

	payload, version := s.agg.Global()
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set(tvsync.HeaderSyncVersion, strconv.FormatUint(version, 10))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]uint64{"version": s.agg.Version()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, tvsync.HealthStatus{
		Status:  "healthy",
		Version: s.agg.Version(),
		Devices: s.agg.Devices(),
	})
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
