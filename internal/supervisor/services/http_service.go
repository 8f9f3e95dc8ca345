// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HTTPServer is the part of *http.Server the service drives.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService keeps an HTTP endpoint up under the api-layer
// supervisor: the device's local endpoint or the constellation API.
//
//	srv := &http.Server{Addr: cfg.Metrics.ListenAddr, Handler: newRouter(eng, trigger)}
//	tree.AddAPIService(services.NewHTTPServerService("device-http", srv, 10*time.Second, logger))
type HTTPServerService struct {
	name   string
	server HTTPServer
	grace  time.Duration
	logger zerolog.Logger
}

// NewHTTPServerService wraps server. grace bounds the graceful shutdown
// and defaults to 10s when not positive.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHTTPServerService(name string, server HTTPServer, grace time.Duration, logger zerolog.Logger) *HTTPServerService {
	if name == "" {
		name = "http-server"
	}
	if grace <= 0 {
		grace = 10 * time.Second
	}
	return &HTTPServerService{
		name:   name,
		server: server,
		grace:  grace,
		logger: logger.With().Str("service", name).Logger(),
	}
}

// Serve implements suture.Service. A listen error is returned so the
// supervisor restarts the endpoint with backoff.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	listenErr := make(chan error, 1)
	go func() { listenErr <- h.server.ListenAndServe() }()
	h.logger.Debug().Msg("endpoint serving")

	select {
	case err := <-listenErr:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		h.logger.Error().Err(err).Msg("endpoint failed")
		return fmt.Errorf("%s: listen: %w", h.name, err)
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.grace)
	defer cancel()
	if err := h.server.Shutdown(stopCtx); err != nil {
		return fmt.Errorf("%s: shutdown: %w", h.name, err)
	}
	<-listenErr
	h.logger.Debug().Msg("endpoint stopped")
	return ctx.Err()
}

// String implements fmt.Stringer for logging.
func (h *HTTPServerService) String() string {
	return h.name
}
