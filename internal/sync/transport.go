// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	stdsync "sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/tvbrain/internal/auth"
)

// Peer endpoints.
const (
	EndpointSync    = "/api/v1/sync"
	EndpointVersion = "/api/v1/sync/version"
	EndpointHealth  = "/api/v1/health"
)

// Request headers.
const (
	HeaderDeviceID    = "X-Device-ID"
	HeaderSyncVersion = "X-Sync-Version"
)

// StatusError is a non-2xx response from the peer.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// TransportConfig configures HTTPTransport.
type TransportConfig struct {
	// BaseURL is the constellation peer, e.g. https://constellation.example.
	BaseURL string `json:"base_url"`

	// TokenSecret is the HS256 secret shared with the peer. Empty disables
	// bearer authentication.
	TokenSecret string        `json:"-"`
	TokenTTL    time.Duration `json:"token_ttl"`

	// RequestTimeout bounds each HTTP request.
	RequestTimeout time.Duration `json:"request_timeout"`

	// RateInterval is the minimum spacing between requests; Burst allows
	// short bursts of manual triggers.
	RateInterval time.Duration `json:"rate_interval"`
	Burst        int           `json:"burst"`

	// MaxResponseBytes caps the response body read from the peer.
	MaxResponseBytes int `json:"max_response_bytes"`

	Breaker BreakerConfig `json:"breaker"`
}

// DefaultTransportConfig returns transport defaults.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		TokenTTL:         time.Hour,
		RequestTimeout:   30 * time.Second,
		RateInterval:     10 * time.Second,
		Burst:            3,
		MaxResponseBytes: MaxGlobalBytes,
		Breaker:          DefaultBreakerConfig(),
	}
}

// Validate checks the transport configuration.
//
//nolint:gocritic // hugeParam: config is read-only
func (c TransportConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("transport.base_url is required")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("transport.base_url must be an http(s) URL, got %q", c.BaseURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("transport.request_timeout must be positive, got %v", c.RequestTimeout)
	}
	if c.RateInterval < 0 {
		return fmt.Errorf("transport.rate_interval must not be negative, got %v", c.RateInterval)
	}
	if c.Burst < 1 {
		return fmt.Errorf("transport.burst must be positive, got %d", c.Burst)
	}
	if c.MaxResponseBytes < 1 {
		return fmt.Errorf("transport.max_response_bytes must be positive, got %d", c.MaxResponseBytes)
	}
	return c.Breaker.Validate()
}

// HealthStatus is the peer's health response.
type HealthStatus struct {
	Status  string `json:"status"`
	Version uint64 `json:"version"`
	Devices int    `json:"devices"`
}

// HTTPTransport talks to a constellation peer over HTTP. Requests are
// spaced by a client-side rate limiter and pass through a circuit breaker.
type HTTPTransport struct {
	baseURL string
	config  TransportConfig
	client  *http.Client
	limiter *rate.Limiter
	breaker *breaker
	tokens  *auth.TokenManager
	logger  zerolog.Logger

	tokenMu     stdsync.Mutex
	token       string
	tokenDevice string
	tokenExpiry time.Time
}

// NewHTTPTransport creates a transport. A nil client uses a client with
// cfg.RequestTimeout.
//
//nolint:gocritic // config and logger passed by value
func NewHTTPTransport(cfg TransportConfig, client *http.Client, logger zerolog.Logger) (*HTTPTransport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transport config: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.RequestTimeout}
	}

	var tokens *auth.TokenManager
	if cfg.TokenSecret != "" {
		var err error
		tokens, err = auth.NewTokenManager(cfg.TokenSecret, cfg.TokenTTL)
		if err != nil {
			return nil, fmt.Errorf("invalid transport config: %w", err)
		}
	}

	limit := rate.Inf
	if cfg.RateInterval > 0 {
		limit = rate.Every(cfg.RateInterval)
	}

	logger = logger.With().Str("component", "sync_transport").Logger()
	return &HTTPTransport{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		config:  cfg,
		client:  client,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		breaker: newBreaker("constellation", cfg.Breaker, logger),
		tokens:  tokens,
		logger:  logger,
	}, nil
}

// BreakerState returns the circuit breaker state name.
func (t *HTTPTransport) BreakerState() string {
	return t.breaker.state()
}

// Exchange posts the compressed delta and returns the compressed global set.
func (t *HTTPTransport) Exchange(ctx context.Context, req ExchangeRequest) ([]byte, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	return t.breaker.execute(func() ([]byte, error) {
		return t.postDelta(ctx, req)
	})
}

func (t *HTTPTransport) postDelta(ctx context.Context, req ExchangeRequest) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+EndpointSync, bytes.NewReader(req.Payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/octet-stream")
	httpReq.Header.Set("Accept", "application/octet-stream")
	httpReq.Header.Set(HeaderDeviceID, req.DeviceID)
	httpReq.Header.Set(HeaderSyncVersion, strconv.FormatUint(req.Version, 10))
	if err := t.authorize(httpReq, req.DeviceID); err != nil {
		return nil, err
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("post delta: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(t.config.MaxResponseBytes)+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(body) > t.config.MaxResponseBytes {
		return nil, fmt.Errorf("%w: response over %d bytes", ErrSizeLimit, t.config.MaxResponseBytes)
	}

	t.logger.Debug().
		Int("bytes_sent", len(req.Payload)).
		Int("bytes_received", len(body)).
		Msg("Delta exchanged")
	return body, nil
}

// Version returns the peer's current global set version.
func (t *HTTPTransport) Version(ctx context.Context) (uint64, error) {
	var out struct {
		Version uint64 `json:"version"`
	}
	if err := t.getJSON(ctx, EndpointVersion, &out); err != nil {
		return 0, err
	}
	return out.Version, nil
}

// Health checks the peer's health endpoint.
func (t *HTTPTransport) Health(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	if err := t.getJSON(ctx, EndpointHealth, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *HTTPTransport) getJSON(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// authorize adds a bearer token, reusing the cached one until a minute
// before expiry.
func (t *HTTPTransport) authorize(req *http.Request, deviceID string) error {
	if t.tokens == nil {
		return nil
	}

	t.tokenMu.Lock()
	defer t.tokenMu.Unlock()

	if t.token == "" || t.tokenDevice != deviceID || time.Until(t.tokenExpiry) < time.Minute {
		token, expiry, err := t.tokens.Issue(deviceID)
		if err != nil {
			return fmt.Errorf("issue device token: %w", err)
		}
		t.token, t.tokenDevice, t.tokenExpiry = token, deviceID, expiry
	}
	req.Header.Set("Authorization", "Bearer "+t.token)
	return nil
}

// IsStatus reports whether err carries the given HTTP status code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
