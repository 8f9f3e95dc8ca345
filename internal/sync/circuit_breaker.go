// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/tvbrain/internal/metrics"
)

// BreakerConfig configures the circuit breaker around the peer transport.
type BreakerConfig struct {
	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32 `json:"max_requests"`

	// Interval resets failure counts while closed.
	Interval time.Duration `json:"interval"`

	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration `json:"timeout"`

	// MinRequests and FailureRatio decide when to open.
	MinRequests  uint32  `json:"min_requests"`
	FailureRatio float64 `json:"failure_ratio"`
}

// DefaultBreakerConfig returns breaker defaults sized for a sync that runs
// every few minutes.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  1,
		Interval:     30 * time.Minute,
		Timeout:      5 * time.Minute,
		MinRequests:  3,
		FailureRatio: 0.6,
	}
}

// Validate checks the breaker configuration.
func (c BreakerConfig) Validate() error {
	if c.MaxRequests == 0 {
		return fmt.Errorf("breaker.max_requests must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("breaker.timeout must be positive, got %v", c.Timeout)
	}
	if c.MinRequests == 0 {
		return fmt.Errorf("breaker.min_requests must be positive")
	}
	if c.FailureRatio <= 0 || c.FailureRatio > 1 {
		return fmt.Errorf("breaker.failure_ratio must be in (0, 1], got %f", c.FailureRatio)
	}
	return nil
}

// breaker wraps peer calls so a dead constellation is not hammered by
// every scheduled sync.
//
// The breaker uses real time for its interval and timeout; tests drive it
// through failures rather than the clock.
type breaker struct {
	cb   *gobreaker.CircuitBreaker[[]byte]
	name string
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func newBreaker(name string, cfg BreakerConfig, logger zerolog.Logger) *breaker {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= cfg.FailureRatio
			if shouldTrip {
				logger.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		// A sync cancelled by shutdown says nothing about peer health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logger.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")
			metrics.RecordCircuitBreakerTransition(name, fromStr, toStr, stateToFloat(to))
		},
	})

	return &breaker{cb: cb, name: name}
}

// execute runs fn through the breaker.
func (b *breaker) execute(fn func() ([]byte, error)) ([]byte, error) {
	result, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordCircuitBreakerRequest(b.name, "rejected")
		} else {
			metrics.RecordCircuitBreakerRequest(b.name, "failure")
		}
		return nil, err
	}
	metrics.RecordCircuitBreakerRequest(b.name, "success")
	return result, nil
}

// state returns the breaker state name.
func (b *breaker) state() string {
	return stateToString(b.cb.State())
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
