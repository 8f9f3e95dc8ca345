// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/tvbrain/internal/ingest"
	"github.com/tomtom215/tvbrain/internal/patterns"
	"github.com/tomtom215/tvbrain/internal/persist"
	tvsync "github.com/tomtom215/tvbrain/internal/sync"
)

var (
	// ErrClosed is returned by every operation after Shutdown.
	ErrClosed = errors.New("engine is shut down")

	// ErrSyncDisabled is returned by Sync when no transport was configured.
	ErrSyncDisabled = errors.New("sync transport not configured")
)

// Kind classifies an engine error.
type Kind string

// Error kinds.
const (
	KindValidation        Kind = "validation"
	KindCapacity          Kind = "capacity"
	KindSyncTransport     Kind = "sync_transport"
	KindSyncConflict      Kind = "sync_conflict"
	KindPersistence       Kind = "persistence"
	KindInternalInvariant Kind = "internal_invariant"
	KindInProgress        Kind = "in_progress"
	KindClosed            Kind = "closed"
	KindCanceled          Kind = "canceled"
	KindInternal          Kind = "internal"
)

// Operation names carried by Error.Op.
const (
	OpInit      = "init"
	OpRecommend = "recommend"
	OpObserve   = "observe"
	OpSync      = "sync"
	OpClearData = "clear_data"
	OpShutdown  = "shutdown"
)

// Error is returned by every Engine operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// KindOf returns the kind of err, or "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return classify(err)
}

// wrap classifies err and tags it with op. Nil stays nil.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: classify(err), Op: op, Err: err}
}

func classify(err error) Kind {
	var (
		transportErr *tvsync.TransportError
		conflictErr  *tvsync.ConflictError
		cfgErr       *persist.ConfigError
	)
	switch {
	case errors.Is(err, ErrClosed), errors.Is(err, ingest.ErrClosed), errors.Is(err, persist.ErrClosed):
		return KindClosed
	case errors.Is(err, ingest.ErrInvalidEvent), errors.Is(err, patterns.ErrEmptyID):
		return KindValidation
	case errors.Is(err, patterns.ErrCapacity):
		return KindCapacity
	case errors.Is(err, patterns.ErrInvariant):
		return KindInternalInvariant
	case errors.Is(err, tvsync.ErrSyncInProgress):
		return KindInProgress
	case errors.As(err, &transportErr), errors.Is(err, ErrSyncDisabled):
		return KindSyncTransport
	case errors.As(err, &conflictErr):
		return KindSyncConflict
	case errors.Is(err, persist.ErrCorrupt), errors.As(err, &cfgErr):
		return KindPersistence
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}

// Status codes returned by Code.
const (
	CodeSuccess        = 0
	CodeInit           = -1
	CodeRecommend      = -2
	CodeObserve        = -3
	CodeSync           = -4
	CodeInvalidArg     = -5
	CodeDecode         = -6
	CodeNotInitialized = -8
	CodeInternal       = -10
	CodeSyncInProgress = -11
)

// Code maps err to a numeric status code for callers that cannot inspect
// Go errors.
func Code(err error) int {
	if err == nil {
		return CodeSuccess
	}
	var e *Error
	if !errors.As(err, &e) {
		e = &Error{Kind: classify(err)}
	}

	switch e.Kind {
	case KindValidation:
		return CodeInvalidArg
	case KindClosed:
		return CodeNotInitialized
	case KindInProgress:
		return CodeSyncInProgress
	case KindSyncConflict:
		return CodeDecode
	case KindSyncTransport:
		return CodeSync
	case KindInternalInvariant:
		return CodeInternal
	case KindPersistence:
		if e.Op == OpInit {
			return CodeInit
		}
		return CodeInternal
	}

	switch e.Op {
	case OpInit:
		return CodeInit
	case OpRecommend:
		return CodeRecommend
	case OpObserve:
		return CodeObserve
	case OpSync:
		return CodeSync
	default:
		return CodeInternal
	}
}
