// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

/*
Package sync reconciles the on-device pattern store with a constellation
peer.

One attempt walks a small state machine:

	Idle -> Exporting -> AwaitingPeer -> Merging -> Idle
	             \             \             \
	              +-------------+-------------+--> Failed -> Idle

Exporting takes a snapshot of the store and selects local patterns with at
least MinSamples observations and a score of at least MinScore, ranked by
score x ln(1 + samples) and capped at ExportBudget. The delta is encoded as
JSON, compressed with zstd level 3 and trimmed from the tail until it fits
MaxDeltaBytes. No store lock is held from here on.

AwaitingPeer hands the payload to a Transport under Timeout. A failed,
cancelled or timed out exchange returns a *TransportError. Abort cancels an
exchange in flight.

The response is decompressed, size checked and validated. Anything the
reconciler cannot use returns a *ConflictError. Otherwise Merging folds the
global patterns, plus trend signals younger than TrendFreshness, into the
store with a single MergeFederated call and records the sync time.

A failed attempt never changes the store. A second Sync while one is running
returns ErrSyncInProgress.

# Wire format

	Delta     {device_id, patterns[{id, score, sample_count, genre}], version, timestamp}
	GlobalSet {patterns[...], trends[{content_id, score, region, genre, calculated_at}], version, timestamp}

Compressed deltas are capped at 2 KiB and global sets at 10 KiB.

# HTTP transport

HTTPTransport posts the delta to /api/v1/sync with X-Device-ID and
X-Sync-Version headers and, when a shared secret is configured, an HS256
bearer token whose subject is the device id. Requests pass through a
golang.org/x/time/rate limiter and a sony/gobreaker circuit breaker.
Version and Health query /api/v1/sync/version and /api/v1/health.
*/
package sync
