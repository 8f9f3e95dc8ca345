// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

// Package recommend implements the on-device scoring engine.
//
// # Ranking
//
// Every content pattern in a store snapshot is a candidate. The final rank
// key is a weighted sum of three components:
//
//   - Affinity: the pattern's own decayed score, blended with the mean score
//     of its genre and tag patterns
//   - Context: an opaque Scorer relating the ViewingContext to the candidate
//   - Recency: overlap between the candidate and the context's recently
//     viewed items
//
// Weights are normalized at runtime. Ties are broken by identifier so the
// same snapshot and context always produce the same list.
//
// # Latency
//
// Recommend never takes a lock and never performs I/O; it works entirely on
// an immutable patterns.Snapshot. The configured timeout is checked every
// few hundred candidates and a partially scored list is returned, flagged as
// truncated, when it expires.
//
// # Safe Mode
//
// A snapshot that violates the store invariants (NaN or out-of-range scores)
// produces an empty response flagged SafeMode instead of an error, so a
// corrupted store never reaches the caller as ranked output.
//
// # Usage
//
//	engine, err := recommend.NewEngine(recommend.DefaultConfig(), nil, logger)
//	resp, err := engine.Recommend(ctx, recommend.Request{
//	    Context: recommend.ViewingContext{TimeOfDay: "evening"},
//	    K:       10,
//	}, store.Snapshot())
//
// # Thread Safety
//
// The engine is safe for concurrent use. Rerankers are registered under a
// lock and read once per request.
package recommend
