// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

/*
Package patterns implements the on-device pattern store: the authoritative,
concurrency-safe map from content or feature identifier to a learned
engagement score.

# Model

Each Pattern carries an exponential moving average of engagement in [0, 1],
the number of local observations that produced it, the time it was last
touched and its origin (local observation or federated merge). Content
patterns use the bare content identifier; feature patterns use a kind
prefix:

	m1              content pattern
	genre:action    feature pattern
	tag:space       feature pattern

# Operations

	Upsert             EMA blend of one observation, creates the entry if absent
	Snapshot           immutable copy for scoring, decay applied to the copy
	Decay              half-life forgetting of stale entries
	EvictIfOverCapacity drops the lowest score x recency entries first
	MergeFederated     folds a peer's aggregate set in, favouring strong local evidence
	Clear              irreversible data reset

Every mutating call bumps the store version, so Version() is strictly
increasing across mutations and can be used to detect unsaved changes.

# Thread Safety

A single sync.RWMutex guards the map. Readers take the read lock only for
the duration of a snapshot copy; writers (ingestion, merges, sweeps) are
serialized. No method performs I/O.

This package has no dependencies on other internal packages.
*/
package patterns
