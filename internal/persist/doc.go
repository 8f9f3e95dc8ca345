// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

/*
Package persist stores pattern store state across restarts.

BadgerStore keeps the state in BadgerDB. Every Save writes a complete
generation of pattern records, then switches a single meta record to it and
drops the previous generation, so a crash mid-save leaves the last complete
state readable. The meta record carries the pattern count and an xxhash
checksum of the records; Load returns ErrCorrupt when either disagrees.

MemoryStore is a process-local implementation for tests and for devices
without writable storage.

Both satisfy the engine's Persistence interface:

	Load(ctx) (*patterns.State, error)  // nil, nil when nothing was saved
	Save(ctx, patterns.State) error
	Close() error
*/
package persist
