// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

/*
Package ingest turns viewing events into pattern store updates.

# Event Flow

	Observe(ev)
	    |
	    v
	validate (validator singleton) --> *ValidationError
	    |
	    v
	reward / sample weight
	    |
	    +-- running, room in queue --> watermill gochannel --> fold handler
	    |                                                        |
	    |                                     resolve metadata (deadline, cached)
	    |                                                        |
	    +-- otherwise --> LocalResolver lookup only              |
	                              |                              |
	                              v                              v
	                  upsert content id and genre/tag feature ids

# Reward

	reward = clamp(0.7*watch + 0.3*engagement)

Engagement is the event's explicit signal when present, else the rating
mapped onto [0, 1] ((r-1)/4), else the watch fraction. The sample weight is
the watch fraction, 1.0 for completions (>= 0.9), and never below
MinSampleWeight. Views shorter than ZapThreshold count at MinSampleWeight.

# Visibility

Queued folds become visible once the handler runs. Drain waits for every
queued fold; Close drains and then stops the router. Cancelling the context
passed to Start does not stop the router, so queued folds survive a
signal-driven shutdown. Tests and shutdown
paths call Drain before reading the store.

# Metadata

MetadataResolver is called with ResolveTimeout, only from the fold handler.
Inline folds never call Resolve: they use the resolver's LocalResolver
Lookup if it has one (CachedResolver serves its cache, StaticResolver its
catalog) and otherwise fold the content id and event genre. CachedResolver
memoizes a resolver in a TTL LRU cache. A failed lookup folds the content
id and the event genre only.
*/
package ingest
