// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

/*
Package cache provides small in-memory data structures shared by the engine
and the constellation peer.

# LRUCache

A generic, thread-safe LRU cache with a single TTL for all entries. The
ingestion pipeline wraps the content-metadata resolver with it so repeated
observations of the same title do not repeat the lookup:

	c := cache.NewLRUCache[ingest.Metadata](4096, 30*time.Minute)
	c.Add("m1", meta)
	if meta, ok := c.Get("m1"); ok {
	    // use cached metadata
	}

Expiration is lazy (checked on Get) plus an explicit CleanupExpired sweep.

# SlidingWindowCounter

A bucketed counter over a sliding time window, used for "events in the last
N minutes" figures such as the constellation's recent sync count. Count is
O(buckets) and memory is fixed.

# Thread Safety

All types are safe for concurrent use.
*/
package cache
