// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package ingest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/tvbrain/internal/cache"
	"github.com/tomtom215/tvbrain/internal/metrics"
	"github.com/tomtom215/tvbrain/internal/patterns"
)

// ErrUnknownContent is returned by resolvers that have no metadata for an id.
var ErrUnknownContent = errors.New("unknown content")

// Metadata describes a content item.
type Metadata struct {
	Genres []string `json:"genres,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

// FeatureIDs returns the genre and tag feature ids, deduplicated, genres first.
func (m Metadata) FeatureIDs() []string {
	if len(m.Genres)+len(m.Tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(m.Genres)+len(m.Tags))
	out := make([]string, 0, len(m.Genres)+len(m.Tags))
	add := func(id string) {
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, g := range m.Genres {
		if strings.TrimSpace(g) != "" {
			add(patterns.GenreID(g))
		}
	}
	for _, t := range m.Tags {
		if strings.TrimSpace(t) != "" {
			add(patterns.TagID(t))
		}
	}
	return out
}

// MetadataResolver maps content ids to metadata. Implementations may do
// I/O; the pipeline calls them off the caller's path with a deadline.
type MetadataResolver interface {
	Resolve(ctx context.Context, contentID string) (Metadata, error)
}

// LocalResolver is implemented by resolvers that can answer some lookups
// from memory. Lookup must not block; inline folds use it instead of
// Resolve.
type LocalResolver interface {
	Lookup(contentID string) (Metadata, bool)
}

// ResolverFunc adapts a function to MetadataResolver.
type ResolverFunc func(ctx context.Context, contentID string) (Metadata, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, contentID string) (Metadata, error) {
	return f(ctx, contentID)
}

// StaticResolver serves metadata from an in-memory catalog.
type StaticResolver struct {
	mu      sync.RWMutex
	catalog map[string]Metadata
}

// NewStaticResolver creates a resolver over a copy of catalog.
func NewStaticResolver(catalog map[string]Metadata) *StaticResolver {
	r := &StaticResolver{catalog: make(map[string]Metadata, len(catalog))}
	for id, md := range catalog {
		r.catalog[id] = md
	}
	return r
}

// Set adds or replaces the metadata for id.
func (r *StaticResolver) Set(id string, md Metadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalog[id] = md
}

// Resolve returns the catalog entry or ErrUnknownContent.
func (r *StaticResolver) Resolve(ctx context.Context, contentID string) (Metadata, error) {
	if err := ctx.Err(); err != nil {
		return Metadata{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	md, ok := r.catalog[contentID]
	if !ok {
		return Metadata{}, ErrUnknownContent
	}
	return md, nil
}

// Lookup returns the catalog entry without a context.
func (r *StaticResolver) Lookup(contentID string) (Metadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	md, ok := r.catalog[contentID]
	return md, ok
}

// CachedResolver memoizes another resolver in a TTL LRU cache. Unknown
// content is cached as empty metadata; other errors are not cached.
type CachedResolver struct {
	next  MetadataResolver
	cache *cache.LRUCache[Metadata]
}

// NewCachedResolver wraps next with a cache of the given size and TTL.
func NewCachedResolver(next MetadataResolver, size int, ttl time.Duration) *CachedResolver {
	return &CachedResolver{
		next:  next,
		cache: cache.NewLRUCache[Metadata](size, ttl),
	}
}

// Resolve returns cached metadata or asks the wrapped resolver.
func (r *CachedResolver) Resolve(ctx context.Context, contentID string) (Metadata, error) {
	if md, ok := r.cache.Get(contentID); ok {
		metrics.RecordMetadataLookup("hit")
		return md, nil
	}

	md, err := r.next.Resolve(ctx, contentID)
	switch {
	case errors.Is(err, ErrUnknownContent):
		metrics.RecordMetadataLookup("miss")
		r.cache.Add(contentID, Metadata{})
		return Metadata{}, nil
	case err != nil:
		metrics.RecordMetadataLookup("error")
		return Metadata{}, err
	}
	metrics.RecordMetadataLookup("miss")
	r.cache.Add(contentID, md)
	return md, nil
}

// Lookup returns cached metadata only; the wrapped resolver is not asked.
func (r *CachedResolver) Lookup(contentID string) (Metadata, bool) {
	md, ok := r.cache.Get(contentID)
	if ok {
		metrics.RecordMetadataLookup("hit")
	}
	return md, ok
}

// Stats returns the cache statistics.
func (r *CachedResolver) Stats() cache.Stats {
	return r.cache.Stats()
}

// Purge drops every cached entry.
func (r *CachedResolver) Purge() {
	r.cache.Clear()
}
