// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package cache

import (
	"sync"
	"time"
)

// SlidingWindowCounter counts events over a sliding window split into
// fixed buckets.
//
// Complexity:
//   - Add: O(1) amortized
//   - Count: O(k) where k = number of buckets
//   - Memory: O(k)
type SlidingWindowCounter struct {
	mu         sync.Mutex
	buckets    []int64
	bucketSize time.Duration
	current    int
	bucketTime time.Time // start of the current bucket
	now        func() time.Time
}

// NewSlidingWindowCounter creates a counter over windowSize divided into
// numBuckets buckets. NewSlidingWindowCounter(time.Minute, 12) keeps
// five-second buckets.
func NewSlidingWindowCounter(windowSize time.Duration, numBuckets int) *SlidingWindowCounter {
	if numBuckets <= 0 {
		numBuckets = 10
	}
	if windowSize <= 0 {
		windowSize = 5 * time.Minute
	}
	bucketSize := windowSize / time.Duration(numBuckets)
	if bucketSize <= 0 {
		bucketSize = time.Nanosecond
	}
	sw := &SlidingWindowCounter{
		buckets:    make([]int64, numBuckets),
		bucketSize: bucketSize,
		now:        time.Now,
	}
	sw.bucketTime = sw.now()
	return sw
}

// Add adds delta to the current bucket.
func (sw *SlidingWindowCounter) Add(delta int64) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.advance()
	sw.buckets[sw.current] += delta
}

// Inc adds one.
func (sw *SlidingWindowCounter) Inc() {
	sw.Add(1)
}

// Count returns the total over the window.
func (sw *SlidingWindowCounter) Count() int64 {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.advance()
	var total int64
	for _, c := range sw.buckets {
		total += c
	}
	return total
}

// Reset clears all buckets.
func (sw *SlidingWindowCounter) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	for i := range sw.buckets {
		sw.buckets[i] = 0
	}
	sw.current = 0
	sw.bucketTime = sw.now()
}

// advance rotates past buckets whose time has elapsed. Must be called with
// mu held.
func (sw *SlidingWindowCounter) advance() {
	elapsed := int(sw.now().Sub(sw.bucketTime) / sw.bucketSize)
	if elapsed <= 0 {
		return
	}

	n := len(sw.buckets)
	if elapsed >= n {
		for i := range sw.buckets {
			sw.buckets[i] = 0
		}
		sw.current = 0
	} else {
		for i := 0; i < elapsed; i++ {
			sw.current = (sw.current + 1) % n
			sw.buckets[sw.current] = 0
		}
	}
	// Keep bucket boundaries aligned so partial buckets are not lost.
	sw.bucketTime = sw.bucketTime.Add(time.Duration(elapsed) * sw.bucketSize)
}
