// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package sync

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"

	"github.com/tomtom215/tvbrain/internal/patterns"
	"github.com/tomtom215/tvbrain/internal/validation"
)

var (
	// ErrSizeLimit is returned when a payload cannot fit its size cap.
	ErrSizeLimit = errors.New("sync payload exceeds size limit")

	// ErrMalformedPayload is returned when a payload cannot be decoded or
	// fails validation.
	ErrMalformedPayload = errors.New("malformed sync payload")
)

// maxDecodedBytes bounds decompression so a tiny payload cannot expand
// without limit.
const maxDecodedBytes = 1 << 20

// WirePattern is one pattern on the wire.
type WirePattern struct {
	ID          string  `json:"id" validate:"required,max=256"`
	Score       float64 `json:"score" validate:"unit"`
	SampleCount int64   `json:"sample_count" validate:"gte=0"`
	Genre       string  `json:"genre,omitempty" validate:"max=64"`
}

// Delta is the payload a device sends to the constellation peer.
type Delta struct {
	DeviceID  string        `json:"device_id" validate:"required,device_id"`
	Patterns  []WirePattern `json:"patterns" validate:"dive"`
	Version   uint64        `json:"version"`
	Timestamp time.Time     `json:"timestamp"`
}

// Trend is a regional popularity signal computed by the peer.
type Trend struct {
	ContentID    string    `json:"content_id" validate:"required,max=256"`
	Score        float64   `json:"score" validate:"unit"`
	Region       string    `json:"region,omitempty" validate:"max=64"`
	Genre        string    `json:"genre,omitempty" validate:"max=64"`
	CalculatedAt time.Time `json:"calculated_at"`
}

// GlobalSet is the aggregated set returned by the peer.
type GlobalSet struct {
	Patterns  []WirePattern `json:"patterns" validate:"dive"`
	Trends    []Trend       `json:"trends" validate:"dive"`
	Version   uint64        `json:"version"`
	Timestamp time.Time     `json:"timestamp"`
}

// Encoder and decoder are safe for concurrent use and reused across calls.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(3)),
	)
	if err != nil {
		panic("sync: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil,
		zstd.WithDecoderMaxMemory(maxDecodedBytes),
	)
	if err != nil {
		panic("sync: zstd decoder initialization failed: " + err.Error())
	}
}

func compress(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return zstdEncoder.EncodeAll(raw, nil), nil
}

func decompress(payload []byte, limit int, v interface{}) error {
	if len(payload) > limit {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrSizeLimit, len(payload), limit)
	}
	raw, err := zstdDecoder.DecodeAll(payload, nil)
	if err != nil {
		return fmt.Errorf("%w: decompress: %v", ErrMalformedPayload, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrMalformedPayload, err)
	}
	if verr := validation.ValidateStruct(v); verr != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, verr)
	}
	return nil
}

// EncodeDelta compresses d so that it fits within limit bytes. Patterns are
// expected in export order; when the payload is too large the lowest ranked
// tail is dropped until it fits, and d.Patterns is truncated accordingly.
// ErrSizeLimit is returned only if even an empty delta does not fit.
func EncodeDelta(d *Delta, limit int) ([]byte, error) {
	for {
		payload, err := compress(d)
		if err != nil {
			return nil, err
		}
		if len(payload) <= limit {
			return payload, nil
		}
		if len(d.Patterns) == 0 {
			return nil, fmt.Errorf("%w: empty delta is %d bytes, limit %d", ErrSizeLimit, len(payload), limit)
		}
		d.Patterns = d.Patterns[:len(d.Patterns)-1]
	}
}

// DecodeDelta decompresses and validates a device delta.
func DecodeDelta(payload []byte, limit int) (*Delta, error) {
	var d Delta
	if err := decompress(payload, limit, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// EncodeGlobal compresses g so that it fits within limit bytes. Trends are
// dropped from the tail first, then patterns. g is truncated in place.
func EncodeGlobal(g *GlobalSet, limit int) ([]byte, error) {
	for {
		payload, err := compress(g)
		if err != nil {
			return nil, err
		}
		if len(payload) <= limit {
			return payload, nil
		}
		switch {
		case len(g.Trends) > 0:
			g.Trends = g.Trends[:len(g.Trends)-1]
		case len(g.Patterns) > 0:
			g.Patterns = g.Patterns[:len(g.Patterns)-1]
		default:
			return nil, fmt.Errorf("%w: empty global set is %d bytes, limit %d", ErrSizeLimit, len(payload), limit)
		}
	}
}

// DecodeGlobal decompresses and validates a global pattern set.
func DecodeGlobal(payload []byte, limit int) (*GlobalSet, error) {
	var g GlobalSet
	if err := decompress(payload, limit, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// FederatedSet converts g into merge input. Trends calculated more than
// freshness before now are dropped, as are trends for ids the pattern list
// already carries. The second result counts the trends skipped.
func (g *GlobalSet) FederatedSet(now time.Time, freshness time.Duration) (patterns.FederatedSet, int) {
	set := patterns.FederatedSet{
		Patterns:  make([]patterns.FederatedPattern, 0, len(g.Patterns)+len(g.Trends)),
		Timestamp: g.Timestamp,
	}
	seen := make(map[string]struct{}, len(g.Patterns)+len(g.Trends))
	for _, wp := range g.Patterns {
		set.Patterns = append(set.Patterns, patterns.FederatedPattern{
			ID:      wp.ID,
			Score:   wp.Score,
			Samples: wp.SampleCount,
			Genre:   wp.Genre,
		})
		seen[wp.ID] = struct{}{}
	}

	skipped := 0
	for i := range g.Trends {
		tr := &g.Trends[i]
		if now.Sub(tr.CalculatedAt) >= freshness {
			skipped++
			continue
		}
		if _, dup := seen[tr.ContentID]; dup {
			skipped++
			continue
		}
		seen[tr.ContentID] = struct{}{}
		set.Patterns = append(set.Patterns, patterns.FederatedPattern{
			ID:    tr.ContentID,
			Score: tr.Score,
			Genre: tr.Genre,
		})
	}
	return set, skipped
}
