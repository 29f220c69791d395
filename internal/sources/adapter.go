// Copyright 2025 AxonFlow
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sources implements the source adapters (C7): one per upstream
// (academic preprint feed, biomedical citation index, news RSS, web-search,
// scholarly-search, LLM-intelligence), each a function producing a sequence
// of typed raw records, per the wire-level-parsing-is-out-of-scope boundary.
package sources

import (
	"context"
	"strings"
	"time"

	"github.com/africa-ai-collector/collector/internal/cache"
	"github.com/africa-ai-collector/collector/internal/mediator"
)

// RawRecord is one unparsed item returned by an adapter's Fetch, ahead of
// Parse producing a TypedRecord or a discard decision.
type RawRecord struct {
	Source  string
	Payload map[string]interface{}
}

// QuerySpec parameterizes one Fetch call.
type QuerySpec struct {
	Keywords        []string
	GeographicFocus []string
	WindowStart     string // RFC3339; empty means unbounded
	WindowEnd       string
	Offset          int
	Limit           int
}

// DiscardReason explains why Parse rejected a RawRecord.
type DiscardReason string

const (
	DiscardBelowThreshold DiscardReason = "below_relevance_threshold"
	DiscardMalformed      DiscardReason = "malformed_payload"
	DiscardMissingFields  DiscardReason = "missing_required_fields"
)

// RecordSeq is a restartable, finite lazy sequence of RawRecords. Adapters
// return a function rather than a slice so paginated upstreams only fetch as
// many pages as the caller actually consumes.
type RecordSeq func(yield func(RawRecord) bool)

// Adapter is implemented by each upstream-specific source.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, spec QuerySpec) (RecordSeq, error)
}

// Collect drains a RecordSeq into a slice, for callers that don't need
// early termination.
func Collect(seq RecordSeq) []RawRecord {
	var out []RawRecord
	seq(func(r RawRecord) bool {
		out = append(out, r)
		return true
	})
	return out
}

// cacheBinding is embedded by adapters that mediate external calls. A fresh
// adapter has no cache wired in (cache is nil, a safe no-op); cmd/collector
// attaches the shared two-tier cache via SetCache once the adapter and the
// cache are both constructed, rather than threading a cache through every
// adapter constructor.
type cacheBinding struct {
	cache *cache.Cache
	ttl   time.Duration
}

// SetCache wires a two-tier cache into the adapter's Fetch path, with ttl as
// the default freshness window for a positive entry (spec.md §4.1).
func (b *cacheBinding) SetCache(c *cache.Cache, ttl time.Duration) {
	b.cache = c
	b.ttl = ttl
}

// cacheKey builds a canonical cache key from a source name and its
// query-shaping parts, joined so distinct queries never collide.
func cacheKey(source string, parts ...string) string {
	return source + ":" + strings.Join(parts, "|")
}

// cachedFetch runs call through the mediator, wrapped in the two-tier cache
// described in spec.md §1 ("all external API calls ... through a two-tier
// cache"): a live entry, positive or negative, short-circuits the mediated
// call entirely. ok is false only on a negative-cache hit (upstream already
// known to be failing in a cacheable way); callers should treat that as "no
// records this round", not an error.
func cachedFetch(ctx context.Context, b cacheBinding, key string, m *mediator.Mediator, call mediator.Call[[]byte]) (payload []byte, ok bool, err error) {
	if b.cache == nil {
		payload, err = mediator.Do(ctx, m, call)
		return payload, err == nil, err
	}
	return b.cache.GetOrLoad(ctx, key, b.ttl, cache.ClassifyMediatorError, func(ctx context.Context) ([]byte, error) {
		return mediator.Do(ctx, m, call)
	})
}
