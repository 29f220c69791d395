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

// Package cache implements the two-tier cache (C5): an in-memory LRU backed
// by a durable store, with single-flight request collapsing and negative
// caching for upstream failures, the way the teacher's connectors/redis
// package backs the orchestrator's response cache.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/africa-ai-collector/collector/internal/clock"
	"github.com/africa-ai-collector/collector/internal/logger"
	"github.com/africa-ai-collector/collector/internal/model"
)

// DurableStore is the subset of a KV backend the cache needs for its second
// tier. RedisStore implements it against go-redis; tests can substitute a
// miniredis-backed instance or a fake.
type DurableStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Loader fetches a fresh payload for key when neither tier has a live entry.
// A failure is returned as an error; whether it is cached negatively, and
// under which reason, is decided by the FailureClassifier given to GetOrLoad.
type Loader func(ctx context.Context) ([]byte, error)

// Cache is the two-tier cache described in spec.md §4.1: an LRU memory tier
// in front of a durable tier, single-flight collapsing of concurrent misses
// for the same key, and negative caching keyed by failure reason.
type Cache struct {
	memory  *lru.Cache[string, model.CacheEntry]
	durable DurableStore
	group   singleflight.Group
	clock   clock.Clock
	log     *logger.Logger

	defaultTTL  time.Duration
	negativeTTL map[model.NegativeReason]time.Duration

	mu sync.Mutex // guards entry creation/eviction per spec.md §3 ownership note

	statsMu sync.Mutex
	stats   Stats
}

// Stats is the cache.stats() payload (spec.md §4.1): raw counters since
// process start, not a point-in-time snapshot of occupancy.
type Stats struct {
	Hits         int64
	Misses       int64
	MemoryHits   int64
	DurableHits  int64
	Sets         int64
	NegativeHits int64
	Evictions    int64
}

// Options configures a Cache.
type Options struct {
	MemoryMaxEntries int
	DefaultTTL       time.Duration
	NegativeTTL      map[model.NegativeReason]time.Duration
	Clock            clock.Clock
}

// New builds a Cache with the given durable tier and options.
func New(durable DurableStore, opts Options) (*Cache, error) {
	if opts.MemoryMaxEntries <= 0 {
		opts.MemoryMaxEntries = 10000
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	mem, err := lru.New[string, model.CacheEntry](opts.MemoryMaxEntries)
	if err != nil {
		return nil, fmt.Errorf("cache: building memory tier: %w", err)
	}
	return &Cache{
		memory:      mem,
		durable:     durable,
		clock:       opts.Clock,
		log:         logger.New("cache"),
		defaultTTL:  opts.DefaultTTL,
		negativeTTL: opts.NegativeTTL,
	}, nil
}

// addMemory wraps the LRU's Add, counting a capacity-triggered eviction
// separately from an explicit Invalidate (which uses Remove, not Add).
func (c *Cache) addMemory(key string, entry model.CacheEntry) {
	evicted := c.memory.Add(key, entry)
	if evicted {
		c.statsMu.Lock()
		c.stats.Evictions++
		c.statsMu.Unlock()
	}
}

// FailureClassifier maps an error from a Loader to the negative-cache reason
// it should be recorded under. Mediator-originated errors already carry a
// Kind; this lets callers reuse that classification.
type FailureClassifier func(err error) (model.NegativeReason, bool)

// GetOrLoad returns a cached payload for key, or invokes loader exactly once
// across concurrent callers (singleflight) when no live entry exists. A
// negative entry short-circuits the loader and returns ok=false with no
// error, matching the invariant that negative entries suppress upstream
// calls rather than surfacing an error to every caller.
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, classify FailureClassifier, loader Loader) ([]byte, bool, error) {
	if entry, hit := c.lookup(ctx, key); hit {
		if entry.IsNegative() {
			c.recordHit(true)
			return nil, false, nil
		}
		c.recordHit(false)
		return entry.Value, true, nil
	}
	c.recordMiss()

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Re-check after winning the singleflight race; another goroutine may
		// have populated the entry while we were queued behind it.
		if entry, hit := c.lookup(ctx, key); hit {
			if entry.IsNegative() {
				return nil, errNegativeHit
			}
			return entry.Value, nil
		}

		payload, loadErr := loader(ctx)
		if loadErr != nil {
			if classify != nil {
				if reason, ok := classify(loadErr); ok {
					c.setNegative(ctx, key, reason)
				}
			}
			return nil, loadErr
		}

		effTTL := ttl
		if effTTL <= 0 {
			effTTL = c.defaultTTL
		}
		c.set(ctx, key, payload, effTTL)
		return payload, nil
	})

	if err == errNegativeHit {
		c.statsMu.Lock()
		c.stats.NegativeHits++
		c.statsMu.Unlock()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v.([]byte), true, nil
}

// recordHit updates the hit/negative-hit counters for an entry found in
// lookup, ahead of the caller deciding what to do with it.
func (c *Cache) recordHit(negative bool) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.stats.Hits++
	if negative {
		c.stats.NegativeHits++
	}
}

func (c *Cache) recordMiss() {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.stats.Misses++
}

var errNegativeHit = fmt.Errorf("cache: negative entry")

func (c *Cache) lookup(ctx context.Context, key string) (model.CacheEntry, bool) {
	now := c.clock.Now()

	if entry, ok := c.memory.Get(key); ok {
		if !entry.Expired(now) {
			c.statsMu.Lock()
			c.stats.MemoryHits++
			c.statsMu.Unlock()
			return entry, true
		}
		c.memory.Remove(key)
	}

	if c.durable == nil {
		return model.CacheEntry{}, false
	}
	raw, ok, err := c.durable.Get(ctx, key)
	if err != nil || !ok {
		return model.CacheEntry{}, false
	}
	entry, decodeErr := decodeEntry(raw)
	if decodeErr != nil {
		return model.CacheEntry{}, false
	}
	if entry.Expired(now) {
		return model.CacheEntry{}, false
	}
	c.statsMu.Lock()
	c.stats.DurableHits++
	c.statsMu.Unlock()
	// Promote the durable hit into memory so the next read avoids the
	// round-trip (write-through ordering: durable already has it, memory
	// catches up).
	c.addMemory(key, entry)
	return entry, true
}

// set writes-through to the durable tier before populating memory, so a
// crash between the two calls never leaves memory holding an entry the
// durable tier doesn't know about.
func (c *Cache) set(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	entry := model.CacheEntry{
		Key:         key,
		Value:       payload,
		CachedAt:    now,
		TTLDeadline: now.Add(ttl),
	}

	if c.durable != nil {
		if raw, err := encodeEntry(entry); err == nil {
			if err := c.durable.Set(ctx, key, raw, ttl); err != nil {
				c.log.ErrorLog("durable cache write failed", err, map[string]interface{}{"key": key})
			}
		}
	}
	c.addMemory(key, entry)
	c.statsMu.Lock()
	c.stats.Sets++
	c.statsMu.Unlock()
}

func (c *Cache) setNegative(ctx context.Context, key string, reason model.NegativeReason) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ttl := c.negativeTTL[reason]
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	now := c.clock.Now()
	entry := model.CacheEntry{
		Key:         key,
		Negative:    &model.NegativeMarker{Reason: reason, CachedAt: now},
		CachedAt:    now,
		TTLDeadline: now.Add(ttl),
	}

	if c.durable != nil {
		if raw, err := encodeEntry(entry); err == nil {
			if err := c.durable.Set(ctx, key, raw, ttl); err != nil {
				c.log.ErrorLog("durable negative-cache write failed", err, map[string]interface{}{"key": key})
			}
		}
	}
	c.addMemory(key, entry)
	c.statsMu.Lock()
	c.stats.Sets++
	c.statsMu.Unlock()
}

// Invalidate removes one exact key from both tiers.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memory.Remove(key)
	if c.durable != nil {
		if err := c.durable.Delete(ctx, key); err != nil {
			c.log.ErrorLog("durable cache delete failed", err, map[string]interface{}{"key": key})
		}
	}
}

// InvalidatePattern removes every memory-tier key containing pattern as a
// substring (spec.md §6 cache.invalidate(pattern) -> count) and returns how
// many keys were cleared. The durable tier has no key-enumeration primitive
// in DurableStore, so a pattern invalidation only reaches entries currently
// resident in memory; callers relying on a cold durable entry being cleared
// should call Invalidate with the exact key instead.
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var matched []string
	for _, key := range c.memory.Keys() {
		if strings.Contains(key, pattern) {
			matched = append(matched, key)
		}
	}
	for _, key := range matched {
		c.memory.Remove(key)
		if c.durable != nil {
			if err := c.durable.Delete(ctx, key); err != nil {
				c.log.ErrorLog("durable cache delete failed", err, map[string]interface{}{"key": key})
			}
		}
	}
	return len(matched)
}

// ClearNegative removes every negative (failure) entry from the memory tier,
// used by the cache.clear_negative operator action to force the next lookup
// of a previously-failing key to retry upstream instead of waiting out the
// negative TTL.
func (c *Cache) ClearNegative(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var cleared int
	for _, key := range c.memory.Keys() {
		entry, ok := c.memory.Peek(key)
		if !ok || !entry.IsNegative() {
			continue
		}
		c.memory.Remove(key)
		if c.durable != nil {
			if err := c.durable.Delete(ctx, key); err != nil {
				c.log.ErrorLog("durable cache delete failed", err, map[string]interface{}{"key": key})
			}
		}
		cleared++
	}
	return cleared
}

// Warm primes key with a precomputed payload and ttl, used by the
// cache.warm operator action to pre-populate a hot key ahead of the next
// scheduled cycle instead of waiting for the first miss to pay the load cost.
func (c *Cache) Warm(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.set(ctx, key, payload, ttl)
}

// Stats reports cumulative hit/miss/set/eviction counters since process
// start (spec.md §4.1 cache.stats()).
func (c *Cache) Stats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}
