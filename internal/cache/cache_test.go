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

package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/africa-ai-collector/collector/internal/clock"
	"github.com/africa-ai-collector/collector/internal/model"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)

	store, err := NewRedisStore(context.Background(), RedisStoreOptions{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}

	c, err := New(store, Options{DefaultTTL: time.Minute})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, mr
}

func TestGetOrLoadMissThenHit(t *testing.T) {
	c, _ := newTestCache(t)

	var calls int32
	loader := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte("payload"), nil
	}

	v, ok, err := c.GetOrLoad(context.Background(), "key-1", time.Minute, nil, loader)
	if err != nil || !ok || string(v) != "payload" {
		t.Fatalf("first GetOrLoad: v=%q ok=%v err=%v", v, ok, err)
	}

	v, ok, err = c.GetOrLoad(context.Background(), "key-1", time.Minute, nil, loader)
	if err != nil || !ok || string(v) != "payload" {
		t.Fatalf("second GetOrLoad: v=%q ok=%v err=%v", v, ok, err)
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1 (second call should hit cache)", calls)
	}
}

func TestGetOrLoadNegativeCaching(t *testing.T) {
	c, _ := newTestCache(t)
	c.negativeTTL = map[model.NegativeReason]time.Duration{model.ReasonRateLimited: time.Minute}

	var calls int32
	loadErr := errors.New("rate limited upstream")
	loader := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return nil, loadErr
	}
	classify := func(err error) (model.NegativeReason, bool) {
		return model.ReasonRateLimited, true
	}

	_, ok, err := c.GetOrLoad(context.Background(), "key-2", time.Minute, classify, loader)
	if err != loadErr || ok {
		t.Fatalf("first GetOrLoad: ok=%v err=%v, want ok=false err=%v", ok, err, loadErr)
	}

	_, ok, err = c.GetOrLoad(context.Background(), "key-2", time.Minute, classify, loader)
	if err != nil || ok {
		t.Fatalf("second GetOrLoad: ok=%v err=%v, want ok=false err=nil (negative hit)", ok, err)
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1 (negative entry should suppress the second call)", calls)
	}
}

func TestGetOrLoadExpiry(t *testing.T) {
	c, _ := newTestCache(t)
	clk := clock.NewFrozen(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	c.clock = clk

	var calls int32
	loader := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte("v"), nil
	}

	if _, _, err := c.GetOrLoad(context.Background(), "key-3", time.Minute, nil, loader); err != nil {
		t.Fatalf("GetOrLoad: %v", err)
	}

	clk.Advance(2 * time.Minute)

	if _, _, err := c.GetOrLoad(context.Background(), "key-3", time.Minute, nil, loader); err != nil {
		t.Fatalf("GetOrLoad after expiry: %v", err)
	}
	if calls != 2 {
		t.Errorf("loader called %d times, want 2 (entry should have expired)", calls)
	}
}

func TestInvalidate(t *testing.T) {
	c, mr := newTestCache(t)

	if _, _, err := c.GetOrLoad(context.Background(), "key-4", time.Minute, nil, func(ctx context.Context) ([]byte, error) {
		return []byte("v"), nil
	}); err != nil {
		t.Fatalf("GetOrLoad: %v", err)
	}

	c.Invalidate(context.Background(), "key-4")

	if mr.Exists("key-4") {
		t.Error("expected durable tier to no longer hold the invalidated key")
	}
	if _, ok := c.memory.Get("key-4"); ok {
		t.Error("expected memory tier to no longer hold the invalidated key")
	}
}

func TestInvalidatePatternMatchesSubstring(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	loader := func(ctx context.Context) ([]byte, error) { return []byte("v"), nil }

	c.GetOrLoad(ctx, "arxiv:query-a", time.Minute, nil, loader)
	c.GetOrLoad(ctx, "arxiv:query-b", time.Minute, nil, loader)
	c.GetOrLoad(ctx, "pubmed:query-a", time.Minute, nil, loader)

	n := c.InvalidatePattern(ctx, "arxiv:")
	if n != 2 {
		t.Errorf("InvalidatePattern = %d, want 2", n)
	}
	if _, ok := c.memory.Get("pubmed:query-a"); !ok {
		t.Error("expected an unrelated key to survive the pattern invalidation")
	}
}

func TestClearNegativeOnlyRemovesNegativeEntries(t *testing.T) {
	c, _ := newTestCache(t)
	c.negativeTTL = map[model.NegativeReason]time.Duration{model.ReasonAPIError: time.Minute}
	ctx := context.Background()
	classify := func(err error) (model.NegativeReason, bool) { return model.ReasonAPIError, true }

	c.GetOrLoad(ctx, "good-key", time.Minute, nil, func(ctx context.Context) ([]byte, error) { return []byte("v"), nil })
	c.GetOrLoad(ctx, "bad-key", time.Minute, classify, func(ctx context.Context) ([]byte, error) { return nil, errors.New("boom") })

	n := c.ClearNegative(ctx)
	if n != 1 {
		t.Errorf("ClearNegative = %d, want 1", n)
	}
	if _, ok := c.memory.Get("good-key"); !ok {
		t.Error("expected the positive entry to survive ClearNegative")
	}
	if _, ok := c.memory.Get("bad-key"); ok {
		t.Error("expected the negative entry to be removed")
	}
}

func TestStatsCountsHitsMissesAndSets(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	loader := func(ctx context.Context) ([]byte, error) { return []byte("v"), nil }

	c.GetOrLoad(ctx, "stats-key", time.Minute, nil, loader) // miss + set
	c.GetOrLoad(ctx, "stats-key", time.Minute, nil, loader) // memory hit

	stats := c.Stats()
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
	if stats.Sets != 1 {
		t.Errorf("Sets = %d, want 1", stats.Sets)
	}
	if stats.Hits != 1 || stats.MemoryHits != 1 {
		t.Errorf("Hits = %d MemoryHits = %d, want 1 and 1", stats.Hits, stats.MemoryHits)
	}
}
