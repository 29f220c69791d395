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

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/africa-ai-collector/collector/internal/cache"
	"github.com/africa-ai-collector/collector/internal/logger"
)

// RouterConfig configures a Router.
type RouterConfig struct {
	// PreferenceOrder lists provider names in priority order; the first
	// provider whose call succeeds is used. Providers not listed are tried
	// last, sorted by name.
	PreferenceOrder []string
}

// RouterOption mutates a RouterConfig when constructing a Router.
type RouterOption func(*RouterConfig)

// WithPreferenceOrder sets the provider try-order.
func WithPreferenceOrder(names ...string) RouterOption {
	return func(c *RouterConfig) { c.PreferenceOrder = names }
}

type providerMetrics struct {
	successes int64
	failures  int64
}

// Router tries Providers in preference order for each call, falling back to
// the next on failure, and tracks simple success/failure counters per
// provider.
type Router struct {
	registry *Registry
	cfg      RouterConfig
	log      *logger.Logger

	mu      sync.Mutex
	metrics map[string]*providerMetrics

	cache *cache.Cache
	ttl   time.Duration
}

// SetCache wires a two-tier cache into Complete, keyed on the request shape
// so two identical prompts against the same model never re-pay for a
// completion within ttl (spec.md §4.1).
func (r *Router) SetCache(c *cache.Cache, ttl time.Duration) {
	r.cache = c
	r.ttl = ttl
}

type cachedCompletion struct {
	Response CompletionResponse
	Provider string
}

// NewRouter builds a Router over registry.
func NewRouter(registry *Registry, opts ...RouterOption) *Router {
	cfg := RouterConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	return &Router{
		registry: registry,
		cfg:      cfg,
		log:      logger.New("llm.router"),
		metrics:  make(map[string]*providerMetrics),
	}
}

func (r *Router) orderedNames() []string {
	all := r.registry.Names()
	seen := make(map[string]bool, len(all))
	ordered := make([]string, 0, len(all))
	for _, n := range r.cfg.PreferenceOrder {
		if _, ok := r.registry.providers[n]; ok {
			ordered = append(ordered, n)
			seen[n] = true
		}
	}
	rest := make([]string, 0, len(all))
	for _, n := range all {
		if !seen[n] {
			rest = append(rest, n)
		}
	}
	sort.Strings(rest)
	return append(ordered, rest...)
}

func (r *Router) metricsFor(name string) *providerMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.metrics[name]
	if !ok {
		m = &providerMetrics{}
		r.metrics[name] = m
	}
	return m
}

// Complete tries providers in preference order, falling back to the next on
// failure, and returns the first success. All attempts failing returns the
// last error. When a cache is wired via SetCache, an identical request within
// ttl short-circuits the whole provider loop.
func (r *Router) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, string, error) {
	if r.cache == nil {
		return r.complete(ctx, req)
	}

	key := cache.CanonicalKey("llm_intelligence", map[string]string{
		"prompt":      req.Prompt,
		"system":      req.System,
		"max_tokens":  strconv.Itoa(req.MaxTokens),
		"temperature": strconv.FormatFloat(req.Temperature, 'f', -1, 64),
	})

	raw, hit, err := r.cache.GetOrLoad(ctx, key, r.ttl, nil, func(ctx context.Context) ([]byte, error) {
		resp, provider, err := r.complete(ctx, req)
		if err != nil {
			return nil, err
		}
		return json.Marshal(cachedCompletion{Response: resp, Provider: provider})
	})
	if err != nil {
		return CompletionResponse{}, "", err
	}
	if !hit {
		return CompletionResponse{}, "", fmt.Errorf("llm: no providers registered")
	}

	var cc cachedCompletion
	if err := json.Unmarshal(raw, &cc); err != nil {
		return CompletionResponse{}, "", fmt.Errorf("llm: decoding cached completion: %w", err)
	}
	return cc.Response, cc.Provider, nil
}

func (r *Router) complete(ctx context.Context, req CompletionRequest) (CompletionResponse, string, error) {
	names := r.orderedNames()
	if len(names) == 0 {
		return CompletionResponse{}, "", fmt.Errorf("llm: no providers registered")
	}

	var lastErr error
	for _, name := range names {
		p, err := r.registry.Get(name)
		if err != nil {
			continue
		}
		resp, err := p.Complete(ctx, req)
		m := r.metricsFor(name)
		if err != nil {
			m.failures++
			lastErr = err
			r.log.Warn("provider call failed, trying next", map[string]interface{}{"provider": name, "error": err.Error()})
			continue
		}
		m.successes++
		return resp, name, nil
	}
	return CompletionResponse{}, "", fmt.Errorf("llm: all providers failed: %w", lastErr)
}

// HealthSnapshot reports success/failure counts per provider for status
// endpoints.
func (r *Router) HealthSnapshot() map[string][2]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][2]int64, len(r.metrics))
	for name, m := range r.metrics {
		out[name] = [2]int64{m.successes, m.failures}
	}
	return out
}
