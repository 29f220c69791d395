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

package mediator

import (
	"context"
	"sync"
	"time"

	"github.com/africa-ai-collector/collector/internal/clock"
	"github.com/africa-ai-collector/collector/internal/errs"
	"github.com/africa-ai-collector/collector/internal/logger"
)

// Call is one mediated upstream invocation: fn performs the actual network
// request, estimatedCostUSD is charged against the daily budget before fn
// runs (so over-budget calls are refused, not merely logged afterward).
type Call[T any] struct {
	Source           string
	EstimatedCostUSD float64
	Fn               func(ctx context.Context) (T, error)
}

// Mediator is the HTTP mediator (C6): every upstream call passes through
// rate limiting, a circuit breaker, retry-with-backoff, and cost accounting,
// generalizing the teacher's per-provider router plumbing to any source.
type Mediator struct {
	limiters  *MultiSourceRateLimiter
	breakers  map[string]*CircuitBreaker
	semaphores map[string]chan struct{}
	retryCfg  RetryConfig

	circuitThreshold int

	cost *CostLedger
	log  *logger.Logger

	mu sync.Mutex
}

// Config configures a Mediator.
type Config struct {
	DefaultRateQPS        float64
	DefaultBurst          float64
	DefaultConcurrency    int
	CircuitFailureThreshold int
	Retry                 RetryConfig
	DailyCostLimitUSD     float64
	MaxSingleCallCostUSD  float64
	Clock                 clock.Clock
}

// New builds a Mediator from cfg.
func New(cfg Config) *Mediator {
	if cfg.DefaultConcurrency <= 0 {
		cfg.DefaultConcurrency = 4
	}
	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = DefaultRetryConfig()
	}
	return &Mediator{
		limiters:   NewMultiSourceRateLimiter(cfg.DefaultRateQPS, cfg.DefaultBurst),
		breakers:   make(map[string]*CircuitBreaker),
		semaphores: make(map[string]chan struct{}),
		retryCfg:   cfg.Retry,
		circuitThreshold: cfg.CircuitFailureThreshold,
		cost:      NewCostLedger(cfg.DailyCostLimitUSD, cfg.MaxSingleCallCostUSD, cfg.Clock),
		log:        logger.New("mediator"),
	}
}

func (m *Mediator) breakerFor(source string) *CircuitBreaker {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.breakers[source]
	if !ok {
		b = NewCircuitBreaker(m.circuitThreshold, 30*time.Second)
		m.breakers[source] = b
	}
	return b
}

func (m *Mediator) semaphoreFor(source string, size int) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.semaphores[source]
	if !ok {
		if size <= 0 {
			size = 4
		}
		s = make(chan struct{}, size)
		m.semaphores[source] = s
	}
	return s
}

// ConfigureSource overrides the rate limit and concurrency cap for a
// specific source, used when a provider's published quota differs from the
// mediator-wide default.
func (m *Mediator) ConfigureSource(source string, rateQPS, burst float64, concurrency int) {
	m.limiters.Configure(source, rateQPS, burst)
	m.mu.Lock()
	defer m.mu.Unlock()
	if concurrency <= 0 {
		concurrency = 4
	}
	m.semaphores[source] = make(chan struct{}, concurrency)
}

// Do executes call through the full mediation stack: cost gate, rate limit,
// concurrency cap, circuit breaker, then retry-with-backoff around Fn.
func Do[T any](ctx context.Context, m *Mediator, call Call[T]) (T, error) {
	var zero T

	committed := false
	if call.EstimatedCostUSD > 0 {
		if !m.cost.Reserve(call.EstimatedCostUSD) {
			return zero, errs.New(errs.CostLimitExceeded, call.Source, "mediator.Do",
				"daily or per-call cost budget exceeded", nil)
		}
		defer func() {
			if !committed {
				m.cost.Release(call.EstimatedCostUSD)
			}
		}()
	}

	breaker := m.breakerFor(call.Source)
	if err := breaker.Allow(); err != nil {
		return zero, errs.New(errs.RateLimited, call.Source, "mediator.Do", "circuit breaker open", err)
	}

	sem := m.semaphoreFor(call.Source, 0)
	select {
	case sem <- struct{}{}:
		defer func() { <-sem }()
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	if err := m.limiters.For(call.Source).Wait(ctx); err != nil {
		return zero, err
	}

	result, err := RetryWithBackoff(ctx, m.retryCfg, call.Fn)
	if err != nil {
		breaker.RecordFailure()
		m.log.ErrorLog("mediated call failed", err, map[string]interface{}{"source": call.Source})
		return zero, err
	}
	breaker.RecordSuccess()
	if call.EstimatedCostUSD > 0 {
		m.cost.Commit(call.EstimatedCostUSD)
		committed = true
	}
	return result, nil
}

// CostSummary reports the ledger's current spend, for status reporting.
func (m *Mediator) CostSummary() CostSnapshot {
	return m.cost.Snapshot()
}
