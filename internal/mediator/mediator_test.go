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
	"errors"
	"testing"
	"time"

	"github.com/africa-ai-collector/collector/internal/clock"
	"github.com/africa-ai-collector/collector/internal/errs"
)

func TestDoHappyPath(t *testing.T) {
	m := New(Config{DefaultRateQPS: 1000, DefaultBurst: 1000, Clock: clock.NewFrozen(time.Now())})

	got, err := Do(context.Background(), m, Call[string]{
		Source: "arxiv",
		Fn: func(ctx context.Context) (string, error) {
			return "ok", nil
		},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got != "ok" {
		t.Errorf("got %q, want %q", got, "ok")
	}
}

func TestDoCostGateRejection(t *testing.T) {
	m := New(Config{
		DefaultRateQPS: 1000, DefaultBurst: 1000,
		DailyCostLimitUSD: 1.0,
		Clock:             clock.NewFrozen(time.Now()),
	})

	called := false
	_, err := Do(context.Background(), m, Call[string]{
		Source:           "llm-intelligence",
		EstimatedCostUSD: 5.0,
		Fn: func(ctx context.Context) (string, error) {
			called = true
			return "unused", nil
		},
	})
	if called {
		t.Error("Fn should not be invoked when the cost gate rejects the call")
	}
	if errs.KindOf(err) != errs.CostLimitExceeded {
		t.Errorf("err kind = %v, want %v", errs.KindOf(err), errs.CostLimitExceeded)
	}
}

func TestDoPerCallCapRejection(t *testing.T) {
	m := New(Config{
		DefaultRateQPS: 1000, DefaultBurst: 1000,
		DailyCostLimitUSD:    100,
		MaxSingleCallCostUSD: 0.5,
		Clock:                clock.NewFrozen(time.Now()),
	})

	_, err := Do(context.Background(), m, Call[string]{
		Source:           "llm-intelligence",
		EstimatedCostUSD: 0.75,
		Fn: func(ctx context.Context) (string, error) {
			return "unused", nil
		},
	})
	if errs.KindOf(err) != errs.CostLimitExceeded {
		t.Errorf("err kind = %v, want %v", errs.KindOf(err), errs.CostLimitExceeded)
	}
}

func TestDoFailureRecordedOnBreaker(t *testing.T) {
	m := New(Config{
		DefaultRateQPS: 1000, DefaultBurst: 1000,
		CircuitFailureThreshold: 2,
		Retry:                   RetryConfig{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
		Clock:                   clock.NewFrozen(time.Now()),
	})

	failing := errs.New(errs.NetworkError, "arxiv", "fetch", "boom", nil)
	call := Call[string]{
		Source: "arxiv",
		Fn: func(ctx context.Context) (string, error) {
			return "", failing
		},
	}

	for i := 0; i < 2; i++ {
		if _, err := Do(context.Background(), m, call); err == nil {
			t.Fatalf("attempt %d: expected an error", i)
		}
	}

	breaker := m.breakerFor("arxiv")
	if breaker.State() != CircuitOpen {
		t.Errorf("breaker state = %v, want %v after %d consecutive failures", breaker.State(), CircuitOpen, 2)
	}

	// A third call must be refused outright by the open breaker, never
	// reaching Fn.
	called := false
	_, err := Do(context.Background(), m, Call[string]{
		Source: "arxiv",
		Fn: func(ctx context.Context) (string, error) {
			called = true
			return "", nil
		},
	})
	if called {
		t.Error("Fn invoked while the circuit breaker is open")
	}
	if err == nil {
		t.Error("expected an error from an open circuit breaker")
	}
}

func TestCircuitBreakerTripsAfterThreshold(t *testing.T) {
	b := NewCircuitBreaker(3, time.Minute)
	for i := 0; i < 2; i++ {
		b.RecordFailure()
		if b.State() != CircuitClosed {
			t.Fatalf("after %d failures, state = %v, want still closed", i+1, b.State())
		}
	}
	b.RecordFailure()
	if b.State() != CircuitOpen {
		t.Errorf("after 3 failures, state = %v, want %v", b.State(), CircuitOpen)
	}
	if err := b.Allow(); err != ErrCircuitOpen {
		t.Errorf("Allow() = %v, want %v", err, ErrCircuitOpen)
	}
}

func TestCircuitBreakerHalfOpenProbeAfterResetTimeout(t *testing.T) {
	b := NewCircuitBreaker(1, 10*time.Millisecond)
	b.RecordFailure()
	if b.State() != CircuitOpen {
		t.Fatalf("state = %v, want %v", b.State(), CircuitOpen)
	}

	time.Sleep(20 * time.Millisecond)
	if err := b.Allow(); err != nil {
		t.Fatalf("Allow() after reset timeout = %v, want nil (half-open probe)", err)
	}
	if b.State() != CircuitHalfOpen {
		t.Errorf("state = %v, want %v", b.State(), CircuitHalfOpen)
	}
}

func TestCircuitBreakerRecordSuccessClosesFromHalfOpen(t *testing.T) {
	b := NewCircuitBreaker(1, 10*time.Millisecond)
	b.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	b.Allow() // transitions to half-open

	b.RecordSuccess()
	if b.State() != CircuitClosed {
		t.Errorf("state = %v, want %v after RecordSuccess", b.State(), CircuitClosed)
	}
}

func TestCircuitBreakerHalfOpenFailureReopensImmediately(t *testing.T) {
	b := NewCircuitBreaker(5, 10*time.Millisecond)
	b.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	b.Allow() // half-open

	b.RecordFailure()
	if b.State() != CircuitOpen {
		t.Errorf("state = %v, want %v: a half-open probe failure must reopen immediately, not wait for the threshold", b.State(), CircuitOpen)
	}
}

func TestRetryWithBackoffRetriesRecoverableErrors(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
	attempts := 0
	got, err := RetryWithBackoff(context.Background(), cfg, func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", errs.New(errs.NetworkError, "arxiv", "fetch", "transient", nil)
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("RetryWithBackoff: %v", err)
	}
	if got != "ok" || attempts != 3 {
		t.Errorf("got %q after %d attempts, want \"ok\" after 3", got, attempts)
	}
}

func TestRetryWithBackoffStopsOnNonRecoverableError(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
	attempts := 0
	_, err := RetryWithBackoff(context.Background(), cfg, func(ctx context.Context) (string, error) {
		attempts++
		return "", errs.New(errs.AuthError, "arxiv", "fetch", "bad credentials", nil)
	})
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1: a non-recoverable error must short-circuit retries", attempts)
	}
	if errs.KindOf(err) != errs.AuthError {
		t.Errorf("err kind = %v, want %v", errs.KindOf(err), errs.AuthError)
	}
}

func TestRetryWithBackoffExhaustsAttempts(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
	attempts := 0
	_, err := RetryWithBackoff(context.Background(), cfg, func(ctx context.Context) (string, error) {
		attempts++
		return "", errs.New(errs.Timeout, "arxiv", "fetch", "slow", nil)
	})
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2 (MaxAttempts)", attempts)
	}
	if err == nil {
		t.Error("expected the last error to be returned once attempts are exhausted")
	}
}

func TestRetryWithBackoffRespectsContextCancellation(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: time.Hour, MaxDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	go func() {
		<-time.After(5 * time.Millisecond)
		cancel()
	}()

	_, err := RetryWithBackoff(ctx, cfg, func(ctx context.Context) (string, error) {
		attempts++
		return "", errs.New(errs.NetworkError, "arxiv", "fetch", "transient", nil)
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want exactly 1 before the backoff wait was cancelled", attempts)
	}
}

func TestCostLedgerReserveCommitRelease(t *testing.T) {
	clk := clock.NewFrozen(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	l := NewCostLedger(10, 5, clk)

	if !l.Reserve(3) {
		t.Fatal("Reserve(3) should succeed within both caps")
	}
	snap := l.Snapshot()
	if snap.RemainingUSD != 7 {
		t.Errorf("RemainingUSD = %v, want 7 while reserved", snap.RemainingUSD)
	}

	l.Commit(3)
	snap = l.Snapshot()
	if snap.SpentUSD != 3 || snap.RemainingUSD != 7 {
		t.Errorf("after Commit, got %+v, want spent=3 remaining=7", snap)
	}

	if !l.Reserve(2) {
		t.Fatal("Reserve(2) should succeed")
	}
	l.Release(2)
	snap = l.Snapshot()
	if snap.RemainingUSD != 7 {
		t.Errorf("after Release, RemainingUSD = %v, want 7 (reservation dropped, nothing spent)", snap.RemainingUSD)
	}
}

func TestCostLedgerRejectsOverPerCallCap(t *testing.T) {
	l := NewCostLedger(100, 5, clock.NewFrozen(time.Now()))
	if l.Reserve(6) {
		t.Error("Reserve(6) should fail: exceeds the 5 per-call cap")
	}
}

func TestCostLedgerRejectsOverDailyLimit(t *testing.T) {
	l := NewCostLedger(10, 0, clock.NewFrozen(time.Now()))
	if !l.Reserve(9) {
		t.Fatal("Reserve(9) should succeed")
	}
	l.Commit(9)
	if l.Reserve(2) {
		t.Error("Reserve(2) should fail: only 1 remains of the 10 daily limit")
	}
}

func TestCostLedgerDailyRollover(t *testing.T) {
	clk := clock.NewFrozen(time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC))
	l := NewCostLedger(10, 0, clk)

	if !l.Reserve(9) {
		t.Fatal("Reserve(9) should succeed")
	}
	l.Commit(9)
	if l.Reserve(5) {
		t.Fatal("Reserve(5) should fail before the day rolls over")
	}

	clk.Advance(2 * time.Hour) // crosses into 2026-01-02
	if !l.Reserve(5) {
		t.Error("Reserve(5) should succeed once the daily counters reset at midnight")
	}
}
