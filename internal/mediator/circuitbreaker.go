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
	"fmt"
	"sync"
	"time"
)

// CircuitState is one of the three canonical circuit-breaker states.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreaker trips to open after FailureThreshold consecutive failures,
// refuses calls until ResetTimeout elapses, then moves to half-open, where
// calls are let through until the next recorded outcome either closes the
// breaker (success) or reopens it (failure).
type CircuitBreaker struct {
	mu sync.Mutex

	state CircuitState

	failureThreshold int
	resetTimeout     time.Duration

	consecutiveFailures int
	openedAt            time.Time
}

// NewCircuitBreaker builds a breaker tripping after failureThreshold
// consecutive failures and probing again after resetTimeout.
func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		state:            CircuitClosed,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
	}
}

// ErrCircuitOpen is returned by Allow when the breaker is refusing calls.
var ErrCircuitOpen = fmt.Errorf("mediator: circuit breaker open")

// Allow reports whether a call may proceed, transitioning open→half-open
// once resetTimeout has elapsed.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitClosed:
		return nil
	case CircuitOpen:
		if time.Since(b.openedAt) >= b.resetTimeout {
			b.state = CircuitHalfOpen
			return nil
		}
		return ErrCircuitOpen
	case CircuitHalfOpen:
		return nil
	default:
		return nil
	}
}

// RecordSuccess closes the breaker and resets the failure counter.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFailures = 0
	b.state = CircuitClosed
}

// RecordFailure increments the failure counter, tripping the breaker open
// once the threshold is reached (or immediately, from half-open).
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitHalfOpen {
		b.state = CircuitOpen
		b.openedAt = time.Now()
		return
	}

	b.consecutiveFailures++
	if b.consecutiveFailures >= b.failureThreshold {
		b.state = CircuitOpen
		b.openedAt = time.Now()
	}
}

// State reports the current breaker state.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
