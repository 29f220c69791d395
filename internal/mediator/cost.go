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
	"sync"

	"github.com/africa-ai-collector/collector/internal/clock"
)

// CostLedger tracks spend against a daily budget, resetting at local
// midnight (spec.md §4.9 "daily counters reset at local midnight").
type CostLedger struct {
	mu sync.Mutex

	dailyLimit   float64
	maxPerCall   float64
	spentToday   float64
	reservedToday float64
	lastReset    int64 // day-start unix seconds

	clk clock.Clock
}

// CostSnapshot is a point-in-time read of ledger state.
type CostSnapshot struct {
	DailyLimitUSD float64
	SpentUSD      float64
	RemainingUSD  float64
}

// NewCostLedger builds a ledger with the given daily and per-call caps.
func NewCostLedger(dailyLimit, maxPerCall float64, clk clock.Clock) *CostLedger {
	if clk == nil {
		clk = clock.New()
	}
	return &CostLedger{dailyLimit: dailyLimit, maxPerCall: maxPerCall, clk: clk}
}

func (l *CostLedger) rolloverLocked() {
	dayStart := l.clk.StartOfDay(l.clk.Now()).Unix()
	if dayStart != l.lastReset {
		l.lastReset = dayStart
		l.spentToday = 0
		l.reservedToday = 0
	}
}

// Reserve checks whether estimatedCost fits within the per-call cap and the
// remaining daily budget, reserving it if so. Call Commit after the call
// succeeds, or Release if it's abandoned, to keep the reservation accurate.
func (l *CostLedger) Reserve(estimatedCost float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rolloverLocked()

	if l.maxPerCall > 0 && estimatedCost > l.maxPerCall {
		return false
	}
	if l.dailyLimit > 0 && l.spentToday+l.reservedToday+estimatedCost > l.dailyLimit {
		return false
	}
	l.reservedToday += estimatedCost
	return true
}

// Commit converts a prior reservation into realized spend.
func (l *CostLedger) Commit(actualCost float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rolloverLocked()
	if l.reservedToday >= actualCost {
		l.reservedToday -= actualCost
	} else {
		l.reservedToday = 0
	}
	l.spentToday += actualCost
}

// Release drops a reservation without recording spend, used when a call
// fails before completion.
func (l *CostLedger) Release(reservedCost float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.reservedToday >= reservedCost {
		l.reservedToday -= reservedCost
	} else {
		l.reservedToday = 0
	}
}

// Snapshot returns the ledger's current state.
func (l *CostLedger) Snapshot() CostSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rolloverLocked()
	remaining := l.dailyLimit - l.spentToday - l.reservedToday
	if l.dailyLimit <= 0 {
		remaining = -1 // unbounded
	}
	return CostSnapshot{
		DailyLimitUSD: l.dailyLimit,
		SpentUSD:      l.spentToday,
		RemainingUSD:  remaining,
	}
}
