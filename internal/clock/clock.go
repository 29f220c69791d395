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

// Package clock provides the monotonic time source and opaque ID generation
// used throughout the collector. Components take a Clock interface rather
// than calling time.Now() directly so tests can inject deterministic time.
package clock

import (
	"time"

	"github.com/google/uuid"
)

// Clock abstracts wall-clock time so supervisors, the cache, and the cost
// ledger can be tested without sleeping or racing real time.
type Clock interface {
	Now() time.Time
	// StartOfDay returns midnight in the clock's reference location for the
	// given instant, used by the daily cost-budget reset (§4.9).
	StartOfDay(t time.Time) time.Time
}

// Real is the production Clock backed by the system clock. Now reports UTC;
// StartOfDay returns midnight in the host's local time zone.
type Real struct{}

// New returns the production Clock.
func New() Clock { return Real{} }

func (Real) Now() time.Time { return time.Now().UTC() }

func (Real) StartOfDay(t time.Time) time.Time {
	y, m, d := t.In(time.Local).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// NewID returns an opaque record/run identifier. IDs are never parsed for
// meaning by any component; they exist purely as stable handles.
func NewID() string {
	return uuid.NewString()
}

// Frozen is a Clock for tests: Now() always returns the configured instant
// until Advance is called.
type Frozen struct {
	at time.Time
}

// NewFrozen returns a Clock fixed at t.
func NewFrozen(t time.Time) *Frozen {
	return &Frozen{at: t}
}

func (f *Frozen) Now() time.Time { return f.at }

func (f *Frozen) StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Advance moves the frozen clock forward by d.
func (f *Frozen) Advance(d time.Duration) {
	f.at = f.at.Add(d)
}

// Set pins the frozen clock to t.
func (f *Frozen) Set(t time.Time) {
	f.at = t
}
