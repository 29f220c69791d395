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

package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTickSkipsWhileAlreadyRunning(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	var calls int32

	s := New(Settings{}, func(ctx context.Context) {
		atomic.AddInt32(&calls, 1)
		started <- struct{}{}
		<-release
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.tick(context.Background())
	}()
	<-started

	// A second tick while the first is still in flight must be skipped, not
	// queued.
	s.tick(context.Background())

	close(release)
	wg.Wait()

	if calls != 1 {
		t.Errorf("runCycle invoked %d times, want exactly 1 (second tick should have skipped)", calls)
	}
}

func TestTickRunsAgainAfterPreviousCompletes(t *testing.T) {
	var calls int32
	s := New(Settings{}, func(ctx context.Context) {
		atomic.AddInt32(&calls, 1)
	})

	s.tick(context.Background())
	s.tick(context.Background())

	if calls != 2 {
		t.Errorf("runCycle invoked %d times, want 2 (sequential, non-overlapping ticks should both run)", calls)
	}
}

func TestStatusReportsRunningDuringTick(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	s := New(Settings{Interval: time.Minute, Enabled: true}, func(ctx context.Context) {
		close(started)
		<-release
	})

	go s.tick(context.Background())
	<-started

	_, running := s.Status()
	if !running {
		t.Error("Status() running = false while a cycle is in flight")
	}
	close(release)
}

func TestUpdateScheduleRescheduleOnIntervalChange(t *testing.T) {
	s := New(Settings{Interval: time.Hour, Enabled: true}, func(ctx context.Context) {})
	s.cron.Start()
	defer s.cron.Stop()

	if err := s.scheduleLocked(context.Background()); err != nil {
		t.Fatalf("scheduleLocked: %v", err)
	}
	firstEntry := s.entryID

	if err := s.UpdateSchedule(context.Background(), Settings{Interval: 2 * time.Hour, Enabled: true}); err != nil {
		t.Fatalf("UpdateSchedule: %v", err)
	}
	settings, _ := s.Status()
	if settings.Interval != 2*time.Hour {
		t.Errorf("Interval = %v, want 2h", settings.Interval)
	}
	if s.entryID == 0 || s.entryID == firstEntry {
		t.Errorf("expected a freshly scheduled entry, got %v (was %v)", s.entryID, firstEntry)
	}
}

// TestUpdateScheduleMetadataOnlyKeepsCronEntry guards against a schedule
// wipe-out when only non-cadence fields (Types, Provider,
// GeographicFocus) change: the existing cron entry must survive untouched.
func TestUpdateScheduleMetadataOnlyKeepsCronEntry(t *testing.T) {
	s := New(Settings{Interval: time.Hour, Enabled: true}, func(ctx context.Context) {})
	s.cron.Start()
	defer s.cron.Stop()

	if err := s.scheduleLocked(context.Background()); err != nil {
		t.Fatalf("scheduleLocked: %v", err)
	}
	before := s.entryID

	if err := s.UpdateSchedule(context.Background(), Settings{
		Interval: time.Hour, Enabled: true, Provider: "anthropic", Types: []string{"startup"},
	}); err != nil {
		t.Fatalf("UpdateSchedule: %v", err)
	}

	if s.entryID != before {
		t.Errorf("entryID changed from %v to %v on a metadata-only update; the cron entry should be left alone", before, s.entryID)
	}
	if len(s.cron.Entries()) != 1 {
		t.Errorf("cron has %d entries after a metadata-only update, want 1", len(s.cron.Entries()))
	}
}

func TestUpdateScheduleDisablingRemovesEntry(t *testing.T) {
	s := New(Settings{Interval: time.Hour, Enabled: true}, func(ctx context.Context) {})
	s.cron.Start()
	defer s.cron.Stop()

	if err := s.scheduleLocked(context.Background()); err != nil {
		t.Fatalf("scheduleLocked: %v", err)
	}

	if err := s.UpdateSchedule(context.Background(), Settings{Interval: time.Hour, Enabled: false}); err != nil {
		t.Fatalf("UpdateSchedule: %v", err)
	}
	if len(s.cron.Entries()) != 0 {
		t.Errorf("cron has %d entries after disabling, want 0", len(s.cron.Entries()))
	}
}

func TestStartWithDisabledSettingsDoesNotSchedule(t *testing.T) {
	s := New(Settings{Interval: time.Hour, Enabled: false}, func(ctx context.Context) {})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()
	if len(s.cron.Entries()) != 0 {
		t.Errorf("cron has %d entries, want 0 when disabled", len(s.cron.Entries()))
	}
}
