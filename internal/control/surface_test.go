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

package control

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/africa-ai-collector/collector/internal/backfill"
	"github.com/africa-ai-collector/collector/internal/cache"
	"github.com/africa-ai-collector/collector/internal/clock"
	"github.com/africa-ai-collector/collector/internal/model"
	"github.com/africa-ai-collector/collector/internal/orchestrator"
	"github.com/africa-ai-collector/collector/internal/scheduler"
)

func newTestService(t *testing.T, resultsCap int) *Service {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)

	store, err := cache.NewRedisStore(context.Background(), cache.RedisStoreOptions{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	c, err := cache.New(store, cache.Options{DefaultTTL: time.Minute})
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}

	sched := scheduler.New(scheduler.Settings{Interval: time.Hour, Enabled: false}, func(ctx context.Context) {})
	be := backfill.New(nil, nil, nil, clock.NewFrozen(time.Now()))

	return NewService(nil, sched, c, be, nil, resultsCap)
}

func TestCacheInvalidateRejectsEmptyKey(t *testing.T) {
	s := newTestService(t, 0)
	if err := s.CacheInvalidate(context.Background(), ""); err == nil {
		t.Error("expected an error invalidating an empty key")
	}
}

func TestCacheInvalidateClearsKey(t *testing.T) {
	s := newTestService(t, 0)
	if err := s.CacheInvalidate(context.Background(), "some-key"); err != nil {
		t.Errorf("CacheInvalidate: %v", err)
	}
}

func TestBackfillBuildJobDelegatesToEngine(t *testing.T) {
	s := newTestService(t, 0)
	job, ok := s.BackfillBuildJob(context.Background(), model.Innovation{ID: "inno-1"})
	if !ok {
		t.Fatal("expected a job for a record missing every required field")
	}
	if job.TargetRecordID != "inno-1" {
		t.Errorf("TargetRecordID = %q, want %q", job.TargetRecordID, "inno-1")
	}
}

func TestCommunityOperationsErrorWithoutAStore(t *testing.T) {
	s := newTestService(t, 0)

	if _, err := s.SubmitCorrection(context.Background(), model.CommunitySubmission{}); err == nil {
		t.Error("SubmitCorrection should error when no community store is configured")
	}
	if err := s.CastVote(context.Background(), model.CommunityVote{}); err == nil {
		t.Error("CastVote should error when no community store is configured")
	}
	if err := s.ReviewSubmission(context.Background(), "sub-1", true); err == nil {
		t.Error("ReviewSubmission should error when no community store is configured")
	}
}

func TestSchedulerStatusAndUpdate(t *testing.T) {
	s := newTestService(t, 0)

	settings, running, err := s.SchedulerStatus(context.Background())
	if err != nil {
		t.Fatalf("SchedulerStatus: %v", err)
	}
	if running {
		t.Error("running = true, want false before any trigger")
	}
	if settings.Interval != time.Hour {
		t.Errorf("Interval = %v, want 1h", settings.Interval)
	}

	if err := s.SchedulerUpdate(context.Background(), scheduler.Settings{Interval: 2 * time.Hour, Enabled: false}); err != nil {
		t.Fatalf("SchedulerUpdate: %v", err)
	}
	settings, _, _ = s.SchedulerStatus(context.Background())
	if settings.Interval != 2*time.Hour {
		t.Errorf("Interval after update = %v, want 2h", settings.Interval)
	}
}

func TestStatusReportsSchedulerAndLastRun(t *testing.T) {
	s := newTestService(t, 0)

	report, err := s.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if report.HasRun {
		t.Error("HasRun = true before any Trigger has completed")
	}

	s.mu.Lock()
	s.lastRun = model.PipelineRun{RunID: "run-1", Status: model.PipelineSucceeded}
	s.hasLast = true
	s.mu.Unlock()

	report, err = s.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !report.HasRun || report.Pipeline.RunID != "run-1" {
		t.Errorf("Status after a recorded run = %+v", report)
	}
}

func TestRecordResultLockedEvictsOldestBeyondCap(t *testing.T) {
	s := newTestService(t, 2)

	s.recordResultLocked(orchestrator.CollectionCycleResult{RunID: "run-1", PipelineName: "collection_cycle", StartedAt: time.Unix(1, 0)})
	s.recordResultLocked(orchestrator.CollectionCycleResult{RunID: "run-2", PipelineName: "collection_cycle", StartedAt: time.Unix(2, 0)})
	s.recordResultLocked(orchestrator.CollectionCycleResult{RunID: "run-3", PipelineName: "collection_cycle", StartedAt: time.Unix(3, 0)})

	results := s.Results(context.Background(), "collection_cycle", 0)
	var ids []string
	for _, r := range results {
		ids = append(ids, r.RunID)
	}
	if len(ids) != 2 {
		t.Fatalf("results = %v, want exactly 2 entries (cap of 2)", ids)
	}
	for _, id := range ids {
		if id == "run-1" {
			t.Error("run-1 should have been evicted once the cap of 2 was exceeded")
		}
	}
}

func TestResultsFiltersByPipelineNameAndOrdersNewestFirst(t *testing.T) {
	s := newTestService(t, 10)

	s.recordResultLocked(orchestrator.CollectionCycleResult{RunID: "run-1", PipelineName: "discovery", StartedAt: time.Unix(1, 0)})
	s.recordResultLocked(orchestrator.CollectionCycleResult{RunID: "run-2", PipelineName: "news", StartedAt: time.Unix(2, 0)})
	s.recordResultLocked(orchestrator.CollectionCycleResult{RunID: "run-3", PipelineName: "discovery", StartedAt: time.Unix(3, 0)})

	results := s.Results(context.Background(), "discovery", 0)
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].RunID != "run-3" || results[1].RunID != "run-1" {
		t.Errorf("results = %+v, want run-3 then run-1 (newest first)", results)
	}
}
