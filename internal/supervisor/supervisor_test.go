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

package supervisor

import (
	"sync"
	"testing"
	"time"

	"github.com/africa-ai-collector/collector/internal/clock"
	"github.com/africa-ai-collector/collector/internal/model"
)

func TestStartThenCompleteSucceeds(t *testing.T) {
	s := New(nil, clock.NewFrozen(time.Now()), 0)

	run, err := s.Start("cycle")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if run.Status != model.PipelineRunning {
		t.Errorf("Status = %v, want %v", run.Status, model.PipelineRunning)
	}

	completed, err := s.Complete("cycle", model.PipelineSucceeded, model.RunMetrics{}, nil)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if completed.Status != model.PipelineSucceeded {
		t.Errorf("Status = %v, want %v", completed.Status, model.PipelineSucceeded)
	}

	status, ok := s.Status("cycle")
	if !ok || status.Status != model.PipelineSucceeded {
		t.Errorf("Status() = %+v, %v", status, ok)
	}
}

func TestStartWhileRunningIsRejected(t *testing.T) {
	s := New(nil, clock.New(), 0)

	if _, err := s.Start("cycle"); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if _, err := s.Start("cycle"); err != ErrAlreadyRunning {
		t.Errorf("second Start err = %v, want %v", err, ErrAlreadyRunning)
	}
}

func TestStartAfterCompletionIsAllowed(t *testing.T) {
	s := New(nil, clock.New(), 0)

	if _, err := s.Start("cycle"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := s.Complete("cycle", model.PipelineFailed, model.RunMetrics{}, nil); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if _, err := s.Start("cycle"); err != nil {
		t.Errorf("Start after terminal completion should succeed, got %v", err)
	}
}

func TestCompleteWithoutStartIsAnError(t *testing.T) {
	s := New(nil, clock.New(), 0)
	if _, err := s.Complete("cycle", model.PipelineSucceeded, model.RunMetrics{}, nil); err == nil {
		t.Error("expected an error completing a pipeline that never started")
	}
}

func TestCompleteRejectsNonTerminalOutcome(t *testing.T) {
	s := New(nil, clock.New(), 0)
	if _, err := s.Start("cycle"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := s.Complete("cycle", model.PipelineRunning, model.RunMetrics{}, nil); err == nil {
		t.Error("expected an error completing with a non-terminal outcome")
	}
}

func TestSkipRecordsAStatusWithoutStarting(t *testing.T) {
	s := New(nil, clock.New(), 0)
	run := s.Skip("cycle", "already running")
	if run.Status != model.PipelineSkipped {
		t.Errorf("Status = %v, want %v", run.Status, model.PipelineSkipped)
	}
	if run.Error != "already running" {
		t.Errorf("Error = %q, want %q", run.Error, "already running")
	}
}

func TestDifferentPipelinesDoNotContend(t *testing.T) {
	s := New(nil, clock.New(), 0)
	if _, err := s.Start("cycle-a"); err != nil {
		t.Fatalf("Start cycle-a: %v", err)
	}
	if _, err := s.Start("cycle-b"); err != nil {
		t.Errorf("Start cycle-b should not be blocked by cycle-a: %v", err)
	}
}

func TestRecoverStuckRuns(t *testing.T) {
	clk := clock.NewFrozen(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s := New(nil, clk, 30*time.Minute)

	if _, err := s.Start("cycle"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	clk.Advance(time.Hour)

	recovered := s.RecoverStuckRuns()
	if len(recovered) != 1 {
		t.Fatalf("recovered %d runs, want 1", len(recovered))
	}
	if recovered[0].Status != model.PipelineFailed {
		t.Errorf("recovered Status = %v, want %v", recovered[0].Status, model.PipelineFailed)
	}

	status, ok := s.Status("cycle")
	if !ok || status.Status != model.PipelineFailed {
		t.Errorf("Status() after recovery = %+v, %v", status, ok)
	}
}

func TestStartIsSafeForConcurrentCallers(t *testing.T) {
	s := New(nil, clock.New(), 0)

	const n = 50
	var wg sync.WaitGroup
	successes := make(chan bool, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := s.Start("cycle")
			successes <- err == nil
		}()
	}
	wg.Wait()
	close(successes)

	count := 0
	for ok := range successes {
		if ok {
			count++
		}
	}
	if count != 1 {
		t.Errorf("exactly one concurrent Start should succeed, got %d", count)
	}
}
