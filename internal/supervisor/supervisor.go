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

// Package supervisor owns the per-pipeline run state machine (spec.md §4.6).
// Start moves a pipeline straight to running (model.PipelineStarting is not
// used by this package); Complete moves it to succeeded or failed, and Skip
// records a separate skipped run. At most one run per pipeline name may be
// in the running state at a time; a second start attempt while one is in
// flight is rejected with ErrAlreadyRunning, which callers record via Skip,
// matching the scheduler's skip-if-running semantics rather than queuing.
package supervisor

import (
	"fmt"
	"sync"
	"time"

	"github.com/africa-ai-collector/collector/internal/clock"
	"github.com/africa-ai-collector/collector/internal/logger"
	"github.com/africa-ai-collector/collector/internal/model"
	"github.com/africa-ai-collector/collector/internal/persistence"
)

// ErrAlreadyRunning is returned by Start when the named pipeline already has
// a run in the starting or running state.
var ErrAlreadyRunning = fmt.Errorf("supervisor: pipeline already running")

// pipelineSlot holds the single in-flight run (if any) for one pipeline
// name, guarded by its own mutex so unrelated pipelines never contend.
type pipelineSlot struct {
	mu      sync.Mutex
	current *model.PipelineRun
}

// Supervisor tracks one run-state slot per pipeline name and durably records
// every completed run via a RunHistoryStore.
type Supervisor struct {
	history *persistence.RunHistoryStore
	clock   clock.Clock
	log     *logger.Logger

	slotsMu sync.Mutex
	slots   map[string]*pipelineSlot

	// stuckAfter bounds how long a run may sit in PipelineRunning before a
	// crash-recovery scan considers it abandoned.
	stuckAfter time.Duration
}

// New builds a Supervisor. stuckAfter of zero defaults to one hour.
func New(history *persistence.RunHistoryStore, clk clock.Clock, stuckAfter time.Duration) *Supervisor {
	if clk == nil {
		clk = clock.New()
	}
	if stuckAfter <= 0 {
		stuckAfter = time.Hour
	}
	return &Supervisor{
		history:    history,
		clock:      clk,
		log:        logger.New("supervisor"),
		slots:      make(map[string]*pipelineSlot),
		stuckAfter: stuckAfter,
	}
}

func (s *Supervisor) slotFor(pipelineName string) *pipelineSlot {
	s.slotsMu.Lock()
	defer s.slotsMu.Unlock()
	slot, ok := s.slots[pipelineName]
	if !ok {
		slot = &pipelineSlot{}
		s.slots[pipelineName] = slot
	}
	return slot
}

// Start attempts to transition pipelineName from idle to running. Only one
// caller succeeds when invoked concurrently; the rest observe
// ErrAlreadyRunning and must not begin work.
func (s *Supervisor) Start(pipelineName string) (model.PipelineRun, error) {
	slot := s.slotFor(pipelineName)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.current != nil && !slot.current.Status.Terminal() {
		return model.PipelineRun{}, ErrAlreadyRunning
	}

	run := model.PipelineRun{
		PipelineName: pipelineName,
		RunID:        clock.NewID(),
		StartedAt:    s.clock.Now(),
		Status:       model.PipelineRunning,
	}
	slot.current = &run
	s.log.Info("pipeline run started", map[string]interface{}{
		"pipeline_name": pipelineName, "run_id": run.RunID,
	})
	return run, nil
}

// Skip records a run that was never started because one was already in
// flight, so scheduler skips still show up in history.
func (s *Supervisor) Skip(pipelineName, reason string) model.PipelineRun {
	run := model.PipelineRun{
		PipelineName: pipelineName,
		RunID:        clock.NewID(),
		StartedAt:    s.clock.Now(),
		EndedAt:      s.clock.Now(),
		Status:       model.PipelineSkipped,
		Error:        reason,
	}
	s.persist(run)
	return run
}

// Complete transitions a running run to a terminal state and persists it.
// outcome must be PipelineSucceeded or PipelineFailed.
func (s *Supervisor) Complete(pipelineName string, outcome model.PipelineState, metrics model.RunMetrics, runErr error) (model.PipelineRun, error) {
	if outcome != model.PipelineSucceeded && outcome != model.PipelineFailed {
		return model.PipelineRun{}, fmt.Errorf("supervisor: invalid terminal state %q", outcome)
	}

	slot := s.slotFor(pipelineName)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.current == nil || slot.current.Status.Terminal() {
		return model.PipelineRun{}, fmt.Errorf("supervisor: no in-flight run for %q", pipelineName)
	}

	run := *slot.current
	run.EndedAt = s.clock.Now()
	run.Status = outcome
	run.Metrics = metrics
	if runErr != nil {
		run.Error = runErr.Error()
	}
	slot.current = &run

	s.log.Info("pipeline run completed", map[string]interface{}{
		"pipeline_name": pipelineName, "run_id": run.RunID, "status": string(outcome),
		"duration_ms": run.Duration().Milliseconds(),
	})
	s.persist(run)
	return run, nil
}

func (s *Supervisor) persist(run model.PipelineRun) {
	if s.history == nil {
		return
	}
	if err := s.history.AppendRun(run); err != nil {
		s.log.ErrorLog("failed to persist pipeline run", err, map[string]interface{}{
			"pipeline_name": run.PipelineName, "run_id": run.RunID,
		})
	}
}

// Status returns the current (possibly in-flight) run for a pipeline, or
// false if none has ever started in this process.
func (s *Supervisor) Status(pipelineName string) (model.PipelineRun, bool) {
	slot := s.slotFor(pipelineName)
	slot.mu.Lock()
	defer slot.mu.Unlock()
	if slot.current == nil {
		return model.PipelineRun{}, false
	}
	return *slot.current, true
}

// RecoverStuckRuns scans the in-memory run state (populated only for
// pipelines this process has started, so nothing survives a restart) and
// force-fails any run that has sat in PipelineRunning longer than
// stuckAfter, e.g. one whose caller never called Complete. Returns the runs
// it recovered.
func (s *Supervisor) RecoverStuckRuns() []model.PipelineRun {
	s.slotsMu.Lock()
	names := make([]string, 0, len(s.slots))
	for name := range s.slots {
		names = append(names, name)
	}
	s.slotsMu.Unlock()

	now := s.clock.Now()
	var recovered []model.PipelineRun
	for _, name := range names {
		slot := s.slotFor(name)
		slot.mu.Lock()
		if slot.current != nil && slot.current.Status == model.PipelineRunning &&
			now.Sub(slot.current.StartedAt) > s.stuckAfter {
			run := *slot.current
			run.EndedAt = now
			run.Status = model.PipelineFailed
			run.Error = "recovered: exceeded stuck-run threshold"
			slot.current = &run
			s.persist(run)
			recovered = append(recovered, run)
		}
		slot.mu.Unlock()
	}
	if len(recovered) > 0 {
		s.log.Warn("recovered stuck pipeline runs", map[string]interface{}{"count": len(recovered)})
	}
	return recovered
}
