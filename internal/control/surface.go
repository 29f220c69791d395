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

// Package control exposes the downstream control surface (spec.md §6):
// status, trigger, results, scheduler.*, cache.*, and backfill.* as a plain
// Go interface. The HTTP/REST front door that would call into this surface
// is out of scope; Surface is the seam a separate, uncommitted router
// attaches to, and the seam cmd/collector drives directly for local use.
package control

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/africa-ai-collector/collector/internal/backfill"
	"github.com/africa-ai-collector/collector/internal/cache"
	"github.com/africa-ai-collector/collector/internal/model"
	"github.com/africa-ai-collector/collector/internal/orchestrator"
	"github.com/africa-ai-collector/collector/internal/persistence"
	"github.com/africa-ai-collector/collector/internal/scheduler"
)

// Surface is the full downstream control-surface contract.
type Surface interface {
	Status(ctx context.Context) (StatusReport, error)
	// Trigger runs pipelineName ("" or "collection_cycle" for the full
	// seven-phase cycle; otherwise one of orchestrator.PipelineNames()),
	// with pipeline-specific overrides in params (e.g.
	// "intelligence_synthesis"'s "report_types"/"time_period").
	Trigger(ctx context.Context, pipelineName string, params map[string]string) (model.PipelineRun, error)
	// Results returns up to limit most-recent results for pipelineName
	// ("" matches every pipeline name), newest first.
	Results(ctx context.Context, pipelineName string, limit int) []orchestrator.CollectionCycleResult

	SchedulerStatus(ctx context.Context) (scheduler.Settings, bool, error)
	SchedulerUpdate(ctx context.Context, next scheduler.Settings) error

	CacheInvalidate(ctx context.Context, key string) error
	// CacheInvalidatePattern removes every memory-resident key containing
	// pattern as a substring from both cache tiers, returning the count.
	CacheInvalidatePattern(ctx context.Context, pattern string) int
	CacheClearNegative(ctx context.Context) int
	CacheWarm(ctx context.Context, key string, payload []byte, ttl time.Duration)
	CacheStats(ctx context.Context) cache.Stats

	BackfillBuildJob(ctx context.Context, in model.Innovation) (model.BackfillJob, bool)
	// BackfillTrigger runs the backfill engine over ids (every record
	// missing required fields, when empty), capped at maxJobs (unbounded
	// when zero).
	BackfillTrigger(ctx context.Context, ids []string, maxJobs int) (orchestrator.BackfillRunSummary, error)
	BackfillStatus(ctx context.Context) (orchestrator.BackfillRunSummary, bool)
	BackfillStats(ctx context.Context) orchestrator.BackfillRunSummary

	SubmitCorrection(ctx context.Context, sub model.CommunitySubmission) (string, error)
	CastVote(ctx context.Context, v model.CommunityVote) error
	ReviewSubmission(ctx context.Context, id string, accept bool) error
}

// StatusReport is the status operation's payload: the last run this
// Service's Trigger recorded (not the supervisor's live state; HasRun is
// false until the first Trigger) plus the scheduler's cadence and whether a
// scheduled cycle is running, so a caller can tell "is a cycle running right
// now" from "is the scheduler even enabled" in one call.
type StatusReport struct {
	Pipeline  model.PipelineRun
	HasRun    bool
	Scheduler scheduler.Settings
	Running   bool
}

// Service implements Surface over a running Orchestrator, Scheduler, and
// Cache, keeping the last N cycle results in memory so Results can answer
// without re-deriving anything from the persistence layer (results are a
// this-process, this-uptime convenience view, not a durable query path —
// that's what persistence.Gateway is for).
type Service struct {
	mu          sync.Mutex
	orch        *orchestrator.Orchestrator
	sched       *scheduler.Scheduler
	cache       *cache.Cache
	backfillEng *backfill.Engine
	community   *persistence.CommunityStore

	// results is keyed by CollectionCycleResult.PipelineName, each slice
	// oldest-first and capped at resultsCap entries, so Results(name, limit)
	// can answer per-pipeline without re-deriving anything from persistence.
	results    map[string][]orchestrator.CollectionCycleResult
	resultsCap int

	lastRun model.PipelineRun
	hasLast bool
}

// NewService builds a Service. resultsCap bounds the in-memory results
// cache (a zero value defaults to 20). community may be nil when the
// MySQL-backed community submission store isn't configured, in which case
// the community operations return an error rather than panicking.
func NewService(orch *orchestrator.Orchestrator, sched *scheduler.Scheduler, c *cache.Cache, be *backfill.Engine, community *persistence.CommunityStore, resultsCap int) *Service {
	if resultsCap <= 0 {
		resultsCap = 20
	}
	return &Service{
		orch:        orch,
		sched:       sched,
		cache:       c,
		backfillEng: be,
		community:   community,
		results:     make(map[string][]orchestrator.CollectionCycleResult),
		resultsCap:  resultsCap,
	}
}

// Trigger runs the named pipeline synchronously (the full cycle when
// pipelineName is "" or "collection_cycle") and records its result for
// later Results lookups. Because the orchestrator's supervisor enforces the
// skip-if-running invariant per pipeline_name, Trigger never blocks behind a
// queue — a concurrent caller simply observes the skipped-run PipelineRun
// back.
func (s *Service) Trigger(ctx context.Context, pipelineName string, params map[string]string) (model.PipelineRun, error) {
	result := s.orch.TriggerPipeline(ctx, pipelineName, params)

	run := model.PipelineRun{
		PipelineName: result.PipelineName,
		RunID:        result.RunID,
		StartedAt:    result.StartedAt,
		EndedAt:      result.EndedAt,
	}
	if len(result.Errors) > 0 && result.Extractions == 0 && result.Discoveries == 0 {
		run.Status = model.PipelineFailed
	} else {
		run.Status = model.PipelineSucceeded
	}

	s.mu.Lock()
	s.lastRun = run
	s.hasLast = true
	s.recordResultLocked(result)
	s.mu.Unlock()

	return run, nil
}

func (s *Service) recordResultLocked(result orchestrator.CollectionCycleResult) {
	key := result.PipelineName
	entries := append(s.results[key], result)
	if len(entries) > s.resultsCap {
		entries = entries[len(entries)-s.resultsCap:]
	}
	s.results[key] = entries
}

// Status reports the last-observed pipeline run and the scheduler's cadence.
func (s *Service) Status(ctx context.Context) (StatusReport, error) {
	s.mu.Lock()
	run, hasRun := s.lastRun, s.hasLast
	s.mu.Unlock()

	settings, running := s.sched.Status()
	return StatusReport{Pipeline: run, HasRun: hasRun, Scheduler: settings, Running: running}, nil
}

// Results returns up to limit most-recent results for pipelineName, newest
// first; an empty pipelineName matches every pipeline, merged and re-sorted
// by start time. limit <= 0 means unbounded.
func (s *Service) Results(ctx context.Context, pipelineName string, limit int) []orchestrator.CollectionCycleResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []orchestrator.CollectionCycleResult
	if pipelineName == "" {
		for _, entries := range s.results {
			all = append(all, entries...)
		}
	} else {
		all = append(all, s.results[pipelineName]...)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].StartedAt.After(all[j].StartedAt) })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}

// SchedulerStatus reports the scheduler's current cadence settings.
func (s *Service) SchedulerStatus(ctx context.Context) (scheduler.Settings, bool, error) {
	settings, running := s.sched.Status()
	return settings, running, nil
}

// SchedulerUpdate applies new cadence settings (spec.md §4.8
// update_schedule).
func (s *Service) SchedulerUpdate(ctx context.Context, next scheduler.Settings) error {
	return s.sched.UpdateSchedule(ctx, next)
}

// CacheInvalidate evicts one cache key from both the in-memory and durable
// tiers.
func (s *Service) CacheInvalidate(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("cache invalidate: empty key")
	}
	s.cache.Invalidate(ctx, key)
	return nil
}

// CacheInvalidatePattern evicts every memory-tier key whose name contains
// pattern, returning how many were removed. Keys held only in the durable
// tier are not matched.
func (s *Service) CacheInvalidatePattern(ctx context.Context, pattern string) int {
	return s.cache.InvalidatePattern(ctx, pattern)
}

// CacheClearNegative evicts every negative entry resident in the memory
// tier, returning how many were removed; negative entries held only in the
// durable tier are not cleared. Useful after fixing a misconfigured upstream that had been
// tripping negative caching.
func (s *Service) CacheClearNegative(ctx context.Context) int {
	return s.cache.ClearNegative(ctx)
}

// CacheWarm pre-populates one cache entry, letting an operator seed a
// response ahead of the next scheduled cycle.
func (s *Service) CacheWarm(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	s.cache.Warm(ctx, key, payload, ttl)
}

// CacheStats reports the cache's cumulative hit/miss/eviction counters.
func (s *Service) CacheStats(ctx context.Context) cache.Stats {
	return s.cache.Stats()
}

// BackfillBuildJob previews the BackfillJob that would run for one
// Innovation, without running it — useful for an operator inspecting why a
// record isn't getting enriched.
func (s *Service) BackfillBuildJob(ctx context.Context, in model.Innovation) (model.BackfillJob, bool) {
	return s.backfillEng.BuildJob(in)
}

// BackfillTrigger runs the backfill engine over ids (or every record
// missing required fields, when ids is empty), capped at maxJobs.
func (s *Service) BackfillTrigger(ctx context.Context, ids []string, maxJobs int) (orchestrator.BackfillRunSummary, error) {
	return s.orch.RunBackfill(ctx, ids, maxJobs)
}

// BackfillStatus reports the most recent BackfillTrigger call's summary.
func (s *Service) BackfillStatus(ctx context.Context) (orchestrator.BackfillRunSummary, bool) {
	return s.orch.BackfillStatus()
}

// BackfillStats reports cumulative totals across every BackfillTrigger call
// this process has made.
func (s *Service) BackfillStats(ctx context.Context) orchestrator.BackfillRunSummary {
	return s.orch.BackfillStats()
}

// SubmitCorrection forwards a community-proposed field correction to the
// MySQL community store, keeping unmoderated input out of the canonical
// Postgres tables until reviewed (spec.md §3 community submission path).
func (s *Service) SubmitCorrection(ctx context.Context, sub model.CommunitySubmission) (string, error) {
	if s.community == nil {
		return "", fmt.Errorf("community submissions: no community store configured")
	}
	return s.community.SubmitCorrection(ctx, sub)
}

// CastVote records a community up/down vote on a pending submission.
func (s *Service) CastVote(ctx context.Context, v model.CommunityVote) error {
	if s.community == nil {
		return fmt.Errorf("community submissions: no community store configured")
	}
	return s.community.CastVote(ctx, v)
}

// ReviewSubmission accepts or rejects a pending community submission.
func (s *Service) ReviewSubmission(ctx context.Context, id string, accept bool) error {
	if s.community == nil {
		return fmt.Errorf("community submissions: no community store configured")
	}
	return s.community.ReviewSubmission(ctx, id, accept)
}

var _ Surface = (*Service)(nil)
