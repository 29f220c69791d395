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

package orchestrator

import (
	"context"
	"fmt"

	"github.com/africa-ai-collector/collector/internal/backfill"
	"github.com/africa-ai-collector/collector/internal/model"
)

// BackfillRunSummary is the result of one control-surface-triggered backfill
// run, targeted or not (spec.md §4.8 backfill.trigger/status/stats).
type BackfillRunSummary struct {
	JobsAttempted  int
	JobsCompleted  int
	JobsSkipped    int
	FieldsResolved int
	TargetIDs      []string
}

func (s BackfillRunSummary) merge(other BackfillRunSummary) BackfillRunSummary {
	return BackfillRunSummary{
		JobsAttempted:  s.JobsAttempted + other.JobsAttempted,
		JobsCompleted:  s.JobsCompleted + other.JobsCompleted,
		JobsSkipped:    s.JobsSkipped + other.JobsSkipped,
		FieldsResolved: s.FieldsResolved + other.FieldsResolved,
	}
}

// RunBackfill runs the backfill engine over a specific set of target
// innovation IDs, or over every record the gateway reports as missing
// required fields when ids is empty. maxJobs of zero means unbounded.
// Results are applied to the gateway the same way phaseEnrichmentAndBackfill
// does, and the cumulative counters backfill.stats reports are updated.
func (o *Orchestrator) RunBackfill(ctx context.Context, ids []string, maxJobs int) (BackfillRunSummary, error) {
	if o.backfillEngine == nil {
		return BackfillRunSummary{}, fmt.Errorf("orchestrator: no backfill engine configured")
	}

	var candidates []model.Innovation
	if len(ids) > 0 {
		for _, id := range ids {
			in, ok, err := o.gateway.GetInnovation(ctx, id)
			if err != nil {
				return BackfillRunSummary{}, fmt.Errorf("loading backfill target %q: %w", id, err)
			}
			if ok {
				candidates = append(candidates, in)
			}
		}
	} else {
		cs, err := o.gateway.ListInnovationsMissingFields(ctx, o.cfg.MaxETLBatchSize)
		if err != nil {
			return BackfillRunSummary{}, fmt.Errorf("listing backfill candidates: %w", err)
		}
		candidates = cs
	}

	var jobs []model.BackfillJob
	jobByTarget := make(map[string]model.Innovation, len(candidates))
	for _, in := range candidates {
		job, ok := o.backfillEngine.BuildJob(in)
		if !ok {
			continue
		}
		jobs = append(jobs, job)
		jobByTarget[in.ID] = in
	}
	backfill.SortJobs(jobs)
	if maxJobs > 0 && len(jobs) > maxJobs {
		jobs = jobs[:maxJobs]
	}

	summary := BackfillRunSummary{JobsAttempted: len(jobs)}
	for _, job := range jobs {
		in := jobByTarget[job.TargetRecordID]
		result := o.backfillEngine.Run(ctx, job, in)
		if result.Status == model.BackfillSkipped || len(result.Results) == 0 {
			summary.JobsSkipped++
			continue
		}

		applied := applyBackfillResults(in, result)
		if _, _, err := o.gateway.UpsertInnovation(ctx, applied); err != nil {
			return summary, fmt.Errorf("persisting backfilled innovation %q: %w", in.ID, err)
		}
		summary.JobsCompleted++
		summary.FieldsResolved += len(result.Results)
		summary.TargetIDs = append(summary.TargetIDs, in.ID)
	}

	o.recordBackfillRun(summary)
	return summary, nil
}

func (o *Orchestrator) recordBackfillRun(summary BackfillRunSummary) {
	o.backfillMu.Lock()
	defer o.backfillMu.Unlock()
	o.lastBackfillRun = summary
	o.hasBackfillRun = true
	o.backfillTotals = o.backfillTotals.merge(summary)
}

// BackfillStatus reports the most recent RunBackfill call's summary.
func (o *Orchestrator) BackfillStatus() (BackfillRunSummary, bool) {
	o.backfillMu.Lock()
	defer o.backfillMu.Unlock()
	return o.lastBackfillRun, o.hasBackfillRun
}

// BackfillStats reports the cumulative totals across every RunBackfill call
// this process has made.
func (o *Orchestrator) BackfillStats() BackfillRunSummary {
	o.backfillMu.Lock()
	defer o.backfillMu.Unlock()
	return o.backfillTotals
}
