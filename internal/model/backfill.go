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

package model

import "time"

// BackfillStatus is the lifecycle of a BackfillJob.
type BackfillStatus string

const (
	BackfillPending    BackfillStatus = "pending"
	BackfillInProgress BackfillStatus = "in_progress"
	BackfillCompleted  BackfillStatus = "completed"
	BackfillFailed     BackfillStatus = "failed"
	BackfillSkipped    BackfillStatus = "skipped"
)

// BackfillStrategy is how a missing field is resolved (spec.md §4.9).
type BackfillStrategy string

const (
	StrategyIntelligenceOnly BackfillStrategy = "intelligence_only"
	StrategySearchOnly       BackfillStrategy = "search_only"
	StrategyCombined         BackfillStrategy = "combined"
)

// MissingField is one field absent from a candidate record, tagged with the
// priority and estimated cost used to sort and budget BackfillJobs.
type MissingField struct {
	Field        string
	Priority     FieldPriority
	EstimatedCost float64
}

// FieldResult is the outcome of resolving one MissingField.
type FieldResult struct {
	Field      string
	NewValue   string
	Confidence float64
	Provenance string // e.g. "anthropic:intelligence" or "web_search"
	Strategy   BackfillStrategy
}

// BackfillJob aggregates the missing fields for one target record (spec.md
// §3).
type BackfillJob struct {
	ID             string
	TargetRecordID string

	MissingFields []MissingField
	Status        BackfillStatus

	Results map[string]FieldResult

	EstimatedCost float64
	TotalCost     float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// priorityOrder ranks FieldPriority for BackfillJob sort order; lower sorts
// first (critical before high before medium before low).
var priorityOrder = map[FieldPriority]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityMedium:   2,
	PriorityLow:      3,
}

// HighestPriority returns the most urgent priority among the job's missing
// fields, used to sort jobs by (priority, age) per spec.md §4.9.
func (j BackfillJob) HighestPriority() FieldPriority {
	best := PriorityLow
	bestRank := priorityOrder[PriorityLow]
	for _, f := range j.MissingFields {
		if r, ok := priorityOrder[f.Priority]; ok && r < bestRank {
			bestRank = r
			best = f.Priority
		}
	}
	return best
}

// Less orders jobs by (priority, age) ascending — more urgent, older jobs
// first.
func (j BackfillJob) Less(other BackfillJob) bool {
	jr := priorityOrder[j.HighestPriority()]
	or := priorityOrder[other.HighestPriority()]
	if jr != or {
		return jr < or
	}
	return j.CreatedAt.Before(other.CreatedAt)
}
