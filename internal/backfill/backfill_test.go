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

package backfill

import (
	"testing"
	"time"

	"github.com/africa-ai-collector/collector/internal/clock"
	"github.com/africa-ai-collector/collector/internal/model"
)

func newTestEngine() *Engine {
	return New(nil, nil, nil, clock.NewFrozen(time.Now()))
}

func TestBuildJobEnumeratesMissingFields(t *testing.T) {
	e := newTestEngine()
	in := model.Innovation{ID: "inno-1", Title: "Solar Irrigation", Description: "already has a description"}

	job, ok := e.BuildJob(in)
	if !ok {
		t.Fatal("expected BuildJob to find missing fields")
	}
	if job.TargetRecordID != "inno-1" {
		t.Errorf("TargetRecordID = %q, want %q", job.TargetRecordID, "inno-1")
	}
	if job.Status != model.BackfillPending {
		t.Errorf("Status = %v, want %v", job.Status, model.BackfillPending)
	}
	if len(job.MissingFields) == 0 {
		t.Fatal("expected at least one missing field")
	}
	for _, mf := range job.MissingFields {
		if mf.Field == "description" {
			t.Error("description is populated, should not be listed as missing")
		}
	}
	if job.EstimatedCost <= 0 {
		t.Error("EstimatedCost should accumulate from the per-field costs")
	}
}

func TestBuildJobNoMissingFieldsReturnsFalse(t *testing.T) {
	e := newTestEngine()
	in := model.Innovation{
		ID:           "inno-2",
		Description:  "full",
		Country:      "Kenya",
		CreationDate: time.Now(),
		Fundings:     []model.FundingEvent{{AmountUSD: 100000}},
		Tags:         []string{"fintech"},
	}
	in.URLs.Website = "https://example.com"
	in.URLs.GitHub = "https://github.com/example"

	if _, ok := e.BuildJob(in); ok {
		t.Error("expected BuildJob to report nothing to do when every required field is populated")
	}
}

func TestStrategyForAssignsExpectedStrategies(t *testing.T) {
	tests := []struct {
		field string
		want  model.BackfillStrategy
	}{
		{"description", model.StrategyIntelligenceOnly},
		{"founding_date", model.StrategyIntelligenceOnly},
		{"urls.website", model.StrategySearchOnly},
		{"urls.github", model.StrategySearchOnly},
		{"funding", model.StrategySearchOnly},
		{"country", model.StrategyCombined},
		{"tags", model.StrategyCombined},
	}
	for _, tt := range tests {
		if got := strategyFor(tt.field); got != tt.want {
			t.Errorf("strategyFor(%q) = %v, want %v", tt.field, got, tt.want)
		}
	}
}

func TestSortJobsOrdersByPriorityThenAge(t *testing.T) {
	now := time.Now()
	older := model.BackfillJob{
		ID:            "older-high",
		MissingFields: []model.MissingField{{Field: "country", Priority: model.PriorityHigh}},
		CreatedAt:     now.Add(-time.Hour),
	}
	newer := model.BackfillJob{
		ID:            "newer-high",
		MissingFields: []model.MissingField{{Field: "urls.website", Priority: model.PriorityHigh}},
		CreatedAt:     now,
	}
	critical := model.BackfillJob{
		ID:            "critical",
		MissingFields: []model.MissingField{{Field: "description", Priority: model.PriorityCritical}},
		CreatedAt:     now,
	}

	jobs := []model.BackfillJob{newer, older, critical}
	SortJobs(jobs)

	if jobs[0].ID != "critical" {
		t.Errorf("jobs[0] = %q, want %q (critical priority first)", jobs[0].ID, "critical")
	}
	if jobs[1].ID != "older-high" || jobs[2].ID != "newer-high" {
		t.Errorf("within equal priority, got order %v, want older before newer", []string{jobs[1].ID, jobs[2].ID})
	}
}

func TestGateDiscardsBelowFlagReviewThreshold(t *testing.T) {
	e := newTestEngine()
	e.validate = ValidationThreshold{WriteDirect: 0.75, FlagReview: 0.4}

	if _, ok := e.gate(model.FieldResult{Confidence: 0.2}); ok {
		t.Error("a result below FlagReview should be discarded")
	}
	if _, ok := e.gate(model.FieldResult{Confidence: 0.5}); !ok {
		t.Error("a result between FlagReview and WriteDirect should survive the gate")
	}
	if _, ok := e.gate(model.FieldResult{Confidence: 0.9}); !ok {
		t.Error("a result above WriteDirect should survive the gate")
	}
}

func TestPickValuePrefersHigherConfidence(t *testing.T) {
	a := model.FieldResult{NewValue: "from-intel", Confidence: 0.3}
	b := model.FieldResult{NewValue: "from-search", Confidence: 0.8}
	if got := pickValue(a, b); got != "from-search" {
		t.Errorf("pickValue = %q, want %q", got, "from-search")
	}
	if got := pickValue(b, a); got != "from-search" {
		t.Errorf("pickValue = %q, want %q", got, "from-search")
	}
}

func TestExtractFieldValueFunding(t *testing.T) {
	got := extractFieldValue("funding", "The startup raised $3.5 million in its seed round.", "")
	if got != "$3.5 million" {
		t.Errorf("extractFieldValue(funding) = %q, want %q", got, "$3.5 million")
	}
}

func TestExtractFieldValueURLFallsBackToResultURL(t *testing.T) {
	got := extractFieldValue("urls.website", "no url mentioned in this snippet", "https://startup.example.com")
	if got != "https://startup.example.com" {
		t.Errorf("extractFieldValue(urls.website) = %q, want fallback URL", got)
	}
}

func TestExtractFieldValueURLPrefersSnippetMatch(t *testing.T) {
	got := extractFieldValue("urls.website", "visit https://found-in-snippet.example.com today", "https://fallback.example.com")
	if got != "https://found-in-snippet.example.com" {
		t.Errorf("extractFieldValue(urls.website) = %q, want the snippet match", got)
	}
}

func TestHighestPriorityPicksMostUrgent(t *testing.T) {
	job := model.BackfillJob{MissingFields: []model.MissingField{
		{Field: "tags", Priority: model.PriorityLow},
		{Field: "country", Priority: model.PriorityHigh},
		{Field: "description", Priority: model.PriorityCritical},
	}}
	if got := job.HighestPriority(); got != model.PriorityCritical {
		t.Errorf("HighestPriority() = %v, want %v", got, model.PriorityCritical)
	}
}
