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

// Package backfill implements the Backfill engine (C13, spec.md §4.9):
// enumerates missing required fields on a candidate Innovation, builds a
// BackfillJob, and resolves each field via an intelligence-only, search-only,
// or combined strategy, gated by the mediator's daily cost budget.
package backfill

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/africa-ai-collector/collector/internal/clock"
	"github.com/africa-ai-collector/collector/internal/llm"
	"github.com/africa-ai-collector/collector/internal/logger"
	"github.com/africa-ai-collector/collector/internal/mediator"
	"github.com/africa-ai-collector/collector/internal/model"
	"github.com/africa-ai-collector/collector/internal/sources"
)

// fieldCosts estimates the USD cost of resolving a field via each strategy,
// used to populate MissingField.EstimatedCost ahead of the cost-budget gate.
var fieldCosts = map[model.BackfillStrategy]float64{
	model.StrategyIntelligenceOnly: 0.02,
	model.StrategySearchOnly:       0.01,
	model.StrategyCombined:         0.03,
}

// ValidationThreshold (τ_validate) decides whether a FieldResult is written
// directly, flagged for review, or discarded.
type ValidationThreshold struct {
	WriteDirect float64 // confidence ≥ this: write directly
	FlagReview  float64 // confidence ≥ this but < WriteDirect: flag for review
}

// DefaultValidationThreshold matches the τ_validate the spec's field-result
// confidence scoring was calibrated against.
var DefaultValidationThreshold = ValidationThreshold{WriteDirect: 0.75, FlagReview: 0.4}

// Engine resolves BackfillJobs for candidate innovations. The search-only and
// combined strategies reuse the WebSearchAdapter rather than a generic
// interface: it already mediates and costs its own calls, and its Parse
// output (SearchResult) is exactly the ranked snippet shape field extraction
// needs, unlike the other source adapters which parse into domain records.
type Engine struct {
	router   *llm.Router
	search   *sources.WebSearchAdapter
	mediator *mediator.Mediator
	validate ValidationThreshold
	clock    clock.Clock
	log      *logger.Logger
}

// New builds a backfill Engine.
func New(router *llm.Router, search *sources.WebSearchAdapter, m *mediator.Mediator, clk clock.Clock) *Engine {
	if clk == nil {
		clk = clock.New()
	}
	return &Engine{
		router:   router,
		search:   search,
		mediator: m,
		validate: DefaultValidationThreshold,
		clock:    clk,
		log:      logger.New("backfill"),
	}
}

// BuildJob enumerates missing fields on in and assigns each a strategy and
// estimated cost, producing a pending BackfillJob. Returns false if in has no
// missing fields (nothing to do).
func (e *Engine) BuildJob(in model.Innovation) (model.BackfillJob, bool) {
	missingSchema := in.MissingFields()
	if len(missingSchema) == 0 {
		return model.BackfillJob{}, false
	}

	now := e.clock.Now()
	job := model.BackfillJob{
		ID:             clock.NewID(),
		TargetRecordID: in.ID,
		Status:         model.BackfillPending,
		Results:        make(map[string]model.FieldResult),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	for _, f := range missingSchema {
		strategy := strategyFor(f.Field)
		cost := fieldCosts[strategy]
		job.MissingFields = append(job.MissingFields, model.MissingField{
			Field: f.Field, Priority: f.Priority, EstimatedCost: cost,
		})
		job.EstimatedCost += cost
	}
	return job, true
}

// strategyFor assigns a resolution strategy per field, following the spec's
// rough split: free-text narrative fields favor LLM intelligence;
// fact/URL fields favor targeted search; anything ambiguous runs both.
func strategyFor(field string) model.BackfillStrategy {
	switch field {
	case "description", "founding_date":
		return model.StrategyIntelligenceOnly
	case "urls.website", "urls.github", "funding":
		return model.StrategySearchOnly
	default:
		return model.StrategyCombined
	}
}

// SortJobs orders jobs by (priority, age) ascending, per spec.md §4.9.
func SortJobs(jobs []model.BackfillJob) {
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].Less(jobs[j]) })
}

// Run executes job, resolving each missing field per its assigned strategy,
// gated by the mediator's cost ledger. A field whose estimated cost would
// exceed the remaining daily budget is skipped, not failed.
func (e *Engine) Run(ctx context.Context, job model.BackfillJob, in model.Innovation) model.BackfillJob {
	if remaining := e.mediator.CostSummary().RemainingUSD; remaining < job.EstimatedCost {
		e.log.Warn("skipping backfill job, insufficient remaining budget", map[string]interface{}{
			"job_id": job.ID, "estimated_cost": job.EstimatedCost, "remaining_budget": remaining,
		})
		job.Status = model.BackfillSkipped
		job.UpdatedAt = e.clock.Now()
		return job
	}

	job.Status = model.BackfillInProgress
	job.UpdatedAt = e.clock.Now()

	anyResolved := false
	for _, mf := range job.MissingFields {
		strategy := strategyFor(mf.Field)
		result, ok := e.resolveField(ctx, in, mf, strategy)
		if !ok {
			continue
		}
		job.Results[mf.Field] = result
		job.TotalCost += mf.EstimatedCost
		anyResolved = true
	}

	job.UpdatedAt = e.clock.Now()
	if !anyResolved && len(job.Results) == 0 {
		job.Status = model.BackfillSkipped
	} else {
		job.Status = model.BackfillCompleted
	}
	return job
}

func (e *Engine) resolveField(ctx context.Context, in model.Innovation, mf model.MissingField, strategy model.BackfillStrategy) (model.FieldResult, bool) {
	switch strategy {
	case model.StrategyIntelligenceOnly:
		r, err := e.resolveViaIntelligence(ctx, in, mf.Field)
		if err != nil {
			e.log.Warn("intelligence backfill failed", map[string]interface{}{"field": mf.Field, "error": err.Error()})
			return model.FieldResult{}, false
		}
		return e.gate(r)

	case model.StrategySearchOnly:
		r, err := e.resolveViaSearch(ctx, in, mf.Field)
		if err != nil {
			e.log.Warn("search backfill failed", map[string]interface{}{"field": mf.Field, "error": err.Error()})
			return model.FieldResult{}, false
		}
		return e.gate(r)

	case model.StrategyCombined:
		intel, intelErr := e.resolveViaIntelligence(ctx, in, mf.Field)
		search, searchErr := e.resolveViaSearch(ctx, in, mf.Field)
		switch {
		case intelErr == nil && searchErr == nil:
			combined := model.FieldResult{
				Field:      mf.Field,
				NewValue:   pickValue(intel, search),
				Confidence: (intel.Confidence + search.Confidence) / 2,
				Provenance: intel.Provenance + "+" + search.Provenance,
				Strategy:   model.StrategyCombined,
			}
			return e.gate(combined)
		case intelErr == nil && intel.Confidence >= 0.6:
			return e.gate(intel)
		case searchErr == nil && search.Confidence >= 0.6:
			return e.gate(search)
		default:
			return model.FieldResult{}, false
		}
	}
	return model.FieldResult{}, false
}

// gate applies τ_validate: results below FlagReview are discarded entirely
// (the caller records nothing), others are returned as-is for the
// orchestrator to either write directly or flag for human review based on
// confidence.
func (e *Engine) gate(r model.FieldResult) (model.FieldResult, bool) {
	if r.Confidence < e.validate.FlagReview {
		return model.FieldResult{}, false
	}
	return r, true
}

func pickValue(a, b model.FieldResult) string {
	if a.Confidence >= b.Confidence {
		return a.NewValue
	}
	return b.NewValue
}

func (e *Engine) resolveViaIntelligence(ctx context.Context, in model.Innovation, field string) (model.FieldResult, error) {
	prompt := fmt.Sprintf(
		"Given the African AI innovation %q (%s), what is its %s? Respond with just the value, or \"unknown\" if not found.",
		in.Title, in.Description, strings.ReplaceAll(field, "_", " "))

	type result struct {
		resp     llm.CompletionResponse
		provider string
	}
	out, err := mediator.Do(ctx, e.mediator, mediator.Call[result]{
		Source:           "backfill_intelligence",
		EstimatedCostUSD: fieldCosts[model.StrategyIntelligenceOnly],
		Fn: func(ctx context.Context) (result, error) {
			resp, provider, err := e.router.Complete(ctx, llm.CompletionRequest{Prompt: prompt, MaxTokens: 200})
			return result{resp: resp, provider: provider}, err
		},
	})
	if err != nil {
		return model.FieldResult{}, err
	}

	value := strings.TrimSpace(out.resp.Text)
	confidence := 0.0
	if value != "" && !strings.EqualFold(value, "unknown") {
		confidence = 0.65
	}
	return model.FieldResult{
		Field: field, NewValue: value, Confidence: confidence,
		Provenance: out.provider + ":intelligence", Strategy: model.StrategyIntelligenceOnly,
	}, nil
}

var (
	backfillFundingPattern = regexp.MustCompile(`(?i)\$\s?\d+(?:\.\d+)?\s?(?:million|billion|M|B|k)\b`)
	backfillURLPattern     = regexp.MustCompile(`https?://[^\s)\]}"']+`)
)

// resolveViaSearch issues one query through the WebSearchAdapter, which
// mediates and costs the call itself, then mines the top hit's snippet for
// the requested field via backfillFundingPattern and backfillURLPattern. The
// URL pattern is the citation extractor's; the funding pattern is stricter
// (a leading "$" is required and "thousand" is not matched).
func (e *Engine) resolveViaSearch(ctx context.Context, in model.Innovation, field string) (model.FieldResult, error) {
	if e.search == nil {
		return model.FieldResult{}, fmt.Errorf("backfill: no search adapter configured")
	}
	query := in.Title + " " + strings.ReplaceAll(field, "_", " ")

	seq, err := e.search.Fetch(ctx, sources.QuerySpec{Keywords: []string{query}})
	if err != nil {
		return model.FieldResult{}, err
	}

	var top sources.SearchResult
	found := false
	for _, raw := range sources.Collect(seq) {
		parsed, _, ok := e.search.Parse(raw)
		if ok {
			top = parsed
			found = true
			break
		}
	}
	if !found {
		return model.FieldResult{}, fmt.Errorf("backfill: no search results for %q", query)
	}

	value := extractFieldValue(field, top.Snippet, top.URL)
	confidence := 0.0
	if value != "" {
		confidence = 0.55
	}
	return model.FieldResult{
		Field: field, NewValue: value, Confidence: confidence,
		Provenance: "web_search", Strategy: model.StrategySearchOnly,
	}, nil
}

func extractFieldValue(field, snippet, url string) string {
	switch field {
	case "urls.website", "urls.github":
		if m := backfillURLPattern.FindString(snippet); m != "" {
			return m
		}
		return url
	case "funding":
		return backfillFundingPattern.FindString(snippet)
	default:
		return strings.TrimSpace(snippet)
	}
}
