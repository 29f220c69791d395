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

// Package orchestrator implements the Collection orchestrator (C11): it
// composes the seven-phase collection cycle described in spec.md §4.7,
// sequencing phases while keeping each phase internally concurrent via a
// bounded worker pool, and never lets a per-record or per-pipeline failure
// escape the cycle boundary (spec.md §7 propagation policy).
package orchestrator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/africa-ai-collector/collector/internal/backfill"
	"github.com/africa-ai-collector/collector/internal/citation"
	"github.com/africa-ai-collector/collector/internal/clock"
	"github.com/africa-ai-collector/collector/internal/config"
	"github.com/africa-ai-collector/collector/internal/dedup"
	"github.com/africa-ai-collector/collector/internal/llm"
	"github.com/africa-ai-collector/collector/internal/logger"
	"github.com/africa-ai-collector/collector/internal/mediator"
	"github.com/africa-ai-collector/collector/internal/model"
	"github.com/africa-ai-collector/collector/internal/persistence"
	"github.com/africa-ai-collector/collector/internal/sources"
	"github.com/africa-ai-collector/collector/internal/supervisor"
	"github.com/africa-ai-collector/collector/internal/vectorindex"
)

// pipelineName is the supervisor slot the orchestrator runs a whole cycle
// under.
const pipelineName = "collection_cycle"

// Per-phase supervisor slot names (spec.md §9 Open Question, resolved: one
// "discovery" slot covers the web-search-based target-extraction pass rather
// than two separately-named ones). Discovery, academic, news and enrichment
// each run under their own slot, inside RunCycle as well as when triggered
// by name, so a stuck call against one upstream doesn't block the next cycle
// trigger from starting other phases, and so control.Surface can report and
// trigger them individually. The intelligence_synthesis slot is taken only
// by TriggerPipeline; RunCycle runs that phase directly under its
// collection_cycle slot.
const (
	pipelineIntelligenceSynthesis = "intelligence_synthesis"
	pipelineDiscovery             = "discovery"
	pipelineAcademic              = "academic"
	pipelineNews                  = "news"
	pipelineEnrichment            = "enrichment"
)

// pipelineNames lists every pipeline_name control.Service.Trigger may target
// individually, in addition to the whole-cycle "collection_cycle".
var pipelineNames = []string{
	pipelineIntelligenceSynthesis, pipelineDiscovery, pipelineAcademic, pipelineNews, pipelineEnrichment,
}

// PipelineNames returns the pipeline_name values TriggerPipeline accepts
// besides the whole-cycle default, for the control surface to validate
// against and advertise.
func PipelineNames() []string {
	return append([]string(nil), pipelineNames...)
}

// Orchestrator wires every collector component into the seven-phase cycle.
type Orchestrator struct {
	cfg        *config.Registry
	gateway    persistence.Gateway
	vindex     *vectorindex.Index
	supervisor *supervisor.Supervisor
	mediator   *mediator.Mediator
	router     *llm.Router

	academic   *sources.AcademicAdapter
	biomed     *sources.BiomedAdapter
	news       *sources.NewsRSSAdapter
	websearch  *sources.WebSearchAdapter
	scholarly  *sources.ScholarlyAdapter
	llmIntel   *sources.LLMIntelligenceAdapter

	backfillEngine *backfill.Engine

	innovationDedup  *dedup.Deduplicator
	publicationDedup *dedup.Deduplicator

	backfillMu      sync.Mutex
	lastBackfillRun BackfillRunSummary
	hasBackfillRun  bool
	backfillTotals  BackfillRunSummary

	clock clock.Clock
	log   *logger.Logger
}

// Deps bundles every collaborator RunCycle needs. The source adapters may be
// left nil to disable that pass (mirroring the config registry's disable_*
// flags); VectorIndex and BackfillEngine may be nil to skip indexing and
// backfill, and a nil Clock defaults to clock.New().
type Deps struct {
	Config     *config.Registry
	Gateway    persistence.Gateway
	VectorIndex *vectorindex.Index
	Supervisor *supervisor.Supervisor
	Mediator   *mediator.Mediator
	Router     *llm.Router

	Academic  *sources.AcademicAdapter
	Biomed    *sources.BiomedAdapter
	News      *sources.NewsRSSAdapter
	WebSearch *sources.WebSearchAdapter
	Scholarly *sources.ScholarlyAdapter
	LLMIntel  *sources.LLMIntelligenceAdapter

	BackfillEngine *backfill.Engine

	Clock clock.Clock
}

// New builds an Orchestrator from Deps.
func New(d Deps) *Orchestrator {
	clk := d.Clock
	if clk == nil {
		clk = clock.New()
	}

	thresholds := dedup.Thresholds{
		SemanticHigh:  d.Config.Dedup.SemanticHigh,
		SemanticLow:   d.Config.Dedup.SemanticLow,
		FuzzyTitleMin: d.Config.Dedup.FuzzyTitleMin,
	}

	// A nil *vectorindex.Index must not be boxed into a non-nil
	// dedup.VectorIndex interface value, or the Deduplicator's "if d.vector
	// != nil" guard passes and TopMatch panics on a nil receiver.
	var vi dedup.VectorIndex
	if d.VectorIndex != nil {
		vi = d.VectorIndex
	}

	return &Orchestrator{
		cfg:              d.Config,
		gateway:          d.Gateway,
		vindex:           d.VectorIndex,
		supervisor:       d.Supervisor,
		mediator:         d.Mediator,
		router:           d.Router,
		academic:         d.Academic,
		biomed:           d.Biomed,
		news:             d.News,
		websearch:        d.WebSearch,
		scholarly:        d.Scholarly,
		llmIntel:         d.LLMIntel,
		backfillEngine:   d.BackfillEngine,
		innovationDedup:  dedup.New(innovationIdentity{gateway: d.Gateway}, vi, thresholds),
		publicationDedup: dedup.New(publicationIdentity{gateway: d.Gateway}, vi, thresholds),
		clock:            clk,
		log:              logger.New("orchestrator"),
	}
}

// cycleState accumulates phase-local results under a mutex so concurrent
// per-phase worker-pool callbacks can contribute safely.
type cycleState struct {
	mu     sync.Mutex
	result CollectionCycleResult

	// intelligenceReports carries forward into phase 7 (citation sampling).
	intelligenceReports []model.IntelligenceReport
}

func (s *cycleState) addError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result.Errors = append(s.result.Errors, err.Error())
}

// RunCycle executes one full collection cycle. It always returns a fully
// populated CollectionCycleResult, including when the cycle is skipped
// because a prior one is still in flight (spec.md §9 Open Question,
// resolved: every return path populates every field, never a partial zero
// value).
func (o *Orchestrator) RunCycle(ctx context.Context) CollectionCycleResult {
	startedAt := o.clock.Now()
	orchMetrics.init()
	orchMetrics.cyclesStarted.Inc()

	run, err := o.supervisor.Start(pipelineName)
	if err != nil {
		orchMetrics.cyclesSkipped.Inc()
		skipped := o.supervisor.Skip(pipelineName, "cycle already running")
		return CollectionCycleResult{
			RunID: skipped.RunID, PipelineName: pipelineName, StartedAt: skipped.StartedAt, EndedAt: skipped.EndedAt,
			Errors: []string{"skipped: a collection cycle was already running"},
		}
	}

	state := &cycleState{result: CollectionCycleResult{RunID: run.RunID, PipelineName: pipelineName, StartedAt: startedAt}}

	o.phaseIntelligenceSynthesis(ctx, state, defaultReportTypes, defaultTimePeriod)

	var targets []model.Innovation
	o.runGatedPhase(state, pipelineDiscovery, func() (int, int) {
		targets = o.phaseTargetExtraction(ctx, state)
		return len(targets), len(targets)
	})
	admitted := o.phaseValidationAndDedup(ctx, state, targets)
	o.phasePersistenceAndIndexing(ctx, state, admitted)

	o.phaseSourcePasses(ctx, state)

	o.runGatedPhase(state, pipelineEnrichment, func() (int, int) {
		return o.phaseEnrichmentAndBackfill(ctx, state)
	})

	o.phaseCitationSampling(ctx, state)

	state.mu.Lock()
	result := state.result
	state.mu.Unlock()

	result.EndedAt = o.clock.Now()
	result.Recommendations = buildRecommendations(result)

	outcome := model.PipelineSucceeded
	if len(result.Errors) > 0 && result.Extractions == 0 && result.Discoveries == 0 {
		outcome = model.PipelineFailed
	}
	metrics := model.RunMetrics{
		BatchSize:        result.Extractions,
		SuccessRate:      result.extractionSuccessRate(),
		ProcessingTimeMS: result.Duration().Milliseconds(),
	}
	var runErr error
	if outcome == model.PipelineFailed && len(result.Errors) > 0 {
		runErr = fmt.Errorf("%s", result.Errors[0])
	}
	if _, cerr := o.supervisor.Complete(pipelineName, outcome, metrics, runErr); cerr != nil {
		o.log.ErrorLog("failed to complete supervisor run", cerr, nil)
	}
	observeCycle(result, outcome == model.PipelineSucceeded)

	return result
}

// runGatedPhase runs fn under its own named supervisor slot, independent of
// the whole-cycle "collection_cycle" slot RunCycle holds, so triggering one
// pipeline by name (control.Service.Trigger) doesn't require running every
// other phase. If a prior run under name is still in flight, the phase is
// skipped entirely and recorded as such.
func (o *Orchestrator) runGatedPhase(state *cycleState, name string, fn func() (itemsIn, itemsOut int)) {
	if _, err := o.supervisor.Start(name); err != nil {
		o.supervisor.Skip(name, "already running")
		timePhase(state, name, o.clock.Now(), 0, 0)
		return
	}

	start := o.clock.Now()
	itemsIn, itemsOut := fn()
	metrics := model.RunMetrics{
		BatchSize:        itemsIn,
		SuccessRate:      successRate(itemsIn, itemsOut),
		ProcessingTimeMS: time.Since(start).Milliseconds(),
	}
	if _, err := o.supervisor.Complete(name, model.PipelineSucceeded, metrics, nil); err != nil {
		o.log.ErrorLog("failed to complete supervisor run", err, map[string]interface{}{"pipeline_name": name})
	}
}

func successRate(in, out int) float64 {
	if in == 0 {
		return 0
	}
	return float64(out) / float64(in)
}

func timePhase(state *cycleState, name string, start time.Time, itemsIn, itemsOut int) {
	state.mu.Lock()
	defer state.mu.Unlock()
	state.result.Phases = append(state.result.Phases, PhaseOutcome{
		Name: name, ItemsIn: itemsIn, ItemsOut: itemsOut,
		DurationMS: time.Since(start).Milliseconds(),
	})
}

// defaultReportTypes and defaultTimePeriod are what RunCycle runs phase 1
// with when control.Service.Trigger doesn't override them for a targeted
// "intelligence_synthesis" pipeline run.
var defaultReportTypes = []model.ReportType{
	model.ReportInnovationDiscovery, model.ReportFundingLandscape,
	model.ReportResearchBreakthrough, model.ReportPolicyDevelopment,
}

const defaultTimePeriod = "last_7_days"

// phaseIntelligenceSynthesis is phase 1: invoke LLM intelligence for each
// report type in reportTypes, save the resulting IntelligenceReport, and
// surface its extracted citations for phase 7.
func (o *Orchestrator) phaseIntelligenceSynthesis(ctx context.Context, state *cycleState, reportTypes []model.ReportType, timePeriod string) {
	start := o.clock.Now()
	if o.llmIntel == nil || o.cfg.DisableAIEnrichment {
		timePhase(state, "intelligence_synthesis", start, 0, 0)
		return
	}
	if len(reportTypes) == 0 {
		reportTypes = defaultReportTypes
	}
	if timePeriod == "" {
		timePeriod = defaultTimePeriod
	}

	var produced int
	forEachBounded(reportTypes, 4, func(rt model.ReportType) {
		raw, err := o.llmIntel.FetchIntelligence(ctx, sources.IntelligenceQuery{
			ReportType: rt, TimePeriod: timePeriod,
		})
		if err != nil {
			state.addError(fmt.Errorf("intelligence synthesis (%s): %w", rt, err))
			return
		}

		extraction := citation.Extract(raw.RawText)
		report := model.IntelligenceReport{
			ReportID:            clock.NewID(),
			Type:                rt,
			Summary:             extraction.Summary,
			KeyFindings:         extraction.KeyFindings,
			Sources:             extraction.Sources,
			ExtractedCitations:  extraction.Citations,
			ConfidenceScore:     extraction.ConfidenceScore,
			GenerationTimestamp: o.clock.Now(),
			TimePeriodAnalyzed:  timePeriod,
			Provider:            raw.Provider,
		}
		report.DedupeSources()

		if err := o.gateway.SaveIntelligenceReport(ctx, report); err != nil {
			state.addError(fmt.Errorf("saving intelligence report: %w", err))
			return
		}

		state.mu.Lock()
		state.result.IntelligenceReports = append(state.result.IntelligenceReports, report.ReportID)
		state.result.Discoveries++
		state.intelligenceReports = append(state.intelligenceReports, report)
		produced++
		state.mu.Unlock()
	})

	timePhase(state, "intelligence_synthesis", start, len(reportTypes), produced)
}

// phaseTargetExtraction is phase 2: run one discovery web-search query and
// classify+extract each hit into a candidate Innovation.
func (o *Orchestrator) phaseTargetExtraction(ctx context.Context, state *cycleState) []model.Innovation {
	start := o.clock.Now()
	if o.websearch == nil || o.cfg.DisableExternalSearch {
		timePhase(state, "target_extraction", start, 0, 0)
		return nil
	}

	seq, err := o.websearch.Fetch(ctx, sources.QuerySpec{Keywords: []string{"African AI startup innovation"}})
	if err != nil {
		state.addError(fmt.Errorf("target discovery search: %w", err))
		timePhase(state, "target_extraction", start, 0, 0)
		return nil
	}

	var candidates []model.Innovation
	raws := sources.Collect(seq)
	for _, r := range raws {
		hit, _, ok := o.websearch.Parse(r)
		if !ok {
			continue
		}
		if in, ok := extractTarget(hit); ok {
			candidates = append(candidates, in)
		}
	}

	timePhase(state, "target_extraction", start, len(raws), len(candidates))
	return candidates
}

// phaseValidationAndDedup is phase 3: admit only records meeting the
// completeness/confidence gate, then run them through the deduplicator with
// the reject-by-default ingestion policy.
func (o *Orchestrator) phaseValidationAndDedup(ctx context.Context, state *cycleState, targets []model.Innovation) []model.Innovation {
	start := o.clock.Now()
	minCompleteness := o.cfg.MinCompleteness
	minConfidence := o.cfg.MinConfidence

	var admitted []model.Innovation
	var mu sync.Mutex
	forEachBounded(targets, 4, func(in model.Innovation) {
		if completeness(in) < minCompleteness || confidenceScore(in) < minConfidence {
			return
		}
		in.Fingerprint = dedup.Fingerprint(dedup.Candidate{Title: in.Title})

		outcome, err := o.innovationDedup.Resolve(ctx, dedup.Candidate{Title: in.Title}, dedup.PolicyReject)
		if err != nil {
			state.addError(fmt.Errorf("dedup resolve: %w", err))
			return
		}
		if outcome.MatchedStage != "none" {
			state.mu.Lock()
			state.result.Duplicates++
			state.mu.Unlock()
			return
		}

		mu.Lock()
		admitted = append(admitted, in)
		mu.Unlock()
	})

	state.mu.Lock()
	state.result.Extractions += len(admitted)
	state.mu.Unlock()

	timePhase(state, "validation_and_dedup", start, len(targets), len(admitted))
	return admitted
}

// phasePersistenceAndIndexing is phase 4: idempotent upsert plus pushing
// freshly-created records into the vector index.
func (o *Orchestrator) phasePersistenceAndIndexing(ctx context.Context, state *cycleState, admitted []model.Innovation) {
	start := o.clock.Now()
	var indexed int
	forEachBounded(admitted, 4, func(in model.Innovation) {
		id, created, err := o.gateway.UpsertInnovation(ctx, in)
		if err != nil {
			state.addError(fmt.Errorf("upserting innovation: %w", err))
			return
		}
		state.mu.Lock()
		state.result.InnovationsUpserted = append(state.result.InnovationsUpserted, id)
		state.mu.Unlock()

		if created && o.vindex != nil {
			if err := o.vindex.Upsert(ctx, id, "innovation", in.Title+" "+in.Description); err != nil {
				state.addError(fmt.Errorf("indexing innovation: %w", err))
				return
			}
			indexed++
		}
	})
	timePhase(state, "persistence_and_indexing", start, len(admitted), indexed)
}

// phaseSourcePasses is phase 5: run the academic, biomedical, and scholarly
// publication adapters, each through its own dedup path and straight to
// persistence (these bypass the innovation-candidate admission gate — a
// Publication's own MeetsThreshold check is its admission gate).
func (o *Orchestrator) phaseSourcePasses(ctx context.Context, state *cycleState) {
	start := o.clock.Now()
	n1, u1 := o.runAcademicPass(ctx, state)
	n2, u2 := o.runNewsGatedPass(ctx, state)
	timePhase(state, "source_specific_passes", start, n1+n2, u1+u2)
}

// runAcademicPass is the "academic" supervisor slot: the arxiv, pubmed, and
// scholar publication adapters, run together since they share one admission
// path (a Publication's own MeetsThreshold gate) and one failure mode
// (upstream citation-index outage).
func (o *Orchestrator) runAcademicPass(ctx context.Context, state *cycleState) (total, upserted int) {
	o.runGatedPhase(state, pipelineAcademic, func() (int, int) {
		var n, u int
		if o.academic != nil && !o.cfg.DisableAcademicScraping {
			tn, tu := o.runPublicationAdapter(ctx, state, "arxiv", func(spec sources.QuerySpec) (sources.RecordSeq, error) {
				return o.academic.Fetch(ctx, spec)
			}, o.academic.Parse)
			n += tn
			u += tu
		}
		if o.biomed != nil {
			tn, tu := o.runPublicationAdapter(ctx, state, "pubmed", func(spec sources.QuerySpec) (sources.RecordSeq, error) {
				return o.biomed.Fetch(ctx, spec)
			}, o.biomed.Parse)
			n += tn
			u += tu
		}
		if o.scholarly != nil {
			tn, tu := o.runPublicationAdapter(ctx, state, "scholar", func(spec sources.QuerySpec) (sources.RecordSeq, error) {
				return o.scholarly.Fetch(ctx, spec)
			}, o.scholarly.Parse)
			n += tn
			u += tu
		}
		total, upserted = n, u
		return n, u
	})
	return total, upserted
}

// runNewsGatedPass is the "news" supervisor slot.
func (o *Orchestrator) runNewsGatedPass(ctx context.Context, state *cycleState) (total, upserted int) {
	if o.news == nil || o.cfg.DisableRSSMonitoring {
		return 0, 0
	}
	o.runGatedPhase(state, pipelineNews, func() (int, int) {
		n, u := o.runNewsPass(ctx, state)
		total, upserted = n, u
		return n, u
	})
	return total, upserted
}

func (o *Orchestrator) runPublicationAdapter(
	ctx context.Context, state *cycleState, name string,
	fetch func(sources.QuerySpec) (sources.RecordSeq, error),
	parse func(sources.RawRecord) (model.Publication, sources.DiscardReason, bool),
) (total, upserted int) {
	seq, err := fetch(sources.QuerySpec{Limit: o.cfg.MaxETLBatchSize})
	if err != nil {
		state.addError(fmt.Errorf("%s fetch: %w", name, err))
		return 0, 0
	}

	raws := sources.Collect(seq)
	var mu sync.Mutex
	forEachBounded(raws, 4, func(r sources.RawRecord) {
		pub, _, ok := parse(r)
		if !ok {
			return
		}

		candidate := dedup.Candidate{ExactID: pub.DOI, Title: pub.Title}
		if len(pub.Authors) > 0 {
			candidate.FirstAuthor = pub.Authors[0]
		}
		candidate.Year = pub.Year
		pub.Fingerprint = dedup.Fingerprint(candidate)

		outcome, err := o.publicationDedup.Resolve(ctx, candidate, dedup.PolicyUpdate)
		if err != nil {
			state.addError(fmt.Errorf("%s dedup: %w", name, err))
			return
		}
		if outcome.MatchedStage != "none" && outcome.Policy == dedup.PolicyReject {
			state.mu.Lock()
			state.result.Duplicates++
			state.mu.Unlock()
			return
		}

		id, created, err := o.gateway.UpsertPublication(ctx, pub)
		if err != nil {
			state.addError(fmt.Errorf("%s upsert: %w", name, err))
			return
		}
		if created && o.vindex != nil {
			_ = o.vindex.Upsert(ctx, id, "publication", pub.Title+" "+pub.Abstract)
		}

		mu.Lock()
		upserted++
		mu.Unlock()
		state.mu.Lock()
		state.result.PublicationsUpserted = append(state.result.PublicationsUpserted, id)
		state.result.Extractions++
		state.mu.Unlock()
	})

	return len(raws), upserted
}

// runNewsPass converts RSS items into lightweight Innovation candidates
// through the same admission gate as phase 3, since news articles describe
// innovations rather than publications. Near-duplicate articles describing
// the same underlying event are clustered and collapsed to one canonical
// article before admission (spec.md §4.5 stage 4).
func (o *Orchestrator) runNewsPass(ctx context.Context, state *cycleState) (total, upserted int) {
	seq, err := o.news.Fetch(ctx, sources.QuerySpec{})
	if err != nil {
		state.addError(fmt.Errorf("news_rss fetch: %w", err))
		return 0, 0
	}

	raws := sources.Collect(seq)
	var articles []sources.NewsArticle
	for _, r := range raws {
		article, _, ok := o.news.Parse(r)
		if !ok {
			continue
		}
		articles = append(articles, article)
	}

	var candidates []model.Innovation
	for _, article := range clusterNewsArticles(articles) {
		candidates = append(candidates, model.Innovation{
			Title:       article.Title,
			Description: article.Summary,
			Type:        model.TypeOther,
			VerificationStatus: model.StatusPending,
			Visibility:         model.VisibilityHidden,
			URLs:               model.ExternalURLs{Source: article.Link},
			CreationDate:       article.PublishedAt,
		})
	}

	admitted := o.phaseValidationAndDedup(ctx, state, candidates)
	o.phasePersistenceAndIndexing(ctx, state, admitted)
	return len(raws), len(admitted)
}

var newsFundingAmountPattern = regexp.MustCompile(`(?i)\$\s?\d+(?:\.\d+)?\s?(?:million|billion|M|B|k)\b`)

// newsEventType classifies an article's headline+summary into the coarse
// event categories stage 4 clustering cares about distinguishing.
func newsEventType(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "raises") || strings.Contains(lower, "funding") || strings.Contains(lower, "investment") || strings.Contains(lower, "invests"):
		return "funding"
	case strings.Contains(lower, "partners") || strings.Contains(lower, "partnership") || strings.Contains(lower, "collaborat"):
		return "partnership"
	case strings.Contains(lower, "launch"):
		return "launch"
	default:
		return "other"
	}
}

// newsStructuredEvent lifts one article into the {primary entity, event
// type, funding amount, date} tuple dedup.ClusterEvents compares pairwise.
func newsStructuredEvent(id string, article sources.NewsArticle) dedup.StructuredEvent {
	text := article.Title + " " + article.Summary
	return dedup.StructuredEvent{
		ID:            id,
		PrimaryEntity: article.Title,
		EventType:     newsEventType(text),
		FundingAmount: newsFundingAmountPattern.FindString(text),
		Date:          article.PublishedAt.Format("2006-01-02"),
		Confidence:    article.AIRelevanceScore,
		Completeness:  article.AfricanRelevanceScore,
	}
}

// classifyNewsEvents is the rule-based Classifier backing news-stream
// clustering: same event type plus a near-identical headline (fuzzy title
// similarity, the same pre-filter dedup.Resolve uses) means the same
// underlying event; a shared funding amount on the same day is treated as a
// related (not identical) funding event.
func classifyNewsEvents(a, b dedup.StructuredEvent) dedup.RelationshipKind {
	if a.EventType != b.EventType {
		return dedup.RelNone
	}
	switch {
	case dedup.FuzzyTitleSimilarity(a.PrimaryEntity, b.PrimaryEntity) >= 0.85:
		return dedup.RelSameEvent
	case a.EventType == "funding" && a.FundingAmount != "" && a.FundingAmount == b.FundingAmount && a.Date == b.Date:
		return dedup.RelRelatedFunding
	default:
		return dedup.RelNone
	}
}

// clusterNewsArticles collapses near-duplicate articles describing the same
// underlying event (spec.md §4.5 stage 4, the optional complex-relationship
// analysis called out for news-like streams) before they ever reach the
// admission gate, keeping only each cluster's highest-confidence,
// most-complete member.
func clusterNewsArticles(articles []sources.NewsArticle) []sources.NewsArticle {
	if len(articles) == 0 {
		return nil
	}

	byID := make(map[string]sources.NewsArticle, len(articles))
	events := make([]dedup.StructuredEvent, 0, len(articles))
	for i, article := range articles {
		id := article.Link
		if id == "" {
			id = fmt.Sprintf("news-%d", i)
		}
		byID[id] = article
		events = append(events, newsStructuredEvent(id, article))
	}

	clusters := dedup.ClusterEvents(events, classifyNewsEvents)
	out := make([]sources.NewsArticle, 0, len(clusters))
	for _, c := range clusters {
		out = append(out, byID[c.Canonical.ID])
	}
	return out
}

// phaseEnrichmentAndBackfill is phase 6: run the Backfill engine over
// records known to be missing critical fields. Returns (jobs attempted,
// jobs enriched) for the caller's supervisor-slot metrics.
func (o *Orchestrator) phaseEnrichmentAndBackfill(ctx context.Context, state *cycleState) (int, int) {
	start := o.clock.Now()
	if o.backfillEngine == nil {
		timePhase(state, "enrichment_and_backfill", start, 0, 0)
		return 0, 0
	}

	candidates, err := o.gateway.ListInnovationsMissingFields(ctx, o.cfg.MaxETLBatchSize)
	if err != nil {
		state.addError(fmt.Errorf("listing backfill candidates: %w", err))
		timePhase(state, "enrichment_and_backfill", start, 0, 0)
		return 0, 0
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

	var enriched int
	forEachBounded(jobs, 3, func(job model.BackfillJob) {
		in := jobByTarget[job.TargetRecordID]
		result := o.backfillEngine.Run(ctx, job, in)
		if len(result.Results) == 0 {
			return
		}

		applied := applyBackfillResults(in, result)
		if _, _, err := o.gateway.UpsertInnovation(ctx, applied); err != nil {
			state.addError(fmt.Errorf("persisting backfilled innovation: %w", err))
			return
		}

		state.mu.Lock()
		state.result.Enrichments += len(result.Results)
		state.mu.Unlock()
		enriched++
	})

	timePhase(state, "enrichment_and_backfill", start, len(jobs), enriched)
	return len(jobs), enriched
}

// applyBackfillResults writes each resolved field back onto the Innovation,
// recording provenance (spec.md §3 BackfillMetadata).
func applyBackfillResults(in model.Innovation, job model.BackfillJob) model.Innovation {
	out := in
	if out.Backfill.Provenance == nil {
		out.Backfill.Provenance = make(map[string]string)
	}
	for field, result := range job.Results {
		switch field {
		case "description":
			out.Description = result.NewValue
		case "urls.website":
			out.URLs.Website = result.NewValue
		case "urls.github":
			out.URLs.GitHub = result.NewValue
		}
		out.Backfill.Provenance[field] = result.Provenance
		out.Backfill.FieldsFilled = append(out.Backfill.FieldsFilled, field)
	}
	return out
}

// phaseCitationSampling is phase 7: resolves up to Snowball.MaxCitations of
// the citations extracted during phase 1 against the persisted store, one
// level deep. Snowball.MaxDepth is not read, and an unresolved citation
// triggers no follow-up search.
func (o *Orchestrator) phaseCitationSampling(ctx context.Context, state *cycleState) {
	start := o.clock.Now()

	state.mu.Lock()
	reports := append([]model.IntelligenceReport{}, state.intelligenceReports...)
	state.mu.Unlock()

	maxCitations := o.cfg.Snowball.MaxCitations
	if maxCitations <= 0 {
		maxCitations = 15
	}

	var sampled, resolved int
	for _, report := range reports {
		for _, c := range report.ExtractedCitations {
			if sampled >= maxCitations {
				break
			}
			sampled++

			out, err := o.gateway.ResolveCitation(ctx, c)
			if err != nil {
				state.addError(fmt.Errorf("resolving citation: %w", err))
				continue
			}
			if out.ResolutionState == model.ResolutionResolved {
				resolved++
			}
		}
	}

	timePhase(state, "citation_sampling", start, sampled, resolved)
}

// TriggerPipeline runs one named pipeline in isolation rather than the whole
// seven-phase cycle, for control.Service.Trigger to target (pipeline_name
// "" or "collection_cycle" runs the full RunCycle). params carries
// pipeline-specific overrides; currently only "intelligence_synthesis"
// reads any ("report_types" as a comma-separated list of model.ReportType
// values, "time_period" as a free-form string).
func (o *Orchestrator) TriggerPipeline(ctx context.Context, pipeline string, params map[string]string) CollectionCycleResult {
	if pipeline == "" || pipeline == pipelineName {
		return o.RunCycle(ctx)
	}

	state := &cycleState{result: CollectionCycleResult{RunID: clock.NewID(), PipelineName: pipeline, StartedAt: o.clock.Now()}}

	switch pipeline {
	case pipelineIntelligenceSynthesis:
		reportTypes := parseReportTypes(params["report_types"])
		timePeriod := params["time_period"]
		o.runGatedPhase(state, pipelineIntelligenceSynthesis, func() (int, int) {
			before := len(state.result.IntelligenceReports)
			o.phaseIntelligenceSynthesis(ctx, state, reportTypes, timePeriod)
			return len(reportTypes), len(state.result.IntelligenceReports) - before
		})
	case pipelineDiscovery:
		o.runGatedPhase(state, pipelineDiscovery, func() (int, int) {
			targets := o.phaseTargetExtraction(ctx, state)
			admitted := o.phaseValidationAndDedup(ctx, state, targets)
			o.phasePersistenceAndIndexing(ctx, state, admitted)
			return len(targets), len(admitted)
		})
	case pipelineAcademic:
		o.runAcademicPass(ctx, state)
	case pipelineNews:
		o.runNewsGatedPass(ctx, state)
	case pipelineEnrichment:
		o.runGatedPhase(state, pipelineEnrichment, func() (int, int) {
			return o.phaseEnrichmentAndBackfill(ctx, state)
		})
	default:
		state.addError(fmt.Errorf("unknown pipeline_name %q", pipeline))
	}

	state.mu.Lock()
	result := state.result
	state.mu.Unlock()
	result.EndedAt = o.clock.Now()
	result.Recommendations = buildRecommendations(result)
	return result
}

// parseReportTypes splits a comma-separated report_types param; an empty
// string means "use phaseIntelligenceSynthesis's defaults".
func parseReportTypes(raw string) []model.ReportType {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]model.ReportType, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, model.ReportType(p))
		}
	}
	return out
}
