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

import "time"

// PhaseOutcome summarizes one phase of a collection cycle.
type PhaseOutcome struct {
	Name         string
	ItemsIn      int
	ItemsOut     int
	Errors       []string
	DurationMS   int64
}

// CollectionCycleResult is the orchestrator's always-fully-populated return
// value (spec.md open question, resolved in DESIGN.md): every field is set
// on every return path, including early-abort ones, so callers never branch
// on a partially-zero struct.
type CollectionCycleResult struct {
	RunID        string
	PipelineName string // "collection_cycle" for a full RunCycle, or the targeted pipeline name
	StartedAt    time.Time
	EndedAt      time.Time

	Phases []PhaseOutcome

	Discoveries int // new IntelligenceReports + search targets found
	Extractions int // candidate Innovation/Publication records produced
	Duplicates  int // records resolved to an existing canonical record
	Enrichments int // backfill fields successfully written

	IntelligenceReports []string // report IDs generated this cycle
	InnovationsUpserted []string
	PublicationsUpserted []string

	Recommendations []string

	Errors []string
}

// Duration returns EndedAt - StartedAt.
func (r CollectionCycleResult) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// extractionSuccessRate divides Extractions by Discoveries, the ratio the
// recommendation engine watches (spec.md §4.7: "if extraction success-rate <
// 0.7, recommend improve URL discovery").
func (r CollectionCycleResult) extractionSuccessRate() float64 {
	if r.Discoveries == 0 {
		return 1.0
	}
	return float64(r.Extractions) / float64(r.Discoveries)
}

// buildRecommendations derives textual guidance from cycle statistics.
func buildRecommendations(r CollectionCycleResult) []string {
	var recs []string
	if rate := r.extractionSuccessRate(); rate < 0.7 {
		recs = append(recs, "extraction success rate below 0.7: improve URL discovery and content-type classification")
	}
	if r.Discoveries > 0 && float64(r.Duplicates)/float64(r.Discoveries) > 0.6 {
		recs = append(recs, "duplicate rate above 0.6: consider widening source query diversity")
	}
	if len(r.Errors) > 5 {
		recs = append(recs, "elevated error count this cycle: check mediator circuit-breaker and provider health")
	}
	if r.Enrichments == 0 && r.Extractions > 0 {
		recs = append(recs, "no backfill enrichments landed this cycle: check daily cost budget and search adapter health")
	}
	return recs
}
