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

// ReportType enumerates the kind of analysis an IntelligenceReport captures
// (spec.md §3).
type ReportType string

const (
	ReportInnovationDiscovery  ReportType = "innovation_discovery"
	ReportFundingLandscape     ReportType = "funding_landscape"
	ReportResearchBreakthrough ReportType = "research_breakthrough"
	ReportPolicyDevelopment    ReportType = "policy_development"
	ReportTalentEcosystem      ReportType = "talent_ecosystem"
	ReportMarketAnalysis       ReportType = "market_analysis"
)

// ResolutionState tracks whether an ExtractedCitation has been matched to a
// stored Publication.
type ResolutionState string

const (
	ResolutionUnresolved  ResolutionState = "unresolved"
	ResolutionResolved    ResolutionState = "resolved"
	ResolutionUnresolvable ResolutionState = "unresolvable"
)

// ExtractedCitation is a single reference mined from LLM output (spec.md §3).
type ExtractedCitation struct {
	ID string

	RawText         string // URL or bibliographic pointer as it appeared
	CitationContext string // surrounding text

	ResolutionState ResolutionState
	ResolvedPublicationID string // set iff ResolutionState == ResolutionResolved

	Confidence float64 // [0,1]
}

// IsResolvedTo reports whether the citation resolves to the given
// publication ID, matching the spec's "resolved_to:<publication_id>" form.
func (c ExtractedCitation) IsResolvedTo(publicationID string) bool {
	return c.ResolutionState == ResolutionResolved && c.ResolvedPublicationID == publicationID
}

// IntelligenceReport is the structured product of one C7 LLM-intelligence
// call (spec.md §3).
type IntelligenceReport struct {
	ReportID string
	Type     ReportType

	Title   string
	Summary string

	KeyFindings         []string
	InnovationsMentioned []string
	FundingUpdates      []string
	PolicyDevelopments  []string

	Sources           []string // deduplicated URL strings
	ExtractedCitations []ExtractedCitation

	GeographicFocus []string

	ConfidenceScore float64 // [0,1], monotonically non-decreasing under cross-validation

	GenerationTimestamp time.Time
	TimePeriodAnalyzed  string

	ValidationFlags []string

	Provider   string // e.g. "anthropic", "azure_openai", "bedrock", "openai"
	Model      string
	CostUSD    float64
	TokensUsed int
}

// DedupeSources removes duplicate URLs from Sources in place, preserving the
// first occurrence's order (the invariant "sources list is deduplicated").
func (r *IntelligenceReport) DedupeSources() {
	seen := make(map[string]struct{}, len(r.Sources))
	out := r.Sources[:0]
	for _, s := range r.Sources {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	r.Sources = out
}

// RaiseConfidence applies the monotonic-non-decreasing invariant: confidence
// only moves upward, as happens when cross-validation succeeds.
func (r *IntelligenceReport) RaiseConfidence(candidate float64) {
	if candidate > r.ConfidenceScore {
		r.ConfidenceScore = candidate
	}
}
