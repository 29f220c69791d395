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

// PublicationSource enumerates which upstream produced a Publication.
type PublicationSource string

const (
	SourceArxiv             PublicationSource = "arxiv"
	SourcePubMed            PublicationSource = "pubmed"
	SourceScholar           PublicationSource = "scholar"
	SourceSystematicReview  PublicationSource = "systematic_review"
	SourceOther             PublicationSource = "other"
)

// DevelopmentStage is an optional classification of how mature the work is.
type DevelopmentStage string

const (
	StageConcept     DevelopmentStage = "concept"
	StagePrototype   DevelopmentStage = "prototype"
	StagePilot       DevelopmentStage = "pilot"
	StageProduction  DevelopmentStage = "production"
	StageUnknown     DevelopmentStage = ""
)

// Publication is an academic artifact discovered by the academic/biomed/
// scholarly adapters (spec.md §3).
type Publication struct {
	ID          string
	Fingerprint string // dedup.Fingerprint: normalized title + first-author surname + year; DOI and source_id are not part of it

	Title    string
	Abstract string
	Authors  []string // ordered, full names as parsed

	PublicationDate time.Time
	Year            int
	Venue           string
	DOI             string

	Source   PublicationSource
	SourceID string

	Keywords        []string
	AfricanEntities []string // countries/institutions detected

	AfricanRelevanceScore float64 // [0,1]
	AIRelevanceScore      float64 // [0,1]

	DevelopmentStage     DevelopmentStage
	BusinessModel        string
	ExtractedTechnologies []string

	ImpactMetrics map[string]interface{}

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MeetsThreshold reports whether the publication clears the admission gate
// (spec.md §3 invariant: african_relevance_score ≥ τ_afr AND
// ai_relevance_score ≥ τ_ai).
func (p Publication) MeetsThreshold(africanMin, aiMin float64) bool {
	return p.AfricanRelevanceScore >= africanMin && p.AIRelevanceScore >= aiMin
}
