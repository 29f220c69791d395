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

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/africa-ai-collector/collector/internal/config"
	"github.com/africa-ai-collector/collector/internal/mediator"
	"github.com/africa-ai-collector/collector/internal/model"
)

// ScholarlyAdapter is the cheap counterpart to WebSearchAdapter: it yields
// scholarly paper records with author list, citation count, and venue
// (spec.md §4.3).
type ScholarlyAdapter struct {
	endpoint   string
	apiKey     string
	httpGet    func(ctx context.Context, url string) ([]byte, error)
	mediator   *mediator.Mediator
	thresholds config.RelevanceThreshold
	cacheBinding
}

// NewScholarlyAdapter builds a ScholarlyAdapter.
func NewScholarlyAdapter(endpoint, apiKey string, m *mediator.Mediator, thresholds config.RelevanceThreshold) *ScholarlyAdapter {
	return &ScholarlyAdapter{endpoint: endpoint, apiKey: apiKey, mediator: m, thresholds: thresholds, httpGet: defaultHTTPGet}
}

func (a *ScholarlyAdapter) Name() string { return "scholar" }

type scholarlyResponse struct {
	Papers []struct {
		Title         string   `json:"title"`
		Abstract      string   `json:"abstract"`
		Authors       []string `json:"authors"`
		Venue         string   `json:"venue"`
		Year          int      `json:"year"`
		DOI           string   `json:"doi"`
		CitationCount int      `json:"citation_count"`
		ExternalID    string   `json:"external_id"`
	} `json:"papers"`
}

// Fetch implements Adapter.
func (a *ScholarlyAdapter) Fetch(ctx context.Context, spec QuerySpec) (RecordSeq, error) {
	query := strings.Join(spec.Keywords, "+")
	url := fmt.Sprintf("%s?query=%s&key=%s&limit=%d", a.endpoint, query, a.apiKey, maxOr(spec.Limit, 100))

	raw, hit, err := cachedFetch(ctx, a.cacheBinding, cacheKey("scholar", query), a.mediator, mediator.Call[[]byte]{
		Source: "scholar",
		Fn: func(ctx context.Context) ([]byte, error) {
			return a.httpGet(ctx, url)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sources: scholarly search: %w", err)
	}
	if !hit {
		return func(yield func(RawRecord) bool) {}, nil
	}

	var resp scholarlyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("sources: scholarly search decode: %w", err)
	}

	return func(yield func(RawRecord) bool) {
		for _, p := range resp.Papers {
			if !yield(RawRecord{
				Source: "scholar",
				Payload: map[string]interface{}{
					"title": p.Title, "abstract": p.Abstract, "authors": p.Authors,
					"venue": p.Venue, "year": p.Year, "doi": p.DOI,
					"citation_count": p.CitationCount, "external_id": p.ExternalID,
				},
			}) {
				return
			}
		}
	}, nil
}

// Parse converts a RawRecord into a Publication.
func (a *ScholarlyAdapter) Parse(r RawRecord) (model.Publication, DiscardReason, bool) {
	title, _ := r.Payload["title"].(string)
	abstract, _ := r.Payload["abstract"].(string)
	authors, _ := r.Payload["authors"].([]string)
	venue, _ := r.Payload["venue"].(string)
	year, _ := r.Payload["year"].(int)
	doi, _ := r.Payload["doi"].(string)
	externalID, _ := r.Payload["external_id"].(string)

	pub := model.Publication{
		Title:                 title,
		Abstract:              abstract,
		Authors:               authors,
		Venue:                 venue,
		Year:                  year,
		DOI:                   doi,
		Source:                model.SourceScholar,
		SourceID:              externalID,
		AfricanRelevanceScore: ScoreAfricanRelevance(title, abstract, authors, nil),
		AIRelevanceScore:      ScoreAIRelevance(title, abstract, nil),
	}

	if !pub.MeetsThreshold(a.thresholds.African, a.thresholds.AI) {
		return pub, DiscardBelowThreshold, false
	}
	pub.DevelopmentStage = DetectDevelopmentStage(title, abstract)
	pub.BusinessModel = ExtractBusinessModel(title, abstract)
	pub.ExtractedTechnologies = ExtractTechnologies(title, abstract)
	return pub, "", true
}

func maxOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
