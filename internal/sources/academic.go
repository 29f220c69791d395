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
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/africa-ai-collector/collector/internal/config"
	"github.com/africa-ai-collector/collector/internal/mediator"
	"github.com/africa-ai-collector/collector/internal/model"
)

// AcademicAdapter queries an Atom-style preprint feed (arXiv's API shape),
// paginating by offset, and scores each entry for African/AI relevance
// before yielding it. The wire-level Atom parsing lives entirely here per
// the "per-source adapter owns its own parsing" boundary.
type AcademicAdapter struct {
	baseURL   string
	pageSize  int
	httpGet   func(ctx context.Context, url string) ([]byte, error)
	mediator  *mediator.Mediator
	thresholds config.RelevanceThreshold
	cacheBinding
}

// NewAcademicAdapter builds an AcademicAdapter against an Atom feed endpoint
// (e.g. http://export.arxiv.org/api/query).
func NewAcademicAdapter(baseURL string, m *mediator.Mediator, thresholds config.RelevanceThreshold) *AcademicAdapter {
	return &AcademicAdapter{
		baseURL:    baseURL,
		pageSize:   50,
		mediator:   m,
		thresholds: thresholds,
		httpGet:    defaultHTTPGet,
	}
}

func defaultHTTPGet(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("sources: academic feed returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (a *AcademicAdapter) Name() string { return "arxiv" }

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string       `xml:"id"`
	Title     string       `xml:"title"`
	Summary   string       `xml:"summary"`
	Published string       `xml:"published"`
	Authors   []atomAuthor `xml:"author"`
	Categories []atomCategory `xml:"category"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

// Fetch implements Adapter, paginating the Atom feed by offset until a page
// returns fewer than pageSize entries.
func (a *AcademicAdapter) Fetch(ctx context.Context, spec QuerySpec) (RecordSeq, error) {
	query := buildBooleanQuery(spec.Keywords, spec.GeographicFocus)

	return func(yield func(RawRecord) bool) {
		offset := spec.Offset
		for {
			url := fmt.Sprintf("%s?search_query=%s&start=%d&max_results=%d", a.baseURL, query, offset, a.pageSize)
			raw, hit, err := cachedFetch(ctx, a.cacheBinding, cacheKey("arxiv", query, fmt.Sprint(offset)), a.mediator, mediator.Call[[]byte]{
				Source:           "arxiv",
				EstimatedCostUSD: 0,
				Fn: func(ctx context.Context) ([]byte, error) {
					return a.httpGet(ctx, url)
				},
			})
			if err != nil {
				return
			}
			if !hit {
				return
			}

			var feed atomFeed
			if err := xml.Unmarshal(raw, &feed); err != nil {
				return
			}
			if len(feed.Entries) == 0 {
				return
			}

			for _, e := range feed.Entries {
				if !yield(entryToRawRecord(e)) {
					return
				}
			}

			if len(feed.Entries) < a.pageSize {
				return
			}
			offset += a.pageSize
			if spec.Limit > 0 && offset-spec.Offset >= spec.Limit {
				return
			}
		}
	}, nil
}

func entryToRawRecord(e atomEntry) RawRecord {
	authors := make([]string, 0, len(e.Authors))
	for _, au := range e.Authors {
		authors = append(authors, au.Name)
	}
	categories := make([]string, 0, len(e.Categories))
	for _, c := range e.Categories {
		categories = append(categories, c.Term)
	}
	return RawRecord{
		Source: "arxiv",
		Payload: map[string]interface{}{
			"id":         e.ID,
			"title":      strings.TrimSpace(e.Title),
			"abstract":   strings.TrimSpace(e.Summary),
			"published":  e.Published,
			"authors":    authors,
			"categories": categories,
		},
	}
}

// Parse converts a RawRecord into a Publication, computing relevance scores
// and rejecting entries below the configured thresholds.
func (a *AcademicAdapter) Parse(r RawRecord) (model.Publication, DiscardReason, bool) {
	title, _ := r.Payload["title"].(string)
	abstract, _ := r.Payload["abstract"].(string)
	authors, _ := r.Payload["authors"].([]string)
	categories, _ := r.Payload["categories"].([]string)
	sourceID, _ := r.Payload["id"].(string)

	africanScore := ScoreAfricanRelevance(title, abstract, authors, nil)
	aiScore := ScoreAIRelevance(title, abstract, categories)

	pub := model.Publication{
		Title:                 title,
		Abstract:              abstract,
		Authors:               authors,
		Source:                model.SourceArxiv,
		SourceID:              sourceID,
		AfricanRelevanceScore: africanScore,
		AIRelevanceScore:      aiScore,
		CreatedAt:             time.Now().UTC(),
	}

	if !pub.MeetsThreshold(a.thresholds.African, a.thresholds.AI) {
		return pub, DiscardBelowThreshold, false
	}
	pub.DevelopmentStage = DetectDevelopmentStage(title, abstract)
	pub.BusinessModel = ExtractBusinessModel(title, abstract)
	pub.ExtractedTechnologies = ExtractTechnologies(title, abstract)
	return pub, "", true
}

// buildBooleanQuery composes "(AI-term OR …) AND (African-country-or-
// institution OR …)" per spec.md §4.3, date-bounding left to the caller via
// the feed's own date-range query params where the upstream supports it.
func buildBooleanQuery(keywords, geographicFocus []string) string {
	terms := keywords
	if len(terms) == 0 {
		terms = aiHighValueTerms
	}
	geo := geographicFocus
	if len(geo) == 0 {
		geo = append(append([]string{}, africanCountries...), africanInstitutions...)
	}

	aiClause := "(" + strings.Join(quoteAll(terms), "+OR+") + ")"
	geoClause := "(" + strings.Join(quoteAll(geo), "+OR+") + ")"
	return aiClause + "+AND+" + geoClause
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ReplaceAll(s, " ", "+")
	}
	return out
}
