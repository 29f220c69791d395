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

	"github.com/africa-ai-collector/collector/internal/mediator"
)

// SearchResult is a ranked link+snippet record, common to WebSearchAdapter
// and ScholarlyAdapter.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
	Rank    int
}

// WebSearchAdapter issues one keyword query per invocation against a costly
// general web-search API, used sparingly as a last-resort discovery channel
// (spec.md §4.3).
type WebSearchAdapter struct {
	endpoint     string
	apiKey       string
	estimatedCost float64
	httpGet      func(ctx context.Context, url string) ([]byte, error)
	mediator     *mediator.Mediator
	cacheBinding
}

// NewWebSearchAdapter builds a WebSearchAdapter.
func NewWebSearchAdapter(endpoint, apiKey string, estimatedCost float64, m *mediator.Mediator) *WebSearchAdapter {
	return &WebSearchAdapter{endpoint: endpoint, apiKey: apiKey, estimatedCost: estimatedCost, mediator: m, httpGet: defaultHTTPGet}
}

func (a *WebSearchAdapter) Name() string { return "web_search" }

type webSearchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Snippet string `json:"snippet"`
	} `json:"results"`
}

// Fetch implements Adapter: a single query, not paginated (one invocation
// per call is the spec'd contract for this costly channel).
func (a *WebSearchAdapter) Fetch(ctx context.Context, spec QuerySpec) (RecordSeq, error) {
	query := strings.Join(spec.Keywords, " ")
	url := fmt.Sprintf("%s?q=%s&key=%s", a.endpoint, query, a.apiKey)

	raw, hit, err := cachedFetch(ctx, a.cacheBinding, cacheKey("web_search", query), a.mediator, mediator.Call[[]byte]{
		Source:           "web_search",
		EstimatedCostUSD: a.estimatedCost,
		Fn: func(ctx context.Context) ([]byte, error) {
			return a.httpGet(ctx, url)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sources: web search: %w", err)
	}
	if !hit {
		return func(yield func(RawRecord) bool) {}, nil
	}

	var resp webSearchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("sources: web search decode: %w", err)
	}

	return func(yield func(RawRecord) bool) {
		for i, r := range resp.Results {
			if !yield(RawRecord{
				Source: "web_search",
				Payload: map[string]interface{}{
					"title": r.Title, "url": r.URL, "snippet": r.Snippet, "rank": i,
				},
			}) {
				return
			}
		}
	}, nil
}

// Parse converts a RawRecord into a SearchResult.
func (a *WebSearchAdapter) Parse(r RawRecord) (SearchResult, DiscardReason, bool) {
	title, _ := r.Payload["title"].(string)
	url, _ := r.Payload["url"].(string)
	if url == "" {
		return SearchResult{}, DiscardMissingFields, false
	}
	snippet, _ := r.Payload["snippet"].(string)
	rank, _ := r.Payload["rank"].(int)
	return SearchResult{Title: title, URL: url, Snippet: snippet, Rank: rank}, "", true
}
