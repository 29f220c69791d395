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
	"fmt"

	"github.com/africa-ai-collector/collector/internal/llm"
	"github.com/africa-ai-collector/collector/internal/mediator"
	"github.com/africa-ai-collector/collector/internal/model"
)

// LLMIntelligenceAdapter issues a templated prompt and returns the model's
// free-form prose verbatim — it deliberately imposes no schema on the
// response; the citation extractor downstream is responsible for that
// (spec.md §4.3).
type LLMIntelligenceAdapter struct {
	router       *llm.Router
	mediator     *mediator.Mediator
	estimatedCost float64
}

// NewLLMIntelligenceAdapter builds an LLMIntelligenceAdapter over a router
// of configured LLM providers.
func NewLLMIntelligenceAdapter(router *llm.Router, m *mediator.Mediator, estimatedCost float64) *LLMIntelligenceAdapter {
	return &LLMIntelligenceAdapter{router: router, mediator: m, estimatedCost: estimatedCost}
}

func (a *LLMIntelligenceAdapter) Name() string { return "llm_intelligence" }

// IntelligenceQuery parameterizes one prompt request.
type IntelligenceQuery struct {
	ReportType      model.ReportType
	TimePeriod      string
	GeographicFocus []string
}

// RawIntelligence is the adapter's unparsed output: raw text plus a
// response identifier for idempotency tracking.
type RawIntelligence struct {
	ResponseID string
	Provider   string
	RawText    string
}

// FetchIntelligence issues one mediated, templated prompt and returns the
// raw provider response for the citation extractor to process. It is kept
// separate from Fetch/Parse (the RecordSeq shape other adapters use) since
// an intelligence call is a single request-response exchange, not a
// paginated sequence.
func (a *LLMIntelligenceAdapter) FetchIntelligence(ctx context.Context, q IntelligenceQuery) (RawIntelligence, error) {
	prompt := templatePrompt(q)

	type result struct {
		resp     llm.CompletionResponse
		provider string
	}

	out, err := mediator.Do(ctx, a.mediator, mediator.Call[result]{
		Source:           "llm_intelligence",
		EstimatedCostUSD: a.estimatedCost,
		Fn: func(ctx context.Context) (result, error) {
			resp, provider, err := a.router.Complete(ctx, llm.CompletionRequest{
				Prompt:    prompt,
				System:    "You are an analyst tracking African AI innovation. Cite sources inline with URLs where possible.",
				MaxTokens: 2048,
			})
			return result{resp: resp, provider: provider}, err
		},
	})
	if err != nil {
		return RawIntelligence{}, fmt.Errorf("sources: llm intelligence call: %w", err)
	}

	return RawIntelligence{
		ResponseID: fmt.Sprintf("%s:%d", out.provider, len(out.resp.Text)),
		Provider:   out.provider,
		RawText:    out.resp.Text,
	}, nil
}

func templatePrompt(q IntelligenceQuery) string {
	focus := "across Africa"
	if len(q.GeographicFocus) > 0 {
		focus = "focused on " + joinComma(q.GeographicFocus)
	}
	return fmt.Sprintf(
		"Produce a %s report %s for the period %s. Include specific companies, funding amounts, and cite your sources with URLs.",
		string(q.ReportType), focus, q.TimePeriod,
	)
}

func joinComma(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}
