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

// Package llm provides the LLM-intelligence provider abstraction (C7):
// a Provider interface implemented by anthropic, azure, bedrock and openai
// variants, fronted by a Router that tries providers in preference order,
// falling back on failure, and counts per-provider successes and failures,
// generalized from the teacher's orchestrator/llm package.
package llm

import "context"

// CompletionRequest is a provider-agnostic completion call.
type CompletionRequest struct {
	Prompt      string
	System      string
	MaxTokens   int
	Temperature float64
}

// CompletionResponse is a provider-agnostic completion result.
type CompletionResponse struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// Capabilities describes what a provider supports. The Router does not
// consult it when choosing a provider.
type Capabilities struct {
	MaxContextTokens int
	SupportsJSONMode bool
	SupportsStreaming bool
}

// Provider is implemented by each LLM-intelligence backend variant.
type Provider interface {
	Name() string
	Type() string

	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	HealthCheck(ctx context.Context) error
	Capabilities() Capabilities
	EstimateCost(req CompletionRequest) float64
}
