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

// Package anthropic implements the llm.Provider interface against the
// Anthropic Messages API using a small hand-rolled REST client, matching the
// teacher's own provider rather than pulling in a dedicated SDK.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/africa-ai-collector/collector/internal/llm"
)

// HTTPClient is the subset of *http.Client the provider needs, so tests can
// substitute a fake transport.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures a Provider.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Provider implements llm.Provider against the Anthropic API.
type Provider struct {
	client HTTPClient
	cfg    Config
}

// NewProvider builds a Provider. A nil client is replaced by an http.Client
// with a 60-second timeout.
func NewProvider(client HTTPClient, cfg Config) *Provider {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com/v1/messages"
	}
	if cfg.Model == "" {
		cfg.Model = "claude-3-5-sonnet-20241022"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
	return &Provider{client: client, cfg: cfg}
}

func (p *Provider) Name() string { return "anthropic" }
func (p *Provider) Type() string { return "llm_intelligence" }

type messageRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature,omitempty"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Model string `json:"model"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.cfg.MaxTokens
	}
	temp := req.Temperature
	if temp == 0 {
		temp = p.cfg.Temperature
	}

	body := messageRequest{
		Model:       p.cfg.Model,
		MaxTokens:   maxTokens,
		Temperature: temp,
		System:      req.System,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("anthropic: encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("anthropic: building request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-api-key", p.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("anthropic: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("anthropic: reading response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return llm.CompletionResponse{}, fmt.Errorf("anthropic: api error (status %d): %s", resp.StatusCode, raw)
	}

	var out messageResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("anthropic: decoding response: %w", err)
	}

	var text string
	if len(out.Content) > 0 {
		text = out.Content[0].Text
	}

	return llm.CompletionResponse{
		Text:         text,
		Model:        out.Model,
		InputTokens:  out.Usage.InputTokens,
		OutputTokens: out.Usage.OutputTokens,
		CostUSD:      estimateCost(out.Usage.InputTokens, out.Usage.OutputTokens),
	}, nil
}

// HealthCheck implements llm.Provider with a minimal low-token completion.
func (p *Provider) HealthCheck(ctx context.Context) error {
	_, err := p.Complete(ctx, llm.CompletionRequest{Prompt: "ping", MaxTokens: 1})
	return err
}

// Capabilities implements llm.Provider.
func (p *Provider) Capabilities() llm.Capabilities {
	return llm.Capabilities{MaxContextTokens: 200000, SupportsJSONMode: false, SupportsStreaming: true}
}

// EstimateCost implements llm.Provider using a rough per-token rate; actual
// cost comes from the API response usage block once the call completes.
func (p *Provider) EstimateCost(req llm.CompletionRequest) float64 {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.cfg.MaxTokens
	}
	return estimateCost(len(req.Prompt)/4, maxTokens)
}

// claude-3-5-sonnet published per-token pricing, in USD per token.
const (
	inputTokenCostUSD  = 3.0 / 1_000_000
	outputTokenCostUSD = 15.0 / 1_000_000
)

func estimateCost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)*inputTokenCostUSD + float64(outputTokens)*outputTokenCostUSD
}
