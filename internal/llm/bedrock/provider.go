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

// Package bedrock implements the llm.Provider interface against Amazon
// Bedrock's InvokeModel API for Anthropic Claude models hosted on Bedrock.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/africa-ai-collector/collector/internal/llm"
)

// Config configures a Provider.
type Config struct {
	ModelID     string // e.g. "anthropic.claude-3-5-sonnet-20241022-v2:0"
	MaxTokens   int
	Temperature float64
}

// Provider implements llm.Provider against Amazon Bedrock.
type Provider struct {
	client *bedrockruntime.Client
	cfg    Config
}

// NewProvider builds a Provider over an already-configured Bedrock runtime
// client (region and credentials resolved by the caller via aws-sdk-go-v2's
// default config loader).
func NewProvider(client *bedrockruntime.Client, cfg Config) *Provider {
	if cfg.ModelID == "" {
		cfg.ModelID = "anthropic.claude-3-5-sonnet-20241022-v2:0"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
	return &Provider{client: client, cfg: cfg}
}

func (p *Provider) Name() string { return "bedrock" }
func (p *Provider) Type() string { return "llm_intelligence" }

// anthropicBedrockBody is the Claude-on-Bedrock "messages" wire format,
// which wraps Anthropic's own API with an anthropic_version field.
type anthropicBedrockBody struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	Temperature      float64          `json:"temperature,omitempty"`
	System           string           `json:"system,omitempty"`
	Messages         []bedrockMessage `json:"messages"`
}

type bedrockMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicBedrockResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
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

	body := anthropicBedrockBody{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        maxTokens,
		Temperature:      req.Temperature,
		System:           req.System,
		Messages:         []bedrockMessage{{Role: "user", Content: req.Prompt}},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("bedrock: encoding request: %w", err)
	}

	out, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(p.cfg.ModelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("bedrock: invoking model: %w", err)
	}

	var resp anthropicBedrockResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("bedrock: decoding response: %w", err)
	}

	var text string
	if len(resp.Content) > 0 {
		text = resp.Content[0].Text
	}

	return llm.CompletionResponse{
		Text:         text,
		Model:        p.cfg.ModelID,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		CostUSD:      float64(resp.Usage.InputTokens)*3.0/1_000_000 + float64(resp.Usage.OutputTokens)*15.0/1_000_000,
	}, nil
}

// HealthCheck implements llm.Provider.
func (p *Provider) HealthCheck(ctx context.Context) error {
	_, err := p.Complete(ctx, llm.CompletionRequest{Prompt: "ping", MaxTokens: 1})
	return err
}

// Capabilities implements llm.Provider.
func (p *Provider) Capabilities() llm.Capabilities {
	return llm.Capabilities{MaxContextTokens: 200000, SupportsJSONMode: false, SupportsStreaming: true}
}

// EstimateCost implements llm.Provider.
func (p *Provider) EstimateCost(req llm.CompletionRequest) float64 {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.cfg.MaxTokens
	}
	return float64(len(req.Prompt)/4)*3.0/1_000_000 + float64(maxTokens)*15.0/1_000_000
}
