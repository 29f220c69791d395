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

// Package openai implements the llm.Provider interface against any
// OpenAI-compatible chat completions endpoint via sashabaranov/go-openai,
// covering both OpenAI proper and self-hosted OpenAI-compatible gateways.
package openai

import (
	"context"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/africa-ai-collector/collector/internal/llm"
)

// Config configures a Provider.
type Config struct {
	APIKey      string
	BaseURL     string // empty uses the default OpenAI endpoint
	Model       string
	MaxTokens   int
	Temperature float64
}

// Provider implements llm.Provider against an OpenAI-compatible API.
type Provider struct {
	client *goopenai.Client
	cfg    Config
}

// NewProvider builds a Provider.
func NewProvider(cfg Config) *Provider {
	if cfg.Model == "" {
		cfg.Model = goopenai.GPT4oMini
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Provider{client: goopenai.NewClientWithConfig(clientCfg), cfg: cfg}
}

func (p *Provider) Name() string { return "openai" }
func (p *Provider) Type() string { return "llm_intelligence" }

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.cfg.MaxTokens
	}

	var messages []goopenai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: req.Prompt})

	resp, err := p.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       p.cfg.Model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("openai: chat completion: %w", err)
	}

	var text string
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}

	return llm.CompletionResponse{
		Text:         text,
		Model:        resp.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		CostUSD:      float64(resp.Usage.PromptTokens)*0.15/1_000_000 + float64(resp.Usage.CompletionTokens)*0.6/1_000_000,
	}, nil
}

// HealthCheck implements llm.Provider.
func (p *Provider) HealthCheck(ctx context.Context) error {
	_, err := p.Complete(ctx, llm.CompletionRequest{Prompt: "ping", MaxTokens: 1})
	return err
}

// Capabilities implements llm.Provider.
func (p *Provider) Capabilities() llm.Capabilities {
	return llm.Capabilities{MaxContextTokens: 128000, SupportsJSONMode: true, SupportsStreaming: true}
}

// EstimateCost implements llm.Provider.
func (p *Provider) EstimateCost(req llm.CompletionRequest) float64 {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.cfg.MaxTokens
	}
	return float64(len(req.Prompt)/4)*0.15/1_000_000 + float64(maxTokens)*0.6/1_000_000
}

// Embed implements vectorindex.Embedder against OpenAI's embeddings
// endpoint, letting the same provider serve both chat completion and the
// title embeddings the deduplicator's fuzzy-title stage needs.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input: []string{text},
		Model: goopenai.SmallEmbedding3,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai: embeddings: empty response")
	}
	return resp.Data[0].Embedding, nil
}
