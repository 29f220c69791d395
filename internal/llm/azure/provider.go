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

// Package azure implements the llm.Provider interface against an Azure
// OpenAI deployment, authenticating via azidentity when no static API key is
// configured (managed identity / service principal in production).
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/africa-ai-collector/collector/internal/llm"
)

// Config configures a Provider.
type Config struct {
	Endpoint       string // https://<resource>.openai.azure.com
	Deployment     string
	APIVersion     string
	APIKey         string // if empty, azidentity.DefaultAzureCredential is used
	MaxTokens      int
	Temperature    float64
}

// Provider implements llm.Provider against an Azure OpenAI deployment.
type Provider struct {
	httpClient *http.Client
	cfg        Config
	cred       *azidentity.DefaultAzureCredential
}

// NewProvider builds a Provider, resolving a DefaultAzureCredential when no
// static API key is supplied.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-06-01"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}

	p := &Provider{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		cfg:        cfg,
	}
	if cfg.APIKey == "" {
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("azure: resolving default credential: %w", err)
		}
		p.cred = cred
	}
	return p, nil
}

func (p *Provider) Name() string { return "azure_openai" }
func (p *Provider) Type() string { return "llm_intelligence" }

type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *Provider) authHeader(ctx context.Context, req *http.Request) error {
	if p.cfg.APIKey != "" {
		req.Header.Set("api-key", p.cfg.APIKey)
		return nil
	}
	tok, err := p.cred.GetToken(ctx, policyTokenOptions())
	if err != nil {
		return fmt.Errorf("azure: acquiring token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	return nil
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.cfg.MaxTokens
	}

	var messages []chatMessage
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{Messages: messages, MaxTokens: maxTokens, Temperature: req.Temperature}
	payload, err := json.Marshal(body)
	if err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("azure: encoding request: %w", err)
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		p.cfg.Endpoint, p.cfg.Deployment, p.cfg.APIVersion)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("azure: building request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	if err := p.authHeader(ctx, httpReq); err != nil {
		return llm.CompletionResponse{}, err
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("azure: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("azure: reading response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return llm.CompletionResponse{}, fmt.Errorf("azure: api error (status %d): %s", resp.StatusCode, raw)
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("azure: decoding response: %w", err)
	}

	var text string
	if len(out.Choices) > 0 {
		text = out.Choices[0].Message.Content
	}

	return llm.CompletionResponse{
		Text:         text,
		Model:        out.Model,
		InputTokens:  out.Usage.PromptTokens,
		OutputTokens: out.Usage.CompletionTokens,
		CostUSD:      float64(out.Usage.PromptTokens)*2.5/1_000_000 + float64(out.Usage.CompletionTokens)*10.0/1_000_000,
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
	return float64(len(req.Prompt)/4)*2.5/1_000_000 + float64(maxTokens)*10.0/1_000_000
}
