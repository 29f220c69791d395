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

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/africa-ai-collector/collector/internal/logger"
)

// SecretsProvider resolves provider API keys and other credentials by name,
// decoupling the config registry from where a deployment actually stores
// them (AWS Secrets Manager in production, an in-memory map in tests).
type SecretsProvider interface {
	GetSecret(ctx context.Context, ref string) (map[string]string, error)
}

// AWSSecretsProvider resolves secrets from AWS Secrets Manager, caching
// values for a bounded TTL so every mediated call doesn't round-trip to
// Secrets Manager.
type AWSSecretsProvider struct {
	client *secretsmanager.Client
	ttl    time.Duration
	log    *logger.Logger

	mu    sync.RWMutex
	cache map[string]cachedSecret
}

type cachedSecret struct {
	value     map[string]string
	expiresAt time.Time
}

// AWSSecretsProviderOptions configures an AWSSecretsProvider.
type AWSSecretsProviderOptions struct {
	Region   string
	CacheTTL time.Duration
}

// NewAWSSecretsProvider builds a provider backed by AWS Secrets Manager.
func NewAWSSecretsProvider(ctx context.Context, opts AWSSecretsProviderOptions) (*AWSSecretsProvider, error) {
	var cfgOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		cfgOpts = append(cfgOpts, config.WithRegion(opts.Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, cfgOpts...)
	if err != nil {
		return nil, fmt.Errorf("config: loading AWS config: %w", err)
	}

	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &AWSSecretsProvider{
		client: secretsmanager.NewFromConfig(cfg),
		ttl:    ttl,
		log:    logger.New("secrets"),
		cache:  make(map[string]cachedSecret),
	}, nil
}

// GetSecret fetches a JSON-object secret (string → string) by ARN or name,
// falling back to a single "value" key when the payload isn't a JSON object.
func (p *AWSSecretsProvider) GetSecret(ctx context.Context, ref string) (map[string]string, error) {
	p.mu.RLock()
	entry, ok := p.cache[ref]
	p.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.value, nil
	}

	out, err := p.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(ref),
	})
	if err != nil {
		return nil, fmt.Errorf("config: fetching secret %s: %w", mask(ref), err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("config: secret %s has no string value", mask(ref))
	}

	var values map[string]string
	if err := json.Unmarshal([]byte(*out.SecretString), &values); err != nil {
		values = map[string]string{"value": *out.SecretString}
	}

	p.mu.Lock()
	p.cache[ref] = cachedSecret{value: values, expiresAt: time.Now().Add(p.ttl)}
	p.mu.Unlock()

	p.log.Info("fetched secret", map[string]interface{}{"ref": mask(ref)})
	return values, nil
}

func mask(ref string) string {
	if len(ref) <= 12 {
		return "***"
	}
	return "..." + ref[len(ref)-8:]
}

// StaticSecretsProvider is an in-memory SecretsProvider for tests and local
// development, where credentials arrive as plain environment variables.
type StaticSecretsProvider struct {
	mu      sync.RWMutex
	secrets map[string]map[string]string
}

// NewStaticSecretsProvider returns an empty in-memory provider.
func NewStaticSecretsProvider() *StaticSecretsProvider {
	return &StaticSecretsProvider{secrets: make(map[string]map[string]string)}
}

// Set registers a secret value under ref.
func (p *StaticSecretsProvider) Set(ref string, value map[string]string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.secrets[ref] = value
}

// GetSecret implements SecretsProvider.
func (p *StaticSecretsProvider) GetSecret(_ context.Context, ref string) (map[string]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.secrets[ref]
	if !ok {
		return nil, fmt.Errorf("config: secret %s not registered", ref)
	}
	return v, nil
}
