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

// Package config provides the collector's configuration registry (C2):
// feature flags, cost limits, and per-source thresholds, loaded in layers
// (defaults → YAML file → environment overrides) the way the teacher's
// connectors/config package loads connector configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Registry is the enumerated configuration surface described in spec.md §6.
// Every field has a zero-value-safe default applied by Defaults().
type Registry struct {
	// Feature flags
	DisableAIEnrichment    bool `yaml:"disable_ai_enrichment"`
	DisableExternalSearch  bool `yaml:"disable_external_search"`
	DisableRSSMonitoring   bool `yaml:"disable_rss_monitoring"`
	DisableAcademicScraping bool `yaml:"disable_academic_scraping"`
	EnableMockData         bool `yaml:"enable_mock_data"`
	Debug                  bool `yaml:"debug"`

	// Cost & batching limits
	MaxETLBatchSize     int     `yaml:"max_etl_batch_size"`
	MaxAICallsPerMinute int     `yaml:"max_ai_calls_per_minute"`
	DailyCostLimitUSD   float64 `yaml:"daily_cost_limit_usd"`
	MaxSingleCallCostUSD float64 `yaml:"max_single_call_cost_usd"`

	// Relevance thresholds, per source. Keys are source names ("arxiv",
	// "pubmed", "scholar", "systematic_review", "other"); missing keys fall
	// back to Thresholds.Default.
	Thresholds ThresholdConfig `yaml:"thresholds"`

	// Dedup thresholds (τ_hi, τ_lo from spec.md §4.5).
	Dedup DedupConfig `yaml:"dedup"`

	// Cache tuning (§4.1).
	Cache CacheConfig `yaml:"cache"`

	// Scheduler cadence (§4.8).
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Citation snowball bounds (§4.7 phase 7).
	Snowball SnowballConfig `yaml:"snowball"`

	// Validation gate for orchestrator phase 3 (§4.7).
	MinCompleteness float64 `yaml:"min_completeness"`
	MinConfidence   float64 `yaml:"min_confidence"`

	// Per-provider connection settings, keyed by provider name.
	Providers map[string]ProviderSettings `yaml:"providers"`
}

// ThresholdConfig holds african_relevance_score / ai_relevance_score
// admission thresholds, per source, with a default fallback.
type ThresholdConfig struct {
	Default     RelevanceThreshold            `yaml:"default"`
	PerSource   map[string]RelevanceThreshold `yaml:"per_source"`
}

// RelevanceThreshold is τ_afr and τ_ai for one source.
type RelevanceThreshold struct {
	African float64 `yaml:"african"`
	AI      float64 `yaml:"ai"`
}

// For returns the threshold for a named source, falling back to Default.
func (t ThresholdConfig) For(source string) RelevanceThreshold {
	if rt, ok := t.PerSource[source]; ok {
		return rt
	}
	return t.Default
}

// DedupConfig holds the fuzzy-title / semantic-match thresholds.
type DedupConfig struct {
	SemanticHigh float64 `yaml:"semantic_high"` // τ_hi
	SemanticLow  float64 `yaml:"semantic_low"`  // τ_lo
	FuzzyTitleMin float64 `yaml:"fuzzy_title_min"`
}

// CacheConfig tunes the two-tier cache.
type CacheConfig struct {
	MemoryMaxEntries          int           `yaml:"memory_max_entries"`
	CompressionThresholdBytes int           `yaml:"compression_threshold_bytes"`
	TTL                       map[string]time.Duration `yaml:"ttl"`
	NegativeTTL               map[string]time.Duration `yaml:"negative_ttl"`
}

// SchedulerConfig configures the periodic orchestrator cycle.
type SchedulerConfig struct {
	Interval time.Duration `yaml:"interval"`
	Enabled  bool          `yaml:"enabled"`
}

// SnowballConfig bounds citation-snowball discovery (§4.7, §8 Scenario 6).
type SnowballConfig struct {
	MaxDepth     int `yaml:"max_depth"`
	MaxCitations int `yaml:"max_citations"`
}

// ProviderSettings is per-provider connection configuration (endpoint,
// model, rate limit) resolved alongside credentials from a SecretsProvider.
type ProviderSettings struct {
	Enabled    bool              `yaml:"enabled"`
	Endpoint   string            `yaml:"endpoint"`
	Model      string            `yaml:"model"`
	RateQPS    float64           `yaml:"rate_qps"`
	Burst      float64           `yaml:"burst"`
	Extra      map[string]string `yaml:"extra"`
}

// Defaults returns a Registry populated with the defaults named in spec.md §4
// (TTLs, reason-specific negative TTLs, snowball bounds, thresholds).
func Defaults() *Registry {
	return &Registry{
		MaxETLBatchSize:      50,
		MaxAICallsPerMinute:  10,
		DailyCostLimitUSD:    25.0,
		MaxSingleCallCostUSD: 0.50,
		Thresholds: ThresholdConfig{
			Default: RelevanceThreshold{African: 0.3, AI: 0.3},
			PerSource: map[string]RelevanceThreshold{
				"arxiv":             {African: 0.25, AI: 0.35},
				"pubmed":            {African: 0.25, AI: 0.3},
				"scholar":           {African: 0.3, AI: 0.3},
				"systematic_review": {African: 0.2, AI: 0.25},
			},
		},
		Dedup: DedupConfig{
			SemanticHigh:  0.92,
			SemanticLow:   0.80,
			FuzzyTitleMin: 0.85,
		},
		Cache: CacheConfig{
			MemoryMaxEntries:          10000,
			CompressionThresholdBytes: 16 * 1024,
			TTL: map[string]time.Duration{
				"llm_intelligence": 24 * time.Hour,
				"web_search":       6 * time.Hour,
				"scholar":          12 * time.Hour,
				"arxiv":            24 * time.Hour,
				"pubmed":           24 * time.Hour,
				"news_rss":         1 * time.Hour,
			},
			NegativeTTL: map[string]time.Duration{
				"rate_limited":         30 * time.Minute,
				"api_error":            1 * time.Hour,
				"insufficient_content": 2 * time.Hour,
				"network_error":        30 * time.Minute,
				"no_results":           6 * time.Hour,
				"validation_failed":    1 * time.Hour,
			},
		},
		Scheduler: SchedulerConfig{
			Interval: 6 * time.Hour,
			Enabled:  true,
		},
		Snowball: SnowballConfig{
			MaxDepth:     2,
			MaxCitations: 15,
		},
		MinCompleteness: 0.3,
		MinConfidence:   0.5,
		Providers:       map[string]ProviderSettings{},
	}
}

// Load layers a YAML config file (if path is non-empty and exists) on top of
// Defaults(), then applies environment variable overrides for the flags and
// cost limits most often tuned per-deployment.
func Load(path string) (*Registry, error) {
	reg := Defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("config: reading %s: %w", path, err)
			}
			if err := yaml.Unmarshal(data, reg); err != nil {
				return nil, fmt.Errorf("config: parsing %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: stat %s: %w", path, err)
		}
	}

	applyEnvOverrides(reg)
	return reg, nil
}

func applyEnvOverrides(reg *Registry) {
	setBool(&reg.DisableAIEnrichment, "DISABLE_AI_ENRICHMENT")
	setBool(&reg.DisableExternalSearch, "DISABLE_EXTERNAL_SEARCH")
	setBool(&reg.DisableRSSMonitoring, "DISABLE_RSS_MONITORING")
	setBool(&reg.DisableAcademicScraping, "DISABLE_ACADEMIC_SCRAPING")
	setBool(&reg.EnableMockData, "ENABLE_MOCK_DATA")
	setBool(&reg.Debug, "DEBUG")

	setInt(&reg.MaxETLBatchSize, "MAX_ETL_BATCH_SIZE")
	setInt(&reg.MaxAICallsPerMinute, "MAX_AI_CALLS_PER_MINUTE")
	setFloat(&reg.DailyCostLimitUSD, "DAILY_COST_LIMIT_USD")
}

func setBool(dst *bool, env string) {
	if v := os.Getenv(env); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, env string) {
	if v := os.Getenv(env); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
