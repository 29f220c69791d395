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

// Package main is the entry point for the African AI Innovation collector.
//
// The collector is a scheduled ETL service that:
//   - Synthesizes intelligence reports from LLM providers (Anthropic, Azure
//     OpenAI, Bedrock, OpenAI)
//   - Discovers and extracts candidate Innovation/Publication records from
//     academic, biomedical, news, and web-search sources
//   - Deduplicates, persists, and indexes admitted records
//   - Backfills missing fields on existing records within a daily cost budget
//
// Usage:
//
//	./collector -once
//	./collector
//
// Environment Variables:
//
//	COLLECTOR_CONFIG - path to a YAML config file (optional)
//	DATABASE_URL - PostgreSQL connection string
//	COMMUNITY_DATABASE_URL - MySQL connection string (community submissions)
//	CASSANDRA_HOSTS - comma-separated Cassandra contact points (run history)
//	REDIS_ADDR - Redis address (durable cache tier)
//	MONGODB_URI - MongoDB connection string (vector index)
//	ANTHROPIC_API_KEY, AZURE_OPENAI_*, BEDROCK_REGION, OPENAI_API_KEY - LLM providers
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/africa-ai-collector/collector/internal/backfill"
	"github.com/africa-ai-collector/collector/internal/cache"
	"github.com/africa-ai-collector/collector/internal/clock"
	"github.com/africa-ai-collector/collector/internal/config"
	"github.com/africa-ai-collector/collector/internal/control"
	"github.com/africa-ai-collector/collector/internal/llm"
	"github.com/africa-ai-collector/collector/internal/llm/anthropic"
	"github.com/africa-ai-collector/collector/internal/llm/azure"
	"github.com/africa-ai-collector/collector/internal/llm/bedrock"
	"github.com/africa-ai-collector/collector/internal/llm/openai"
	"github.com/africa-ai-collector/collector/internal/logger"
	"github.com/africa-ai-collector/collector/internal/mediator"
	"github.com/africa-ai-collector/collector/internal/orchestrator"
	"github.com/africa-ai-collector/collector/internal/persistence"
	"github.com/africa-ai-collector/collector/internal/scheduler"
	"github.com/africa-ai-collector/collector/internal/sources"
	"github.com/africa-ai-collector/collector/internal/supervisor"
	"github.com/africa-ai-collector/collector/internal/vectorindex"
)

func main() {
	once := flag.Bool("once", false, "run a single collection cycle and exit, instead of starting the scheduler loop")
	flag.Parse()

	log := logger.New("collector")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		log.ErrorLog("loading config", err, nil)
		os.Exit(1)
	}
	logger.SetDebug(cfg.Debug)

	clk := clock.New()

	gateway, err := persistence.NewPostgresGateway(os.Getenv("DATABASE_URL"), clk)
	if err != nil {
		log.ErrorLog("connecting to postgres", err, nil)
		os.Exit(1)
	}

	history, err := persistence.NewRunHistoryStore(splitCSV(os.Getenv("CASSANDRA_HOSTS")), "collector")
	if err != nil {
		log.ErrorLog("connecting to cassandra", err, nil)
		os.Exit(1)
	}

	var community *persistence.CommunityStore
	if dsn := os.Getenv("COMMUNITY_DATABASE_URL"); dsn != "" {
		community, err = persistence.NewCommunityStore(dsn, clk)
		if err != nil {
			log.ErrorLog("connecting to community mysql", err, nil)
			os.Exit(1)
		}
	}

	m := mediator.New(mediator.Config{
		DefaultRateQPS:          float64(cfg.MaxAICallsPerMinute) / 60,
		DefaultBurst:            2,
		DefaultConcurrency:      4,
		CircuitFailureThreshold: 5,
		Retry:                   mediator.DefaultRetryConfig(),
		DailyCostLimitUSD:       cfg.DailyCostLimitUSD,
		MaxSingleCallCostUSD:    cfg.MaxSingleCallCostUSD,
		Clock:                   clk,
	})

	registry, router := buildRouter(cfg)

	vindex := buildVectorIndex(ctx, registry, log)

	redisStore, err := cache.NewRedisStore(ctx, cache.RedisStoreOptions{Addr: os.Getenv("REDIS_ADDR")})
	if err != nil {
		log.ErrorLog("connecting to redis", err, nil)
		os.Exit(1)
	}
	durableCache, err := cache.New(redisStore, cache.Options{})
	if err != nil {
		log.ErrorLog("constructing cache", err, nil)
		os.Exit(1)
	}

	websearch := sources.NewWebSearchAdapter(
		cfg.Providers["web_search"].Endpoint, os.Getenv("WEB_SEARCH_API_KEY"), 0.01, m)
	scholarly := sources.NewScholarlyAdapter(
		cfg.Providers["scholarly"].Endpoint, os.Getenv("SCHOLARLY_API_KEY"), m, cfg.Thresholds.For("scholar"))
	academic := sources.NewAcademicAdapter(cfg.Providers["arxiv"].Endpoint, m, cfg.Thresholds.For("arxiv"))
	biomed := sources.NewBiomedAdapter(
		cfg.Providers["pubmed"].Endpoint, cfg.Providers["pubmed"].Endpoint, m, cfg.Thresholds.For("pubmed"))
	news := sources.NewNewsRSSAdapter(splitCSV(os.Getenv("RSS_FEED_URLS")), 168, m, cfg.Thresholds.For("other"))
	llmIntel := sources.NewLLMIntelligenceAdapter(router, m, 0.02)

	websearch.SetCache(durableCache, cfg.Cache.TTL["web_search"])
	scholarly.SetCache(durableCache, cfg.Cache.TTL["scholar"])
	academic.SetCache(durableCache, cfg.Cache.TTL["arxiv"])
	biomed.SetCache(durableCache, cfg.Cache.TTL["pubmed"])
	news.SetCache(durableCache, cfg.Cache.TTL["news_rss"])
	router.SetCache(durableCache, cfg.Cache.TTL["llm_intelligence"])

	bfEngine := backfill.New(router, websearch, m, clk)

	sup := supervisor.New(history, clk, time.Hour)

	orch := orchestrator.New(orchestrator.Deps{
		Config:         cfg,
		Gateway:        gateway,
		VectorIndex:    vindex,
		Supervisor:     sup,
		Mediator:       m,
		Router:         router,
		Academic:       academic,
		Biomed:         biomed,
		News:           news,
		WebSearch:      websearch,
		Scholarly:      scholarly,
		LLMIntel:       llmIntel,
		BackfillEngine: bfEngine,
		Clock:          clk,
	})

	if *once {
		result := orch.RunCycle(ctx)
		printResult(result)
		return
	}

	sched := scheduler.New(scheduler.Settings{
		Interval: cfg.Scheduler.Interval,
		Enabled:  cfg.Scheduler.Enabled,
	}, func(cycleCtx context.Context) {
		result := orch.RunCycle(cycleCtx)
		printResult(result)
	})

	svc := control.NewService(orch, sched, durableCache, bfEngine, community, 20)
	_ = svc // built for an embedding caller to attach to; nothing else in this binary calls it

	if err := sched.Start(ctx); err != nil {
		log.ErrorLog("starting scheduler", err, nil)
		os.Exit(1)
	}
	log.Info("collector scheduler started", map[string]interface{}{"interval": cfg.Scheduler.Interval.String()})

	<-ctx.Done()
	sched.Stop()
	log.Info("collector shutting down", nil)
}

func loadConfig() (*config.Registry, error) {
	if path := os.Getenv("COLLECTOR_CONFIG"); path != "" {
		return config.Load(path)
	}
	return config.Defaults(), nil
}

func buildRouter(cfg *config.Registry) (*llm.Registry, *llm.Router) {
	registry := llm.NewRegistry()

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		settings := cfg.Providers["anthropic"]
		registry.Register(anthropic.NewProvider(nil, anthropic.Config{
			APIKey: key, BaseURL: settings.Endpoint, Model: firstNonEmpty(settings.Model, "claude-3-5-sonnet-20241022"),
			MaxTokens: 2048,
		}))
	}
	if endpoint := os.Getenv("AZURE_OPENAI_ENDPOINT"); endpoint != "" {
		settings := cfg.Providers["azure"]
		if p, err := azure.NewProvider(azure.Config{
			Endpoint: endpoint, Deployment: settings.Model, APIVersion: "2024-06-01",
			APIKey: os.Getenv("AZURE_OPENAI_API_KEY"), MaxTokens: 2048,
		}); err == nil {
			registry.Register(p)
		}
	}
	if region := os.Getenv("BEDROCK_REGION"); region != "" {
		if awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region)); err == nil {
			registry.Register(bedrock.NewProvider(bedrockruntime.NewFromConfig(awsCfg), bedrock.Config{
				ModelID:   firstNonEmpty(cfg.Providers["bedrock"].Model, "anthropic.claude-3-5-sonnet-20241022-v2:0"),
				MaxTokens: 2048,
			}))
		}
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		settings := cfg.Providers["openai"]
		registry.Register(openai.NewProvider(openai.Config{
			APIKey: key, BaseURL: settings.Endpoint, Model: settings.Model, MaxTokens: 2048,
		}))
	}

	return registry, llm.NewRouter(registry, llm.WithPreferenceOrder("anthropic", "azure", "bedrock", "openai"))
}

// embedderProvider is the subset of llm.Provider-adjacent providers that can
// also produce embeddings; only the openai provider implements Embed today.
type embedderProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

func buildVectorIndex(ctx context.Context, registry *llm.Registry, log *logger.Logger) *vectorindex.Index {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		log.Info("MONGODB_URI unset: running without a vector index (fuzzy-title dedup stage disabled)", nil)
		return nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		log.ErrorLog("connecting to mongodb", err, nil)
		return nil
	}

	p, err := registry.Get("openai")
	if err != nil {
		log.Info("no openai provider registered: running without a vector index", nil)
		return nil
	}
	embedder, ok := p.(embedderProvider)
	if !ok {
		log.Info("registered llm providers cannot embed: running without a vector index", nil)
		return nil
	}

	return vectorindex.New(client, embedder, vectorindex.Config{
		Database: "collector", Collection: "embeddings", IndexName: "title_vector_index",
	})
}

func printResult(result orchestrator.CollectionCycleResult) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
