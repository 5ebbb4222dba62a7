// Command queryengine runs a single natural-language query against the
// Ghana medical facility corpus and prints the structured JSON response.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/careatlas/queryengine/internal/adapters/cache"
	"github.com/careatlas/queryengine/internal/adapters/embedding"
	"github.com/careatlas/queryengine/internal/adapters/llm"
	"github.com/careatlas/queryengine/internal/adapters/vectorindex"
	"github.com/careatlas/queryengine/internal/application/services"
	"github.com/careatlas/queryengine/internal/domain/providers"
	"github.com/careatlas/queryengine/internal/infrastructure/clients/openai"
	"github.com/careatlas/queryengine/internal/infrastructure/clients/redis"
	"github.com/careatlas/queryengine/internal/infrastructure/clients/typesense"
	"github.com/careatlas/queryengine/internal/infrastructure/observability"
	"github.com/careatlas/queryengine/pkg/config"
)

func main() {
	var query string
	flag.StringVar(&query, "query", "", "natural-language query to run (reads remaining args if omitted)")
	flag.Parse()
	if query == "" {
		query = strings.Join(flag.Args(), " ")
	}
	if strings.TrimSpace(query) == "" {
		log.Fatal("usage: queryengine -query \"how many hospitals offer cardiology\"")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	observability.InitLogger(cfg.OTEL.ServiceName, "production")

	ctx := context.Background()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Printf("failed to set up OpenTelemetry: %v", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					log.Printf("error shutting down OpenTelemetry: %v", err)
				}
			}()
		}
	}

	orch, err := buildOrchestrator(ctx, cfg)
	if err != nil {
		log.Fatalf("build orchestrator: %v", err)
	}

	response := orch.Run(ctx, query)
	encoded, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		log.Fatalf("encode response: %v", err)
	}
	fmt.Println(string(encoded))
}

func buildOrchestrator(ctx context.Context, cfg *config.Config) (*services.Orchestrator, error) {
	loader := corpusLoader(cfg)
	loaded, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	corpus := services.NewCorpusStore(loaded)
	geocoder := services.NewGeocoder()
	extractors := services.NewExtractors(geocoder)
	spatial := services.NewSpatialIndex(loaded)

	embedder := embedding.NewHashEmbedder("hash-embedder-v1")
	cacheProvider, err := buildCacheProvider(cfg)
	if err != nil {
		return nil, err
	}
	index, err := buildVectorIndex(ctx, cfg, metrics, cacheProvider)
	if err != nil {
		return nil, err
	}

	var llmClient providers.LLM
	if cfg.LLM.APIKey != "" {
		client := openai.NewClient(&cfg.LLM)
		llmClient = llm.NewOpenAIAdapter(client)
	}

	classifier, err := services.NewIntentClassifier(ctx, embedder, llmClient, cacheProvider)
	if err != nil {
		return nil, fmt.Errorf("build intent classifier: %w", err)
	}

	searcher := services.NewSemanticSearcher(embedder, index, corpus, extractors)
	analyst := services.NewDataAnalyst(corpus, extractors)
	reasoner := services.NewMedicalReasoner(corpus)
	geo := services.NewGeospatialAnalyst(corpus, spatial, geocoder)
	planner := services.NewPlanner(spatial, geocoder)

	return services.NewOrchestrator(classifier, searcher, analyst, reasoner, geo, planner, extractors, geocoder, corpus, llmClient, metrics), nil
}

func corpusLoader(cfg *config.Config) *services.JSONSnapshotLoader {
	return services.NewJSONSnapshotLoader(cfg.Corpus.SnapshotPath)
}

// buildCacheProvider returns a Redis-backed cache provider when configured,
// or nil, which every cache-consuming component (the vector index decorator,
// the intent classifier's LLM fallback) treats as caching disabled.
func buildCacheProvider(cfg *config.Config) (providers.CacheProvider, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return cache.NewRedisAdapter(redisClient), nil
}

// buildVectorIndex wires the in-memory brute-force index by default, or a
// Typesense-backed index (optionally wrapped with a Redis-backed cache
// decorator) when the environment configures those services.
func buildVectorIndex(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, cacheProvider providers.CacheProvider) (providers.VectorIndex, error) {
	if cfg.VectorIndex.URL == "" {
		return vectorindex.NewMemoryIndex(), nil
	}

	tsClient, err := typesense.NewClient(&cfg.VectorIndex)
	if err != nil {
		return nil, fmt.Errorf("connect to typesense: %w", err)
	}
	tsIndex := vectorindex.NewTypesenseIndex(tsClient)
	if err := tsIndex.EnsureCollections(ctx); err != nil {
		return nil, fmt.Errorf("ensure typesense collections: %w", err)
	}

	var index providers.VectorIndex = tsIndex
	if cacheProvider != nil {
		index = vectorindex.NewCachedIndex(tsIndex, cacheProvider, metrics)
	}
	return index, nil
}
