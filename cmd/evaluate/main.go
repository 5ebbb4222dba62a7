// Command evaluate scores the semantic searcher's retrieval quality against
// a golden query set and prints aggregate Recall@10 / MRR@10 metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/careatlas/queryengine/internal/adapters/embedding"
	"github.com/careatlas/queryengine/internal/adapters/vectorindex"
	"github.com/careatlas/queryengine/internal/application/services"
	"github.com/careatlas/queryengine/internal/domain/providers"
	"github.com/careatlas/queryengine/internal/evaluation"
	"github.com/careatlas/queryengine/internal/infrastructure/clients/typesense"
	"github.com/careatlas/queryengine/internal/infrastructure/observability"
	"github.com/careatlas/queryengine/pkg/config"
)

func main() {
	var goldenPath string
	flag.StringVar(&goldenPath, "golden", "", "path to the golden query JSON file")
	flag.Parse()
	if goldenPath == "" {
		log.Fatal("usage: evaluate -golden testdata/golden_queries.json")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	observability.InitLogger("queryengine-evaluate", "production")

	ctx := context.Background()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName+"-evaluate", cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
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

	queries, err := evaluation.LoadGoldenQueries(goldenPath)
	if err != nil {
		log.Fatalf("load golden queries: %v", err)
	}
	if err := evaluation.ValidateGoldenQueries(queries); err != nil {
		log.Fatalf("invalid golden queries: %v", err)
	}

	searcher, err := buildSearcher(ctx, cfg)
	if err != nil {
		log.Fatalf("build searcher: %v", err)
	}

	summary, err := evaluation.NewRunner(searcher).Run(ctx, queries)
	if err != nil {
		log.Fatalf("run evaluation: %v", err)
	}

	fmt.Printf("queries=%d recall@10=%.3f mrr@10=%.3f avg_latency=%s queries_with_hits=%d\n",
		summary.TotalQueries, summary.AvgRecallAt10, summary.AvgMRRAt10, summary.AvgLatency, summary.QueriesWithHits)
	for intent, is := range summary.ByIntent {
		fmt.Printf("  %-20s count=%d recall@10=%.3f mrr@10=%.3f\n", intent, is.Count, is.AvgRecallAt10, is.AvgMRRAt10)
	}
}

func buildSearcher(ctx context.Context, cfg *config.Config) (*services.SemanticSearcher, error) {
	loader := services.NewJSONSnapshotLoader(cfg.Corpus.SnapshotPath)
	facilities, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}

	corpus := services.NewCorpusStore(facilities)
	geocoder := services.NewGeocoder()
	extractors := services.NewExtractors(geocoder)
	embedder := embedding.NewHashEmbedder("hash-embedder-v1")

	var index providers.VectorIndex
	if cfg.VectorIndex.URL == "" {
		index = vectorindex.NewMemoryIndex()
	} else {
		tsClient, err := typesense.NewClient(&cfg.VectorIndex)
		if err != nil {
			return nil, fmt.Errorf("connect to typesense: %w", err)
		}
		index = vectorindex.NewTypesenseIndex(tsClient)
	}

	return services.NewSemanticSearcher(embedder, index, corpus, extractors), nil
}
