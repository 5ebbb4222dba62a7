// Command indexer loads the facility corpus snapshot, embeds every
// facility's three named-vector documents, and upserts them into the
// configured vector index (Typesense if configured, otherwise an
// in-memory index is pointless to run standalone and this command exits).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/careatlas/queryengine/internal/adapters/embedding"
	"github.com/careatlas/queryengine/internal/adapters/vectorindex"
	"github.com/careatlas/queryengine/internal/application/services"
	"github.com/careatlas/queryengine/internal/domain/entities"
	"github.com/careatlas/queryengine/internal/domain/providers"
	"github.com/careatlas/queryengine/internal/infrastructure/clients/typesense"
	"github.com/careatlas/queryengine/internal/infrastructure/observability"
	"github.com/careatlas/queryengine/pkg/config"
)

func main() {
	var reset bool
	flag.BoolVar(&reset, "reset", false, "delete existing Typesense collections before reindexing")
	flag.Parse()

	observability.InitLogger("queryengine-indexer", "production")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, reset); err != nil {
		log.Fatalf("indexing failed: %v", err)
	}
}

func run(ctx context.Context, reset bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.VectorIndex.URL == "" {
		return fmt.Errorf("TYPESENSE_URL is required to run the indexer")
	}
	if cfg.Corpus.SnapshotPath == "" {
		return fmt.Errorf("CORPUS_SNAPSHOT_PATH is required to run the indexer")
	}

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName+"-indexer", cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
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

	loader := services.NewJSONSnapshotLoader(cfg.Corpus.SnapshotPath)
	facilities, err := loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	log.Printf("loaded %d facilities from %s", len(facilities), cfg.Corpus.SnapshotPath)

	tsClient, err := typesense.NewClient(&cfg.VectorIndex)
	if err != nil {
		return fmt.Errorf("connect to typesense: %w", err)
	}

	if reset {
		for _, v := range providers.AllNamedVectors {
			collection := typesense.CollectionFor(string(v))
			if _, err := tsClient.Client().Collection(collection).Delete(ctx); err != nil {
				log.Printf("warning: failed to delete collection %s: %v", collection, err)
			}
		}
	}

	index := vectorindex.NewTypesenseIndex(tsClient)
	if err := index.EnsureCollections(ctx); err != nil {
		return fmt.Errorf("ensure collections: %w", err)
	}

	embedder := embedding.NewHashEmbedder("hash-embedder-v1")

	for i, f := range facilities {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		vectors, err := embedFacility(ctx, embedder, f)
		if err != nil {
			log.Printf("warning: failed to embed facility %s: %v", f.ID, err)
			continue
		}

		payload := facilityPayload(f)
		if err := index.Upsert(ctx, f.ID, vectors, payload); err != nil {
			log.Printf("warning: failed to upsert facility %s: %v", f.ID, err)
			continue
		}

		if (i+1)%100 == 0 || i == len(facilities)-1 {
			log.Printf("indexed %d/%d facilities", i+1, len(facilities))
		}
	}

	log.Println("indexing complete")
	return nil
}

// embedFacility builds the three named-vector documents for a facility
// (full document, clinical detail, specialties context) and embeds each.
func embedFacility(ctx context.Context, embedder providers.Embedder, f *entities.Facility) (map[providers.NamedVector][]float32, error) {
	documents := map[providers.NamedVector]string{
		providers.VectorFullDocument:        fullDocumentText(f),
		providers.VectorClinicalDetail:      clinicalDetailText(f),
		providers.VectorSpecialtiesContext:  specialtiesContextText(f),
	}

	out := make(map[providers.NamedVector][]float32, len(documents))
	for vector, text := range documents {
		vec, err := embedder.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed %s: %w", vector, err)
		}
		out[vector] = vec
	}
	return out, nil
}

func fullDocumentText(f *entities.Facility) string {
	parts := []string{f.Name, string(f.FacilityType), f.OrganizationType, f.City, f.Region}
	for _, s := range f.Specialties {
		parts = append(parts, string(s))
	}
	return strings.Join(nonEmpty(parts), " | ")
}

func clinicalDetailText(f *entities.Facility) string {
	parts := append([]string{}, f.Procedures...)
	parts = append(parts, f.Equipment...)
	return strings.Join(nonEmpty(parts), " | ")
}

func specialtiesContextText(f *entities.Facility) string {
	parts := make([]string, 0, len(f.Specialties)+len(f.Capabilities))
	for _, s := range f.Specialties {
		parts = append(parts, string(s))
	}
	parts = append(parts, f.Capabilities...)
	return strings.Join(nonEmpty(parts), " | ")
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func facilityPayload(f *entities.Facility) map[string]any {
	payload := map[string]any{
		"address_stateOrRegion": f.Region,
		"facilityTypeId":        string(f.FacilityType),
		"organization_type":     f.OrganizationType,
		"address_city":          f.City,
	}
	return payload
}
