// Package vectorindex adapts vector-search backends to the domain's
// VectorIndex contract.
package vectorindex

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/careatlas/queryengine/internal/domain/providers"
	tsclient "github.com/careatlas/queryengine/internal/infrastructure/clients/typesense"
	"github.com/careatlas/queryengine/pkg/retry"
)

// requestRetryConfig bounds per-call retries well inside the orchestrator's
// 10s plan deadline, unlike retry.DefaultConfig's 60s budget meant for the
// one-time startup health check.
var requestRetryConfig = retry.Config{
	MaxAttempts:     3,
	InitialDelay:    50 * time.Millisecond,
	MaxDelay:        500 * time.Millisecond,
	BackoffFactor:   2.0,
	MaxTotalTimeout: 3 * time.Second,
}

// TypesenseIndex implements providers.VectorIndex against one Typesense
// collection per named vector, each holding a float[] embedding field.
type TypesenseIndex struct {
	client *tsclient.Client
}

// NewTypesenseIndex wraps a Typesense client as a providers.VectorIndex.
func NewTypesenseIndex(client *tsclient.Client) *TypesenseIndex {
	return &TypesenseIndex{client: client}
}

// EnsureCollections creates the backing collection for every named vector
// if it does not already exist.
func (i *TypesenseIndex) EnsureCollections(ctx context.Context) error {
	for _, v := range providers.AllNamedVectors {
		if err := i.client.EnsureVectorCollection(ctx, tsclient.CollectionFor(string(v)), providers.EmbeddingDim); err != nil {
			return fmt.Errorf("ensure collection for %s: %w", v, err)
		}
	}
	return nil
}

// Search runs a k-nearest-neighbor query against the named vector's
// collection, applying filter as a Typesense filter_by expression.
func (i *TypesenseIndex) Search(ctx context.Context, vector providers.NamedVector, queryVec []float32, filter providers.Filter, k int) ([]providers.ScoredID, error) {
	collection := tsclient.CollectionFor(string(vector))

	vectorQuery := fmt.Sprintf("embedding:(%s, k:%d)", formatVector(queryVec), k)

	params := &api.SearchCollectionParams{
		Q:           pointer.String("*"),
		QueryBy:     pointer.String("id"),
		VectorQuery: pointer.String(vectorQuery),
		PerPage:     pointer.Int(k),
	}
	if expr := buildFilterExpression(filter); expr != "" {
		params.FilterBy = pointer.String(expr)
	}

	result, err := retry.DoValue(ctx, requestRetryConfig, func() (*api.SearchResult, error) {
		return i.client.Client().Collection(collection).Documents().Search(ctx, params)
	})
	if err != nil {
		return nil, fmt.Errorf("vector search on %s failed: %w", collection, err)
	}

	hits := []providers.ScoredID{}
	if result.Hits == nil {
		return hits, nil
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		doc := *hit.Document
		id, _ := doc["id"].(string)
		if id == "" {
			continue
		}
		score := 0.0
		if hit.VectorDistance != nil {
			// Typesense reports distance; convert to a similarity-like score
			// so higher is always better across the fusion pipeline.
			score = 1.0 - float64(*hit.VectorDistance)
		}
		hits = append(hits, providers.ScoredID{ID: id, Score: score})
	}
	return hits, nil
}

// Upsert writes one document per named vector present in vectors, sharing
// id and payload across every collection.
func (i *TypesenseIndex) Upsert(ctx context.Context, id string, vectors map[providers.NamedVector][]float32, payload map[string]any) error {
	for name, vec := range vectors {
		collection := tsclient.CollectionFor(string(name))
		doc := map[string]any{"id": id, "embedding": vec}
		for k, v := range payload {
			doc[k] = v
		}
		err := retry.Do(ctx, requestRetryConfig, func() error {
			_, upsertErr := i.client.Client().Collection(collection).Documents().Upsert(ctx, doc)
			return upsertErr
		})
		if err != nil {
			return fmt.Errorf("upsert into %s failed: %w", collection, err)
		}
	}
	return nil
}

func formatVector(vec []float32) string {
	parts := make([]string, len(vec))
	for i, f := range vec {
		parts[i] = strconv.FormatFloat(float64(f), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func buildFilterExpression(filter providers.Filter) string {
	if filter.IsEmpty() {
		return ""
	}
	clauses := []string{}
	if len(filter.CityOr) > 0 {
		clauses = append(clauses, fmt.Sprintf("address_city:[%s]", strings.Join(filter.CityOr, ",")))
	}
	if filter.Region != "" {
		clauses = append(clauses, fmt.Sprintf("address_stateOrRegion:=%s", filter.Region))
	}
	if filter.FacilityType != "" {
		clauses = append(clauses, fmt.Sprintf("facilityTypeId:=%s", filter.FacilityType))
	}
	if filter.OrganizationType != "" {
		clauses = append(clauses, fmt.Sprintf("organization_type:=%s", filter.OrganizationType))
	}
	if len(filter.SpecialtiesAnyOf) > 0 {
		clauses = append(clauses, fmt.Sprintf("specialties:[%s]", strings.Join(filter.SpecialtiesAnyOf, ",")))
	}
	return strings.Join(clauses, " && ")
}
