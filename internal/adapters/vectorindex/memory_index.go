package vectorindex

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/careatlas/queryengine/internal/domain/providers"
)

// MemoryIndex is a brute-force cosine-similarity vector index used when no
// external vector search backend is configured. It keeps every embedding
// and its payload in process memory, which is adequate for the corpus
// sizes this engine targets.
type MemoryIndex struct {
	mu       sync.RWMutex
	vectors  map[providers.NamedVector]map[string][]float32
	payloads map[string]map[string]any
}

// NewMemoryIndex creates an empty in-memory vector index.
func NewMemoryIndex() *MemoryIndex {
	idx := &MemoryIndex{
		vectors:  make(map[providers.NamedVector]map[string][]float32),
		payloads: make(map[string]map[string]any),
	}
	for _, v := range providers.AllNamedVectors {
		idx.vectors[v] = make(map[string][]float32)
	}
	return idx
}

// Upsert stores the given vectors and payload under id.
func (idx *MemoryIndex) Upsert(ctx context.Context, id string, vectors map[providers.NamedVector][]float32, payload map[string]any) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for name, vec := range vectors {
		if idx.vectors[name] == nil {
			idx.vectors[name] = make(map[string][]float32)
		}
		idx.vectors[name][id] = vec
	}
	idx.payloads[id] = payload
	return nil
}

// Search returns the k highest cosine-similarity matches for queryVec
// under the named vector, restricted to ids whose payload passes filter.
func (idx *MemoryIndex) Search(ctx context.Context, vector providers.NamedVector, queryVec []float32, filter providers.Filter, k int) ([]providers.ScoredID, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	space := idx.vectors[vector]
	scored := make([]providers.ScoredID, 0, len(space))
	for id, vec := range space {
		if !filter.IsEmpty() && !idx.matches(id, filter) {
			continue
		}
		scored = append(scored, providers.ScoredID{ID: id, Score: cosineSimilarity(queryVec, vec)})
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func (idx *MemoryIndex) matches(id string, filter providers.Filter) bool {
	payload := idx.payloads[id]
	if payload == nil {
		return false
	}
	if len(filter.CityOr) > 0 {
		city, _ := payload["address_city"].(string)
		if !containsFold(filter.CityOr, city) {
			return false
		}
	}
	if filter.Region != "" {
		region, _ := payload["address_stateOrRegion"].(string)
		if !strings.EqualFold(region, filter.Region) {
			return false
		}
	}
	if filter.FacilityType != "" {
		ft, _ := payload["facilityTypeId"].(string)
		if !strings.EqualFold(ft, filter.FacilityType) {
			return false
		}
	}
	if filter.OrganizationType != "" {
		ot, _ := payload["organization_type"].(string)
		if !strings.EqualFold(ot, filter.OrganizationType) {
			return false
		}
	}
	if len(filter.SpecialtiesAnyOf) > 0 {
		specialties, _ := payload["specialties"].([]string)
		if !anyMatchFold(filter.SpecialtiesAnyOf, specialties) {
			return false
		}
	}
	return true
}

func containsFold(list []string, needle string) bool {
	for _, item := range list {
		if strings.EqualFold(item, needle) {
			return true
		}
	}
	return false
}

func anyMatchFold(wanted, have []string) bool {
	for _, w := range wanted {
		if containsFold(have, w) {
			return true
		}
	}
	return false
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
