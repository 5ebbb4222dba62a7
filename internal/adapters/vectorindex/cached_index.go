package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/careatlas/queryengine/internal/domain/providers"
	"github.com/careatlas/queryengine/internal/infrastructure/observability"
)

// searchResultTTLSeconds bounds how long a fused search result set is
// trusted before the underlying index is queried again.
const searchResultTTLSeconds = 300

// CachedIndex decorates a providers.VectorIndex with a read-through cache
// over Search results, keyed by vector, query, filter and k. Upsert always
// passes through since cache entries are only ever invalidated by TTL.
type CachedIndex struct {
	inner   providers.VectorIndex
	cache   providers.CacheProvider
	metrics *observability.Metrics
}

// NewCachedIndex wraps inner with a cache-aside layer.
func NewCachedIndex(inner providers.VectorIndex, cache providers.CacheProvider, metrics *observability.Metrics) *CachedIndex {
	return &CachedIndex{inner: inner, cache: cache, metrics: metrics}
}

func (c *CachedIndex) Search(ctx context.Context, vector providers.NamedVector, queryVec []float32, filter providers.Filter, k int) ([]providers.ScoredID, error) {
	key := cacheKey(vector, queryVec, filter, k)

	if raw, err := c.cache.Get(ctx, key); err == nil {
		var cached []providers.ScoredID
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			observability.RecordCacheHit(ctx, c.metrics, key)
			return cached, nil
		}
	}
	observability.RecordCacheMiss(ctx, c.metrics, key)

	results, err := c.inner.Search(ctx, vector, queryVec, filter, k)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(results); err == nil {
		_ = c.cache.Set(ctx, key, raw, searchResultTTLSeconds)
	}
	return results, nil
}

func (c *CachedIndex) Upsert(ctx context.Context, id string, vectors map[providers.NamedVector][]float32, payload map[string]any) error {
	return c.inner.Upsert(ctx, id, vectors, payload)
}

func cacheKey(vector providers.NamedVector, queryVec []float32, filter providers.Filter, k int) string {
	digest := fmt.Sprintf("%v|%v|%v|%v|%v|%v|%d", vector, roundedVector(queryVec), filter.CityOr, filter.Region,
		filter.FacilityType, filter.OrganizationType, k)
	return "vectorindex:search:" + hashString(digest)
}

func roundedVector(vec []float32) []float32 {
	rounded := make([]float32, len(vec))
	for i, f := range vec {
		rounded[i] = float32(int(f*1000)) / 1000
	}
	return rounded
}

// hashString produces a short, stable, non-cryptographic digest suitable
// for cache keys. FNV-1a is used because it needs no external dependency
// and the corpus does not import a hashing library for this purpose.
func hashString(s string) string {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return fmt.Sprintf("%016x", h)
}
