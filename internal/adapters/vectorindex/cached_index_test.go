package vectorindex

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careatlas/queryengine/internal/domain/providers"
)

type fakeCache struct {
	store map[string][]byte
}

func newFakeCache() *fakeCache { return &fakeCache{store: make(map[string][]byte)} }

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := c.store[key]
	if !ok {
		return nil, fmt.Errorf("key not found: %s", key)
	}
	return v, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	c.store[key] = value
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	delete(c.store, key)
	return nil
}

func (c *fakeCache) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := c.store[key]
	return ok, nil
}

type countingIndex struct {
	calls   int
	results []providers.ScoredID
}

func (c *countingIndex) Search(ctx context.Context, vector providers.NamedVector, queryVec []float32, filter providers.Filter, k int) ([]providers.ScoredID, error) {
	c.calls++
	return c.results, nil
}

func (c *countingIndex) Upsert(ctx context.Context, id string, vectors map[providers.NamedVector][]float32, payload map[string]any) error {
	return nil
}

func TestCachedIndex_SearchCachesSecondCall(t *testing.T) {
	inner := &countingIndex{results: []providers.ScoredID{{ID: "a", Score: 0.9}}}
	cache := newFakeCache()
	idx := NewCachedIndex(inner, cache, nil)
	ctx := context.Background()

	first, err := idx.Search(ctx, providers.VectorFullDocument, []float32{1, 0}, providers.Filter{}, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)

	second, err := idx.Search(ctx, providers.VectorFullDocument, []float32{1, 0}, providers.Filter{}, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls, "second identical search should be served from cache")
	assert.Equal(t, first, second)
}

func TestCachedIndex_DifferentFilterMisses(t *testing.T) {
	inner := &countingIndex{results: []providers.ScoredID{{ID: "a", Score: 0.9}}}
	cache := newFakeCache()
	idx := NewCachedIndex(inner, cache, nil)
	ctx := context.Background()

	_, err := idx.Search(ctx, providers.VectorFullDocument, []float32{1, 0}, providers.Filter{Region: "Greater Accra"}, 5)
	require.NoError(t, err)
	_, err = idx.Search(ctx, providers.VectorFullDocument, []float32{1, 0}, providers.Filter{Region: "Ashanti"}, 5)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}
