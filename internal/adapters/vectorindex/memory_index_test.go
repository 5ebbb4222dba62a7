package vectorindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careatlas/queryengine/internal/domain/providers"
)

func TestMemoryIndex_SearchOrdersByCosineSimilarity(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "exact", map[providers.NamedVector][]float32{
		providers.VectorFullDocument: {1, 0, 0},
	}, map[string]any{"address_city": "Accra"}))
	require.NoError(t, idx.Upsert(ctx, "orthogonal", map[providers.NamedVector][]float32{
		providers.VectorFullDocument: {0, 1, 0},
	}, map[string]any{"address_city": "Kumasi"}))

	hits, err := idx.Search(ctx, providers.VectorFullDocument, []float32{1, 0, 0}, providers.Filter{}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "exact", hits[0].ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestMemoryIndex_SearchAppliesFilter(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "accra-1", map[providers.NamedVector][]float32{
		providers.VectorFullDocument: {1, 0},
	}, map[string]any{"address_city": "Accra"}))
	require.NoError(t, idx.Upsert(ctx, "kumasi-1", map[providers.NamedVector][]float32{
		providers.VectorFullDocument: {1, 0},
	}, map[string]any{"address_city": "Kumasi"}))

	hits, err := idx.Search(ctx, providers.VectorFullDocument, []float32{1, 0}, providers.Filter{CityOr: []string{"Accra"}}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "accra-1", hits[0].ID)
}

func TestMemoryIndex_SearchLimitsToK(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, idx.Upsert(ctx, string(rune('a'+i)), map[providers.NamedVector][]float32{
			providers.VectorFullDocument: {1, 0},
		}, map[string]any{}))
	}

	hits, err := idx.Search(ctx, providers.VectorFullDocument, []float32{1, 0}, providers.Filter{}, 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}
