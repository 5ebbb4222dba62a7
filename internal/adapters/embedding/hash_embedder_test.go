package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careatlas/queryengine/internal/domain/providers"
)

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder("test")
	ctx := context.Background()

	a, err := e.Embed(ctx, "cardiology hospital in Accra")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "cardiology hospital in Accra")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, providers.EmbeddingDim)
}

func TestHashEmbedder_UnitLength(t *testing.T) {
	e := NewHashEmbedder("test")
	vec, err := e.Embed(context.Background(), "maternity clinic with dialysis equipment")
	require.NoError(t, err)

	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSquares), 1e-6)
}

func TestHashEmbedder_SimilarTextsAreCloser(t *testing.T) {
	e := NewHashEmbedder("test")
	ctx := context.Background()

	base, _ := e.Embed(ctx, "cardiology hospital in Accra with dialysis")
	similar, _ := e.Embed(ctx, "cardiology hospital in Accra with dialysis unit")
	different, _ := e.Embed(ctx, "pharmacy in Tamale selling malaria drugs")

	assert.Greater(t, cosine(base, similar), cosine(base, different))
}

func TestHashEmbedder_EmptyTextIsZeroVector(t *testing.T) {
	e := NewHashEmbedder("test")
	vec, err := e.Embed(context.Background(), "")
	require.NoError(t, err)
	for _, v := range vec {
		assert.Equal(t, float32(0), v)
	}
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
