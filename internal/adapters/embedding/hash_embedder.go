// Package embedding provides Embedder implementations.
package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/careatlas/queryengine/internal/domain/providers"
)

// HashEmbedder is a deterministic, dependency-free stand-in for a sentence
// embedding model. No Go sentence-embedding library ships in this
// ecosystem's typical stack, so the core needs an Embedder that requires
// no network call and no native model runtime while still producing
// vectors with the locality property semantic search depends on: texts
// sharing more tokens land closer together under cosine similarity.
//
// Each token is hashed into one of EmbeddingDim buckets with FNV-1a and
// accumulates a signed weight (sign taken from a second hash of the same
// token, so hash collisions don't systematically cancel). The result is
// L2-normalized, matching the normalize_embeddings=True convention the
// reference embedding pipeline uses.
type HashEmbedder struct {
	modelID string
}

// NewHashEmbedder creates a HashEmbedder identified by modelID for
// provenance in logs and cached payloads.
func NewHashEmbedder(modelID string) *HashEmbedder {
	if modelID == "" {
		modelID = "hash-embedder-v1"
	}
	return &HashEmbedder{modelID: modelID}
}

func (e *HashEmbedder) ModelID() string {
	return e.modelID
}

// Embed produces a deterministic EmbeddingDim-length unit vector for text.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float64, providers.EmbeddingDim)
	tokens := tokenize(text)

	for _, tok := range tokens {
		bucket := bucketHash(tok) % uint32(providers.EmbeddingDim)
		sign := 1.0
		if signHash(tok)%2 == 0 {
			sign = -1.0
		}
		vec[bucket] += sign
	}

	normalize(vec)

	out := make([]float32, providers.EmbeddingDim)
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out, nil
}

// EmbedBatch embeds each text independently; there is no shared model
// state that would make batching cheaper than sequential calls here.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func tokenize(text string) []string {
	lower := strings.ToLower(text)
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
}

func bucketHash(tok string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(tok))
	return h.Sum32()
}

func signHash(tok string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte("sign:" + tok))
	return h.Sum32()
}

func normalize(vec []float64) {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += v * v
	}
	if sumSquares == 0 {
		return
	}
	norm := math.Sqrt(sumSquares)
	for i := range vec {
		vec[i] /= norm
	}
}
