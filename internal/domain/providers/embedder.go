package providers

import "context"

// EmbeddingDim is the fixed dimensionality of every embedding vector produced
// and consumed by this system.
const EmbeddingDim = 384

// Embedder produces deterministic, unit-norm embedding vectors from text
// under a single fixed model identifier. Implementations must be
// deterministic: the same text always yields the same vector.
type Embedder interface {
	// Embed returns a unit-norm 384-dim vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds many texts in one call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// ModelID identifies the embedding model, recorded alongside the corpus
	// so a reload can detect a stale index.
	ModelID() string
}
