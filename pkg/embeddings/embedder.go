// Package embeddings defines the text embedding contract used by the memory
// engine. Adapters live in subpackages; embeddingutils picks one from config.
package embeddings

import "context"

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts each text into a vector embedding. On success the
	// result has one vector per input, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
