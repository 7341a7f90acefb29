package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Caching decorators wrapping another EmbeddingService
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	// Blank or whitespace-only text yields a zero vector, not an error.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, preserving input
	// order. Blank entries yield zero vectors in their slots. Oversized
	// batches are split internally to respect provider limits.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 1536).
	// This is determined by the model and must match the store configuration.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight
	// test request. Used at startup before committing to an ingestion run.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
