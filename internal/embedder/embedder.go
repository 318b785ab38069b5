package embedder

import "context"

// Embedder turns text blocks into dense vectors. Implementations must be
// safe for concurrent use and must return one vector per input, in order.
type Embedder interface {
	// Embed embeds a batch of texts. The returned slice has one vector of
	// Dim() values per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dim is the dimensionality of produced vectors.
	Dim() int

	// Name identifies the embedder (model name) for logging and for keying
	// caches: two embedders with different names never share cache entries.
	Name() string
}
