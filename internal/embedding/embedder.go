// Package embedding provides the embedding oracle interface, an
// OpenAI-compatible HTTP client, a deterministic mock, and an LRU cache.
package embedding

import (
	"context"
	"errors"
)

// ErrOracle marks embedding oracle failures. Callers decide whether to retry
// or skip the affected item.
var ErrOracle = errors.New("embedding oracle error")

// Embedder produces vector embeddings for a batch of texts. Input and output
// are positionally aligned 1:1; an empty input returns an empty output
// without error.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
