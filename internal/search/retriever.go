// Package search implements brute-force cosine retrieval over an
// organisation's chunks. At current data scale a linear scan is fast enough;
// a vector index can replace the scan behind the same interface later.
package search

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/brendanmarry/withwilma-sub001/internal/embedding"
	"github.com/brendanmarry/withwilma-sub001/internal/models"
	"github.com/brendanmarry/withwilma-sub001/internal/storage"
	"github.com/brendanmarry/withwilma-sub001/internal/vector"
)

// Retriever embeds a query and scores all of one organisation's chunks
// against it. Read-only and safe for concurrent use.
type Retriever struct {
	store       storage.Storage
	embedder    embedding.Embedder
	defaultTopK int
	maxTopK     int
	logger      *zap.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Retriever) {
		r.logger = logger
	}
}

// NewRetriever creates a Retriever. defaultTopK is used when a caller passes
// topK <= 0; maxTopK caps any request.
func NewRetriever(store storage.Storage, embedder embedding.Embedder, defaultTopK, maxTopK int, opts ...Option) *Retriever {
	r := &Retriever{
		store:       store,
		embedder:    embedder,
		defaultTopK: defaultTopK,
		maxTopK:     maxTopK,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Search embeds query, scores every chunk of the organisation by cosine
// similarity, and returns the topK best. Chunks with malformed or
// zero-length embeddings score vector.MismatchScore and sort last instead
// of failing the request. Ties keep storage order, so results are stable.
func (r *Retriever) Search(ctx context.Context, orgID, query string, topK int) ([]models.SearchResult, error) {
	if topK <= 0 {
		topK = r.defaultTopK
	}
	if r.maxTopK > 0 && topK > r.maxTopK {
		topK = r.maxTopK
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("embedding oracle returned %d vectors for one query", len(embeddings))
	}
	queryVec := embeddings[0]

	chunks, err := r.store.ListChunksByOrganisation(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("loading chunks for organisation %s: %w", orgID, err)
	}

	results := make([]models.SearchResult, 0, len(chunks))
	for _, cs := range chunks {
		results = append(results, models.SearchResult{
			ChunkID:  cs.Chunk.ChunkID,
			Score:    vector.Cosine(queryVec, cs.Chunk.Embedding),
			Content:  cs.Chunk.Content,
			Metadata: resultMetadata(cs),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}

	r.logger.Debug("retrieval complete",
		zap.String("organisation", orgID),
		zap.Int("scored", len(chunks)),
		zap.Int("returned", len(results)))
	return results, nil
}

// resultMetadata bundles the chunk's own metadata with its parent document
// id, source type, and text, so answer-generation callers never need a
// second lookup.
func resultMetadata(cs *storage.ChunkWithSource) map[string]interface{} {
	meta := make(map[string]interface{}, len(cs.Chunk.Metadata)+3)
	for k, v := range cs.Chunk.Metadata {
		meta[k] = v
	}
	meta["document_id"] = cs.Chunk.DocumentID
	meta["source_type"] = cs.SourceType
	meta["content"] = cs.Chunk.Content
	return meta
}
