package indexer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brendanmarry/withwilma-sub001/internal/embedding"
	"github.com/brendanmarry/withwilma-sub001/internal/models"
	"github.com/brendanmarry/withwilma-sub001/internal/storage"
)

// Indexer embeds chunk batches and persists them with replace semantics:
// a document's chunk set always reflects its last indexing run in full, or
// is empty. Stale chunks never survive a failed run.
type Indexer struct {
	store    storage.Storage
	embedder embedding.Embedder
	chunker  *Chunker
	logger   *zap.Logger
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(idx *Indexer) {
		idx.logger = logger
	}
}

// NewIndexer creates an indexer. chunkSize and chunkOverlap are in words and
// apply to IngestDocument's automatic chunking.
func NewIndexer(store storage.Storage, embedder embedding.Embedder, chunkSize, chunkOverlap int, opts ...Option) *Indexer {
	idx := &Indexer{
		store:    store,
		embedder: embedder,
		chunker:  NewChunker(chunkSize, chunkOverlap),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Index embeds the chunk batch in one oracle call and replaces the
// document's persisted chunks with the result. Idempotent per document.
//
// If the oracle fails, the document is left with zero chunks and the error
// propagates: the caller sees the failure, and a reader never sees a stale
// chunk set. Zero embeddings for zero inputs is not an error; the document
// simply ends up with no chunks.
func (idx *Indexer) Index(ctx context.Context, documentID string, chunks []models.ChunkInput) error {
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}

	embeddings, err := idx.embedder.Embed(ctx, texts)
	if err != nil {
		if replaceErr := idx.store.ReplaceChunks(ctx, documentID, nil); replaceErr != nil {
			idx.logger.Error("clearing chunks after embed failure",
				zap.String("document", documentID), zap.Error(replaceErr))
		}
		return fmt.Errorf("embedding %d chunks for document %s: %w", len(chunks), documentID, err)
	}
	if len(embeddings) != len(chunks) {
		if replaceErr := idx.store.ReplaceChunks(ctx, documentID, nil); replaceErr != nil {
			idx.logger.Error("clearing chunks after embed mismatch",
				zap.String("document", documentID), zap.Error(replaceErr))
		}
		return fmt.Errorf("embedding oracle returned %d vectors for %d chunks", len(embeddings), len(chunks))
	}

	rows := make([]*models.DocumentChunk, len(chunks))
	for i, ch := range chunks {
		rows[i] = &models.DocumentChunk{
			ID:         uuid.New().String(),
			DocumentID: documentID,
			ChunkID:    ch.ChunkID,
			Content:    ch.Content,
			Metadata:   ch.Metadata,
			Embedding:  embeddings[i],
		}
	}
	if err := idx.store.ReplaceChunks(ctx, documentID, rows); err != nil {
		return fmt.Errorf("replacing chunks for document %s: %w", documentID, err)
	}

	idx.logger.Debug("indexed document",
		zap.String("document", documentID),
		zap.Int("chunks", len(rows)))
	return nil
}

// IngestDocument stores a new document, chunks its content, and indexes the
// chunks. Returns the created document.
func (idx *Indexer) IngestDocument(ctx context.Context, input *models.DocumentInput) (*models.Document, error) {
	doc := &models.Document{
		ID:             uuid.New().String(),
		OrganisationID: input.OrganisationID,
		SourceType:     input.SourceType,
		SourceURL:      input.SourceURL,
		Content:        Preprocess(input.Content),
		Metadata:       input.Metadata,
	}
	if err := idx.store.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("storing document: %w", err)
	}
	if err := idx.Index(ctx, doc.ID, idx.chunker.Chunk(doc.ID, doc.Content)); err != nil {
		return nil, err
	}
	return doc, nil
}

// Reindex re-chunks and re-embeds an existing document's content.
func (idx *Indexer) Reindex(ctx context.Context, documentID string) error {
	doc, err := idx.store.GetDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("loading document %s: %w", documentID, err)
	}
	return idx.Index(ctx, doc.ID, idx.chunker.Chunk(doc.ID, doc.Content))
}
