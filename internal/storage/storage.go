// Package storage defines the persistence interface for organisations,
// documents, chunks, jobs, and FAQs.
package storage

import (
	"context"

	"github.com/brendanmarry/withwilma-sub001/internal/models"
)

// ChunkWithSource is a chunk joined with its parent document's source type,
// so retrieval callers never need a second lookup.
type ChunkWithSource struct {
	Chunk      *models.DocumentChunk
	SourceType string
}

// Storage defines persistence operations for the knowledge engine.
type Storage interface {
	// Organisation operations
	CreateOrganisation(ctx context.Context, org *models.Organisation) error
	GetOrganisation(ctx context.Context, id string) (*models.Organisation, error)
	ListOrganisations(ctx context.Context) ([]*models.Organisation, error)

	// Document operations. Listing is ordered by creation time ascending with
	// a stable tie-break, which the deduplicator's earliest-wins logic relies on.
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocumentsByOrganisation(ctx context.Context, orgID string) ([]*models.Document, error)
	DeleteDocuments(ctx context.Context, ids []string) error
	CountDocuments(ctx context.Context) (int64, error)

	// Chunk operations. ReplaceChunks deletes all existing chunks for the
	// document and inserts the new set in a single transaction.
	ReplaceChunks(ctx context.Context, documentID string, chunks []*models.DocumentChunk) error
	GetChunksByDocumentID(ctx context.Context, documentID string) ([]*models.DocumentChunk, error)
	ListChunksByOrganisation(ctx context.Context, orgID string) ([]*ChunkWithSource, error)
	DeleteChunks(ctx context.Context, ids []string) error
	CountChunksByDocumentID(ctx context.Context, documentID string) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	// Job operations. UpsertJob matches on (organisation, title, location) and
	// sets job.ID to the surviving row's id.
	UpsertJob(ctx context.Context, job *models.Job) error
	ListJobsByOrganisation(ctx context.Context, orgID string) ([]*models.Job, error)
	CloseJobsExcept(ctx context.Context, orgID string, keepIDs []string) (int64, error)

	// FAQ operations. Listing is ordered by creation time ascending.
	CreateFAQ(ctx context.Context, faq *models.FAQ) error
	ListFAQsByOrganisation(ctx context.Context, orgID string) ([]*models.FAQ, error)
	UpdateFAQ(ctx context.Context, faq *models.FAQ) error
	DeleteFAQs(ctx context.Context, ids []string) error

	Close() error
}
