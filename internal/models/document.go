// Package models defines core data structures for organisations, documents,
// jobs, FAQs, and search results.
package models

import "time"

// Source types for ingested documents.
const (
	SourceTypeUpload = "upload"
	SourceTypeHTML   = "html"
	SourceTypeCrawl  = "crawl"
)

// Organisation is the tenant boundary. Every document, chunk, job, and FAQ
// belongs to exactly one organisation.
type Organisation struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	RootURL   string    `json:"root_url" db:"root_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Document is a unit of ingested knowledge owned by an organisation.
type Document struct {
	ID             string                 `json:"id" db:"id"`
	OrganisationID string                 `json:"organisation_id" db:"organisation_id"`
	SourceType     string                 `json:"source_type" db:"source_type"`
	SourceURL      string                 `json:"source_url,omitempty" db:"source_url"`
	Content        string                 `json:"content" db:"content"`
	Metadata       map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	CreatedAt      time.Time              `json:"created_at" db:"created_at"`
}

// DocumentChunk is a slice of a document's text plus its embedding vector.
// ChunkID is the caller-supplied identifier, stable across re-indexing runs;
// ID is the physical row id.
type DocumentChunk struct {
	ID         string                 `json:"id" db:"id"`
	DocumentID string                 `json:"document_id" db:"document_id"`
	ChunkID    string                 `json:"chunk_id" db:"chunk_id"`
	Content    string                 `json:"content" db:"content"`
	Metadata   map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	Embedding  []float32              `json:"-" db:"-"`
	CreatedAt  time.Time              `json:"created_at" db:"created_at"`
}

// ChunkInput is one chunk to be indexed for a document.
type ChunkInput struct {
	ChunkID  string                 `json:"chunk_id"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// DocumentInput is the input for ingesting a document.
type DocumentInput struct {
	OrganisationID string                 `json:"organisation_id"`
	SourceType     string                 `json:"source_type"`
	SourceURL      string                 `json:"source_url,omitempty"`
	Content        string                 `json:"content"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}
