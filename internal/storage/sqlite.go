// Package storage provides the SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/brendanmarry/withwilma-sub001/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and
// initializes the schema. Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS organisations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		root_url TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		organisation_id TEXT NOT NULL,
		source_type TEXT NOT NULL,
		source_url TEXT,
		content TEXT NOT NULL,
		metadata TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (organisation_id) REFERENCES organisations(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_documents_org_created ON documents(organisation_id, created_at);

	CREATE TABLE IF NOT EXISTS document_chunks (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		chunk_id TEXT NOT NULL,
		content TEXT NOT NULL,
		metadata TEXT,
		embedding BLOB,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON document_chunks(document_id);

	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		organisation_id TEXT NOT NULL,
		source_url TEXT,
		title TEXT NOT NULL,
		department TEXT,
		location TEXT NOT NULL DEFAULT '',
		employment_type TEXT,
		summary TEXT,
		responsibilities TEXT,
		requirements TEXT,
		nice_to_have TEXT,
		seniority_level TEXT,
		clean_text TEXT,
		status TEXT NOT NULL DEFAULT 'open',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (organisation_id) REFERENCES organisations(id) ON DELETE CASCADE,
		UNIQUE (organisation_id, title, location)
	);

	CREATE TABLE IF NOT EXISTS faqs (
		id TEXT PRIMARY KEY,
		organisation_id TEXT NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL DEFAULT '',
		approved INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (organisation_id) REFERENCES organisations(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_faqs_org_created ON faqs(organisation_id, created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateOrganisation inserts an organisation.
func (s *SQLiteStorage) CreateOrganisation(ctx context.Context, org *models.Organisation) error {
	org.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO organisations (id, name, root_url, created_at) VALUES (?, ?, ?, ?)`,
		org.ID, org.Name, org.RootURL, org.CreatedAt,
	)
	return err
}

// GetOrganisation returns an organisation by id.
func (s *SQLiteStorage) GetOrganisation(ctx context.Context, id string) (*models.Organisation, error) {
	var org models.Organisation
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, root_url, created_at FROM organisations WHERE id = ?`, id,
	).Scan(&org.ID, &org.Name, &org.RootURL, &org.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("organisation not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// ListOrganisations returns all organisations ordered by creation time.
func (s *SQLiteStorage) ListOrganisations(ctx context.Context) ([]*models.Organisation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, root_url, created_at FROM organisations ORDER BY created_at, rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []*models.Organisation
	for rows.Next() {
		var org models.Organisation
		if err := rows.Scan(&org.ID, &org.Name, &org.RootURL, &org.CreatedAt); err != nil {
			return nil, err
		}
		orgs = append(orgs, &org)
	}
	return orgs, rows.Err()
}

// CreateDocument inserts a document.
func (s *SQLiteStorage) CreateDocument(ctx context.Context, doc *models.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, organisation_id, source_type, source_url, content, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.OrganisationID, doc.SourceType, doc.SourceURL, doc.Content, string(metadataJSON), doc.CreatedAt,
	)
	return err
}

// GetDocument returns a document by id.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	var metadataJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, organisation_id, source_type, source_url, content, metadata, created_at
		 FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.OrganisationID, &doc.SourceType, &doc.SourceURL, &doc.Content, &metadataJSON, &doc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &doc, nil
}

// ListDocumentsByOrganisation returns an organisation's documents ordered by
// creation time ascending (rowid tie-break keeps the order stable).
func (s *SQLiteStorage) ListDocumentsByOrganisation(ctx context.Context, orgID string) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, organisation_id, source_type, source_url, content, metadata, created_at
		 FROM documents WHERE organisation_id = ? ORDER BY created_at, rowid`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		var doc models.Document
		var metadataJSON string
		if err := rows.Scan(&doc.ID, &doc.OrganisationID, &doc.SourceType, &doc.SourceURL, &doc.Content, &metadataJSON, &doc.CreatedAt); err != nil {
			return nil, err
		}
		if metadataJSON != "" {
			_ = json.Unmarshal([]byte(metadataJSON), &doc.Metadata)
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// DeleteDocuments removes documents by id; their chunks cascade-delete.
func (s *SQLiteStorage) DeleteDocuments(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `DELETE FROM documents WHERE id IN (` + placeholders(len(ids)) + `)`
	_, err := s.db.ExecContext(ctx, query, toArgs(ids)...)
	return err
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// ReplaceChunks deletes all existing chunks for the document and inserts the
// new set in one transaction, so readers never observe a mix of old and new.
func (s *SQLiteStorage) ReplaceChunks(ctx context.Context, documentID string, chunks []*models.DocumentChunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = ?`, documentID); err != nil {
		return err
	}

	if len(chunks) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO document_chunks (id, document_id, chunk_id, content, metadata, embedding, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		)
		if err != nil {
			return err
		}
		defer stmt.Close()

		now := time.Now()
		for _, chunk := range chunks {
			metadataJSON, err := json.Marshal(chunk.Metadata)
			if err != nil {
				return fmt.Errorf("failed to marshal chunk metadata: %w", err)
			}
			chunk.CreatedAt = now
			if _, err := stmt.ExecContext(ctx,
				chunk.ID, documentID, chunk.ChunkID, chunk.Content, string(metadataJSON),
				embeddingToBytes(chunk.Embedding), chunk.CreatedAt,
			); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func scanChunk(scan func(dest ...interface{}) error) (*models.DocumentChunk, error) {
	var chunk models.DocumentChunk
	var metadataJSON string
	var embedding []byte
	if err := scan(&chunk.ID, &chunk.DocumentID, &chunk.ChunkID, &chunk.Content, &metadataJSON, &embedding, &chunk.CreatedAt); err != nil {
		return nil, err
	}
	if metadataJSON != "" {
		_ = json.Unmarshal([]byte(metadataJSON), &chunk.Metadata)
	}
	if len(embedding) > 0 {
		chunk.Embedding = bytesToEmbedding(embedding)
	}
	return &chunk, nil
}

// GetChunksByDocumentID returns all chunks for a document in insertion order.
func (s *SQLiteStorage) GetChunksByDocumentID(ctx context.Context, documentID string) ([]*models.DocumentChunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, chunk_id, content, metadata, embedding, created_at
		 FROM document_chunks WHERE document_id = ? ORDER BY rowid`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*models.DocumentChunk
	for rows.Next() {
		chunk, err := scanChunk(rows.Scan)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// ListChunksByOrganisation returns all chunks belonging to documents of the
// organisation, joined with the parent document's source type, ordered by
// chunk creation time ascending.
func (s *SQLiteStorage) ListChunksByOrganisation(ctx context.Context, orgID string) ([]*ChunkWithSource, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.document_id, c.chunk_id, c.content, c.metadata, c.embedding, c.created_at, d.source_type
		 FROM document_chunks c
		 JOIN documents d ON d.id = c.document_id
		 WHERE d.organisation_id = ?
		 ORDER BY c.created_at, c.rowid`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ChunkWithSource
	for rows.Next() {
		var chunk models.DocumentChunk
		var metadataJSON, sourceType string
		var embedding []byte
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.ChunkID, &chunk.Content, &metadataJSON, &embedding, &chunk.CreatedAt, &sourceType); err != nil {
			return nil, err
		}
		if metadataJSON != "" {
			_ = json.Unmarshal([]byte(metadataJSON), &chunk.Metadata)
		}
		if len(embedding) > 0 {
			chunk.Embedding = bytesToEmbedding(embedding)
		}
		out = append(out, &ChunkWithSource{Chunk: &chunk, SourceType: sourceType})
	}
	return out, rows.Err()
}

// DeleteChunks removes chunks by row id.
func (s *SQLiteStorage) DeleteChunks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `DELETE FROM document_chunks WHERE id IN (` + placeholders(len(ids)) + `)`
	_, err := s.db.ExecContext(ctx, query, toArgs(ids)...)
	return err
}

// CountChunksByDocumentID returns the number of chunks a document has.
func (s *SQLiteStorage) CountChunksByDocumentID(ctx context.Context, documentID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM document_chunks WHERE document_id = ?`, documentID).Scan(&count)
	return count, err
}

// CountChunks returns the total number of chunks.
func (s *SQLiteStorage) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_chunks`).Scan(&count)
	return count, err
}

// UpsertJob inserts a job or updates the existing row matching
// (organisation, title, location). The matched row's id and status are kept;
// a fresh scrape reopens a previously closed posting.
func (s *SQLiteStorage) UpsertJob(ctx context.Context, job *models.Job) error {
	responsibilities, _ := json.Marshal(job.Responsibilities)
	requirements, _ := json.Marshal(job.Requirements)
	niceToHave, _ := json.Marshal(job.NiceToHave)

	var existingID string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM jobs WHERE organisation_id = ? AND title = ? AND location = ?`,
		job.OrganisationID, job.Title, job.Location,
	).Scan(&existingID)

	now := time.Now()
	switch {
	case err == sql.ErrNoRows:
		job.Status = models.JobStatusOpen
		job.CreatedAt = now
		job.UpdatedAt = now
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO jobs (id, organisation_id, source_url, title, department, location, employment_type,
			 summary, responsibilities, requirements, nice_to_have, seniority_level, clean_text, status, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			job.ID, job.OrganisationID, job.SourceURL, job.Title, job.Department, job.Location, job.EmploymentType,
			job.Summary, string(responsibilities), string(requirements), string(niceToHave),
			job.SeniorityLevel, job.CleanText, job.Status, job.CreatedAt, job.UpdatedAt,
		)
		return err
	case err != nil:
		return err
	default:
		job.ID = existingID
		job.Status = models.JobStatusOpen
		job.UpdatedAt = now
		_, err = s.db.ExecContext(ctx,
			`UPDATE jobs SET source_url = ?, department = ?, employment_type = ?, summary = ?,
			 responsibilities = ?, requirements = ?, nice_to_have = ?, seniority_level = ?, clean_text = ?,
			 status = ?, updated_at = ? WHERE id = ?`,
			job.SourceURL, job.Department, job.EmploymentType, job.Summary,
			string(responsibilities), string(requirements), string(niceToHave),
			job.SeniorityLevel, job.CleanText, job.Status, job.UpdatedAt, job.ID,
		)
		return err
	}
}

func scanJob(scan func(dest ...interface{}) error) (*models.Job, error) {
	var job models.Job
	var responsibilities, requirements, niceToHave string
	if err := scan(&job.ID, &job.OrganisationID, &job.SourceURL, &job.Title, &job.Department,
		&job.Location, &job.EmploymentType, &job.Summary, &responsibilities, &requirements,
		&niceToHave, &job.SeniorityLevel, &job.CleanText, &job.Status, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(responsibilities), &job.Responsibilities)
	_ = json.Unmarshal([]byte(requirements), &job.Requirements)
	_ = json.Unmarshal([]byte(niceToHave), &job.NiceToHave)
	return &job, nil
}

// ListJobsByOrganisation returns an organisation's jobs ordered by creation time.
func (s *SQLiteStorage) ListJobsByOrganisation(ctx context.Context, orgID string) ([]*models.Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, organisation_id, source_url, title, department, location, employment_type,
		 summary, responsibilities, requirements, nice_to_have, seniority_level, clean_text, status, created_at, updated_at
		 FROM jobs WHERE organisation_id = ? ORDER BY created_at, rowid`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows.Scan)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// CloseJobsExcept marks every open job of the organisation not in keepIDs as
// closed (jobs are closed, never deleted, when absent from a fresh scrape).
// Returns the number of jobs closed.
func (s *SQLiteStorage) CloseJobsExcept(ctx context.Context, orgID string, keepIDs []string) (int64, error) {
	query := `UPDATE jobs SET status = ?, updated_at = ? WHERE organisation_id = ? AND status = ?`
	args := []interface{}{models.JobStatusClosed, time.Now(), orgID, models.JobStatusOpen}
	if len(keepIDs) > 0 {
		query += ` AND id NOT IN (` + placeholders(len(keepIDs)) + `)`
		args = append(args, toArgs(keepIDs)...)
	}
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CreateFAQ inserts a FAQ row.
func (s *SQLiteStorage) CreateFAQ(ctx context.Context, faq *models.FAQ) error {
	now := time.Now()
	if faq.CreatedAt.IsZero() {
		faq.CreatedAt = now
	}
	faq.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO faqs (id, organisation_id, question, answer, approved, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		faq.ID, faq.OrganisationID, faq.Question, faq.Answer, faq.Approved, faq.CreatedAt, faq.UpdatedAt,
	)
	return err
}

// ListFAQsByOrganisation returns an organisation's FAQs ordered by creation
// time ascending.
func (s *SQLiteStorage) ListFAQsByOrganisation(ctx context.Context, orgID string) ([]*models.FAQ, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, organisation_id, question, answer, approved, created_at, updated_at
		 FROM faqs WHERE organisation_id = ? ORDER BY created_at, rowid`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var faqs []*models.FAQ
	for rows.Next() {
		var faq models.FAQ
		if err := rows.Scan(&faq.ID, &faq.OrganisationID, &faq.Question, &faq.Answer, &faq.Approved, &faq.CreatedAt, &faq.UpdatedAt); err != nil {
			return nil, err
		}
		faqs = append(faqs, &faq)
	}
	return faqs, rows.Err()
}

// UpdateFAQ updates an existing FAQ's answer and approval flag.
func (s *SQLiteStorage) UpdateFAQ(ctx context.Context, faq *models.FAQ) error {
	faq.UpdatedAt = time.Now()
	result, err := s.db.ExecContext(ctx,
		`UPDATE faqs SET question = ?, answer = ?, approved = ?, updated_at = ? WHERE id = ?`,
		faq.Question, faq.Answer, faq.Approved, faq.UpdatedAt, faq.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("faq not found: %s", faq.ID)
	}
	return nil
}

// DeleteFAQs removes FAQ rows by id.
func (s *SQLiteStorage) DeleteFAQs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `DELETE FROM faqs WHERE id IN (` + placeholders(len(ids)) + `)`
	_, err := s.db.ExecContext(ctx, query, toArgs(ids)...)
	return err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toArgs(ids []string) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
