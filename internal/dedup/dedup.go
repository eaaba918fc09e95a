// Package dedup collapses duplicate documents, chunks, and FAQs within an
// organisation. It is a maintenance pass: idempotent, safe on empty state,
// and merging content rather than blindly discarding it.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/brendanmarry/withwilma-sub001/internal/models"
	"github.com/brendanmarry/withwilma-sub001/internal/orglock"
	"github.com/brendanmarry/withwilma-sub001/internal/storage"
)

// minMeaningfulURLLen gates document dedup on source URL: anything this
// short ("http://a" and below) cannot identify a page, so the content hash
// is used instead.
const minMeaningfulURLLen = 8

// Deduplicator runs dedup passes over persisted state. Runs for the same
// organisation are serialized through the shared keyed lock; runs for
// different organisations are independent.
type Deduplicator struct {
	store  storage.Storage
	locks  *orglock.Keyed
	logger *zap.Logger
}

// Option configures a Deduplicator.
type Option func(*Deduplicator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Deduplicator) {
		d.logger = logger
	}
}

// New creates a Deduplicator. locks must be the same instance the ingestion
// paths use, so a dedup pass never interleaves with an in-flight ingest for
// the same organisation.
func New(store storage.Storage, locks *orglock.Keyed, opts ...Option) *Deduplicator {
	d := &Deduplicator{store: store, locks: locks, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Deduplicate collapses duplicates for one organisation in three passes:
// documents, then chunks of the surviving documents, then FAQs. A second
// run on already-deduplicated state reports all zeroes.
func (d *Deduplicator) Deduplicate(ctx context.Context, orgID string) (models.DedupResult, error) {
	unlock := d.locks.Lock(orgID)
	defer unlock()

	var result models.DedupResult
	if err := d.dedupDocuments(ctx, orgID, &result); err != nil {
		return result, fmt.Errorf("document dedup: %w", err)
	}
	if err := d.dedupChunks(ctx, orgID, &result); err != nil {
		return result, fmt.Errorf("chunk dedup: %w", err)
	}
	if err := d.dedupFAQs(ctx, orgID, &result); err != nil {
		return result, fmt.Errorf("faq dedup: %w", err)
	}

	if !result.IsZero() {
		d.logger.Info("dedup pass complete",
			zap.String("organisation", orgID),
			zap.Int("removed_documents", result.RemovedDocuments),
			zap.Int("removed_chunks", result.RemovedChunks),
			zap.Int("removed_faqs", result.RemovedFaqs),
			zap.Int("updated_faqs", result.UpdatedFaqs))
	}
	return result, nil
}

// documentKey identifies a document by source URL when one meaningfully
// exists, else by content hash. Two crawls of the same page collide on the
// URL even if the page text drifted slightly.
func documentKey(doc *models.Document) string {
	if len(doc.SourceURL) > minMeaningfulURLLen {
		return doc.SourceType + "::" + doc.SourceURL
	}
	return doc.SourceType + "::" + hashText(doc.Content)
}

// dedupDocuments keeps the earliest-created document per key and deletes
// the rest. Their chunks cascade away and count toward RemovedChunks.
func (d *Deduplicator) dedupDocuments(ctx context.Context, orgID string, result *models.DedupResult) error {
	docs, err := d.store.ListDocumentsByOrganisation(ctx, orgID)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{})
	var remove []string
	for _, doc := range docs {
		key := documentKey(doc)
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			continue
		}
		count, err := d.store.CountChunksByDocumentID(ctx, doc.ID)
		if err != nil {
			return err
		}
		result.RemovedChunks += int(count)
		remove = append(remove, doc.ID)
	}
	if len(remove) == 0 {
		return nil
	}
	if err := d.store.DeleteDocuments(ctx, remove); err != nil {
		return err
	}
	result.RemovedDocuments = len(remove)
	return nil
}

// chunkKey identifies a chunk within its surviving document. The metadata
// hash uses canonical JSON (sorted keys), so key order in the stored blob
// never splits a collision group.
func chunkKey(chunk *models.DocumentChunk) string {
	return chunk.DocumentID +
		"::" + strings.ToLower(chunk.ChunkID) +
		"::" + hashText(chunk.Content) +
		"::" + hashMetadata(chunk.Metadata)
}

// dedupChunks keeps the earliest-created chunk per key across the surviving
// documents and deletes the rest.
func (d *Deduplicator) dedupChunks(ctx context.Context, orgID string, result *models.DedupResult) error {
	chunks, err := d.store.ListChunksByOrganisation(ctx, orgID)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{})
	var remove []string
	for _, cs := range chunks {
		key := chunkKey(cs.Chunk)
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			continue
		}
		remove = append(remove, cs.Chunk.ID)
	}
	if len(remove) == 0 {
		return nil
	}
	if err := d.store.DeleteChunks(ctx, remove); err != nil {
		return err
	}
	result.RemovedChunks += len(remove)
	return nil
}

// dedupFAQs groups FAQs by normalized-question hash, merges each group's
// answers into the earliest-created row, and deletes the rest. The survivor
// is written back only when the merge actually changed it.
func (d *Deduplicator) dedupFAQs(ctx context.Context, orgID string, result *models.DedupResult) error {
	faqs, err := d.store.ListFAQsByOrganisation(ctx, orgID)
	if err != nil {
		return err
	}

	survivors := make(map[string]*models.FAQ)
	changed := make(map[string]bool)
	var remove []string
	for _, faq := range faqs {
		key := questionKey(faq.Question)
		canonical, dup := survivors[key]
		if !dup {
			survivors[key] = faq
			continue
		}

		merged := mergeAnswers(canonical.Answer, faq.Answer)
		if merged != canonical.Answer {
			canonical.Answer = merged
			changed[canonical.ID] = true
		}
		if faq.Approved && !canonical.Approved {
			canonical.Approved = true
			changed[canonical.ID] = true
		}
		remove = append(remove, faq.ID)
	}

	for _, faq := range survivors {
		if !changed[faq.ID] {
			continue
		}
		if err := d.store.UpdateFAQ(ctx, faq); err != nil {
			// A constraint conflict loses this group's merge, not the pass.
			if isConstraintViolation(err) {
				d.logger.Warn("skipping conflicting faq update",
					zap.String("faq", faq.ID), zap.Error(err))
				continue
			}
			return err
		}
		result.UpdatedFaqs++
	}
	if len(remove) > 0 {
		if err := d.store.DeleteFAQs(ctx, remove); err != nil {
			return err
		}
		result.RemovedFaqs = len(remove)
	}
	return nil
}

// questionKey hashes the normalized question text. Differently-worded but
// equivalent questions collide here and get merged.
func questionKey(question string) string {
	return hashText(NormalizeQuestion(question))
}

func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

