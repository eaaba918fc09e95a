// Package jobs reconciles freshly-scraped postings with persisted ones.
package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brendanmarry/withwilma-sub001/internal/models"
	"github.com/brendanmarry/withwilma-sub001/internal/storage"
)

// Syncer upserts extracted job postings and closes the ones a fresh scrape
// no longer contains. Postings are closed, never deleted, so their history
// survives.
type Syncer struct {
	store  storage.Storage
	logger *zap.Logger
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Syncer) {
		s.logger = logger
	}
}

// NewSyncer creates a Syncer on top of the given storage.
func NewSyncer(store storage.Storage, opts ...Option) *Syncer {
	s := &Syncer{store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncResult reports what one reconciliation changed.
type SyncResult struct {
	Upserted int   `json:"upserted"`
	Closed   int64 `json:"closed"`
}

// Sync upserts every extracted posting for the organisation, keyed on
// (organisation, title, location), then closes all open postings the scrape
// did not produce. sourceURL records where the postings were scraped from.
func (s *Syncer) Sync(ctx context.Context, orgID, sourceURL string, extracted []models.ExtractedJob) (SyncResult, error) {
	var result SyncResult
	keep := make([]string, 0, len(extracted))

	for _, ex := range extracted {
		job := jobFromExtracted(orgID, sourceURL, ex)
		if err := s.store.UpsertJob(ctx, job); err != nil {
			return result, fmt.Errorf("upserting job %q: %w", job.Title, err)
		}
		keep = append(keep, job.ID)
		result.Upserted++
	}

	closed, err := s.store.CloseJobsExcept(ctx, orgID, keep)
	if err != nil {
		return result, fmt.Errorf("closing stale jobs: %w", err)
	}
	result.Closed = closed

	s.logger.Info("synced jobs",
		zap.String("organisation", orgID),
		zap.Int("upserted", result.Upserted),
		zap.Int64("closed", result.Closed))
	return result, nil
}

// Upsert stores extracted postings without touching postings the batch does
// not mention. Used for single-page syncs where absence means nothing.
func (s *Syncer) Upsert(ctx context.Context, orgID, sourceURL string, extracted []models.ExtractedJob) (int, error) {
	for i, ex := range extracted {
		job := jobFromExtracted(orgID, sourceURL, ex)
		if err := s.store.UpsertJob(ctx, job); err != nil {
			return i, fmt.Errorf("upserting job %q: %w", job.Title, err)
		}
	}
	return len(extracted), nil
}

func jobFromExtracted(orgID, sourceURL string, ex models.ExtractedJob) *models.Job {
	n := ex.Normalised
	return &models.Job{
		ID:               uuid.New().String(),
		OrganisationID:   orgID,
		SourceURL:        sourceURL,
		Title:            n.Title,
		Department:       n.Department,
		Location:         n.Location,
		EmploymentType:   n.EmploymentType,
		Summary:          n.Summary,
		Responsibilities: n.Responsibilities,
		Requirements:     n.Requirements,
		NiceToHave:       n.NiceToHave,
		SeniorityLevel:   n.SeniorityLevel,
		CleanText:        n.CleanText,
		Status:           models.JobStatusOpen,
	}
}
