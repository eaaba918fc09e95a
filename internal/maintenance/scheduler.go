// Package maintenance schedules recurring dedup sweeps across all
// organisations.
package maintenance

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/brendanmarry/withwilma-sub001/internal/dedup"
	"github.com/brendanmarry/withwilma-sub001/internal/models"
	"github.com/brendanmarry/withwilma-sub001/internal/storage"
)

// Scheduler runs the deduplicator over every organisation on a cron
// schedule. At most one sweep runs at a time; a tick that fires while a
// sweep is still in progress is skipped.
type Scheduler struct {
	store    storage.Storage
	dedup    *dedup.Deduplicator
	schedule string
	logger   *zap.Logger

	cron    *cron.Cron
	running sync.Mutex
}

// NewScheduler creates a scheduler. schedule is a standard five-field cron
// expression.
func NewScheduler(store storage.Storage, d *dedup.Deduplicator, schedule string, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		store:    store,
		dedup:    d,
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers the cron entry and begins ticking.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.schedule, func() {
		s.runSweep(ctx)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("maintenance scheduler started", zap.String("schedule", s.schedule))
	return nil
}

// Stop stops ticking and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.running.Lock()
	s.running.Unlock()
}

// RunOnce sweeps every organisation immediately. Used by the CLI dedupe
// command and by tests; the cron ticks call it too.
func (s *Scheduler) RunOnce(ctx context.Context) (models.DedupResult, error) {
	s.running.Lock()
	defer s.running.Unlock()
	return s.sweep(ctx)
}

func (s *Scheduler) runSweep(ctx context.Context) {
	if !s.running.TryLock() {
		s.logger.Warn("skipping maintenance tick, previous sweep still running")
		return
	}
	defer s.running.Unlock()
	if _, err := s.sweep(ctx); err != nil {
		s.logger.Error("maintenance sweep failed", zap.Error(err))
	}
}

// sweep deduplicates each organisation in turn. One organisation failing
// does not stop the others; the first error is reported after the sweep.
func (s *Scheduler) sweep(ctx context.Context) (models.DedupResult, error) {
	orgs, err := s.store.ListOrganisations(ctx)
	if err != nil {
		return models.DedupResult{}, err
	}

	var total models.DedupResult
	var firstErr error
	for _, org := range orgs {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		result, err := s.dedup.Deduplicate(ctx, org.ID)
		if err != nil {
			s.logger.Error("dedup failed for organisation",
				zap.String("organisation", org.ID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		total.RemovedDocuments += result.RemovedDocuments
		total.RemovedChunks += result.RemovedChunks
		total.RemovedFaqs += result.RemovedFaqs
		total.UpdatedFaqs += result.UpdatedFaqs
	}

	s.logger.Info("maintenance sweep complete",
		zap.Int("organisations", len(orgs)),
		zap.Int("removed_documents", total.RemovedDocuments),
		zap.Int("removed_chunks", total.RemovedChunks),
		zap.Int("removed_faqs", total.RemovedFaqs),
		zap.Int("updated_faqs", total.UpdatedFaqs))
	return total, firstErr
}
