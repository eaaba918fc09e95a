// Package ingest wires the crawl, extraction, and indexing pipelines
// together behind a single service used by the HTTP server and the CLI.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/brendanmarry/withwilma-sub001/internal/crawler"
	"github.com/brendanmarry/withwilma-sub001/internal/extractor"
	"github.com/brendanmarry/withwilma-sub001/internal/indexer"
	"github.com/brendanmarry/withwilma-sub001/internal/jobs"
	"github.com/brendanmarry/withwilma-sub001/internal/models"
	"github.com/brendanmarry/withwilma-sub001/internal/orglock"
	"github.com/brendanmarry/withwilma-sub001/internal/storage"
	"github.com/brendanmarry/withwilma-sub001/internal/upload"
)

// Service runs ingestion pipelines for organisations. All write paths take
// the organisation's lock, so a maintenance dedup pass never interleaves
// with an in-flight ingest for the same tenant.
type Service struct {
	crawler   *crawler.Crawler
	extractor *extractor.Extractor
	syncer    *jobs.Syncer
	indexer   *indexer.Indexer
	store     storage.Storage
	locks     *orglock.Keyed
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates the ingestion service.
func NewService(
	c *crawler.Crawler,
	e *extractor.Extractor,
	syncer *jobs.Syncer,
	idx *indexer.Indexer,
	store storage.Storage,
	locks *orglock.Keyed,
	opts ...Option,
) *Service {
	s := &Service{
		crawler:   c,
		extractor: e,
		syncer:    syncer,
		indexer:   idx,
		store:     store,
		locks:     locks,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IngestDocument stores and indexes one document directly, bypassing the
// crawler. Used for uploads and API-pushed content.
func (s *Service) IngestDocument(ctx context.Context, input *models.DocumentInput) (*models.Document, error) {
	if _, err := s.store.GetOrganisation(ctx, input.OrganisationID); err != nil {
		return nil, fmt.Errorf("organisation %s: %w", input.OrganisationID, err)
	}
	unlock := s.locks.Lock(input.OrganisationID)
	defer unlock()
	return s.indexer.IngestDocument(ctx, input)
}

// IngestFile decodes a file from a watched upload directory and indexes it.
// The filename lands in the document metadata so retrievals can cite it.
func (s *Service) IngestFile(ctx context.Context, orgID, path string) (*models.Document, error) {
	content, err := upload.Read(path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("upload %s: no text content", path)
	}
	return s.IngestDocument(ctx, &models.DocumentInput{
		OrganisationID: orgID,
		SourceType:     models.SourceTypeUpload,
		Content:        content,
		Metadata:       map[string]interface{}{"filename": filepath.Base(path)},
	})
}

// CrawlStats reports what a knowledge crawl ingested.
type CrawlStats struct {
	PagesCrawled int `json:"pages_crawled"`
	PagesIndexed int `json:"pages_indexed"`
	PagesFailed  int `json:"pages_failed"`
}

// CrawlKnowledge crawls the root URLs and ingests every fetched page as a
// crawl-sourced document. One page failing to index is logged and skipped;
// the rest of the batch still lands.
func (s *Service) CrawlKnowledge(ctx context.Context, orgID string, rootURLs []string, depth, maxPages int) (CrawlStats, error) {
	var stats CrawlStats
	if _, err := s.store.GetOrganisation(ctx, orgID); err != nil {
		return stats, fmt.Errorf("organisation %s: %w", orgID, err)
	}

	pages, err := s.crawler.Crawl(ctx, rootURLs, depth, maxPages)
	if err != nil {
		return stats, fmt.Errorf("crawling %v: %w", rootURLs, err)
	}
	stats.PagesCrawled = len(pages)

	unlock := s.locks.Lock(orgID)
	defer unlock()
	for _, page := range pages {
		_, err := s.indexer.IngestDocument(ctx, &models.DocumentInput{
			OrganisationID: orgID,
			SourceType:     models.SourceTypeCrawl,
			SourceURL:      page.URL,
			Content:        page.Text,
		})
		if err != nil {
			stats.PagesFailed++
			s.logger.Warn("indexing crawled page failed",
				zap.String("url", page.URL), zap.Error(err))
			continue
		}
		stats.PagesIndexed++
	}

	s.logger.Info("knowledge crawl complete",
		zap.String("organisation", orgID),
		zap.Int("crawled", stats.PagesCrawled),
		zap.Int("indexed", stats.PagesIndexed),
		zap.Int("failed", stats.PagesFailed))
	return stats, nil
}

// CrawlJobs crawls the root URLs, extracts job postings from every fetched
// page, and reconciles them against the organisation's stored jobs.
// Extraction failures on one page do not lose the others.
func (s *Service) CrawlJobs(ctx context.Context, orgID string, rootURLs []string, depth, maxPages int) (jobs.SyncResult, error) {
	if _, err := s.store.GetOrganisation(ctx, orgID); err != nil {
		return jobs.SyncResult{}, fmt.Errorf("organisation %s: %w", orgID, err)
	}

	pages, err := s.crawler.Crawl(ctx, rootURLs, depth, maxPages)
	if err != nil {
		return jobs.SyncResult{}, fmt.Errorf("crawling %v: %w", rootURLs, err)
	}

	var extracted []models.ExtractedJob
	sourceURL := ""
	if len(rootURLs) > 0 {
		sourceURL = rootURLs[0]
	}
	for _, page := range pages {
		pageJobs, err := s.extractor.Extract(ctx, page.HTML, false)
		if err != nil {
			s.logger.Warn("job extraction failed for page",
				zap.String("url", page.URL), zap.Error(err))
			continue
		}
		extracted = append(extracted, pageJobs...)
	}

	unlock := s.locks.Lock(orgID)
	defer unlock()
	return s.syncer.Sync(ctx, orgID, sourceURL, extracted)
}

// SyncJobsFromPage extracts postings from a single known job page and
// upserts them without closing other postings. forceSinglePage relaxes the
// extractor's heuristic gate for sparse single-posting pages.
func (s *Service) SyncJobsFromPage(ctx context.Context, orgID, pageURL string, forceSinglePage bool) (int, error) {
	if _, err := s.store.GetOrganisation(ctx, orgID); err != nil {
		return 0, fmt.Errorf("organisation %s: %w", orgID, err)
	}

	doc, err := s.crawler.FetchPage(ctx, pageURL)
	if err != nil {
		return 0, fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	rawHTML, err := doc.Html()
	if err != nil {
		return 0, fmt.Errorf("serializing %s: %w", pageURL, err)
	}
	extracted, err := s.extractor.Extract(ctx, rawHTML, forceSinglePage)
	if err != nil {
		return 0, fmt.Errorf("extracting %s: %w", pageURL, err)
	}

	unlock := s.locks.Lock(orgID)
	defer unlock()
	count, err := s.syncer.Upsert(ctx, orgID, pageURL, extracted)
	if err != nil {
		return count, err
	}
	return count, nil
}
