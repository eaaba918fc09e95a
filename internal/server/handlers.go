package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brendanmarry/withwilma-sub001/internal/config"
	"github.com/brendanmarry/withwilma-sub001/internal/models"
	"github.com/brendanmarry/withwilma-sub001/internal/urlutil"
)

// Crawl modes.
const (
	crawlModeJobs      = "jobs"
	crawlModeKnowledge = "knowledge"
)

type organisationRequest struct {
	Name    string `json:"name"`
	RootURL string `json:"root_url"`
}

func (s *Server) handleCreateOrganisation(w http.ResponseWriter, r *http.Request) {
	var req organisationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	org := &models.Organisation{ID: uuid.New().String(), Name: req.Name}
	if req.RootURL != "" {
		sanitized, err := urlutil.Sanitize(req.RootURL)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid root_url")
			return
		}
		org.RootURL = sanitized
	}
	if err := s.storage.CreateOrganisation(r.Context(), org); err != nil {
		s.logger.Error("creating organisation failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, org)
}

func (s *Server) handleGetOrganisation(w http.ResponseWriter, r *http.Request) {
	org, err := s.storage.GetOrganisation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusNotFound, "organisation not found")
		return
	}
	s.respondJSON(w, http.StatusOK, org)
}

type crawlRequest struct {
	RootURLs        []string `json:"root_urls"`
	Depth           int      `json:"depth"`
	MaxPages        int      `json:"max_pages"`
	Mode            string   `json:"mode"`
	ForceSinglePage bool     `json:"force_single_page"`
}

// handleCrawl is the caller-facing validation layer for crawl parameters:
// the crawler itself trusts its inputs.
func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "id")
	var req crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.RootURLs) == 0 {
		s.respondError(w, http.StatusBadRequest, "root_urls is required")
		return
	}
	if req.Depth == 0 {
		req.Depth = s.config.Crawler.Depth
	}
	if req.MaxPages == 0 {
		req.MaxPages = s.config.Crawler.MaxPages
	}
	if req.Depth < config.MinCrawlDepth || req.Depth > config.MaxCrawlDepth {
		s.respondError(w, http.StatusBadRequest, "depth must be between 1 and 5")
		return
	}
	if req.MaxPages <= 0 {
		s.respondError(w, http.StatusBadRequest, "max_pages must be positive")
		return
	}

	switch req.Mode {
	case crawlModeJobs:
		if req.ForceSinglePage {
			count, err := s.ingest.SyncJobsFromPage(r.Context(), orgID, req.RootURLs[0], true)
			if err != nil {
				s.logger.Error("single page job sync failed", zap.Error(err))
				s.respondError(w, http.StatusInternalServerError, err.Error())
				return
			}
			s.respondJSON(w, http.StatusOK, map[string]int{"upserted": count})
			return
		}
		result, err := s.ingest.CrawlJobs(r.Context(), orgID, req.RootURLs, req.Depth, req.MaxPages)
		if err != nil {
			s.logger.Error("job crawl failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.respondJSON(w, http.StatusOK, result)
	case crawlModeKnowledge, "":
		stats, err := s.ingest.CrawlKnowledge(r.Context(), orgID, req.RootURLs, req.Depth, req.MaxPages)
		if err != nil {
			s.logger.Error("knowledge crawl failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.respondJSON(w, http.StatusOK, stats)
	default:
		s.respondError(w, http.StatusBadRequest, "mode must be jobs or knowledge")
	}
}

func (s *Server) handleIngestDocument(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "id")
	var input models.DocumentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	input.OrganisationID = orgID
	if input.SourceType == "" {
		input.SourceType = models.SourceTypeUpload
	}
	if input.Content == "" {
		s.respondError(w, http.StatusBadRequest, "content is required")
		return
	}
	doc, err := s.ingest.IngestDocument(r.Context(), &input)
	if err != nil {
		s.logger.Error("document ingest failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": doc.ID, "status": "indexed"})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.storage.GetDocument(r.Context(), id); err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	if err := s.storage.DeleteDocuments(r.Context(), []string{id}); err != nil {
		s.logger.Error("document delete failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "id")
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	results, err := s.retriever.Search(r.Context(), orgID, req.Query, req.TopK)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

func (s *Server) handleDedupe(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "id")
	if _, err := s.storage.GetOrganisation(r.Context(), orgID); err != nil {
		s.respondError(w, http.StatusNotFound, "organisation not found")
		return
	}
	result, err := s.dedup.Deduplicate(r.Context(), orgID)
	if err != nil {
		s.logger.Error("dedup failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.storage.ListJobsByOrganisation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.logger.Error("listing jobs failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs, "count": len(jobs)})
}

type faqRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Approved bool   `json:"approved"`
}

func (s *Server) handleCreateFAQ(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "id")
	var req faqRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	faq := &models.FAQ{
		ID:             uuid.New().String(),
		OrganisationID: orgID,
		Question:       req.Question,
		Answer:         req.Answer,
		Approved:       req.Approved,
	}
	if err := s.storage.CreateFAQ(r.Context(), faq); err != nil {
		s.logger.Error("creating faq failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, faq)
}

func (s *Server) handleListFAQs(w http.ResponseWriter, r *http.Request) {
	faqs, err := s.storage.ListFAQsByOrganisation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.logger.Error("listing faqs failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"faqs": faqs, "count": len(faqs)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.storage.CountDocuments(ctx)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	chunkCount, err := s.storage.CountChunks(ctx)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docCount,
		"chunks":    chunkCount,
		"config": map[string]interface{}{
			"embedding_model":      s.config.Embedding.Model,
			"embedding_dimensions": s.config.Embedding.Dimensions,
			"chunk_size":           s.config.Indexing.ChunkSize,
			"chunk_overlap":        s.config.Indexing.ChunkOverlap,
			"database_path":        s.config.Storage.DatabasePath,
		},
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encoding response failed", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
