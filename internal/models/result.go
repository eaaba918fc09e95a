package models

// PageResult is one fetched page produced by the crawler. Text is the
// visible text with boilerplate removed; HTML is the raw markup, kept for
// the job extractor's DOM segmentation and excluded from JSON output.
type PageResult struct {
	URL  string `json:"url"`
	Text string `json:"text"`
	HTML string `json:"-"`
}

// SearchResult is a single retrieval hit. Metadata bundles the chunk's own
// metadata plus the parent document id and source type, so callers never need
// a second lookup.
type SearchResult struct {
	ChunkID  string                 `json:"chunk_id"`
	Score    float64                `json:"score"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
}

// DedupResult reports what a deduplication pass removed or updated.
type DedupResult struct {
	RemovedDocuments int `json:"removed_documents"`
	RemovedChunks    int `json:"removed_chunks"`
	RemovedFaqs      int `json:"removed_faqs"`
	UpdatedFaqs      int `json:"updated_faqs"`
}

// IsZero reports whether the pass changed nothing (a second run on already
// deduplicated state must be zero).
func (r DedupResult) IsZero() bool {
	return r.RemovedDocuments == 0 && r.RemovedChunks == 0 && r.RemovedFaqs == 0 && r.UpdatedFaqs == 0
}
