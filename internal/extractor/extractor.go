// Package extractor segments a fetched HTML page into candidate job
// postings, normalizes each through the text-normalization oracle, and
// deduplicates the survivors by title.
package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/brendanmarry/withwilma-sub001/internal/models"
	"github.com/brendanmarry/withwilma-sub001/internal/normalizer"
)

// minDescriptionLen gates heuristic candidates: anything shorter is noise
// (menu items, cookie banners) rather than a posting.
const minDescriptionLen = 40

// candidateSelector matches job-like sections. Over-matching is intentional;
// the oracle filter and the title dedup pass correct it.
const candidateSelector = `[class*="job"], [class*="career"], [class*="position"], [class*="role"],` +
	` [class*="vacancy"], [class*="opening"],` +
	` [data-testid*="job"], [data-testid*="position"],` +
	` article, section, li`

// headingSelector locates a candidate's title element.
const headingSelector = "h1, h2, h3, h4, h5, h6, [class*=\"title\"]"

// locationSelector locates a candidate's location element, if any.
const locationSelector = "[class*=\"location\"], [data-testid*=\"location\"]"

// Extractor turns raw page HTML into normalized job postings.
type Extractor struct {
	normalizer normalizer.Normalizer
	logger     *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// New creates an Extractor backed by the given normalization oracle.
func New(n normalizer.Normalizer, opts ...Option) *Extractor {
	e := &Extractor{normalizer: n, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract segments html into candidate postings, passes each through the
// oracle, drops the ones the oracle marks invalid, and deduplicates the rest
// by lowercased trimmed title, keeping the candidate with the longest clean
// text. Output order is first occurrence of each unique title.
//
// forceSinglePage adds the whole page body as one extra candidate regardless
// of the heuristic gate, for callers that already know the URL is a single
// posting.
func (e *Extractor) Extract(ctx context.Context, html string, forceSinglePage bool) ([]models.ExtractedJob, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	candidates := e.segment(doc)
	if forceSinglePage || len(candidates) == 0 {
		candidates = append(candidates, wholePageCandidate(doc))
	}
	e.logger.Debug("segmented page", zap.Int("candidates", len(candidates)))

	var jobs []models.ExtractedJob
	for _, raw := range candidates {
		rec, err := e.normalizer.Normalize(ctx, candidateText(raw))
		if err != nil {
			// One bad oracle call should not lose the whole page.
			e.logger.Warn("normalization failed for candidate",
				zap.String("title", raw.Title), zap.Error(err))
			continue
		}
		if !rec.IsValidJobPosting {
			continue
		}
		jobs = append(jobs, models.ExtractedJob{Raw: raw, Normalised: *rec})
	}

	return dedupeByTitle(jobs), nil
}

// segment collects heuristic candidates from job-like DOM sections.
func (e *Extractor) segment(doc *goquery.Document) []models.RawJob {
	var candidates []models.RawJob
	doc.Find(candidateSelector).Each(func(_ int, sel *goquery.Selection) {
		raw := sectionCandidate(sel)
		if raw.Title == "" || len(raw.Description) <= minDescriptionLen {
			return
		}
		candidates = append(candidates, raw)
	})
	return candidates
}

// sectionCandidate extracts a raw candidate from one DOM section.
func sectionCandidate(sel *goquery.Selection) models.RawJob {
	title := collapse(sel.Find(headingSelector).First().Text())
	if title == "" {
		title = strings.TrimSpace(sel.AttrOr("aria-label", ""))
	}
	location := collapse(sel.Find(locationSelector).First().Text())

	var parts []string
	sel.Find("li, p").Each(func(_ int, item *goquery.Selection) {
		if text := collapse(item.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	description := strings.Join(parts, "\n")
	if description == "" {
		description = collapse(sel.Text())
	}

	return models.RawJob{Title: title, Location: location, Description: description}
}

// wholePageCandidate treats the entire page as one posting, using the title
// tag as the candidate title.
func wholePageCandidate(doc *goquery.Document) models.RawJob {
	clone := goquery.CloneDocument(doc)
	clone.Find("script, style, noscript").Remove()

	title := collapse(clone.Find("title").First().Text())
	body := clone.Find("body")
	var text string
	if body.Length() > 0 {
		text = collapse(body.Text())
	} else {
		text = collapse(clone.Text())
	}
	return models.RawJob{Title: title, Description: text}
}

// candidateText builds the text handed to the oracle.
func candidateText(raw models.RawJob) string {
	var b strings.Builder
	if raw.Title != "" {
		b.WriteString(raw.Title)
		b.WriteString("\n")
	}
	if raw.Location != "" {
		b.WriteString(raw.Location)
		b.WriteString("\n")
	}
	b.WriteString(raw.Description)
	return b.String()
}

// dedupeByTitle groups jobs by lowercased trimmed normalized title and keeps
// the member with the longest clean text, first seen winning ties. Output
// preserves the insertion order of each title's first occurrence.
func dedupeByTitle(jobs []models.ExtractedJob) []models.ExtractedJob {
	index := make(map[string]int)
	var out []models.ExtractedJob
	for _, job := range jobs {
		key := strings.ToLower(strings.TrimSpace(job.Normalised.Title))
		pos, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, job)
			continue
		}
		if len(job.Normalised.CleanText) > len(out[pos].Normalised.CleanText) {
			out[pos] = job
		}
	}
	return out
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
