// Package crawler implements a bounded breadth-first same-origin crawler.
// It produces raw (url, text) pairs; callers decide whether the pages are
// job postings or general knowledge.
package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/brendanmarry/withwilma-sub001/internal/models"
	"github.com/brendanmarry/withwilma-sub001/internal/urlutil"
)

const defaultUserAgent = "wilmakb-crawler/1.0"

// boilerplateSelector matches elements removed before text extraction.
const boilerplateSelector = "script, style, nav, footer, header, aside, noscript"

// Crawler fetches pages breadth-first, never leaving the origins of its
// seed URLs. A Crawler is safe for concurrent Crawl calls; the frontier
// and visited set are per-invocation.
type Crawler struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// WithHTTPClient replaces the HTTP client, including its timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Crawler) {
		c.client = client
	}
}

// WithUserAgent sets the User-Agent header sent with every fetch.
func WithUserAgent(ua string) Option {
	return func(c *Crawler) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// New creates a Crawler with a 15 second default fetch timeout.
func New(opts ...Option) *Crawler {
	c := &Crawler{
		client:    &http.Client{Timeout: 15 * time.Second},
		userAgent: defaultUserAgent,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// frontierEntry is one pending fetch in the BFS queue.
type frontierEntry struct {
	url   string
	level int
}

// Crawl walks rootURLs breadth-first up to depth levels, collecting at most
// maxPages pages. Links are resolved against the page they were found on and
// discarded when their origin is not one of the seed origins. A single page
// failure is logged and skipped, never aborting the crawl.
func (c *Crawler) Crawl(ctx context.Context, rootURLs []string, depth, maxPages int) ([]models.PageResult, error) {
	allowed := make(map[string]struct{})
	visited := make(map[string]struct{})
	var frontier []frontierEntry

	for _, raw := range rootURLs {
		u, err := urlutil.Sanitize(raw)
		if err != nil {
			c.logger.Warn("skipping invalid root url", zap.String("url", raw), zap.Error(err))
			continue
		}
		origin, err := urlutil.Origin(u)
		if err != nil {
			continue
		}
		allowed[origin] = struct{}{}
		if _, seen := visited[u]; !seen {
			visited[u] = struct{}{}
			frontier = append(frontier, frontierEntry{url: u, level: 0})
		}
	}
	if len(frontier) == 0 {
		return nil, fmt.Errorf("no valid root urls in %v", rootURLs)
	}

	var results []models.PageResult
	for len(frontier) > 0 && len(results) < maxPages {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		entry := frontier[0]
		frontier = frontier[1:]

		doc, finalURL, err := c.fetch(ctx, entry.url)
		if err != nil {
			c.logger.Warn("page fetch failed",
				zap.String("url", entry.url),
				zap.Int("level", entry.level),
				zap.Error(err))
			continue
		}

		rawHTML, err := doc.Html()
		if err != nil {
			rawHTML = ""
		}
		results = append(results, models.PageResult{URL: entry.url, Text: PageText(doc), HTML: rawHTML})
		c.logger.Debug("crawled page",
			zap.String("url", entry.url),
			zap.Int("level", entry.level),
			zap.Int("pages", len(results)))

		// Links on a page at the depth limit would never be fetched,
		// so skip parsing them entirely.
		if entry.level >= depth {
			continue
		}
		for _, link := range pageLinks(doc, finalURL) {
			origin, err := urlutil.Origin(link)
			if err != nil {
				continue
			}
			if _, ok := allowed[origin]; !ok {
				continue
			}
			if _, seen := visited[link]; seen {
				continue
			}
			visited[link] = struct{}{}
			frontier = append(frontier, frontierEntry{url: link, level: entry.level + 1})
		}
	}
	return results, nil
}

// FetchPage fetches a single URL and returns its parsed document. Used by
// single-page ingestion paths that bypass the BFS traversal.
func (c *Crawler) FetchPage(ctx context.Context, rawURL string) (*goquery.Document, error) {
	u, err := urlutil.Sanitize(rawURL)
	if err != nil {
		return nil, err
	}
	doc, _, err := c.fetch(ctx, u)
	return doc, err
}

// fetch retrieves one page and parses it. The returned URL is the final URL
// after redirects, which link resolution must use as its base.
func (c *Crawler) fetch(ctx context.Context, pageURL string) (*goquery.Document, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("building request for %s: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, "", fmt.Errorf("fetching %s: status %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("parsing %s: %w", pageURL, err)
	}
	return doc, resp.Request.URL.String(), nil
}

// PageText extracts the visible text of a page, with scripts, styles, and
// navigation boilerplate removed and whitespace collapsed.
func PageText(doc *goquery.Document) string {
	clone := goquery.CloneDocument(doc)
	clone.Find(boilerplateSelector).Remove()
	body := clone.Find("body")
	if body.Length() == 0 {
		return collapseWhitespace(clone.Text())
	}
	return collapseWhitespace(body.Text())
}

// pageLinks returns the sanitized absolute targets of all anchors on the
// page, resolved against the URL the page was actually fetched from.
func pageLinks(doc *goquery.Document, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}
	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		resolved, err := urlutil.Sanitize(base.ResolveReference(ref).String())
		if err != nil {
			return
		}
		links = append(links, resolved)
	})
	return links
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
