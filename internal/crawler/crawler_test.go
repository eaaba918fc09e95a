package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// testSite serves a small linked site. The /about page links off-origin and
// to a page that returns 500.
func testSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`<html><head><script>var x = 1;</script></head><body>
			<nav>Menu</nav>
			<p>Welcome to Acme.</p>
			<a href="/about">About</a>
			<a href="/jobs#openings">Jobs</a>
			<a href="/">Home</a>
		</body></html>`))
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<p>About Acme.</p>
			<a href="https://elsewhere.example/page">External</a>
			<a href="/broken">Broken</a>
			<a href="` + server.URL + `/deep">Deep</a>
		</body></html>`))
	})
	mux.HandleFunc("/jobs", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>Open roles at Acme.</p></body></html>`))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/deep", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>Deep page.</p><a href="/deeper">More</a></body></html>`))
	})
	mux.HandleFunc("/deeper", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>Deeper page.</p></body></html>`))
	})
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestCrawlBFS(t *testing.T) {
	server := testSite(t)
	c := New()

	results, err := c.Crawl(context.Background(), []string{server.URL + "/"}, 2, 30)
	if err != nil {
		t.Fatal(err)
	}

	var urls []string
	for _, r := range results {
		urls = append(urls, strings.TrimPrefix(r.URL, server.URL))
	}
	// Level 0: root. Level 1: /about, /jobs. Level 2: /deep (/broken fails).
	want := []string{"/", "/about", "/jobs", "/deep"}
	if len(urls) != len(want) {
		t.Fatalf("crawled %v, want %v", urls, want)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("urls[%d] = %s, want %s", i, urls[i], want[i])
		}
	}

	if !strings.Contains(results[0].Text, "Welcome to Acme.") {
		t.Errorf("root text: %q", results[0].Text)
	}
	if strings.Contains(results[0].Text, "var x") || strings.Contains(results[0].Text, "Menu") {
		t.Errorf("boilerplate not removed: %q", results[0].Text)
	}
}

func TestCrawlDepthLimit(t *testing.T) {
	server := testSite(t)
	c := New()

	results, err := c.Crawl(context.Background(), []string{server.URL + "/"}, 1, 30)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if strings.HasSuffix(r.URL, "/deep") {
			t.Errorf("page beyond depth crawled: %s", r.URL)
		}
	}
	if len(results) != 3 {
		t.Errorf("got %d pages at depth 1, want 3", len(results))
	}
}

func TestCrawlMaxPages(t *testing.T) {
	server := testSite(t)
	c := New()

	results, err := c.Crawl(context.Background(), []string{server.URL + "/"}, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("got %d pages, want 2", len(results))
	}
}

func TestCrawlStaysOnOrigin(t *testing.T) {
	server := testSite(t)
	c := New()

	results, err := c.Crawl(context.Background(), []string{server.URL + "/"}, 3, 30)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if !strings.HasPrefix(r.URL, server.URL) {
			t.Errorf("crawler left seed origin: %s", r.URL)
		}
	}
}

func TestCrawlFragmentDedup(t *testing.T) {
	server := testSite(t)
	c := New()

	// /jobs#openings must collapse onto /jobs and be fetched once.
	results, err := c.Crawl(context.Background(), []string{server.URL + "/jobs", server.URL + "/jobs#hiring"}, 1, 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("got %d pages, want 1: %+v", len(results), results)
	}
}

func TestCrawlNoValidRoots(t *testing.T) {
	c := New()
	if _, err := c.Crawl(context.Background(), []string{"ftp://example.com", "not a url"}, 2, 30); err == nil {
		t.Error("expected error for all-invalid roots")
	}
}
