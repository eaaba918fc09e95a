package extractor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/brendanmarry/withwilma-sub001/internal/models"
)

// scriptedNormalizer returns canned records keyed by a substring of the raw
// text, so tests control validity and clean-text length per candidate.
type scriptedNormalizer struct {
	records map[string]*models.NormalisedJob
	err     error
	calls   int
}

func (s *scriptedNormalizer) Normalize(_ context.Context, rawText string) (*models.NormalisedJob, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	for key, rec := range s.records {
		if strings.Contains(rawText, key) {
			return rec, nil
		}
	}
	return &models.NormalisedJob{Title: "Other", CleanText: rawText, IsValidJobPosting: false}, nil
}

const careersPage = `<html><body>
<div class="job-listing">
	<h3>Backend Engineer</h3>
	<span class="location">Dublin</span>
	<ul>
		<li>Design and build Go services</li>
		<li>Own the deployment pipeline end to end</li>
	</ul>
</div>
<div class="job-listing">
	<h2>Product Designer</h2>
	<p>Shape the hiring experience for thousands of candidates across Europe.</p>
</div>
<li>Contact us</li>
</body></html>`

func TestExtractFiltersAndNormalizes(t *testing.T) {
	n := &scriptedNormalizer{records: map[string]*models.NormalisedJob{
		"Backend Engineer": {Title: "Backend Engineer", Location: "Dublin", CleanText: "backend role text", IsValidJobPosting: true},
		"Product Designer": {Title: "Product Designer", CleanText: "designer role text", IsValidJobPosting: true},
	}}
	e := New(n)

	jobs, err := e.Extract(context.Background(), careersPage, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 2 {
		t.Fatalf("got %d jobs, want 2: %+v", len(jobs), jobs)
	}
	if jobs[0].Normalised.Title != "Backend Engineer" || jobs[1].Normalised.Title != "Product Designer" {
		t.Errorf("titles: %s, %s", jobs[0].Normalised.Title, jobs[1].Normalised.Title)
	}
	if jobs[0].Raw.Location != "Dublin" {
		t.Errorf("raw location = %q", jobs[0].Raw.Location)
	}
	if !strings.Contains(jobs[0].Raw.Description, "Go services") {
		t.Errorf("raw description: %q", jobs[0].Raw.Description)
	}
}

func TestExtractDropsInvalidPostings(t *testing.T) {
	n := &scriptedNormalizer{records: map[string]*models.NormalisedJob{
		"Backend Engineer": {Title: "Backend Engineer", CleanText: "x", IsValidJobPosting: true},
		"Product Designer": {Title: "Product Designer", CleanText: "x", IsValidJobPosting: false},
	}}
	e := New(n)

	jobs, err := e.Extract(context.Background(), careersPage, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 || jobs[0].Normalised.Title != "Backend Engineer" {
		t.Errorf("jobs: %+v", jobs)
	}
}

func TestExtractDedupesByTitleKeepingLongest(t *testing.T) {
	// The outer section and its inner div both match the candidate selector,
	// so the same posting is seen twice with different clean-text lengths.
	page := `<html><body>
	<section>
		<div class="job-card">
			<h3>Backend Engineer</h3>
			<p>Design and build Go services for our recruiting platform.</p>
		</div>
	</section>
	</body></html>`

	shorter := &models.NormalisedJob{Title: "backend engineer", CleanText: "short", IsValidJobPosting: true}
	longer := &models.NormalisedJob{Title: " Backend Engineer ", CleanText: "much longer clean text", IsValidJobPosting: true}
	n := &togglingNormalizer{first: shorter, rest: longer}
	e := New(n)

	jobs, err := e.Extract(context.Background(), page, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 {
		t.Fatalf("got %d jobs, want 1: %+v", len(jobs), jobs)
	}
	if jobs[0].Normalised.CleanText != "much longer clean text" {
		t.Errorf("kept clean text %q, want the longest", jobs[0].Normalised.CleanText)
	}
}

// togglingNormalizer returns one record for the first call and another for
// every later call.
type togglingNormalizer struct {
	first, rest *models.NormalisedJob
	calls       int
}

func (n *togglingNormalizer) Normalize(_ context.Context, _ string) (*models.NormalisedJob, error) {
	n.calls++
	if n.calls == 1 {
		return n.first, nil
	}
	return n.rest, nil
}

func TestExtractWholePageFallback(t *testing.T) {
	// No candidate passes the heuristic gate, so the whole page becomes the
	// single candidate.
	page := `<html><head><title>Backend Engineer at Acme</title></head><body>
	<p>Tiny.</p>
	</body></html>`

	n := &scriptedNormalizer{records: map[string]*models.NormalisedJob{
		"Acme": {Title: "Backend Engineer", CleanText: "x", IsValidJobPosting: true},
	}}
	e := New(n)

	jobs, err := e.Extract(context.Background(), page, false)
	if err != nil {
		t.Fatal(err)
	}
	if n.calls != 1 {
		t.Errorf("oracle called %d times, want 1", n.calls)
	}
	if len(jobs) != 1 || jobs[0].Normalised.Title != "Backend Engineer" {
		t.Errorf("jobs: %+v", jobs)
	}
}

func TestExtractForceSinglePage(t *testing.T) {
	n := &scriptedNormalizer{records: map[string]*models.NormalisedJob{
		"Backend Engineer": {Title: "Backend Engineer", CleanText: "x", IsValidJobPosting: true},
	}}
	e := New(n)

	// forceSinglePage adds the full page as an extra candidate on top of the
	// heuristic ones.
	if _, err := e.Extract(context.Background(), careersPage, true); err != nil {
		t.Fatal(err)
	}
	if n.calls < 3 {
		t.Errorf("oracle called %d times, want heuristic candidates plus whole page", n.calls)
	}
}

func TestExtractToleratesOracleErrors(t *testing.T) {
	n := &scriptedNormalizer{err: errors.New("oracle down")}
	e := New(n)

	jobs, err := e.Extract(context.Background(), careersPage, false)
	if err != nil {
		t.Fatalf("per-candidate oracle failure must not fail the page: %v", err)
	}
	if len(jobs) != 0 {
		t.Errorf("jobs: %+v", jobs)
	}
}
