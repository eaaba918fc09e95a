package jobs

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/brendanmarry/withwilma-sub001/internal/models"
	"github.com/brendanmarry/withwilma-sub001/internal/storage"
)

func testSetup(t *testing.T) (*Syncer, storage.Storage, string) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "kb.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	org := &models.Organisation{ID: uuid.New().String(), Name: "Acme"}
	if err := store.CreateOrganisation(context.Background(), org); err != nil {
		t.Fatal(err)
	}
	return NewSyncer(store), store, org.ID
}

func extracted(title, location, cleanText string) models.ExtractedJob {
	return models.ExtractedJob{
		Normalised: models.NormalisedJob{
			Title:             title,
			Location:          location,
			CleanText:         cleanText,
			IsValidJobPosting: true,
		},
	}
}

func TestSyncUpsertsAndCloses(t *testing.T) {
	syncer, store, orgID := testSetup(t)
	ctx := context.Background()

	first, err := syncer.Sync(ctx, orgID, "https://acme.example/careers", []models.ExtractedJob{
		extracted("Backend Engineer", "Dublin", "v1"),
		extracted("Product Designer", "", "v1"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if first.Upserted != 2 || first.Closed != 0 {
		t.Errorf("first sync: %+v", first)
	}

	// Second scrape: designer is gone, engineer description changed.
	second, err := syncer.Sync(ctx, orgID, "https://acme.example/careers", []models.ExtractedJob{
		extracted("Backend Engineer", "Dublin", "v2"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if second.Upserted != 1 || second.Closed != 1 {
		t.Errorf("second sync: %+v", second)
	}

	jobs, err := store.ListJobsByOrganisation(ctx, orgID)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 2 {
		t.Fatalf("got %d jobs, want 2", len(jobs))
	}
	for _, j := range jobs {
		switch j.Title {
		case "Backend Engineer":
			if j.Status != models.JobStatusOpen || j.CleanText != "v2" {
				t.Errorf("engineer: status=%s clean=%q", j.Status, j.CleanText)
			}
		case "Product Designer":
			if j.Status != models.JobStatusClosed {
				t.Errorf("designer status = %s, want closed", j.Status)
			}
		default:
			t.Errorf("unexpected job %q", j.Title)
		}
	}
}

func TestSyncReopensReturnedPosting(t *testing.T) {
	syncer, store, orgID := testSetup(t)
	ctx := context.Background()

	if _, err := syncer.Sync(ctx, orgID, "", []models.ExtractedJob{extracted("Backend Engineer", "Dublin", "v1")}); err != nil {
		t.Fatal(err)
	}
	if _, err := syncer.Sync(ctx, orgID, "", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := syncer.Sync(ctx, orgID, "", []models.ExtractedJob{extracted("Backend Engineer", "Dublin", "v3")}); err != nil {
		t.Fatal(err)
	}

	jobs, err := store.ListJobsByOrganisation(ctx, orgID)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 {
		t.Fatalf("got %d jobs, want 1", len(jobs))
	}
	if jobs[0].Status != models.JobStatusOpen || jobs[0].CleanText != "v3" {
		t.Errorf("job after reopen: %+v", jobs[0])
	}
}

func TestSyncEmptyScrapeClosesEverything(t *testing.T) {
	syncer, _, orgID := testSetup(t)
	ctx := context.Background()

	if _, err := syncer.Sync(ctx, orgID, "", []models.ExtractedJob{
		extracted("A", "", ""),
		extracted("B", "", ""),
	}); err != nil {
		t.Fatal(err)
	}
	result, err := syncer.Sync(ctx, orgID, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Closed != 2 {
		t.Errorf("closed = %d, want 2", result.Closed)
	}
}
