package indexer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/brendanmarry/withwilma-sub001/internal/embedding"
	"github.com/brendanmarry/withwilma-sub001/internal/models"
	"github.com/brendanmarry/withwilma-sub001/internal/storage"
)

func testStore(t *testing.T) (storage.Storage, string) {
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
	return store, org.ID
}

func TestIngestDocument(t *testing.T) {
	store, orgID := testStore(t)
	idx := NewIndexer(store, embedding.NewMockEmbedder(8), 5, 1)
	ctx := context.Background()

	doc, err := idx.IngestDocument(ctx, &models.DocumentInput{
		OrganisationID: orgID,
		SourceType:     models.SourceTypeUpload,
		Content:        "alpha beta gamma delta epsilon zeta eta theta iota kappa",
		Metadata:       map[string]interface{}{"filename": "notes.txt"},
	})
	if err != nil {
		t.Fatal(err)
	}

	chunks, err := store.GetChunksByDocumentID(ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(chunks))
	}
	for i, ch := range chunks {
		if len(ch.Embedding) != 8 {
			t.Errorf("chunk %d embedding dimensions = %d, want 8", i, len(ch.Embedding))
		}
		if ch.ChunkID == "" || ch.Content == "" {
			t.Errorf("chunk %d incomplete: %+v", i, ch)
		}
	}
}

func TestIndexReplacesExistingChunks(t *testing.T) {
	store, orgID := testStore(t)
	idx := NewIndexer(store, embedding.NewMockEmbedder(4), 200, 20)
	ctx := context.Background()

	doc, err := idx.IngestDocument(ctx, &models.DocumentInput{
		OrganisationID: orgID,
		SourceType:     models.SourceTypeCrawl,
		Content:        "original content here",
	})
	if err != nil {
		t.Fatal(err)
	}

	replacement := []models.ChunkInput{
		{ChunkID: doc.ID + "_0000", Content: "replacement text"},
	}
	if err := idx.Index(ctx, doc.ID, replacement); err != nil {
		t.Fatal(err)
	}
	if err := idx.Index(ctx, doc.ID, replacement); err != nil {
		t.Fatal(err)
	}

	chunks, err := store.GetChunksByDocumentID(ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 || chunks[0].Content != "replacement text" {
		t.Errorf("chunks after repeated index: %+v", chunks)
	}
}

// brokenEmbedder always fails, simulating an oracle outage.
type brokenEmbedder struct{}

func (brokenEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("oracle unavailable")
}
func (brokenEmbedder) Dimensions() int { return 4 }
func (brokenEmbedder) Close() error    { return nil }

func TestIndexFailsSafeToEmpty(t *testing.T) {
	store, orgID := testStore(t)
	ctx := context.Background()

	good := NewIndexer(store, embedding.NewMockEmbedder(4), 200, 20)
	doc, err := good.IngestDocument(ctx, &models.DocumentInput{
		OrganisationID: orgID,
		SourceType:     models.SourceTypeUpload,
		Content:        "some indexed content",
	})
	if err != nil {
		t.Fatal(err)
	}

	bad := NewIndexer(store, brokenEmbedder{}, 200, 20)
	err = bad.Index(ctx, doc.ID, []models.ChunkInput{{ChunkID: doc.ID + "_0000", Content: "new text"}})
	if err == nil {
		t.Fatal("oracle failure must propagate")
	}

	// The failed run must leave zero chunks, never the stale set.
	count, err := store.CountChunksByDocumentID(ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("chunks after failed index = %d, want 0", count)
	}
}

func TestIndexEmptyChunkSet(t *testing.T) {
	store, orgID := testStore(t)
	idx := NewIndexer(store, embedding.NewMockEmbedder(4), 200, 20)
	ctx := context.Background()

	doc, err := idx.IngestDocument(ctx, &models.DocumentInput{
		OrganisationID: orgID,
		SourceType:     models.SourceTypeUpload,
		Content:        "content",
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := idx.Index(ctx, doc.ID, nil); err != nil {
		t.Fatalf("empty chunk set must not error: %v", err)
	}
	count, _ := store.CountChunksByDocumentID(ctx, doc.ID)
	if count != 0 {
		t.Errorf("chunks = %d, want 0", count)
	}
}
