package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testOpenAIServer(t *testing.T, handler http.HandlerFunc) *OpenAIEmbedder {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("TEST_EMBED_KEY", "test-key")
	e, err := NewOpenAIEmbedder(OpenAIConfig{
		BaseURL:    srv.URL,
		APIKeyEnv:  "TEST_EMBED_KEY",
		Model:      "test-model",
		Dimensions: 3,
	})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestOpenAIEmbedBatch(t *testing.T) {
	var gotInputs []string
	e := testOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotInputs = req.Input
		resp := map[string]interface{}{
			"data": []map[string]interface{}{
				// Deliberately out of order; client must realign by index.
				{"index": 1, "embedding": []float32{0, 1, 0}},
				{"index": 0, "embedding": []float32{1, 0, 0}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	out, err := e.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatal(err)
	}
	if len(gotInputs) != 2 {
		t.Errorf("server received %d inputs, want 2", len(gotInputs))
	}
	if out[0][0] != 1 || out[1][1] != 1 {
		t.Errorf("embeddings misaligned: %v", out)
	}
}

func TestOpenAIEmbedEmptyInputSkipsRequest(t *testing.T) {
	called := false
	e := testOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	out, err := e.Embed(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Errorf("got %d embeddings for empty input", len(out))
	}
	if called {
		t.Error("HTTP request made for empty input")
	}
}

func TestOpenAIEmbedErrorStatus(t *testing.T) {
	e := testOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "over quota", http.StatusTooManyRequests)
	})
	_, err := e.Embed(context.Background(), []string{"text"})
	if !errors.Is(err, ErrOracle) {
		t.Errorf("error = %v, want ErrOracle", err)
	}
}

func TestOpenAIEmbedCountMismatch(t *testing.T) {
	e := testOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{{"index": 0, "embedding": []float32{1}}},
		})
	})
	_, err := e.Embed(context.Background(), []string{"a", "b"})
	if !errors.Is(err, ErrOracle) {
		t.Errorf("error = %v, want ErrOracle for count mismatch", err)
	}
}

func TestNewOpenAIEmbedderMissingKey(t *testing.T) {
	t.Setenv("TEST_EMBED_MISSING", "")
	if _, err := NewOpenAIEmbedder(OpenAIConfig{APIKeyEnv: "TEST_EMBED_MISSING"}); err == nil {
		t.Error("expected error for missing API key")
	}
}
