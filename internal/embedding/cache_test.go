package embedding

import (
	"context"
	"testing"
)

func TestCacheEviction(t *testing.T) {
	c := NewCache(2)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})
	c.Set("c", []float32{3})

	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry not evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("entry b missing")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("entry c missing")
	}
}

func TestCacheLRUOrder(t *testing.T) {
	c := NewCache(2)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})
	c.Get("a") // a is now most recently used
	c.Set("c", []float32{3})

	if _, ok := c.Get("a"); !ok {
		t.Error("recently used entry evicted")
	}
	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry not evicted")
	}
}

// countingEmbedder wraps MockEmbedder and counts oracle calls and texts.
type countingEmbedder struct {
	*MockEmbedder
	calls int
	texts int
}

func (e *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	e.texts += len(texts)
	return e.MockEmbedder.Embed(ctx, texts)
}

func TestCachedEmbedderOnlyFetchesMisses(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(8)}
	cached := NewCachedEmbedder(inner, 100)
	ctx := context.Background()

	first, err := cached.Embed(ctx, []string{"alpha", "beta"})
	if err != nil {
		t.Fatal(err)
	}
	if inner.calls != 1 || inner.texts != 2 {
		t.Errorf("first pass: calls=%d texts=%d", inner.calls, inner.texts)
	}

	second, err := cached.Embed(ctx, []string{"alpha", "gamma"})
	if err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 || inner.texts != 3 {
		t.Errorf("second pass: calls=%d texts=%d, want one extra text only", inner.calls, inner.texts)
	}
	for i := range first[0] {
		if first[0][i] != second[0][i] {
			t.Fatal("cached embedding differs from original")
		}
	}
}

func TestCachedEmbedderAllHitsSkipsOracle(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(8)}
	cached := NewCachedEmbedder(inner, 100)
	ctx := context.Background()

	if _, err := cached.Embed(ctx, []string{"x"}); err != nil {
		t.Fatal(err)
	}
	if _, err := cached.Embed(ctx, []string{"x"}); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 1 {
		t.Errorf("oracle called %d times, want 1", inner.calls)
	}
}

func TestMockEmbedderDeterministic(t *testing.T) {
	e := NewMockEmbedder(16)
	ctx := context.Background()
	a, err := e.Embed(ctx, []string{"same text"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(ctx, []string{"same text"})
	if err != nil {
		t.Fatal(err)
	}
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatal("mock embedder not deterministic")
		}
	}
	if len(a[0]) != 16 {
		t.Errorf("dimension = %d, want 16", len(a[0]))
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	e := NewMockEmbedder(8)
	out, err := e.Embed(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Errorf("empty input returned %d embeddings", len(out))
	}
}
