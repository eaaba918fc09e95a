package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefault(t *testing.T) {
	s := NewStore("")
	p, err := s.Load(PromptJobNormalize)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(p, "is_valid_job_posting") {
		t.Error("default prompt missing schema field")
	}
}

func TestLoadUnknownName(t *testing.T) {
	s := NewStore("")
	if _, err := s.Load("does-not-exist"); err == nil {
		t.Error("expected error for unknown prompt name")
	}
}

func TestInitialiseWritesDefaults(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	if _, err := s.Load(PromptJobNormalize); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, PromptJobNormalize+".txt")); err != nil {
		t.Errorf("default file not written: %v", err)
	}
}

func TestFileOverridesDefault(t *testing.T) {
	dir := t.TempDir()
	custom := "custom template %s"
	if err := os.WriteFile(filepath.Join(dir, PromptJobNormalize+".txt"), []byte(custom), 0644); err != nil {
		t.Fatal(err)
	}
	s := NewStore(dir)
	p, err := s.Load(PromptJobNormalize)
	if err != nil {
		t.Fatal(err)
	}
	if p != custom {
		t.Errorf("Load = %q, want custom file content", p)
	}
}

func TestLoadCaches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, PromptJobNormalize+".txt")
	if err := os.WriteFile(path, []byte("v1 %s"), 0644); err != nil {
		t.Fatal(err)
	}
	s := NewStore(dir)
	if _, err := s.Load(PromptJobNormalize); err != nil {
		t.Fatal(err)
	}
	// Changing the file after the first load must not change the cached value.
	if err := os.WriteFile(path, []byte("v2 %s"), 0644); err != nil {
		t.Fatal(err)
	}
	p, err := s.Load(PromptJobNormalize)
	if err != nil {
		t.Fatal(err)
	}
	if p != "v1 %s" {
		t.Errorf("Load = %q, want cached v1", p)
	}
}
