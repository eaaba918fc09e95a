// Package prompts provides a read-through cache for LLM prompt templates
// loaded from user-editable files with embedded defaults.
package prompts

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Known prompt names.
const (
	PromptJobNormalize = "job_normalize"
)

// defaultPrompts contains embedded default templates, used when no file
// exists for a name and as initial content for new files.
var defaultPrompts = map[string]string{
	PromptJobNormalize: `You are a job posting normalizer for a recruiting platform.
Given the raw text of a possible job posting, return ONLY a JSON object with
exactly these fields and no other text:

{
  "title": string,
  "department": string,
  "location": string,
  "employment_type": string,
  "summary": string,
  "responsibilities": [string],
  "requirements": [string],
  "nice_to_have": [string],
  "seniority_level": string,
  "clean_text": string,
  "is_valid_job_posting": boolean,
  "confidence": number
}

Set is_valid_job_posting to false when the text is not actually a job posting
(navigation text, company boilerplate, news, etc.). clean_text is the posting
rewritten as clean plain text. Raw text follows:

%s`,
}

// Store loads prompt templates from a directory with fallback to embedded
// defaults. It is an explicit read-through cache: constructed once at startup
// and passed by reference to callers.
type Store struct {
	dir      string
	mu       sync.RWMutex
	cache    map[string]string
	initOnce sync.Once
	initErr  error
}

// NewStore creates a prompt store reading from dir. If dir is empty, only
// embedded defaults are served. No I/O happens until the first Load.
func NewStore(dir string) *Store {
	return &Store{
		dir:   dir,
		cache: make(map[string]string),
	}
}

// Load returns the template for name. The first call initialises the prompt
// directory, writing default files for any missing names so operators can
// edit them. Results are cached for the life of the store.
func (s *Store) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		if p, ok := defaultPrompts[name]; ok {
			return p, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	s.mu.RLock()
	if p, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return p, nil
	}
	s.mu.RUnlock()

	p, err := s.loadFromFile(name)
	if err != nil {
		if def, ok := defaultPrompts[name]; ok {
			return def, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	s.mu.Lock()
	if _, ok := s.cache[name]; !ok {
		s.cache[name] = p
	}
	p = s.cache[name]
	s.mu.Unlock()
	return p, nil
}

func (s *Store) initialise() {
	if s.dir == "" {
		return
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		s.initErr = err
		return
	}
	for name, content := range defaultPrompts {
		path := s.path(name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				s.initErr = err
				return
			}
		}
	}
}

func (s *Store) loadFromFile(name string) (string, error) {
	if s.dir == "" {
		return "", os.ErrNotExist
	}
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}
