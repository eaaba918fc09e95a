// Package config provides configuration loading and structs for the knowledge
// engine server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug       bool              `yaml:"debug"`
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Normalizer  NormalizerConfig  `yaml:"normalizer"`
	Crawler     CrawlerConfig     `yaml:"crawler"`
	Indexing    IndexingConfig    `yaml:"indexing"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Prompts     PromptsConfig     `yaml:"prompts"`
	Watch       WatchConfig       `yaml:"watch"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the database path.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// EmbeddingConfig holds embedding oracle settings.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // "openai" or "mock"
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	APIKeyEnv      string `yaml:"api_key_env"`
	Dimensions     int    `yaml:"dimensions"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	CacheSize      int    `yaml:"cache_size"`
}

// NormalizerConfig holds text-normalization oracle settings.
type NormalizerConfig struct {
	Provider       string `yaml:"provider"` // "anthropic" or "mock"
	Model          string `yaml:"model"`
	APIKeyEnv      string `yaml:"api_key_env"`
	MaxTokens      int    `yaml:"max_tokens"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// CrawlerConfig holds crawl ceilings and fetch settings. Depth and MaxPages
// are defaults; callers may pass their own within the validation limits.
type CrawlerConfig struct {
	Depth          int    `yaml:"depth"`
	MaxPages       int    `yaml:"max_pages"`
	UserAgent      string `yaml:"user_agent"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// IndexingConfig holds chunking settings.
type IndexingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// RetrievalConfig holds retrieval settings.
type RetrievalConfig struct {
	DefaultTopK int `yaml:"default_top_k"`
	MaxTopK     int `yaml:"max_top_k"`
}

// PromptsConfig holds the prompt template directory.
type PromptsConfig struct {
	Directory string `yaml:"directory"`
}

// UploadDirConfig maps a watched directory to the organisation whose
// knowledge base receives its files.
type UploadDirConfig struct {
	Directory      string `yaml:"directory"`
	OrganisationID string `yaml:"organisation_id"`
}

// WatchConfig holds upload-directory watch settings.
type WatchConfig struct {
	Uploads    []UploadDirConfig `yaml:"uploads"`
	Extensions []string          `yaml:"extensions"`
}

// MaintenanceConfig holds the dedup scheduler settings.
type MaintenanceConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"` // cron expression
}

// Load reads and parses the config file at path, expands paths, and applies
// defaults. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Prompts.Directory = expandPath(cfg.Prompts.Directory, configDir)
	for i := range cfg.Watch.Uploads {
		cfg.Watch.Uploads[i].Directory = expandPath(cfg.Watch.Uploads[i].Directory, configDir)
	}

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
