package config

// Crawl request limits enforced by the caller-facing validation layer, not by
// the crawler itself.
const (
	MinCrawlDepth = 1
	MaxCrawlDepth = 5
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/wilmakb/data/knowledge.db"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1536
	}
	if cfg.Embedding.TimeoutSeconds == 0 {
		cfg.Embedding.TimeoutSeconds = 30
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Normalizer.Provider == "" {
		cfg.Normalizer.Provider = "anthropic"
	}
	if cfg.Normalizer.Model == "" {
		cfg.Normalizer.Model = "claude-3-5-haiku-latest"
	}
	if cfg.Normalizer.APIKeyEnv == "" {
		cfg.Normalizer.APIKeyEnv = "ANTHROPIC_API_KEY"
	}
	if cfg.Normalizer.MaxTokens == 0 {
		cfg.Normalizer.MaxTokens = 2048
	}
	if cfg.Normalizer.TimeoutSeconds == 0 {
		cfg.Normalizer.TimeoutSeconds = 60
	}
	if cfg.Crawler.Depth == 0 {
		cfg.Crawler.Depth = 2
	}
	if cfg.Crawler.MaxPages == 0 {
		cfg.Crawler.MaxPages = 30
	}
	if cfg.Crawler.UserAgent == "" {
		cfg.Crawler.UserAgent = "wilmakb-crawler/1.0"
	}
	if cfg.Crawler.TimeoutSeconds == 0 {
		cfg.Crawler.TimeoutSeconds = 15
	}
	if cfg.Indexing.ChunkSize == 0 {
		cfg.Indexing.ChunkSize = 200
	}
	if cfg.Indexing.ChunkOverlap == 0 {
		cfg.Indexing.ChunkOverlap = 20
	}
	if cfg.Retrieval.DefaultTopK == 0 {
		cfg.Retrieval.DefaultTopK = 5
	}
	if cfg.Retrieval.MaxTopK == 0 {
		cfg.Retrieval.MaxTopK = 50
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md"}
	}
	if cfg.Maintenance.Schedule == "" {
		cfg.Maintenance.Schedule = "0 3 * * *"
	}
}
