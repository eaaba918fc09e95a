// Package main is the wilmakb CLI entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/brendanmarry/withwilma-sub001/internal/cli"
	"github.com/brendanmarry/withwilma-sub001/internal/config"
	"github.com/brendanmarry/withwilma-sub001/internal/crawler"
	"github.com/brendanmarry/withwilma-sub001/internal/dedup"
	"github.com/brendanmarry/withwilma-sub001/internal/embedding"
	"github.com/brendanmarry/withwilma-sub001/internal/extractor"
	"github.com/brendanmarry/withwilma-sub001/internal/indexer"
	"github.com/brendanmarry/withwilma-sub001/internal/ingest"
	"github.com/brendanmarry/withwilma-sub001/internal/jobs"
	"github.com/brendanmarry/withwilma-sub001/internal/maintenance"
	"github.com/brendanmarry/withwilma-sub001/internal/models"
	"github.com/brendanmarry/withwilma-sub001/internal/normalizer"
	"github.com/brendanmarry/withwilma-sub001/internal/orglock"
	"github.com/brendanmarry/withwilma-sub001/internal/prompts"
	"github.com/brendanmarry/withwilma-sub001/internal/search"
	"github.com/brendanmarry/withwilma-sub001/internal/server"
	"github.com/brendanmarry/withwilma-sub001/internal/storage"
	"github.com/brendanmarry/withwilma-sub001/internal/watcher"
	"github.com/brendanmarry/withwilma-sub001/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/wilmakb/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml
// in the current directory wins if it exists, so running from the project
// directory picks up the project's config.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "server":
		runServer()
	case "crawl":
		runCrawl()
	case "search":
		runSearch()
	case "dedupe":
		runDedupe()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("wilmakb version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode))

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if len(cfg.Watch.Uploads) > 0 {
		dirs := make(map[string]string, len(cfg.Watch.Uploads))
		for _, upload := range cfg.Watch.Uploads {
			dirs[upload.Directory] = upload.OrganisationID
		}
		watch := watcher.New(dirs, cfg.Watch.Extensions, func(orgID, path string) {
			if _, err := components.Ingest.IngestFile(context.Background(), orgID, path); err != nil {
				logger.Warn("ingesting upload failed", zap.String("path", path), zap.Error(err))
			}
		}, watcher.WithLogger(logger))
		if err := watch.Start(ctx); err != nil {
			logger.Fatal("Failed to start upload watcher", zap.Error(err))
		}
		defer watch.Stop()
		watch.SyncExisting()
	}

	if cfg.Maintenance.Enabled {
		scheduler := maintenance.NewScheduler(components.Storage, components.Dedup, cfg.Maintenance.Schedule, logger)
		if err := scheduler.Start(ctx); err != nil {
			logger.Fatal("Failed to start maintenance scheduler", zap.Error(err))
		}
		defer scheduler.Stop()
	}

	srv := server.NewServer(
		components.Ingest,
		components.Retriever,
		components.Dedup,
		components.Storage,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

func runCrawl() {
	fs := flag.NewFlagSet("crawl", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	orgID := fs.String("org", "", "organisation id")
	mode := fs.String("mode", "knowledge", "crawl mode: jobs or knowledge")
	depth := fs.Int("depth", 0, "crawl depth (1-5, default from config)")
	maxPages := fs.Int("max-pages", 0, "maximum pages to fetch (default from config)")
	_ = fs.Parse(os.Args[2:])

	if *orgID == "" || fs.NArg() < 1 {
		fmt.Println("Usage: wilmakb crawl --org <id> [flags] <url> [url...]")
		os.Exit(1)
	}
	rootURLs := fs.Args()

	cfg, logger, components := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	if *depth == 0 {
		*depth = cfg.Crawler.Depth
	}
	if *maxPages == 0 {
		*maxPages = cfg.Crawler.MaxPages
	}
	if *depth < config.MinCrawlDepth || *depth > config.MaxCrawlDepth {
		fmt.Fprintf(os.Stderr, "depth must be between %d and %d\n", config.MinCrawlDepth, config.MaxCrawlDepth)
		os.Exit(1)
	}
	if *maxPages <= 0 {
		fmt.Fprintln(os.Stderr, "max-pages must be positive")
		os.Exit(1)
	}

	ctx := context.Background()
	switch *mode {
	case "jobs":
		result, err := components.Ingest.CrawlJobs(ctx, *orgID, rootURLs, *depth, *maxPages)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Crawl failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Upserted %d job(s), closed %d\n", result.Upserted, result.Closed)
	case "knowledge":
		stats, err := components.Ingest.CrawlKnowledge(ctx, *orgID, rootURLs, *depth, *maxPages)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Crawl failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Crawled %d page(s), indexed %d, failed %d\n",
			stats.PagesCrawled, stats.PagesIndexed, stats.PagesFailed)
	default:
		fmt.Fprintf(os.Stderr, "Unknown mode %q; use jobs or knowledge\n", *mode)
		os.Exit(1)
	}
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	orgID := fs.String("org", "", "organisation id")
	topK := fs.Int("top-k", 0, "number of results (default from config)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if *orgID == "" || fs.NArg() < 1 {
		fmt.Println("Usage: wilmakb search --org <id> [flags] <query>")
		os.Exit(1)
	}
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))

	_, logger, components := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	results, err := components.Retriever.Search(context.Background(), *orgID, query, *topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}

	if err := cli.WriteSearchResults(os.Stdout, results, cli.SearchOutputFormat(*outputFormat)); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runDedupe() {
	fs := flag.NewFlagSet("dedupe", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	orgID := fs.String("org", "", "organisation id (empty = all organisations)")
	_ = fs.Parse(os.Args[2:])

	_, logger, components := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	var result models.DedupResult
	var err error
	if *orgID != "" {
		result, err = components.Dedup.Deduplicate(ctx, *orgID)
	} else {
		scheduler := maintenance.NewScheduler(components.Storage, components.Dedup, "", logger)
		result, err = scheduler.RunOnce(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Dedupe failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Removed %d document(s), %d chunk(s), %d faq(s); updated %d faq(s)\n",
		result.RemovedDocuments, result.RemovedChunks, result.RemovedFaqs, result.UpdatedFaqs)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = use direct storage)`)
	_ = fs.Parse(os.Args[2:])

	if *serverURL != "" {
		resp, err := http.Get(*serverURL + "/api/v1/status")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		_, _ = io.Copy(os.Stdout, resp.Body)
		fmt.Println()
		return
	}

	_, logger, components := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	docCount, err := components.Storage.CountDocuments(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Count documents failed: %v\n", err)
		os.Exit(1)
	}
	chunkCount, err := components.Storage.CountChunks(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Count chunks failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("documents: %d\n", docCount)
	fmt.Printf("chunks:    %d\n", chunkCount)
}

// Components holds initialized services.
type Components struct {
	Storage   storage.Storage
	Embedder  embedding.Embedder
	Ingest    *ingest.Service
	Retriever *search.Retriever
	Dedup     *dedup.Deduplicator
}

func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func mustInitialize(configPath string) (*config.Config, *zap.Logger, *Components) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	return cfg, logger, components
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var embedder embedding.Embedder
	switch cfg.Embedding.Provider {
	case "mock":
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	default:
		openAI, err := embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			BaseURL:    cfg.Embedding.BaseURL,
			APIKeyEnv:  cfg.Embedding.APIKeyEnv,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Timeout:    time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		embedder = openAI
	}
	if cfg.Embedding.CacheSize > 0 {
		embedder = embedding.NewCachedEmbedder(embedder, cfg.Embedding.CacheSize)
	}

	promptStore := prompts.NewStore(cfg.Prompts.Directory)
	var norm normalizer.Normalizer
	switch cfg.Normalizer.Provider {
	case "mock":
		norm = normalizer.NewMockNormalizer()
	default:
		anthropicNorm, err := normalizer.NewAnthropicNormalizer(normalizer.AnthropicConfig{
			Model:     cfg.Normalizer.Model,
			APIKeyEnv: cfg.Normalizer.APIKeyEnv,
			MaxTokens: cfg.Normalizer.MaxTokens,
			Timeout:   time.Duration(cfg.Normalizer.TimeoutSeconds) * time.Second,
		}, promptStore, logger)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize normalizer: %w", err)
		}
		norm = anthropicNorm
	}

	crawl := crawler.New(
		crawler.WithUserAgent(cfg.Crawler.UserAgent),
		crawler.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Crawler.TimeoutSeconds) * time.Second}),
		crawler.WithLogger(logger),
	)
	locks := orglock.New()
	idx := indexer.NewIndexer(store, embedder, cfg.Indexing.ChunkSize, cfg.Indexing.ChunkOverlap,
		indexer.WithLogger(logger))
	svc := ingest.NewService(
		crawl,
		extractor.New(norm, extractor.WithLogger(logger)),
		jobs.NewSyncer(store, jobs.WithLogger(logger)),
		idx,
		store,
		locks,
		ingest.WithLogger(logger),
	)
	retriever := search.NewRetriever(store, embedder, cfg.Retrieval.DefaultTopK, cfg.Retrieval.MaxTopK,
		search.WithLogger(logger))
	deduplicator := dedup.New(store, locks, dedup.WithLogger(logger))

	return &Components{
		Storage:   store,
		Embedder:  embedder,
		Ingest:    svc,
		Retriever: retriever,
		Dedup:     deduplicator,
	}, nil
}

func printUsage() {
	fmt.Println(`wilmakb - knowledge ingestion and retrieval engine

Usage:
  wilmakb server [flags]                     Start the HTTP server
  wilmakb crawl --org <id> [flags] <url>...  Crawl a site into an organisation
  wilmakb search --org <id> [flags] <query>  Search an organisation's knowledge
  wilmakb dedupe [--org <id>]                Run a deduplication pass
  wilmakb status [flags]                     Show storage counts
  wilmakb version                            Show version
  wilmakb help                               Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/wilmakb/config.yaml)
  --debug            Enable debug logging

Crawl Flags:
  --config string    Config file path
  --org string       Organisation id (required)
  --mode string      jobs or knowledge (default: knowledge)
  --depth int        Crawl depth, 1-5 (default from config)
  --max-pages int    Maximum pages to fetch (default from config)

Search Flags:
  --config string    Config file path
  --org string       Organisation id (required)
  --top-k int        Number of results (default from config)
  --output string    text or json (default: text)

Examples:
  wilmakb server
  wilmakb crawl --org 7f3a --mode jobs https://acme.example/careers
  wilmakb search --org 7f3a "parental leave policy"
  wilmakb dedupe --org 7f3a
  wilmakb status`)
}
