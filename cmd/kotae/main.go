// Package main is the kotae CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
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

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/corpus"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/packer"
	"github.com/hyperjump/kotae/internal/pipeline"
	"github.com/hyperjump/kotae/internal/retrieval"
	"github.com/hyperjump/kotae/internal/rewrite"
	"github.com/hyperjump/kotae/internal/schema"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/sqlcheck"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/hyperjump/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so that "kotae server" from the project dir uses the project's
// config. Returns the config and the path that was actually loaded.
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
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "index":
		runIndex()
	case "ask":
		runAsk()
	case "validate":
		runValidate()
	case "status":
		runStatus()
	case "reload":
		runReload()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
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
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watchSvc *watcher.Watcher
	if cfg.Watch.Enabled {
		watchSvc = watcher.NewWatcher(cfg.Watch.Debounce(), logger)
		schemaMgr := components.SchemaMgr
		corpusMgr := components.CorpusMgr
		if err := watchSvc.Watch(cfg.Storage.SchemaPath, func() {
			if err := schemaMgr.Reload(); err != nil {
				logger.Warn("schema reload failed, previous snapshot kept", zap.Error(err))
			}
		}); err != nil {
			logger.Fatal("Failed to watch schema file", zap.Error(err))
		}
		if err := watchSvc.Watch(cfg.Storage.DatabasePath, func() {
			if err := corpusMgr.Reload(context.Background()); err != nil {
				logger.Warn("corpus reload failed, previous snapshot kept", zap.Error(err))
			}
		}); err != nil {
			logger.Fatal("Failed to watch corpus database", zap.Error(err))
		}
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.NewServer(
		components.Assistant,
		components.Retriever,
		components.Validator,
		components.SchemaMgr,
		components.CorpusMgr,
		components.Registry,
		&cfg.Server,
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
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae index [flags] <corpus.json>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	records, err := corpus.LoadRecords(path)
	if err != nil {
		fmt.Printf("Failed to load corpus records: %v\n", err)
		os.Exit(1)
	}

	store, err := corpus.NewStore(cfg.Storage.DatabasePath)
	if err != nil {
		fmt.Printf("Failed to open corpus database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	embedder := newEmbedder(cfg, logger)
	n, err := corpus.Ingest(context.Background(), records, embedder, store, logger)
	if err != nil {
		fmt.Printf("Indexing failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Indexed %d document(s) into %s\n", n, cfg.Storage.DatabasePath)
}

func runAsk() {
	args := os.Args[2:]
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae ask [flags] <question>")
		fmt.Println("  Prefix with @explain or @fix to switch mode, e.g. kotae ask @explain \"...\"")
		os.Exit(1)
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fmt.Println("Usage: kotae ask [flags] <question>")
		os.Exit(1)
	}

	body, _ := json.Marshal(map[string]string{"question": question})
	resp, err := http.Post(*serverURL+"/api/v1/ask", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}

	var result pipeline.AskResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		fmt.Fprintf(os.Stderr, "Decode response: %v\n", err)
		os.Exit(1)
	}

	if err := cli.WriteAskResult(os.Stdout, &result, cli.OutputFormat(*outputFormat)); err != nil {
		fmt.Fprintf(os.Stderr, "Write output: %v\n", err)
		os.Exit(1)
	}
}

func runValidate() {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	level := fs.String("level", "strict", "validation level: strict or basic")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae validate [flags] <sql>")
		os.Exit(1)
	}
	sql := strings.TrimSpace(strings.Join(fs.Args(), " "))

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	parsedLevel, err := models.ParseValidationLevel(*level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	schemaMgr, err := schema.NewManager(cfg.Storage.SchemaPath, logger)
	if err != nil {
		fmt.Printf("Failed to load schema: %v\n", err)
		os.Exit(1)
	}
	validator := sqlcheck.NewValidator(schemaMgr, logger)
	result := validator.Validate(sql, parsedLevel)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	if !result.IsValid {
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(strings.TrimSpace(string(b)))
}

func runReload() {
	fs := flag.NewFlagSet("reload", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Post(*serverURL+"/api/v1/reload", "application/json", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(strings.TrimSpace(string(b)))
	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Store     *corpus.Store
	SchemaMgr *schema.Manager
	CorpusMgr *corpus.Manager
	Retriever *retrieval.Retriever
	Validator *sqlcheck.Validator
	Assistant *pipeline.Assistant
	Registry  *prometheus.Registry
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func newEmbedder(cfg *config.Config, logger *zap.Logger) embedding.Embedder {
	var embedder embedding.Embedder = embedding.NewOpenAIEmbedder(&embedding.Config{
		APIKey:     os.Getenv(cfg.Embedding.APIKeyEnv),
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		MaxRetries: cfg.Embedding.MaxRetries,
		Logger:     logger,
	})
	if cfg.Embedding.CacheSize > 0 {
		embedder = embedding.NewCachedEmbedder(embedder, cfg.Embedding.CacheSize)
	}
	return embedder
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	registry := prometheus.NewRegistry()
	metrics.Register(registry)

	schemaMgr, err := schema.NewManager(cfg.Storage.SchemaPath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	store, err := corpus.NewStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus database: %w", err)
	}
	corpusMgr, err := corpus.NewManager(context.Background(), store, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to build corpus snapshot: %w", err)
	}

	embedder := newEmbedder(cfg, logger)
	generator := llm.NewClient(&llm.Config{
		APIKey:     os.Getenv(cfg.LLM.APIKeyEnv),
		BaseURL:    cfg.LLM.BaseURL,
		Model:      cfg.LLM.Model,
		MaxTokens:  cfg.LLM.MaxTokens,
		Timeout:    time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		MaxRetries: cfg.LLM.MaxRetries,
		Logger:     logger,
	})

	retriever := retrieval.NewRetriever(corpusMgr, schemaMgr, embedder, retrieval.Config{
		TopKCandidates: cfg.Search.TopKCandidates,
		DefaultK:       cfg.Search.DefaultK,
		MaxK:           cfg.Search.MaxK,
	}, logger)

	validator := sqlcheck.NewValidator(schemaMgr, logger)
	pack := packer.NewPacker(packer.Config{
		TokenBudget: cfg.Packer.TokenBudget,
		SchemaShare: cfg.Packer.SchemaShare,
	}, logger)

	var rewriter *rewrite.Rewriter
	if cfg.LLM.RewriteEnabled {
		rewriter = rewrite.NewRewriter(generator, 0, logger)
	}

	level, err := models.ParseValidationLevel(cfg.Validation.Level)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	assistant := pipeline.NewAssistant(rewriter, retriever, pack, validator, generator, schemaMgr, pipeline.Config{
		K:              cfg.Search.DefaultK,
		DedupThreshold: cfg.Search.DedupThreshold,
		RewriteEnabled: cfg.LLM.RewriteEnabled,
		Weights: &models.SearchWeights{
			VectorWeight:  cfg.Search.VectorWeight,
			KeywordWeight: cfg.Search.KeywordWeight,
			AutoAdjust:    cfg.Search.AutoAdjustOrDefault(),
		},
		Level: level,
	}, logger)

	return &Components{
		Store:     store,
		SchemaMgr: schemaMgr,
		CorpusMgr: corpusMgr,
		Retriever: retriever,
		Validator: validator,
		Assistant: assistant,
		Registry:  registry,
	}, nil
}

func printUsage() {
	fmt.Println(`kotae - NL-question to validated SQL assistant

Usage:
  kotae server [flags]            Start the HTTP server
  kotae index [flags] <corpus>    Build the corpus index from a JSON corpus file
  kotae ask [flags] <question>    Ask a question (talks to a running server)
  kotae validate [flags] <sql>    Validate SQL against the schema catalog
  kotae status [flags]            Show server snapshot status
  kotae reload [flags]            Trigger a snapshot reload on the server
  kotae version                   Show version
  kotae help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml)
  --debug            Enable debug logging

Index Flags:
  --config string    Config file path

Ask Flags:
  --server string    Server URL (default: http://localhost:8080)
  --output string    Output format: text or json (default: text)

Validate Flags:
  --config string    Config file path
  --level string     Validation level: strict or basic (default: strict)

Examples:
  kotae server
  kotae index ./corpus.json
  kotae ask "total revenue by month this year"
  kotae ask @explain "what does the orders table hold"
  kotae ask @fix "SELECT * FROM oders"
  kotae validate "SELECT * FROM analytics.orders"
  kotae status`)
}
