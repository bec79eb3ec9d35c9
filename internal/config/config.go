// Package config provides configuration loading and structs for the kotae server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	LLM        LLMConfig        `yaml:"llm"`
	Search     SearchConfig     `yaml:"search"`
	Packer     PackerConfig     `yaml:"packer"`
	Validation ValidationConfig `yaml:"validation"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the corpus database and schema source.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	SchemaPath   string `yaml:"schema_path"`
}

// EmbeddingConfig holds settings for the OpenAI-compatible embedding endpoint.
type EmbeddingConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKeyEnv  string `yaml:"api_key_env"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	CacheSize  int    `yaml:"cache_size"`
	MaxRetries int    `yaml:"max_retries"`
	TimeoutSec int    `yaml:"timeout_seconds"`
}

// LLMConfig holds settings for the text-generation endpoint.
type LLMConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	Model          string `yaml:"model"`
	MaxTokens      int    `yaml:"max_tokens"`
	TimeoutSec     int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
	RewriteEnabled bool   `yaml:"rewrite_enabled"`
}

// SearchConfig holds retrieval settings.
type SearchConfig struct {
	DefaultK       int     `yaml:"default_k"`
	MaxK           int     `yaml:"max_k"`
	TopKCandidates int     `yaml:"top_k_candidates"`
	VectorWeight   float64 `yaml:"vector_weight"`
	KeywordWeight  float64 `yaml:"keyword_weight"`
	AutoAdjust     *bool   `yaml:"auto_adjust"`
	DedupThreshold float64 `yaml:"dedup_threshold"`
}

// PackerConfig holds context packing settings.
type PackerConfig struct {
	TokenBudget int     `yaml:"token_budget"`
	SchemaShare float64 `yaml:"schema_share"`
}

// ValidationConfig holds SQL validation settings.
type ValidationConfig struct {
	Level string `yaml:"level"`
}

// WatchConfig holds reload watch settings for the schema and corpus files.
type WatchConfig struct {
	Enabled    bool `yaml:"enabled"`
	DebounceMS int  `yaml:"debounce_ms"`
}

// AutoAdjustOrDefault returns whether weight auto-adjust is on; defaults to
// true when unset.
func (s *SearchConfig) AutoAdjustOrDefault() bool {
	if s.AutoAdjust != nil {
		return *s.AutoAdjust
	}
	return true
}

// Debounce returns the watch debounce interval.
func (w *WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMS) * time.Millisecond
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
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
	cfg.Storage.SchemaPath = expandPath(cfg.Storage.SchemaPath, configDir)

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
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
