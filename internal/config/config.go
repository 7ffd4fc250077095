// Package config provides configuration loading and structs for pagesift.
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
	Store      StoreConfig      `yaml:"store"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Ollama     OllamaConfig     `yaml:"ollama"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// StorageConfig selects the vector store backend and its locations.
type StorageConfig struct {
	// Backend is "local" or "postgres".
	Backend       string `yaml:"backend"`
	DatabasePath  string `yaml:"database_path"`
	IndexPath     string `yaml:"index_path"`
	TextIndexPath string `yaml:"text_index_path"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	Collection    string `yaml:"collection"`
}

// StoreConfig holds vector store behavior.
type StoreConfig struct {
	// Dedup is "nearest" or "exact".
	Dedup string `yaml:"dedup"`
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	// Provider is "mock", "onnx" or "ollama".
	Provider   string `yaml:"provider"`
	ModelPath  string `yaml:"model_path"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// ClassifierConfig holds topic classifier settings.
type ClassifierConfig struct {
	// Model is "keywords", "embedding" or "ollama".
	Model       string `yaml:"model"`
	OllamaModel string `yaml:"ollama_model"`
	MaxTokens   int    `yaml:"max_tokens"`
}

// FetchConfig holds page fetch and content cache settings.
type FetchConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"user_agent"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

// IngestConfig holds ingestion pipeline settings.
type IngestConfig struct {
	Workers int `yaml:"workers"`
}

// OllamaConfig locates the Ollama server.
type OllamaConfig struct {
	URL string `yaml:"url"`
}

// KafkaConfig holds the URL queue settings. An empty ResultsTopic disables
// result publishing.
type KafkaConfig struct {
	Brokers      []string `yaml:"brokers"`
	Topic        string   `yaml:"topic"`
	GroupID      string   `yaml:"group_id"`
	ResultsTopic string   `yaml:"results_topic"`
}

// WatchConfig holds URL list watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
}

// DefaultPath returns ~/.pagesift/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".pagesift", "config.yaml")
	}
	return filepath.Join(home, ".pagesift", "config.yaml")
}

// Load reads and parses the config file at path, applies environment
// overrides and defaults, and expands paths. A missing file yields the
// defaults. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.IndexPath = expandPath(cfg.Storage.IndexPath, configDir)
	cfg.Storage.TextIndexPath = expandPath(cfg.Storage.TextIndexPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths and
// ":memory:" are returned unchanged.
func expandPath(path string, configDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
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
