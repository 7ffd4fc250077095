package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "local"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = ".pagesift/data/pagesift.db"
	}
	if cfg.Storage.IndexPath == "" {
		cfg.Storage.IndexPath = ".pagesift/data/vectors.idx"
	}
	if cfg.Storage.TextIndexPath == "" {
		cfg.Storage.TextIndexPath = ".pagesift/data/pages.bleve"
	}
	if cfg.Storage.Collection == "" {
		cfg.Storage.Collection = "websites"
	}
	if cfg.Store.Dedup == "" {
		cfg.Store.Dedup = "nearest"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = ".pagesift/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "all-minilm"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Classifier.Model == "" {
		cfg.Classifier.Model = "keywords"
	}
	if cfg.Classifier.OllamaModel == "" {
		cfg.Classifier.OllamaModel = "llama3.2"
	}
	if cfg.Classifier.MaxTokens == 0 {
		cfg.Classifier.MaxTokens = 1024
	}
	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = 30 * time.Second
	}
	if cfg.Fetch.CacheTTL == 0 {
		cfg.Fetch.CacheTTL = time.Hour
	}
	if cfg.Fetch.MaxBodyBytes == 0 {
		cfg.Fetch.MaxBodyBytes = 10 << 20
	}
	if cfg.Ingest.Workers == 0 {
		cfg.Ingest.Workers = 4
	}
	if cfg.Ollama.URL == "" {
		cfg.Ollama.URL = "http://localhost:11434"
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "pagesift-urls"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "pagesift"
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".urls", ".txt"}
	}
}
