package config

import "github.com/hyperjump/matomeru/pkg/utils"

// Embedding backends.
const (
	BackendONNX    = "onnx"
	BackendHashing = "hashing"
)

// Tokenizers.
const (
	TokenizerSimple      = "simple"
	TokenizerHuggingFace = "huggingface"
	TokenizerTiktoken    = "tiktoken"
)

// Pooling strategies for token-level model outputs.
const (
	PoolingNone = "none"
	PoolingMean = "mean"
	PoolingCLS  = "cls"
)

// DefaultThreshold is the similarity threshold used when none is configured.
const DefaultThreshold = 0.4659

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Embedding.Backend == "" {
		cfg.Embedding.Backend = BackendONNX
	}
	if cfg.Embedding.Tokenizer == "" {
		cfg.Embedding.Tokenizer = TokenizerSimple
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/matomeru/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.OutputName == "" {
		cfg.Embedding.OutputName = "output"
	}
	if cfg.Embedding.Pooling == "" {
		cfg.Embedding.Pooling = PoolingNone
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 128
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Clustering.Threshold == 0 {
		cfg.Clustering.Threshold = DefaultThreshold
	}
	if cfg.Clustering.TopK == 0 {
		cfg.Clustering.TopK = 32
	}
	if cfg.Clustering.TitleOnlyHosts == nil {
		cfg.Clustering.TitleOnlyHosts = append([]string(nil), utils.DefaultTitleOnlyHosts...)
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".rst", ".pdf", ".docx", ".xlsx", ".csv"}
	}
	if cfg.Watch.IDBase == 0 {
		cfg.Watch.IDBase = 1_000_000
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
