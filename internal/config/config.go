// Package config provides configuration loading and structs for the matomeru server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Clustering ClusteringConfig `yaml:"clustering"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BaseURL returns the http URL clients use to reach the server.
func (s ServerConfig) BaseURL() string {
	return "http://" + s.Addr()
}

// EmbeddingConfig selects and tunes the embedder.
type EmbeddingConfig struct {
	// Backend is "onnx" or "hashing".
	Backend string `yaml:"backend"`
	// Tokenizer is "simple", "huggingface" or "tiktoken".
	Tokenizer     string `yaml:"tokenizer"`
	TokenizerPath string `yaml:"tokenizer_path"`
	ModelPath     string `yaml:"model_path"`
	// OutputName is the ONNX output tensor name.
	OutputName string `yaml:"output_name"`
	// Pooling is "none", "mean" or "cls".
	Pooling    string `yaml:"pooling"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// ClusteringConfig holds partitioning settings.
type ClusteringConfig struct {
	Threshold float64 `yaml:"threshold"`
	TopK      int     `yaml:"top_k"`
	// TitleOnlyHosts are URL host fragments whose items are embedded by title alone.
	TitleOnlyHosts []string `yaml:"title_only_hosts"`
}

// WatchConfig holds directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
	// IDBase is the first item id given to a watched file. While directories are
	// watched, API clients may not use ids from IDBase upward.
	IDBase int `yaml:"id_base"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read, parsed or validated.
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
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	if cfg.Embedding.TokenizerPath != "" {
		cfg.Embedding.TokenizerPath = expandPath(cfg.Embedding.TokenizerPath, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values ApplyDefaults cannot repair.
func (c *Config) Validate() error {
	if t := c.Clustering.Threshold; t <= 0 || t > 1 {
		return fmt.Errorf("%w: clustering.threshold %v not in (0, 1]", ErrInvalidConfig, t)
	}
	switch c.Embedding.Backend {
	case BackendONNX, BackendHashing:
	default:
		return fmt.Errorf("%w: unknown embedding.backend %q", ErrInvalidConfig, c.Embedding.Backend)
	}
	switch c.Embedding.Tokenizer {
	case TokenizerSimple, TokenizerTiktoken:
	case TokenizerHuggingFace:
		if c.Embedding.TokenizerPath == "" {
			return fmt.Errorf("%w: embedding.tokenizer_path is required for %q", ErrInvalidConfig, TokenizerHuggingFace)
		}
	default:
		return fmt.Errorf("%w: unknown embedding.tokenizer %q", ErrInvalidConfig, c.Embedding.Tokenizer)
	}
	switch c.Embedding.Pooling {
	case PoolingNone, PoolingMean, PoolingCLS:
	default:
		return fmt.Errorf("%w: unknown embedding.pooling %q", ErrInvalidConfig, c.Embedding.Pooling)
	}
	if c.Embedding.MaxTokens < 2 {
		return fmt.Errorf("%w: embedding.max_tokens must be at least 2", ErrInvalidConfig)
	}
	return nil
}

// Save writes the config to path. Used for persisting watch directory changes.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
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
