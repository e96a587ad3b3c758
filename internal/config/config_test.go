package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
clustering:
  threshold: 0.7
  top_k: 8
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Server.Addr() != "127.0.0.1:9000" {
		t.Errorf("Addr() = %s", cfg.Server.Addr())
	}
	if cfg.Clustering.Threshold != 0.7 || cfg.Clustering.TopK != 8 {
		t.Errorf("unexpected clustering config: %+v", cfg.Clustering)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	cfg, err := Load(writeConfig(t, "debug: true\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
embedding:
  model_path: "./models/model.onnx"
  tokenizer: huggingface
  tokenizer_path: "./models/tokenizer.json"
watch:
  directories: ["./dev/sample"]
`)
	dir := filepath.Dir(path)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "models", "model.onnx"); cfg.Embedding.ModelPath != want {
		t.Errorf("model_path = %s, want %s", cfg.Embedding.ModelPath, want)
	}
	if want := filepath.Join(dir, "models", "tokenizer.json"); cfg.Embedding.TokenizerPath != want {
		t.Errorf("tokenizer_path = %s, want %s", cfg.Embedding.TokenizerPath, want)
	}
	if len(cfg.Watch.Directories) != 1 {
		t.Fatalf("watch directories: got %d", len(cfg.Watch.Directories))
	}
	if want := filepath.Join(dir, "dev", "sample"); cfg.Watch.Directories[0] != want {
		t.Errorf("watch directory = %s, want %s", cfg.Watch.Directories[0], want)
	}
}

func TestLoad_rejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"threshold above one", "clustering:\n  threshold: 1.5\n"},
		{"negative threshold", "clustering:\n  threshold: -0.2\n"},
		{"unknown backend", "embedding:\n  backend: word2vec\n"},
		{"unknown tokenizer", "embedding:\n  tokenizer: sentencepiece\n"},
		{"huggingface without path", "embedding:\n  tokenizer: huggingface\n"},
		{"unknown pooling", "embedding:\n  pooling: max\n"},
		{"max tokens too small", "embedding:\n  max_tokens: 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Load() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoad_titleOnlyHostsEmptyListKept(t *testing.T) {
	cfg, err := Load(writeConfig(t, "clustering:\n  title_only_hosts: []\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Clustering.TitleOnlyHosts == nil || len(cfg.Clustering.TitleOnlyHosts) != 0 {
		t.Errorf("explicit empty list should disable the rule, got %v", cfg.Clustering.TitleOnlyHosts)
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Embedding.Backend != BackendONNX || cfg.Embedding.Tokenizer != TokenizerSimple {
		t.Errorf("default embedding: got %+v", cfg.Embedding)
	}
	if cfg.Embedding.Dimensions != 384 || cfg.Embedding.MaxTokens != 128 {
		t.Errorf("default dimensions/max_tokens: got %d/%d", cfg.Embedding.Dimensions, cfg.Embedding.MaxTokens)
	}
	if cfg.Embedding.Pooling != PoolingNone || cfg.Embedding.OutputName != "output" {
		t.Errorf("default pooling/output: got %s/%s", cfg.Embedding.Pooling, cfg.Embedding.OutputName)
	}
	if cfg.Clustering.Threshold != DefaultThreshold {
		t.Errorf("default threshold: got %v", cfg.Clustering.Threshold)
	}
	if cfg.Clustering.TopK != 32 {
		t.Errorf("default top_k: got %d", cfg.Clustering.TopK)
	}
	if len(cfg.Clustering.TitleOnlyHosts) != 1 || cfg.Clustering.TitleOnlyHosts[0] != "youtube" {
		t.Errorf("default title_only_hosts: got %v", cfg.Clustering.TitleOnlyHosts)
	}
	if len(cfg.Watch.Extensions) != 7 || cfg.Watch.Extensions[0] != ".txt" || cfg.Watch.Extensions[6] != ".csv" {
		t.Errorf("watch extensions: got %v", cfg.Watch.Extensions)
	}
	if cfg.Watch.Recursive != nil {
		t.Error("recursive should stay unset without directories")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestApplyDefaults_WatchRecursiveWhenDirectoriesSet(t *testing.T) {
	cfg := &Config{Watch: WatchConfig{Directories: []string{"/tmp/docs"}}}
	ApplyDefaults(cfg)
	if cfg.Watch.Recursive == nil || !*cfg.Watch.Recursive {
		t.Error("recursive should default to true when directories are set")
	}
}

func TestWatchConfig_RecursiveOrDefault(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		w := &WatchConfig{}
		if got := w.RecursiveOrDefault(); !got {
			t.Errorf("RecursiveOrDefault() = %v, want true", got)
		}
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		w := &WatchConfig{Recursive: &f}
		if got := w.RecursiveOrDefault(); got {
			t.Errorf("RecursiveOrDefault() = %v, want false", got)
		}
	})
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := Default()
	cfg.Server.Port = 9090
	cfg.Clustering.Threshold = 0.55
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if loaded.Clustering.Threshold != 0.55 {
		t.Errorf("loaded threshold: got %v", loaded.Clustering.Threshold)
	}
}
