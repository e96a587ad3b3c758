package embedding

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hyperjump/matomeru/internal/config"
	"github.com/hyperjump/matomeru/pkg/utils"
)

// ONNXOptions configures an ONNXEmbedder.
type ONNXOptions struct {
	ModelPath  string
	OutputName string
	Pooling    string
	Dimensions int
	MaxTokens  int
}

func (o ONNXOptions) withDefaults() ONNXOptions {
	if o.OutputName == "" {
		o.OutputName = "output"
	}
	if o.Pooling == "" {
		o.Pooling = PoolingNone
	}
	if o.Dimensions <= 0 {
		o.Dimensions = 384
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	return o
}

// NewTokenizer builds the tokenizer named by cfg.Tokenizer.
func NewTokenizer(cfg *config.EmbeddingConfig) (Tokenizer, error) {
	switch cfg.Tokenizer {
	case config.TokenizerSimple, "":
		return &SimpleTokenizer{}, nil
	case config.TokenizerTiktoken:
		return NewTiktokenTokenizer()
	case config.TokenizerHuggingFace:
		return NewHFTokenizer(cfg.TokenizerPath)
	default:
		return nil, fmt.Errorf("unknown tokenizer %q", cfg.Tokenizer)
	}
}

// New builds the embedder described by cfg and wraps it in a CachedEmbedder when
// cfg.CacheSize is positive. The onnx backend falls back to hashing when the model
// file is missing or ONNX Runtime cannot be loaded.
func New(cfg *config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	logger = utils.OrNop(logger)
	tok, err := NewTokenizer(cfg)
	if err != nil {
		return nil, err
	}

	var emb Embedder
	switch cfg.Backend {
	case config.BackendHashing:
		emb = NewHashingEmbedder(cfg.Dimensions, cfg.MaxTokens, tok)
	case config.BackendONNX, "":
		emb, err = newONNXOrFallback(cfg, tok, logger)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", cfg.Backend)
	}

	if cfg.CacheSize > 0 {
		emb = NewCachedEmbedder(emb, cfg.CacheSize)
	}
	return emb, nil
}

func newONNXOrFallback(cfg *config.EmbeddingConfig, tok Tokenizer, logger *zap.Logger) (Embedder, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		logger.Warn("model not found, using hashing embedder", zap.String("path", cfg.ModelPath))
		return NewHashingEmbedder(cfg.Dimensions, cfg.MaxTokens, tok), nil
	}
	onnx, err := NewONNXEmbedder(ONNXOptions{
		ModelPath:  cfg.ModelPath,
		OutputName: cfg.OutputName,
		Pooling:    cfg.Pooling,
		Dimensions: cfg.Dimensions,
		MaxTokens:  cfg.MaxTokens,
	}, tok)
	if err != nil {
		logger.Warn("ONNX embedder unavailable, using hashing embedder", zap.Error(err))
		return NewHashingEmbedder(cfg.Dimensions, cfg.MaxTokens, tok), nil
	}
	logger.Info("loaded ONNX model",
		zap.String("path", cfg.ModelPath),
		zap.Int("dimensions", cfg.Dimensions),
		zap.String("pooling", cfg.Pooling))
	return onnx, nil
}
