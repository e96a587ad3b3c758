package engine

import (
	"go.uber.org/zap"

	"github.com/hyperjump/matomeru/internal/cluster"
	"github.com/hyperjump/matomeru/internal/config"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithThreshold sets the initial threshold. New rejects values outside (0, 1].
func WithThreshold(threshold float64) Option {
	return func(e *Engine) {
		e.threshold = threshold
	}
}

// WithTopK sets the neighbourhood size used by the partitioner.
func WithTopK(topK int) Option {
	return func(e *Engine) {
		e.partitioner = cluster.NewPartitioner(topK)
	}
}

// FromConfig applies the clustering section of cfg.
func FromConfig(cfg *config.ClusteringConfig) Option {
	return func(e *Engine) {
		WithThreshold(cfg.Threshold)(e)
		WithTopK(cfg.TopK)(e)
	}
}
