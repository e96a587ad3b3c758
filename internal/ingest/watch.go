package ingest

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/hyperjump/matomeru/internal/engine"
	"github.com/hyperjump/matomeru/internal/watcher"
)

// WatchHandler returns a watcher.Handler that ingests changed files and removes
// deleted ones. Failures are logged; the watcher keeps running.
func (in *Ingester) WatchHandler(ctx context.Context, allowedExts []string) watcher.Handler {
	return watcher.Funcs{
		OnChange: func(path string) {
			res, err := in.IndexFile(ctx, path, allowedExts)
			switch {
			case errors.Is(err, ErrUnchanged):
			case err != nil:
				in.logger.Warn("ingest failed", zap.String("path", path), zap.Error(err))
			default:
				in.logger.Info("file clustered",
					zap.String("path", path),
					zap.Int("clusters", res.Partition.Len()),
					zap.Duration("took", res.Timing.Total()))
			}
		},
		OnRemove: func(path string) {
			res, err := in.RemoveFile(path)
			switch {
			case errors.Is(err, engine.ErrNotFound):
			case err != nil:
				in.logger.Warn("remove failed", zap.String("path", path), zap.Error(err))
			default:
				in.logger.Info("file removed",
					zap.String("path", path),
					zap.Int("clusters", res.Partition.Len()))
			}
		},
	}
}
