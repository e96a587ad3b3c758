// Package ingest feeds files and extracted items into the clustering engine.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/matomeru/internal/engine"
	"github.com/hyperjump/matomeru/internal/extract"
	"github.com/hyperjump/matomeru/internal/fileid"
	"github.com/hyperjump/matomeru/pkg/utils"
)

// ErrUnchanged is returned by IndexFile when the file has the same size and mtime as
// when it was last ingested.
var ErrUnchanged = errors.New("file unchanged")

// source remembers what was ingested for a path.
type source struct {
	mtime int64
	size  int64
}

// Ingester turns watched files into engine items, one item per file.
type Ingester struct {
	engine    *engine.Engine
	extractor *extract.Extractor
	registry  *fileid.Registry
	mu        sync.Mutex
	sources   map[string]source
	logger    *zap.Logger
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithLogger sets a logger for debug output (file ingested, file removed, etc.).
func WithLogger(l *zap.Logger) Option {
	return func(in *Ingester) { in.logger = utils.OrNop(l) }
}

// WithRegistry sets the path registry; by default ids start at fileid.DefaultBase.
func WithRegistry(r *fileid.Registry) Option {
	return func(in *Ingester) { in.registry = r }
}

// New creates an ingester for eng. extractor may be nil, in which case files are
// read as plain text.
func New(eng *engine.Engine, extractor *extract.Extractor, opts ...Option) *Ingester {
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	in := &Ingester{
		engine:    eng,
		extractor: extractor,
		registry:  fileid.NewRegistry(fileid.DefaultBase),
		sources:   make(map[string]source),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Registry returns the path registry.
func (in *Ingester) Registry() *fileid.Registry {
	return in.registry
}

// IndexFile embeds the file at path as one item titled by its base name. A file
// already in the engine has its item replaced; if that fails the previous text stays
// and the next event for the file retries. If allowedExts is non-empty the extension
// must be in it.
func (in *Ingester) IndexFile(ctx context.Context, path string, allowedExts []string) (*engine.Result, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if len(allowedExts) > 0 && !ExtensionAllowed(ext, allowedExts) {
		return nil, fmt.Errorf("extension %q not in allowed list", ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}
	current := source{mtime: info.ModTime().UnixNano(), size: info.Size()}

	in.mu.Lock()
	defer in.mu.Unlock()
	if prev, ok := in.sources[absPath]; ok && prev == current {
		if id, live := in.registry.Lookup(absPath); live && in.engine.Contains(id) {
			in.logger.Debug("ingest skipping unchanged file", zap.String("path", absPath))
			return nil, ErrUnchanged
		}
	}

	text, err := in.extractor.Extract(absPath)
	if err != nil {
		return nil, fmt.Errorf("extract content: %w", err)
	}
	title := strings.TrimSuffix(filepath.Base(absPath), filepath.Ext(absPath))
	itemText := utils.ComposeItemText(title, text)

	id := in.registry.Assign(absPath)
	var res *engine.Result
	if in.engine.Contains(id) {
		// the old embedding stays until the new text is embedded
		res, err = in.engine.ReplaceItem(ctx, id, itemText)
		if err != nil {
			return nil, err
		}
	} else {
		res, err = in.engine.AddItem(ctx, itemText, id)
		if err != nil {
			in.registry.Release(absPath)
			return nil, err
		}
	}
	in.sources[absPath] = current
	in.logger.Debug("ingest file ingested",
		zap.String("path", absPath),
		zap.Int("id", id),
		zap.Int("clusters", res.Partition.Len()))
	return res, nil
}

// RemoveFile removes the item of a file that was ingested before.
func (in *Ingester) RemoveFile(path string) (*engine.Result, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	delete(in.sources, absPath)
	id, ok := in.registry.Release(absPath)
	if !ok {
		return nil, fmt.Errorf("%w: %s", engine.ErrNotFound, absPath)
	}
	res, err := in.engine.RemoveItem(id, false)
	if err != nil {
		return nil, err
	}
	in.logger.Debug("ingest file removed", zap.String("path", absPath), zap.Int("id", id))
	return res, nil
}

// IndexDirectory walks dir recursively and ingests each regular file whose extension
// is in allowedExts (if non-empty). Unchanged files are skipped. Returns the number
// of files ingested and the first error encountered, if any.
func (in *Ingester) IndexDirectory(ctx context.Context, dir string, allowedExts []string) (n int, err error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if len(allowedExts) > 0 && !ExtensionAllowed(ext, allowedExts) {
			return nil
		}
		if finfo, statErr := os.Stat(path); statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		if _, indexErr := in.IndexFile(ctx, path, allowedExts); indexErr != nil {
			if errors.Is(indexErr, ErrUnchanged) {
				return nil
			}
			return indexErr
		}
		n++
		return nil
	})
	return n, err
}

// ExtensionAllowed reports whether ext matches one of allowed, ignoring case and the
// leading dot.
func ExtensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}

// BatchStats sums the timing of a batch of adds.
type BatchStats struct {
	Items  int
	Timing engine.Timing
	Wall   time.Duration
}

// AddItems adds items one by one with ids firstID, firstID+1, ... and returns the
// final result. Items whose URL is on one of titleOnlyHosts are embedded by title.
// onAdded, if non-nil, is called after every successful add. The first failure stops
// the batch.
func AddItems(ctx context.Context, eng *engine.Engine, items []extract.Item, firstID int, titleOnlyHosts []string,
	onAdded func(id int, item extract.Item, res *engine.Result)) (*engine.Result, BatchStats, error) {
	var stats BatchStats
	start := time.Now()
	last := &engine.Result{Partition: eng.Partition()}
	for i, item := range items {
		id := firstID + i
		res, err := eng.AddItem(ctx, item.Text(titleOnlyHosts), id)
		if err != nil {
			stats.Wall = time.Since(start)
			return last, stats, fmt.Errorf("item %d (%s): %w", id, item.Source, err)
		}
		stats.Items++
		stats.Timing.Tokenization += res.Timing.Tokenization
		stats.Timing.Inference += res.Timing.Inference
		stats.Timing.Clustering += res.Timing.Clustering
		if onAdded != nil {
			onAdded(id, item, res)
		}
		last = res
	}
	stats.Wall = time.Since(start)
	return last, stats, nil
}
