// Package engine keeps a live set of embedded items and their cluster partition
// consistent across add, remove, replace and threshold changes.
package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/matomeru/internal/cluster"
	"github.com/hyperjump/matomeru/internal/config"
	"github.com/hyperjump/matomeru/internal/embedding"
	"github.com/hyperjump/matomeru/internal/similarity"
)

// Engine drives Embedder, similarity store and partitioner. All methods are safe for
// concurrent use; operations are serialized by a single lock.
type Engine struct {
	mu          sync.Mutex
	embedder    embedding.Embedder
	store       *similarity.Store
	partitioner *cluster.Partitioner
	threshold   float64
	partition   cluster.Partition
	replacing   map[int]struct{}
	logger      *zap.Logger
}

// New creates an empty engine that embeds text with embedder.
func New(embedder embedding.Embedder, opts ...Option) (*Engine, error) {
	e := &Engine{
		embedder:    embedder,
		store:       similarity.NewStore(embedder.Dimensions()),
		partitioner: cluster.NewPartitioner(cluster.DefaultTopK),
		threshold:   config.DefaultThreshold,
		partition:   cluster.Partition{IDs: []int{}, Sizes: []int{}},
		replacing:   make(map[int]struct{}),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if !validThreshold(e.threshold) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidThreshold, e.threshold)
	}
	return e, nil
}

func validThreshold(t float64) bool {
	return t > 0 && t <= 1
}

// AddItem embeds text, stores it under id and recomputes the partition. On failure
// the engine is unchanged. Adding a live id replaces its embedding. Text that is
// blank is not embedded and is stored as a zero vector, which clusters alone.
func (e *Engine) AddItem(ctx context.Context, text string, id int) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.add(ctx, text, id)
}

func (e *Engine) add(ctx context.Context, text string, id int) (*Result, error) {
	if id < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidID, id)
	}

	var timing Timing
	vec, err := e.embed(ctx, text, id, &timing)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	degenerate, err := e.store.Insert(id, vec)
	if err != nil {
		return nil, err
	}
	if degenerate {
		e.logger.Warn("degenerate embedding stored as zero vector", zap.Int("id", id))
	}
	delete(e.replacing, id)
	part, err := e.repartition()
	if err != nil {
		return nil, err
	}
	timing.Clustering = time.Since(start)

	e.logger.Debug("item added",
		zap.Int("id", id),
		zap.Int("items", e.store.Len()),
		zap.Int("clusters", part.Len()),
		zap.Duration("tokenization", timing.Tokenization),
		zap.Duration("inference", timing.Inference),
		zap.Duration("clustering", timing.Clustering))
	return &Result{Partition: part, Timing: timing}, nil
}

func (e *Engine) embed(ctx context.Context, text string, id int, timing *Timing) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		dims := e.store.Dimensions()
		if dims == 0 {
			dims = e.embedder.Dimensions()
		}
		return make([]float32, dims), nil
	}
	tokens, elapsed, err := e.embedder.Tokenize(ctx, text)
	timing.Tokenization = elapsed
	if err != nil {
		return nil, &EmbeddingError{ID: id, Stage: StageTokenize, Err: err}
	}
	vec, elapsed, err := e.embedder.Embed(ctx, tokens)
	timing.Inference = elapsed
	if err != nil {
		return nil, &EmbeddingError{ID: id, Stage: StageInfer, Err: err}
	}
	return vec, nil
}

// RemoveItem deletes id. When isPartOfReplace is set the partition is not recomputed
// and the Result is marked Deferred; the following add of id emits the partition.
func (e *Engine) RemoveItem(id int, isPartOfReplace bool) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	if err := e.store.Remove(id); err != nil {
		return nil, err
	}
	if isPartOfReplace {
		e.replacing[id] = struct{}{}
		e.logger.Debug("item removed for replace", zap.Int("id", id))
		return &Result{Deferred: true}, nil
	}
	delete(e.replacing, id)
	part, err := e.repartition()
	if err != nil {
		return nil, err
	}
	timing := Timing{Clustering: time.Since(start)}
	e.logger.Debug("item removed",
		zap.Int("id", id),
		zap.Int("items", e.store.Len()),
		zap.Int("clusters", part.Len()),
		zap.Duration("clustering", timing.Clustering))
	return &Result{Partition: part, Timing: timing}, nil
}

// BeginReplace removes id without recomputing the partition.
func (e *Engine) BeginReplace(id int) error {
	_, err := e.RemoveItem(id, true)
	return err
}

// ReplaceItem swaps the text of a live id in one step. The new text is embedded
// before the old embedding is touched, so on failure the item and the partition are
// unchanged.
func (e *Engine) ReplaceItem(ctx context.Context, id int, text string) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.store.Contains(id) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return e.add(ctx, text, id)
}

// CompleteReplace adds id back with new text after BeginReplace. If embedding fails
// the replace stays open and may be completed again.
func (e *Engine) CompleteReplace(ctx context.Context, id int, text string) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.replacing[id]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrNoPendingReplace, id)
	}
	return e.add(ctx, text, id)
}

// AbortReplace closes an open replace without re-adding the item and emits the
// partition of the remaining items.
func (e *Engine) AbortReplace(id int) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.replacing[id]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrNoPendingReplace, id)
	}
	start := time.Now()
	delete(e.replacing, id)
	part, err := e.repartition()
	if err != nil {
		return nil, err
	}
	e.logger.Debug("replace aborted", zap.Int("id", id), zap.Int("clusters", part.Len()))
	return &Result{Partition: part, Timing: Timing{Clustering: time.Since(start)}}, nil
}

// RecomputeWithThreshold changes the threshold and repartitions the existing items.
// An invalid threshold is rejected and the previous one kept.
func (e *Engine) RecomputeWithThreshold(threshold float64) (*Result, error) {
	if !validThreshold(threshold) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	prev := e.threshold
	e.threshold = threshold
	part, err := e.repartition()
	if err != nil {
		e.threshold = prev
		return nil, err
	}
	timing := Timing{Clustering: time.Since(start)}
	e.logger.Info("threshold changed",
		zap.Float64("from", prev),
		zap.Float64("to", threshold),
		zap.Int("clusters", part.Len()),
		zap.Duration("clustering", timing.Clustering))
	return &Result{Partition: part, Timing: timing}, nil
}

func (e *Engine) repartition() (cluster.Partition, error) {
	part, err := e.partitioner.Partition(e.store, e.threshold)
	if err != nil {
		return cluster.Partition{}, fmt.Errorf("partition: %w", err)
	}
	e.partition = part
	return copyPartition(part), nil
}

func copyPartition(p cluster.Partition) cluster.Partition {
	out := cluster.Partition{IDs: make([]int, len(p.IDs)), Sizes: make([]int, len(p.Sizes))}
	copy(out.IDs, p.IDs)
	copy(out.Sizes, p.Sizes)
	return out
}

// Threshold returns the current threshold.
func (e *Engine) Threshold() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.threshold
}

// TopK returns the partitioner's neighbourhood size.
func (e *Engine) TopK() int {
	return e.partitioner.TopK()
}

// Partition returns the most recently emitted partition. While a replace is open
// it still lists the item being replaced.
func (e *Engine) Partition() cluster.Partition {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyPartition(e.partition)
}

// Len returns the number of live items.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Len()
}

// Contains reports whether id is live.
func (e *Engine) Contains(id int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Contains(id)
}

// Replacing returns the ids with an open replace, ascending.
func (e *Engine) Replacing() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]int, 0, len(e.replacing))
	for id := range e.replacing {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// State reports whether the engine holds any items.
func (e *Engine) State() State {
	if e.Len() == 0 {
		return StateEmpty
	}
	return StatePopulated
}

// Similarities returns the pairwise similarities of all live items.
func (e *Engine) Similarities() map[int]map[int]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Matrix()
}

// Dimensions returns the embedding dimension.
func (e *Engine) Dimensions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d := e.store.Dimensions(); d > 0 {
		return d
	}
	return e.embedder.Dimensions()
}
