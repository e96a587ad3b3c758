package engine

import (
	"errors"
	"fmt"

	"github.com/hyperjump/matomeru/internal/similarity"
)

var (
	// ErrNotFound is returned when an operation names an id that is not live.
	ErrNotFound = similarity.ErrNotFound
	// ErrInvalidID is returned for negative ids.
	ErrInvalidID = similarity.ErrInvalidID
	// ErrInvalidThreshold is returned for thresholds outside (0, 1].
	ErrInvalidThreshold = errors.New("threshold must be in (0, 1]")
	// ErrNoPendingReplace is returned by CompleteReplace without a matching BeginReplace.
	ErrNoPendingReplace = errors.New("no replace in progress")
)

// Embedding stages reported by EmbeddingError.
const (
	StageTokenize = "tokenize"
	StageInfer    = "infer"
)

// EmbeddingError reports a failure to embed the text of one item.
type EmbeddingError struct {
	ID    int
	Stage string
	Err   error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding item %d failed during %s: %v", e.ID, e.Stage, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}
