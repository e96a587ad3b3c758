package engine

import (
	"time"

	"github.com/hyperjump/matomeru/internal/cluster"
)

// Timing is the time spent in each stage of an operation. Stages an operation skips
// are zero.
type Timing struct {
	Tokenization time.Duration
	Inference    time.Duration
	Clustering   time.Duration
}

// Total returns the sum of all stages.
func (t Timing) Total() time.Duration {
	return t.Tokenization + t.Inference + t.Clustering
}

// Result is the outcome of a mutating operation.
type Result struct {
	Partition cluster.Partition
	Timing    Timing
	// Deferred is set when a removal is the first half of a replace; no partition
	// is emitted until the replace completes.
	Deferred bool
}

// State is the lifecycle state of an engine.
type State int

const (
	StateEmpty State = iota
	StatePopulated
)

func (s State) String() string {
	if s == StatePopulated {
		return "populated"
	}
	return "empty"
}
