// Package similarity holds normalized item embeddings and their pairwise cosine similarities.
package similarity

import (
	"errors"
	"math"

	"github.com/hyperjump/matomeru/pkg/utils"
)

var (
	// ErrNotFound is returned when an id is not live in the store.
	ErrNotFound = errors.New("item not found")
	// ErrDegenerateVector is returned by Normalize for a zero-norm vector.
	ErrDegenerateVector = errors.New("degenerate vector: zero norm")
	// ErrDimensionMismatch is returned when a vector does not match the store dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrInvalidID is returned for negative ids.
	ErrInvalidID = errors.New("item id must be non-negative")
)

// Normalize returns a unit-length copy of v. For a zero-norm v it returns a zero
// vector of the same length together with ErrDegenerateVector.
func Normalize(v []float32) ([]float32, error) {
	out := make([]float32, len(v))
	copy(out, v)
	if !utils.NormalizeL2(out) {
		for i := range out {
			out[i] = 0
		}
		return out, ErrDegenerateVector
	}
	return out, nil
}

// CosineSimilarity returns dot(u, v) / (|u| |v|) in [-1, 1]. Zero vectors and
// mismatched lengths yield 0; equal non-zero vectors yield exactly 1.
func CosineSimilarity(u, v []float32) float64 {
	if len(u) != len(v) || len(u) == 0 {
		return 0
	}
	nu, nv := utils.L2Norm(u), utils.L2Norm(v)
	if nu == 0 || nv == 0 {
		return 0
	}
	if equal(u, v) {
		return 1
	}
	return clampUnit(utils.Dot(u, v) / (nu * nv))
}

// unitDot is the cosine similarity of two already-normalized vectors. Only equal
// vectors score exactly 1; near-duplicates keep their rounded score.
func unitDot(u, v []float32) float64 {
	d := utils.Dot(u, v)
	if d > 0 && equal(u, v) {
		return 1
	}
	return clampUnit(d)
}

func equal(u, v []float32) bool {
	if len(u) != len(v) {
		return false
	}
	for i := range u {
		if u[i] != v[i] {
			return false
		}
	}
	return true
}

// clampUnit bounds rounding overshoot to [-1, 1].
func clampUnit(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return 0
	case x > 1:
		return 1
	case x < -1:
		return -1
	}
	return x
}
