package similarity

import (
	"fmt"
	"sort"
)

// Neighbor is one entry of a top-k list.
type Neighbor struct {
	ID    int     `json:"id"`
	Score float64 `json:"score"`
}

// Store keeps one normalized embedding per live id and a symmetric cache of the
// cosine similarity between every pair of live ids. Store is not safe for
// concurrent use; the engine serializes access.
type Store struct {
	dimensions int
	vectors    map[int][]float32
	sims       map[int]map[int]float64
}

// NewStore creates an empty store. A dimensions value <= 0 means the dimension is
// fixed by the first inserted vector.
func NewStore(dimensions int) *Store {
	if dimensions < 0 {
		dimensions = 0
	}
	return &Store{
		dimensions: dimensions,
		vectors:    make(map[int][]float32),
		sims:       make(map[int]map[int]float64),
	}
}

// Insert normalizes vector and stores it under id, replacing any previous vector and
// recomputing every similarity touching id. A zero-norm vector is stored as zero and
// reported through degenerate = true; it is similar to nothing but itself.
func (s *Store) Insert(id int, vector []float32) (degenerate bool, err error) {
	if id < 0 {
		return false, fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	if err := s.checkDimension(vector); err != nil {
		return false, err
	}
	unit, err := Normalize(vector)
	if err != nil {
		degenerate = true
	}
	if s.dimensions == 0 {
		s.dimensions = len(vector)
	}

	s.dropSimilarities(id)
	row := make(map[int]float64, len(s.vectors)+1)
	for other, vec := range s.vectors {
		if other == id {
			continue
		}
		score := unitDot(unit, vec)
		row[other] = score
		s.sims[other][id] = score
	}
	row[id] = 1
	s.vectors[id] = unit
	s.sims[id] = row
	return degenerate, nil
}

func (s *Store) checkDimension(vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}
	if s.dimensions > 0 && len(vector) != s.dimensions {
		return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(vector), s.dimensions)
	}
	return nil
}

// Remove deletes id and every similarity that references it.
func (s *Store) Remove(id int) error {
	if _, ok := s.vectors[id]; !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	s.dropSimilarities(id)
	delete(s.vectors, id)
	return nil
}

func (s *Store) dropSimilarities(id int) {
	for other := range s.sims[id] {
		if other != id {
			delete(s.sims[other], id)
		}
	}
	delete(s.sims, id)
}

// Contains reports whether id is live.
func (s *Store) Contains(id int) bool {
	_, ok := s.vectors[id]
	return ok
}

// Len returns the number of live ids.
func (s *Store) Len() int {
	return len(s.vectors)
}

// Dimensions returns the vector dimension, or 0 if not yet fixed.
func (s *Store) Dimensions() int {
	return s.dimensions
}

// IDs returns the live ids in ascending order.
func (s *Store) IDs() []int {
	ids := make([]int, 0, len(s.vectors))
	for id := range s.vectors {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Vector returns a copy of the normalized vector stored for id.
func (s *Store) Vector(id int) ([]float32, bool) {
	vec, ok := s.vectors[id]
	if !ok {
		return nil, false
	}
	out := make([]float32, len(vec))
	copy(out, vec)
	return out, true
}

// Similarity returns the cached similarity of i and j. ok is false if either id is not live.
func (s *Store) Similarity(i, j int) (score float64, ok bool) {
	row, ok := s.sims[i]
	if !ok {
		return 0, false
	}
	score, ok = row[j]
	return score, ok
}

// TopK returns up to k live ids other than id with the highest similarity to id,
// ordered by descending score with ties broken by ascending id.
func (s *Store) TopK(id, k int) ([]Neighbor, error) {
	row, ok := s.sims[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if k <= 0 {
		return nil, nil
	}
	neighbors := make([]Neighbor, 0, len(row))
	for other, score := range row {
		if other == id {
			continue
		}
		neighbors = append(neighbors, Neighbor{ID: other, Score: score})
	}
	sort.Slice(neighbors, func(a, b int) bool {
		if neighbors[a].Score != neighbors[b].Score {
			return neighbors[a].Score > neighbors[b].Score
		}
		return neighbors[a].ID < neighbors[b].ID
	})
	if k < len(neighbors) {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

// Matrix returns a copy of all live pairwise similarities keyed by id, diagonal included.
func (s *Store) Matrix() map[int]map[int]float64 {
	out := make(map[int]map[int]float64, len(s.sims))
	for id, row := range s.sims {
		cp := make(map[int]float64, len(row))
		for other, score := range row {
			cp[other] = score
		}
		out[id] = cp
	}
	return out
}
