package similarity

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gramVectors returns three unit vectors whose pairwise cosines are
// AB = 0.9, AC = 0.5 and BC = 0.4.
func gramVectors() (a, b, c []float32) {
	by := math.Sqrt(1 - 0.81)
	cy := (0.4 - 0.9*0.5) / by
	cz := math.Sqrt(1 - 0.25 - cy*cy)
	return []float32{1, 0, 0},
		[]float32{0.9, float32(by), 0},
		[]float32{0.5, float32(cy), float32(cz)}
}

func TestNormalize_unitSelfSimilarity(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		v := make([]float32, 16)
		for j := range v {
			v[j] = float32(r.NormFloat64())
		}
		u, err := Normalize(v)
		require.NoError(t, err)
		assert.Equal(t, 1.0, CosineSimilarity(u, u))
		assert.Equal(t, 1.0, unitDot(u, u))
	}
}

func TestCosineSimilarity_nearDuplicatesBelowOne(t *testing.T) {
	u, err := Normalize([]float32{1, 0})
	require.NoError(t, err)
	v, err := Normalize([]float32{1, 0.001})
	require.NoError(t, err)

	score := unitDot(u, v)
	assert.Less(t, score, 1.0)
	assert.Greater(t, score, 0.999999)
	assert.Less(t, CosineSimilarity([]float32{1, 0}, []float32{1, 0.001}), 1.0)

	s := NewStore(2)
	_, _ = s.Insert(1, u)
	_, _ = s.Insert(2, v)
	_, _ = s.Insert(3, []float32{2, 0})
	got, _ := s.Similarity(1, 2)
	assert.Less(t, got, 1.0)
	got, _ = s.Similarity(1, 3)
	assert.Equal(t, 1.0, got, "vectors equal after normalization score exactly 1")
	got, _ = s.Similarity(3, 3)
	assert.Equal(t, 1.0, got)
}

func TestNormalize_degenerate(t *testing.T) {
	u, err := Normalize([]float32{0, 0, 0})
	assert.ErrorIs(t, err, ErrDegenerateVector)
	assert.Equal(t, []float32{0, 0, 0}, u)
}

func TestCosineSimilarity_symmetricAndBounded(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for i := 0; i < 100; i++ {
		u := make([]float32, 8)
		v := make([]float32, 8)
		for j := range u {
			u[j] = float32(r.NormFloat64())
			v[j] = float32(r.NormFloat64())
		}
		uv := CosineSimilarity(u, v)
		assert.Equal(t, uv, CosineSimilarity(v, u))
		assert.GreaterOrEqual(t, uv, -1.0)
		assert.LessOrEqual(t, uv, 1.0)
	}
	assert.Equal(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-2, 0}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 0}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 0}))
}

func TestStore_InsertComputesSymmetricSimilarities(t *testing.T) {
	s := NewStore(3)
	a, b, c := gramVectors()
	for id, v := range map[int][]float32{0: a, 1: b, 2: c} {
		degenerate, err := s.Insert(id, v)
		require.NoError(t, err)
		assert.False(t, degenerate)
	}
	require.Equal(t, 3, s.Len())
	assert.Equal(t, []int{0, 1, 2}, s.IDs())

	want := map[[2]int]float64{{0, 1}: 0.9, {0, 2}: 0.5, {1, 2}: 0.4}
	for pair, w := range want {
		ij, ok := s.Similarity(pair[0], pair[1])
		require.True(t, ok)
		ji, ok := s.Similarity(pair[1], pair[0])
		require.True(t, ok)
		assert.InDelta(t, w, ij, 1e-6)
		assert.Equal(t, ij, ji)
	}
	for _, id := range s.IDs() {
		self, ok := s.Similarity(id, id)
		require.True(t, ok)
		assert.Equal(t, 1.0, self)
	}
}

func TestStore_InsertDegenerate(t *testing.T) {
	s := NewStore(2)
	_, err := s.Insert(1, []float32{1, 0})
	require.NoError(t, err)
	degenerate, err := s.Insert(2, []float32{0, 0})
	require.NoError(t, err)
	assert.True(t, degenerate)

	score, ok := s.Similarity(1, 2)
	require.True(t, ok)
	assert.Equal(t, 0.0, score)
	self, _ := s.Similarity(2, 2)
	assert.Equal(t, 1.0, self)
}

func TestStore_InsertRejectsBadInput(t *testing.T) {
	s := NewStore(2)
	_, err := s.Insert(-1, []float32{1, 0})
	assert.ErrorIs(t, err, ErrInvalidID)
	_, err = s.Insert(1, []float32{1, 0, 0})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	_, err = s.Insert(1, nil)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, 0, s.Len())
}

func TestStore_DimensionFixedByFirstInsert(t *testing.T) {
	s := NewStore(0)
	_, err := s.Insert(1, []float32{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Dimensions())
	_, err = s.Insert(2, []float32{1, 2})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestStore_OverwriteRecomputes(t *testing.T) {
	s := NewStore(2)
	_, _ = s.Insert(1, []float32{1, 0})
	_, _ = s.Insert(2, []float32{1, 0})
	score, _ := s.Similarity(1, 2)
	require.Equal(t, 1.0, score)

	_, err := s.Insert(2, []float32{0, 1})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	score, _ = s.Similarity(1, 2)
	assert.Equal(t, 0.0, score)
	score, _ = s.Similarity(2, 1)
	assert.Equal(t, 0.0, score)
}

func TestStore_Remove(t *testing.T) {
	s := NewStore(2)
	_, _ = s.Insert(1, []float32{1, 0})
	_, _ = s.Insert(2, []float32{0, 1})
	_, _ = s.Insert(3, []float32{1, 1})

	require.NoError(t, s.Remove(2))
	assert.False(t, s.Contains(2))
	assert.Equal(t, []int{1, 3}, s.IDs())
	_, ok := s.Similarity(1, 2)
	assert.False(t, ok)
	_, ok = s.Similarity(2, 1)
	assert.False(t, ok)
	for id, row := range s.Matrix() {
		_, stale := row[2]
		assert.False(t, stale, "row %d still references removed id", id)
	}

	err := s.Remove(2)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_TopK(t *testing.T) {
	s := NewStore(2)
	_, _ = s.Insert(0, []float32{1, 0})
	_, _ = s.Insert(5, []float32{1, 0.1})
	_, _ = s.Insert(3, []float32{1, 0.1}) // ties with 5
	_, _ = s.Insert(9, []float32{0, 1})

	top, err := s.TopK(0, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, 3, top[0].ID)
	assert.Equal(t, 5, top[1].ID)
	assert.Equal(t, top[0].Score, top[1].Score)

	all, err := s.TopK(0, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 9, all[2].ID)
	for _, n := range all {
		assert.NotEqual(t, 0, n.ID)
	}

	none, err := s.TopK(0, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = s.TopK(42, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_VectorIsCopy(t *testing.T) {
	s := NewStore(2)
	_, _ = s.Insert(1, []float32{3, 4})
	v, ok := s.Vector(1)
	require.True(t, ok)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	v[0] = 100
	again, _ := s.Vector(1)
	assert.InDelta(t, 0.6, again[0], 1e-6)
	_, ok = s.Vector(2)
	assert.False(t, ok)
}
