package cluster

import (
	"fmt"

	"github.com/hyperjump/matomeru/internal/similarity"
)

// DefaultTopK is the neighbourhood size used when none is configured.
const DefaultTopK = 32

// SimilaritySource is the read side of the similarity store the partitioner needs.
type SimilaritySource interface {
	IDs() []int
	TopK(id, k int) ([]similarity.Neighbor, error)
}

// Partitioner builds a threshold graph restricted to each item's nearest
// neighbours and returns its connected components.
type Partitioner struct {
	topK int
}

// NewPartitioner returns a partitioner that considers at most topK neighbours per
// item. A non-positive topK selects DefaultTopK.
func NewPartitioner(topK int) *Partitioner {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Partitioner{topK: topK}
}

// TopK returns the configured neighbourhood size.
func (p *Partitioner) TopK() int {
	return p.topK
}

// Partition links i and j when j is among the k most similar items of i and their
// similarity is at least threshold, with k = min(n-1, topK). The result is
// deterministic: members ascend within a cluster and clusters are ordered by their
// smallest member.
func (p *Partitioner) Partition(src SimilaritySource, threshold float64) (Partition, error) {
	ids := src.IDs()
	n := len(ids)
	if n == 0 {
		return Partition{IDs: []int{}, Sizes: []int{}}, nil
	}
	index := make(map[int]int, n)
	for i, id := range ids {
		index[id] = i
	}

	k := n - 1
	if p.topK < k {
		k = p.topK
	}
	uf := newUnionFind(n)
	for i, id := range ids {
		neighbors, err := src.TopK(id, k)
		if err != nil {
			return Partition{}, fmt.Errorf("top-k of %d: %w", id, err)
		}
		for _, nb := range neighbors {
			// neighbours are sorted by descending score
			if nb.Score < threshold {
				break
			}
			j, ok := index[nb.ID]
			if !ok {
				return Partition{}, fmt.Errorf("top-k of %d: %w: %d", id, similarity.ErrNotFound, nb.ID)
			}
			uf.union(i, j)
		}
	}

	groups := make(map[int][]int, n)
	for i, id := range ids {
		root := uf.find(i)
		groups[root] = append(groups[root], id)
	}
	clusters := make([][]int, 0, len(groups))
	for _, members := range groups {
		clusters = append(clusters, members)
	}
	return FromClusters(canonical(clusters)), nil
}
