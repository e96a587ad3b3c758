// Package cluster turns a similarity store into a partition of its live ids.
package cluster

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidPartition is returned by Validate when a partition does not cover the
// live ids exactly once.
var ErrInvalidPartition = errors.New("invalid partition")

// Partition is the flat encoding of a set of clusters: IDs lists every member
// cluster after cluster and Sizes[i] is the member count of cluster i.
type Partition struct {
	IDs   []int `json:"ids"`
	Sizes []int `json:"sizes"`
}

// FromClusters flattens clusters into a Partition. Clusters are copied as given.
func FromClusters(clusters [][]int) Partition {
	p := Partition{IDs: []int{}, Sizes: make([]int, 0, len(clusters))}
	for _, c := range clusters {
		p.IDs = append(p.IDs, c...)
		p.Sizes = append(p.Sizes, len(c))
	}
	return p
}

// Clusters expands the partition into one slice per cluster.
func (p Partition) Clusters() [][]int {
	out := make([][]int, 0, len(p.Sizes))
	offset := 0
	for _, size := range p.Sizes {
		c := make([]int, size)
		copy(c, p.IDs[offset:offset+size])
		out = append(out, c)
		offset += size
	}
	return out
}

// Len returns the number of clusters.
func (p Partition) Len() int {
	return len(p.Sizes)
}

// ClusterOf returns the index of the cluster containing id, or -1.
func (p Partition) ClusterOf(id int) int {
	offset := 0
	for i, size := range p.Sizes {
		for _, member := range p.IDs[offset : offset+size] {
			if member == id {
				return i
			}
		}
		offset += size
	}
	return -1
}

// Validate checks that every size is positive, the sizes add up to len(IDs) and
// that IDs is exactly a permutation of live.
func (p Partition) Validate(live []int) error {
	total := 0
	for i, size := range p.Sizes {
		if size <= 0 {
			return fmt.Errorf("%w: cluster %d has size %d", ErrInvalidPartition, i, size)
		}
		total += size
	}
	if total != len(p.IDs) {
		return fmt.Errorf("%w: sizes sum to %d, have %d ids", ErrInvalidPartition, total, len(p.IDs))
	}
	if len(p.IDs) != len(live) {
		return fmt.Errorf("%w: %d ids for %d live items", ErrInvalidPartition, len(p.IDs), len(live))
	}
	seen := make(map[int]struct{}, len(p.IDs))
	for _, id := range p.IDs {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: id %d appears twice", ErrInvalidPartition, id)
		}
		seen[id] = struct{}{}
	}
	for _, id := range live {
		if _, ok := seen[id]; !ok {
			return fmt.Errorf("%w: live id %d missing", ErrInvalidPartition, id)
		}
	}
	return nil
}

// canonical sorts members ascending and clusters by their smallest member.
func canonical(clusters [][]int) [][]int {
	for _, c := range clusters {
		sort.Ints(c)
	}
	sort.Slice(clusters, func(a, b int) bool {
		return clusters[a][0] < clusters[b][0]
	})
	return clusters
}
