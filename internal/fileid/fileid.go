// Package fileid assigns stable integer item ids to watched file paths.
package fileid

import (
	"path/filepath"
	"sort"
	"sync"
)

// DefaultBase is the first id handed out when no base is configured. It keeps file
// ids clear of small ids chosen by API clients.
const DefaultBase = 1_000_000

// Registry maps cleaned paths to ids. An id is never reused for another path while
// the registry lives, so a re-created file gets the id it had before.
type Registry struct {
	mu     sync.Mutex
	next   int
	byPath map[string]int
	live   map[int]string
}

// NewRegistry returns a registry handing out ids from base upward. A negative base
// selects DefaultBase.
func NewRegistry(base int) *Registry {
	if base < 0 {
		base = DefaultBase
	}
	return &Registry{
		next:   base,
		byPath: make(map[string]int),
		live:   make(map[int]string),
	}
}

// Assign returns the id for path, allocating one on first use.
func (r *Registry) Assign(path string) int {
	path = filepath.Clean(path)
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byPath[path]
	if !ok {
		id = r.next
		r.next++
		r.byPath[path] = id
	}
	r.live[id] = path
	return id
}

// Lookup returns the id of a live path.
func (r *Registry) Lookup(path string) (int, bool) {
	path = filepath.Clean(path)
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byPath[path]
	if !ok {
		return 0, false
	}
	_, live := r.live[id]
	return id, live
}

// Release marks path as no longer live and returns its id.
func (r *Registry) Release(path string) (int, bool) {
	path = filepath.Clean(path)
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byPath[path]
	if !ok {
		return 0, false
	}
	if _, live := r.live[id]; !live {
		return 0, false
	}
	delete(r.live, id)
	return id, true
}

// Path returns the live path holding id.
func (r *Registry) Path(id int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	path, ok := r.live[id]
	return path, ok
}

// Paths returns the live paths keyed by id.
func (r *Registry) Paths() map[int]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int]string, len(r.live))
	for id, path := range r.live {
		out[id] = path
	}
	return out
}

// Live returns the live ids in ascending order.
func (r *Registry) Live() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int, 0, len(r.live))
	for id := range r.live {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
