package server

import (
	"sync"

	"github.com/hyperjump/matomeru/internal/models"
)

// kindIndex remembers the kind of items added through the API. Items it does not
// know, such as watched files, are pages.
type kindIndex struct {
	mu    sync.RWMutex
	kinds map[int]string
}

func newKindIndex() *kindIndex {
	return &kindIndex{kinds: make(map[int]string)}
}

func (k *kindIndex) set(id int, kind string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if kind == models.KindPage {
		delete(k.kinds, id)
		return
	}
	k.kinds[id] = kind
}

func (k *kindIndex) remove(id int) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.kinds, id)
}

func (k *kindIndex) kindOf(id int) string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if kind, ok := k.kinds[id]; ok {
		return kind
	}
	return models.KindPage
}
