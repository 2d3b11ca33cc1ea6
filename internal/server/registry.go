package server

import (
	"sync"

	"github.com/google/uuid"
)

type storedDocument struct {
	Id   string
	Name string
}

// documentRegistry is the stub's in-memory corpus. Insertion order is kept so
// listings stay stable across calls.
type documentRegistry struct {
	mu   sync.Mutex
	docs []storedDocument
}

func newDocumentRegistry() *documentRegistry {
	return &documentRegistry{}
}

func (r *documentRegistry) Add(name string) storedDocument {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc := storedDocument{Id: uuid.NewString(), Name: name}
	r.docs = append(r.docs, doc)
	return doc
}

func (r *documentRegistry) List() []storedDocument {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]storedDocument, len(r.docs))
	copy(out, r.docs)
	return out
}

func (r *documentRegistry) Get(id string) (storedDocument, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.docs {
		if doc.Id == id {
			return doc, true
		}
	}
	return storedDocument{}, false
}

func (r *documentRegistry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, doc := range r.docs {
		if doc.Id == id {
			r.docs = append(r.docs[:i], r.docs[i+1:]...)
			return true
		}
	}
	return false
}
