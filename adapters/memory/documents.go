// Package memory provides in-memory implementations for testing and for
// running without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/matchboxjs/matchbox-model/ports"
)

// DocumentStore is an in-memory implementation of ports.DocumentStore.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]ports.Document // by type, then key
	now  func() time.Time
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		docs: make(map[string]map[string]ports.Document),
		now:  time.Now,
	}
}

// Put stores a copy of data.
func (s *DocumentStore) Put(ctx context.Context, typ, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byKey, ok := s.docs[typ]
	if !ok {
		byKey = make(map[string]ports.Document)
		s.docs[typ] = byKey
	}
	byKey[key] = ports.Document{
		Type:      typ,
		Key:       key,
		Data:      append([]byte(nil), data...),
		UpdatedAt: s.now(),
	}
	return nil
}

// Get returns a document.
func (s *DocumentStore) Get(ctx context.Context, typ, key string) (ports.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[typ][key]
	if !ok {
		return ports.Document{}, ports.ErrNotFound
	}
	doc.Data = append([]byte(nil), doc.Data...)
	return doc, nil
}

// Delete removes a document.
func (s *DocumentStore) Delete(ctx context.Context, typ, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[typ][key]; !ok {
		return ports.ErrNotFound
	}
	delete(s.docs[typ], key)
	return nil
}

// List returns the keys of a type, sorted.
func (s *DocumentStore) List(ctx context.Context, typ string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.docs[typ]))
	for key := range s.docs[typ] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the total number of documents.
func (s *DocumentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, byKey := range s.docs {
		n += len(byKey)
	}
	return n
}

// Close is a no-op.
func (s *DocumentStore) Close() error {
	return nil
}

// Ensure interface compliance.
var _ ports.DocumentStore = (*DocumentStore)(nil)
