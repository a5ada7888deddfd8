package memstore

import (
	"sort"
	"sync"

	"github.com/desiderantes/stew/internal/domain"
)

// MemoryStore is an in-process result store for builds without a
// filesystem, such as the wasm module.
type MemoryStore struct {
	mu      sync.RWMutex
	docs    map[string]domain.Document
	results map[string]domain.FileResult
	stats   domain.Stats
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:    make(map[string]domain.Document),
		results: make(map[string]domain.FileResult),
	}
}

func (s *MemoryStore) Save(doc domain.Document, result domain.FileResult) error {
	if result.Err != "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
	s.results[doc.ID] = result
	return nil
}

func (s *MemoryStore) Lookup(path, contentHash string) (domain.FileResult, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, doc := range s.docs {
		if doc.Path != path || doc.ContentHash != contentHash {
			continue
		}
		result := s.results[id]
		result.Records = append([]domain.MessageRecord(nil), result.Records...)
		result.Cached = true
		return result, true, nil
	}
	return domain.FileResult{}, false, nil
}

func (s *MemoryStore) DeleteDoc(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	delete(s.results, id)
	return nil
}

// ListDocs returns documents sorted by path.
func (s *MemoryStore) ListDocs() ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]domain.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

func (s *MemoryStore) GetStats() (domain.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats, nil
}

func (s *MemoryStore) UpdateStats(stats domain.Stats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = stats
	return nil
}

// Records returns the number of cached records across all documents.
func (s *MemoryStore) Records() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, r := range s.results {
		total += len(r.Records)
	}
	return total
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[string]domain.Document)
	s.results = make(map[string]domain.FileResult)
	s.stats = domain.Stats{}
}
