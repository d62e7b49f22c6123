// Package store holds immutable text chunks and their metadata and is the
// backing source for both retrieval indexes.
package store

import (
	"fmt"
	"sync"

	"github.com/cloo-solutions/infofinder/internal/domain"
)

// Index is the mutation surface the store cascades into on ingestion and
// removal. Both retrieval indexes implement it.
type Index interface {
	Add(chunks []*domain.Chunk)
	Remove(chunkIDs []string)
}

// MemoryStore is an in-memory chunk store. The first stored chunk locks the
// embedding dimensionality for the whole store; ids of removed chunks are
// never reused. Reads may run concurrently with each other; mutation takes
// the write lock and excludes reads for the whole batch.
type MemoryStore struct {
	mu         sync.RWMutex
	dimensions int
	chunks     map[string]*domain.Chunk
	byDocument map[string][]string
	tombstones map[string]struct{}
	indexes    []Index
}

// NewMemoryStore creates an empty store. With dimensions > 0 the
// dimensionality is locked up front; with 0 it locks to the first batch.
func NewMemoryStore(dimensions int) *MemoryStore {
	return &MemoryStore{
		dimensions: dimensions,
		chunks:     make(map[string]*domain.Chunk),
		byDocument: make(map[string][]string),
		tombstones: make(map[string]struct{}),
	}
}

// Attach registers indexes for cascaded mutation.
func (s *MemoryStore) Attach(indexes ...Index) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexes = append(s.indexes, indexes...)
}

// Dimensions returns the locked embedding dimensionality, 0 if not yet locked.
func (s *MemoryStore) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimensions
}

// Count returns the number of stored chunks.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Get returns a chunk by id.
func (s *MemoryStore) Get(id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chunks[id]
	if !ok {
		return nil, domain.ErrChunkNotFound
	}
	return c, nil
}

// All returns every stored chunk, for index rebuilds.
func (s *MemoryStore) All() []*domain.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Chunk, 0, len(s.chunks))
	for _, c := range s.chunks {
		out = append(out, c)
	}
	return out
}

// SeedTombstones marks chunk ids as removed so they can never be reused,
// used on startup to replay removals that predate this process.
func (s *MemoryStore) SeedTombstones(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.tombstones[id] = struct{}{}
	}
}

// ValidateBatch runs every ingestion check on a batch without committing
// anything: chunk validation, dimensionality, id reuse and duplicates.
func (s *MemoryStore) ValidateBatch(chunks []*domain.Chunk) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validateLocked(chunks)
}

func (s *MemoryStore) validateLocked(chunks []*domain.Chunk) error {
	dims := s.dimensions
	seen := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		if err := domain.ValidateChunk(c); err != nil {
			return domain.NewPartialFailureError(fmt.Sprintf("chunk %s failed validation", c.ID), err)
		}
		if dims == 0 {
			dims = len(c.Embedding)
		}
		if len(c.Embedding) != dims {
			return domain.NewDomainErrorWithCause(
				domain.ErrCodeDimensionMismatch,
				fmt.Sprintf("chunk %s has %d dimensions, store has %d", c.ID, len(c.Embedding), dims),
				domain.ErrDimensionMismatch,
			)
		}
		if _, removed := s.tombstones[c.ID]; removed {
			return domain.NewDomainErrorWithCause(
				domain.ErrCodeValidation,
				fmt.Sprintf("chunk id %s was removed and cannot be reused", c.ID),
				domain.ErrChunkIDReused,
			)
		}
		if _, exists := s.chunks[c.ID]; exists {
			return domain.NewPartialFailureError(fmt.Sprintf("chunk id %s already stored", c.ID), nil)
		}
		if _, dup := seen[c.ID]; dup {
			return domain.NewPartialFailureError(fmt.Sprintf("chunk id %s appears twice in batch", c.ID), nil)
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}

// PutBatch validates and stores a batch of chunks all-or-nothing: if any
// chunk fails validation or dimensionality checks, nothing is committed to
// the store or to either index.
func (s *MemoryStore) PutBatch(chunks []*domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateLocked(chunks); err != nil {
		return err
	}

	if s.dimensions == 0 && len(chunks) > 0 {
		s.dimensions = len(chunks[0].Embedding)
	}
	for _, c := range chunks {
		s.chunks[c.ID] = c
		s.byDocument[c.DocumentID] = append(s.byDocument[c.DocumentID], c.ID)
	}
	for _, idx := range s.indexes {
		idx.Add(chunks)
	}
	return nil
}

// RemoveByDocument removes every chunk of a document and cascades the
// removal into all attached indexes before returning, so neither index can
// serve stale hits. Returns the removed chunk ids.
func (s *MemoryStore) RemoveByDocument(documentID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, ok := s.byDocument[documentID]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}

	for _, id := range ids {
		delete(s.chunks, id)
		s.tombstones[id] = struct{}{}
	}
	delete(s.byDocument, documentID)

	for _, idx := range s.indexes {
		idx.Remove(ids)
	}
	return ids, nil
}
