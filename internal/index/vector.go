// Package index provides the two retrieval signals: exact cosine similarity
// over chunk embeddings and BM25 lexical scoring over an inverted index.
package index

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/cloo-solutions/infofinder/internal/domain"
)

// Hit is one scored entry of a ranked index result.
type Hit struct {
	ChunkID string
	Score   float64
}

type vectorEntry struct {
	id        string
	embedding []float32
	norm      float64
}

// VectorIndex performs exact cosine-similarity search over chunk embeddings.
// Reads may run concurrently; mutation takes the write lock and excludes
// reads of this index only.
type VectorIndex struct {
	mu      sync.RWMutex
	dims    int
	entries map[string]vectorEntry
}

// NewVectorIndex creates an empty VectorIndex.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{entries: make(map[string]vectorEntry)}
}

// Build replaces the index contents with the given chunks.
func (idx *VectorIndex) Build(chunks []*domain.Chunk) {
	entries := make(map[string]vectorEntry, len(chunks))
	for _, c := range chunks {
		entries[c.ID] = vectorEntry{id: c.ID, embedding: c.Embedding, norm: vectorNorm(c.Embedding)}
	}

	idx.mu.Lock()
	idx.entries = entries
	if len(chunks) > 0 {
		idx.dims = len(chunks[0].Embedding)
	}
	idx.mu.Unlock()
}

// Add inserts chunks into the index.
func (idx *VectorIndex) Add(chunks []*domain.Chunk) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, c := range chunks {
		if idx.dims == 0 {
			idx.dims = len(c.Embedding)
		}
		idx.entries[c.ID] = vectorEntry{id: c.ID, embedding: c.Embedding, norm: vectorNorm(c.Embedding)}
	}
}

// Remove deletes chunks from the index by id.
func (idx *VectorIndex) Remove(chunkIDs []string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, id := range chunkIDs {
		delete(idx.entries, id)
	}
}

// Len returns the number of indexed chunks.
func (idx *VectorIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Query returns up to k chunks ranked by cosine similarity to the query
// embedding, descending, ties broken by chunk id ascending. Returns
// ErrIndexEmpty when no chunks are indexed and ErrDimensionMismatch when the
// query embedding does not match the indexed dimensionality.
func (idx *VectorIndex) Query(embedding []float32, k int) ([]Hit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.entries) == 0 {
		return nil, domain.ErrIndexEmpty
	}
	if idx.dims != 0 && len(embedding) != idx.dims {
		return nil, domain.NewDomainErrorWithCause(
			domain.ErrCodeDimensionMismatch,
			fmt.Sprintf("query embedding has %d dimensions, index has %d", len(embedding), idx.dims),
			domain.ErrDimensionMismatch,
		)
	}
	if k <= 0 {
		return []Hit{}, nil
	}

	queryNorm := vectorNorm(embedding)
	hits := make([]Hit, 0, len(idx.entries))
	for _, e := range idx.entries {
		hits = append(hits, Hit{ChunkID: e.id, Score: cosine(embedding, queryNorm, e.embedding, e.norm)})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a []float32, aNorm float64, b []float32, bNorm float64) float64 {
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (aNorm * bNorm)
}
