package index

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/cloo-solutions/infofinder/internal/domain"
)

const (
	// DefaultBM25K1 controls term-frequency saturation.
	DefaultBM25K1 = 1.5
	// DefaultBM25B controls document-length normalization.
	DefaultBM25B = 0.75
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// stopwords are dropped at both index and query time. The list must never
// differ between the two or scoring silently breaks.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "has": {}, "he": {}, "in": {}, "is": {},
	"it": {}, "its": {}, "of": {}, "on": {}, "that": {}, "the": {}, "to": {},
	"was": {}, "were": {}, "will": {}, "with": {},
}

// Tokenize lowercases text and splits it into alphanumeric terms, dropping
// single-character tokens and stopwords. Indexing and querying use this
// exact tokenization.
func Tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		if len(t) < 2 {
			continue
		}
		if _, ok := stopwords[t]; ok {
			continue
		}
		tokens = append(tokens, t)
	}
	return tokens
}

// BM25Params holds the lexical scoring parameters.
type BM25Params struct {
	K1 float64
	B  float64
}

// DefaultBM25Params returns the default BM25 parameters.
func DefaultBM25Params() BM25Params {
	return BM25Params{K1: DefaultBM25K1, B: DefaultBM25B}
}

// LexicalIndex is an inverted index scoring candidates with BM25.
// Reads may run concurrently; mutation takes the write lock and excludes
// reads of this index only.
type LexicalIndex struct {
	mu       sync.RWMutex
	params   BM25Params
	postings map[string]map[string]int // term -> chunk id -> term frequency
	terms    map[string][]string       // chunk id -> distinct terms, for removal
	docLen   map[string]int            // chunk id -> token count after tokenization
	totalLen int
}

// NewLexicalIndex creates an empty LexicalIndex with the given parameters.
func NewLexicalIndex(params BM25Params) *LexicalIndex {
	if params.K1 <= 0 {
		params.K1 = DefaultBM25K1
	}
	if params.B < 0 || params.B > 1 {
		params.B = DefaultBM25B
	}
	return &LexicalIndex{
		params:   params,
		postings: make(map[string]map[string]int),
		terms:    make(map[string][]string),
		docLen:   make(map[string]int),
	}
}

// Build replaces the index contents with the given chunks. The new maps are
// assembled aside and swapped in under one lock acquisition, so a concurrent
// reader sees either the old contents or the new, never a cleared index.
func (idx *LexicalIndex) Build(chunks []*domain.Chunk) {
	postings := make(map[string]map[string]int)
	terms := make(map[string][]string)
	docLen := make(map[string]int)
	totalLen := 0
	for _, c := range chunks {
		totalLen += indexChunk(postings, terms, docLen, c)
	}

	idx.mu.Lock()
	idx.postings = postings
	idx.terms = terms
	idx.docLen = docLen
	idx.totalLen = totalLen
	idx.mu.Unlock()
}

// Add inserts chunks into the index.
func (idx *LexicalIndex) Add(chunks []*domain.Chunk) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, c := range chunks {
		if _, exists := idx.docLen[c.ID]; exists {
			idx.removeLocked(c.ID)
		}
		idx.totalLen += indexChunk(idx.postings, idx.terms, idx.docLen, c)
	}
}

func indexChunk(postings map[string]map[string]int, terms map[string][]string, docLen map[string]int, c *domain.Chunk) int {
	tokens := Tokenize(c.Text)
	tf := make(map[string]int, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	distinct := make([]string, 0, len(tf))
	for term, count := range tf {
		posting := postings[term]
		if posting == nil {
			posting = make(map[string]int)
			postings[term] = posting
		}
		posting[c.ID] = count
		distinct = append(distinct, term)
	}
	terms[c.ID] = distinct
	docLen[c.ID] = len(tokens)
	return len(tokens)
}

// Remove deletes chunks from the index by id.
func (idx *LexicalIndex) Remove(chunkIDs []string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, id := range chunkIDs {
		idx.removeLocked(id)
	}
}

func (idx *LexicalIndex) removeLocked(chunkID string) {
	length, ok := idx.docLen[chunkID]
	if !ok {
		return
	}
	for _, term := range idx.terms[chunkID] {
		posting := idx.postings[term]
		delete(posting, chunkID)
		if len(posting) == 0 {
			delete(idx.postings, term)
		}
	}
	delete(idx.terms, chunkID)
	delete(idx.docLen, chunkID)
	idx.totalLen -= length
}

// Len returns the number of indexed chunks.
func (idx *LexicalIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docLen)
}

// Query tokenizes the query text and returns up to k chunks ranked by BM25
// score descending, ties broken by chunk id ascending. Chunks matching no
// query term are never returned. Returns ErrIndexEmpty when no chunks are
// indexed.
func (idx *LexicalIndex) Query(queryText string, k int) ([]Hit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.docLen) == 0 {
		return nil, domain.ErrIndexEmpty
	}
	if k <= 0 {
		return []Hit{}, nil
	}

	n := float64(len(idx.docLen))
	avgLen := float64(idx.totalLen) / n

	scores := make(map[string]float64)
	for _, term := range Tokenize(queryText) {
		posting, ok := idx.postings[term]
		if !ok {
			continue
		}
		df := float64(len(posting))
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		for chunkID, tf := range posting {
			tfF := float64(tf)
			lenNorm := 1 - idx.params.B + idx.params.B*float64(idx.docLen[chunkID])/avgLen
			scores[chunkID] += idf * (tfF * (idx.params.K1 + 1)) / (tfF + idx.params.K1*lenNorm)
		}
	}

	hits := make([]Hit, 0, len(scores))
	for chunkID, score := range scores {
		hits = append(hits, Hit{ChunkID: chunkID, Score: score})
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
