package domain

// DegradedSource identifies a retrieval signal that was unavailable for a
// request. A degraded result is still returned, labeled with the sources
// that did not contribute.
type DegradedSource string

const (
	DegradedVector   DegradedSource = "vector"
	DegradedLexical  DegradedSource = "lexical"
	DegradedReranker DegradedSource = "reranker"
)

// RankedEntry is the transient per-request ranking record for one chunk.
// VectorRank and LexicalRank are 1-based and zero when the chunk did not
// appear in that ranking's returned window.
type RankedEntry struct {
	ChunkID     string
	VectorRank  int
	LexicalRank int
	FusionScore float64
	RerankScore *float64
}

// RetrievedChunk is one element of the ordered retrieval response: the chunk
// itself plus its scores and provenance for source attribution.
type RetrievedChunk struct {
	Chunk       *Chunk
	FusionScore float64
	RerankScore *float64
	VectorRank  int
	LexicalRank int
}
