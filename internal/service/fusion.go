package service

import (
	"sort"

	"github.com/cloo-solutions/infofinder/internal/domain"
	"github.com/cloo-solutions/infofinder/internal/index"
)

// fuseRRF merges the vector and lexical rankings with Reciprocal Rank
// Fusion: each list contributes 1/(rrfK + rank) for the chunks it contains,
// with 1-based ranks. Absence from a list contributes exactly 0, so an
// empty list degrades fusion to the other list's reciprocal-rank order.
// The fused candidates are sorted by score descending, ties broken by chunk
// id ascending, and truncated to topK.
func fuseRRF(vectorHits, lexicalHits []index.Hit, rrfK, topK int) []domain.RankedEntry {
	candidates := make(map[string]*domain.RankedEntry, len(vectorHits)+len(lexicalHits))

	add := func(hits []index.Hit, vector bool) {
		for i, h := range hits {
			rank := i + 1
			entry, ok := candidates[h.ChunkID]
			if !ok {
				entry = &domain.RankedEntry{ChunkID: h.ChunkID}
				candidates[h.ChunkID] = entry
			}
			entry.FusionScore += 1.0 / float64(rrfK+rank)
			if vector {
				entry.VectorRank = rank
			} else {
				entry.LexicalRank = rank
			}
		}
	}
	add(vectorHits, true)
	add(lexicalHits, false)

	fused := make([]domain.RankedEntry, 0, len(candidates))
	for _, entry := range candidates {
		fused = append(fused, *entry)
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].FusionScore != fused[j].FusionScore {
			return fused[i].FusionScore > fused[j].FusionScore
		}
		return fused[i].ChunkID < fused[j].ChunkID
	})

	if topK > 0 && len(fused) > topK {
		fused = fused[:topK]
	}
	return fused
}
