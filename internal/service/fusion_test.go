package service

import (
	"testing"

	"github.com/cloo-solutions/infofinder/internal/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuseRRF_MergesBothLists(t *testing.T) {
	vector := []index.Hit{
		{ChunkID: "A", Score: 0.95},
		{ChunkID: "C", Score: 0.80},
	}
	lexical := []index.Hit{
		{ChunkID: "B", Score: 12.1},
		{ChunkID: "A", Score: 9.4},
	}

	fused := fuseRRF(vector, lexical, 60, 10)

	require.Len(t, fused, 3)
	assert.Equal(t, "A", fused[0].ChunkID)
	assert.Equal(t, "B", fused[1].ChunkID)
	assert.Equal(t, "C", fused[2].ChunkID)

	// A appears at vector rank 1 and lexical rank 2.
	assert.InDelta(t, 1.0/61+1.0/62, fused[0].FusionScore, 1e-12)
	assert.InDelta(t, 1.0/61, fused[1].FusionScore, 1e-12)
	assert.InDelta(t, 1.0/62, fused[2].FusionScore, 1e-12)

	assert.Equal(t, 1, fused[0].VectorRank)
	assert.Equal(t, 2, fused[0].LexicalRank)
	assert.Equal(t, 0, fused[1].VectorRank)
	assert.Equal(t, 1, fused[1].LexicalRank)
	assert.Equal(t, 2, fused[2].VectorRank)
	assert.Equal(t, 0, fused[2].LexicalRank)
}

func TestFuseRRF_EmptyLexicalDegradesToVectorOrder(t *testing.T) {
	vector := []index.Hit{
		{ChunkID: "X", Score: 0.9},
		{ChunkID: "Y", Score: 0.5},
	}

	fused := fuseRRF(vector, nil, 60, 10)

	require.Len(t, fused, 2)
	assert.Equal(t, "X", fused[0].ChunkID)
	assert.Equal(t, "Y", fused[1].ChunkID)
	assert.InDelta(t, 1.0/61, fused[0].FusionScore, 1e-12)
	assert.InDelta(t, 1.0/62, fused[1].FusionScore, 1e-12)
	assert.Equal(t, 0, fused[0].LexicalRank)
}

func TestFuseRRF_TiesBreakByChunkID(t *testing.T) {
	// b and a each sit at rank 1 of exactly one list, so their scores tie.
	vector := []index.Hit{{ChunkID: "b", Score: 0.9}}
	lexical := []index.Hit{{ChunkID: "a", Score: 3.2}}

	fused := fuseRRF(vector, lexical, 60, 10)

	require.Len(t, fused, 2)
	assert.Equal(t, fused[0].FusionScore, fused[1].FusionScore)
	assert.Equal(t, "a", fused[0].ChunkID)
	assert.Equal(t, "b", fused[1].ChunkID)
}

func TestFuseRRF_TruncatesToTopK(t *testing.T) {
	vector := []index.Hit{
		{ChunkID: "a"}, {ChunkID: "b"}, {ChunkID: "c"}, {ChunkID: "d"},
	}

	fused := fuseRRF(vector, nil, 60, 2)

	require.Len(t, fused, 2)
	assert.Equal(t, "a", fused[0].ChunkID)
	assert.Equal(t, "b", fused[1].ChunkID)
}

func TestFuseRRF_SizeIsMinOfTopKAndUnion(t *testing.T) {
	vector := []index.Hit{{ChunkID: "a"}, {ChunkID: "b"}}
	lexical := []index.Hit{{ChunkID: "b"}, {ChunkID: "c"}}

	fused := fuseRRF(vector, lexical, 60, 10)
	assert.Len(t, fused, 3)

	fused = fuseRRF(vector, lexical, 60, 3)
	assert.Len(t, fused, 3)
}

func TestFuseRRF_Deterministic(t *testing.T) {
	vector := []index.Hit{{ChunkID: "m"}, {ChunkID: "k"}, {ChunkID: "z"}}
	lexical := []index.Hit{{ChunkID: "z"}, {ChunkID: "m"}, {ChunkID: "q"}}

	first := fuseRRF(vector, lexical, 60, 10)
	for i := 0; i < 20; i++ {
		again := fuseRRF(vector, lexical, 60, 10)
		assert.Equal(t, first, again)
	}
}

func TestFuseRRF_BothEmpty(t *testing.T) {
	fused := fuseRRF(nil, nil, 60, 10)
	assert.Empty(t, fused)
}
