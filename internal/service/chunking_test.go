package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkText_ShortTextSingleChunk(t *testing.T) {
	chunks := chunkText("a short document", ChunkOptions{MaxChars: 100, Overlap: 10})
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short document", chunks[0])
}

func TestChunkText_EmptyText(t *testing.T) {
	assert.Nil(t, chunkText("", ChunkOptions{MaxChars: 100}))
	assert.Nil(t, chunkText("   \n\t ", ChunkOptions{MaxChars: 100}))
}

func TestChunkText_RespectsMaxChars(t *testing.T) {
	text := strings.Repeat("word ", 200)
	chunks := chunkText(text, ChunkOptions{MaxChars: 100, Overlap: 0})

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 100)
	}
}

func TestChunkText_PrefersWhitespaceCut(t *testing.T) {
	text := strings.Repeat("alpha beta ", 30)
	chunks := chunkText(text, ChunkOptions{MaxChars: 50, Overlap: 0})

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks[:len(chunks)-1] {
		// Cuts land on word boundaries, so no chunk ends mid-word.
		assert.True(t, strings.HasSuffix(c, "alpha") || strings.HasSuffix(c, "beta"), "chunk ends mid-word: %q", c)
	}
}

func TestChunkText_OverlapRepeatsText(t *testing.T) {
	text := strings.Repeat("segment ", 100)
	chunks := chunkText(text, ChunkOptions{MaxChars: 80, Overlap: 20})

	require.Greater(t, len(chunks), 1)
	// The tail of each chunk reappears at the head of the next.
	for i := 1; i < len(chunks); i++ {
		prevTail := chunks[i-1][len(chunks[i-1])-7:]
		assert.Contains(t, chunks[i][:20], strings.TrimSpace(prevTail))
	}
}

func TestChunkText_CoversAllContent(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet ", 50)
	chunks := chunkText(text, ChunkOptions{MaxChars: 120, Overlap: 30})

	joined := strings.Join(chunks, " ")
	for _, word := range []string{"lorem", "ipsum", "dolor", "sit", "amet"} {
		assert.Contains(t, joined, word)
	}
}

func TestChunkText_NoWhitespaceFallsBackToHardCut(t *testing.T) {
	text := strings.Repeat("x", 250)
	chunks := chunkText(text, ChunkOptions{MaxChars: 100, Overlap: 0})

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 100)
	assert.Len(t, chunks[1], 100)
	assert.Len(t, chunks[2], 50)
}
