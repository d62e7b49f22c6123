package service

import (
	"strings"
	"unicode"
)

// ChunkOptions controls text splitting for document ingestion.
type ChunkOptions struct {
	MaxChars int
	Overlap  int
}

// chunkText splits text into chunks of at most MaxChars characters,
// preferring to cut at whitespace, with Overlap characters repeated between
// adjacent chunks.
func chunkText(text string, opts ChunkOptions) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultChunkSize
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.MaxChars {
		opts.Overlap = 0
	}
	runes := []rune(clean)
	if len(runes) <= opts.MaxChars {
		return []string{clean}
	}

	chunks := make([]string, 0, len(runes)/opts.MaxChars+1)
	start := 0
	for start < len(runes) {
		end := start + opts.MaxChars
		if end > len(runes) {
			end = len(runes)
		}

		if end < len(runes) {
			cut := end
			minCut := start + opts.MaxChars/2
			for i := end; i > minCut; i-- {
				if unicode.IsSpace(runes[i-1]) {
					cut = i
					break
				}
			}
			end = cut
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(runes) {
			break
		}

		nextStart := end
		if opts.Overlap > 0 && end-start > opts.Overlap {
			nextStart = end - opts.Overlap
		}
		if nextStart <= start {
			nextStart = end
		}
		start = nextStart
	}

	return chunks
}
