package service

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter reports how many tokens a text occupies, used to fill
// Chunk.TokenCount at ingestion time.
type TokenCounter interface {
	CountTokens(text string) (int, error)
}

// TiktokenCounter counts tokens with a tiktoken encoding.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenCounter creates a counter for the given encoding name,
// defaulting to cl100k_base.
func NewTiktokenCounter(encodingName string) (*TiktokenCounter, error) {
	if encodingName == "" {
		encodingName = "cl100k_base"
	}
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, err
	}
	return &TiktokenCounter{encoding: enc}, nil
}

// CountTokens returns the token count of text, at least 1 for non-empty text.
func (c *TiktokenCounter) CountTokens(text string) (int, error) {
	tokens := c.encoding.Encode(text, nil, nil)
	return len(tokens), nil
}

// WordCounter approximates token counts by whitespace-separated words. Used
// when tiktoken's encoding data is unavailable (it downloads on first use).
type WordCounter struct{}

func (WordCounter) CountTokens(text string) (int, error) {
	return len(strings.Fields(text)), nil
}
