package domain

// Chunk is the atomic unit of retrieval: a bounded piece of source text with
// its embedding. Chunks are immutable once stored and removed only together
// with their source document.
type Chunk struct {
	ID         string
	DocumentID string
	Text       string
	TokenCount int
	Embedding  []float32
	Metadata   map[string]string
}

// ValidateChunk validates a Chunk before ingestion.
func ValidateChunk(c *Chunk) error {
	if c == nil {
		return NewDomainError(ErrCodeValidation, "chunk cannot be nil")
	}
	if c.ID == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, "chunk ID is required", ErrMissingRequiredField)
	}
	if c.DocumentID == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, "chunk document ID is required", ErrMissingRequiredField)
	}
	if c.Text == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, "chunk text is required", ErrMissingRequiredField)
	}
	if c.TokenCount < 1 {
		return ErrInvalidTokenCount
	}
	if len(c.Embedding) == 0 {
		return ErrEmptyEmbedding
	}
	return nil
}
