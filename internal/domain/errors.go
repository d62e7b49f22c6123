package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches by error code, so wrapped variants of a sentinel compare equal.
func (e *DomainError) Is(target error) bool {
	other, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeDimensionMismatch = "DIMENSION_MISMATCH"
	ErrCodeIndexEmpty        = "INDEX_EMPTY"
	ErrCodeSourceUnavailable = "SOURCE_UNAVAILABLE"
	ErrCodeConfiguration     = "CONFIGURATION_ERROR"
	ErrCodePartialFailure    = "PARTIAL_FAILURE"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidTokenCount    = NewDomainError(ErrCodeValidation, "token count must be at least 1")
	ErrEmptyEmbedding       = NewDomainError(ErrCodeValidation, "embedding must not be empty")
)

// Retrieval errors
var (
	ErrDimensionMismatch = NewDomainError(ErrCodeDimensionMismatch, "embedding dimensionality does not match the store")
	ErrIndexEmpty        = NewDomainError(ErrCodeIndexEmpty, "no indexed chunks available")
	ErrSourceUnavailable = NewDomainError(ErrCodeSourceUnavailable, "retrieval source unavailable")
	ErrChunkIDReused     = NewDomainError(ErrCodeValidation, "chunk id was already used by a removed chunk")
)

// Not found errors
var (
	ErrChunkNotFound    = NewDomainError(ErrCodeNotFound, "chunk not found")
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
)

// NewConfigurationError builds a configuration error for an invalid option.
func NewConfigurationError(format string, args ...interface{}) *DomainError {
	return NewDomainError(ErrCodeConfiguration, fmt.Sprintf(format, args...))
}

// NewPartialFailureError builds a batch ingestion error; no chunk in the batch is committed.
func NewPartialFailureError(message string, cause error) *DomainError {
	return NewDomainErrorWithCause(ErrCodePartialFailure, message, cause)
}
