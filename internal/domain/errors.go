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
	ErrCodeExtraction        = "EXTRACTION_ERROR"
	ErrCodeChunking          = "CHUNKING_ERROR"
	ErrCodeIndexBuild        = "INDEX_BUILD_ERROR"
	ErrCodeEmbeddingMismatch = "EMBEDDING_MISMATCH"
	ErrCodeUnknownModel      = "UNKNOWN_MODEL"
	ErrCodeModel             = "MODEL_ERROR"
	ErrCodeBuildInProgress   = "BUILD_IN_PROGRESS"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// Ingestion errors
var (
	ErrNotPDF             = NewDomainError(ErrCodeExtraction, "file is not a well-formed PDF")
	ErrPasswordProtected  = NewDomainError(ErrCodeExtraction, "PDF is password protected")
	ErrNoPages            = NewDomainError(ErrCodeExtraction, "document contains no extractable pages")
	ErrDegenerateChunking = NewDomainError(ErrCodeChunking, "overlap must be non-negative and smaller than max chunk size")
	ErrBuildInProgress    = NewDomainError(ErrCodeBuildInProgress, "an index build for this document is already in flight")
)

// Lookup errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrChunkNotFound    = NewDomainError(ErrCodeNotFound, "chunk not found")
)

// Model dispatch errors
var (
	ErrUnknownModel      = NewDomainError(ErrCodeUnknownModel, "model identifier is not registered")
	ErrEmbeddingMismatch = NewDomainError(ErrCodeEmbeddingMismatch, "query embedding model does not match the index embedding model")
)

// Validation errors
var (
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrEmptyQuery           = NewDomainError(ErrCodeValidation, "query text is empty")
)

// NewExtractionError wraps an external extraction failure.
func NewExtractionError(reason string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeExtraction, reason, err)
}

// NewIndexBuildError wraps an embedding failure during an index build.
func NewIndexBuildError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeIndexBuild, "index build failed, no partial index published", err)
}

// NewModelError wraps a generation call failure or timeout.
func NewModelError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeModel, "model call failed", err)
}
