package types

import "fmt"

// ErrorCode represents a unified error code across the pipeline.
type ErrorCode string

// External-call error codes (transient failures are marked retryable).
const (
	ErrEmbeddingFailed      ErrorCode = "EMBEDDING_FAILED"
	ErrGenerationFailed     ErrorCode = "GENERATION_FAILED"
	ErrRerankFailed         ErrorCode = "RERANK_FAILED"
	ErrCitationLookupFailed ErrorCode = "CITATION_LOOKUP_FAILED"
	ErrVectorSearchFailed   ErrorCode = "VECTOR_SEARCH_FAILED"
	ErrTimeout              ErrorCode = "TIMEOUT"
	ErrRateLimited          ErrorCode = "RATE_LIMITED"
)

// Corpus and pipeline error codes.
const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrInvalidDocument  ErrorCode = "INVALID_DOCUMENT"
	ErrDocumentNotFound ErrorCode = "DOCUMENT_NOT_FOUND"
	ErrStoreFailure     ErrorCode = "STORE_FAILURE"
	ErrBudgetExhausted  ErrorCode = "BUDGET_EXHAUSTED"
	ErrInternalError    ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Component string    `json:"component,omitempty"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithComponent names the pipeline component that produced the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
