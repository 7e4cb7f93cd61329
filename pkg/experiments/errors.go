package experiments

import (
	"errors"
	"fmt"
)

// errIdentityAbsent marks a required identity field that resolved to
// nothing without the source reporting an error.
var errIdentityAbsent = errors.New("identity source returned no value")

// CacheError represents a failure to load, parse, or watch the
// experiment configuration artifact.
type CacheError struct {
	FilePath string // Path to the configuration artifact
	Message  string // Human-readable description of the failure
	Cause    error  // Underlying error, if any
}

// Error implements the error interface.
func (e *CacheError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("config cache error [path=%s]: %s: %v", e.FilePath, e.Message, e.Cause)
	}
	return fmt.Sprintf("config cache error [path=%s]: %s", e.FilePath, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *CacheError) Unwrap() error {
	return e.Cause
}

// NewCacheError creates a new CacheError.
func NewCacheError(filePath, message string, cause error) *CacheError {
	return &CacheError{
		FilePath: filePath,
		Message:  message,
		Cause:    cause,
	}
}

// ContextError represents a failure to resolve an identity field while
// assembling an evaluation context.
type ContextError struct {
	Field string // Identity field that could not be resolved ("user_id", "loid", etc.)
	Cause error  // Underlying error
}

// Error implements the error interface.
func (e *ContextError) Error() string {
	return fmt.Sprintf("context error [field=%s]: %v", e.Field, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ContextError) Unwrap() error {
	return e.Cause
}

// NewContextError creates a new ContextError.
func NewContextError(field string, cause error) *ContextError {
	return &ContextError{
		Field: field,
		Cause: cause,
	}
}

// ClientError represents a failure to construct a decision client.
type ClientError struct {
	Message string // Human-readable description of the failure
	Cause   error  // Underlying error, if any
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("client error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("client error: %s", e.Message)
}

// Unwrap returns the underlying cause error.
func (e *ClientError) Unwrap() error {
	return e.Cause
}

// NewClientError creates a new ClientError.
func NewClientError(message string, cause error) *ClientError {
	return &ClientError{
		Message: message,
		Cause:   cause,
	}
}
