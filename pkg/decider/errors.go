package decider

import "fmt"

// LoadError represents an error that occurred while loading a rule artifact.
// This includes file system errors like "file not found" or "permission denied"
// as well as artifacts that are not valid JSON at the top level.
type LoadError struct {
	// FilePath is the path to the artifact that failed to load
	FilePath string

	// Message describes the error
	Message string

	// Cause is the underlying error that caused this load error
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load rule artifact %q: %s: %v", e.FilePath, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load rule artifact %q: %s", e.FilePath, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// NewLoadError creates a new LoadError.
func NewLoadError(filePath, message string, cause error) *LoadError {
	return &LoadError{
		FilePath: filePath,
		Message:  message,
		Cause:    cause,
	}
}

// CapabilityError represents a request for a capability token the engine
// does not implement.
type CapabilityError struct {
	// Token is the unrecognized capability token
	Token string
}

// Error implements the error interface.
func (e *CapabilityError) Error() string {
	return fmt.Sprintf("unsupported engine capability %q", e.Token)
}
