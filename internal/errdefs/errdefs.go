// Package errdefs provides a lightweight structured error type (BuildCheckError)
// for category-based classification in the CLI and the matrix pipeline, plus the
// sentinel errors shared across packages.
package errdefs

import (
	"errors"
	"fmt"
)

// ErrorCategory represents the category of a buildcheck error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryManifest   ErrorCategory = "manifest"

	// External tool integration errors
	CategoryToolchain ErrorCategory = "toolchain"
	CategoryGit       ErrorCategory = "git"

	// Pipeline and processing errors
	CategoryOverlay    ErrorCategory = "overlay"
	CategoryBaseline   ErrorCategory = "baseline"
	CategoryMatrix     ErrorCategory = "matrix"
	CategoryArtifacts  ErrorCategory = "artifacts"
	CategoryFileSystem ErrorCategory = "filesystem"

	// Runtime and infrastructure errors
	CategoryStore    ErrorCategory = "store"
	CategoryDaemon   ErrorCategory = "daemon"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// Sentinel errors for precondition failures. Always wrap with contextual
// information at the call site.
var (
	ErrManifestInvalid = errors.New("buildcheck: manifest invalid")
	ErrOverlayWrite    = errors.New("buildcheck: overlay write error")
	ErrToolchainFile   = errors.New("buildcheck: toolchain file unavailable")
	ErrToolNotFound    = errors.New("buildcheck: required tool not found")
	ErrConsumerMissing = errors.New("buildcheck: consumer project not found")
)

// BuildCheckError is a structured error with category, severity, and context
type BuildCheckError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for BuildCheckError
type ContextFields map[string]any

// Error implements the error interface
func (e *BuildCheckError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *BuildCheckError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *BuildCheckError) WithContext(key string, value any) *BuildCheckError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new BuildCheckError
func New(category ErrorCategory, severity ErrorSeverity, message string) *BuildCheckError {
	return &BuildCheckError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new BuildCheckError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *BuildCheckError {
	return &BuildCheckError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	var bce *BuildCheckError
	if errors.As(err, &bce) {
		return bce.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal
// if no BuildCheckError is found in the chain
func GetCategory(err error) ErrorCategory {
	var bce *BuildCheckError
	if errors.As(err, &bce) {
		return bce.Category
	}
	return CategoryInternal
}

// IsFatal reports whether the error chain carries a fatal classification.
func IsFatal(err error) bool {
	var bce *BuildCheckError
	if errors.As(err, &bce) {
		return bce.Severity == SeverityFatal
	}
	return false
}

// ManifestInvalid creates a fatal manifest-validation error.
func ManifestInvalid(path, reason string) *BuildCheckError {
	return Wrap(ErrManifestInvalid, CategoryManifest, SeverityFatal, reason).
		WithContext("path", path)
}

// ToolchainFileMissing creates a fatal precondition error for a missing or
// unset toolchain integration file.
func ToolchainFileMissing(envVar, path string) *BuildCheckError {
	msg := fmt.Sprintf("environment variable %s must point at the package manager's toolchain file", envVar)
	if path != "" {
		msg = fmt.Sprintf("%s points at %s, which does not exist", envVar, path)
	}
	return Wrap(ErrToolchainFile, CategoryToolchain, SeverityFatal, msg).
		WithContext("env_var", envVar).
		WithContext("path", path)
}

// OverlayWriteFailed creates a fatal overlay write error.
func OverlayWriteFailed(path string, cause error) *BuildCheckError {
	return &BuildCheckError{
		Category: CategoryOverlay,
		Severity: SeverityFatal,
		Message:  "failed to write overlay port fragment",
		Cause:    fmt.Errorf("%w: %w", ErrOverlayWrite, cause),
		Context:  ContextFields{"path": path},
	}
}
