// Package errors provides standardized error handling for the golden-record pipeline.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Fatal pipeline errors, grouped by stage.
const (
	// Loader stage
	ErrCodeMalformedDocument   ErrorCode = "MALFORMED_DOCUMENT"
	ErrCodeUnsupportedEncoding ErrorCode = "UNSUPPORTED_ENCODING"
	ErrCodeDocumentTooLarge    ErrorCode = "DOCUMENT_TOO_LARGE"

	// Normalizer stage
	ErrCodeStructuralViolation ErrorCode = "STRUCTURAL_VIOLATION"

	// Resolution stage
	ErrCodeFieldNotFound ErrorCode = "FIELD_NOT_FOUND"

	// Generation stage
	ErrCodeNoLabelAvailable ErrorCode = "NO_LABEL_AVAILABLE"
	ErrCodeEncodingError    ErrorCode = "ENCODING_ERROR"
	ErrCodeNoGroupsFound    ErrorCode = "NO_GROUPS_FOUND"
)

// Non-fatal diagnostic codes. These never abort a run; they are accumulated
// and returned alongside the artifacts.
const (
	DiagUnresolvedReference  ErrorCode = "UNRESOLVED_REFERENCE"
	DiagDuplicateBusinessKey ErrorCode = "DUPLICATE_BUSINESS_KEY"
	DiagFieldExcluded        ErrorCode = "FIELD_EXCLUDED"
	DiagLanguageFallback     ErrorCode = "LANGUAGE_FALLBACK"
)

// PipelineError represents a structured, fatal pipeline error.
type PipelineError struct {
	Code      ErrorCode              `json:"code"`
	Stage     string                 `json:"stage"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Path      string                 `json:"path,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *PipelineError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("PipelineError[%s] at %s (%s): %s", e.Code, e.Stage, e.Path, e.Message)
	}
	return fmt.Sprintf("PipelineError[%s] at %s: %s", e.Code, e.Stage, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewMalformedDocumentError reports an XML syntax error with position context.
func NewMalformedDocumentError(source string, line, column int, err error) *PipelineError {
	return &PipelineError{
		Code:    ErrCodeMalformedDocument,
		Stage:   "loader",
		Message: "Document is not well-formed XML",
		Details: err.Error(),
		Path:    source,
		Metadata: map[string]interface{}{
			"line":   line,
			"column": column,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewUnsupportedEncodingError reports a character encoding the loader cannot decode.
func NewUnsupportedEncodingError(source, encoding string) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeUnsupportedEncoding,
		Stage:     "loader",
		Message:   "Document encoding is not supported",
		Details:   fmt.Sprintf("encoding: %s", encoding),
		Path:      source,
		Timestamp: time.Now().UTC(),
	}
}

// NewDocumentTooLargeError reports a document that exceeded the expansion cap.
func NewDocumentTooLargeError(source string, limit, seen int64) *PipelineError {
	return &PipelineError{
		Code:    ErrCodeDocumentTooLarge,
		Stage:   "loader",
		Message: "Expanded document size exceeds the configured cap",
		Details: fmt.Sprintf("limit: %d bytes, expanded: %d bytes", limit, seen),
		Path:    source,
		Metadata: map[string]interface{}{
			"limitBytes":    limit,
			"expandedBytes": seen,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewStructuralViolationError reports a document missing the required root marker.
func NewStructuralViolationError(source, rootTag, expectedMarker string) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeStructuralViolation,
		Stage:     "normalizer",
		Message:   "Document lacks the required structure root marker",
		Details:   fmt.Sprintf("root tag: %q, expected marker: %q", rootTag, expectedMarker),
		Path:      source,
		Timestamp: time.Now().UTC(),
	}
}

// NewFieldNotFoundError reports a failed exact-identifier lookup.
func NewFieldNotFoundError(identifier string) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeFieldNotFound,
		Stage:     "resolution",
		Message:   "No field matches the requested identifier",
		Details:   fmt.Sprintf("identifier: %s", identifier),
		Path:      identifier,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoLabelAvailableError reports a field record carrying zero language entries.
func NewNoLabelAvailableError(identifier, path string) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeNoLabelAvailable,
		Stage:     "generation",
		Message:   "Field has no label in any language",
		Details:   fmt.Sprintf("identifier: %s", identifier),
		Path:      path,
		Timestamp: time.Now().UTC(),
	}
}

// NewEncodingError reports a value that cannot be represented in the target encoding.
func NewEncodingError(column, encoding string, err error) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeEncodingError,
		Stage:     "generation",
		Message:   "Value cannot be represented in the output encoding",
		Details:   fmt.Sprintf("column: %s, encoding: %s, error: %s", column, encoding, err.Error()),
		Path:      column,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoGroupsFoundError reports a grouping policy that matched zero metadata entries.
func NewNoGroupsFoundError(policy string) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeNoGroupsFound,
		Stage:     "splitter",
		Message:   "Grouping policy matched no metadata entries",
		Details:   fmt.Sprintf("policy: %s", policy),
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// IsFatal reports whether the code aborts the run. Diagnostic codes never do.
func IsFatal(code ErrorCode) bool {
	switch code {
	case DiagUnresolvedReference, DiagDuplicateBusinessKey, DiagFieldExcluded, DiagLanguageFallback:
		return false
	default:
		return true
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "DOCUMENT") || strings.Contains(codeStr, "ENCODING"):
		return "DOCUMENT"
	case strings.Contains(codeStr, "STRUCTURAL") || strings.Contains(codeStr, "REFERENCE"):
		return "STRUCTURE"
	case strings.Contains(codeStr, "FIELD") || strings.Contains(codeStr, "BUSINESS_KEY"):
		return "FIELD"
	case strings.Contains(codeStr, "LABEL") || strings.Contains(codeStr, "LANGUAGE"):
		return "LANGUAGE"
	case strings.Contains(codeStr, "GROUP"):
		return "LAYOUT"
	default:
		return "OTHER"
	}
}
