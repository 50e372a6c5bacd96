package theme

import (
	"errors"
	"fmt"
)

// ErrorKind classifies theme errors.
type ErrorKind int

const (
	// KindInvalidReference indicates a malformed or missing theme identifier.
	KindInvalidReference ErrorKind = iota
	// KindDownload indicates a network, transport, HTTP status, or size-limit failure.
	KindDownload
	// KindExtraction indicates a malformed archive, an unsafe entry path, or an
	// I/O failure while unpacking or copying.
	KindExtraction
	// KindValidation indicates a local theme path that is missing or not a directory.
	KindValidation
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidReference:
		return "InvalidReference"
	case KindDownload:
		return "Download"
	case KindExtraction:
		return "Extraction"
	case KindValidation:
		return "Validation"
	default:
		return "Unknown"
	}
}

// Error is the error type surfaced to the host for every theme failure.
type Error struct {
	// Kind is the error classification.
	Kind ErrorKind
	// Message is the human-readable error message.
	Message string
	// Subject is what the error is about: a URL, an archive path, a local path,
	// or the raw theme identifier.
	Subject string
	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("theme error [%s] for '%s': %s (caused by: %v)",
			e.Kind, e.Subject, e.Message, e.Cause)
	}
	return fmt.Sprintf("theme error [%s] for '%s': %s", e.Kind, e.Subject, e.Message)
}

// Unwrap returns the underlying cause for error wrapping.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error.
func NewError(kind ErrorKind, subject, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Subject: subject,
		Cause:   cause,
	}
}

// NewInvalidReferenceError creates an invalid reference error.
func NewInvalidReferenceError(raw, message string) *Error {
	return NewError(KindInvalidReference, raw, message, nil)
}

// NewDownloadError creates a download error for the given URL.
func NewDownloadError(url, message string, cause error) *Error {
	return NewError(KindDownload, url, message, cause)
}

// NewExtractionError creates an extraction error for the given archive.
func NewExtractionError(archivePath, message string, cause error) *Error {
	return NewError(KindExtraction, archivePath, message, cause)
}

// NewValidationError creates a validation error for a local theme path.
func NewValidationError(path, message string, cause error) *Error {
	return NewError(KindValidation, path, message, cause)
}

// IsKind reports whether err wraps a theme Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind == kind
	}
	return false
}
