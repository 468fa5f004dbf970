// Package errors provides standardized error types and helpers for the pagewalk codebase.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the decoder's failure classes
var (
	// ErrFormat indicates malformed file structure (bad page tag, serial type, record header)
	ErrFormat = errors.New("format error")
	// ErrTruncated indicates the buffer ended before a structural field was complete
	ErrTruncated = errors.New("truncated")
	// ErrUnsupported indicates a valid but unmodeled format feature (e.g. overflow pages)
	ErrUnsupported = errors.New("unsupported")
	// ErrNotFound indicates an unknown table, index, or column name
	ErrNotFound = errors.New("not found")
)

// FormatError represents malformed file structure with context
type FormatError struct {
	Structure string // What was being parsed (e.g., "page header", "record")
	Offset    int    // Byte offset where parsing failed, -1 if unknown
	Message   string // Human-readable error message
	Err       error  // Underlying error, if any
}

func (e *FormatError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("malformed %s at offset %d: %s", e.Structure, e.Offset, e.Message)
	}
	return fmt.Sprintf("malformed %s: %s", e.Structure, e.Message)
}

func (e *FormatError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrFormat
}

// TruncatedError represents a buffer that is shorter than a structural field demands
type TruncatedError struct {
	Structure string // What was being parsed
	Need      int    // Bytes required
	Have      int    // Bytes available
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("truncated %s: need %d bytes, have %d", e.Structure, e.Need, e.Have)
}

func (e *TruncatedError) Unwrap() error {
	return ErrTruncated
}

// UnsupportedError represents a format feature this decoder does not model
type UnsupportedError struct {
	Feature string // Feature that is unsupported
	Reason  string // Why it cannot be decoded
	Err     error  // Underlying error, if any
}

func (e *UnsupportedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported %s: %s", e.Feature, e.Reason)
	}
	return fmt.Sprintf("unsupported %s", e.Feature)
}

func (e *UnsupportedError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrUnsupported
}

// NotFoundError represents an unknown table, index, or column with context
type NotFoundError struct {
	Resource string // Type of resource ("table", "index", "column")
	Name     string // Name that failed to resolve
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.Name)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// Helper functions for creating common errors

// NewFormat creates a FormatError at an unknown offset
func NewFormat(structure, message string) *FormatError {
	return &FormatError{
		Structure: structure,
		Offset:    -1,
		Message:   message,
	}
}

// NewFormatAt creates a FormatError at a known byte offset
func NewFormatAt(structure string, offset int, message string) *FormatError {
	return &FormatError{
		Structure: structure,
		Offset:    offset,
		Message:   message,
	}
}

// NewTruncated creates a TruncatedError
func NewTruncated(structure string, need, have int) *TruncatedError {
	return &TruncatedError{
		Structure: structure,
		Need:      need,
		Have:      have,
	}
}

// NewUnsupported creates an UnsupportedError
func NewUnsupported(feature, reason string) *UnsupportedError {
	return &UnsupportedError{
		Feature: feature,
		Reason:  reason,
	}
}

// NewNotFound creates a NotFoundError
func NewNotFound(resource, name string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		Name:     name,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
