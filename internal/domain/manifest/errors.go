package manifest

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for programmatic error handling.
var (
	// ErrNoManifest indicates a plugin directory has no manifest.json at the
	// root or in its admin/api modules.
	ErrNoManifest = errors.New("no manifest.json found")
)

// NotFoundError indicates a manifest file does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("manifest not found: %s", e.Path)
}

// IsNotFound returns true if the error indicates a missing manifest.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// SizeError indicates a manifest exceeds the size limit.
type SizeError struct {
	Path  string
	Size  int64
	Limit int64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("manifest %s is %d bytes, exceeds limit of %d bytes", e.Path, e.Size, e.Limit)
}

// IsSizeError returns true if the error is a manifest size violation.
func IsSizeError(err error) bool {
	var sizeErr *SizeError
	return errors.As(err, &sizeErr)
}

// ParseError indicates a manifest is not valid JSON.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError returns true if the error is a manifest decoding failure.
func IsParseError(err error) bool {
	var parseErr *ParseError
	return errors.As(err, &parseErr)
}

// ValidationError collects validation messages. It is used as an accumulator
// by the validators and as an error by callers that want to fail on an
// invalid manifest.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0]
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

// Add adds an error message to the collection.
func (e *ValidationError) Add(msg string) {
	e.Errors = append(e.Errors, msg)
}

// Addf adds a formatted error message to the collection.
func (e *ValidationError) Addf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are validation errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// Result converts the collected messages into a ValidationResult.
func (e *ValidationError) Result() ValidationResult {
	errs := make([]string, len(e.Errors))
	copy(errs, e.Errors)
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// IsValidationError returns true if the error is a validation error.
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
