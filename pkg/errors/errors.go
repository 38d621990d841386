// Package errors provides categorized error types for the reconciliation
// service.
//
// Errors carry a category, a machine-readable code, an optional suggestion
// for the operator, and a context map. Categories map to process exit codes
// for the CLI and to HTTP status codes in the server layer.
package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryFile          ErrorCategory = "file"
	CategoryParse         ErrorCategory = "parse"
	CategorySchema        ErrorCategory = "schema"
	CategoryValidation    ErrorCategory = "validation"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryStore         ErrorCategory = "store"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"
	CodeFileCorrupted  ErrorCode = "file_corrupted"

	// Parse errors
	CodeInvalidFormat     ErrorCode = "invalid_format"
	CodeUnsupportedFormat ErrorCode = "unsupported_format"
	CodeEmptyDataset      ErrorCode = "empty_dataset"

	// Schema errors
	CodeMissingColumn ErrorCode = "missing_column"

	// Validation errors
	CodeInvalidAmount ErrorCode = "invalid_amount"
	CodeMissingField  ErrorCode = "missing_field"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Store errors
	CodeAuthFailed     ErrorCode = "auth_failed"
	CodeDownloadFailed ErrorCode = "download_failed"
	CodeUploadFailed   ErrorCode = "upload_failed"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// ReconcilerError is the base error type for all application errors
type ReconcilerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *ReconcilerError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *ReconcilerError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *ReconcilerError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategorySchema, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryInternal:
		return 5
	case CategoryStore:
		return 6
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *ReconcilerError) WithContext(key string, value interface{}) *ReconcilerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *ReconcilerError) WithSuggestion(suggestion string) *ReconcilerError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ReconcilerError
func New(category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ReconcilerError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// AsReconcilerError extracts a ReconcilerError from an error chain, if any
func AsReconcilerError(err error) (*ReconcilerError, bool) {
	for err != nil {
		if re, ok := err.(*ReconcilerError); ok {
			return re, true
		}
		err = errors.Unwrap(err)
	}
	return nil, false
}

// Specific error constructors

// FileError creates a file-related error
func FileError(code ErrorCode, path string, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check if the file path is correct and the file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	case CodeFileCorrupted:
		message = fmt.Sprintf("file appears to be corrupted: %s", path)
		suggestion = "verify the file integrity and try using a backup copy"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryFile, code, message)
	} else {
		result = New(CategoryFile, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// SchemaError creates an error for a required column that is absent from a
// dataset. These abort the run per the error-handling contract.
func SchemaError(dataset, column string) *ReconcilerError {
	return New(CategorySchema, CodeMissingColumn,
		fmt.Sprintf("%s dataset is missing required column %q", dataset, column)).
		WithSuggestion("check the input file headers against the expected schema").
		WithContext("dataset", dataset).
		WithContext("column", column)
}

// ParseError creates a parsing-related error for a dataset that cannot be read
func ParseError(code ErrorCode, source string, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidFormat:
		message = fmt.Sprintf("unable to parse tabular data from %s", source)
		suggestion = "verify the file is a well-formed CSV or XLSX export"
	case CodeUnsupportedFormat:
		message = fmt.Sprintf("unsupported file format: %s", source)
		suggestion = "supported formats are .csv and .xlsx"
	case CodeEmptyDataset:
		message = fmt.Sprintf("dataset %s contains no rows", source)
		suggestion = "check that the export produced data"
	default:
		message = fmt.Sprintf("parse error in %s", source)
		suggestion = "check the input data format"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryParse, code, message)
	} else {
		result = New(CategoryParse, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("source", source)
}

// ConfigError creates a configuration-related error
func ConfigError(code ErrorCode, setting string, err error) *ReconcilerError {
	var message string
	switch code {
	case CodeMissingConfig:
		message = fmt.Sprintf("required configuration %q is not set", setting)
	default:
		message = fmt.Sprintf("invalid configuration for %q", setting)
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}

	return result.WithContext("setting", setting)
}

// StoreError creates an error for a remote document store failure. Store
// failures are request-level: nothing is partially persisted.
func StoreError(code ErrorCode, location string, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeAuthFailed:
		message = "document store authentication failed"
		suggestion = "check the store client id and secret"
	case CodeDownloadFailed:
		message = fmt.Sprintf("failed to download %s from document store", location)
		suggestion = "check the file location and store availability"
	case CodeUploadFailed:
		message = fmt.Sprintf("failed to upload %s to document store", location)
		suggestion = "check the output folder permissions and store availability"
	default:
		message = "document store request failed"
		suggestion = "check the store configuration and availability"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryStore, code, message)
	} else {
		result = New(CategoryStore, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("location", location)
}
