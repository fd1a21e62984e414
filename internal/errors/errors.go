// Package errors provides unified error handling with structured error codes.
// Codes are shared with the GUI frontend over the WebSocket/REST surface.
package errors

import (
	"fmt"
	"net/http"
)

// Code identifies an error category.
type Code int

const (
	CodeUnknown Code = iota
	CodeInternal
	CodeInvalidArgument
	CodeNotFound
	CodeCancelled

	// Paint preconditions
	CodePaletteNotConfigured
	CodeMissingBucketTool
	CodeCanvasNotSelected
	CodeImageNotLoaded

	// Runtime
	CodeUserCancelled
	CodeJobRunning
	CodeCaptureFailed
	CodePointerFailed
	CodeWizardState
	CodeSettingsInvalid
)

var codeNames = map[Code]string{
	CodeUnknown:              "UNKNOWN",
	CodeInternal:             "INTERNAL",
	CodeInvalidArgument:      "INVALID_ARGUMENT",
	CodeNotFound:             "NOT_FOUND",
	CodeCancelled:            "CANCELLED",
	CodePaletteNotConfigured: "PALETTE_NOT_CONFIGURED",
	CodeMissingBucketTool:    "MISSING_BUCKET_TOOL",
	CodeCanvasNotSelected:    "CANVAS_NOT_SELECTED",
	CodeImageNotLoaded:       "IMAGE_NOT_LOADED",
	CodeUserCancelled:        "USER_CANCELLED",
	CodeJobRunning:           "JOB_RUNNING",
	CodeCaptureFailed:        "CAPTURE_FAILED",
	CodePointerFailed:        "POINTER_FAILED",
	CodeWizardState:          "WIZARD_STATE",
	CodeSettingsInvalid:      "SETTINGS_INVALID",
}

// String returns the wire name of the code.
func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return "UNKNOWN"
}

// httpStatusMap maps error codes to HTTP status codes for the REST surface.
var httpStatusMap = map[Code]int{
	CodeUnknown:              http.StatusInternalServerError,
	CodeInternal:             http.StatusInternalServerError,
	CodeInvalidArgument:      http.StatusBadRequest,
	CodeNotFound:             http.StatusNotFound,
	CodeCancelled:            http.StatusRequestTimeout,
	CodePaletteNotConfigured: http.StatusPreconditionFailed,
	CodeMissingBucketTool:    http.StatusPreconditionFailed,
	CodeCanvasNotSelected:    http.StatusPreconditionFailed,
	CodeImageNotLoaded:       http.StatusPreconditionFailed,
	CodeUserCancelled:        http.StatusConflict,
	CodeJobRunning:           http.StatusConflict,
	CodeCaptureFailed:        http.StatusServiceUnavailable,
	CodePointerFailed:        http.StatusServiceUnavailable,
	CodeWizardState:          http.StatusConflict,
	CodeSettingsInvalid:      http.StatusBadRequest,
}

// AppError is the base error type with structured error code and metadata.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// HTTPStatus returns the corresponding HTTP status code.
func (e *AppError) HTTPStatus() int {
	if s, ok := httpStatusMap[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// CodeOf extracts the error code, walking the cause chain.
func CodeOf(err error) Code {
	for err != nil {
		if appErr, ok := err.(*AppError); ok {
			return appErr.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return CodeUnknown
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// IsRetryable returns true if the error is potentially retryable.
// Precondition and cancellation errors are terminal: the paint job aborts
// and already-painted cells remain painted.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeCaptureFailed:
		return true
	default:
		return false
	}
}
