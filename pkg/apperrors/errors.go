package apperrors

import (
	"errors"
	"fmt"
)

// AppError is the error type services return to the transport layer. The code
// decides the HTTP status, the message is safe to show to callers, and Err
// keeps the underlying cause for logs.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError with the given code and caller-facing message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap keeps the underlying cause while classifying it.
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

func Unauthenticated(message string) *AppError {
	return New(CodeUnauthenticated, message)
}

func Forbidden(message string) *AppError {
	return New(CodeForbidden, message)
}

func NotFound(message string) *AppError {
	return New(CodeNotFound, message)
}

func Conflict(message string) *AppError {
	return New(CodeConflict, message)
}

func UpstreamFailure(message string, err error) *AppError {
	return Wrap(err, CodeUpstreamFailure, message)
}

func Internal(message string, err error) *AppError {
	return Wrap(err, CodeInternal, message)
}

// CodeOf extracts the error code, defaulting to CodeInternal for errors that
// were never classified.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
