// Package errors defines the structured error type used across the Moneta
// API. Service-layer code returns AppErrors so handlers can produce
// consistent JSON responses without leaking internal details.
package errors

import "net/http"

// AppError carries an error code, a client-safe message, the HTTP status
// to respond with, and an optional wrapped internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap returns a copy of sentinel carrying internal as the wrapped error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage returns a copy of sentinel with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Upload errors. The first three are synchronous precondition failures:
// they reject the request before any job is created.
var (
	ErrUnsupportedFile = &AppError{Code: "UNSUPPORTED_FILE", Message: "Only .xlsx statement files are supported", StatusCode: http.StatusBadRequest}
	ErrEmptyFile       = &AppError{Code: "EMPTY_FILE", Message: "Uploaded file is empty", StatusCode: http.StatusBadRequest}
	ErrNoValidRows     = &AppError{Code: "NO_VALID_ROWS", Message: "No valid transaction rows found in the uploaded file", StatusCode: http.StatusBadRequest}
	ErrUploadNotFound  = &AppError{Code: "UPLOAD_NOT_FOUND", Message: "Upload not found", StatusCode: http.StatusNotFound}
)

// Merchant and category errors.
var (
	ErrMerchantNotFound = &AppError{Code: "MERCHANT_NOT_FOUND", Message: "Merchant not found", StatusCode: http.StatusNotFound}
	ErrUnknownCategory  = &AppError{Code: "UNKNOWN_CATEGORY", Message: "Unknown category name", StatusCode: http.StatusBadRequest}
)

// Chat errors.
var (
	ErrThreadNotFound  = &AppError{Code: "THREAD_NOT_FOUND", Message: "Chat thread not found", StatusCode: http.StatusNotFound}
	ErrChatUnavailable = &AppError{Code: "CHAT_UNAVAILABLE", Message: "Could not answer the question: both query and retrieval paths failed", StatusCode: http.StatusBadGateway}
)
