package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest is returned when request input has the wrong shape, size or type
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUpstreamUnavailable is returned when the identification or generation provider fails
	ErrUpstreamUnavailable = errors.New("upstream provider unavailable")

	// ErrNoIdentification is returned when the provider returned zero plant candidates
	ErrNoIdentification = errors.New("plant could not be identified")

	// ErrInternal is returned for unexpected failures
	ErrInternal = errors.New("internal error")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrStorageDisabled is returned when no blob store is configured
	ErrStorageDisabled = errors.New("blob storage is not configured")

	// ErrObjectNotFound is returned when a blob key does not exist
	ErrObjectNotFound = errors.New("object not found")
)

// Machine-readable error codes
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeInvalidContentType = "INVALID_CONTENT_TYPE"
	CodeInvalidFormData    = "INVALID_FORM_DATA"
	CodeInvalidFile        = "INVALID_FILE"
	CodeNoImage            = "NO_IMAGE"
	CodeInvalidFileType    = "INVALID_FILE_TYPE"
	CodeFileTooLarge       = "FILE_TOO_LARGE"
	CodeNoSuggestions      = "NO_SUGGESTIONS"
	CodeUpstreamError      = "UPSTREAM_ERROR"
	CodeInternal           = "INTERNAL_SERVER_ERROR"
	CodeRateLimited        = "RATE_LIMITED"
	CodeStorageDisabled    = "STORAGE_DISABLED"
	CodeNotFound           = "NOT_FOUND"
)

// Error carries a taxonomy kind plus the machine-readable code and details
// rendered to API clients. errors.Is(err, Kind) holds for every Error.
type Error struct {
	Kind    error
	Code    string
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Is reports whether target is the error's kind
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// InvalidRequest builds a user-fixable input error
func InvalidRequest(code, message string, details map[string]interface{}) *Error {
	return &Error{
		Kind:    ErrInvalidRequest,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// UpstreamUnavailable wraps a provider failure
func UpstreamUnavailable(provider string, err error) *Error {
	return &Error{
		Kind:    ErrUpstreamUnavailable,
		Code:    CodeUpstreamError,
		Message: fmt.Sprintf("%s request failed", provider),
		Details: map[string]interface{}{"provider": provider},
		Err:     err,
	}
}

// NoIdentification is returned when the provider produced no suggestions
func NoIdentification() *Error {
	return &Error{
		Kind:    ErrNoIdentification,
		Code:    CodeNoSuggestions,
		Message: "Could not identify plant from the image",
	}
}

// Internal wraps an unexpected failure
func Internal(err error) *Error {
	return &Error{
		Kind:    ErrInternal,
		Code:    CodeInternal,
		Message: "internal server error",
		Err:     err,
	}
}
