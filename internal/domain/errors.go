package domain

import (
	"errors"
	"fmt"
)

// Common errors used throughout the application.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotStarted    = errors.New("service not started")
)

// Kind classifies a failure so callers can branch on it without matching messages.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConfiguration
	KindDashboard
	KindDataIntegrity
	KindRemoteUnauthorized
	KindRemoteUnreachable
	KindRemoteDecode
	KindRemote
	KindPersistence
)

var kindNames = map[Kind]string{
	KindUnknown:            "unknown",
	KindValidation:         "validation",
	KindConfiguration:      "configuration",
	KindDashboard:          "dashboard",
	KindDataIntegrity:      "data_integrity",
	KindRemoteUnauthorized: "remote_unauthorized",
	KindRemoteUnreachable:  "remote_unreachable",
	KindRemoteDecode:       "remote_decode",
	KindRemote:             "remote",
	KindPersistence:        "persistence",
}

// String returns the snake_case name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Retryable reports whether a caller may retry an operation that failed with this kind.
// Nothing is retried internally.
func (k Kind) Retryable() bool {
	return k == KindRemoteUnreachable
}

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Field   string // set for validation failures
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind with no message, so
// errors.Is(err, &Error{Kind: KindPersistence}) works as a kind test.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// NewError creates a classified error.
func NewError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Errorf creates a classified error with a formatted message and no cause.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewValidationError creates a validation error for a named request field.
func NewValidationError(field, message string, err error) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Error codes for standardized API error responses.
const (
	ErrCodeResourceNotFound  = "RESOURCE_NOT_FOUND"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeValidationError   = "VALIDATION_ERROR"
	ErrCodeConfiguration     = "CONFIGURATION_ERROR"
	ErrCodeDataIntegrity     = "DATA_INTEGRITY_ERROR"
	ErrCodeRemoteError       = "REMOTE_ERROR"
	ErrCodeRemoteUnavailable = "REMOTE_UNAVAILABLE"
	ErrCodeNotStarted        = "NOT_STARTED"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// StandardError represents a standardized error response from the API.
type StandardError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// StandardErrorResponse wraps a StandardError for JSON responses.
type StandardErrorResponse struct {
	Error StandardError `json:"error"`
}
