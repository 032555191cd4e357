// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// Code is the machine readable error code returned to API clients.
type Code string

const (
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeValidation   Code = "validation_error"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeStorage      Code = "storage_error"
	CodeUnavailable  Code = "service_unavailable"
	CodeInternal     Code = "internal_error"
)

// Kind separates errors that share a wire code.
type Kind int

const (
	KindGeneric Kind = iota
	KindMalformedFilter
	KindValidation
	KindStorage
)

// AppError is the error type every layer returns to the HTTP boundary.
type AppError struct {
	Code    Code
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewMalformedFilter reports bad pagination input on an audience query.
func NewMalformedFilter(param, value string) error {
	return &AppError{
		Code:    CodeValidation,
		Kind:    KindMalformedFilter,
		Message: fmt.Sprintf("%s must be a positive integer, got %q", param, value),
	}
}

// NewValidation reports request input that failed validation.
func NewValidation(message string, err error) error {
	return &AppError{Code: CodeValidation, Kind: KindValidation, Message: message, Err: err}
}

// NewStorage wraps a read or write failure against the store.
func NewStorage(op string, err error) error {
	return &AppError{Code: CodeStorage, Kind: KindStorage, Message: op + " failed", Err: err}
}

func NewNotFound(resource string) error {
	return &AppError{Code: CodeNotFound, Message: resource + " not found"}
}

// NewCampaignNotFound is kept for the campaign lookups.
func NewCampaignNotFound(id uuid.UUID) error {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf("campaign with ID %s not found", id)}
}

func NewUnauthorized(message string) error {
	return &AppError{Code: CodeUnauthorized, Message: message}
}

func NewForbidden(message string) error {
	return &AppError{Code: CodeForbidden, Message: message}
}

func NewConflict(message string) error {
	return &AppError{Code: CodeConflict, Message: message}
}

func NewUnavailable(message string) error {
	return &AppError{Code: CodeUnavailable, Message: message}
}

// As extracts the *AppError from err, if any.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsMalformedFilter reports whether err came from filter normalization.
func IsMalformedFilter(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == KindMalformedFilter
}

// IsStorage reports whether err is a wrapped store failure.
func IsStorage(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == KindStorage
}

// IsNotFound reports whether err is a not_found error.
func IsNotFound(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == CodeNotFound
}

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == CodeConflict
}

// HTTPStatus maps err to its response status. Unknown errors are 500.
func HTTPStatus(err error) int {
	appErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Code {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicCode returns the wire code for err, collapsing unknown errors to internal_error.
func PublicCode(err error) Code {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return CodeInternal
}

// PublicMessage hides wrapped causes of storage and internal errors from clients.
func PublicMessage(err error) string {
	appErr, ok := As(err)
	if !ok {
		return "internal server error"
	}
	return appErr.Message
}
