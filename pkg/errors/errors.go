package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/lib/pq"
)

// ErrorCode classifies application errors
type ErrorCode int

const (
	ErrValidation ErrorCode = iota + 1000
	ErrUnauthorized
	ErrForbidden
	ErrNotFound
	ErrConflict
	ErrInternal
)

// FieldError carries field-level validation detail
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError represents an application error
type AppError struct {
	Code    ErrorCode    `json:"code"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
	Err     error        `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error code to its HTTP status
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func NewValidation(message string, fields ...FieldError) *AppError {
	return &AppError{Code: ErrValidation, Message: message, Fields: fields}
}

func NewUnauthorized(message string) *AppError {
	return &AppError{Code: ErrUnauthorized, Message: message}
}

func NewForbidden(message string) *AppError {
	return &AppError{Code: ErrForbidden, Message: message}
}

func NewNotFound(resource string) *AppError {
	return &AppError{Code: ErrNotFound, Message: fmt.Sprintf("%s not found", resource)}
}

func NewConflict(message string) *AppError {
	return &AppError{Code: ErrConflict, Message: message}
}

func NewInternal(err error) *AppError {
	return &AppError{Code: ErrInternal, Message: "internal server error", Err: err}
}

// pq error class 23505 is unique_violation
const pqUniqueViolation = "23505"

// FromPersistence translates a store error into an AppError. Unique-key
// violations become conflicts; everything else surfaces as internal with
// the driver message attached.
func FromPersistence(err error, resource string) *AppError {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
		return NewConflict(fmt.Sprintf("%s already exists", resource))
	}
	return &AppError{Code: ErrInternal, Message: err.Error(), Err: err}
}

// As extracts an *AppError from an error chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}
