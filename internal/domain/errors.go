package domain

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of domain error
type ErrorType string

const (
	// ValidationError represents a rejected caller-supplied field
	ValidationError ErrorType = "VALIDATION_ERROR"
	// NotFoundError represents an absent document
	NotFoundError ErrorType = "NOT_FOUND_ERROR"
	// ConflictError represents resource conflicts
	ConflictError ErrorType = "CONFLICT_ERROR"
	// TransientNetworkError represents a failed remote call or listener
	TransientNetworkError ErrorType = "TRANSIENT_NETWORK_ERROR"
	// AuthenticationError represents authentication failures
	AuthenticationError ErrorType = "AUTHENTICATION_ERROR"
	// InternalError represents internal system errors
	InternalError ErrorType = "INTERNAL_ERROR"
)

// DomainError represents a domain-specific error with additional context
type DomainError struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(code, message string, details map[string]interface{}) *DomainError {
	return &DomainError{
		Type:    ValidationError,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(code, message string) *DomainError {
	return &DomainError{
		Type:    NotFoundError,
		Code:    code,
		Message: message,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(code, message string) *DomainError {
	return &DomainError{
		Type:    ConflictError,
		Code:    code,
		Message: message,
	}
}

// NewTransientNetworkError wraps a failed remote call. The backend gives no
// further detail contract, so the cause is kept for logs only.
func NewTransientNetworkError(code, message string, cause error) *DomainError {
	return &DomainError{
		Type:    TransientNetworkError,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAuthenticationError creates a new authentication error
func NewAuthenticationError(code, message string) *DomainError {
	return &DomainError{
		Type:    AuthenticationError,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(code, message string, cause error) *DomainError {
	return &DomainError{
		Type:    InternalError,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ErrorTypeOf returns the type of the first DomainError in err's chain,
// or InternalError when there is none.
func ErrorTypeOf(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return InternalError
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	return err != nil && ErrorTypeOf(err) == NotFoundError
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	return err != nil && ErrorTypeOf(err) == ValidationError
}

// IsTransient reports whether err is a TransientNetworkError.
func IsTransient(err error) bool {
	return err != nil && ErrorTypeOf(err) == TransientNetworkError
}

// MessageOf returns the human-readable message carried by err. For domain
// errors this is the Message field without code or cause.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}
