// Package domain holds the synchronized entities and the error taxonomy shared
// by every layer.
package domain

import (
	"errors"
	"log/slog"
	"net/http"
)

// ErrorHandler converts domain errors to HTTP responses.
type ErrorHandler interface {
	HandleError(err error) (statusCode int, response interface{})
	LogError(err error)
}

// DefaultErrorHandler is the default implementation of ErrorHandler.
type DefaultErrorHandler struct {
	logger *slog.Logger
}

// NewDefaultErrorHandler creates a new default error handler.
func NewDefaultErrorHandler(logger *slog.Logger) *DefaultErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultErrorHandler{
		logger: logger,
	}
}

// APIError represents an API error response
type APIError struct {
	Type    string                 `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HandleError converts domain errors to HTTP status codes and API error responses
func (h *DefaultErrorHandler) HandleError(err error) (statusCode int, response interface{}) {
	h.LogError(err)

	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError, APIError{
			Type:    string(InternalError),
			Code:    "INTERNAL_ERROR",
			Message: "An internal error occurred",
		}
	}

	apiError := APIError{
		Type:    string(domainErr.Type),
		Code:    domainErr.Code,
		Message: domainErr.Message,
		Details: domainErr.Details,
	}
	return StatusCode(domainErr.Type), apiError
}

// StatusCode maps an error type to its HTTP status.
func StatusCode(t ErrorType) int {
	switch t {
	case ValidationError:
		return http.StatusBadRequest
	case NotFoundError:
		return http.StatusNotFound
	case ConflictError:
		return http.StatusConflict
	case AuthenticationError:
		return http.StatusUnauthorized
	case TransientNetworkError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// LogError logs the error with a level matching its type
func (h *DefaultErrorHandler) LogError(err error) {
	switch ErrorTypeOf(err) {
	case ValidationError, NotFoundError, ConflictError:
		h.logger.Info("client error", "error", err)
	case AuthenticationError:
		h.logger.Warn("auth error", "error", err)
	default:
		h.logger.Error("server error", "error", err)
	}
}
