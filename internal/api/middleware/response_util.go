package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ericfisherdev/projectsync/internal/domain"
)

// AbortWithError writes the standard error envelope and stops the chain.
// Only validation, not-found, conflict and authentication messages reach the
// client; everything else is replaced by a generic message.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)

	errType := domain.InternalError
	code := "INTERNAL_ERROR"
	message := "An internal error occurred"
	var details map[string]interface{}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		errType = domainErr.Type
		code = domainErr.Code
		switch domainErr.Type {
		case domain.ValidationError, domain.NotFoundError, domain.ConflictError, domain.AuthenticationError:
			message = domainErr.Message
			details = domainErr.Details
		case domain.TransientNetworkError:
			message = "The backend is temporarily unreachable"
		}
	}

	body := gin.H{
		"type":       string(errType),
		"code":       code,
		"message":    message,
		"request_id": GetRequestID(c),
	}
	if len(details) > 0 {
		body["details"] = details
	}
	c.AbortWithStatusJSON(domain.StatusCode(errType), gin.H{"success": false, "error": body})
}
