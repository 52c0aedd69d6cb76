// Package api is the HTTP gateway over the repositories. REST reads take the
// first settled emission of a repository stream; /api/ws forwards the whole
// stream over a websocket.
//
// Every error goes through ErrorResponse so that clients see the same
// envelope and internal messages never leak.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ericfisherdev/projectsync/internal/api/middleware"
	"github.com/ericfisherdev/projectsync/internal/auth"
	"github.com/ericfisherdev/projectsync/internal/domain"
	"github.com/ericfisherdev/projectsync/internal/resource"
)

// snapshotTimeout bounds how long a REST read waits for a settled emission.
const snapshotTimeout = 10 * time.Second

// ErrorResponse writes the error envelope.
func ErrorResponse(c *gin.Context, err error) {
	if err == nil {
		err = domain.NewInternalError("NO_DATA", "No data available", nil)
	}
	middleware.AbortWithError(c, err)
}

// SuccessResponse returns a standardized success response.
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// CreatedResponse returns a standardized created response.
func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    data,
	})
}

// render writes a settled resource with the given success status.
func render[T any](c *gin.Context, status int, r resource.Resource[T]) {
	resource.Match(r,
		func() {
			c.JSON(http.StatusAccepted, gin.H{"success": true, "state": resource.StateLoading.String()})
		},
		func(v T) {
			c.JSON(status, gin.H{"success": true, "data": v})
		},
		func(string, error) {
			ErrorResponse(c, r.Err())
		},
	)
}

// snapshot opens a stream, waits for its first settled emission and
// releases the subscription.
func snapshot[T any](c *gin.Context, open func(ctx context.Context) resource.Stream[T]) resource.Resource[T] {
	ctx, cancel := context.WithTimeout(c.Request.Context(), snapshotTimeout)
	defer cancel()

	r, err := resource.Settled(ctx, open(ctx))
	if err != nil {
		return resource.FromError[T](domain.NewTransientNetworkError("SNAPSHOT_TIMEOUT", "Timed out waiting for data", err))
	}
	return r
}

// currentUser returns the authenticated identity or writes a 401.
func currentUser(c *gin.Context) (auth.Identity, bool) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		ErrorResponse(c, domain.NewAuthenticationError("USER_NOT_FOUND", "User not found in context"))
		return auth.Identity{}, false
	}
	return id, true
}

// bindJSON binds the request body or writes a 400.
func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		ErrorResponse(c, domain.NewValidationError("INVALID_REQUEST", "Invalid request format", map[string]interface{}{
			"error": err.Error(),
		}))
		return false
	}
	return true
}

// value unwraps a settled resource or writes its error.
func value[T any](c *gin.Context, r resource.Resource[T]) (T, bool) {
	v, ok := r.Data()
	if !ok {
		ErrorResponse(c, r.Err())
	}
	return v, ok
}
