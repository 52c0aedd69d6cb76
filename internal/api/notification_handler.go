package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ericfisherdev/projectsync/internal/domain"
	"github.com/ericfisherdev/projectsync/internal/repository"
	"github.com/ericfisherdev/projectsync/internal/resource"
)

// NotificationHandler serves the caller's own notifications.
type NotificationHandler struct {
	notifications *repository.NotificationRepository
}

func NewNotificationHandler(notifications *repository.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) RegisterRoutes(router *gin.RouterGroup) {
	notifications := router.Group("/notifications")
	{
		notifications.GET("", h.ListNotifications)
		notifications.DELETE("", h.DeleteAll)
		notifications.GET("/unread-count", h.UnreadCount)
		notifications.PUT("/read-all", h.MarkAllAsRead)
		notifications.PUT("/:id/read", h.MarkAsRead)
	}
}

// ListNotifications handles GET /api/notifications, newest first.
// unread=true limits the list to unread notifications.
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	unreadOnly := c.Query("unread") == "true"
	render(c, http.StatusOK, snapshot(c, func(ctx context.Context) resource.Stream[[]*domain.Notification] {
		if unreadOnly {
			return h.notifications.GetUnreadNotifications(ctx, user.UserID)
		}
		return h.notifications.GetNotifications(ctx, user.UserID)
	}))
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	count := snapshot(c, func(ctx context.Context) resource.Stream[int] {
		return h.notifications.GetUnreadNotificationCount(ctx, user.UserID)
	})
	render(c, http.StatusOK, resource.Map(count, func(n int) gin.H { return gin.H{"count": n} }))
}

// MarkAsRead handles PUT /api/notifications/:id/read.
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	n, ok := value(c, h.notifications.Get(c.Request.Context(), c.Param("id")))
	if !ok {
		return
	}
	if n.UserID != user.UserID {
		ErrorResponse(c, domain.NewNotFoundError("NOTIFICATION_NOT_FOUND", "Notification not found"))
		return
	}
	render(c, http.StatusOK, h.notifications.MarkAsRead(c.Request.Context(), n.ID))
}

// MarkAllAsRead handles PUT /api/notifications/read-all.
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	marked := h.notifications.MarkAllAsRead(c.Request.Context(), user.UserID)
	render(c, http.StatusOK, resource.Map(marked, func(n int) gin.H { return gin.H{"marked": n} }))
}

// DeleteAll handles DELETE /api/notifications.
func (h *NotificationHandler) DeleteAll(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	deleted := h.notifications.DeleteAllForUser(c.Request.Context(), user.UserID)
	render(c, http.StatusOK, resource.Map(deleted, func(n int) gin.H { return gin.H{"deleted": n} }))
}
