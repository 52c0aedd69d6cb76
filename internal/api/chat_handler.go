package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ericfisherdev/projectsync/internal/domain"
	"github.com/ericfisherdev/projectsync/internal/repository"
	"github.com/ericfisherdev/projectsync/internal/resource"
)

// ChatHandler handles chats, messages and read receipts. Every chat route
// requires the caller to be a participant.
type ChatHandler struct {
	chats    *repository.ChatRepository
	projects *repository.ProjectRepository
}

func NewChatHandler(chats *repository.ChatRepository, projects *repository.ProjectRepository) *ChatHandler {
	return &ChatHandler{chats: chats, projects: projects}
}

func (h *ChatHandler) RegisterRoutes(router *gin.RouterGroup) {
	chats := router.Group("/chats")
	{
		chats.GET("", h.ListChats)
		chats.POST("", h.CreateChat)
		chats.GET("/:chatId", h.GetChat)
		chats.DELETE("/:chatId", h.DeleteChat)
		chats.GET("/:chatId/unread-count", h.UnreadCount)

		chats.GET("/:chatId/messages", h.ListMessages)
		chats.POST("/:chatId/messages", h.SendMessage)
		chats.DELETE("/:chatId/messages", h.DeleteMessages)
		chats.PUT("/:chatId/messages/:messageId/read", h.MarkMessageAsRead)
	}
}

// CreateChatRequest is the body of POST /api/chats. The caller is always
// added to the participants.
type CreateChatRequest struct {
	Type         domain.ChatType `json:"type" binding:"required"`
	Name         string          `json:"name"`
	ProjectID    string          `json:"project_id"`
	Participants []string        `json:"participants"`
}

// SendMessageRequest is the body of POST /api/chats/:chatId/messages.
type SendMessageRequest struct {
	Content       string             `json:"content"`
	Type          domain.MessageType `json:"type"`
	AttachmentURL string             `json:"attachment_url"`
}

// ListChats handles GET /api/chats, most recently active first.
func (h *ChatHandler) ListChats(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	render(c, http.StatusOK, snapshot(c, func(ctx context.Context) resource.Stream[[]*domain.Chat] {
		return h.chats.GetChatsForUser(ctx, user.UserID)
	}))
}

// CreateChat handles POST /api/chats. Project chats are limited to members
// of the project.
func (h *ChatHandler) CreateChat(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req CreateChatRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Type == domain.ChatProject && req.ProjectID != "" {
		if _, ok := projectForMember(c, h.projects, req.ProjectID, user.UserID); !ok {
			return
		}
	}

	participants := []string{user.UserID}
	for _, p := range req.Participants {
		if p != "" && p != user.UserID {
			participants = append(participants, p)
		}
	}
	chat := &domain.Chat{
		Type:         req.Type,
		Name:         req.Name,
		ProjectID:    req.ProjectID,
		Participants: participants,
	}
	render(c, http.StatusCreated, h.chats.CreateChat(c.Request.Context(), chat))
}

// GetChat handles GET /api/chats/:chatId.
func (h *ChatHandler) GetChat(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if chat, ok := chatForParticipant(c, h.chats, c.Param("chatId"), user.UserID); ok {
		SuccessResponse(c, chat)
	}
}

// DeleteChat handles DELETE /api/chats/:chatId. Messages go with the chat.
func (h *ChatHandler) DeleteChat(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	chat, ok := chatForParticipant(c, h.chats, c.Param("chatId"), user.UserID)
	if !ok {
		return
	}
	if _, ok := value(c, h.chats.DeleteChat(c.Request.Context(), chat.ID)); ok {
		c.Status(http.StatusNoContent)
	}
}

// UnreadCount handles GET /api/chats/:chatId/unread-count. The count is
// derived from the messages, not read from the chat summary.
func (h *ChatHandler) UnreadCount(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	chat, ok := chatForParticipant(c, h.chats, c.Param("chatId"), user.UserID)
	if !ok {
		return
	}
	count := snapshot(c, func(ctx context.Context) resource.Stream[int] {
		return h.chats.UnreadCount(ctx, chat.ID, user.UserID)
	})
	render(c, http.StatusOK, resource.Map(count, func(n int) gin.H { return gin.H{"count": n} }))
}

// ListMessages handles GET /api/chats/:chatId/messages, oldest first.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	chat, ok := chatForParticipant(c, h.chats, c.Param("chatId"), user.UserID)
	if !ok {
		return
	}
	render(c, http.StatusOK, snapshot(c, func(ctx context.Context) resource.Stream[[]*domain.Message] {
		return h.chats.GetMessages(ctx, chat.ID)
	}))
}

// SendMessage handles POST /api/chats/:chatId/messages. The sender is
// always the caller.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Type == "" {
		req.Type = domain.MessageText
	}

	msg := &domain.Message{
		ChatID:        c.Param("chatId"),
		SenderID:      user.UserID,
		Content:       req.Content,
		Type:          req.Type,
		AttachmentURL: req.AttachmentURL,
	}
	render(c, http.StatusCreated, h.chats.SendMessage(c.Request.Context(), msg))
}

// MarkMessageAsRead handles PUT /api/chats/:chatId/messages/:messageId/read.
func (h *ChatHandler) MarkMessageAsRead(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	chat, ok := chatForParticipant(c, h.chats, c.Param("chatId"), user.UserID)
	if !ok {
		return
	}
	render(c, http.StatusOK, h.chats.MarkMessageAsRead(c.Request.Context(), c.Param("messageId"), chat.ID, user.UserID))
}

// DeleteMessages handles DELETE /api/chats/:chatId/messages.
func (h *ChatHandler) DeleteMessages(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	chat, ok := chatForParticipant(c, h.chats, c.Param("chatId"), user.UserID)
	if !ok {
		return
	}
	deleted := h.chats.DeleteAllMessages(c.Request.Context(), chat.ID)
	render(c, http.StatusOK, resource.Map(deleted, func(n int) gin.H { return gin.H{"deleted": n} }))
}
