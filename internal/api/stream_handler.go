package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ericfisherdev/projectsync/internal/domain"
	"github.com/ericfisherdev/projectsync/internal/repository"
	"github.com/ericfisherdev/projectsync/internal/resource"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Stream topics accepted by GET /api/ws.
const (
	TopicProjectTasks        = "project.tasks"
	TopicUserTasks           = "user.tasks"
	TopicOverdueTasks        = "tasks.overdue"
	TopicTask                = "task"
	TopicTaskComments        = "task.comments"
	TopicProjects            = "projects"
	TopicProject             = "project"
	TopicNotifications       = "notifications"
	TopicUnreadNotifications = "notifications.unread"
	TopicNotificationCount   = "notifications.unread.count"
	TopicChats               = "chats"
	TopicChat                = "chat"
	TopicChatMessages        = "chat.messages"
	TopicChatUnread          = "chat.unread"
	TopicUsers               = "users"
)

// streamRunner forwards one repository stream through send until the
// stream closes or ctx is done.
type streamRunner func(ctx context.Context, send func(v interface{}) error)

func forward[T any](open func(ctx context.Context) resource.Stream[T]) streamRunner {
	return func(ctx context.Context, send func(v interface{}) error) {
		_ = resource.Each(ctx, open(ctx), func(r resource.Resource[T]) bool {
			return send(resource.ToPayload(r)) == nil
		})
	}
}

// StreamHandler upgrades GET /api/ws to a websocket and forwards a
// repository stream as {state, data, error} frames. Closing the socket
// cancels the stream, which releases the underlying listener.
type StreamHandler struct {
	upgrader      websocket.Upgrader
	logger        *slog.Logger
	tasks         *repository.TaskRepository
	projects      *repository.ProjectRepository
	comments      *repository.CommentRepository
	notifications *repository.NotificationRepository
	chats         *repository.ChatRepository
	users         *repository.UserRepository
}

// NewStreamHandler builds the handler. An empty origin list accepts any
// origin.
func NewStreamHandler(deps Dependencies) *StreamHandler {
	allowed := make(map[string]bool, len(deps.AllowedOrigins))
	for _, o := range deps.AllowedOrigins {
		allowed[o] = true
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &StreamHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || allowed["*"] || origin == "" || allowed[origin]
			},
		},
		logger:        logger,
		tasks:         deps.Tasks,
		projects:      deps.Projects,
		comments:      deps.Comments,
		notifications: deps.Notifications,
		chats:         deps.Chats,
		users:         deps.Users,
	}
}

func (h *StreamHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/ws", h.Stream)
}

// Stream handles GET /api/ws?topic=...&id=...
func (h *StreamHandler) Stream(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	topic := c.Query("topic")
	run, ok := h.runner(c, topic, c.Query("id"), user.UserID)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "topic", topic, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	h.logger.Debug("stream opened", "topic", topic, "user_id", user.UserID)
	go h.readLoop(conn, cancel)
	go h.pingLoop(ctx, conn)

	run(ctx, func(v interface{}) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(v)
	})

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	h.logger.Debug("stream closed", "topic", topic, "user_id", user.UserID)
}

// readLoop discards client frames and cancels the stream once the client
// goes away or stops answering pings.
func (h *StreamHandler) readLoop(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
	}
}

func (h *StreamHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// runner resolves a topic to a stream after checking the caller may see it.
// On failure the HTTP error has already been written.
func (h *StreamHandler) runner(c *gin.Context, topic, id, userID string) (streamRunner, bool) {
	switch topic {
	case TopicProjectTasks:
		if _, ok := projectForMember(c, h.projects, id, userID); !ok {
			return nil, false
		}
		return forward(func(ctx context.Context) resource.Stream[[]*domain.Task] {
			return h.tasks.GetTasksByProject(ctx, id)
		}), true

	case TopicUserTasks:
		return forward(func(ctx context.Context) resource.Stream[[]*domain.Task] {
			return h.tasks.GetTasksByUser(ctx, userID)
		}), true

	case TopicOverdueTasks:
		return forward(func(ctx context.Context) resource.Stream[[]*domain.Task] {
			return resource.MapStream(ctx, h.tasks.GetOverdueTasks(ctx), func(tasks []*domain.Task) []*domain.Task {
				mine := make([]*domain.Task, 0, len(tasks))
				for _, t := range tasks {
					if t.IsAssignedTo(userID) || t.CreatedBy == userID {
						mine = append(mine, t)
					}
				}
				return mine
			})
		}), true

	case TopicTask:
		if _, ok := taskForMember(c, h.tasks, h.projects, id, userID); !ok {
			return nil, false
		}
		return forward(func(ctx context.Context) resource.Stream[*domain.Task] {
			return h.tasks.GetStream(ctx, id)
		}), true

	case TopicTaskComments:
		if _, ok := taskForMember(c, h.tasks, h.projects, id, userID); !ok {
			return nil, false
		}
		return forward(func(ctx context.Context) resource.Stream[[]*domain.Comment] {
			return h.comments.GetCommentsByTask(ctx, id)
		}), true

	case TopicProjects:
		return forward(func(ctx context.Context) resource.Stream[[]*domain.Project] {
			return h.projects.GetProjectsByUser(ctx, userID)
		}), true

	case TopicProject:
		if _, ok := projectForMember(c, h.projects, id, userID); !ok {
			return nil, false
		}
		return forward(func(ctx context.Context) resource.Stream[*domain.Project] {
			return h.projects.GetStream(ctx, id)
		}), true

	case TopicNotifications:
		return forward(func(ctx context.Context) resource.Stream[[]*domain.Notification] {
			return h.notifications.GetNotifications(ctx, userID)
		}), true

	case TopicUnreadNotifications:
		return forward(func(ctx context.Context) resource.Stream[[]*domain.Notification] {
			return h.notifications.GetUnreadNotifications(ctx, userID)
		}), true

	case TopicNotificationCount:
		return forward(func(ctx context.Context) resource.Stream[int] {
			return h.notifications.GetUnreadNotificationCount(ctx, userID)
		}), true

	case TopicChats:
		return forward(func(ctx context.Context) resource.Stream[[]*domain.Chat] {
			return h.chats.GetChatsForUser(ctx, userID)
		}), true

	case TopicChat, TopicChatMessages, TopicChatUnread:
		if _, ok := chatForParticipant(c, h.chats, id, userID); !ok {
			return nil, false
		}
		switch topic {
		case TopicChat:
			return forward(func(ctx context.Context) resource.Stream[*domain.Chat] {
				return h.chats.GetChatStream(ctx, id)
			}), true
		case TopicChatMessages:
			return forward(func(ctx context.Context) resource.Stream[[]*domain.Message] {
				return h.chats.GetMessages(ctx, id)
			}), true
		default:
			return forward(func(ctx context.Context) resource.Stream[int] {
				return h.chats.UnreadCount(ctx, id, userID)
			}), true
		}

	case TopicUsers:
		ids := splitIDs(id)
		if len(ids) > maxUserIDs {
			ErrorResponse(c, domain.NewValidationError("TOO_MANY_IDS", "Too many user ids requested", nil))
			return nil, false
		}
		return forward(func(ctx context.Context) resource.Stream[[]*domain.User] {
			return h.users.GetUsersByIDs(ctx, ids)
		}), true

	default:
		ErrorResponse(c, domain.NewValidationError("UNKNOWN_TOPIC", "Unknown stream topic", map[string]interface{}{
			"field": "topic",
			"value": topic,
		}))
		return nil, false
	}
}
