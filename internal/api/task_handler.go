package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ericfisherdev/projectsync/internal/api/middleware"
	"github.com/ericfisherdev/projectsync/internal/domain"
	"github.com/ericfisherdev/projectsync/internal/repository"
	"github.com/ericfisherdev/projectsync/internal/resource"
)

// TaskHandler handles task-related HTTP requests.
type TaskHandler struct {
	tasks    *repository.TaskRepository
	projects *repository.ProjectRepository
	comments *repository.CommentRepository
}

func NewTaskHandler(
	tasks *repository.TaskRepository,
	projects *repository.ProjectRepository,
	comments *repository.CommentRepository,
) *TaskHandler {
	return &TaskHandler{
		tasks:    tasks,
		projects: projects,
		comments: comments,
	}
}

// RegisterRoutes registers task routes with the router.
func (h *TaskHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/projects/:projectId/tasks", h.ListProjectTasks)
	router.POST("/projects/:projectId/tasks", h.CreateTask)

	me := router.Group("/me/tasks")
	{
		me.GET("", h.ListMyTasks)
		me.GET("/overdue", h.ListMyOverdueTasks)
	}

	tasks := router.Group("/tasks/:id")
	{
		tasks.GET("", h.GetTask)
		tasks.PUT("", h.UpdateTask)
		tasks.DELETE("", h.DeleteTask)

		tasks.PUT("/complete", h.CompleteTask)
		tasks.PUT("/status", h.UpdateTaskStatus)
		tasks.POST("/assign", h.AssignTask)
		tasks.DELETE("/assign/:userId", h.UnassignTask)

		tasks.POST("/checklists", h.AddChecklist)
		tasks.POST("/checklists/:checklistId/items", h.AddChecklistItem)
		tasks.PUT("/checklists/:checklistId/items/:itemId/toggle", h.ToggleChecklistItem)

		tasks.GET("/comments", h.ListComments)
		tasks.POST("/comments", h.AddComment)
	}
}

// CreateTaskRequest is the body of POST /api/projects/:projectId/tasks.
type CreateTaskRequest struct {
	DueDate     *time.Time      `json:"due_date"`
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	Priority    domain.Priority `json:"priority"`
	AssignedTo  []string        `json:"assigned_to"`
}

// UpdateTaskRequest replaces the editable fields of a task. Absent fields
// keep their value.
type UpdateTaskRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Priority    *domain.Priority `json:"priority"`
	DueDate     *time.Time       `json:"due_date"`
	ClearDue    bool             `json:"clear_due_date"`
}

// ListProjectTasks handles GET /api/projects/:projectId/tasks.
func (h *TaskHandler) ListProjectTasks(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	projectID := c.Param("projectId")
	if _, ok := projectForMember(c, h.projects, projectID, user.UserID); !ok {
		return
	}

	render(c, http.StatusOK, snapshot(c, func(ctx context.Context) resource.Stream[[]*domain.Task] {
		return h.tasks.GetTasksByProject(ctx, projectID)
	}))
}

// CreateTask handles POST /api/projects/:projectId/tasks.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	projectID := c.Param("projectId")
	if _, ok := projectForMember(c, h.projects, projectID, user.UserID); !ok {
		return
	}

	var req CreateTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task := domain.NewTask(req.Title, req.Description, projectID, user.UserID)
	task.DueDate = req.DueDate
	if req.Priority != "" {
		task.Priority = req.Priority
	}
	if req.AssignedTo != nil {
		task.AssignedTo = req.AssignedTo
	}
	render(c, http.StatusCreated, h.tasks.Create(c.Request.Context(), task))
}

// ListMyTasks handles GET /api/me/tasks.
func (h *TaskHandler) ListMyTasks(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	render(c, http.StatusOK, snapshot(c, func(ctx context.Context) resource.Stream[[]*domain.Task] {
		return h.tasks.GetTasksByUser(ctx, user.UserID)
	}))
}

// ListMyOverdueTasks handles GET /api/me/tasks/overdue. The overdue query
// spans every project, so the result is narrowed to the caller's tasks.
func (h *TaskHandler) ListMyOverdueTasks(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	all := snapshot(c, h.tasks.GetOverdueTasks)
	render(c, http.StatusOK, resource.Map(all, func(tasks []*domain.Task) []*domain.Task {
		mine := make([]*domain.Task, 0, len(tasks))
		for _, t := range tasks {
			if t.IsAssignedTo(user.UserID) || t.CreatedBy == user.UserID {
				mine = append(mine, t)
			}
		}
		return mine
	}))
}

// task loads the task named by the :id parameter.
func (h *TaskHandler) task(c *gin.Context) (*domain.Task, bool) {
	user, ok := currentUser(c)
	if !ok {
		return nil, false
	}
	return taskForMember(c, h.tasks, h.projects, c.Param("id"), user.UserID)
}

// GetTask handles GET /api/tasks/:id.
func (h *TaskHandler) GetTask(c *gin.Context) {
	if task, ok := h.task(c); ok {
		SuccessResponse(c, task)
	}
}

// UpdateTask handles PUT /api/tasks/:id.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	task, ok := h.task(c)
	if !ok {
		return
	}
	var req UpdateTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	switch {
	case req.ClearDue:
		task.DueDate = nil
	case req.DueDate != nil:
		task.DueDate = req.DueDate
	}
	render(c, http.StatusOK, h.tasks.Update(c.Request.Context(), task))
}

// DeleteTask handles DELETE /api/tasks/:id.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	task, ok := h.task(c)
	if !ok {
		return
	}
	if _, ok := value(c, h.tasks.Delete(c.Request.Context(), task.ID)); ok {
		c.Status(http.StatusNoContent)
	}
}

// CompleteTask handles PUT /api/tasks/:id/complete.
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	task, ok := h.task(c)
	if !ok {
		return
	}
	var req struct {
		Completed bool `json:"completed"`
	}
	if !bindJSON(c, &req) {
		return
	}
	render(c, http.StatusOK, h.tasks.ToggleTaskCompletion(c.Request.Context(), task.ID, req.Completed))
}

// UpdateTaskStatus handles PUT /api/tasks/:id/status.
func (h *TaskHandler) UpdateTaskStatus(c *gin.Context) {
	task, ok := h.task(c)
	if !ok {
		return
	}
	var req struct {
		Status domain.TaskStatus `json:"status" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	render(c, http.StatusOK, h.tasks.UpdateTaskStatus(c.Request.Context(), task.ID, req.Status))
}

// AssignTask handles POST /api/tasks/:id/assign.
func (h *TaskHandler) AssignTask(c *gin.Context) {
	task, ok := h.task(c)
	if !ok {
		return
	}
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	render(c, http.StatusOK, h.tasks.AssignTask(c.Request.Context(), task.ID, req.UserID))
}

// UnassignTask handles DELETE /api/tasks/:id/assign/:userId.
func (h *TaskHandler) UnassignTask(c *gin.Context) {
	task, ok := h.task(c)
	if !ok {
		return
	}
	render(c, http.StatusOK, h.tasks.UnassignTask(c.Request.Context(), task.ID, c.Param("userId")))
}

func (h *TaskHandler) AddChecklist(c *gin.Context) {
	task, ok := h.task(c)
	if !ok {
		return
	}
	var req struct {
		Title string `json:"title" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	render(c, http.StatusCreated, h.tasks.AddChecklist(c.Request.Context(), task.ID, req.Title))
}

func (h *TaskHandler) AddChecklistItem(c *gin.Context) {
	task, ok := h.task(c)
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	render(c, http.StatusCreated, h.tasks.AddChecklistItem(c.Request.Context(), task.ID, c.Param("checklistId"), req.Text))
}

func (h *TaskHandler) ToggleChecklistItem(c *gin.Context) {
	task, ok := h.task(c)
	if !ok {
		return
	}
	render(c, http.StatusOK, h.tasks.ToggleChecklistItem(c.Request.Context(), task.ID, c.Param("checklistId"), c.Param("itemId")))
}

// ListComments handles GET /api/tasks/:id/comments.
func (h *TaskHandler) ListComments(c *gin.Context) {
	task, ok := h.task(c)
	if !ok {
		return
	}
	render(c, http.StatusOK, snapshot(c, func(ctx context.Context) resource.Stream[[]*domain.Comment] {
		return h.comments.GetCommentsByTask(ctx, task.ID)
	}))
}

// AddComment handles POST /api/tasks/:id/comments.
func (h *TaskHandler) AddComment(c *gin.Context) {
	task, ok := h.task(c)
	if !ok {
		return
	}
	user, _ := middleware.GetIdentity(c)
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	comment := domain.NewComment(req.Content, task.ID, user.UserID, user.DisplayName)
	comment.ProjectID = task.ProjectID
	render(c, http.StatusCreated, h.comments.AddComment(c.Request.Context(), comment))
}
