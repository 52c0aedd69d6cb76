package api

import (
	"context"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/ericfisherdev/projectsync/internal/api/middleware"
	"github.com/ericfisherdev/projectsync/internal/domain"
	"github.com/ericfisherdev/projectsync/internal/repository"
	"github.com/ericfisherdev/projectsync/internal/resource"
)

// FileHandler handles task attachments.
type FileHandler struct {
	files    *repository.FileRepository
	tasks    *repository.TaskRepository
	projects *repository.ProjectRepository
}

func NewFileHandler(files *repository.FileRepository, tasks *repository.TaskRepository, projects *repository.ProjectRepository) *FileHandler {
	return &FileHandler{files: files, tasks: tasks, projects: projects}
}

func (h *FileHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/tasks/:id/files", h.ListFiles)
	router.POST("/tasks/:id/files", h.UploadFile)
	router.DELETE("/tasks/:id/files/:fileId", h.DeleteFile)
}

func (h *FileHandler) task(c *gin.Context) (*domain.Task, bool) {
	user, ok := currentUser(c)
	if !ok {
		return nil, false
	}
	return taskForMember(c, h.tasks, h.projects, c.Param("id"), user.UserID)
}

// ListFiles handles GET /api/tasks/:id/files.
func (h *FileHandler) ListFiles(c *gin.Context) {
	task, ok := h.task(c)
	if !ok {
		return
	}
	render(c, http.StatusOK, snapshot(c, func(ctx context.Context) resource.Stream[[]*domain.FileAttachment] {
		return h.files.GetFilesByTask(ctx, task.ID)
	}))
}

// UploadFile handles POST /api/tasks/:id/files with a multipart "file" field.
func (h *FileHandler) UploadFile(c *gin.Context) {
	task, ok := h.task(c)
	if !ok {
		return
	}
	user, _ := middleware.GetIdentity(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, domain.MaxAttachmentSize+1<<20)
	header, err := c.FormFile("file")
	if err != nil {
		ErrorResponse(c, domain.NewValidationError("MISSING_FILE", "A file is required", map[string]interface{}{
			"field": "file",
		}))
		return
	}
	body, err := header.Open()
	if err != nil {
		ErrorResponse(c, domain.NewInternalError("FILE_READ_FAILED", "Failed to read upload", err))
		return
	}
	defer body.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	meta := &domain.FileAttachment{
		Name:        filepath.Base(header.Filename),
		ContentType: contentType,
		Size:        header.Size,
		TaskID:      task.ID,
		ProjectID:   task.ProjectID,
		UploadedBy:  user.UserID,
	}
	render(c, http.StatusCreated, h.files.Upload(c.Request.Context(), meta, body))
}

// DeleteFile handles DELETE /api/tasks/:id/files/:fileId.
func (h *FileHandler) DeleteFile(c *gin.Context) {
	task, ok := h.task(c)
	if !ok {
		return
	}
	meta, ok := value(c, h.files.Get(c.Request.Context(), c.Param("fileId")))
	if !ok {
		return
	}
	if meta.TaskID != task.ID {
		ErrorResponse(c, domain.NewNotFoundError("FILE_NOT_FOUND", "File not found"))
		return
	}
	if _, ok := value(c, h.files.Delete(c.Request.Context(), meta.ID)); ok {
		c.Status(http.StatusNoContent)
	}
}
