package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ericfisherdev/projectsync/internal/domain"
	"github.com/ericfisherdev/projectsync/internal/repository"
	"github.com/ericfisherdev/projectsync/internal/resource"
)

// ProjectHandler handles project-related HTTP requests.
type ProjectHandler struct {
	projects *repository.ProjectRepository
}

func NewProjectHandler(projects *repository.ProjectRepository) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// RegisterRoutes registers project routes with the router.
func (h *ProjectHandler) RegisterRoutes(router *gin.RouterGroup) {
	projects := router.Group("/projects")
	{
		projects.GET("", h.ListProjects)
		projects.POST("", h.CreateProject)
		projects.GET("/:projectId", h.GetProject)
		projects.PUT("/:projectId/status", h.UpdateProjectStatus)
		projects.POST("/:projectId/members", h.AddMember)
		projects.DELETE("/:projectId/members/:userId", h.RemoveMember)
	}
}

// CreateProjectRequest is the body of POST /api/projects.
type CreateProjectRequest struct {
	Deadline    *time.Time      `json:"deadline"`
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Priority    domain.Priority `json:"priority"`
}

// ListProjects handles GET /api/projects. A q parameter filters by name
// prefix.
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	prefix := c.Query("q")
	render(c, http.StatusOK, snapshot(c, func(ctx context.Context) resource.Stream[[]*domain.Project] {
		if prefix != "" {
			return h.projects.SearchProjects(ctx, user.UserID, prefix)
		}
		return h.projects.GetProjectsByUser(ctx, user.UserID)
	}))
}

// CreateProject handles POST /api/projects. The caller becomes the owner.
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req CreateProjectRequest
	if !bindJSON(c, &req) {
		return
	}

	project := &domain.Project{
		Name:        req.Name,
		Description: req.Description,
		Priority:    req.Priority,
		Deadline:    req.Deadline,
		OwnerID:     user.UserID,
	}
	render(c, http.StatusCreated, h.projects.Create(c.Request.Context(), project))
}

// GetProject handles GET /api/projects/:projectId.
func (h *ProjectHandler) GetProject(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if project, ok := projectForMember(c, h.projects, c.Param("projectId"), user.UserID); ok {
		SuccessResponse(c, project)
	}
}

// UpdateProjectStatus handles PUT /api/projects/:projectId/status.
func (h *ProjectHandler) UpdateProjectStatus(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	project, ok := projectForOwner(c, h.projects, c.Param("projectId"), user.UserID)
	if !ok {
		return
	}
	var req struct {
		Status domain.ProjectStatus `json:"status" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	render(c, http.StatusOK, h.projects.UpdateProjectStatus(c.Request.Context(), project.ID, req.Status))
}

// AddMember handles POST /api/projects/:projectId/members.
func (h *ProjectHandler) AddMember(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	project, ok := projectForOwner(c, h.projects, c.Param("projectId"), user.UserID)
	if !ok {
		return
	}
	var req struct {
		UserID string            `json:"user_id" binding:"required"`
		Role   domain.MemberRole `json:"role"`
	}
	if !bindJSON(c, &req) {
		return
	}
	member := domain.ProjectMember{UserID: req.UserID, Role: req.Role}
	render(c, http.StatusOK, h.projects.AddMemberToProject(c.Request.Context(), project.ID, member))
}

// RemoveMember handles DELETE /api/projects/:projectId/members/:userId.
// Members may remove themselves; anyone else needs the owner.
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	target := c.Param("userId")

	var project *domain.Project
	if target == user.UserID {
		project, ok = projectForMember(c, h.projects, c.Param("projectId"), user.UserID)
	} else {
		project, ok = projectForOwner(c, h.projects, c.Param("projectId"), user.UserID)
	}
	if !ok {
		return
	}
	render(c, http.StatusOK, h.projects.RemoveMemberFromProject(c.Request.Context(), project.ID, target))
}
