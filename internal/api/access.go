package api

import (
	"github.com/gin-gonic/gin"

	"github.com/ericfisherdev/projectsync/internal/domain"
	"github.com/ericfisherdev/projectsync/internal/repository"
)

// projectForMember loads a project the user belongs to. Non-members get the
// same 404 as a missing project.
func projectForMember(c *gin.Context, projects *repository.ProjectRepository, projectID, userID string) (*domain.Project, bool) {
	project, ok := value(c, projects.Get(c.Request.Context(), projectID))
	if !ok {
		return nil, false
	}
	if !project.IsMember(userID) {
		ErrorResponse(c, domain.NewNotFoundError("PROJECT_NOT_FOUND", "Project not found"))
		return nil, false
	}
	return project, true
}

// projectForOwner loads a project only its owner may manage.
func projectForOwner(c *gin.Context, projects *repository.ProjectRepository, projectID, userID string) (*domain.Project, bool) {
	project, ok := projectForMember(c, projects, projectID, userID)
	if !ok {
		return nil, false
	}
	if project.OwnerID != userID {
		ErrorResponse(c, domain.NewAuthenticationError("NOT_PROJECT_OWNER", "Only the project owner can do this"))
		return nil, false
	}
	return project, true
}

func chatForParticipant(c *gin.Context, chats *repository.ChatRepository, chatID, userID string) (*domain.Chat, bool) {
	chat, ok := value(c, chats.GetChat(c.Request.Context(), chatID))
	if !ok {
		return nil, false
	}
	if !chat.HasParticipant(userID) {
		ErrorResponse(c, domain.NewNotFoundError("CHAT_NOT_FOUND", "Chat not found"))
		return nil, false
	}
	return chat, true
}

// taskForMember loads a task whose project the user belongs to.
func taskForMember(c *gin.Context, tasks *repository.TaskRepository, projects *repository.ProjectRepository, taskID, userID string) (*domain.Task, bool) {
	task, ok := value(c, tasks.Get(c.Request.Context(), taskID))
	if !ok {
		return nil, false
	}
	project, found := projects.Get(c.Request.Context(), task.ProjectID).Data()
	if !found || !project.IsMember(userID) {
		ErrorResponse(c, domain.NewNotFoundError("TASK_NOT_FOUND", "Task not found"))
		return nil, false
	}
	return task, true
}
