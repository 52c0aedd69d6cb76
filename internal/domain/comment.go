package domain

import (
	"strings"
	"time"
)

// Comment represents a user comment attached to a task or a project.
type Comment struct {
	ID            string    `json:"id"`
	TaskID        string    `json:"task_id"`
	ProjectID     string    `json:"project_id"`
	UserID        string    `json:"user_id"`
	AuthorName    string    `json:"author_name"`
	Content       string    `json:"content"`
	AttachmentIDs []string  `json:"attachment_ids"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewComment creates a new task comment
func NewComment(content, taskID, userID, authorName string) *Comment {
	return &Comment{
		Content:       content,
		TaskID:        taskID,
		UserID:        userID,
		AuthorName:    authorName,
		AttachmentIDs: []string{},
	}
}

// GetID returns the comment id.
func (c *Comment) GetID() string { return c.ID }

// SetID assigns the comment id.
func (c *Comment) SetID(id string) { c.ID = id }

// Validate performs validation of the comment
func (c *Comment) Validate() error {
	if strings.TrimSpace(c.Content) == "" {
		return NewValidationError("content", "Comment content is required", nil)
	}
	if len(c.Content) > 10000 {
		return NewValidationError("content", "Comment content must not exceed 10000 characters", nil)
	}
	if c.TaskID == "" && c.ProjectID == "" {
		return NewValidationError("parent", "Comment must reference a task or a project", nil)
	}
	if c.UserID == "" {
		return NewValidationError("user_id", "Author ID is required", nil)
	}
	if len(c.AttachmentIDs) > 10 {
		return NewValidationError("attachments", "Maximum 10 attachments allowed per comment", nil)
	}
	return nil
}
