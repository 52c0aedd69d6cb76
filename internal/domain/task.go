package domain

import (
	"fmt"
	"time"
)

type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in-progress"
	StatusReview     TaskStatus = "review"
	StatusCompleted  TaskStatus = "completed"
	StatusBlocked    TaskStatus = "blocked"
	StatusCancelled  TaskStatus = "cancelled"
)

func (s TaskStatus) IsValid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusCompleted, StatusBlocked, StatusCancelled:
		return true
	default:
		return false
	}
}

// Priority is shared by projects and tasks.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

type ChecklistItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

type Checklist struct {
	ID    string          `json:"id"`
	Title string          `json:"title"`
	Items []ChecklistItem `json:"items"`
}

// Task is a unit of work inside a project. Comments and attachments are
// embedded copies; the comments and files collections stay authoritative.
type Task struct {
	ID          string           `json:"id"`
	ProjectID   string           `json:"project_id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Status      TaskStatus       `json:"status"`
	Priority    Priority         `json:"priority"`
	AssignedTo  []string         `json:"assigned_to"`
	CreatedBy   string           `json:"created_by"`
	DueDate     *time.Time       `json:"due_date"`
	IsCompleted bool             `json:"is_completed"`
	CompletedAt *time.Time       `json:"completed_at"`
	Comments    []Comment        `json:"comments"`
	Attachments []FileAttachment `json:"attachments"`
	Checklists  []Checklist      `json:"checklists"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func NewTask(title, description, projectID, createdBy string) *Task {
	return &Task{
		Title:       title,
		Description: description,
		ProjectID:   projectID,
		Status:      StatusTodo,
		Priority:    PriorityMedium,
		CreatedBy:   createdBy,
		AssignedTo:  []string{},
	}
}

func (t *Task) GetID() string { return t.ID }

func (t *Task) SetID(id string) { t.ID = id }

func (t *Task) Validate() error {
	if t.Title == "" {
		return NewValidationError("INVALID_TITLE", "Task title is required", map[string]interface{}{
			"field": "title",
		})
	}
	if len(t.Title) > 200 {
		return NewValidationError("TITLE_TOO_LONG", "Task title cannot exceed 200 characters", map[string]interface{}{
			"field":      "title",
			"max_length": 200,
		})
	}
	if t.ProjectID == "" {
		return NewValidationError("INVALID_PROJECT", "Task must belong to a project", map[string]interface{}{
			"field": "project_id",
		})
	}
	if !t.Status.IsValid() {
		return NewValidationError("INVALID_STATUS", fmt.Sprintf("Invalid task status: %s", t.Status), map[string]interface{}{
			"field": "status",
			"value": t.Status,
		})
	}
	if !t.Priority.IsValid() {
		return NewValidationError("INVALID_PRIORITY", fmt.Sprintf("Invalid task priority: %s", t.Priority), map[string]interface{}{
			"field": "priority",
			"value": t.Priority,
		})
	}
	return nil
}

// SetCompleted moves the task in or out of the completed state, keeping
// Status, IsCompleted and CompletedAt consistent.
func (t *Task) SetCompleted(completed bool, now time.Time) {
	t.IsCompleted = completed
	if completed {
		t.Status = StatusCompleted
		t.CompletedAt = &now
	} else {
		if t.Status == StatusCompleted {
			t.Status = StatusTodo
		}
		t.CompletedAt = nil
	}
	t.UpdatedAt = now
}

// SyncCompletion derives IsCompleted and CompletedAt from Status for a task
// written as a whole. An existing CompletedAt is kept while the task stays
// completed.
func (t *Task) SyncCompletion(now time.Time) {
	completed := t.Status == StatusCompleted
	if completed == t.IsCompleted && completed == (t.CompletedAt != nil) {
		return
	}
	t.SetCompleted(completed, now)
}

// UpdateStatus changes the status. Entering or leaving StatusCompleted also
// flips IsCompleted.
func (t *Task) UpdateStatus(status TaskStatus, now time.Time) error {
	if !status.IsValid() {
		return NewValidationError("INVALID_STATUS", fmt.Sprintf("Invalid task status: %s", status), map[string]interface{}{
			"field": "status",
			"value": status,
		})
	}
	if status == StatusCompleted {
		t.SetCompleted(true, now)
		return nil
	}
	if t.IsCompleted {
		t.SetCompleted(false, now)
	}
	t.Status = status
	t.UpdatedAt = now
	return nil
}

func (t *Task) IsAssignedTo(userID string) bool {
	for _, id := range t.AssignedTo {
		if id == userID {
			return true
		}
	}
	return false
}

func (t *Task) IsOverdue(now time.Time) bool {
	return !t.IsCompleted && t.DueDate != nil && t.DueDate.Before(now)
}

// ToggleChecklistItem flips one checklist item and reports whether it was found.
func (t *Task) ToggleChecklistItem(checklistID, itemID string) bool {
	for i := range t.Checklists {
		if t.Checklists[i].ID != checklistID {
			continue
		}
		for j := range t.Checklists[i].Items {
			if t.Checklists[i].Items[j].ID == itemID {
				t.Checklists[i].Items[j].Done = !t.Checklists[i].Items[j].Done
				return true
			}
		}
	}
	return false
}
