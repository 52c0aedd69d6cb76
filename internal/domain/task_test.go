package domain_test

import (
	"testing"
	"time"

	"github.com/ericfisherdev/projectsync/internal/domain"
)

func TestNewTask(t *testing.T) {
	task := domain.NewTask("Write docs", "Describe sync layer", "proj-1", "user-1")

	if task.Status != domain.StatusTodo {
		t.Errorf("Expected default status %s, got %s", domain.StatusTodo, task.Status)
	}

	if task.Priority != domain.PriorityMedium {
		t.Errorf("Expected default priority %s, got %s", domain.PriorityMedium, task.Priority)
	}

	if task.IsCompleted {
		t.Error("Expected new task to be incomplete")
	}

	if task.ID != "" {
		t.Errorf("Expected empty id before persistence, got %q", task.ID)
	}
}

func TestTask_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*domain.Task)
		errorCode string
	}{
		{name: "valid task", mutate: func(*domain.Task) {}},
		{name: "missing title", mutate: func(task *domain.Task) { task.Title = "" }, errorCode: "INVALID_TITLE"},
		{name: "missing project", mutate: func(task *domain.Task) { task.ProjectID = "" }, errorCode: "INVALID_PROJECT"},
		{name: "bad status", mutate: func(task *domain.Task) { task.Status = "done" }, errorCode: "INVALID_STATUS"},
		{name: "bad priority", mutate: func(task *domain.Task) { task.Priority = "p0" }, errorCode: "INVALID_PRIORITY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := domain.NewTask("Title", "", "proj-1", "user-1")
			tt.mutate(task)

			err := task.Validate()
			if tt.errorCode == "" {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				return
			}

			domainErr, ok := err.(*domain.DomainError)
			if !ok {
				t.Fatalf("Expected DomainError, got %T", err)
			}
			if domainErr.Code != tt.errorCode {
				t.Errorf("Expected code %s, got %s", tt.errorCode, domainErr.Code)
			}
			if !domain.IsValidation(err) {
				t.Error("Expected a validation error")
			}
		})
	}
}

func TestTask_SetCompleted(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	task := domain.NewTask("Title", "", "proj-1", "user-1")
	task.Status = domain.StatusInProgress

	task.SetCompleted(true, now)
	if !task.IsCompleted || task.Status != domain.StatusCompleted {
		t.Fatalf("Expected completed task, got completed=%v status=%s", task.IsCompleted, task.Status)
	}
	if task.CompletedAt == nil || !task.CompletedAt.Equal(now) {
		t.Errorf("Expected completed_at %v, got %v", now, task.CompletedAt)
	}

	task.SetCompleted(false, now.Add(time.Hour))
	if task.IsCompleted || task.Status != domain.StatusTodo || task.CompletedAt != nil {
		t.Errorf("Expected reopened todo task, got completed=%v status=%s completed_at=%v",
			task.IsCompleted, task.Status, task.CompletedAt)
	}
}

func TestTask_SyncCompletion(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	earlier := now.Add(-time.Hour)

	tests := []struct {
		name          string
		status        domain.TaskStatus
		isCompleted   bool
		completedAt   *time.Time
		wantStatus    domain.TaskStatus
		wantCompleted bool
		wantAt        *time.Time
	}{
		{"completed status without flag", domain.StatusCompleted, false, nil, domain.StatusCompleted, true, &now},
		{"flag without completed status", domain.StatusInProgress, true, &earlier, domain.StatusInProgress, false, nil},
		{"stale completed_at", domain.StatusTodo, false, &earlier, domain.StatusTodo, false, nil},
		{"consistent completed keeps timestamp", domain.StatusCompleted, true, &earlier, domain.StatusCompleted, true, &earlier},
		{"consistent open", domain.StatusBlocked, false, nil, domain.StatusBlocked, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := domain.NewTask("Title", "", "proj-1", "user-1")
			task.Status = tt.status
			task.IsCompleted = tt.isCompleted
			task.CompletedAt = tt.completedAt

			task.SyncCompletion(now)

			if task.Status != tt.wantStatus || task.IsCompleted != tt.wantCompleted {
				t.Errorf("SyncCompletion() status=%s completed=%v, want status=%s completed=%v",
					task.Status, task.IsCompleted, tt.wantStatus, tt.wantCompleted)
			}
			switch {
			case tt.wantAt == nil && task.CompletedAt != nil:
				t.Errorf("SyncCompletion() completed_at = %v, want nil", task.CompletedAt)
			case tt.wantAt != nil && (task.CompletedAt == nil || !task.CompletedAt.Equal(*tt.wantAt)):
				t.Errorf("SyncCompletion() completed_at = %v, want %v", task.CompletedAt, *tt.wantAt)
			}
		})
	}
}

func TestTask_UpdateStatus(t *testing.T) {
	now := time.Now()
	task := domain.NewTask("Title", "", "proj-1", "user-1")

	if err := task.UpdateStatus(domain.StatusCompleted, now); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !task.IsCompleted {
		t.Error("Expected completed status to set IsCompleted")
	}

	if err := task.UpdateStatus(domain.StatusBlocked, now); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if task.IsCompleted || task.Status != domain.StatusBlocked {
		t.Errorf("Expected blocked incomplete task, got completed=%v status=%s", task.IsCompleted, task.Status)
	}

	if err := task.UpdateStatus("shipped", now); !domain.IsValidation(err) {
		t.Errorf("Expected validation error for unknown status, got %v", err)
	}
}

func TestTask_IsOverdue(t *testing.T) {
	now := time.Now()
	yesterday := now.Add(-24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)

	tests := []struct {
		name      string
		due       *time.Time
		completed bool
		want      bool
	}{
		{name: "no due date", due: nil, want: false},
		{name: "due yesterday", due: &yesterday, want: true},
		{name: "due tomorrow", due: &tomorrow, want: false},
		{name: "completed past due", due: &yesterday, completed: true, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := domain.NewTask("Title", "", "proj-1", "user-1")
			task.DueDate = tt.due
			task.IsCompleted = tt.completed
			if got := task.IsOverdue(now); got != tt.want {
				t.Errorf("IsOverdue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTask_ToggleChecklistItem(t *testing.T) {
	task := domain.NewTask("Title", "", "proj-1", "user-1")
	task.Checklists = []domain.Checklist{{
		ID:    "cl-1",
		Title: "Release",
		Items: []domain.ChecklistItem{{ID: "i-1", Text: "Tag"}},
	}}

	if !task.ToggleChecklistItem("cl-1", "i-1") {
		t.Fatal("Expected item to be found")
	}
	if !task.Checklists[0].Items[0].Done {
		t.Error("Expected item to be done")
	}
	if task.ToggleChecklistItem("cl-1", "missing") {
		t.Error("Expected missing item to report false")
	}
}
