package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/projectsync/internal/cache"
	"github.com/ericfisherdev/projectsync/internal/domain"
	"github.com/ericfisherdev/projectsync/internal/remote"
	"github.com/ericfisherdev/projectsync/internal/resource"
)

// CounterRecomputer refreshes the derived task counters of a project. It is
// invoked after every task write that can change them.
type CounterRecomputer interface {
	RecomputeCounters(ctx context.Context, projectID string) resource.Resource[*domain.Project]
}

// TaskRepository is cache-through: task lists are served from the local
// cache and refreshed from the remote store.
type TaskRepository struct {
	*base[*domain.Task]
	counters CounterRecomputer
}

func NewTaskRepository(store remote.Store, db *cache.DB, opts Options) (*TaskRepository, error) {
	table, err := openTable[*domain.Task](db, tableTasks)
	if err != nil {
		return nil, fmt.Errorf("failed to open task cache: %w", err)
	}
	coll := remote.NewCollection[*domain.Task](store, collectionTasks)
	return &TaskRepository{base: newBase(entityTask, coll, table, opts)}, nil
}

// WithCounters makes the repository keep project counters current.
func (r *TaskRepository) WithCounters(c CounterRecomputer) *TaskRepository {
	r.counters = c
	return r
}

func (r *TaskRepository) recompute(ctx context.Context, projectID string) {
	if r.counters == nil || projectID == "" {
		return
	}
	res := r.counters.RecomputeCounters(ctx, projectID)
	if res.IsError() {
		r.logger.Warn("project counters not refreshed", "project_id", projectID, "error", res.Message())
	}
}

func stampTask(t *domain.Task, now time.Time) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	t.SyncCompletion(now)
	t.DueDate = truncate(t.DueDate)
	t.CompletedAt = truncate(t.CompletedAt)
	if t.AssignedTo == nil {
		t.AssignedTo = []string{}
	}
}

func truncate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC().Truncate(time.Millisecond)
	return &v
}

func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) resource.Resource[*domain.Task] {
	if err := task.Validate(); err != nil {
		return resource.FromError[*domain.Task](err)
	}
	stampTask(task, r.now())
	res := r.create(ctx, task)
	if res.IsSuccess() {
		r.recompute(ctx, task.ProjectID)
	}
	return res
}

func (r *TaskRepository) Update(ctx context.Context, task *domain.Task) resource.Resource[*domain.Task] {
	if err := task.Validate(); err != nil {
		return resource.FromError[*domain.Task](err)
	}
	stampTask(task, r.now())
	res := r.update(ctx, task)
	if res.IsSuccess() {
		r.recompute(ctx, task.ProjectID)
	}
	return res
}

// Delete removes the task and refreshes its project's counters.
func (r *TaskRepository) Delete(ctx context.Context, id string) resource.Resource[bool] {
	var projectID string
	if r.counters != nil {
		if current, ok := r.Get(ctx, id).Data(); ok {
			projectID = current.ProjectID
		}
	}
	res := r.base.Delete(ctx, id)
	if res.IsSuccess() {
		r.recompute(ctx, projectID)
	}
	return res
}

func byDueDate(a, b *domain.Task) bool {
	switch {
	case a.DueDate == nil:
		return b.DueDate != nil
	case b.DueDate == nil:
		return false
	}
	return a.DueDate.Before(*b.DueDate)
}

func projectScope(projectID string) (cache.Query[*domain.Task], remote.Query) {
	scope := cache.Query[*domain.Task]{Where: cache.Eq("project_id", projectID), Less: byDueDate}
	q := remote.NewQuery().Where("project_id", remote.Eq, projectID).OrderBy("due_date", false)
	return scope, q
}

func assigneeScope(userID string) (cache.Query[*domain.Task], remote.Query) {
	scope := cache.Query[*domain.Task]{Where: cache.Contains("assigned_to", userID), Less: byDueDate}
	q := remote.NewQuery().Where("assigned_to", remote.Contains, userID).OrderBy("due_date", false)
	return scope, q
}

func overdueScope(now time.Time) (cache.Query[*domain.Task], remote.Query) {
	scope := cache.Query[*domain.Task]{
		Where: cache.Eq("is_completed", false),
		Match: func(t *domain.Task) bool { return t.IsOverdue(now) },
		Less:  byDueDate,
	}
	q := remote.NewQuery().
		Where("is_completed", remote.Eq, false).
		Where("due_date", remote.Lt, now).
		OrderBy("due_date", false)
	return scope, q
}

// GetTasksByProject streams the project's tasks ordered by due date.
func (r *TaskRepository) GetTasksByProject(ctx context.Context, projectID string) resource.Stream[[]*domain.Task] {
	scope, q := projectScope(projectID)
	return r.cachedList(ctx, scope, q)
}

// GetTasksByUser streams the tasks assigned to the user ordered by due date.
func (r *TaskRepository) GetTasksByUser(ctx context.Context, userID string) resource.Stream[[]*domain.Task] {
	scope, q := assigneeScope(userID)
	return r.cachedList(ctx, scope, q)
}

// GetOverdueTasks streams incomplete tasks whose due date passed before the
// subscription opened.
func (r *TaskRepository) GetOverdueTasks(ctx context.Context) resource.Stream[[]*domain.Task] {
	scope, q := overdueScope(r.now())
	return r.cachedList(ctx, scope, q)
}

func (r *TaskRepository) RefreshProject(ctx context.Context, projectID string) resource.Resource[[]*domain.Task] {
	scope, q := projectScope(projectID)
	return r.refresh(ctx, scope, q)
}

func (r *TaskRepository) RefreshUser(ctx context.Context, userID string) resource.Resource[[]*domain.Task] {
	scope, q := assigneeScope(userID)
	return r.refresh(ctx, scope, q)
}

func (r *TaskRepository) RefreshOverdue(ctx context.Context) resource.Resource[[]*domain.Task] {
	scope, q := overdueScope(r.now())
	return r.refresh(ctx, scope, q)
}

// completionPatch carries every field SetCompleted and UpdateStatus touch.
func completionPatch(t *domain.Task) remote.Patch {
	return remote.Patch{
		"status":       t.Status,
		"is_completed": t.IsCompleted,
		"completed_at": t.CompletedAt,
		"updated_at":   t.UpdatedAt,
	}
}

// ToggleTaskCompletion marks the task complete or reopens it. This is a
// read-then-write; concurrent writers to the same task are last-write-wins.
func (r *TaskRepository) ToggleTaskCompletion(ctx context.Context, id string, completed bool) resource.Resource[*domain.Task] {
	got := r.Get(ctx, id)
	current, ok := got.Data()
	if !ok {
		return got
	}
	current.SetCompleted(completed, r.now())
	res := r.patch(ctx, "toggle_completion", id, completionPatch(current))
	if res.IsSuccess() {
		r.recompute(ctx, current.ProjectID)
	}
	return res
}

func (r *TaskRepository) UpdateTaskStatus(ctx context.Context, id string, status domain.TaskStatus) resource.Resource[*domain.Task] {
	got := r.Get(ctx, id)
	current, ok := got.Data()
	if !ok {
		return got
	}
	wasCompleted := current.IsCompleted
	if err := current.UpdateStatus(status, r.now()); err != nil {
		return resource.FromError[*domain.Task](err)
	}
	res := r.patch(ctx, "update_status", id, completionPatch(current))
	if res.IsSuccess() && wasCompleted != current.IsCompleted {
		r.recompute(ctx, current.ProjectID)
	}
	return res
}

// AssignTask adds the user to the assignees; assigning twice is a no-op.
func (r *TaskRepository) AssignTask(ctx context.Context, id, userID string) resource.Resource[*domain.Task] {
	if userID == "" {
		return resource.FromError[*domain.Task](domain.NewValidationError("INVALID_USER", "Assignee is required", map[string]interface{}{
			"field": "user_id",
		}))
	}
	return r.patch(ctx, "assign", id, remote.Patch{
		"assigned_to": remote.ArrayUnion(userID),
		"updated_at":  r.now(),
	})
}

func (r *TaskRepository) UnassignTask(ctx context.Context, id, userID string) resource.Resource[*domain.Task] {
	return r.patch(ctx, "unassign", id, remote.Patch{
		"assigned_to": remote.ArrayRemove(userID),
		"updated_at":  r.now(),
	})
}

// AddChecklist appends an empty checklist to the task.
func (r *TaskRepository) AddChecklist(ctx context.Context, taskID, title string) resource.Resource[*domain.Task] {
	if title == "" {
		return resource.FromError[*domain.Task](domain.NewValidationError("INVALID_TITLE", "Checklist title is required", map[string]interface{}{
			"field": "title",
		}))
	}
	checklist := domain.Checklist{ID: uuid.NewString(), Title: title, Items: []domain.ChecklistItem{}}
	return r.patch(ctx, "add_checklist", taskID, remote.Patch{
		"checklists": remote.ArrayUnion(checklist),
		"updated_at": r.now(),
	})
}

// AddChecklistItem appends an unchecked item to one of the task's checklists.
func (r *TaskRepository) AddChecklistItem(ctx context.Context, taskID, checklistID, text string) resource.Resource[*domain.Task] {
	if text == "" {
		return resource.FromError[*domain.Task](domain.NewValidationError("INVALID_TEXT", "Checklist item text is required", map[string]interface{}{
			"field": "text",
		}))
	}
	got := r.Get(ctx, taskID)
	current, ok := got.Data()
	if !ok {
		return got
	}
	found := false
	for i := range current.Checklists {
		if current.Checklists[i].ID == checklistID {
			current.Checklists[i].Items = append(current.Checklists[i].Items, domain.ChecklistItem{ID: uuid.NewString(), Text: text})
			found = true
			break
		}
	}
	if !found {
		return resource.FromError[*domain.Task](domain.NewNotFoundError("CHECKLIST_NOT_FOUND", "Checklist not found"))
	}
	return r.patch(ctx, "add_checklist_item", taskID, remote.Patch{
		"checklists": current.Checklists,
		"updated_at": r.now(),
	})
}

func (r *TaskRepository) ToggleChecklistItem(ctx context.Context, taskID, checklistID, itemID string) resource.Resource[*domain.Task] {
	got := r.Get(ctx, taskID)
	current, ok := got.Data()
	if !ok {
		return got
	}
	if !current.ToggleChecklistItem(checklistID, itemID) {
		return resource.FromError[*domain.Task](domain.NewNotFoundError("CHECKLIST_ITEM_NOT_FOUND", "Checklist item not found"))
	}
	return r.patch(ctx, "toggle_checklist_item", taskID, remote.Patch{
		"checklists": current.Checklists,
		"updated_at": r.now(),
	})
}
