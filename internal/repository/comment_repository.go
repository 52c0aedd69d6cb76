package repository

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/projectsync/internal/cache"
	"github.com/ericfisherdev/projectsync/internal/domain"
	"github.com/ericfisherdev/projectsync/internal/remote"
	"github.com/ericfisherdev/projectsync/internal/resource"
)

// CommentRepository is cache-through.
type CommentRepository struct {
	*base[*domain.Comment]
	tasks *remote.Collection[*domain.Task]
}

func NewCommentRepository(store remote.Store, db *cache.DB, opts Options) (*CommentRepository, error) {
	table, err := openTable[*domain.Comment](db, tableComments)
	if err != nil {
		return nil, fmt.Errorf("failed to open comment cache: %w", err)
	}
	coll := remote.NewCollection[*domain.Comment](store, collectionComments)
	return &CommentRepository{
		base:  newBase(entityComment, coll, table, opts),
		tasks: remote.NewCollection[*domain.Task](store, collectionTasks),
	}, nil
}

func (r *CommentRepository) prepare(c *domain.Comment) error {
	if err := c.Validate(); err != nil {
		return err
	}
	now := r.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.AttachmentIDs == nil {
		c.AttachmentIDs = []string{}
	}
	return nil
}

// AddComment stores the comment and appends a copy to the parent task's
// embedded comment list with an atomic array union.
func (r *CommentRepository) AddComment(ctx context.Context, c *domain.Comment) resource.Resource[*domain.Comment] {
	if err := r.prepare(c); err != nil {
		return resource.FromError[*domain.Comment](err)
	}
	res := r.create(ctx, c)
	created, ok := res.Data()
	if !ok || created.TaskID == "" {
		return res
	}
	err := r.tasks.Update(ctx, created.TaskID, remote.Patch{"comments": remote.ArrayUnion(created)})
	if err != nil {
		// the comments collection stays authoritative
		r.logger.Warn("task comment list not updated", "task_id", created.TaskID, "error", err)
	}
	return res
}

func (r *CommentRepository) Update(ctx context.Context, c *domain.Comment) resource.Resource[*domain.Comment] {
	if err := r.prepare(c); err != nil {
		return resource.FromError[*domain.Comment](err)
	}
	return r.update(ctx, c)
}

func byCreatedAt(a, b *domain.Comment) bool {
	return a.CreatedAt.Before(b.CreatedAt)
}

func taskCommentsScope(taskID string) (cache.Query[*domain.Comment], remote.Query) {
	scope := cache.Query[*domain.Comment]{Where: cache.Eq("task_id", taskID), Less: byCreatedAt}
	q := remote.NewQuery().Where("task_id", remote.Eq, taskID).OrderBy("created_at", false)
	return scope, q
}

// GetCommentsByTask streams a task's comments, oldest first.
func (r *CommentRepository) GetCommentsByTask(ctx context.Context, taskID string) resource.Stream[[]*domain.Comment] {
	scope, q := taskCommentsScope(taskID)
	return r.cachedList(ctx, scope, q)
}

func (r *CommentRepository) GetCommentsByProject(ctx context.Context, projectID string) resource.Stream[[]*domain.Comment] {
	scope := cache.Query[*domain.Comment]{Where: cache.Eq("project_id", projectID), Less: byCreatedAt}
	q := remote.NewQuery().Where("project_id", remote.Eq, projectID).OrderBy("created_at", false)
	return r.cachedList(ctx, scope, q)
}

func (r *CommentRepository) RefreshTask(ctx context.Context, taskID string) resource.Resource[[]*domain.Comment] {
	scope, q := taskCommentsScope(taskID)
	return r.refresh(ctx, scope, q)
}
