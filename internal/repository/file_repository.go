package repository

import (
	"context"
	"io"

	"github.com/ericfisherdev/projectsync/internal/blob"
	"github.com/ericfisherdev/projectsync/internal/domain"
	"github.com/ericfisherdev/projectsync/internal/remote"
	"github.com/ericfisherdev/projectsync/internal/resource"
)

// FileRepository stores attachment metadata in the files collection and
// the bytes in a blob.Store. Task attachment lists are kept in step.
type FileRepository struct {
	*base[*domain.FileAttachment]
	blobs blob.Store
	tasks *remote.Collection[*domain.Task]
}

func NewFileRepository(store remote.Store, blobs blob.Store, opts Options) *FileRepository {
	coll := remote.NewCollection[*domain.FileAttachment](store, collectionFiles)
	return &FileRepository{
		base:  newBase(entityFile, coll, nil, opts),
		blobs: blobs,
		tasks: remote.NewCollection[*domain.Task](store, collectionTasks),
	}
}

func blobKey(meta *domain.FileAttachment) (scope, owner string) {
	if meta.TaskID != "" {
		return "tasks", meta.TaskID
	}
	return "projects", meta.ProjectID
}

// Upload writes the blob, then the metadata document. If the document
// cannot be stored the blob is removed again.
func (r *FileRepository) Upload(ctx context.Context, meta *domain.FileAttachment, body io.Reader) resource.Resource[*domain.FileAttachment] {
	if err := meta.Validate(); err != nil {
		return resource.FromError[*domain.FileAttachment](err)
	}
	now := r.now()
	scope, owner := blobKey(meta)
	key, err := blob.NewKey(scope, owner, meta.Name, now)
	if err != nil {
		return resource.FromError[*domain.FileAttachment](domain.NewValidationError("INVALID_FILE", err.Error(), nil))
	}

	url, err := r.blobs.Put(ctx, key, body, meta.ContentType)
	if err != nil {
		r.logger.Error("blob upload failed", "key", key, "error", err)
		return failure[*domain.FileAttachment](r.entity, err)
	}
	meta.Path = key
	meta.URL = url
	meta.UploadedAt = now

	res := r.create(ctx, meta)
	created, ok := res.Data()
	if !ok {
		if err := r.blobs.Delete(ctx, key); err != nil {
			r.logger.Warn("orphaned blob not removed", "key", key, "error", err)
		}
		return res
	}

	if created.TaskID != "" {
		err := r.tasks.Update(ctx, created.TaskID, remote.Patch{"attachments": remote.ArrayUnion(created)})
		if err != nil {
			r.logger.Warn("task attachment list not updated", "task_id", created.TaskID, "error", err)
		}
	}
	return res
}

// Delete removes the metadata document, detaches it from its task and then
// deletes the blob. A failed blob delete is logged only.
func (r *FileRepository) Delete(ctx context.Context, id string) resource.Resource[bool] {
	got := r.Get(ctx, id)
	meta, ok := got.Data()
	if !ok {
		if domain.IsNotFound(got.Err()) {
			return resource.Success(true)
		}
		return resource.Error[bool](got.Message(), got.Err())
	}

	res := r.base.Delete(ctx, id)
	if res.IsError() {
		return res
	}

	if meta.TaskID != "" {
		r.detach(ctx, meta.TaskID, id)
	}
	if err := r.blobs.Delete(ctx, meta.Path); err != nil {
		r.logger.Warn("blob not removed", "key", meta.Path, "error", err)
	}
	return res
}

func (r *FileRepository) detach(ctx context.Context, taskID, fileID string) {
	task, err := r.tasks.Get(ctx, taskID)
	if err != nil {
		if !IsNotFound(err) {
			r.logger.Warn("task attachment list not updated", "task_id", taskID, "error", err)
		}
		return
	}
	kept := make([]domain.FileAttachment, 0, len(task.Attachments))
	for _, a := range task.Attachments {
		if a.ID != fileID {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(task.Attachments) {
		return
	}
	if err := r.tasks.Update(ctx, taskID, remote.Patch{"attachments": kept}); err != nil {
		r.logger.Warn("task attachment list not updated", "task_id", taskID, "error", err)
	}
}

// GetFilesByTask streams a task's attachments in upload order.
func (r *FileRepository) GetFilesByTask(ctx context.Context, taskID string) resource.Stream[[]*domain.FileAttachment] {
	q := remote.NewQuery().Where("task_id", remote.Eq, taskID).OrderBy("uploaded_at", false)
	return r.watchList(ctx, q)
}

func (r *FileRepository) GetFilesByProject(ctx context.Context, projectID string) resource.Stream[[]*domain.FileAttachment] {
	q := remote.NewQuery().Where("project_id", remote.Eq, projectID).OrderBy("uploaded_at", false)
	return r.watchList(ctx, q)
}
