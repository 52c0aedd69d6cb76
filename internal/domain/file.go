package domain

import (
	"path"
	"time"
)

// MaxAttachmentSize caps uploads at 25 MiB.
const MaxAttachmentSize = 25 << 20

// FileAttachment is the metadata document for a stored blob.
type FileAttachment struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	TaskID      string    `json:"task_id"`
	ProjectID   string    `json:"project_id"`
	UploadedBy  string    `json:"uploaded_by"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

func (f *FileAttachment) GetID() string { return f.ID }

func (f *FileAttachment) SetID(id string) { f.ID = id }

// Extension returns the extension of the file name, including the dot.
func (f *FileAttachment) Extension() string {
	return path.Ext(f.Name)
}

func (f *FileAttachment) Validate() error {
	if f.Name == "" {
		return NewValidationError("INVALID_FILE_NAME", "File name is required", map[string]interface{}{
			"field": "name",
		})
	}
	if f.Size < 0 || f.Size > MaxAttachmentSize {
		return NewValidationError("INVALID_FILE_SIZE", "File size is out of range", map[string]interface{}{
			"field":    "size",
			"value":    f.Size,
			"max_size": MaxAttachmentSize,
		})
	}
	if f.TaskID == "" && f.ProjectID == "" {
		return NewValidationError("INVALID_PARENT", "File must reference a task or a project", map[string]interface{}{
			"field": "task_id",
		})
	}
	return nil
}
