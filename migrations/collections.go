// Package migrations defines the PocketBase collections backing the remote store.
package migrations

import (
	"fmt"

	"github.com/pocketbase/pocketbase/core"
)

// Collection names as stored in PocketBase. Profiles live in user_profiles
// because PocketBase reserves users for its own auth collection.
const (
	Users          = "user_profiles"
	Projects       = "projects"
	Tasks          = "tasks"
	Comments       = "comments"
	Files          = "files"
	Notifications  = "notifications"
	Chats          = "chats"
	Messages       = "messages"
	Templates      = "templates"
	ProjectMembers = "project_members"
)

func text(name string, limit int) *core.TextField {
	return &core.TextField{Name: name, Max: limit}
}

func date(name string) *core.DateField {
	return &core.DateField{Name: name}
}

func jsonField(name string) *core.JSONField {
	return &core.JSONField{Name: name}
}

func newCollection(name string, fields ...core.Field) *core.Collection {
	c := core.NewBaseCollection(name)

	// Caller-assigned ids (identity subjects, uuids) must be accepted.
	if idField, ok := c.Fields.GetByName("id").(*core.TextField); ok {
		idField.Pattern = `^[a-zA-Z0-9_-]+$`
		idField.Min = 1
		idField.Max = 64
	}

	c.Fields.Add(fields...)
	return c
}

// Definitions returns fresh definitions of every collection.
func Definitions() []*core.Collection {
	return []*core.Collection{
		newCollection(Users,
			text("email", 320),
			text("display_name", 200),
			text("photo_url", 2048),
			jsonField("skills"),
			date("last_active"),
			date("created_at"),
			date("updated_at"),
		),
		newCollection(Projects,
			text("name", 200),
			text("description", 10000),
			text("status", 32),
			text("priority", 32),
			text("owner_id", 64),
			jsonField("members"),
			jsonField("member_ids"),
			date("deadline"),
			&core.NumberField{Name: "total_tasks", OnlyInt: true},
			&core.NumberField{Name: "completed_tasks", OnlyInt: true},
			date("created_at"),
			date("updated_at"),
		),
		newCollection(Tasks,
			text("project_id", 64),
			text("title", 200),
			text("description", 10000),
			text("status", 32),
			text("priority", 32),
			jsonField("assigned_to"),
			text("created_by", 64),
			date("due_date"),
			&core.BoolField{Name: "is_completed"},
			date("completed_at"),
			jsonField("comments"),
			jsonField("attachments"),
			jsonField("checklists"),
			date("created_at"),
			date("updated_at"),
		),
		newCollection(Comments,
			text("task_id", 64),
			text("project_id", 64),
			text("user_id", 64),
			text("author_name", 200),
			text("content", 10000),
			jsonField("attachment_ids"),
			date("created_at"),
			date("updated_at"),
		),
		newCollection(Files,
			text("name", 255),
			text("path", 1024),
			text("url", 2048),
			text("content_type", 255),
			&core.NumberField{Name: "size", OnlyInt: true},
			text("task_id", 64),
			text("project_id", 64),
			text("uploaded_by", 64),
			date("uploaded_at"),
		),
		newCollection(Notifications,
			text("user_id", 64),
			text("type", 32),
			text("title", 200),
			text("body", 2000),
			text("reference_id", 64),
			&core.BoolField{Name: "is_read"},
			date("created_at"),
		),
		newCollection(Chats,
			text("type", 32),
			text("name", 200),
			text("project_id", 64),
			jsonField("participants"),
			jsonField("last_message"),
			jsonField("unread_count"),
			date("created_at"),
			date("updated_at"),
		),
		newCollection(Messages,
			text("chat_id", 64),
			text("sender_id", 64),
			text("content", 10000),
			text("type", 32),
			text("status", 32),
			jsonField("read_by"),
			text("attachment_url", 2048),
			date("sent_at"),
		),
		newCollection(Templates,
			text("name", 200),
			text("description", 10000),
			jsonField("tasks"),
			text("created_by", 64),
			date("created_at"),
		),
		newCollection(ProjectMembers,
			text("project_id", 64),
			text("user_id", 64),
			text("role", 32),
			date("joined_at"),
		),
	}
}

// EnsureCollections creates missing collections and adds missing fields to
// existing ones. It is safe to run repeatedly.
func EnsureCollections(app core.App) error {
	for _, def := range Definitions() {
		existing, err := app.FindCollectionByNameOrId(def.Name)
		if err != nil {
			if err := app.Save(def); err != nil {
				return fmt.Errorf("failed to create collection %s: %w", def.Name, err)
			}
			continue
		}

		changed := false
		for _, f := range def.Fields {
			if existing.Fields.GetByName(f.GetName()) == nil {
				existing.Fields.Add(f)
				changed = true
			}
		}
		if changed {
			if err := app.Save(existing); err != nil {
				return fmt.Errorf("failed to update collection %s: %w", def.Name, err)
			}
		}
	}
	return nil
}

// DropCollections deletes every collection defined here.
func DropCollections(app core.App) error {
	defs := Definitions()
	for i := len(defs) - 1; i >= 0; i-- {
		existing, err := app.FindCollectionByNameOrId(defs[i].Name)
		if err != nil {
			continue
		}
		if err := app.Delete(existing); err != nil {
			return fmt.Errorf("failed to delete collection %s: %w", defs[i].Name, err)
		}
	}
	return nil
}
