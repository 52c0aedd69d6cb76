package migrations

import (
	"log/slog"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

type queryIndex struct {
	collection string
	name       string
	columns    string
	where      string
}

// queryIndexes back the filters issued by the repositories.
var queryIndexes = []queryIndex{
	{collection: Tasks, name: "idx_tasks_project_due", columns: "project_id, due_date"},
	{collection: Tasks, name: "idx_tasks_overdue", columns: "is_completed, due_date", where: "due_date != ''"},
	{collection: Projects, name: "idx_projects_updated", columns: "updated_at"},
	{collection: Projects, name: "idx_projects_name", columns: "name"},
	{collection: Comments, name: "idx_comments_task_created", columns: "task_id, created_at"},
	{collection: Notifications, name: "idx_notifications_user_read", columns: "user_id, is_read"},
	{collection: Messages, name: "idx_messages_chat_sent", columns: "chat_id, sent_at"},
	{collection: Files, name: "idx_files_task", columns: "task_id"},
	{collection: Users, name: "idx_user_profiles_display_name", columns: "display_name"},
}

func init() {
	m.Register(func(app core.App) error {
		for _, idx := range queryIndexes {
			c, err := app.FindCollectionByNameOrId(idx.collection)
			if err != nil {
				return err
			}
			c.AddIndex(idx.name, false, idx.columns, idx.where)
			if err := app.Save(c); err != nil {
				return err
			}
			slog.Info("Created query index", "collection", idx.collection, "index", idx.name)
		}
		return nil
	}, func(app core.App) error {
		for _, idx := range queryIndexes {
			c, err := app.FindCollectionByNameOrId(idx.collection)
			if err != nil {
				continue
			}
			c.RemoveIndex(idx.name)
			if err := app.Save(c); err != nil {
				return err
			}
		}
		return nil
	}, "1760000100_add_query_indexes.go")
}
