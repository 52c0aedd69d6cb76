//go:build integration
// +build integration

package repository_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/projectsync/internal/domain"
	"github.com/ericfisherdev/projectsync/internal/remote"
	"github.com/ericfisherdev/projectsync/internal/repository"
	"github.com/ericfisherdev/projectsync/internal/testutil/integration"
)

// newPocketBaseEnv is a testEnv whose remote store is a real PocketBase app.
func newPocketBaseEnv(t *testing.T) (*testEnv, *remote.PocketBaseStore) {
	t.Helper()
	env := newTestEnv(t)
	store := remote.NewPocketBaseStore(integration.NewTestDatabase(t).App(), nil, nil)
	t.Cleanup(store.Close)
	return env, store
}

func TestRepositories_PocketBase(t *testing.T) {
	env, store := newPocketBaseEnv(t)
	opts := env.options()

	projects := repository.NewProjectRepository(store, opts)
	tasksRepo, err := repository.NewTaskRepository(store, env.db, opts)
	require.NoError(t, err)
	tasks := tasksRepo.WithCounters(projects)
	chats := repository.NewChatRepository(store, opts)

	t.Run("Task_OverdueAndCounters", func(t *testing.T) {
		ctx := testContext(t)
		project := mustData(t, projects.Create(ctx, &domain.Project{Name: "Launch", OwnerID: "u1"}))

		late := domain.NewTask("late", "", project.ID, "u1")
		late.DueDate = yesterday()
		created := mustData(t, tasks.Create(ctx, late))

		overdue := until(t, ctx, tasks.GetOverdueTasks(ctx), func(ts []*domain.Task) bool { return len(ts) == 1 })
		assert.Equal(t, created.ID, overdue[0].ID)

		mustData(t, tasks.ToggleTaskCompletion(ctx, created.ID, true))
		until(t, ctx, tasks.GetOverdueTasks(ctx), func(ts []*domain.Task) bool { return len(ts) == 0 })

		got := mustData(t, projects.Get(ctx, project.ID))
		assert.Equal(t, 1, got.TotalTasks)
		assert.Equal(t, 1, got.CompletedTasks)
	})

	t.Run("Project_MembersAreASet", func(t *testing.T) {
		ctx := testContext(t)
		project := mustData(t, projects.Create(ctx, &domain.Project{Name: "Members", OwnerID: "u1"}))

		mustData(t, projects.AddMemberToProject(ctx, project.ID, domain.ProjectMember{UserID: "u2"}))
		again := mustData(t, projects.AddMemberToProject(ctx, project.ID, domain.ProjectMember{UserID: "u2"}))
		assert.ElementsMatch(t, []string{"u1", "u2"}, again.MemberIDs)

		mine := until(t, ctx, projects.GetProjectsByUser(ctx, "u2"), func(ps []*domain.Project) bool { return len(ps) == 1 })
		assert.Equal(t, project.ID, mine[0].ID)
	})

	t.Run("Chat_ReadReceipts", func(t *testing.T) {
		ctx := testContext(t)
		chat := mustData(t, chats.CreateChat(ctx, &domain.Chat{Type: domain.ChatDirect, Participants: []string{"alice", "bob"}}))
		msg := mustData(t, chats.SendMessage(ctx, &domain.Message{ChatID: chat.ID, SenderID: "alice", Content: "hi", Type: domain.MessageText}))

		unread := chats.UnreadCount(ctx, chat.ID, "bob")
		until(t, ctx, unread, func(n int) bool { return n == 1 })

		read := mustData(t, chats.MarkMessageAsRead(ctx, msg.ID, chat.ID, "bob"))
		assert.Equal(t, domain.MessageRead, read.Status)
		mustData(t, chats.MarkMessageAsRead(ctx, msg.ID, chat.ID, "bob"))

		until(t, ctx, unread, func(n int) bool { return n == 0 })
		assert.Equal(t, 0, mustData(t, chats.GetChat(ctx, chat.ID)).Unread("bob"))
	})
}
