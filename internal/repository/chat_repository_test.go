package repository_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/projectsync/internal/domain"
	"github.com/ericfisherdev/projectsync/internal/repository"
)

func newChat(t *testing.T, ctx context.Context, repo *repository.ChatRepository, participants ...string) *domain.Chat {
	t.Helper()
	return mustData(t, repo.CreateChat(ctx, &domain.Chat{Type: domain.ChatGroup, Name: "team", Participants: participants}))
}

func send(t *testing.T, ctx context.Context, repo *repository.ChatRepository, chatID, sender, text string) *domain.Message {
	t.Helper()
	return mustData(t, repo.SendMessage(ctx, &domain.Message{ChatID: chatID, SenderID: sender, Content: text, Type: domain.MessageText}))
}

func TestChatRepository_SendMessageUpdatesSummary(t *testing.T) {
	ctx := testContext(t)
	repo := repository.NewChatRepository(newTestEnv(t).store, repository.Options{})
	chat := newChat(t, ctx, repo, "alice", "bob", "carol")
	assert.Equal(t, map[string]int{"alice": 0, "bob": 0, "carol": 0}, chat.UnreadCount)

	send(t, ctx, repo, chat.ID, "alice", "hello")
	last := send(t, ctx, repo, chat.ID, "alice", "anyone?")
	assert.Equal(t, domain.MessageSent, last.Status)

	got := mustData(t, repo.GetChat(ctx, chat.ID))
	require.NotNil(t, got.LastMessage)
	assert.Equal(t, last.ID, got.LastMessage.MessageID)
	assert.Equal(t, 0, got.Unread("alice"))
	assert.Equal(t, 2, got.Unread("bob"))
	assert.Equal(t, 2, got.Unread("carol"))

	messages := until(t, ctx, repo.GetMessages(ctx, chat.ID), func(ms []*domain.Message) bool { return len(ms) == 2 })
	assert.Equal(t, "hello", messages[0].Content)
	assert.Equal(t, "anyone?", messages[1].Content)
}

func TestChatRepository_SendMessageRejectsOutsiders(t *testing.T) {
	ctx := testContext(t)
	repo := repository.NewChatRepository(newTestEnv(t).store, repository.Options{})
	chat := newChat(t, ctx, repo, "alice", "bob")

	res := repo.SendMessage(ctx, &domain.Message{ChatID: chat.ID, SenderID: "mallory", Content: "hi", Type: domain.MessageText})
	assert.True(t, domain.IsValidation(res.Err()))

	res = repo.SendMessage(ctx, &domain.Message{ChatID: "missing", SenderID: "alice", Content: "hi", Type: domain.MessageText})
	assert.Equal(t, "Chat not found", res.Message())
}

func TestChatRepository_MarkMessageAsReadIsIdempotent(t *testing.T) {
	ctx := testContext(t)
	repo := repository.NewChatRepository(newTestEnv(t).store, repository.Options{})
	chat := newChat(t, ctx, repo, "alice", "bob")

	m1 := send(t, ctx, repo, chat.ID, "alice", "one")
	send(t, ctx, repo, chat.ID, "alice", "two")

	unread := repo.UnreadCount(ctx, chat.ID, "bob")
	until(t, ctx, unread, func(n int) bool { return n == 2 })

	for i := 0; i < 3; i++ {
		read := mustData(t, repo.MarkMessageAsRead(ctx, m1.ID, chat.ID, "bob"))
		assert.Equal(t, []string{"bob"}, read.ReadBy)
		assert.Equal(t, domain.MessageRead, read.Status)
	}

	until(t, ctx, unread, func(n int) bool { return n == 1 })
	got := mustData(t, repo.GetChat(ctx, chat.ID))
	assert.Equal(t, 1, got.Unread("bob"))

	// senders never owe themselves a receipt
	own := mustData(t, repo.MarkMessageAsRead(ctx, m1.ID, chat.ID, "alice"))
	assert.Equal(t, []string{"bob"}, own.ReadBy)

	res := repo.MarkMessageAsRead(ctx, m1.ID, "other-chat", "bob")
	assert.True(t, domain.IsValidation(res.Err()))
}

func TestChatRepository_UnreadCountNeverNegative(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("concurrent receipts drop the unread count by at most one per message", prop.ForAll(
		func(messages, callers int) bool {
			ctx := context.Background()
			repo := repository.NewChatRepository(newTestEnv(t).store, repository.Options{})
			chat := mustData(t, repo.CreateChat(ctx, &domain.Chat{Type: domain.ChatDirect, Participants: []string{"alice", "bob"}}))

			ids := make([]string, messages)
			for i := range ids {
				ids[i] = send(t, ctx, repo, chat.ID, "alice", fmt.Sprintf("m%d", i)).ID
			}

			target := ids[0]
			var wg sync.WaitGroup
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					repo.MarkMessageAsRead(ctx, target, chat.ID, "bob")
				}()
			}
			wg.Wait()

			got, ok := repo.GetChat(ctx, chat.ID).Data()
			if !ok {
				return false
			}
			stored := got.UnreadCount["bob"]
			return stored == messages-1 && stored >= 0
		},
		gen.IntRange(1, 5),
		gen.IntRange(1, 8),
	))

	properties.TestingRun(t)
}

func TestChatRepository_GetChatsForUser(t *testing.T) {
	ctx := testContext(t)
	repo := repository.NewChatRepository(newTestEnv(t).store, repository.Options{})

	first := newChat(t, ctx, repo, "alice", "bob")
	second := newChat(t, ctx, repo, "alice", "carol")
	newChat(t, ctx, repo, "bob", "carol")

	stream := repo.GetChatsForUser(ctx, "alice")
	chats := until(t, ctx, stream, func(cs []*domain.Chat) bool { return len(cs) == 2 })
	ids := []string{chats[0].ID, chats[1].ID}
	assert.ElementsMatch(t, []string{first.ID, second.ID}, ids)

	time.Sleep(5 * time.Millisecond)
	send(t, ctx, repo, first.ID, "bob", "bump")
	chats = until(t, ctx, stream, func(cs []*domain.Chat) bool { return len(cs) == 2 && cs[0].ID == first.ID })
	assert.NotNil(t, chats[0].LastMessage)
}

func TestChatRepository_DeleteAllMessagesAndChat(t *testing.T) {
	ctx := testContext(t)
	env := newTestEnv(t)
	repo := repository.NewChatRepository(env.store, repository.Options{})
	chat := newChat(t, ctx, repo, "alice", "bob")
	send(t, ctx, repo, chat.ID, "alice", "one")
	send(t, ctx, repo, chat.ID, "alice", "two")

	chatStream := repo.GetChatStream(ctx, chat.ID)
	settled(t, ctx, chatStream)

	assert.Equal(t, 2, mustData(t, repo.DeleteAllMessages(ctx, chat.ID)))
	cleared := until(t, ctx, chatStream, func(c *domain.Chat) bool { return c.LastMessage == nil })
	assert.Equal(t, 0, cleared.Unread("bob"))
	assert.Empty(t, settled(t, ctx, repo.GetMessages(ctx, chat.ID)))

	send(t, ctx, repo, chat.ID, "bob", "again")
	assert.True(t, mustData(t, repo.DeleteChat(ctx, chat.ID)))
	assert.Equal(t, "Chat not found", untilError(t, ctx, chatStream))

	n, err := env.store.Count(ctx, "messages", remoteAll())
	require.NoError(t, err)
	assert.Zero(t, n)
}
