package repository

import (
	"context"
	"time"

	"github.com/ericfisherdev/projectsync/internal/domain"
	"github.com/ericfisherdev/projectsync/internal/remote"
	"github.com/ericfisherdev/projectsync/internal/resource"
)

// ChatRepository serves chats and their messages by direct subscription.
//
// Unread counts are derived: the number of messages in the chat that the
// user did not send and has no read receipt for. Chat.UnreadCount is a
// denormalized copy written from a fresh count, never decremented in place.
type ChatRepository struct {
	*base[*domain.Chat]
	messages *base[*domain.Message]
}

func NewChatRepository(store remote.Store, opts Options) *ChatRepository {
	chats := remote.NewCollection[*domain.Chat](store, collectionChats)
	messages := remote.NewCollection[*domain.Message](store, collectionMessages)
	return &ChatRepository{
		base:     newBase(entityChat, chats, nil, opts),
		messages: newBase(entityMessage, messages, nil, opts),
	}
}

func (r *ChatRepository) prepare(c *domain.Chat) error {
	if err := c.Validate(); err != nil {
		return err
	}
	now := r.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.UnreadCount == nil {
		c.UnreadCount = make(map[string]int, len(c.Participants))
	}
	for _, p := range c.Participants {
		if _, ok := c.UnreadCount[p]; !ok {
			c.UnreadCount[p] = 0
		}
	}
	return nil
}

func (r *ChatRepository) CreateChat(ctx context.Context, c *domain.Chat) resource.Resource[*domain.Chat] {
	if err := r.prepare(c); err != nil {
		return resource.FromError[*domain.Chat](err)
	}
	return r.create(ctx, c)
}

func (r *ChatRepository) Update(ctx context.Context, c *domain.Chat) resource.Resource[*domain.Chat] {
	if err := r.prepare(c); err != nil {
		return resource.FromError[*domain.Chat](err)
	}
	return r.update(ctx, c)
}

func (r *ChatRepository) GetChat(ctx context.Context, chatID string) resource.Resource[*domain.Chat] {
	return r.Get(ctx, chatID)
}

func (r *ChatRepository) GetChatStream(ctx context.Context, chatID string) resource.Stream[*domain.Chat] {
	return r.GetStream(ctx, chatID)
}

// GetChatsForUser streams the user's chats, most recently active first.
func (r *ChatRepository) GetChatsForUser(ctx context.Context, userID string) resource.Stream[[]*domain.Chat] {
	q := remote.NewQuery().Where("participants", remote.Contains, userID).OrderBy("updated_at", true)
	return r.watchList(ctx, q)
}

// GetMessages streams the chat's messages, oldest first.
func (r *ChatRepository) GetMessages(ctx context.Context, chatID string) resource.Stream[[]*domain.Message] {
	q := remote.NewQuery().Where("chat_id", remote.Eq, chatID).OrderBy("sent_at", false)
	return r.messages.watchList(ctx, q)
}

func unreadQuery(chatID, userID string) remote.Query {
	return remote.NewQuery().
		Where("chat_id", remote.Eq, chatID).
		Where("sender_id", remote.Neq, userID).
		Where("read_by", remote.NotContains, userID)
}

// UnreadCount streams the derived unread count of the chat for the user.
func (r *ChatRepository) UnreadCount(ctx context.Context, chatID, userID string) resource.Stream[int] {
	return r.messages.watchCount(ctx, unreadQuery(chatID, userID))
}

func (r *ChatRepository) countUnread(ctx context.Context, chatID, userID string) (int, error) {
	started := time.Now()
	n, err := r.messages.coll.Count(ctx, unreadQuery(chatID, userID))
	r.messages.observe("count_unread", started, err)
	if n < 0 {
		n = 0
	}
	return n, err
}

// SendMessage stores the message, then refreshes the chat's preview and
// the unread counts of every other participant.
func (r *ChatRepository) SendMessage(ctx context.Context, m *domain.Message) resource.Resource[*domain.Message] {
	if err := m.Validate(); err != nil {
		return resource.FromError[*domain.Message](err)
	}
	got := r.Get(ctx, m.ChatID)
	chat, ok := got.Data()
	if !ok {
		return resource.Error[*domain.Message](got.Message(), got.Err())
	}
	if !chat.HasParticipant(m.SenderID) {
		return resource.FromError[*domain.Message](domain.NewValidationError("NOT_A_PARTICIPANT", "Sender is not a participant of this chat", map[string]interface{}{
			"field": "sender_id",
			"value": m.SenderID,
		}))
	}

	if m.SentAt.IsZero() {
		m.SentAt = r.now()
	}
	m.SentAt = m.SentAt.UTC().Truncate(time.Millisecond)
	m.Status = domain.MessageSent
	m.ReadBy = []string{}
	res := r.messages.create(ctx, m)
	sent, ok := res.Data()
	if !ok {
		return res
	}

	patch := remote.Patch{
		"last_message": domain.MessagePreview{
			MessageID: sent.ID,
			SenderID:  sent.SenderID,
			Content:   sent.Content,
			Type:      sent.Type,
			SentAt:    sent.SentAt,
		},
		"updated_at": r.now(),
	}
	for _, p := range chat.Participants {
		if p == sent.SenderID {
			continue
		}
		n, err := r.countUnread(ctx, chat.ID, p)
		if err != nil {
			r.logger.Warn("unread count not refreshed", "chat_id", chat.ID, "user_id", p, "error", err)
			continue
		}
		patch["unread_count."+p] = n
	}
	if pr := r.patch(ctx, "send_message", chat.ID, patch); pr.IsError() {
		r.logger.Warn("chat summary not refreshed", "chat_id", chat.ID, "error", pr.Message())
	}
	return res
}

// MarkMessageAsRead records a read receipt for the user. Repeating the call
// changes nothing. The chat's unread count for the user is then rewritten
// from a fresh count, so it drops by at most one per message and never
// goes below zero.
func (r *ChatRepository) MarkMessageAsRead(ctx context.Context, messageID, chatID, userID string) resource.Resource[*domain.Message] {
	if userID == "" {
		return resource.FromError[*domain.Message](domain.NewValidationError("INVALID_USER", "User is required", map[string]interface{}{
			"field": "user_id",
		}))
	}
	got := r.messages.Get(ctx, messageID)
	msg, ok := got.Data()
	if !ok {
		return got
	}
	if msg.ChatID != chatID {
		return resource.FromError[*domain.Message](domain.NewValidationError("CHAT_MISMATCH", "Message does not belong to this chat", map[string]interface{}{
			"field": "chat_id",
			"value": chatID,
		}))
	}
	if msg.IsReadBy(userID) {
		return got
	}

	res := r.messages.patch(ctx, "mark_read", messageID, remote.Patch{
		"read_by": remote.ArrayUnion(userID),
		"status":  domain.MessageRead,
	})
	if res.IsError() {
		return res
	}

	n, err := r.countUnread(ctx, chatID, userID)
	if err != nil {
		r.logger.Warn("unread count not refreshed", "chat_id", chatID, "user_id", userID, "error", err)
		return res
	}
	if pr := r.patch(ctx, "mark_read", chatID, remote.Patch{"unread_count." + userID: n}); pr.IsError() {
		r.logger.Warn("unread count not stored", "chat_id", chatID, "user_id", userID, "error", pr.Message())
	}
	return res
}

func (r *ChatRepository) chatMessages(ctx context.Context, chatID string) ([]*domain.Message, error) {
	return r.messages.query(ctx, "list", remote.NewQuery().Where("chat_id", remote.Eq, chatID))
}

// DeleteAllMessages clears the chat's history and resets its summary in a
// single batched write.
func (r *ChatRepository) DeleteAllMessages(ctx context.Context, chatID string) resource.Resource[int] {
	msgs, err := r.chatMessages(ctx, chatID)
	if err != nil {
		return failure[int](entityMessage, err)
	}
	writes := make([]remote.Write, 0, len(msgs)+1)
	for _, m := range msgs {
		writes = append(writes, remote.DeleteWrite(collectionMessages, m.ID))
	}
	writes = append(writes, remote.UpdateWrite(collectionChats, chatID, remote.Patch{
		"last_message": nil,
		"unread_count": map[string]int{},
		"updated_at":   r.now(),
	}))

	started := time.Now()
	err = r.coll.Store().Batch(ctx, writes)
	r.messages.observe("delete_all", started, err)
	if err != nil {
		return failure[int](entityChat, err)
	}
	return resource.Success(len(msgs))
}

// DeleteChat removes the chat together with all of its messages.
func (r *ChatRepository) DeleteChat(ctx context.Context, chatID string) resource.Resource[bool] {
	if chatID == "" {
		return invalidID[bool](r.entity)
	}
	msgs, err := r.chatMessages(ctx, chatID)
	if err != nil {
		return failure[bool](entityMessage, err)
	}
	writes := make([]remote.Write, 0, len(msgs)+1)
	for _, m := range msgs {
		writes = append(writes, remote.DeleteWrite(collectionMessages, m.ID))
	}
	writes = append(writes, remote.DeleteWrite(collectionChats, chatID))

	started := time.Now()
	err = r.coll.Store().Batch(ctx, writes)
	r.observe("delete", started, err)
	if err != nil {
		return failure[bool](r.entity, err)
	}
	return resource.Success(true)
}
