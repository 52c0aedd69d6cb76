package domain

import (
	"strings"
	"time"
)

type ChatType string

const (
	ChatDirect  ChatType = "direct"
	ChatGroup   ChatType = "group"
	ChatProject ChatType = "project"
)

func (t ChatType) IsValid() bool {
	return t == ChatDirect || t == ChatGroup || t == ChatProject
}

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageImage  MessageType = "image"
	MessageFile   MessageType = "file"
	MessageSystem MessageType = "system"
)

func (t MessageType) IsValid() bool {
	switch t {
	case MessageText, MessageImage, MessageFile, MessageSystem:
		return true
	default:
		return false
	}
}

// MessageStatus is a whole-message field. In group chats "read" means read
// by at least one participant other than the sender; ReadBy holds the
// per-user truth.
type MessageStatus string

const (
	MessageSending MessageStatus = "sending"
	MessageSent    MessageStatus = "sent"
	MessageRead    MessageStatus = "read"
)

// MessagePreview is the denormalized last message shown in chat lists.
type MessagePreview struct {
	MessageID string      `json:"message_id"`
	SenderID  string      `json:"sender_id"`
	Content   string      `json:"content"`
	Type      MessageType `json:"type"`
	SentAt    time.Time   `json:"sent_at"`
}

// Chat groups participants and caches per-user unread counts. UnreadCount is
// written only by the read-receipt and send paths, always from a fresh count.
type Chat struct {
	ID           string          `json:"id"`
	Type         ChatType        `json:"type"`
	Name         string          `json:"name"`
	ProjectID    string          `json:"project_id"`
	Participants []string        `json:"participants"`
	LastMessage  *MessagePreview `json:"last_message"`
	UnreadCount  map[string]int  `json:"unread_count"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (c *Chat) GetID() string { return c.ID }

func (c *Chat) SetID(id string) { c.ID = id }

func (c *Chat) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Unread returns the cached unread count for a user, never below zero.
func (c *Chat) Unread(userID string) int {
	if n := c.UnreadCount[userID]; n > 0 {
		return n
	}
	return 0
}

func (c *Chat) Validate() error {
	if !c.Type.IsValid() {
		return NewValidationError("INVALID_CHAT_TYPE", "Invalid chat type", map[string]interface{}{
			"field": "type",
			"value": c.Type,
		})
	}
	if len(c.Participants) == 0 {
		return NewValidationError("NO_PARTICIPANTS", "Chat needs at least one participant", map[string]interface{}{
			"field": "participants",
		})
	}
	if c.Type == ChatDirect && len(c.Participants) != 2 {
		return NewValidationError("INVALID_PARTICIPANTS", "Direct chats have exactly two participants", map[string]interface{}{
			"field": "participants",
			"value": len(c.Participants),
		})
	}
	if c.Type == ChatProject && c.ProjectID == "" {
		return NewValidationError("INVALID_PROJECT", "Project chats must reference a project", map[string]interface{}{
			"field": "project_id",
		})
	}
	return nil
}

type Message struct {
	ID            string        `json:"id"`
	ChatID        string        `json:"chat_id"`
	SenderID      string        `json:"sender_id"`
	Content       string        `json:"content"`
	Type          MessageType   `json:"type"`
	Status        MessageStatus `json:"status"`
	ReadBy        []string      `json:"read_by"`
	AttachmentURL string        `json:"attachment_url"`
	SentAt        time.Time     `json:"sent_at"`
}

func (m *Message) GetID() string { return m.ID }

func (m *Message) SetID(id string) { m.ID = id }

// IsReadBy reports whether the user has a read receipt. Senders implicitly
// have read their own messages.
func (m *Message) IsReadBy(userID string) bool {
	if m.SenderID == userID {
		return true
	}
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

func (m *Message) Validate() error {
	if m.ChatID == "" {
		return NewValidationError("INVALID_CHAT", "Message must belong to a chat", map[string]interface{}{
			"field": "chat_id",
		})
	}
	if m.SenderID == "" {
		return NewValidationError("INVALID_SENDER", "Message sender is required", map[string]interface{}{
			"field": "sender_id",
		})
	}
	if !m.Type.IsValid() {
		return NewValidationError("INVALID_MESSAGE_TYPE", "Invalid message type", map[string]interface{}{
			"field": "type",
			"value": m.Type,
		})
	}
	if m.Type == MessageText && strings.TrimSpace(m.Content) == "" {
		return NewValidationError("EMPTY_MESSAGE", "Message content is required", map[string]interface{}{
			"field": "content",
		})
	}
	return nil
}
