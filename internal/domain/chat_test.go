package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/projectsync/internal/domain"
)

func TestMessage_IsReadBy(t *testing.T) {
	m := domain.Message{SenderID: "alice", ReadBy: []string{"bob"}}

	assert.True(t, m.IsReadBy("alice"), "sender has implicitly read")
	assert.True(t, m.IsReadBy("bob"))
	assert.False(t, m.IsReadBy("carol"))
}

func TestChat_Validate(t *testing.T) {
	assert.NoError(t, (&domain.Chat{Type: domain.ChatDirect, Participants: []string{"a", "b"}}).Validate())
	assert.True(t, domain.IsValidation((&domain.Chat{Type: domain.ChatDirect, Participants: []string{"a"}}).Validate()))
	assert.True(t, domain.IsValidation((&domain.Chat{Type: domain.ChatProject, Participants: []string{"a"}}).Validate()))
	assert.True(t, domain.IsValidation((&domain.Chat{Type: "channel", Participants: []string{"a"}}).Validate()))
}

func TestChat_UnreadNeverNegative(t *testing.T) {
	c := domain.Chat{UnreadCount: map[string]int{"a": -2, "b": 3}}

	assert.Equal(t, 0, c.Unread("a"))
	assert.Equal(t, 3, c.Unread("b"))
	assert.Equal(t, 0, c.Unread("missing"))
}

func TestMessage_Validate(t *testing.T) {
	valid := domain.Message{ChatID: "c", SenderID: "a", Type: domain.MessageText, Content: "hi"}
	assert.NoError(t, valid.Validate())

	empty := valid
	empty.Content = "   "
	assert.True(t, domain.IsValidation(empty.Validate()))

	image := valid
	image.Type = domain.MessageImage
	image.Content = ""
	assert.NoError(t, image.Validate())
}
