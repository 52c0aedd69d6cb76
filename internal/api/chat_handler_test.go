package api_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/projectsync/internal/domain"
)

func createChat(t *testing.T, s *server, creator string, participants ...string) domain.Chat {
	t.Helper()
	helper := s.as(t, creator)
	w := helper.POST("/api/chats", map[string]interface{}{
		"type":         "group",
		"name":         "team",
		"participants": participants,
	}, nil)
	helper.AssertStatus(w, http.StatusCreated)
	var chat domain.Chat
	helper.Decode(w, &chat)
	return chat
}

func TestChatHandler_ReadReceipts(t *testing.T) {
	s := newServer(t)
	chat := createChat(t, s, "alice", "bob")
	assert.Equal(t, []string{"alice", "bob"}, chat.Participants)

	alice := s.as(t, "alice")
	bob := s.as(t, "bob")
	messages := "/api/chats/" + chat.ID + "/messages"

	var first domain.Message
	w := alice.POST(messages, map[string]string{"content": "one"}, nil)
	alice.AssertStatus(w, http.StatusCreated)
	alice.Decode(w, &first)
	assert.Equal(t, "alice", first.SenderID)
	alice.AssertStatus(alice.POST(messages, map[string]string{"content": "two"}, nil), http.StatusCreated)

	var count struct {
		Count int `json:"count"`
	}
	bob.Decode(bob.GET("/api/chats/"+chat.ID+"/unread-count", nil), &count)
	assert.Equal(t, 2, count.Count)

	read := fmt.Sprintf("/api/chats/%s/messages/%s/read", chat.ID, first.ID)
	for i := 0; i < 2; i++ {
		var msg domain.Message
		w = bob.PUT(read, nil, nil)
		bob.AssertStatus(w, http.StatusOK)
		bob.Decode(w, &msg)
		assert.Equal(t, []string{"bob"}, msg.ReadBy)
	}

	bob.Decode(bob.GET("/api/chats/"+chat.ID+"/unread-count", nil), &count)
	assert.Equal(t, 1, count.Count)

	var got domain.Chat
	bob.Decode(bob.GET("/api/chats/"+chat.ID, nil), &got)
	assert.Equal(t, 1, got.Unread("bob"))
	assert.Equal(t, 0, got.Unread("alice"))

	var list []domain.Message
	bob.Decode(bob.GET(messages, nil), &list)
	require.Len(t, list, 2)
	assert.Equal(t, "one", list[0].Content)
}

func TestChatHandler_OutsidersSeeNothing(t *testing.T) {
	s := newServer(t)
	chat := createChat(t, s, "alice", "bob")
	mallory := s.as(t, "mallory")
	base := "/api/chats/" + chat.ID

	mallory.AssertStatus(mallory.GET(base, nil), http.StatusNotFound)
	mallory.AssertStatus(mallory.GET(base+"/messages", nil), http.StatusNotFound)
	mallory.AssertStatus(mallory.DELETE(base, nil), http.StatusNotFound)
	// the repository rejects non-participant senders
	mallory.AssertStatus(mallory.POST(base+"/messages", map[string]string{"content": "hi"}, nil), http.StatusBadRequest)

	var chats []domain.Chat
	mallory.Decode(mallory.GET("/api/chats", nil), &chats)
	assert.Empty(t, chats)
}

func TestChatHandler_ProjectChatNeedsMembership(t *testing.T) {
	s := newServer(t)
	project := s.project(t, "alice")
	body := map[string]interface{}{"type": "project", "project_id": project.ID}

	bob := s.as(t, "bob")
	bob.AssertStatus(bob.POST("/api/chats", body, nil), http.StatusNotFound)

	alice := s.as(t, "alice")
	alice.AssertStatus(alice.POST("/api/chats", body, nil), http.StatusCreated)
	alice.AssertStatus(alice.POST("/api/chats", map[string]interface{}{"type": "project"}, nil), http.StatusBadRequest)
}

func TestChatHandler_DeleteMessagesAndChat(t *testing.T) {
	s := newServer(t)
	chat := createChat(t, s, "alice", "bob")
	alice := s.as(t, "alice")
	base := "/api/chats/" + chat.ID

	alice.POST(base+"/messages", map[string]string{"content": "one"}, nil)
	alice.POST(base+"/messages", map[string]string{"content": "two"}, nil)

	var deleted struct {
		Deleted int `json:"deleted"`
	}
	alice.Decode(alice.DELETE(base+"/messages", nil), &deleted)
	assert.Equal(t, 2, deleted.Deleted)

	alice.AssertStatus(alice.DELETE(base, nil), http.StatusNoContent)
	alice.AssertStatus(alice.GET(base, nil), http.StatusNotFound)
}
