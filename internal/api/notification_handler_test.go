package api_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/projectsync/internal/domain"
)

func (s *server) notify(t *testing.T, userID, title string, at time.Time) *domain.Notification {
	t.Helper()
	return must(t, s.stack.Notifications.Create(testCtx(t), &domain.Notification{
		UserID:    userID,
		Type:      domain.NotificationTaskAssigned,
		Title:     title,
		CreatedAt: at,
	}))
}

func TestNotificationHandler_ReadAll(t *testing.T) {
	s := newServer(t)
	now := time.Now().UTC()
	s.notify(t, "alice", "N1", now.Add(-time.Minute))
	s.notify(t, "alice", "N2", now)
	s.notify(t, "bob", "N3", now)
	alice := s.as(t, "alice")

	var list []domain.Notification
	alice.Decode(alice.GET("/api/notifications?unread=true", nil), &list)
	require.Len(t, list, 2)
	assert.Equal(t, "N2", list[0].Title)

	var count struct {
		Count int `json:"count"`
	}
	alice.Decode(alice.GET("/api/notifications/unread-count", nil), &count)
	assert.Equal(t, 2, count.Count)

	var marked struct {
		Marked int `json:"marked"`
	}
	alice.Decode(alice.PUT("/api/notifications/read-all", nil, nil), &marked)
	assert.Equal(t, 2, marked.Marked)
	alice.Decode(alice.PUT("/api/notifications/read-all", nil, nil), &marked)
	assert.Equal(t, 0, marked.Marked)

	alice.Decode(alice.GET("/api/notifications", nil), &list)
	assert.Len(t, list, 2)

	bob := s.as(t, "bob")
	bob.Decode(bob.GET("/api/notifications/unread-count", nil), &count)
	assert.Equal(t, 1, count.Count)
}

func TestNotificationHandler_MarkAsReadChecksOwner(t *testing.T) {
	s := newServer(t)
	n := s.notify(t, "alice", "ping", time.Now())
	url := "/api/notifications/" + n.ID + "/read"

	bob := s.as(t, "bob")
	bob.AssertStatus(bob.PUT(url, nil, nil), http.StatusNotFound)

	alice := s.as(t, "alice")
	var got domain.Notification
	w := alice.PUT(url, nil, nil)
	alice.AssertStatus(w, http.StatusOK)
	alice.Decode(w, &got)
	assert.True(t, got.IsRead)

	alice.AssertStatus(alice.PUT("/api/notifications/missing/read", nil, nil), http.StatusNotFound)
}

func TestNotificationHandler_DeleteAll(t *testing.T) {
	s := newServer(t)
	s.notify(t, "alice", "a", time.Now())
	s.notify(t, "alice", "b", time.Now())
	alice := s.as(t, "alice")

	var deleted struct {
		Deleted int `json:"deleted"`
	}
	alice.Decode(alice.DELETE("/api/notifications", nil), &deleted)
	assert.Equal(t, 2, deleted.Deleted)

	var list []domain.Notification
	alice.Decode(alice.GET("/api/notifications", nil), &list)
	assert.Empty(t, list)
}
