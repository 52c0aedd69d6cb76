package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/projectsync/internal/domain"
)

type frame struct {
	State string          `json:"state"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func dial(t *testing.T, srv *httptest.Server, query string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?" + query
	return websocket.DefaultDialer.Dial(url, nil)
}

// readUntil reads frames until pred accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, pred func(frame) bool) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var f frame
		require.NoError(t, conn.ReadJSON(&f))
		if pred(f) {
			return f
		}
	}
}

func TestStreamHandler_ForwardsEmissions(t *testing.T) {
	s := newServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	conn, _, err := dial(t, srv, "topic=notifications.unread.count&access_token="+s.stack.Token(t, "alice"))
	require.NoError(t, err)

	first := readUntil(t, conn, func(f frame) bool { return f.State == "success" })
	assert.JSONEq(t, "0", string(first.Data))

	s.notify(t, "alice", "hello", time.Now())
	readUntil(t, conn, func(f frame) bool { return f.State == "success" && string(f.Data) == "1" })

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		return s.stack.Store.Hub().ListenerCount("notifications") == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStreamHandler_ErrorFrameOnDelete(t *testing.T) {
	s := newServer(t)
	project := s.project(t, "alice")
	task := s.task(t, project.ID, "watched")
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	conn, _, err := dial(t, srv, "topic=task&id="+task.ID+"&access_token="+s.stack.Token(t, "alice"))
	require.NoError(t, err)
	defer conn.Close()

	got := readUntil(t, conn, func(f frame) bool { return f.State == "success" })
	var decoded domain.Task
	require.NoError(t, json.Unmarshal(got.Data, &decoded))
	assert.Equal(t, "watched", decoded.Title)

	must(t, s.stack.Tasks.Delete(testCtx(t), task.ID))
	failed := readUntil(t, conn, func(f frame) bool { return f.State == "error" })
	assert.Equal(t, "Task not found", failed.Error)
}

func TestStreamHandler_Rejections(t *testing.T) {
	s := newServer(t)
	chat := createChat(t, s, "alice", "bob")
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"no token", "topic=chats", http.StatusUnauthorized},
		{"unknown topic", "topic=everything&access_token=" + s.stack.Token(t, "alice"), http.StatusBadRequest},
		{"not a participant", "topic=chat.messages&id=" + chat.ID + "&access_token=" + s.stack.Token(t, "mallory"), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, resp, err := dial(t, srv, tt.query)
			if conn != nil {
				conn.Close()
			}
			if err == nil {
				t.Fatalf("expected handshake failure")
			}
			if resp == nil || resp.StatusCode != tt.status {
				t.Errorf("status = %v, want %d", resp, tt.status)
			}
		})
	}
}
