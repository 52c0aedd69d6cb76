package api_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/projectsync/internal/domain"
)

func TestUserHandler_Profile(t *testing.T) {
	s := newServer(t)
	alice := s.as(t, "alice")

	var me domain.User
	w := alice.GET("/api/me", nil)
	alice.AssertStatus(w, http.StatusOK)
	alice.Decode(w, &me)
	assert.Equal(t, "alice", me.ID)
	assert.Equal(t, "alice@example.com", me.Email)

	name := "Alice Liddell"
	w = alice.PUT("/api/me", map[string]interface{}{"display_name": name, "skills": []string{"go"}}, nil)
	alice.AssertStatus(w, http.StatusOK)
	alice.Decode(w, &me)
	assert.Equal(t, name, me.DisplayName)

	// a later sign-in keeps the edited profile
	alice.Decode(alice.GET("/api/me", nil), &me)
	assert.Equal(t, name, me.DisplayName)
	assert.True(t, me.HasSkill("Go"))
}

func TestUserHandler_ListUsers(t *testing.T) {
	s := newServer(t)
	for _, id := range []string{"alice", "bob"} {
		s.as(t, id).GET("/api/me", nil)
	}
	alice := s.as(t, "alice")

	var users []domain.User
	alice.Decode(alice.GET("/api/users?ids=alice,bob,ghost", nil), &users)
	require.Len(t, users, 2)

	alice.Decode(alice.GET("/api/users?q=bo", nil), &users)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].ID)

	alice.Decode(alice.GET("/api/users", nil), &users)
	assert.Empty(t, users)

	ids := make([]string, 101)
	for i := range ids {
		ids[i] = "u"
	}
	alice.AssertStatus(alice.GET("/api/users?ids="+strings.Join(ids, ","), nil), http.StatusBadRequest)
}
