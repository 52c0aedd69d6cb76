package testutil

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ericfisherdev/projectsync/internal/auth"
	"github.com/ericfisherdev/projectsync/internal/blob"
	"github.com/ericfisherdev/projectsync/internal/cache"
	"github.com/ericfisherdev/projectsync/internal/metrics"
	"github.com/ericfisherdev/projectsync/internal/remote"
	"github.com/ericfisherdev/projectsync/internal/repository"
)

// TestSecret is a JWT secret long enough for auth.NewTokenProvider.
const TestSecret = "test-secret-key-that-is-at-least-32-characters-long"

// Stack is a complete in-memory data layer: a memory remote store, an
// in-memory SQLite cache, a memory blob store and every repository.
type Stack struct {
	Store    *remote.MemoryStore
	DB       *cache.DB
	Blobs    *blob.MemoryStore
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
	Tokens   *auth.TokenProvider

	Tasks         *repository.TaskRepository
	Projects      *repository.ProjectRepository
	Notifications *repository.NotificationRepository
	Chats         *repository.ChatRepository
	Comments      *repository.CommentRepository
	Users         *repository.UserRepository
	Files         *repository.FileRepository
}

// NewStack builds a Stack whose resources are released when the test ends.
func NewStack(t *testing.T) *Stack {
	t.Helper()

	db, err := cache.Open(cache.MemoryPath, nil)
	if err != nil {
		t.Fatalf("Failed to open cache: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	tokens, err := auth.NewTokenProvider(TestSecret, time.Hour)
	if err != nil {
		t.Fatalf("Failed to create token provider: %v", err)
	}

	reg := prometheus.NewRegistry()
	s := &Stack{
		Store:    remote.NewMemoryStore(nil, nil),
		DB:       db,
		Blobs:    blob.NewMemoryStore("https://files.test"),
		Metrics:  metrics.NewWithRegistry(reg),
		Registry: reg,
		Tokens:   tokens,
	}
	opts := repository.Options{Metrics: s.Metrics}

	s.Projects = repository.NewProjectRepository(s.Store, opts)
	s.Chats = repository.NewChatRepository(s.Store, opts)
	s.Files = repository.NewFileRepository(s.Store, s.Blobs, opts)

	tasks, err := repository.NewTaskRepository(s.Store, db, opts)
	if err != nil {
		t.Fatalf("Failed to create task repository: %v", err)
	}
	s.Tasks = tasks.WithCounters(s.Projects)

	if s.Notifications, err = repository.NewNotificationRepository(s.Store, db, opts); err != nil {
		t.Fatalf("Failed to create notification repository: %v", err)
	}
	if s.Comments, err = repository.NewCommentRepository(s.Store, db, opts); err != nil {
		t.Fatalf("Failed to create comment repository: %v", err)
	}
	if s.Users, err = repository.NewUserRepository(s.Store, db, opts); err != nil {
		t.Fatalf("Failed to create user repository: %v", err)
	}
	return s
}

// Token issues a token for a user with a derived email address.
func (s *Stack) Token(t *testing.T, userID string) string {
	t.Helper()
	token, err := s.Tokens.Issue(auth.Identity{UserID: userID, Email: userID + "@example.com", DisplayName: userID})
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	return token
}
