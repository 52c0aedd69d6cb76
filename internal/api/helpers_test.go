package api_test

import (
	"context"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/projectsync/internal/api"
	"github.com/ericfisherdev/projectsync/internal/domain"
	"github.com/ericfisherdev/projectsync/internal/resource"
	"github.com/ericfisherdev/projectsync/internal/services"
	"github.com/ericfisherdev/projectsync/internal/testutil"
)

type server struct {
	stack  *testutil.Stack
	router *gin.Engine
}

func newServer(t *testing.T) *server {
	t.Helper()
	stack := testutil.NewStack(t)

	health := services.NewHealthService("test", "development")
	health.RegisterChecker(services.CacheChecker(stack.DB))
	health.RegisterChecker(services.RemoteStoreChecker(stack.Store, "projects"))

	router := api.NewRouter(api.Dependencies{
		Tasks:         stack.Tasks,
		Projects:      stack.Projects,
		Comments:      stack.Comments,
		Notifications: stack.Notifications,
		Chats:         stack.Chats,
		Users:         stack.Users,
		Files:         stack.Files,
		Auth:          stack.Tokens,
		Health:        health,
		Metrics:       stack.Metrics,
		Gatherer:      stack.Registry,
	})
	return &server{stack: stack, router: router}
}

// as returns a helper that authenticates every request as userID.
func (s *server) as(t *testing.T, userID string) *testutil.HTTPTestHelper {
	t.Helper()
	helper := testutil.NewHTTPTestHelper(t, s.router)
	helper.Token = s.stack.Token(t, userID)
	return helper
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func must[T any](t *testing.T, r resource.Resource[T]) T {
	t.Helper()
	v, ok := r.Data()
	require.True(t, ok, "expected success, got %s", r)
	return v
}

// project creates a project owned by owner with the extra members.
func (s *server) project(t *testing.T, owner string, members ...string) *domain.Project {
	t.Helper()
	ctx := testCtx(t)
	p := must(t, s.stack.Projects.Create(ctx, &domain.Project{Name: "Launch", OwnerID: owner}))
	for _, m := range members {
		p = must(t, s.stack.Projects.AddMemberToProject(ctx, p.ID, domain.ProjectMember{UserID: m}))
	}
	return p
}

func (s *server) task(t *testing.T, projectID, title string) *domain.Task {
	t.Helper()
	return must(t, s.stack.Tasks.Create(testCtx(t), domain.NewTask(title, "", projectID, "alice")))
}
