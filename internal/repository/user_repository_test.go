package repository_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/projectsync/internal/domain"
	"github.com/ericfisherdev/projectsync/internal/repository"
)

func newUsers(t *testing.T, env *testEnv) *repository.UserRepository {
	t.Helper()
	repo, err := repository.NewUserRepository(env.store, env.db, env.options())
	require.NoError(t, err)
	return repo
}

func profile(id, name string) *domain.User {
	return &domain.User{ID: id, Email: id + "@example.com", DisplayName: name}
}

func TestUserRepository_EnsureProfile(t *testing.T) {
	ctx := testContext(t)
	repo := newUsers(t, newTestEnv(t))

	created := mustData(t, repo.EnsureProfile(ctx, profile("uid-1", "Alice")))
	assert.Equal(t, "uid-1", created.ID)
	assert.Equal(t, []string{}, created.Skills)
	assert.False(t, created.LastActive.IsZero())

	// the second sign-in keeps the stored profile
	again := mustData(t, repo.EnsureProfile(ctx, profile("uid-1", "Renamed")))
	assert.Equal(t, "Alice", again.DisplayName)
	assert.False(t, again.LastActive.Before(created.LastActive))

	res := repo.EnsureProfile(ctx, &domain.User{Email: "x@example.com", DisplayName: "X"})
	assert.True(t, domain.IsValidation(res.Err()))
}

func TestUserRepository_GetUsersByIDs(t *testing.T) {
	ctx := testContext(t)
	repo := newUsers(t, newTestEnv(t))

	mustData(t, repo.Create(ctx, profile("b", "Bob")))
	mustData(t, repo.Create(ctx, profile("a", "Alice")))
	mustData(t, repo.Create(ctx, profile("c", "Carol")))

	users := until(t, ctx, repo.GetUsersByIDs(ctx, []string{"b", "a", "ghost"}), func(us []*domain.User) bool { return len(us) == 2 })
	assert.Equal(t, "Alice", users[0].DisplayName)
	assert.Equal(t, "Bob", users[1].DisplayName)

	assert.Empty(t, settled(t, ctx, repo.GetUsersByIDs(ctx, nil)))
}

func TestUserRepository_SearchUsers(t *testing.T) {
	ctx := testContext(t)
	repo := newUsers(t, newTestEnv(t))

	for _, u := range []*domain.User{profile("1", "Alan"), profile("2", "Bob"), profile("3", "Alice")} {
		mustData(t, repo.Create(ctx, u))
	}

	found := until(t, ctx, repo.SearchUsers(ctx, "Al"), func(us []*domain.User) bool { return len(us) == 2 })
	assert.Equal(t, "Alan", found[0].DisplayName)
	assert.Equal(t, "Alice", found[1].DisplayName)
}

func TestUserRepository_SearchKeepsRowsOutsideRemoteRange(t *testing.T) {
	ctx := testContext(t)
	env := newTestEnv(t)
	repo := newUsers(t, env)

	mustData(t, repo.Create(ctx, profile("e", "Ann😀")))
	mustData(t, repo.Create(ctx, profile("i", "Annie")))

	// a profile written by another process proves the search refreshed
	other := newTestEnv(t)
	other.store = env.store
	mustData(t, newUsers(t, other).Create(ctx, profile("a", "Anna")))

	found := until(t, ctx, repo.SearchUsers(ctx, "Ann"), func(us []*domain.User) bool { return len(us) == 2 })
	assert.Equal(t, "Anna", found[0].DisplayName)
	assert.Equal(t, "Annie", found[1].DisplayName)

	env.store.FailWith(assert.AnError)
	cached := settled(t, ctx, repo.GetUsersByIDs(ctx, []string{"e"}))
	require.Len(t, cached, 1)
	assert.Equal(t, "Ann😀", cached[0].DisplayName)
}

func TestUserRepository_Validation(t *testing.T) {
	ctx := testContext(t)
	repo := newUsers(t, newTestEnv(t))

	tests := []struct {
		name string
		user *domain.User
	}{
		{"empty email", &domain.User{ID: "u", DisplayName: "U"}},
		{"malformed email", &domain.User{ID: "u", Email: "nope", DisplayName: "U"}},
		{"empty name", &domain.User{ID: "u", Email: "u@example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := repo.Create(ctx, tt.user)
			if !domain.IsValidation(res.Err()) {
				t.Errorf("Create() error = %v, want validation error", res.Err())
			}
		})
	}
}
