package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/projectsync/internal/cache"
	"github.com/ericfisherdev/projectsync/internal/domain"
	"github.com/ericfisherdev/projectsync/internal/remote"
	"github.com/ericfisherdev/projectsync/internal/resource"
)

// UserRepository is cache-through. Profile ids are the identity subject,
// so they are always caller-assigned.
type UserRepository struct {
	*base[*domain.User]
}

func NewUserRepository(store remote.Store, db *cache.DB, opts Options) (*UserRepository, error) {
	table, err := openTable[*domain.User](db, tableUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to open user cache: %w", err)
	}
	coll := remote.NewCollection[*domain.User](store, collectionUsers)
	return &UserRepository{base: newBase(entityUser, coll, table, opts)}, nil
}

func (r *UserRepository) prepare(u *domain.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	now := r.now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.LastActive.IsZero() {
		u.LastActive = now
	}
	u.LastActive = u.LastActive.UTC().Truncate(time.Millisecond)
	u.UpdatedAt = now
	if u.Skills == nil {
		u.Skills = []string{}
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) resource.Resource[*domain.User] {
	if err := r.prepare(u); err != nil {
		return resource.FromError[*domain.User](err)
	}
	return r.create(ctx, u)
}

func (r *UserRepository) Update(ctx context.Context, u *domain.User) resource.Resource[*domain.User] {
	if err := r.prepare(u); err != nil {
		return resource.FromError[*domain.User](err)
	}
	return r.update(ctx, u)
}

func byDisplayName(a, b *domain.User) bool {
	return a.DisplayName < b.DisplayName
}

func usersScope(ids []string) (cache.Query[*domain.User], remote.Query) {
	scope := cache.Query[*domain.User]{Where: cache.In(ids...), Less: byDisplayName}
	q := remote.NewQuery().Where("id", remote.In, ids).OrderBy("display_name", false)
	return scope, q
}

// GetUsersByIDs streams the profiles for ids. Ids without a profile are
// left out of the result.
func (r *UserRepository) GetUsersByIDs(ctx context.Context, ids []string) resource.Stream[[]*domain.User] {
	if len(ids) == 0 {
		return resource.Once(resource.Success([]*domain.User{}))
	}
	scope, q := usersScope(ids)
	return r.cachedList(ctx, scope, q)
}

// SearchUsers streams profiles whose display name starts with prefix. The
// cache scope uses the remote range test so a refresh never drops rows the
// remote query did not select.
func (r *UserRepository) SearchUsers(ctx context.Context, prefix string) resource.Stream[[]*domain.User] {
	scope := cache.Query[*domain.User]{
		Match: func(u *domain.User) bool { return remote.InPrefixRange(u.DisplayName, prefix) },
		Less:  byDisplayName,
	}
	q := remote.NewQuery().WherePrefix("display_name", prefix).OrderBy("display_name", false)
	return r.cachedList(ctx, scope, q)
}

func (r *UserRepository) RefreshUsers(ctx context.Context, ids []string) resource.Resource[[]*domain.User] {
	if len(ids) == 0 {
		return resource.Success([]*domain.User{})
	}
	scope, q := usersScope(ids)
	return r.refresh(ctx, scope, q)
}

func (r *UserRepository) UpdateLastActive(ctx context.Context, userID string) resource.Resource[*domain.User] {
	now := r.now()
	return r.patch(ctx, "update_last_active", userID, remote.Patch{
		"last_active": now,
		"updated_at":  now,
	})
}

// EnsureProfile returns the stored profile for u.ID, creating it from u on
// first sign-in. An existing profile only has its activity time refreshed.
func (r *UserRepository) EnsureProfile(ctx context.Context, u *domain.User) resource.Resource[*domain.User] {
	if u.ID == "" {
		return invalidID[*domain.User](r.entity)
	}
	got := r.Get(ctx, u.ID)
	if got.IsSuccess() {
		return r.UpdateLastActive(ctx, u.ID)
	}
	if !domain.IsNotFound(got.Err()) {
		return got
	}
	res := r.Create(ctx, u)
	if res.IsError() && domain.ErrorTypeOf(res.Err()) == domain.ConflictError {
		// created concurrently by another sign-in
		return r.Get(ctx, u.ID)
	}
	return res
}
