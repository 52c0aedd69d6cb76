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

// NotificationRepository is cache-through.
type NotificationRepository struct {
	*base[*domain.Notification]
}

func NewNotificationRepository(store remote.Store, db *cache.DB, opts Options) (*NotificationRepository, error) {
	table, err := openTable[*domain.Notification](db, tableNotifications)
	if err != nil {
		return nil, fmt.Errorf("failed to open notification cache: %w", err)
	}
	coll := remote.NewCollection[*domain.Notification](store, collectionNotifications)
	return &NotificationRepository{base: newBase(entityNotification, coll, table, opts)}, nil
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) resource.Resource[*domain.Notification] {
	if err := n.Validate(); err != nil {
		return resource.FromError[*domain.Notification](err)
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.now()
	}
	n.CreatedAt = n.CreatedAt.UTC().Truncate(time.Millisecond)
	return r.create(ctx, n)
}

func (r *NotificationRepository) Update(ctx context.Context, n *domain.Notification) resource.Resource[*domain.Notification] {
	if err := n.Validate(); err != nil {
		return resource.FromError[*domain.Notification](err)
	}
	return r.update(ctx, n)
}

func newestFirst(a, b *domain.Notification) bool {
	return a.CreatedAt.After(b.CreatedAt)
}

func inboxScope(userID string) (cache.Query[*domain.Notification], remote.Query) {
	scope := cache.Query[*domain.Notification]{Where: cache.Eq("user_id", userID), Less: newestFirst}
	q := remote.NewQuery().Where("user_id", remote.Eq, userID).OrderBy("created_at", true)
	return scope, q
}

func unreadScope(userID string) (cache.Query[*domain.Notification], remote.Query) {
	scope := cache.Query[*domain.Notification]{
		Where: cache.And(cache.Eq("user_id", userID), cache.Eq("is_read", false)),
		Less:  newestFirst,
	}
	q := remote.NewQuery().
		Where("user_id", remote.Eq, userID).
		Where("is_read", remote.Eq, false).
		OrderBy("created_at", true)
	return scope, q
}

// GetNotifications streams every notification of the user, newest first.
func (r *NotificationRepository) GetNotifications(ctx context.Context, userID string) resource.Stream[[]*domain.Notification] {
	scope, q := inboxScope(userID)
	return r.cachedList(ctx, scope, q)
}

func (r *NotificationRepository) GetUnreadNotifications(ctx context.Context, userID string) resource.Stream[[]*domain.Notification] {
	scope, q := unreadScope(userID)
	return r.cachedList(ctx, scope, q)
}

func (r *NotificationRepository) GetUnreadNotificationCount(ctx context.Context, userID string) resource.Stream[int] {
	scope, q := unreadScope(userID)
	return r.cachedCount(ctx, scope, q)
}

func (r *NotificationRepository) Refresh(ctx context.Context, userID string) resource.Resource[[]*domain.Notification] {
	scope, q := inboxScope(userID)
	return r.refresh(ctx, scope, q)
}

func (r *NotificationRepository) MarkAsRead(ctx context.Context, id string) resource.Resource[*domain.Notification] {
	return r.patch(ctx, "mark_read", id, remote.Patch{"is_read": true})
}

// MarkAllAsRead flags every unread notification of the user in one batched
// write and reports how many changed.
func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, userID string) resource.Resource[int] {
	_, q := unreadScope(userID)
	unread, err := r.query(ctx, "list_unread", q)
	if err != nil {
		return failure[int](r.entity, err)
	}
	if len(unread) == 0 {
		return resource.Success(0)
	}

	writes := make([]remote.Write, 0, len(unread))
	for _, n := range unread {
		writes = append(writes, remote.UpdateWrite(collectionNotifications, n.ID, remote.Patch{"is_read": true}))
	}
	started := time.Now()
	err = r.coll.Store().Batch(ctx, writes)
	r.observe("mark_all_read", started, err)
	if err != nil {
		return failure[int](r.entity, err)
	}

	for _, n := range unread {
		n.IsRead = true
	}
	r.cachePut(ctx, "mark_all_read", unread...)
	return resource.Success(len(unread))
}

// DeleteAllForUser removes the user's notifications in one batched write.
func (r *NotificationRepository) DeleteAllForUser(ctx context.Context, userID string) resource.Resource[int] {
	_, q := inboxScope(userID)
	all, err := r.query(ctx, "list", q)
	if err != nil {
		return failure[int](r.entity, err)
	}
	if len(all) == 0 {
		return resource.Success(0)
	}

	writes := make([]remote.Write, 0, len(all))
	for _, n := range all {
		writes = append(writes, remote.DeleteWrite(collectionNotifications, n.ID))
	}
	started := time.Now()
	err = r.coll.Store().Batch(ctx, writes)
	r.observe("delete_all", started, err)
	if err != nil {
		return failure[int](r.entity, err)
	}

	for _, n := range all {
		r.cacheDelete(ctx, "delete_all", n.ID)
	}
	return resource.Success(len(all))
}
