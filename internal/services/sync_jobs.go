package services

import (
	"context"

	"github.com/ericfisherdev/projectsync/internal/domain"
	"github.com/ericfisherdev/projectsync/internal/resource"
)

// TaskRefresher is the subset of the task repository the refresh jobs use.
type TaskRefresher interface {
	RefreshProject(ctx context.Context, projectID string) resource.Resource[[]*domain.Task]
	RefreshUser(ctx context.Context, userID string) resource.Resource[[]*domain.Task]
	RefreshOverdue(ctx context.Context) resource.Resource[[]*domain.Task]
}

type NotificationRefresher interface {
	Refresh(ctx context.Context, userID string) resource.Resource[[]*domain.Notification]
}

type UserRefresher interface {
	RefreshUsers(ctx context.Context, ids []string) resource.Resource[[]*domain.User]
}

type CounterRecomputer interface {
	RecomputeCounters(ctx context.Context, projectID string) resource.Resource[*domain.Project]
}

func resultErr[T any](r resource.Resource[T]) error {
	if r.IsError() {
		return r.Err()
	}
	return nil
}

// RefreshProjectTasks folds the remote task list of each project into the cache.
func RefreshProjectTasks(tasks TaskRefresher, projectIDs ...string) SyncJob {
	return func(ctx context.Context) error {
		for _, id := range projectIDs {
			if err := resultErr(tasks.RefreshProject(ctx, id)); err != nil {
				return err
			}
		}
		return nil
	}
}

func RefreshUserTasks(tasks TaskRefresher, userIDs ...string) SyncJob {
	return func(ctx context.Context) error {
		for _, id := range userIDs {
			if err := resultErr(tasks.RefreshUser(ctx, id)); err != nil {
				return err
			}
		}
		return nil
	}
}

func RefreshOverdueTasks(tasks TaskRefresher) SyncJob {
	return func(ctx context.Context) error {
		return resultErr(tasks.RefreshOverdue(ctx))
	}
}

func RefreshNotifications(notifications NotificationRefresher, userIDs ...string) SyncJob {
	return func(ctx context.Context) error {
		for _, id := range userIDs {
			if err := resultErr(notifications.Refresh(ctx, id)); err != nil {
				return err
			}
		}
		return nil
	}
}

// RefreshUsers reloads the cached profiles of ids in one query.
func RefreshUsers(users UserRefresher, ids ...string) SyncJob {
	return func(ctx context.Context) error {
		return resultErr(users.RefreshUsers(ctx, ids))
	}
}

// RecomputeProjectCounters re-derives the task counters of each project,
// repairing counters left stale by failed writes.
func RecomputeProjectCounters(projects CounterRecomputer, projectIDs ...string) SyncJob {
	return func(ctx context.Context) error {
		for _, id := range projectIDs {
			if err := resultErr(projects.RecomputeCounters(ctx, id)); err != nil {
				return err
			}
		}
		return nil
	}
}
