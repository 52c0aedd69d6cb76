package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/projectsync/internal/domain"
	"github.com/ericfisherdev/projectsync/internal/remote"
	"github.com/ericfisherdev/projectsync/internal/resource"
)

// ProjectRepository serves live project views straight from the remote
// store.
type ProjectRepository struct {
	*base[*domain.Project]
	tasks *remote.Collection[*domain.Task]
}

func NewProjectRepository(store remote.Store, opts Options) *ProjectRepository {
	coll := remote.NewCollection[*domain.Project](store, collectionProjects)
	return &ProjectRepository{
		base:  newBase(entityProject, coll, nil, opts),
		tasks: remote.NewCollection[*domain.Task](store, collectionTasks),
	}
}

func (r *ProjectRepository) prepare(p *domain.Project) error {
	now := r.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	p.Deadline = truncate(p.Deadline)
	p.Normalize()
	return p.Validate()
}

// Create stores a new project. The owner becomes its first member.
func (r *ProjectRepository) Create(ctx context.Context, p *domain.Project) resource.Resource[*domain.Project] {
	if err := r.prepare(p); err != nil {
		return resource.FromError[*domain.Project](err)
	}
	return r.create(ctx, p)
}

func (r *ProjectRepository) Update(ctx context.Context, p *domain.Project) resource.Resource[*domain.Project] {
	if err := r.prepare(p); err != nil {
		return resource.FromError[*domain.Project](err)
	}
	return r.update(ctx, p)
}

func membersQuery(userID string) remote.Query {
	return remote.NewQuery().Where("member_ids", remote.Contains, userID)
}

// GetProjectsByUser streams the user's projects, most recently updated first.
func (r *ProjectRepository) GetProjectsByUser(ctx context.Context, userID string) resource.Stream[[]*domain.Project] {
	return r.watchList(ctx, membersQuery(userID).OrderBy("updated_at", true))
}

// SearchProjects streams the user's projects whose name starts with prefix.
func (r *ProjectRepository) SearchProjects(ctx context.Context, userID, prefix string) resource.Stream[[]*domain.Project] {
	q := membersQuery(userID).WherePrefix("name", prefix).OrderBy("name", false)
	return r.watchList(ctx, q)
}

// AddMemberToProject adds a member unless the user already is one. The
// membership check and the write are not atomic; member_ids stays a set
// because it is written with ArrayUnion.
func (r *ProjectRepository) AddMemberToProject(ctx context.Context, projectID string, member domain.ProjectMember) resource.Resource[*domain.Project] {
	if member.Role == "" {
		member.Role = domain.RoleMember
	}
	if member.UserID == "" || !member.Role.IsValid() {
		return resource.FromError[*domain.Project](domain.NewValidationError("INVALID_MEMBER", "Project members need a user id and a valid role", map[string]interface{}{
			"field": "members",
			"value": member.UserID,
		}))
	}

	got := r.Get(ctx, projectID)
	project, ok := got.Data()
	if !ok {
		return got
	}
	if project.IsMember(member.UserID) {
		return got
	}

	now := r.now()
	if member.JoinedAt.IsZero() {
		member.JoinedAt = now
	}
	return r.patch(ctx, "add_member", projectID, remote.Patch{
		"members":    remote.ArrayUnion(member),
		"member_ids": remote.ArrayUnion(member.UserID),
		"updated_at": now,
	})
}

// RemoveMemberFromProject removes a member. The owner cannot be removed.
func (r *ProjectRepository) RemoveMemberFromProject(ctx context.Context, projectID, userID string) resource.Resource[*domain.Project] {
	got := r.Get(ctx, projectID)
	project, ok := got.Data()
	if !ok {
		return got
	}
	if project.OwnerID == userID {
		return resource.FromError[*domain.Project](domain.NewValidationError("OWNER_REMOVAL", "The project owner cannot be removed", map[string]interface{}{
			"field": "user_id",
			"value": userID,
		}))
	}
	if !project.RemoveMember(userID) {
		return got
	}
	return r.patch(ctx, "remove_member", projectID, remote.Patch{
		"members":    project.Members,
		"member_ids": remote.ArrayRemove(userID),
		"updated_at": r.now(),
	})
}

func (r *ProjectRepository) UpdateProjectStatus(ctx context.Context, projectID string, status domain.ProjectStatus) resource.Resource[*domain.Project] {
	if !status.IsValid() {
		return resource.FromError[*domain.Project](domain.NewValidationError("INVALID_STATUS", fmt.Sprintf("Invalid project status: %s", status), map[string]interface{}{
			"field": "status",
			"value": status,
		}))
	}
	return r.patch(ctx, "update_status", projectID, remote.Patch{
		"status":     status,
		"updated_at": r.now(),
	})
}

// RecomputeCounters counts the project's tasks and stores total_tasks and
// completed_tasks. Counters are always derived from a fresh count, so
// concurrent callers converge on the same values.
func (r *ProjectRepository) RecomputeCounters(ctx context.Context, projectID string) resource.Resource[*domain.Project] {
	if projectID == "" {
		return invalidID[*domain.Project](r.entity)
	}
	started := time.Now()
	byProject := remote.NewQuery().Where("project_id", remote.Eq, projectID)
	total, err := r.tasks.Count(ctx, byProject)
	var completed int
	if err == nil {
		completed, err = r.tasks.Count(ctx, byProject.Where("is_completed", remote.Eq, true))
	}
	r.observe("count_tasks", started, err)
	if err != nil {
		return failure[*domain.Project](entityTask, err)
	}
	return r.patch(ctx, "recompute_counters", projectID, remote.Patch{
		"total_tasks":     total,
		"completed_tasks": completed,
	})
}
