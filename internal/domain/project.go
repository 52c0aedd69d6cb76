package domain

import (
	"strings"
	"time"
)

// ProjectStatus represents the status of a project.
type ProjectStatus string

const (
	// ProjectNotStarted represents a project whose work has not begun.
	ProjectNotStarted ProjectStatus = "not-started"
	// ProjectInProgress represents an active project.
	ProjectInProgress ProjectStatus = "in-progress"
	// ProjectOnHold represents a paused project.
	ProjectOnHold ProjectStatus = "on-hold"
	// ProjectCompleted represents a finished project.
	ProjectCompleted ProjectStatus = "completed"
	// ProjectCancelled represents an abandoned project.
	ProjectCancelled ProjectStatus = "cancelled"
	// ProjectArchived represents an archived project.
	ProjectArchived ProjectStatus = "archived"
)

// IsValid checks if the project status is valid.
func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectNotStarted, ProjectInProgress, ProjectOnHold, ProjectCompleted, ProjectCancelled, ProjectArchived:
		return true
	default:
		return false
	}
}

// MemberRole is the role a user holds inside a project.
type MemberRole string

const (
	// RoleOwner can manage members and delete the project.
	RoleOwner MemberRole = "owner"
	// RoleAdmin can edit the project and its tasks.
	RoleAdmin MemberRole = "admin"
	// RoleMember can work on tasks.
	RoleMember MemberRole = "member"
	// RoleViewer has read-only access.
	RoleViewer MemberRole = "viewer"
)

// IsValid checks if the member role is valid.
func (r MemberRole) IsValid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember, RoleViewer:
		return true
	default:
		return false
	}
}

// ProjectMember is one entry of a project's ordered member list.
type ProjectMember struct {
	UserID   string     `json:"user_id"`
	Role     MemberRole `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`
}

// Project represents a project and its denormalized task counters.
//
// MemberIDs mirrors Members so that stores can answer "projects for user"
// with a plain array-contains filter.
type Project struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Status         ProjectStatus   `json:"status"`
	Priority       Priority        `json:"priority"`
	OwnerID        string          `json:"owner_id"`
	Members        []ProjectMember `json:"members"`
	MemberIDs      []string        `json:"member_ids"`
	Deadline       *time.Time      `json:"deadline"`
	TotalTasks     int             `json:"total_tasks"`
	CompletedTasks int             `json:"completed_tasks"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// GetID returns the project id.
func (p *Project) GetID() string { return p.ID }

// SetID assigns the project id.
func (p *Project) SetID(id string) { p.ID = id }

// IsMember returns true if the given user is a member of the project.
func (p *Project) IsMember(userID string) bool {
	for _, m := range p.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// AddMember appends a member if the user is not already one.
func (p *Project) AddMember(member ProjectMember) bool {
	if p.IsMember(member.UserID) {
		return false
	}
	p.Members = append(p.Members, member)
	p.syncMemberIDs()
	return true
}

// RemoveMember removes a member from the project.
func (p *Project) RemoveMember(userID string) bool {
	for i, m := range p.Members {
		if m.UserID == userID {
			p.Members = append(p.Members[:i], p.Members[i+1:]...)
			p.syncMemberIDs()
			return true
		}
	}
	return false
}

func (p *Project) syncMemberIDs() {
	ids := make([]string, 0, len(p.Members))
	for _, m := range p.Members {
		ids = append(ids, m.UserID)
	}
	p.MemberIDs = ids
}

// Progress returns the completed share of tasks in [0, 1].
func (p *Project) Progress() float64 {
	if p.TotalTasks <= 0 {
		return 0
	}
	ratio := float64(p.CompletedTasks) / float64(p.TotalTasks)
	if ratio > 1 {
		return 1
	}
	return ratio
}

// Normalize fills defaults and keeps MemberIDs in step with Members.
func (p *Project) Normalize() {
	if p.Status == "" {
		p.Status = ProjectNotStarted
	}
	if p.Priority == "" {
		p.Priority = PriorityMedium
	}
	if p.OwnerID != "" && !p.IsMember(p.OwnerID) {
		p.Members = append([]ProjectMember{{UserID: p.OwnerID, Role: RoleOwner, JoinedAt: p.CreatedAt}}, p.Members...)
	}
	p.syncMemberIDs()
}

// Validate validates the project data.
func (p *Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return NewValidationError("INVALID_NAME", "Project name is required", map[string]interface{}{
			"field": "name",
		})
	}

	if len(p.Name) > 200 {
		return NewValidationError("NAME_TOO_LONG", "Project name cannot exceed 200 characters", map[string]interface{}{
			"field":      "name",
			"max_length": 200,
		})
	}

	if !p.Status.IsValid() {
		return NewValidationError("INVALID_STATUS", "Invalid project status", map[string]interface{}{
			"field": "status",
			"value": p.Status,
		})
	}

	if !p.Priority.IsValid() {
		return NewValidationError("INVALID_PRIORITY", "Invalid project priority", map[string]interface{}{
			"field": "priority",
			"value": p.Priority,
		})
	}

	for _, m := range p.Members {
		if m.UserID == "" || !m.Role.IsValid() {
			return NewValidationError("INVALID_MEMBER", "Project members need a user id and a valid role", map[string]interface{}{
				"field": "members",
				"value": m.UserID,
			})
		}
	}

	return nil
}
