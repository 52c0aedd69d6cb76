package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/projectsync/internal/domain"
)

func TestProject_Normalize(t *testing.T) {
	p := &domain.Project{Name: "Apollo", OwnerID: "u1", CreatedAt: time.Now()}
	p.Normalize()

	assert.Equal(t, domain.ProjectNotStarted, p.Status)
	assert.Equal(t, domain.PriorityMedium, p.Priority)
	require.Len(t, p.Members, 1)
	assert.Equal(t, domain.RoleOwner, p.Members[0].Role)
	assert.Equal(t, []string{"u1"}, p.MemberIDs)

	p.Normalize()
	assert.Len(t, p.Members, 1, "normalize must not duplicate the owner")
}

func TestProject_Members(t *testing.T) {
	p := &domain.Project{Name: "Apollo"}

	assert.True(t, p.AddMember(domain.ProjectMember{UserID: "u1", Role: domain.RoleMember}))
	assert.False(t, p.AddMember(domain.ProjectMember{UserID: "u1", Role: domain.RoleAdmin}))
	assert.True(t, p.AddMember(domain.ProjectMember{UserID: "u2", Role: domain.RoleViewer}))
	assert.Equal(t, []string{"u1", "u2"}, p.MemberIDs)

	assert.True(t, p.RemoveMember("u1"))
	assert.False(t, p.RemoveMember("u1"))
	assert.Equal(t, []string{"u2"}, p.MemberIDs)
	assert.False(t, p.IsMember("u1"))
}

func TestProject_Validate(t *testing.T) {
	tests := []struct {
		name    string
		project domain.Project
		code    string
	}{
		{
			name:    "valid",
			project: domain.Project{Name: "Apollo", Status: domain.ProjectInProgress, Priority: domain.PriorityHigh},
		},
		{
			name:    "blank name",
			project: domain.Project{Name: "  ", Status: domain.ProjectInProgress, Priority: domain.PriorityHigh},
			code:    "INVALID_NAME",
		},
		{
			name:    "unknown status",
			project: domain.Project{Name: "Apollo", Status: "paused", Priority: domain.PriorityHigh},
			code:    "INVALID_STATUS",
		},
		{
			name: "member without role",
			project: domain.Project{
				Name: "Apollo", Status: domain.ProjectInProgress, Priority: domain.PriorityLow,
				Members: []domain.ProjectMember{{UserID: "u1"}},
			},
			code: "INVALID_MEMBER",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.project.Validate()
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			var domainErr *domain.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, tt.code, domainErr.Code)
		})
	}
}

func TestProject_Progress(t *testing.T) {
	assert.Zero(t, (&domain.Project{}).Progress())
	assert.InDelta(t, 0.5, (&domain.Project{TotalTasks: 4, CompletedTasks: 2}).Progress(), 1e-9)
	assert.InDelta(t, 1.0, (&domain.Project{TotalTasks: 1, CompletedTasks: 3}).Progress(), 1e-9)
}
