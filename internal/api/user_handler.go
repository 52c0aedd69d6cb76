package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ericfisherdev/projectsync/internal/domain"
	"github.com/ericfisherdev/projectsync/internal/repository"
	"github.com/ericfisherdev/projectsync/internal/resource"
)

// maxUserIDs caps the ids accepted by GET /api/users.
const maxUserIDs = 100

// UserHandler handles user profile requests.
type UserHandler struct {
	users *repository.UserRepository
}

func NewUserHandler(users *repository.UserRepository) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/me", h.GetProfile)
	router.PUT("/me", h.UpdateProfile)
	router.GET("/users", h.ListUsers)
}

// UpdateProfileRequest holds the profile fields a user may change.
type UpdateProfileRequest struct {
	DisplayName *string  `json:"display_name"`
	PhotoURL    *string  `json:"photo_url"`
	Skills      []string `json:"skills"`
}

// GetProfile handles GET /api/me. The first call creates the profile from
// the token's identity.
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	render(c, http.StatusOK, h.users.EnsureProfile(c.Request.Context(), user.Profile()))
}

// UpdateProfile handles PUT /api/me.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	profile, ok := value(c, h.users.EnsureProfile(c.Request.Context(), user.Profile()))
	if !ok {
		return
	}
	if req.DisplayName != nil {
		profile.DisplayName = *req.DisplayName
	}
	if req.PhotoURL != nil {
		profile.PhotoURL = *req.PhotoURL
	}
	if req.Skills != nil {
		profile.Skills = req.Skills
	}
	render(c, http.StatusOK, h.users.Update(c.Request.Context(), profile))
}

// ListUsers handles GET /api/users?ids=a,b or GET /api/users?q=prefix.
func (h *UserHandler) ListUsers(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}

	if prefix := strings.TrimSpace(c.Query("q")); prefix != "" {
		render(c, http.StatusOK, snapshot(c, func(ctx context.Context) resource.Stream[[]*domain.User] {
			return h.users.SearchUsers(ctx, prefix)
		}))
		return
	}

	ids := splitIDs(c.Query("ids"))
	if len(ids) > maxUserIDs {
		ErrorResponse(c, domain.NewValidationError("TOO_MANY_IDS", "Too many user ids requested", map[string]interface{}{
			"max": maxUserIDs,
		}))
		return
	}
	render(c, http.StatusOK, snapshot(c, func(ctx context.Context) resource.Stream[[]*domain.User] {
		return h.users.GetUsersByIDs(ctx, ids)
	}))
}

func splitIDs(list string) []string {
	var ids []string
	for _, id := range strings.Split(list, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
