// Package auth resolves bearer tokens to identities. Repositories never see
// tokens; callers pass the identity's user id explicitly.
package auth

import (
	"context"

	"github.com/ericfisherdev/projectsync/internal/domain"
)

// Identity is an authenticated principal. UserID is the profile id.
type Identity struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// Profile returns the user profile used to bootstrap a first sign-in.
func (i Identity) Profile() *domain.User {
	return &domain.User{
		ID:          i.UserID,
		Email:       i.Email,
		DisplayName: i.DisplayName,
		Skills:      []string{},
	}
}

// Provider authenticates a bearer token.
type Provider interface {
	Authenticate(ctx context.Context, token string) (Identity, error)
}

type contextKey struct{}

// WithIdentity returns a copy of ctx carrying the identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok && id.UserID != ""
}
