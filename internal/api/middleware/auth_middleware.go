package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ericfisherdev/projectsync/internal/auth"
	"github.com/ericfisherdev/projectsync/internal/domain"
)

const identityKey = "identity"

// AuthMiddleware authenticates bearer tokens through an auth.Provider.
type AuthMiddleware struct {
	provider auth.Provider
}

func NewAuthMiddleware(provider auth.Provider) *AuthMiddleware {
	return &AuthMiddleware{provider: provider}
}

// RequireAuth rejects requests without a valid token. Browsers cannot set
// headers on websocket upgrades, so the access_token query parameter is
// accepted as well.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			AbortWithError(c, domain.NewAuthenticationError("MISSING_TOKEN", "Authorization token is required"))
			return
		}

		id, err := m.provider.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(identityKey, id)
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return c.Query("access_token")
}

func identity(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}

// GetIdentity returns the authenticated identity of the request.
func GetIdentity(c *gin.Context) (auth.Identity, bool) {
	return identity(c)
}
