package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ericfisherdev/projectsync/internal/domain"
)

const (
	tokenIssuer   = "projectsync"
	tokenAudience = "projectsync-app"
)

// TokenClaims represents JWT token claims.
type TokenClaims struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	jwt.RegisteredClaims
}

// TokenProvider issues and verifies HS256 tokens. Revoked token ids are
// remembered until the token would have expired anyway.
type TokenProvider struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewTokenProvider creates a token provider. The secret must be at least 32
// bytes long.
func NewTokenProvider(secret string, expiration time.Duration) (*TokenProvider, error) {
	if len(secret) < 32 {
		return nil, errors.New("JWT secret must be at least 32 characters long")
	}
	if expiration <= 0 {
		expiration = 24 * time.Hour
	}
	return &TokenProvider{
		secret:     []byte(secret),
		expiration: expiration,
		now:        time.Now,
		revoked:    make(map[string]time.Time),
	}, nil
}

// Issue signs a token for the identity.
func (p *TokenProvider) Issue(id Identity) (string, error) {
	if id.UserID == "" {
		return "", domain.NewValidationError("INVALID_IDENTITY", "Identity needs a user id", nil)
	}
	now := p.now()
	claims := &TokenClaims{
		Email:       id.Email,
		DisplayName: id.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(p.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Audience:  []string{tokenAudience},
			ID:        uuid.New().String(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Authenticate verifies the token and returns its identity.
func (p *TokenProvider) Authenticate(_ context.Context, token string) (Identity, error) {
	claims, err := p.parse(token)
	if err != nil {
		return Identity{}, domain.NewAuthenticationError("INVALID_TOKEN", "Invalid or expired token")
	}
	if p.isRevoked(claims.ID) {
		return Identity{}, domain.NewAuthenticationError("TOKEN_REVOKED", "Token has been revoked")
	}
	return Identity{UserID: claims.Subject, Email: claims.Email, DisplayName: claims.DisplayName}, nil
}

// Revoke invalidates a token before it expires.
func (p *TokenProvider) Revoke(token string) error {
	claims, err := p.parse(token)
	if err != nil {
		return domain.NewAuthenticationError("INVALID_TOKEN", "Invalid or expired token")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	for id, exp := range p.revoked {
		if now.After(exp) {
			delete(p.revoked, id)
		}
	}
	p.revoked[claims.ID] = claims.ExpiresAt.Time
	return nil
}

func (p *TokenProvider) isRevoked(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.revoked[id]
	return ok
}

func (p *TokenProvider) parse(token string) (*TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &TokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*TokenClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
