package domain

import (
	"net/mail"
	"strings"
	"time"
)

// User represents a user profile. The id matches the identity provider subject.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	PhotoURL    string    `json:"photo_url"`
	Skills      []string  `json:"skills"`
	LastActive  time.Time `json:"last_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GetID returns the user id.
func (u *User) GetID() string { return u.ID }

// SetID assigns the user id.
func (u *User) SetID(id string) { u.ID = id }

// HasSkill reports whether the user lists the skill, ignoring case.
func (u *User) HasSkill(skill string) bool {
	for _, s := range u.Skills {
		if strings.EqualFold(s, skill) {
			return true
		}
	}
	return false
}

// Validate validates the user data.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Email) == "" {
		return NewValidationError("INVALID_EMAIL", "Email is required", map[string]interface{}{
			"field": "email",
		})
	}

	if _, err := mail.ParseAddress(u.Email); err != nil {
		return NewValidationError("INVALID_EMAIL", "Email address is malformed", map[string]interface{}{
			"field": "email",
			"value": u.Email,
		})
	}

	if strings.TrimSpace(u.DisplayName) == "" {
		return NewValidationError("INVALID_NAME", "Display name is required", map[string]interface{}{
			"field": "display_name",
		})
	}

	return nil
}
