package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the public record of a user. Email is immutable from the client.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	FullName  *string   `json:"full_name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone"`
	AvatarURL *string   `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName returns the full name, falling back to the email.
func (p *Profile) DisplayName() string {
	if p.FullName != nil && *p.FullName != "" {
		return *p.FullName
	}
	return p.Email
}

// ProfileUpdate holds the fields an owner may change.
type ProfileUpdate struct {
	FullName *string `json:"full_name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
}
