package models

import (
	"time"

	"github.com/google/uuid"
)

// Club organizes events.
type Club struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Description     *string    `json:"description"`
	LogoURL         *string    `json:"logo_url"`
	ContactEmail    *string    `json:"contact_email"`
	ContactPhone    *string    `json:"contact_phone"`
	InstagramHandle *string    `json:"instagram_handle"`
	CreatedBy       *uuid.UUID `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ClubInput is the writable part of a club. Nil fields are left unchanged on update.
type ClubInput struct {
	Name            *string `json:"name,omitempty"`
	Description     *string `json:"description,omitempty"`
	LogoURL         *string `json:"logo_url,omitempty"`
	ContactEmail    *string `json:"contact_email,omitempty"`
	ContactPhone    *string `json:"contact_phone,omitempty"`
	InstagramHandle *string `json:"instagram_handle,omitempty"`
}
