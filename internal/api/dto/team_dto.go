package dto

import (
	"time"
)

// TeamRequest payload for create/update.
type TeamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

// SetSpecialtiesRequest payload.
type SetSpecialtiesRequest struct {
	TagIDs []string `json:"tag_ids"`
}

// TeamResponse response.
type TeamResponse struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	IsActive    bool          `json:"is_active"`
	Specialties []TagResponse `json:"specialties,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// TeamLoadResponse pairs a team with its open-ticket count.
type TeamLoadResponse struct {
	TeamID string `json:"team_id"`
	Load   int    `json:"load"`
}
