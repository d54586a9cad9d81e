package dto

import (
	"time"

	"github.com/deskcore/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	RequesterID string                `json:"requester_id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	TagIDs      []string              `json:"tag_ids"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	StaffID string              `json:"staff_id"`
	Status  domain.TicketStatus `json:"status"`
	Comment string              `json:"comment"`
}

// AddNoteRequest payload.
type AddNoteRequest struct {
	AuthorType domain.InteractionAuthorType `json:"author_type"`
	AuthorID   string                       `json:"author_id"`
	Body       string                       `json:"body"`
}

// TagChangeRequest payload for attach/detach.
type TagChangeRequest struct {
	ActorID string `json:"actor_id"`
	TagID   string `json:"tag_id"`
}

// AssignTeamRequest payload for a manual override.
type AssignTeamRequest struct {
	StaffID string `json:"staff_id"`
	TeamID  string `json:"team_id"`
}

// TicketSummary response.
type TicketSummary struct {
	ID          string                `json:"id"`
	ExternalKey string                `json:"external_key"`
	RequesterID string                `json:"requester_id"`
	TeamID      *string               `json:"team_id"`
	Title       string                `json:"title"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	ID          string                `json:"id"`
	ExternalKey string                `json:"external_key"`
	RequesterID string                `json:"requester_id"`
	TeamID      *string               `json:"team_id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	Tags        []TagResponse         `json:"tags"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	ClosedAt    *time.Time            `json:"closed_at"`
}

// InteractionResponse represents one audit trail entry.
type InteractionResponse struct {
	ID         string                       `json:"id"`
	TicketID   string                       `json:"ticket_id"`
	AuthorType domain.InteractionAuthorType `json:"author_type"`
	AuthorID   *string                      `json:"author_id"`
	Type       domain.InteractionType       `json:"type"`
	Payload    map[string]any               `json:"payload"`
	CreatedAt  time.Time                    `json:"created_at"`
}

// RouteResponse reports the outcome of a routing pass.
type RouteResponse struct {
	Routed    bool    `json:"routed"`
	Reason    string  `json:"reason,omitempty"`
	OldTeamID *string `json:"old_team_id,omitempty"`
	NewTeamID *string `json:"new_team_id,omitempty"`
}
