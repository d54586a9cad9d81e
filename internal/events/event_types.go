package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/deskcore/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketTagged        EventType = "ticket_tagged"
	EventTicketNoteAdded     EventType = "ticket_note_added"
)

// AllEventTypes lists every event type for blanket subscriptions.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketStatusChanged,
	EventTicketAssigned,
	EventTicketTagged,
	EventTicketNoteAdded,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type    domain.InteractionAuthorType `json:"type"`
	UserID  *string                      `json:"user_id,omitempty"`
	StaffID *string                      `json:"staff_id,omitempty"`
	ActorID *string                      `json:"actor_id,omitempty"`
}

// UserActor builds an actor for an end-user.
func UserActor(userID string) Actor {
	return Actor{Type: domain.AuthorTypeUser, UserID: &userID}
}

// StaffActor builds an actor for an operator.
func StaffActor(staffID string) Actor {
	return Actor{Type: domain.AuthorTypeStaff, StaffID: &staffID}
}

// SystemActor builds an actor for a service identity.
func SystemActor(actorID string) Actor {
	return Actor{Type: domain.AuthorTypeSystem, ActorID: &actorID}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent assembles an event with a fresh id and timestamp.
func NewEvent(eventType EventType, ticketID string, actor Actor, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     actor,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TeamID   *string               `json:"team_id,omitempty"`
	Priority domain.TicketPriority `json:"priority"`
	Title    string                `json:"title"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	OldTeamID *string `json:"old_team_id,omitempty"`
	NewTeamID *string `json:"new_team_id,omitempty"`
}

// TicketTaggedPayload payload.
type TicketTaggedPayload struct {
	TagID    string `json:"tag_id"`
	Attached bool   `json:"attached"`
}

// TicketNoteAddedPayload payload.
type TicketNoteAddedPayload struct {
	InteractionID string `json:"interaction_id"`
	BodyPreview   string `json:"body_preview"`
}
