package domain

import "time"

// InteractionAuthorType indicates who produced an interaction.
type InteractionAuthorType string

const (
	AuthorTypeUser   InteractionAuthorType = "USER"
	AuthorTypeStaff  InteractionAuthorType = "STAFF"
	AuthorTypeSystem InteractionAuthorType = "SYSTEM"
)

// InteractionType captures what kind of event an interaction records.
type InteractionType string

const (
	InteractionAssignment   InteractionType = "ASSIGNMENT"
	InteractionStatusChange InteractionType = "STATUS_CHANGE"
	InteractionNote         InteractionType = "NOTE"
)

// Interaction is an immutable audit trail entry on a ticket. Rows are
// created once by whichever actor performed the action and never mutated.
type Interaction struct {
	ID         string
	TicketID   string
	AuthorType InteractionAuthorType
	AuthorID   *string
	Type       InteractionType
	Payload    map[string]any
	CreatedAt  time.Time
}
