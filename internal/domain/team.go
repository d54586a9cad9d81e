package domain

import "time"

// Team is a group of workers handling tickets.
type Team struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TeamSpecialty links a team to a tag it declares capability for.
// Rows are owned by team administration, never by the router.
type TeamSpecialty struct {
	TeamID string
	TagID  string
}

// TeamLoad pairs a team with its count of OPEN/IN_PROGRESS tickets.
type TeamLoad struct {
	TeamID string
	Load   int
}
