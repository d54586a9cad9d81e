package domain

import "time"

// Tag labels tickets and doubles as the unit of team specialty.
type Tag struct {
	ID          string
	Name        string
	Color       string
	Description string
	CreatedAt   time.Time
}
