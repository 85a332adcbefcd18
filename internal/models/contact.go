package models

import "time"

// Contact is a person the organizer has split bills with before.
// Contacts are scoped to the organizer's user ID.
type Contact struct {
	ID          string
	UserID      string
	Name        string
	PhoneNumber string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
