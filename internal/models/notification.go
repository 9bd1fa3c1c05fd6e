package models

import "time"

// Notification is a persisted user-facing message, e.g. "your certificate has
// issued".
type Notification struct {
	ID        string     `db:"id" json:"id"`
	ProfileID string     `db:"profile_id" json:"profile_id"`
	Subject   string     `db:"subject" json:"subject"`
	Body      string     `db:"body" json:"body"`
	ReadAt    *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
