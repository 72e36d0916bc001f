package models

import "time"

// Event represents a recorded action or alert in the system.
type Event struct {
	ID        string    `json:"id" db:"id"`
	Type      string    `json:"type" db:"type"`   // e.g., "user.login", "system.alert.cpu"
	Level     string    `json:"level" db:"level"` // e.g., "info", "warn", "error"
	Message   string    `json:"message" db:"message"`
	SubjectID *string   `json:"subjectId,omitempty" db:"subject_id"` // Nullable for system-wide events
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
