package models

import "time"

// Team is a club taking part in matches.
type Team struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	League    string    `json:"league" db:"league"`
	Founded   *int      `json:"founded,omitempty" db:"founded"`
	LogoKey   string    `json:"-" db:"logo"`
	Logo      string    `json:"logo,omitempty" db:"-"` // public URL of the stored logo
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
