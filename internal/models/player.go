package models

import "time"

type Player struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	TeamID    *string   `json:"team_id" db:"team_id"`
	TeamName  *string   `json:"team_name,omitempty" db:"team_name"`
	Position  string    `json:"position" db:"position"`
	Goals     int       `json:"goals" db:"goals"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
