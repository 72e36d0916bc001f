package models

import "time"

// MatchStatus is the lifecycle state of a match.
type MatchStatus string

const (
	MatchUpcoming  MatchStatus = "upcoming"
	MatchLive      MatchStatus = "live"
	MatchCompleted MatchStatus = "completed"
	MatchPostponed MatchStatus = "postponed"
)

// Match is a fixture between two teams. Team names and logos are joined
// in on reads and ignored on writes.
type Match struct {
	ID           string      `json:"id" db:"id"`
	HomeTeamID   string      `json:"home_team_id" db:"home_team_id"`
	AwayTeamID   string      `json:"away_team_id" db:"away_team_id"`
	HomeTeamName string      `json:"home_team_name" db:"home_team_name"`
	AwayTeamName string      `json:"away_team_name" db:"away_team_name"`
	HomeLogoKey  string      `json:"-" db:"home_team_logo"`
	AwayLogoKey  string      `json:"-" db:"away_team_logo"`
	HomeTeamLogo string      `json:"home_team_logo,omitempty" db:"-"`
	AwayTeamLogo string      `json:"away_team_logo,omitempty" db:"-"`
	Date         string      `json:"date" db:"match_date"` // YYYY-MM-DD
	Time         string      `json:"time" db:"match_time"` // HH:MM
	League       string      `json:"league" db:"league"`
	Status       MatchStatus `json:"status" db:"status"`
	HomeScore    *int        `json:"home_score" db:"home_score"`
	AwayScore    *int        `json:"away_score" db:"away_score"`
	CreatedAt    time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time   `json:"updatedAt" db:"updated_at"`
}

// Kickoff combines the match date and time in loc.
func (m Match) Kickoff(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", m.Date+" "+m.Time, loc)
}
