package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/Godfather59/score-app/internal/database"
	"github.com/Godfather59/score-app/internal/models"
	"github.com/Godfather59/score-app/internal/storage"
	"github.com/Godfather59/score-app/internal/websocket"
)

// MatchInput is the writable part of a match.
type MatchInput struct {
	HomeTeamID string `json:"home_team_id" validate:"required"`
	AwayTeamID string `json:"away_team_id" validate:"required,nefield=HomeTeamID"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	Time       string `json:"time" validate:"required,datetime=15:04"`
	League     string `json:"league" validate:"max=100"`
	Status     string `json:"status" validate:"omitempty,oneof=upcoming live completed postponed"`
	HomeScore  *int   `json:"home_score" validate:"omitempty,gte=0"`
	AwayScore  *int   `json:"away_score" validate:"omitempty,gte=0"`
}

// MatchFilter narrows match listings. Empty fields match everything.
type MatchFilter struct {
	Status string
	TeamID string
}

// Broadcaster delivers live updates to subscribers of a topic.
type Broadcaster interface {
	BroadcastTo(topic string, message []byte)
}

// MatchServiceProvider defines the interface for match services.
type MatchServiceProvider interface {
	GetAllMatches(ctx context.Context, filter MatchFilter) ([]models.Match, error)
	GetMatchByID(ctx context.Context, id string) (models.Match, error)
	CreateMatch(ctx context.Context, in MatchInput) (models.Match, error)
	UpdateMatch(ctx context.Context, id string, in MatchInput) (models.Match, error)
	DeleteMatch(ctx context.Context, id string) error
	AdvanceStatuses(ctx context.Context, now time.Time, duration time.Duration) (int, error)
	CountByStatus(ctx context.Context) (map[models.MatchStatus]int, error)
}

// MatchService provides business logic for fixtures and results.
type MatchService struct {
	db     *sqlx.DB
	store  storage.Service
	hub    Broadcaster
	events EventServiceProvider
	loc    *time.Location
}

// NewMatchService creates a new MatchService. Kickoff times are interpreted in loc.
func NewMatchService(db *sqlx.DB, store storage.Service, hub Broadcaster, events EventServiceProvider, loc *time.Location) *MatchService {
	if loc == nil {
		loc = time.UTC
	}
	return &MatchService{db: db, store: store, hub: hub, events: events, loc: loc}
}

const matchSelect = `SELECT m.id, m.home_team_id, m.away_team_id,
	h.name AS home_team_name, a.name AS away_team_name, h.logo AS home_team_logo, a.logo AS away_team_logo,
	m.match_date, m.match_time, m.league, m.status, m.home_score, m.away_score, m.created_at, m.updated_at
	FROM matches m
	JOIN teams h ON h.id = m.home_team_id
	JOIN teams a ON a.id = m.away_team_id`

func (s *MatchService) GetAllMatches(ctx context.Context, filter MatchFilter) ([]models.Match, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		where = append(where, "m.status = ?")
		args = append(args, filter.Status)
	}
	if filter.TeamID != "" {
		where = append(where, "(m.home_team_id = ? OR m.away_team_id = ?)")
		args = append(args, filter.TeamID, filter.TeamID)
	}
	q := matchSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY m.match_date DESC, m.match_time DESC"

	matches := []models.Match{}
	if err := s.db.SelectContext(ctx, &matches, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	for i := range matches {
		s.withLogoURLs(&matches[i])
	}
	return matches, nil
}

func (s *MatchService) GetMatchByID(ctx context.Context, id string) (models.Match, error) {
	var match models.Match
	err := s.db.GetContext(ctx, &match, s.db.Rebind(matchSelect+` WHERE m.id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Match{}, notFoundf("Match not found")
	}
	if err != nil {
		return models.Match{}, fmt.Errorf("failed to query match: %w", err)
	}
	s.withLogoURLs(&match)
	return match, nil
}

func (s *MatchService) CreateMatch(ctx context.Context, in MatchInput) (models.Match, error) {
	if err := s.validate(ctx, &in); err != nil {
		return models.Match{}, err
	}

	now := time.Now().UTC()
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO matches
		(id, home_team_id, away_team_id, match_date, match_time, league, status, home_score, away_score, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		id, in.HomeTeamID, in.AwayTeamID, in.Date, in.Time, in.League, in.Status, in.HomeScore, in.AwayScore, now, now)
	if database.IsForeignKeyViolation(err) {
		return models.Match{}, s.missingTeam(ctx, in)
	}
	if err != nil {
		return models.Match{}, fmt.Errorf("failed to insert match: %w", err)
	}

	match, err := s.GetMatchByID(ctx, id)
	if err != nil {
		return models.Match{}, err
	}
	recordEvent(ctx, s.events, "match.create", LevelInfo,
		fmt.Sprintf("Match %s vs %s scheduled for %s %s", match.HomeTeamName, match.AwayTeamName, match.Date, match.Time), &id)
	s.notify("match_created", match)
	return match, nil
}

func (s *MatchService) UpdateMatch(ctx context.Context, id string, in MatchInput) (models.Match, error) {
	if err := s.validate(ctx, &in); err != nil {
		return models.Match{}, err
	}

	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE matches SET home_team_id = ?, away_team_id = ?, match_date = ?,
		match_time = ?, league = ?, status = ?, home_score = ?, away_score = ?, updated_at = ? WHERE id = ?`),
		in.HomeTeamID, in.AwayTeamID, in.Date, in.Time, in.League, in.Status, in.HomeScore, in.AwayScore, time.Now().UTC(), id)
	if database.IsForeignKeyViolation(err) {
		return models.Match{}, s.missingTeam(ctx, in)
	}
	if err != nil {
		return models.Match{}, fmt.Errorf("failed to update match: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Match{}, notFoundf("Match not found")
	}

	match, err := s.GetMatchByID(ctx, id)
	if err != nil {
		return models.Match{}, err
	}
	recordEvent(ctx, s.events, "match.update", LevelInfo,
		fmt.Sprintf("Match %s vs %s updated (%s)", match.HomeTeamName, match.AwayTeamName, match.Status), &id)
	s.notify("match_updated", match)
	return match, nil
}

func (s *MatchService) DeleteMatch(ctx context.Context, id string) error {
	if err := deleteByID(ctx, s.db, "matches", id, "Match not found"); err != nil {
		return err
	}
	recordEvent(ctx, s.events, "match.delete", LevelInfo, fmt.Sprintf("Match %s deleted", id), &id)
	s.notify("match_deleted", models.Match{ID: id})
	return nil
}

// AdvanceStatuses moves upcoming matches to live once kicked off and live
// matches to completed once duration has passed. Transitions only move
// forward and never overwrite a concurrent manual change.
func (s *MatchService) AdvanceStatuses(ctx context.Context, now time.Time, duration time.Duration) (int, error) {
	var candidates []models.Match
	err := s.db.SelectContext(ctx, &candidates, s.db.Rebind(matchSelect+` WHERE m.status IN (?, ?)`),
		models.MatchUpcoming, models.MatchLive)
	if err != nil {
		return 0, fmt.Errorf("failed to query active matches: %w", err)
	}

	changed := 0
	for _, m := range candidates {
		kickoff, err := m.Kickoff(s.loc)
		if err != nil {
			log.Warn().Err(err).Str("match_id", m.ID).Msg("Skipping match with unparsable kickoff")
			continue
		}

		next := m.Status
		switch {
		case !now.Before(kickoff.Add(duration)):
			next = models.MatchCompleted
		case !now.Before(kickoff) && m.Status == models.MatchUpcoming:
			next = models.MatchLive
		}
		if next == m.Status {
			continue
		}

		res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE matches SET status = ?, updated_at = ? WHERE id = ? AND status = ?`),
			next, now.UTC(), m.ID, m.Status)
		if err != nil {
			return changed, fmt.Errorf("failed to advance match %s: %w", m.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			continue
		}
		changed++

		m.Status = next
		s.withLogoURLs(&m)
		recordEvent(ctx, s.events, "match.status", LevelInfo,
			fmt.Sprintf("Match %s vs %s is now %s", m.HomeTeamName, m.AwayTeamName, next), &m.ID)
		s.notify("match_status", m)
	}
	return changed, nil
}

// CountByStatus returns the number of matches in each status.
func (s *MatchService) CountByStatus(ctx context.Context) (map[models.MatchStatus]int, error) {
	var rows []struct {
		Status models.MatchStatus `db:"status"`
		Count  int                `db:"count"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS count FROM matches GROUP BY status`); err != nil {
		return nil, fmt.Errorf("failed to count matches: %w", err)
	}
	out := make(map[models.MatchStatus]int, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}

func (s *MatchService) validate(ctx context.Context, in *MatchInput) error {
	in.HomeTeamID = strings.TrimSpace(in.HomeTeamID)
	in.AwayTeamID = strings.TrimSpace(in.AwayTeamID)
	in.League = strings.TrimSpace(in.League)
	if in.Status == "" {
		in.Status = string(models.MatchUpcoming)
	}
	if err := validateStruct(*in); err != nil {
		return err
	}
	// Normalize "9:05" to "09:05" so kickoff ordering works on the text column.
	if t, err := time.Parse("15:04", in.Time); err == nil {
		in.Time = t.Format("15:04")
	}

	return s.checkTeams(ctx, *in)
}

// checkTeams reports the first team reference that does not exist.
func (s *MatchService) checkTeams(ctx context.Context, in MatchInput) error {
	for _, ref := range []struct{ field, id string }{
		{"home_team_id", in.HomeTeamID},
		{"away_team_id", in.AwayTeamID},
	} {
		ok, err := rowExists(ctx, s.db, "teams", ref.id)
		if err != nil {
			return err
		}
		if !ok {
			return invalidField(ref.field, "does not reference an existing team")
		}
	}
	return nil
}

// missingTeam explains a foreign key failure on write: a team was deleted
// after validation.
func (s *MatchService) missingTeam(ctx context.Context, in MatchInput) error {
	if err := s.checkTeams(context.WithoutCancel(ctx), in); err != nil {
		return err
	}
	return invalidField("home_team_id", "does not reference an existing team")
}

func (s *MatchService) withLogoURLs(m *models.Match) {
	m.HomeTeamLogo = s.store.URL(m.HomeLogoKey)
	m.AwayTeamLogo = s.store.URL(m.AwayLogoKey)
}

// notify pushes the match to its own subscribers and to the global feed.
func (s *MatchService) notify(action string, match models.Match) {
	if s.hub == nil {
		return
	}
	msg, err := websocket.NewMessage(action, match)
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("Failed to encode match update")
		return
	}
	s.hub.BroadcastTo(match.ID, msg)
	s.hub.BroadcastTo(websocket.GlobalTopic, msg)
}
