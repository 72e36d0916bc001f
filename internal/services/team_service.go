package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/Godfather59/score-app/internal/models"
	"github.com/Godfather59/score-app/internal/storage"
)

// TeamInput is the writable part of a team.
type TeamInput struct {
	Name    string `json:"name" validate:"required,max=100"`
	League  string `json:"league" validate:"max=100"`
	Founded *int   `json:"founded,omitempty" validate:"omitempty,gte=1800,lte=2100"`
}

// Upload is a file received from a client.
type Upload struct {
	Body io.Reader
}

var logoTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// TeamServiceProvider defines the interface for team services.
type TeamServiceProvider interface {
	GetAllTeams(ctx context.Context) ([]models.Team, error)
	GetTeamByID(ctx context.Context, id string) (models.Team, error)
	SearchTeams(ctx context.Context, query string) ([]models.Team, error)
	CreateTeam(ctx context.Context, in TeamInput, logo *Upload) (models.Team, error)
	UpdateTeam(ctx context.Context, id string, in TeamInput, logo *Upload) (models.Team, error)
	DeleteTeam(ctx context.Context, id string) error
}

// TeamService provides business logic for teams and their logos.
type TeamService struct {
	db     *sqlx.DB
	store  storage.Service
	events EventServiceProvider
}

// NewTeamService creates a new TeamService.
func NewTeamService(db *sqlx.DB, store storage.Service, events EventServiceProvider) *TeamService {
	return &TeamService{db: db, store: store, events: events}
}

const teamColumns = `id, name, league, founded, logo, created_at, updated_at`

func (s *TeamService) GetAllTeams(ctx context.Context) ([]models.Team, error) {
	teams := []models.Team{}
	if err := s.db.SelectContext(ctx, &teams, `SELECT `+teamColumns+` FROM teams ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to query teams: %w", err)
	}
	return s.withLogoURLs(teams), nil
}

func (s *TeamService) GetTeamByID(ctx context.Context, id string) (models.Team, error) {
	var team models.Team
	err := s.db.GetContext(ctx, &team, s.db.Rebind(`SELECT `+teamColumns+` FROM teams WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Team{}, notFoundf("Team not found")
	}
	if err != nil {
		return models.Team{}, fmt.Errorf("failed to query team: %w", err)
	}
	team.Logo = s.store.URL(team.LogoKey)
	return team, nil
}

// SearchTeams matches query as a case-insensitive substring of the team name.
func (s *TeamService) SearchTeams(ctx context.Context, query string) ([]models.Team, error) {
	pattern, err := searchPattern(query)
	if err != nil {
		return nil, err
	}
	teams := []models.Team{}
	err = s.db.SelectContext(ctx, &teams, s.db.Rebind(`SELECT `+teamColumns+` FROM teams
		WHERE LOWER(name) LIKE ? ESCAPE '\' ORDER BY name`), pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search teams: %w", err)
	}
	return s.withLogoURLs(teams), nil
}

func (s *TeamService) CreateTeam(ctx context.Context, in TeamInput, logo *Upload) (models.Team, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.League = strings.TrimSpace(in.League)
	if err := validateStruct(in); err != nil {
		return models.Team{}, err
	}

	logoKey, err := s.storeLogo(ctx, logo)
	if err != nil {
		return models.Team{}, err
	}

	now := time.Now().UTC()
	team := models.Team{
		ID:        uuid.New().String(),
		Name:      in.Name,
		League:    in.League,
		Founded:   in.Founded,
		LogoKey:   logoKey,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = s.db.NamedExecContext(ctx, `INSERT INTO teams (id, name, league, founded, logo, created_at, updated_at)
		VALUES (:id, :name, :league, :founded, :logo, :created_at, :updated_at)`, team)
	if err != nil {
		s.removeLogo(ctx, logoKey)
		return models.Team{}, fmt.Errorf("failed to insert team: %w", err)
	}

	recordEvent(ctx, s.events, "team.create", LevelInfo, fmt.Sprintf("Team '%s' created", team.Name), &team.ID)
	team.Logo = s.store.URL(team.LogoKey)
	return team, nil
}

// UpdateTeam replaces the team's fields. The logo is only replaced when a
// new one is uploaded.
func (s *TeamService) UpdateTeam(ctx context.Context, id string, in TeamInput, logo *Upload) (models.Team, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.League = strings.TrimSpace(in.League)
	if err := validateStruct(in); err != nil {
		return models.Team{}, err
	}
	existing, err := s.GetTeamByID(ctx, id)
	if err != nil {
		return models.Team{}, err
	}

	logoKey := existing.LogoKey
	if logo != nil {
		if logoKey, err = s.storeLogo(ctx, logo); err != nil {
			return models.Team{}, err
		}
	}

	_, err = s.db.ExecContext(ctx, s.db.Rebind(`UPDATE teams SET name = ?, league = ?, founded = ?, logo = ?, updated_at = ? WHERE id = ?`),
		in.Name, in.League, in.Founded, logoKey, time.Now().UTC(), id)
	if err != nil {
		if logoKey != existing.LogoKey {
			s.removeLogo(ctx, logoKey)
		}
		return models.Team{}, fmt.Errorf("failed to update team: %w", err)
	}
	if logoKey != existing.LogoKey {
		s.removeLogo(ctx, existing.LogoKey)
	}

	recordEvent(ctx, s.events, "team.update", LevelInfo, fmt.Sprintf("Team '%s' updated", in.Name), &id)
	return s.GetTeamByID(ctx, id)
}

// DeleteTeam removes the team, its matches and its logo. Players keep
// their rows with no team.
func (s *TeamService) DeleteTeam(ctx context.Context, id string) error {
	existing, err := s.GetTeamByID(ctx, id)
	if err != nil {
		return err
	}
	if err := deleteByID(ctx, s.db, "teams", id, "Team not found"); err != nil {
		return err
	}
	s.removeLogo(ctx, existing.LogoKey)

	recordEvent(ctx, s.events, "team.delete", LevelInfo, fmt.Sprintf("Team '%s' deleted", existing.Name), &id)
	return nil
}

// storeLogo sniffs the upload's content type and stores it under a fresh
// key. A nil upload stores nothing.
func (s *TeamService) storeLogo(ctx context.Context, logo *Upload) (string, error) {
	if logo == nil || logo.Body == nil {
		return "", nil
	}

	head := make([]byte, 3072)
	n, err := io.ReadFull(logo.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read logo: %w", err)
	}
	if n == 0 {
		return "", invalidField("logo", "must not be empty")
	}
	head = head[:n]

	mtype := mimetype.Detect(head)
	if !logoTypes[mtype.String()] {
		return "", invalidField("logo", "must be a PNG, JPEG, GIF or WebP image")
	}

	key := "teams/" + uuid.New().String() + mtype.Extension()
	body := io.MultiReader(bytes.NewReader(head), logo.Body)
	if err := s.store.Put(ctx, key, body, mtype.String()); err != nil {
		return "", fmt.Errorf("failed to store logo: %w", err)
	}
	return key, nil
}

func (s *TeamService) removeLogo(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to delete team logo")
	}
}

func (s *TeamService) withLogoURLs(teams []models.Team) []models.Team {
	for i := range teams {
		teams[i].Logo = s.store.URL(teams[i].LogoKey)
	}
	return teams
}

// searchPattern turns a user query into a LIKE pattern for a LOWER()ed column.
// The query folds ASCII letters only, like SQLite's LOWER, so on SQLite
// non-ASCII letters must match case exactly.
func searchPattern(query string) (string, error) {
	q := strings.TrimSpace(query)
	if len([]rune(q)) < 2 {
		return "", invalidField("q", "must be at least 2 characters long")
	}
	q = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(asciiLower(q))
	return "%" + q + "%", nil
}

func asciiLower(s string) string {
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

// rowExists reports whether table has a row with id.
func rowExists(ctx context.Context, db *sqlx.DB, table, id string) (bool, error) {
	var n int
	if err := db.GetContext(ctx, &n, db.Rebind(`SELECT COUNT(*) FROM `+table+` WHERE id = ?`), id); err != nil {
		return false, fmt.Errorf("failed to check %s: %w", table, err)
	}
	return n > 0, nil
}
