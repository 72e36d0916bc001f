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

	"github.com/Godfather59/score-app/internal/database"
	"github.com/Godfather59/score-app/internal/models"
)

func errMissingTeam() error {
	return invalidField("team_id", "does not reference an existing team")
}

type PlayerInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	TeamID   string `json:"team_id" validate:"required"`
	Position string `json:"position" validate:"required,max=50"`
	Goals    int    `json:"goals" validate:"gte=0"`
}

// PlayerServiceProvider defines the interface for player services.
type PlayerServiceProvider interface {
	GetAllPlayers(ctx context.Context) ([]models.Player, error)
	GetPlayerByID(ctx context.Context, id string) (models.Player, error)
	SearchPlayers(ctx context.Context, query string) ([]models.Player, error)
	CreatePlayer(ctx context.Context, in PlayerInput) (models.Player, error)
	UpdatePlayer(ctx context.Context, id string, in PlayerInput) (models.Player, error)
	DeletePlayer(ctx context.Context, id string) error
}

type PlayerService struct {
	db     *sqlx.DB
	events EventServiceProvider
}

func NewPlayerService(db *sqlx.DB, events EventServiceProvider) *PlayerService {
	return &PlayerService{db: db, events: events}
}

const playerSelect = `SELECT p.id, p.name, p.team_id, t.name AS team_name, p.position, p.goals, p.created_at, p.updated_at
	FROM players p LEFT JOIN teams t ON t.id = p.team_id`

func (s *PlayerService) GetAllPlayers(ctx context.Context) ([]models.Player, error) {
	players := []models.Player{}
	if err := s.db.SelectContext(ctx, &players, playerSelect+` ORDER BY p.name`); err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	return players, nil
}

func (s *PlayerService) GetPlayerByID(ctx context.Context, id string) (models.Player, error) {
	var player models.Player
	err := s.db.GetContext(ctx, &player, s.db.Rebind(playerSelect+` WHERE p.id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Player{}, notFoundf("Player not found")
	}
	if err != nil {
		return models.Player{}, fmt.Errorf("failed to query player: %w", err)
	}
	return player, nil
}

// SearchPlayers matches query as a case-insensitive substring of the player name.
func (s *PlayerService) SearchPlayers(ctx context.Context, query string) ([]models.Player, error) {
	pattern, err := searchPattern(query)
	if err != nil {
		return nil, err
	}
	players := []models.Player{}
	err = s.db.SelectContext(ctx, &players, s.db.Rebind(playerSelect+` WHERE LOWER(p.name) LIKE ? ESCAPE '\' ORDER BY p.name`), pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search players: %w", err)
	}
	return players, nil
}

func (s *PlayerService) CreatePlayer(ctx context.Context, in PlayerInput) (models.Player, error) {
	if err := s.validate(ctx, &in); err != nil {
		return models.Player{}, err
	}

	now := time.Now().UTC()
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO players (id, name, team_id, position, goals, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`), id, in.Name, in.TeamID, in.Position, in.Goals, now, now)
	if database.IsForeignKeyViolation(err) {
		// The team was deleted after validation.
		return models.Player{}, errMissingTeam()
	}
	if err != nil {
		return models.Player{}, fmt.Errorf("failed to insert player: %w", err)
	}

	recordEvent(ctx, s.events, "player.create", LevelInfo, fmt.Sprintf("Player '%s' created", in.Name), &id)
	return s.GetPlayerByID(ctx, id)
}

func (s *PlayerService) UpdatePlayer(ctx context.Context, id string, in PlayerInput) (models.Player, error) {
	if err := s.validate(ctx, &in); err != nil {
		return models.Player{}, err
	}

	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE players SET name = ?, team_id = ?, position = ?, goals = ?, updated_at = ? WHERE id = ?`),
		in.Name, in.TeamID, in.Position, in.Goals, time.Now().UTC(), id)
	if database.IsForeignKeyViolation(err) {
		return models.Player{}, errMissingTeam()
	}
	if err != nil {
		return models.Player{}, fmt.Errorf("failed to update player: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Player{}, notFoundf("Player not found")
	}

	recordEvent(ctx, s.events, "player.update", LevelInfo, fmt.Sprintf("Player '%s' updated", in.Name), &id)
	return s.GetPlayerByID(ctx, id)
}

func (s *PlayerService) DeletePlayer(ctx context.Context, id string) error {
	if err := deleteByID(ctx, s.db, "players", id, "Player not found"); err != nil {
		return err
	}
	recordEvent(ctx, s.events, "player.delete", LevelInfo, fmt.Sprintf("Player %s deleted", id), &id)
	return nil
}

func (s *PlayerService) validate(ctx context.Context, in *PlayerInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Position = strings.TrimSpace(in.Position)
	in.TeamID = strings.TrimSpace(in.TeamID)
	if err := validateStruct(*in); err != nil {
		return err
	}
	ok, err := rowExists(ctx, s.db, "teams", in.TeamID)
	if err != nil {
		return err
	}
	if !ok {
		return errMissingTeam()
	}
	return nil
}
