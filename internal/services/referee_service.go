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

	"github.com/Godfather59/score-app/internal/models"
)

type RefereeInput struct {
	Name    string `json:"name" validate:"required,max=100"`
	Country string `json:"country" validate:"max=100"`
	Matches int    `json:"matches" validate:"gte=0"`
}

// RefereeServiceProvider defines the interface for referee services.
type RefereeServiceProvider interface {
	GetAllReferees(ctx context.Context) ([]models.Referee, error)
	GetRefereeByID(ctx context.Context, id string) (models.Referee, error)
	CreateReferee(ctx context.Context, in RefereeInput) (models.Referee, error)
	UpdateReferee(ctx context.Context, id string, in RefereeInput) (models.Referee, error)
	DeleteReferee(ctx context.Context, id string) error
}

type RefereeService struct {
	db     *sqlx.DB
	events EventServiceProvider
}

func NewRefereeService(db *sqlx.DB, events EventServiceProvider) *RefereeService {
	return &RefereeService{db: db, events: events}
}

const refereeColumns = `id, name, country, matches, created_at, updated_at`

func (s *RefereeService) GetAllReferees(ctx context.Context) ([]models.Referee, error) {
	referees := []models.Referee{}
	if err := s.db.SelectContext(ctx, &referees, `SELECT `+refereeColumns+` FROM referees ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to query referees: %w", err)
	}
	return referees, nil
}

func (s *RefereeService) GetRefereeByID(ctx context.Context, id string) (models.Referee, error) {
	var referee models.Referee
	err := s.db.GetContext(ctx, &referee, s.db.Rebind(`SELECT `+refereeColumns+` FROM referees WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Referee{}, notFoundf("Referee not found")
	}
	if err != nil {
		return models.Referee{}, fmt.Errorf("failed to query referee: %w", err)
	}
	return referee, nil
}

func (s *RefereeService) CreateReferee(ctx context.Context, in RefereeInput) (models.Referee, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Country = strings.TrimSpace(in.Country)
	if err := validateStruct(in); err != nil {
		return models.Referee{}, err
	}

	now := time.Now().UTC()
	referee := models.Referee{
		ID:        uuid.New().String(),
		Name:      in.Name,
		Country:   in.Country,
		Matches:   in.Matches,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO referees (id, name, country, matches, created_at, updated_at)
		VALUES (:id, :name, :country, :matches, :created_at, :updated_at)`, referee)
	if err != nil {
		return models.Referee{}, fmt.Errorf("failed to insert referee: %w", err)
	}

	recordEvent(ctx, s.events, "referee.create", LevelInfo, fmt.Sprintf("Referee '%s' created", referee.Name), &referee.ID)
	return referee, nil
}

func (s *RefereeService) UpdateReferee(ctx context.Context, id string, in RefereeInput) (models.Referee, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Country = strings.TrimSpace(in.Country)
	if err := validateStruct(in); err != nil {
		return models.Referee{}, err
	}

	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE referees SET name = ?, country = ?, matches = ?, updated_at = ? WHERE id = ?`),
		in.Name, in.Country, in.Matches, time.Now().UTC(), id)
	if err != nil {
		return models.Referee{}, fmt.Errorf("failed to update referee: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Referee{}, notFoundf("Referee not found")
	}

	recordEvent(ctx, s.events, "referee.update", LevelInfo, fmt.Sprintf("Referee '%s' updated", in.Name), &id)
	return s.GetRefereeByID(ctx, id)
}

func (s *RefereeService) DeleteReferee(ctx context.Context, id string) error {
	if err := deleteByID(ctx, s.db, "referees", id, "Referee not found"); err != nil {
		return err
	}
	recordEvent(ctx, s.events, "referee.delete", LevelInfo, fmt.Sprintf("Referee %s deleted", id), &id)
	return nil
}
