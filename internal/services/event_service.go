package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/Godfather59/score-app/internal/messaging"
	"github.com/Godfather59/score-app/internal/models"
)

const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

const publishTimeout = 5 * time.Second

// EventServiceProvider defines the interface for the activity log.
type EventServiceProvider interface {
	CreateEvent(ctx context.Context, eventType, level, message string, subjectID *string) error
	GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error)
	PruneEvents(ctx context.Context, olderThan time.Time) (int64, error)
}

// EventService stores activity events and forwards them to the broker.
type EventService struct {
	db        *sqlx.DB
	publisher messaging.Publisher
}

// NewEventService creates a new EventService. A nil publisher disables forwarding.
func NewEventService(db *sqlx.DB, publisher messaging.Publisher) *EventService {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return &EventService{db: db, publisher: publisher}
}

// CreateEvent records an event. Forwarding to the broker happens in the
// background and its failures are only logged.
func (s *EventService) CreateEvent(ctx context.Context, eventType, level, message string, subjectID *string) error {
	event := models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Level:     level,
		Message:   message,
		SubjectID: subjectID,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.NamedExecContext(ctx, `INSERT INTO events (id, type, level, message, subject_id, created_at)
		VALUES (:id, :type, :level, :message, :subject_id, :created_at)`, event)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	go s.publish(event)
	return nil
}

func (s *EventService) publish(event models.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	key := event.Type
	if event.SubjectID != nil {
		key = *event.SubjectID
	}
	if err := s.publisher.Publish(ctx, key, event); err != nil {
		log.Warn().Err(err).Str("event_type", event.Type).Msg("Failed to publish event")
	}
}

// GetRecentEvents retrieves the most recent events, newest first.
func (s *EventService) GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	events := []models.Event{}
	err := s.db.SelectContext(ctx, &events, s.db.Rebind(`SELECT id, type, level, message, subject_id, created_at
		FROM events ORDER BY created_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return events, nil
}

// PruneEvents deletes events created before olderThan.
func (s *EventService) PruneEvents(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM events WHERE created_at < ?`), olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune events: %w", err)
	}
	return res.RowsAffected()
}

// recordEvent writes to the activity log without failing the caller.
func recordEvent(ctx context.Context, events EventServiceProvider, eventType, level, message string, subjectID *string) {
	if events == nil {
		return
	}
	// The request may already be finishing; the log entry should still land.
	ctx = context.WithoutCancel(ctx)
	if err := events.CreateEvent(ctx, eventType, level, message, subjectID); err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Msg("Failed to record event")
	}
}
