package services

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Godfather59/score-app/internal/models"
)

// HostStatsSource provides the latest host sample, if one was taken.
type HostStatsSource interface {
	Latest() (models.HostStats, bool)
}

// ClientCounter reports the number of live websocket clients.
type ClientCounter interface {
	ClientCount() int
}

// DashboardServiceProvider defines the interface for the admin dashboard.
type DashboardServiceProvider interface {
	GetDashboard(ctx context.Context) (models.Dashboard, error)
}

type DashboardService struct {
	db      *sqlx.DB
	matches MatchServiceProvider
	host    HostStatsSource
	clients ClientCounter
}

// NewDashboardService creates a new DashboardService. host and clients may be nil.
func NewDashboardService(db *sqlx.DB, matches MatchServiceProvider, host HostStatsSource, clients ClientCounter) *DashboardService {
	return &DashboardService{db: db, matches: matches, host: host, clients: clients}
}

func (s *DashboardService) GetDashboard(ctx context.Context) (models.Dashboard, error) {
	var d models.Dashboard
	for _, c := range []struct {
		table string
		dst   *int
	}{
		{"users", &d.Users},
		{"teams", &d.Teams},
		{"players", &d.Players},
		{"matches", &d.Matches},
		{"referees", &d.Referees},
	} {
		if err := s.db.GetContext(ctx, c.dst, `SELECT COUNT(*) FROM `+c.table); err != nil {
			return models.Dashboard{}, fmt.Errorf("failed to count %s: %w", c.table, err)
		}
	}

	statuses, err := s.matches.CountByStatus(ctx)
	if err != nil {
		return models.Dashboard{}, err
	}
	d.MatchStatuses = statuses

	if s.clients != nil {
		d.LiveClients = s.clients.ClientCount()
	}
	if s.host != nil {
		if stats, ok := s.host.Latest(); ok {
			d.Host = &stats
		}
	}
	return d, nil
}
