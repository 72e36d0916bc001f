package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Godfather59/score-app/internal/models"
	"github.com/Godfather59/score-app/internal/services"
)

type staticHost struct {
	stats models.HostStats
	ok    bool
}

func (h staticHost) Latest() (models.HostStats, bool) { return h.stats, h.ok }

type staticClients int

func (c staticClients) ClientCount() int { return int(c) }

func TestDashboardService_GetDashboard(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.users.CreateUser(ctx, services.CreateUserInput{Username: "admin", Email: "admin@example.com", Password: "secret123", Role: "admin"})
	require.NoError(t, err)
	home := e.team(t, "Arsenal")
	away := e.team(t, "Chelsea")
	_, err = e.players.CreatePlayer(ctx, services.PlayerInput{Name: "Saka", TeamID: home, Position: "Forward"})
	require.NoError(t, err)
	_, err = e.matches.CreateMatch(ctx, services.MatchInput{HomeTeamID: home, AwayTeamID: away, Date: "2026-05-01", Time: "15:00", Status: "live"})
	require.NoError(t, err)

	sampled := models.HostStats{CPUPercent: 12.5, SampledAt: time.Date(2026, 5, 1, 15, 0, 0, 0, time.UTC)}
	svc := services.NewDashboardService(e.db, e.matches, staticHost{stats: sampled, ok: true}, staticClients(3))

	d, err := svc.GetDashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Users)
	assert.Equal(t, 2, d.Teams)
	assert.Equal(t, 1, d.Players)
	assert.Equal(t, 1, d.Matches)
	assert.Equal(t, 0, d.Referees)
	assert.Equal(t, map[models.MatchStatus]int{models.MatchLive: 1}, d.MatchStatuses)
	assert.Equal(t, 3, d.LiveClients)
	require.NotNil(t, d.Host)
	assert.Equal(t, 12.5, d.Host.CPUPercent)
}

func TestDashboardService_WithoutHostSample(t *testing.T) {
	e := newEnv(t)

	d, err := services.NewDashboardService(e.db, e.matches, staticHost{}, nil).GetDashboard(context.Background())
	require.NoError(t, err)
	assert.Nil(t, d.Host)
	assert.Zero(t, d.LiveClients)
	assert.Empty(t, d.MatchStatuses)
}
