package services_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Godfather59/score-app/internal/models"
	"github.com/Godfather59/score-app/internal/services"
	"github.com/Godfather59/score-app/internal/websocket"
)

func TestMatchService_CreateAndNotify(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	home, err := e.teams.CreateTeam(ctx, services.TeamInput{Name: "Arsenal"}, &services.Upload{Body: bytes.NewReader(pngHeader)})
	require.NoError(t, err)
	away := e.team(t, "Chelsea")

	match, err := e.matches.CreateMatch(ctx, services.MatchInput{
		HomeTeamID: home.ID, AwayTeamID: away, Date: "2026-05-01", Time: "9:30", League: "Premier League",
	})
	require.NoError(t, err)
	assert.Equal(t, models.MatchUpcoming, match.Status)
	assert.Equal(t, "09:30", match.Time)
	assert.Equal(t, "Arsenal", match.HomeTeamName)
	assert.Equal(t, "Chelsea", match.AwayTeamName)
	assert.Equal(t, home.Logo, match.HomeTeamLogo)
	assert.Empty(t, match.AwayTeamLogo)
	assert.Nil(t, match.HomeScore)

	assert.Equal(t, []string{match.ID, websocket.GlobalTopic}, e.hub.topics())

	var msg struct {
		Action  string       `json:"action"`
		Payload models.Match `json:"payload"`
	}
	require.NoError(t, json.Unmarshal([]byte(e.hub.sent[0].message), &msg))
	assert.Equal(t, "match_created", msg.Action)
	assert.Equal(t, match.ID, msg.Payload.ID)
}

func TestMatchService_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	home := e.team(t, "Arsenal")
	away := e.team(t, "Chelsea")

	tests := []struct {
		name  string
		in    services.MatchInput
		field string
	}{
		{"same team", services.MatchInput{HomeTeamID: home, AwayTeamID: home, Date: "2026-05-01", Time: "15:00"}, "away_team_id"},
		{"bad date", services.MatchInput{HomeTeamID: home, AwayTeamID: away, Date: "01/05/2026", Time: "15:00"}, "date"},
		{"bad time", services.MatchInput{HomeTeamID: home, AwayTeamID: away, Date: "2026-05-01", Time: "25:00"}, "time"},
		{"bad status", services.MatchInput{HomeTeamID: home, AwayTeamID: away, Date: "2026-05-01", Time: "15:00", Status: "abandoned"}, "status"},
		{"negative score", services.MatchInput{HomeTeamID: home, AwayTeamID: away, Date: "2026-05-01", Time: "15:00", HomeScore: intPtr(-1)}, "home_score"},
		{"unknown home team", services.MatchInput{HomeTeamID: "nope", AwayTeamID: away, Date: "2026-05-01", Time: "15:00"}, "home_team_id"},
		{"unknown away team", services.MatchInput{HomeTeamID: home, AwayTeamID: "nope", Date: "2026-05-01", Time: "15:00"}, "away_team_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.matches.CreateMatch(ctx, tt.in)
			assert.Equal(t, []string{tt.field}, fields(t, err))
		})
	}
	assert.Empty(t, e.hub.topics())
}

func TestMatchService_UpdateDeleteAndFilter(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	arsenal := e.team(t, "Arsenal")
	chelsea := e.team(t, "Chelsea")
	spurs := e.team(t, "Tottenham")

	first, err := e.matches.CreateMatch(ctx, services.MatchInput{HomeTeamID: arsenal, AwayTeamID: chelsea, Date: "2026-05-01", Time: "15:00"})
	require.NoError(t, err)
	second, err := e.matches.CreateMatch(ctx, services.MatchInput{HomeTeamID: chelsea, AwayTeamID: spurs, Date: "2026-05-08", Time: "17:30"})
	require.NoError(t, err)

	finished, err := e.matches.UpdateMatch(ctx, first.ID, services.MatchInput{
		HomeTeamID: arsenal, AwayTeamID: chelsea, Date: "2026-05-01", Time: "15:00",
		Status: "completed", HomeScore: intPtr(2), AwayScore: intPtr(1),
	})
	require.NoError(t, err)
	assert.Equal(t, models.MatchCompleted, finished.Status)
	assert.Equal(t, 2, *finished.HomeScore)

	_, err = e.matches.UpdateMatch(ctx, "missing", services.MatchInput{HomeTeamID: arsenal, AwayTeamID: chelsea, Date: "2026-05-01", Time: "15:00"})
	assert.ErrorIs(t, err, services.ErrNotFound)

	all, err := e.matches.GetAllMatches(ctx, services.MatchFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID, "newest kickoff first")

	completed, err := e.matches.GetAllMatches(ctx, services.MatchFilter{Status: "completed"})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, first.ID, completed[0].ID)

	spursMatches, err := e.matches.GetAllMatches(ctx, services.MatchFilter{TeamID: spurs})
	require.NoError(t, err)
	require.Len(t, spursMatches, 1)
	assert.Equal(t, second.ID, spursMatches[0].ID)

	counts, err := e.matches.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[models.MatchStatus]int{models.MatchCompleted: 1, models.MatchUpcoming: 1}, counts)

	require.NoError(t, e.matches.DeleteMatch(ctx, second.ID))
	assert.ErrorIs(t, e.matches.DeleteMatch(ctx, second.ID), services.ErrNotFound)

	// Deleting a team removes its fixtures.
	require.NoError(t, e.teams.DeleteTeam(ctx, arsenal))
	_, err = e.matches.GetMatchByID(ctx, first.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestMatchService_AdvanceStatuses(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	home := e.team(t, "Arsenal")
	away := e.team(t, "Chelsea")

	kickoff, err := e.matches.CreateMatch(ctx, services.MatchInput{HomeTeamID: home, AwayTeamID: away, Date: "2026-05-01", Time: "15:00"})
	require.NoError(t, err)
	postponed, err := e.matches.CreateMatch(ctx, services.MatchInput{HomeTeamID: away, AwayTeamID: home, Date: "2026-05-01", Time: "12:00", Status: "postponed"})
	require.NoError(t, err)

	at := func(hhmm string) time.Time {
		ts, err := time.ParseInLocation("2006-01-02 15:04", "2026-05-01 "+hhmm, time.UTC)
		require.NoError(t, err)
		return ts
	}

	n, err := e.matches.AdvanceStatuses(ctx, at("14:59"), 2*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = e.matches.AdvanceStatuses(ctx, at("15:00"), 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	m, err := e.matches.GetMatchByID(ctx, kickoff.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchLive, m.Status)

	n, err = e.matches.AdvanceStatuses(ctx, at("17:00"), 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	m, err = e.matches.GetMatchByID(ctx, kickoff.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchCompleted, m.Status)

	// Postponed matches are left alone.
	p, err := e.matches.GetMatchByID(ctx, postponed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchPostponed, p.Status)

	// Completed matches never move again.
	n, err = e.matches.AdvanceStatuses(ctx, at("23:00"), 2*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMatchService_TeamDeletedDuringWrite(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	arsenal := e.team(t, "Arsenal")
	chelsea := e.team(t, "Chelsea")
	spurs := e.team(t, "Tottenham")

	match, err := e.matches.CreateMatch(ctx, services.MatchInput{HomeTeamID: arsenal, AwayTeamID: chelsea, Date: "2026-05-01", Time: "15:00"})
	require.NoError(t, err)

	teamFields := []string{"home_team_id", "away_team_id"}

	e.deleteTeamBeforeWrite(t, "matches", "UPDATE", "away_team_id")
	_, err = e.matches.UpdateMatch(ctx, match.ID, services.MatchInput{HomeTeamID: arsenal, AwayTeamID: spurs, Date: "2026-05-01", Time: "15:00"})
	require.ErrorIs(t, err, services.ErrValidation)
	assert.Subset(t, teamFields, fields(t, err))

	e.deleteTeamBeforeWrite(t, "matches", "INSERT", "away_team_id")
	_, err = e.matches.CreateMatch(ctx, services.MatchInput{HomeTeamID: chelsea, AwayTeamID: spurs, Date: "2026-05-08", Time: "15:00"})
	require.ErrorIs(t, err, services.ErrValidation)
	assert.Subset(t, teamFields, fields(t, err))

	got, err := e.matches.GetMatchByID(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, chelsea, got.AwayTeamID)
}
