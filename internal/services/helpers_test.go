package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Godfather59/score-app/internal/auth"
	"github.com/Godfather59/score-app/internal/services"
	"github.com/Godfather59/score-app/internal/storage"
	"github.com/Godfather59/score-app/internal/testutil"
)

// pngHeader is enough of a PNG file for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

type broadcast struct {
	topic   string
	message string
}

type fakeHub struct {
	mu   sync.Mutex
	sent []broadcast
}

func (h *fakeHub) BroadcastTo(topic string, message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, broadcast{topic: topic, message: string(message)})
}

func (h *fakeHub) topics() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.sent))
	for i, b := range h.sent {
		out[i] = b.topic
	}
	return out
}

type env struct {
	db       *sqlx.DB
	store    *storage.LocalService
	hub      *fakeHub
	events   *services.EventService
	users    *services.UserService
	teams    *services.TeamService
	players  *services.PlayerService
	referees *services.RefereeService
	matches  *services.MatchService
	tokens   *auth.TokenManager
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.OpenInMemoryDB(t)
	store, err := storage.NewLocalService(t.TempDir(), "/uploads")
	require.NoError(t, err)

	e := &env{db: db, store: store, hub: &fakeHub{}}
	e.tokens = auth.NewTokenManager("test-secret", time.Hour)
	e.events = services.NewEventService(db, nil)
	e.users = services.NewUserService(db, auth.NewPasswordHasher(bcrypt.MinCost), e.tokens, e.events)
	e.teams = services.NewTeamService(db, store, e.events)
	e.players = services.NewPlayerService(db, e.events)
	e.referees = services.NewRefereeService(db, e.events)
	e.matches = services.NewMatchService(db, store, e.hub, e.events, time.UTC)
	return e
}

func (e *env) team(t *testing.T, name string) string {
	t.Helper()
	team, err := e.teams.CreateTeam(context.Background(), services.TeamInput{Name: name, League: "Premier League"}, nil)
	require.NoError(t, err)
	return team.ID
}

func fields(t *testing.T, err error) []string {
	t.Helper()
	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)
	out := make([]string, len(verr.Fields))
	for i, f := range verr.Fields {
		out[i] = f.Field
	}
	return out
}

func intPtr(v int) *int { return &v }

// deleteTeamBeforeWrite installs a trigger that removes the referenced team
// right before each write to table, after the service has validated it.
func (e *env) deleteTeamBeforeWrite(t *testing.T, table, op, column string) {
	t.Helper()
	name := "drop_team_before_" + op + "_" + table
	_, err := e.db.Exec(`CREATE TRIGGER ` + name + ` BEFORE ` + op + ` ON ` + table + `
		BEGIN DELETE FROM teams WHERE id = NEW.` + column + `; END`)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = e.db.Exec(`DROP TRIGGER IF EXISTS ` + name) })
}
