package database_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Godfather59/score-app/internal/database"
	"github.com/Godfather59/score-app/internal/testutil"
)

func TestMigrateIsIdempotent(t *testing.T) {
	db := testutil.OpenInMemoryDB(t)

	require.NoError(t, database.Migrate(db))

	var count int
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM schema_migrations`))
	assert.Equal(t, 1, count)

	for _, table := range []string{"users", "teams", "players", "matches", "referees", "events"} {
		var n int
		err := db.Get(&n, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "table %s should exist", table)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	db := testutil.OpenInMemoryDB(t)
	now := time.Now().UTC()

	insert := `INSERT INTO users (id, username, email, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, 'user', ?, ?)`
	_, err := db.Exec(insert, "u1", "alice", "alice@example.com", "hash", now, now)
	require.NoError(t, err)

	_, err = db.Exec(insert, "u2", "alice", "other@example.com", "hash", now, now)
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err))
	assert.False(t, database.IsForeignKeyViolation(err))
	assert.False(t, database.IsUniqueViolation(nil))
}

func TestForeignKeysEnforced(t *testing.T) {
	db := testutil.OpenInMemoryDB(t)
	now := time.Now().UTC()

	_, err := db.Exec(`INSERT INTO players (id, name, team_id, position, goals, created_at, updated_at)
		VALUES ('p1', 'Ghost', 'missing-team', 'FW', 0, ?, ?)`, now, now)
	require.Error(t, err)
	assert.True(t, database.IsForeignKeyViolation(err))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := database.Open("mysql", "whatever", 1)
	assert.Error(t, err)
}
