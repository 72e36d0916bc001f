package testutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Godfather59/score-app/internal/database"
)

// OpenInMemoryDB opens a private in-memory SQLite database with all
// migrations applied. The database is closed when the test ends.
func OpenInMemoryDB(t testing.TB) *sqlx.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := database.Open(database.DriverSQLite, dsn, 1)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}
