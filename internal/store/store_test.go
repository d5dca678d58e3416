// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"shopdesk/internal/database"
	"shopdesk/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching local development.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "shopdesk")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "shopdesk")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped. A cleanup
// function is registered to close the connection when the test finishes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := testDSN()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	// Run migrations to ensure the schema is current.
	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Downgrade goose global state.
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// cleanUsers removes test users by username. Categories and products
// cascade via their owner foreign key. Call in t.Cleanup().
func cleanUsers(t *testing.T, db *sql.DB, usernames ...string) {
	t.Helper()
	for _, username := range usernames {
		db.Exec("DELETE FROM users WHERE username = $1", username)
	}
}

// createTestUser inserts a user for store tests and registers cleanup.
func createTestUser(t *testing.T, db *sql.DB, username string) *models.User {
	t.Helper()

	s := NewUserStore(db)
	t.Cleanup(func() { cleanUsers(t, db, username) })

	u, err := s.Create(context.Background(), username, username+"@store-test.local", "testpass123")
	if err != nil {
		t.Fatalf("create test user %q: %v", username, err)
	}
	return u
}

// expectedNextID recomputes the smallest free id in a table the same way
// the allocator defines it, so gap assertions hold even when earlier
// tests left unrelated gaps behind.
func expectedNextID(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	rows, err := db.Query("SELECT id FROM " + table + " ORDER BY id ASC")
	if err != nil {
		t.Fatalf("scan %s ids: %v", table, err)
	}
	defer rows.Close()

	next := 1
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			t.Fatalf("scan id: %v", err)
		}
		if id == next {
			next++
		}
	}
	return next
}
