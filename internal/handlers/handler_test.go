// handler_test.go provides a shared test harness that wires real stores,
// a token manager, and the production router against a local PostgreSQL
// database. Tests are skipped if the database is not available.
package handlers_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"shopdesk/internal/database"
	"shopdesk/internal/handlers"
	"shopdesk/internal/router"
	"shopdesk/internal/store"
	"shopdesk/internal/token"
)

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

// testServer builds the full production router against the test database.
// Image upload runs without a storage backend, matching a deployment with
// no S3 configured.
func testServer(t *testing.T) (chi.Router, *sql.DB) {
	t.Helper()

	db, err := sql.Open("pgx", testDSN())
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	goose.SetBaseFS(nil)
	t.Cleanup(func() { db.Close() })

	tokens := token.NewManager("test-secret", time.Hour, nil)
	auth := handlers.NewAuth(store.NewUserStore(db), tokens)
	categories := handlers.NewCategories(store.NewCategoryStore(db, store.AllocGapFill))
	products := handlers.NewProducts(store.NewProductStore(db, store.AllocGapFill))
	upload := handlers.NewUpload(nil)

	return router.New(tokens, auth, categories, products, upload), db
}

// cleanUsers removes test users; owned rows cascade.
func cleanUsers(t *testing.T, db *sql.DB, usernames ...string) {
	t.Helper()
	for _, username := range usernames {
		db.Exec("DELETE FROM users WHERE username = $1", username)
	}
}

// doJSON performs a request with an optional bearer token and JSON body.
func doJSON(t *testing.T, r chi.Router, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func itoa(id int) string { return strconv.Itoa(id) }

// decodeBody unmarshals a response body, failing the test on bad JSON.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// registerUser registers a fresh account through the API and returns its
// access token and user id. Cleanup is registered automatically.
func registerUser(t *testing.T, r chi.Router, db *sql.DB, username string) (string, int) {
	t.Helper()
	t.Cleanup(func() { cleanUsers(t, db, username) })

	rec := doJSON(t, r, http.MethodPost, "/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@handler-test.local",
		"password": "testpass123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %q: got %d: %s", username, rec.Code, rec.Body.String())
	}

	var resp struct {
		AccessToken string `json:"access_token"`
		User        struct {
			ID int `json:"id"`
		} `json:"user"`
	}
	decodeBody(t, rec, &resp)
	if resp.AccessToken == "" || resp.User.ID == 0 {
		t.Fatalf("register %q: incomplete response %s", username, rec.Body.String())
	}
	return resp.AccessToken, resp.User.ID
}
