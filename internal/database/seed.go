package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// Seed inserts a demo account with one category and one product so a
// fresh development database has something to click on. No-op when any
// user already exists.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("demo1234"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	var userID int
	err = db.QueryRow(`
		INSERT INTO users (username, email, password_hash)
		VALUES ('demo', 'demo@shopdesk.local', $1)
		RETURNING id
	`, string(hash)).Scan(&userID)
	if err != nil {
		return fmt.Errorf("seed user: %w", err)
	}

	var categoryID int
	err = db.QueryRow(`
		INSERT INTO categories (name, user_id)
		VALUES ('Electronics', $1)
		RETURNING id
	`, userID).Scan(&categoryID)
	if err != nil {
		return fmt.Errorf("seed category: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO products (name, description, price, stock, user_id, category_id)
		VALUES ('Wireless Mouse', '2.4 GHz wireless mouse with USB receiver', 29.99, 25, $1, $2)
	`, userID, categoryID)
	if err != nil {
		return fmt.Errorf("seed product: %w", err)
	}

	slog.Info("seeded demo data", "username", "demo")
	return nil
}
