package database

import (
	"database/sql"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// SeedTeacher provisions the single teacher account. An existing row with
// the same username is left untouched, so restarting never resets it.
func SeedTeacher(db *sql.DB, username, password string) (bool, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hash seed password: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`INSERT OR IGNORE INTO users (username, password_hash) VALUES (?, ?);`, username, string(hash))
	if err != nil {
		return false, fmt.Errorf("insert seed user %s: %w", username, err)
	}
	aff, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	return aff > 0, nil
}
