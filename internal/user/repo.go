package user

import (
	"context"
	"database/sql"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"lessonhub/pkg/database"
	"lessonhub/pkg/models"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

func CreateUser(ctx context.Context, db database.DBTX, username, password string) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, `INSERT INTO users(username, password_hash) VALUES(?,?)`, username, string(hash))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// VerifyLogin looks the username up exactly and checks the password hash.
// Unknown users and wrong passwords are indistinguishable to the caller.
func VerifyLogin(ctx context.Context, db database.DBTX, username, password string) (models.User, error) {
	var u models.User
	err := db.QueryRowContext(ctx, `SELECT id, username, password_hash FROM users WHERE username = ?`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return u, nil
}
