package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"lessonhub/pkg/database"
)

var ErrNoSession = errors.New("no active session")

// SessionStore keeps logged-in sessions in the sessions table, keyed by a
// random token handed to the browser.
type SessionStore struct {
	db  database.DBTX
	now func() time.Time
}

func NewSessionStore(db database.DBTX) *SessionStore {
	return &SessionStore{db: db, now: time.Now}
}

func (s *SessionStore) Create(ctx context.Context, username string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	expires := s.now().UTC().Add(ttl).Truncate(time.Second)
	_, err := s.db.ExecContext(ctx, `INSERT INTO sessions (token, username, expires_at) VALUES (?, ?, ?)`,
		token, username, expires)
	if err != nil {
		return "", err
	}
	return token, nil
}

// Lookup returns the username bound to token. Expired sessions are removed.
func (s *SessionStore) Lookup(ctx context.Context, token string) (string, error) {
	var (
		username string
		expires  time.Time
	)
	err := s.db.QueryRowContext(ctx, `SELECT username, expires_at FROM sessions WHERE token = ?`, token).
		Scan(&username, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", err
	}
	if !s.now().Before(expires) {
		_ = s.Delete(ctx, token)
		return "", ErrNoSession
	}
	return username, nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return err
}

// PurgeExpired drops every session past its expiry and reports how many went.
func (s *SessionStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, s.now().UTC().Truncate(time.Second))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
