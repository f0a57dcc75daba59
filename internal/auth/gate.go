package auth

import (
	"context"
	"net/http"
	"time"

	"lessonhub/internal/user"
	"lessonhub/pkg/database"
)

// CookieName holds the signed session token.
const CookieName = "session"

// Gate checks credentials and issues or revokes browser sessions.
type Gate struct {
	db       database.DBTX
	sessions *SessionStore
	secret   []byte
	ttl      time.Duration
}

func NewGate(db database.DBTX, secret []byte, ttl time.Duration) *Gate {
	return &Gate{db: db, sessions: NewSessionStore(db), secret: secret, ttl: ttl}
}

func (g *Gate) Sessions() *SessionStore { return g.sessions }

// Login verifies the credentials and returns the cookie that carries the
// new session. Failures are user.ErrInvalidCredentials.
func (g *Gate) Login(ctx context.Context, username, password string) (*http.Cookie, error) {
	u, err := user.VerifyLogin(ctx, g.db, username, password)
	if err != nil {
		return nil, err
	}
	token, err := g.sessions.Create(ctx, u.Username, g.ttl)
	if err != nil {
		return nil, err
	}
	signed, err := SignJWT(g.secret, token, u.Username, g.ttl)
	if err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(g.ttl / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Resolve maps a session cookie value to the logged-in username.
func (g *Gate) Resolve(ctx context.Context, cookieValue string) (string, error) {
	claims, err := ParseJWT(g.secret, cookieValue)
	if err != nil {
		return "", ErrNoSession
	}
	return g.sessions.Lookup(ctx, claims.ID)
}

// Logout revokes the session behind cookieValue, if any, and returns a
// cookie that clears it in the browser.
func (g *Gate) Logout(ctx context.Context, cookieValue string) (*http.Cookie, error) {
	expired := &http.Cookie{Name: CookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true}
	if cookieValue == "" {
		return expired, nil
	}
	claims, err := ParseJWT(g.secret, cookieValue)
	if err != nil {
		return expired, nil
	}
	return expired, g.sessions.Delete(ctx, claims.ID)
}
