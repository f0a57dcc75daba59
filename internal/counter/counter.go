package counter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"lessonhub/internal/lesson"
	"lessonhub/pkg/database"
)

// MarkerMaxAge keeps marker cookies around for roughly ten years.
const MarkerMaxAge = 10 * 365 * 24 * time.Hour

// Kind is a countable interaction on a lesson.
type Kind string

const (
	Like Kind = "like"
	View Kind = "view"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Like, View:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown counter kind %q", s)
}

func (k Kind) column() lesson.Counter {
	if k == Like {
		return lesson.Likes
	}
	return lesson.Views
}

// JSONKey is the response field carrying the count ("likes" or "views").
func (k Kind) JSONKey() string { return string(k.column()) }

// MarkerName is the cookie recording that this browser already counted.
func (k Kind) MarkerName(lessonID int64) string {
	if k == Like {
		return fmt.Sprintf("liked_%d", lessonID)
	}
	return fmt.Sprintf("viewed_%d", lessonID)
}

// Marker builds the long-lived cookie set after a first increment.
func (k Kind) Marker(lessonID int64) *http.Cookie {
	return &http.Cookie{
		Name:     k.MarkerName(lessonID),
		Value:    "1",
		Path:     "/",
		MaxAge:   int(MarkerMaxAge / time.Second),
		SameSite: http.SameSiteLaxMode,
	}
}

type Service struct {
	db database.DBTX
}

func NewService(db database.DBTX) *Service {
	return &Service{db: db}
}

// IncrementIfAbsent returns the current count untouched when the caller
// already carries the marker; otherwise it bumps the counter atomically.
func (s *Service) IncrementIfAbsent(ctx context.Context, lessonID int64, kind Kind, marked bool) (int, bool, error) {
	if marked {
		n, err := lesson.Count(ctx, s.db, lessonID, kind.column())
		return n, true, err
	}
	n, err := lesson.Increment(ctx, s.db, lessonID, kind.column())
	return n, false, err
}
