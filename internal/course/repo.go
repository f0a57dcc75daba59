package course

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"lessonhub/internal/slug"
	"lessonhub/pkg/database"
	"lessonhub/pkg/models"
)

var (
	ErrNotFound      = errors.New("course not found")
	ErrTitleRequired = errors.New("course title is required")
)

// how many times Create re-probes when another writer wins the same slug
const maxSlugAttempts = 5

// List returns every course, newest first.
func List(ctx context.Context, db database.DBTX) ([]models.Course, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, title, slug FROM courses ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []models.Course{}
	for rows.Next() {
		var c models.Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Slug); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func GetBySlug(ctx context.Context, db database.DBTX, s string) (models.Course, error) {
	var c models.Course
	err := db.QueryRowContext(ctx, `SELECT id, title, slug FROM courses WHERE slug = ?`, s).
		Scan(&c.ID, &c.Title, &c.Slug)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	return c, err
}

func GetByID(ctx context.Context, db database.DBTX, id int64) (models.Course, error) {
	var c models.Course
	err := db.QueryRowContext(ctx, `SELECT id, title, slug FROM courses WHERE id = ?`, id).
		Scan(&c.ID, &c.Title, &c.Slug)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	return c, err
}

func SlugExists(ctx context.Context, db database.DBTX, s string) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, `SELECT 1 FROM courses WHERE slug = ?`, s).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Create inserts a course under the first free slug derived from title.
// The probe and the insert are not atomic; a UNIQUE violation from a
// concurrent creator triggers a fresh probe.
func Create(ctx context.Context, db database.DBTX, title string) (models.Course, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.Course{}, ErrTitleRequired
	}
	base := slug.Slugify(title)
	exists := func(ctx context.Context, s string) (bool, error) { return SlugExists(ctx, db, s) }

	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		s, err := slug.Unique(ctx, base, exists)
		if err != nil {
			return models.Course{}, err
		}
		res, err := db.ExecContext(ctx, `INSERT INTO courses (title, slug) VALUES (?, ?)`, title, s)
		if isUniqueViolation(err) {
			continue
		}
		if err != nil {
			return models.Course{}, fmt.Errorf("insert course %q: %w", s, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return models.Course{}, err
		}
		return models.Course{ID: id, Title: title, Slug: s}, nil
	}
	return models.Course{}, fmt.Errorf("insert course: slug %q still contended after %d attempts", base, maxSlugAttempts)
}

// Delete removes a course; its lessons go with it through ON DELETE CASCADE.
func Delete(ctx context.Context, db database.DBTX, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM courses WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}
