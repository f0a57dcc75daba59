package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"lessonhub/pkg/database"
	"lessonhub/pkg/models"
)

// OpenDB returns a migrated SQLite database living in the test's temp dir.
func OpenDB(tb testing.TB) *sql.DB {
	tb.Helper()
	db, err := database.Open(filepath.Join(tb.TempDir(), "site.db"))
	if err != nil {
		tb.Fatalf("open db: %v", err)
	}
	tb.Cleanup(func() { db.Close() })
	if err := database.Migrate(db); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return db
}

func SeedCourse(tb testing.TB, ctx context.Context, db *sql.DB, title, slug string) models.Course {
	tb.Helper()
	res, err := db.ExecContext(ctx, `INSERT INTO courses (title, slug) VALUES (?, ?)`, title, slug)
	if err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	id, _ := res.LastInsertId()
	return models.Course{ID: id, Title: title, Slug: slug}
}

func SeedLesson(tb testing.TB, ctx context.Context, db *sql.DB, courseID int64, title, filename string) int64 {
	tb.Helper()
	res, err := db.ExecContext(ctx, `INSERT INTO lessons (course_id, title, description, filename) VALUES (?, ?, '', ?)`,
		courseID, title, filename)
	if err != nil {
		tb.Fatalf("seed lesson: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

func CountRows(tb testing.TB, db *sql.DB, table string) int {
	tb.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		tb.Fatalf("count %s: %v", table, err)
	}
	return n
}
