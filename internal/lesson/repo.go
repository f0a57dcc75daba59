package lesson

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lessonhub/pkg/database"
	"lessonhub/pkg/models"
)

var ErrNotFound = errors.New("lesson not found")

// Counter names a per-lesson counter column.
type Counter string

const (
	Likes Counter = "likes"
	Views Counter = "views"
)

// Valid guards the column name before it is spliced into SQL.
func (c Counter) Valid() bool {
	return c == Likes || c == Views
}

const lessonCols = `id, course_id, title, description, filename, created_at, likes, views`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLesson(r rowScanner, extra ...any) (models.Lesson, error) {
	var (
		l         models.Lesson
		desc      sql.NullString
		createdAt sql.NullTime
	)
	dest := append([]any{&l.ID, &l.CourseID, &l.Title, &desc, &l.Filename, &createdAt, &l.Likes, &l.Views}, extra...)
	if err := r.Scan(dest...); err != nil {
		return l, err
	}
	l.Description = desc.String
	l.CreatedAt = createdAt.Time
	return l, nil
}

// Create inserts a lesson row; created_at and the counters take their defaults.
func Create(ctx context.Context, db database.DBTX, courseID int64, title, description, filename string) (int64, error) {
	res, err := db.ExecContext(ctx, `INSERT INTO lessons (course_id, title, description, filename) VALUES (?, ?, ?, ?)`,
		courseID, title, description, filename)
	if err != nil {
		return 0, fmt.Errorf("insert lesson: %w", err)
	}
	return res.LastInsertId()
}

// ListByCourse returns a course's lessons by id, ascending unless newestFirst.
func ListByCourse(ctx context.Context, db database.DBTX, courseID int64, newestFirst bool) ([]models.Lesson, error) {
	q := `SELECT ` + lessonCols + ` FROM lessons WHERE course_id = ? ORDER BY id ASC`
	if newestFirst {
		q = `SELECT ` + lessonCols + ` FROM lessons WHERE course_id = ? ORDER BY id DESC`
	}
	rows, err := db.QueryContext(ctx, q, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []models.Lesson{}
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

func Get(ctx context.Context, db database.DBTX, id int64) (models.Lesson, error) {
	l, err := scanLesson(db.QueryRowContext(ctx, `SELECT `+lessonCols+` FROM lessons WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return l, ErrNotFound
	}
	return l, err
}

// GetDetail loads a lesson together with its course title and slug.
func GetDetail(ctx context.Context, db database.DBTX, id int64) (models.LessonDetail, error) {
	var d models.LessonDetail
	row := db.QueryRowContext(ctx, `
		SELECT l.id, l.course_id, l.title, l.description, l.filename, l.created_at, l.likes, l.views,
		       c.title, c.slug
		FROM lessons l
		JOIN courses c ON c.id = l.course_id
		WHERE l.id = ?`, id)
	l, err := scanLesson(row, &d.CourseTitle, &d.CourseSlug)
	if errors.Is(err, sql.ErrNoRows) {
		return d, ErrNotFound
	}
	if err != nil {
		return d, err
	}
	d.Lesson = l
	return d, nil
}

// Update overwrites title and filename as given; the filename is not checked
// against the asset store.
func Update(ctx context.Context, db database.DBTX, id int64, title, filename string) error {
	res, err := db.ExecContext(ctx, `UPDATE lessons SET title = ?, filename = ? WHERE id = ?`, title, filename, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the row only. The uploaded file stays where it is.
func Delete(ctx context.Context, db database.DBTX, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM lessons WHERE id = ?`, id)
	return err
}

// Increment bumps a counter in a single statement and returns the new value.
func Increment(ctx context.Context, db database.DBTX, id int64, c Counter) (int, error) {
	if !c.Valid() {
		return 0, fmt.Errorf("unknown counter %q", c)
	}
	var n int
	err := db.QueryRowContext(ctx,
		`UPDATE lessons SET `+string(c)+` = `+string(c)+` + 1 WHERE id = ? RETURNING `+string(c), id).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return n, err
}

func Count(ctx context.Context, db database.DBTX, id int64, c Counter) (int, error) {
	if !c.Valid() {
		return 0, fmt.Errorf("unknown counter %q", c)
	}
	var n int
	err := db.QueryRowContext(ctx, `SELECT `+string(c)+` FROM lessons WHERE id = ?`, id).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return n, err
}
