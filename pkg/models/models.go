package models

import "time"

// users table
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}

// courses table
type Course struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

// lessons table; Filename is relative to the static root (uploads/<slug>/<name>)
type Lesson struct {
	ID          int64     `json:"id"`
	CourseID    int64     `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Filename    string    `json:"filename"`
	CreatedAt   time.Time `json:"created_at"`
	Likes       int       `json:"likes"`
	Views       int       `json:"views"`
}

// LessonDetail is a lesson joined with the course it belongs to.
type LessonDetail struct {
	Lesson
	CourseTitle string `json:"course_title"`
	CourseSlug  string `json:"course_slug"`
}
