package web

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"lessonhub/internal/assets"
	"lessonhub/internal/auth"
	"lessonhub/internal/counter"
	"lessonhub/internal/course"
	"lessonhub/internal/lesson"
	"lessonhub/internal/logger"
	"lessonhub/internal/user"
)

// multipart parts beyond this spill to temp files
const maxMultipartMemory = 32 << 20

type Handler struct {
	db      *sql.DB
	gate    *auth.Gate
	assets  *assets.Store
	counter *counter.Service
	flash   *Flasher
	log     *logger.Logger
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}

// render pops pending flashes, adds any given inline, and writes the page.
func (h *Handler) render(c *gin.Context, status int, name string, data gin.H, inline ...Flash) {
	if data == nil {
		data = gin.H{}
	}
	data["flashes"] = append(h.flash.Pop(c), inline...)
	data["loggedIn"] = auth.IsLoggedIn(c)
	data["username"] = auth.Username(c)
	c.HTML(status, name, data)
}

func (h *Handler) notFound(c *gin.Context) {
	h.render(c, http.StatusNotFound, "not_found.html", nil)
}

func (h *Handler) fail(c *gin.Context, err error) {
	h.log.Error("request failed", "path", c.Request.URL.Path, "error", err)
	c.String(http.StatusInternalServerError, "internal server error")
}

func (h *Handler) redirectWith(c *gin.Context, to, category, message string) {
	h.flash.Add(c, category, message)
	c.Redirect(http.StatusFound, to)
}

// public pages

func (h *Handler) index(c *gin.Context) {
	courses, err := course.List(c.Request.Context(), h.db)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "index.html", gin.H{"courses": courses})
}

func (h *Handler) showCourse(c *gin.Context) {
	ctx := c.Request.Context()
	crs, err := course.GetBySlug(ctx, h.db, c.Param("slug"))
	if errors.Is(err, course.ErrNotFound) {
		h.notFound(c)
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	lessons, err := lesson.ListByCourse(ctx, h.db, crs.ID, false)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "course.html", gin.H{"course": crs, "lessons": lessons})
}

func (h *Handler) showLesson(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		h.notFound(c)
		return
	}
	d, err := lesson.GetDetail(c.Request.Context(), h.db, id)
	if errors.Is(err, lesson.ErrNotFound) {
		h.notFound(c)
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "lesson.html", gin.H{"lesson": d})
}

func (h *Handler) serveFile(c *gin.Context) {
	full, err := h.assets.Resolve(strings.TrimPrefix(c.Param("path"), "/"))
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.File(full)
}

// auth

func (h *Handler) loginPage(c *gin.Context) {
	h.render(c, http.StatusOK, "login.html", nil)
}

func (h *Handler) login(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := strings.TrimSpace(c.PostForm("password"))

	ck, err := h.gate.Login(c.Request.Context(), username, password)
	if errors.Is(err, user.ErrInvalidCredentials) {
		h.log.Info("login rejected", "username", username)
		h.render(c, http.StatusOK, "login.html", gin.H{"username_value": username},
			Flash{Category: "danger", Message: "Invalid credentials"})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	http.SetCookie(c.Writer, ck)
	h.log.Info("login", "username", username)
	h.redirectWith(c, "/dashboard", "success", "Welcome back!")
}

func (h *Handler) logout(c *gin.Context) {
	v, _ := c.Cookie(auth.CookieName)
	ck, err := h.gate.Logout(c.Request.Context(), v)
	if err != nil {
		h.fail(c, err)
		return
	}
	http.SetCookie(c.Writer, ck)
	h.redirectWith(c, "/", "info", "Logged out.")
}

// dashboard

func (h *Handler) dashboard(c *gin.Context) {
	courses, err := course.List(c.Request.Context(), h.db)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "dashboard.html", gin.H{"courses": courses})
}

func (h *Handler) dashboardCourse(c *gin.Context) {
	ctx := c.Request.Context()
	crs, err := course.GetBySlug(ctx, h.db, c.Param("slug"))
	if errors.Is(err, course.ErrNotFound) {
		h.notFound(c)
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	lessons, err := lesson.ListByCourse(ctx, h.db, crs.ID, true)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "dashboard_course.html", gin.H{"course": crs, "lessons": lessons})
}

func (h *Handler) addCourse(c *gin.Context) {
	crs, err := course.Create(c.Request.Context(), h.db, c.PostForm("title"))
	if errors.Is(err, course.ErrTitleRequired) {
		h.redirectWith(c, "/dashboard", "danger", "Course title is required.")
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.assets.EnsureCourseDir(crs.Slug); err != nil {
		h.fail(c, err)
		return
	}
	h.log.Info("course created", "course_id", crs.ID, "slug", crs.Slug)
	h.redirectWith(c, "/dashboard", "success", fmt.Sprintf("Course '%s' created!", crs.Title))
}

func (h *Handler) addLesson(c *gin.Context) {
	ctx := c.Request.Context()
	courseID, ok := parseID(c.Param("course_id"))
	if !ok {
		h.notFound(c)
		return
	}

	if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.redirectWith(c, "/dashboard", "danger", "Video file is too large.")
			return
		}
		// plain form posts fall through and fail the file check below
	}

	title := strings.TrimSpace(c.PostForm("title"))
	description := strings.TrimSpace(c.PostForm("description"))
	if title == "" {
		h.redirectWith(c, "/dashboard", "danger", "Lesson title is required.")
		return
	}

	crs, err := course.GetByID(ctx, h.db, courseID)
	if errors.Is(err, course.ErrNotFound) {
		h.redirectWith(c, "/dashboard", "danger", "Course not found.")
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	fh, err := c.FormFile("video")
	if err != nil || fh.Filename == "" {
		h.redirectWith(c, "/dashboard", "danger", "Please choose a video file.")
		return
	}
	if !h.assets.Allowed(fh.Filename) {
		h.redirectWith(c, "/dashboard", "danger", "Unsupported video format.")
		return
	}

	src, err := fh.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer src.Close()

	rel, err := h.assets.Save(crs.Slug, fh.Filename, src)
	if err != nil {
		h.fail(c, err)
		return
	}
	id, err := lesson.Create(ctx, h.db, crs.ID, title, description, rel)
	if err != nil {
		// the saved file stays behind as an orphan
		h.fail(c, err)
		return
	}
	h.log.Info("lesson uploaded", "lesson_id", id, "course_id", crs.ID, "file", rel, "bytes", fh.Size)
	h.redirectWith(c, "/dashboard", "success", fmt.Sprintf("Lesson '%s' added to %s!", title, crs.Title))
}

func (h *Handler) editLessonPage(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		h.notFound(c)
		return
	}
	l, err := lesson.Get(c.Request.Context(), h.db, id)
	if errors.Is(err, lesson.ErrNotFound) {
		h.notFound(c)
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "edit_lesson.html", gin.H{"lesson": l})
}

func (h *Handler) editLesson(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		h.notFound(c)
		return
	}
	err := lesson.Update(c.Request.Context(), h.db, id, c.PostForm("title"), c.PostForm("filename"))
	if errors.Is(err, lesson.ErrNotFound) {
		h.notFound(c)
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	h.redirectWith(c, "/dashboard", "success", "Lesson updated successfully.")
}

func (h *Handler) deleteLesson(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		h.notFound(c)
		return
	}
	if err := lesson.Delete(c.Request.Context(), h.db, id); err != nil {
		h.fail(c, err)
		return
	}
	h.log.Info("lesson deleted", "lesson_id", id)
	h.redirectWith(c, "/dashboard", "success", "Lesson deleted successfully.")
}

// counters

func (h *Handler) bump(kind counter.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c.Param("lesson_id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "lesson not found"})
			return
		}
		marker, _ := c.Cookie(kind.MarkerName(id))

		n, already, err := h.counter.IncrementIfAbsent(c.Request.Context(), id, kind, marker != "")
		if errors.Is(err, lesson.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "lesson not found"})
			return
		}
		if err != nil {
			h.log.Error("counter failed", "lesson_id", id, "kind", string(kind), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		if !already {
			http.SetCookie(c.Writer, kind.Marker(id))
		}
		c.JSON(http.StatusOK, gin.H{kind.JSONKey(): n, "already": already})
	}
}
