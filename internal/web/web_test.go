package web

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"lessonhub/internal/assets"
	"lessonhub/internal/auth"
	"lessonhub/internal/logger"
	"lessonhub/internal/testutil"
	"lessonhub/pkg/database"
)

var videoExt = []string{"mp4", "mov", "m4v", "webm", "ogg"}

type env struct {
	t       *testing.T
	db      *sql.DB
	root    string
	router  http.Handler
	cookies map[string]*http.Cookie
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.OpenDB(t)
	if _, err := database.SeedTeacher(db, "deepika", "teachersday"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	root := t.TempDir()
	secret := []byte("test-secret")
	r := NewRouter(Deps{
		DB:             db,
		Gate:           auth.NewGate(db, secret, time.Hour),
		Assets:         assets.New(root, videoExt),
		Log:            logger.Nop(),
		FlashSecret:    secret,
		MaxUploadBytes: 1 << 20,
	})
	return &env{t: t, db: db, root: root, router: r, cookies: map[string]*http.Cookie{}}
}

// do sends req with the cookies collected so far, like a browser would.
func (e *env) do(req *http.Request) *httptest.ResponseRecorder {
	e.t.Helper()
	for _, ck := range e.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(e.cookies, ck.Name)
			continue
		}
		e.cookies[ck.Name] = ck
	}
	return w
}

func (e *env) get(path string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (e *env) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req)
}

func (e *env) upload(path, title, filename, content string) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("title", title)
	_ = mw.WriteField("description", "desc")
	if filename != "" {
		fw, err := mw.CreateFormFile("video", filename)
		if err != nil {
			e.t.Fatalf("CreateFormFile: %v", err)
		}
		_, _ = fw.Write([]byte(content))
	}
	if err := mw.Close(); err != nil {
		e.t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.do(req)
}

func (e *env) login() {
	e.t.Helper()
	w := e.postForm("/login", url.Values{"username": {"deepika"}, "password": {"teachersday"}})
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/dashboard" {
		e.t.Fatalf("login: want 302 /dashboard got %d %q", w.Code, w.Header().Get("Location"))
	}
}

func (e *env) courseID(slug string) int64 {
	e.t.Helper()
	var id int64
	if err := e.db.QueryRow(`SELECT id FROM courses WHERE slug = ?`, slug).Scan(&id); err != nil {
		e.t.Fatalf("course %s: %v", slug, err)
	}
	return id
}

func expectRedirect(t *testing.T, w *httptest.ResponseRecorder, to string) {
	t.Helper()
	if w.Code != http.StatusFound || w.Header().Get("Location") != to {
		t.Fatalf("want 302 %s got %d %q", to, w.Code, w.Header().Get("Location"))
	}
}

func TestProtectedRoutesRedirectAnonymous(t *testing.T) {
	e := newEnv(t)
	c := testutil.SeedCourse(t, context.Background(), e.db, "Math", "math")
	id := testutil.SeedLesson(t, context.Background(), e.db, c.ID, "l", "uploads/math/l.mp4")

	expectRedirect(t, e.get("/dashboard"), "/login")
	expectRedirect(t, e.get("/dashboard/math"), "/login")
	expectRedirect(t, e.postForm("/add_course", url.Values{"title": {"Physics"}}), "/login")
	expectRedirect(t, e.upload("/add_lesson/1", "t", "clip.mp4", "x"), "/login")
	expectRedirect(t, e.postForm("/lesson/delete/1", nil), "/login")
	expectRedirect(t, e.postForm("/lesson/edit/1", url.Values{"title": {"x"}, "filename": {"y"}}), "/login")

	if n := testutil.CountRows(t, e.db, "courses"); n != 1 {
		t.Fatalf("courses: want=1 got=%d", n)
	}
	var title string
	if err := e.db.QueryRow(`SELECT title FROM lessons WHERE id = ?`, id).Scan(&title); err != nil || title != "l" {
		t.Fatalf("lesson changed: title=%q err=%v", title, err)
	}
	if _, err := os.Stat(filepath.Join(e.root, "uploads")); !os.IsNotExist(err) {
		t.Fatalf("anonymous upload touched the asset store: %v", err)
	}
}

func TestLoginLogout(t *testing.T) {
	e := newEnv(t)

	w := e.postForm("/login", url.Values{"username": {"deepika"}, "password": {"wrong"}})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Invalid credentials") {
		t.Fatalf("bad login: want 200 with message got %d", w.Code)
	}
	if _, ok := e.cookies[auth.CookieName]; ok {
		t.Fatalf("bad login must not set a session cookie")
	}

	e.login()
	w = e.get("/dashboard")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Welcome back!") {
		t.Fatalf("dashboard: want 200 with welcome flash got %d", w.Code)
	}
	if strings.Contains(e.get("/dashboard").Body.String(), "Welcome back!") {
		t.Fatalf("flash shown twice")
	}

	expectRedirect(t, e.get("/logout"), "/")
	if !strings.Contains(e.get("/").Body.String(), "Logged out.") {
		t.Fatalf("logout flash missing")
	}
	expectRedirect(t, e.get("/dashboard"), "/login")
}

func TestAddCourse(t *testing.T) {
	e := newEnv(t)
	e.login()

	expectRedirect(t, e.postForm("/add_course", url.Values{"title": {"Math"}}), "/dashboard")
	expectRedirect(t, e.postForm("/add_course", url.Values{"title": {"Math"}}), "/dashboard")
	if !strings.Contains(e.get("/dashboard").Body.String(), "Course &#39;Math&#39; created!") {
		t.Fatalf("created flash missing")
	}

	for _, slug := range []string{"math", "math-2"} {
		e.courseID(slug)
		fi, err := os.Stat(filepath.Join(e.root, "uploads", slug))
		if err != nil || !fi.IsDir() {
			t.Fatalf("course dir %s: %v", slug, err)
		}
	}

	expectRedirect(t, e.postForm("/add_course", url.Values{"title": {"   "}}), "/dashboard")
	if !strings.Contains(e.get("/dashboard").Body.String(), "Course title is required.") {
		t.Fatalf("validation flash missing")
	}
	if n := testutil.CountRows(t, e.db, "courses"); n != 2 {
		t.Fatalf("courses: want=2 got=%d", n)
	}
}

func TestAddLessonAvoidsFilenameCollisions(t *testing.T) {
	e := newEnv(t)
	e.login()
	e.postForm("/add_course", url.Values{"title": {"Math"}})
	path := "/add_lesson/" + itoa(e.courseID("math"))

	expectRedirect(t, e.upload(path, "One", "clip.mp4", "first"), "/dashboard")
	expectRedirect(t, e.upload(path, "Two", "clip.mp4", "second"), "/dashboard")

	rows, err := e.db.Query(`SELECT filename FROM lessons ORDER BY id`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()
	var got []string
	for rows.Next() {
		var f string
		_ = rows.Scan(&f)
		got = append(got, f)
	}
	if len(got) != 2 || got[0] != "uploads/math/clip.mp4" || got[1] != "uploads/math/clip-2.mp4" {
		t.Fatalf("filenames: got %v", got)
	}

	w := e.get("/file/uploads/math/clip-2.mp4")
	if w.Code != http.StatusOK || w.Body.String() != "second" {
		t.Fatalf("serve file: want 200 'second' got %d %q", w.Code, w.Body.String())
	}
}

func TestAddLessonValidation(t *testing.T) {
	e := newEnv(t)
	e.login()
	e.postForm("/add_course", url.Values{"title": {"Math"}})
	e.get("/dashboard")
	path := "/add_lesson/" + itoa(e.courseID("math"))

	cases := []struct {
		name     string
		path     string
		title    string
		filename string
		message  string
	}{
		{"missing title", path, "", "clip.mp4", "Lesson title is required."},
		{"unknown course", "/add_lesson/999", "T", "clip.mp4", "Course not found."},
		{"missing file", path, "T", "", "Please choose a video file."},
		{"bad extension", path, "T", "virus.exe", "Unsupported video format."},
	}
	for _, tc := range cases {
		expectRedirect(t, e.upload(tc.path, tc.title, tc.filename, "data"), "/dashboard")
		if body := e.get("/dashboard").Body.String(); !strings.Contains(body, tc.message) {
			t.Fatalf("%s: flash %q missing", tc.name, tc.message)
		}
	}
	if n := testutil.CountRows(t, e.db, "lessons"); n != 0 {
		t.Fatalf("lessons after rejected uploads: want=0 got=%d", n)
	}
	entries, err := os.ReadDir(filepath.Join(e.root, "uploads", "math"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("files after rejected uploads: got %d", len(entries))
	}

	expectRedirect(t, e.upload(path, "Upper", "LOUD.MP4", "x"), "/dashboard")
	if n := testutil.CountRows(t, e.db, "lessons"); n != 1 {
		t.Fatalf("uppercase extension: want 1 lesson got %d", n)
	}
}

func TestAddLessonTooLarge(t *testing.T) {
	e := newEnv(t)
	e.login()
	e.postForm("/add_course", url.Values{"title": {"Math"}})
	path := "/add_lesson/" + itoa(e.courseID("math"))

	expectRedirect(t, e.upload(path, "Huge", "big.mp4", strings.Repeat("x", 2<<20)), "/dashboard")
	if n := testutil.CountRows(t, e.db, "lessons"); n != 0 {
		t.Fatalf("oversized upload stored: %d lessons", n)
	}
}

func TestCounters(t *testing.T) {
	e := newEnv(t)
	c := testutil.SeedCourse(t, context.Background(), e.db, "Math", "math")
	first := testutil.SeedLesson(t, context.Background(), e.db, c.ID, "one", "f1")
	second := testutil.SeedLesson(t, context.Background(), e.db, c.ID, "two", "f2")

	decode := func(w *httptest.ResponseRecorder) map[string]any {
		t.Helper()
		if w.Code != http.StatusOK {
			t.Fatalf("status: want 200 got %d", w.Code)
		}
		var body map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return body
	}

	body := decode(e.postForm("/like/"+itoa(first), nil))
	if body["likes"] != float64(1) || body["already"] != false {
		t.Fatalf("first like: got %v", body)
	}
	if ck, ok := e.cookies["liked_"+itoa(first)]; !ok || ck.MaxAge <= 0 {
		t.Fatalf("marker cookie missing or short-lived: %+v", ck)
	}
	body = decode(e.postForm("/like/"+itoa(first), nil))
	if body["likes"] != float64(1) || body["already"] != true {
		t.Fatalf("repeat like: got %v", body)
	}
	body = decode(e.postForm("/like/"+itoa(second), nil))
	if body["likes"] != float64(1) || body["already"] != false {
		t.Fatalf("other lesson like: got %v", body)
	}
	body = decode(e.postForm("/view/"+itoa(first), nil))
	if body["views"] != float64(1) || body["already"] != false {
		t.Fatalf("first view: got %v", body)
	}

	// a browser that cleared its cookies counts again
	e.cookies = map[string]*http.Cookie{}
	body = decode(e.postForm("/like/"+itoa(first), nil))
	if body["likes"] != float64(2) || body["already"] != false {
		t.Fatalf("like after clearing cookies: got %v", body)
	}

	if w := e.postForm("/like/999", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown lesson: want 404 got %d", w.Code)
	}
	if w := e.postForm("/view/abc", nil); w.Code != http.StatusNotFound {
		t.Fatalf("bad id: want 404 got %d", w.Code)
	}
}

func TestEditAndDeleteLesson(t *testing.T) {
	e := newEnv(t)
	c := testutil.SeedCourse(t, context.Background(), e.db, "Math", "math")
	gone := testutil.SeedLesson(t, context.Background(), e.db, c.ID, "gone", "uploads/math/gone.mp4")
	stay := testutil.SeedLesson(t, context.Background(), e.db, c.ID, "stay", "uploads/math/stay.mp4")
	e.login()

	w := e.get("/lesson/edit/" + itoa(stay))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "uploads/math/stay.mp4") {
		t.Fatalf("edit page: got %d", w.Code)
	}
	if w := e.get("/lesson/edit/999"); w.Code != http.StatusNotFound {
		t.Fatalf("edit unknown: want 404 got %d", w.Code)
	}

	expectRedirect(t, e.postForm("/lesson/edit/"+itoa(stay), url.Values{"title": {"renamed"}, "filename": {"uploads/math/other.mp4"}}), "/dashboard")
	var title, filename string
	if err := e.db.QueryRow(`SELECT title, filename FROM lessons WHERE id = ?`, stay).Scan(&title, &filename); err != nil {
		t.Fatalf("select: %v", err)
	}
	if title != "renamed" || filename != "uploads/math/other.mp4" {
		t.Fatalf("after edit: %s %s", title, filename)
	}

	expectRedirect(t, e.postForm("/lesson/delete/"+itoa(gone), nil), "/dashboard")
	if n := testutil.CountRows(t, e.db, "lessons"); n != 1 {
		t.Fatalf("lessons after delete: want=1 got=%d", n)
	}
	if n := testutil.CountRows(t, e.db, "courses"); n != 1 {
		t.Fatalf("courses after delete: want=1 got=%d", n)
	}
}

func TestDeleteLessonKeepsFile(t *testing.T) {
	e := newEnv(t)
	e.login()
	e.postForm("/add_course", url.Values{"title": {"Math"}})
	e.upload("/add_lesson/"+itoa(e.courseID("math")), "One", "clip.mp4", "data")

	var id int64
	if err := e.db.QueryRow(`SELECT id FROM lessons`).Scan(&id); err != nil {
		t.Fatalf("select: %v", err)
	}
	e.postForm("/lesson/delete/"+itoa(id), nil)

	if w := e.get("/file/uploads/math/clip.mp4"); w.Code != http.StatusOK {
		t.Fatalf("deleted lesson's file: want still served, got %d", w.Code)
	}
}

func TestPublicPages(t *testing.T) {
	e := newEnv(t)
	c := testutil.SeedCourse(t, context.Background(), e.db, "Intro to Go", "intro-to-go")
	id := testutil.SeedLesson(t, context.Background(), e.db, c.ID, "Hello World", "uploads/intro-to-go/hello.mp4")

	if body := e.get("/").Body.String(); !strings.Contains(body, "/course/intro-to-go") {
		t.Fatalf("index: course link missing")
	}
	w := e.get("/course/intro-to-go")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Hello World") {
		t.Fatalf("course page: got %d", w.Code)
	}
	w = e.get("/lesson/" + itoa(id))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "/file/uploads/intro-to-go/hello.mp4") {
		t.Fatalf("lesson page: got %d", w.Code)
	}

	for _, p := range []string{"/course/nope", "/lesson/999", "/lesson/abc", "/file/uploads/none.mp4", "/file/../site.db", "/no/such/route"} {
		if w := e.get(p); w.Code != http.StatusNotFound {
			t.Fatalf("GET %s: want 404 got %d", p, w.Code)
		}
	}
	if w := e.get("/health"); w.Code != http.StatusOK {
		t.Fatalf("health: got %d", w.Code)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
