package web

import (
	"database/sql"
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"lessonhub/internal/assets"
	"lessonhub/internal/auth"
	"lessonhub/internal/counter"
	"lessonhub/internal/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

type Deps struct {
	DB             *sql.DB
	Gate           *auth.Gate
	Assets         *assets.Store
	Log            *logger.Logger
	FlashSecret    []byte
	MaxUploadBytes int64
	AllowedOrigins []string
}

func NewRouter(d Deps) *gin.Engine {
	h := &Handler{
		db:      d.DB,
		gate:    d.Gate,
		assets:  d.Assets,
		counter: counter.NewService(d.DB),
		flash:   NewFlasher(d.FlashSecret),
		log:     d.Log,
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(d.Log))
	if len(d.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     d.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost},
			AllowHeaders:     []string{"Content-Type"},
			AllowCredentials: true,
		}))
	}
	r.Use(auth.LoadSession(d.Gate))
	r.MaxMultipartMemory = maxMultipartMemory
	r.SetHTMLTemplate(template.Must(template.New("").ParseFS(templateFS, "templates/*.html")))
	r.NoRoute(h.notFound)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	// PUBLIC
	r.GET("/", h.index)
	r.GET("/course/:slug", h.showCourse)
	r.GET("/lesson/:id", h.showLesson)
	r.GET("/file/*path", h.serveFile)
	r.POST("/like/:lesson_id", h.bump(counter.Like))
	r.POST("/view/:lesson_id", h.bump(counter.View))

	// AUTH
	r.GET("/login", h.loginPage)
	r.POST("/login", h.login)
	r.GET("/logout", h.logout)

	// PROTECTED
	authed := r.Group("/")
	authed.Use(auth.RequireLogin("/login"))
	authed.GET("/dashboard", h.dashboard)
	authed.GET("/dashboard/:slug", h.dashboardCourse)
	authed.POST("/add_course", h.addCourse)
	authed.POST("/add_lesson/:course_id", LimitBody(d.MaxUploadBytes), h.addLesson)
	authed.POST("/lesson/delete/:id", h.deleteLesson)
	authed.GET("/lesson/edit/:id", h.editLessonPage)
	authed.POST("/lesson/edit/:id", h.editLesson)

	return r
}
