package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"lessonhub/internal/assets"
	"lessonhub/internal/auth"
	"lessonhub/internal/config"
	"lessonhub/internal/logger"
	"lessonhub/internal/web"
	"lessonhub/pkg/database"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		panic("load config: " + err.Error())
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic("init logger: " + err.Error())
	}
	defer log.Sync()

	gin.SetMode(cfg.GinMode)
	if cfg.SessionSecret == config.DevSessionSecret {
		log.Warn("SESSION_SECRET not set; using the development secret")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		log.Fatal("create data dir", "error", err)
	}
	if err := os.MkdirAll(filepath.Join(cfg.StaticDir, assets.UploadsDir), 0o755); err != nil {
		log.Fatal("create upload root", "error", err)
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("open database", "path", cfg.DBPath, "error", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal("migrate", "error", err)
	}
	seeded, err := database.SeedTeacher(db, cfg.SeedUsername, cfg.SeedPassword)
	if err != nil {
		log.Fatal("seed teacher account", "error", err)
	}
	if seeded {
		log.Info("seeded teacher account", "username", cfg.SeedUsername)
	}

	secret := []byte(cfg.SessionSecret)
	gate := auth.NewGate(db, secret, cfg.SessionTTL)
	if n, err := gate.Sessions().PurgeExpired(context.Background()); err != nil {
		log.Warn("purge expired sessions", "error", err)
	} else if n > 0 {
		log.Info("purged expired sessions", "count", n)
	}

	router := web.NewRouter(web.Deps{
		DB:             db,
		Gate:           gate,
		Assets:         assets.New(cfg.StaticDir, cfg.AllowedVideoExt),
		Log:            log,
		FlashSecret:    secret,
		MaxUploadBytes: cfg.MaxUploadBytes,
		AllowedOrigins: cfg.Origins(),
	})

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("HTTP listening", "addr", cfg.Port, "static", cfg.StaticDir, "db", cfg.DBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
}
