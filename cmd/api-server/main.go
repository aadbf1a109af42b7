package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"bitelogs/internal/auth"
	"bitelogs/internal/feed"
	"bitelogs/internal/media"
	"bitelogs/internal/metrics"
	"bitelogs/internal/server"
	"bitelogs/pkg/database"
	"bitelogs/pkg/logger"
	"bitelogs/pkg/utils"
)

func main() {
	cfg, err := utils.LoadConfig()
	if err != nil {
		logger.New("api-server", "info", "text").Fatalf("load config: %v", err)
	}
	log := logger.New("api-server", cfg.LogLevel, cfg.LogFormat)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(database.Config{Driver: cfg.DBDriver, DSN: cfg.DBDSN})
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatalf("create upload dir: %v", err)
	}

	m := metrics.New()
	hub := feed.NewHub(log, m.FeedClients)

	router := server.New(server.Deps{
		Config: cfg,
		DB:     db,
		Log:    log,
		Tokens: auth.TokenService{
			Secret:   []byte(cfg.JWTSecret),
			Issuer:   cfg.JWTIssuer,
			Duration: cfg.JWTTTL,
		},
		Media:   media.NewLocalStore(cfg.UploadDir, "/uploads"),
		Metrics: m,
		Feed:    hub,
	})

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", httpSrv.Addr).WithField("env", cfg.AppEnv).Info("HTTP API server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("shutdown signal received")
	case err := <-errCh:
		log.WithError(err).Error("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hub.Close()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown error")
	}
	log.Info("server stopped")
}
