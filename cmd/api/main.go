package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/feedback-app/internal/config"
	"github.com/Dan9191/feedback-app/internal/handler"
	"github.com/Dan9191/feedback-app/internal/middleware"
	"github.com/Dan9191/feedback-app/internal/repository"
	"github.com/Dan9191/feedback-app/internal/router"
	"github.com/Dan9191/feedback-app/internal/scheduler"
	"github.com/Dan9191/feedback-app/internal/service"
	"github.com/Dan9191/feedback-app/internal/session"
	"github.com/Dan9191/feedback-app/internal/utils/email"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	if cfg.SessionSecret == config.DefaultSessionSecret {
		logger.Warn("SESSION_SECRET is the built-in placeholder; set it before exposing this server")
	}

	// Initialize database
	db, err := sql.Open(cfg.DBDriver, cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if cfg.DBDriver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.PingContext(ctx); err != nil {
		cancel()
		logger.Fatalf("Failed to ping database: %v", err)
	}
	if err := repository.CreateSchema(ctx, db, cfg.DBDriver); err != nil {
		cancel()
		logger.Fatalf("Failed to create schema: %v", err)
	}
	cancel()

	// Initialize layers
	repo := repository.NewRepository(db)
	mailer := email.NewSender(cfg, logger)
	svc := service.NewService(repo, mailer, logger, cfg.BcryptCost)
	sessions := session.NewManager(cfg.SessionSecret, cfg.SessionTTL, cfg.CookieSecure, repo, logger)
	h := handler.NewHandler(svc, sessions, logger)
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst, cfg.TrustProxy)

	// Background jobs
	sched := scheduler.NewScheduler(logger)
	if err := sched.Add("revoked session purge", cfg.RevocationPurgeSchedule, scheduler.PurgeRevocations(repo)); err != nil {
		logger.Fatalf("Failed to schedule job: %v", err)
	}
	if err := sched.Add("rate limiter cleanup", cfg.RateLimitCleanupSchedule, scheduler.EvictIdle(limiter)); err != nil {
		logger.Fatalf("Failed to schedule job: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.NewRouter(h, sessions, limiter, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
}
