package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/facturation/internal/config"
	"github.com/diewo77/facturation/internal/db"
	"github.com/diewo77/facturation/internal/logger"
	"github.com/diewo77/facturation/internal/services"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	resyncOnlyFlag  = flag.Bool("resync-only", false, "Recompute every client's invoice totals and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()

	log := logger.NewForEnvironment(cfg.App.Env, &logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	defer func() { _ = log.Sync() }()

	dbConn, err := db.Open(cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(dbConn); err != nil {
			log.Warn("error closing database", zap.Error(err))
		}
	}()

	if *migrateOnlyFlag {
		if err := db.Migrate(dbConn, cfg.Database, true, log); err != nil {
			log.Fatal("migration failed", zap.Error(err))
		}
		log.Info("migrations completed successfully")
		return
	}

	if cfg.App.Migrations {
		if err := db.Migrate(dbConn, cfg.Database, !cfg.App.Dev, log); err != nil {
			log.Fatal("migration failed", zap.Error(err))
		}
	}

	// Counters written by older versions may be stale.
	totals := services.NewTotals(dbConn, log)
	if _, err := totals.ResyncAll(context.Background()); err != nil {
		log.Fatal("resync of client totals failed", zap.Error(err))
	}
	if *resyncOnlyFlag {
		return
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      NewApp(dbConn, log),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.Info("server starting",
			zap.String("port", cfg.Server.Port),
			zap.String("env", cfg.App.Env),
			zap.Bool("dev", cfg.App.Dev))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("error during shutdown", zap.Error(err))
	}
	log.Info("server stopped gracefully")
}
