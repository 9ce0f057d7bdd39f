// Package cli holds the bootstrap steps shared by cmd/despeses,
// cmd/despeses-worker and cmd/despeses-admin.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"despeses/internal/config"
	"despeses/internal/log"
	"despeses/internal/storage"
)

// Bootstrap loads the optional .env file, installs the logger from
// LOG_LEVEL and returns validated configuration. Exits the process
// when the configuration is broken, since nothing can run without it.
func Bootstrap(binary string) (*config.Config, *slog.Logger) {
	_ = godotenv.Load()

	logger := log.Setup(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting "+binary, "pid", os.Getpid())

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg, logger
}

// OpenRepository opens the SQLite repository and runs migrations, or
// exits the process when the database cannot be opened.
func OpenRepository(logger *slog.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to open SQLite repository", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
