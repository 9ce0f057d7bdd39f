// Command despeses runs the household expense tracker: server-rendered
// screens over SQLite expenses and flat-file debt sheets.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"despeses/internal/amqp"
	"despeses/internal/cli"
	"despeses/internal/datasets"
	apphttp "despeses/internal/http"
	"despeses/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap("despeses")

	repo := cli.OpenRepository(logger, cfg.DBPath)
	defer repo.Close()

	store := datasets.NewStore(cfg.DataRoot)

	// Fan-out to the worker is optional: without AMQP the tracker still
	// works fully, datasets are just not mirrored until the next sweep.
	var publisher services.SyncPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to connect to AMQP", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		logger.Info("AMQP publisher ready", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled, dataset sync is off")
	}

	auth := services.NewAuthService(repo)
	expenses := services.NewExpenseService(repo, repo, publisher)
	debts := services.NewDebtService(store, publisher)

	srv := apphttp.NewServer(cfg, auth, expenses, debts, repo)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := cli.SignalContext()
	defer cancel()

	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	logger.Info("Starting despeses server", "addr", cfg.Addr(), "data_root", cfg.DataRoot)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
