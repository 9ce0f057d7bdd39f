// Command despeses-worker consumes dataset sync messages, refreshes the
// flat-file expense snapshots, duplicates debt sheets into new months and
// mirrors datasets to the configured backend.
package main

import (
	"context"
	"errors"
	"os"

	"despeses/internal/amqp"
	"despeses/internal/cli"
	"despeses/internal/config"
	"despeses/internal/datasets"
	"despeses/internal/mirror"
	googlemirror "despeses/internal/mirror/google"
	memorymirror "despeses/internal/mirror/memory"
	"despeses/internal/services"
	"despeses/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap("despeses-worker")

	// The server degrades gracefully without AMQP; the worker is pointless
	// without it.
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext()
	defer cancel()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to connect to AMQP", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	repo := cli.OpenRepository(logger, cfg.DBPath)
	defer repo.Close()

	store := datasets.NewStore(cfg.DataRoot)

	m, err := buildMirror(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize mirror backend", "error", err, "backend", cfg.MirrorBackend)
		os.Exit(1)
	}

	debts := services.NewDebtService(store, nil)

	w := worker.New(client, repo, store, debts, m, worker.Config{
		RolloverInterval: cfg.RolloverInterval,
		SweepInterval:    cfg.SweepInterval,
	})

	logger.Info("Worker started",
		"queue", cfg.AMQPQueue,
		"mirror", cfg.MirrorBackend,
		"rollover_interval", cfg.RolloverInterval,
		"sweep_interval", cfg.SweepInterval)

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

// buildMirror picks the dataset mirror from MIRROR_BACKEND. A nil mirror
// means mirroring is disabled; snapshots and rollover still run.
func buildMirror(ctx context.Context, cfg *config.Config) (mirror.DatasetMirror, error) {
	switch cfg.MirrorBackend {
	case config.MirrorGoogle:
		return googlemirror.New(ctx, googlemirror.Options{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		})
	case config.MirrorMemory:
		return memorymirror.New(), nil
	default:
		return nil, nil
	}
}
