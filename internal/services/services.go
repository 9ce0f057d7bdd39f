// Package services orchestrates the domain operations behind the HTTP
// handlers and the worker: account management, monthly expense views and
// debt sheet rollover. Services hold no state of their own; they compose
// the ledger ports and fan dataset changes out to the sync worker.
package services

import (
	"context"
	"log/slog"

	"despeses/internal/amqp"
	"despeses/internal/core"
	"despeses/internal/log"
)

// SyncPublisher fans dataset change notifications out to the worker.
// Publishing is best-effort: a nil publisher means fan-out is disabled,
// and a failed publish never fails the request that caused it.
type SyncPublisher interface {
	PublishDatasetSync(ctx context.Context, msg *amqp.DatasetSyncMessage) error
}

// publishDatasetSync notifies the worker that one user's dataset changed
// for one period. Errors are logged and swallowed; the local write already
// succeeded and the worker re-reads the authoritative store anyway.
func publishDatasetSync(ctx context.Context, logger *slog.Logger, pub SyncPublisher, dataset amqp.Dataset, username string, p core.Period) {
	if pub == nil {
		return
	}
	msg := amqp.NewDatasetSyncMessage(dataset, username, p)
	if err := pub.PublishDatasetSync(ctx, msg); err != nil {
		logger.ErrorContext(ctx, "Failed to publish dataset sync",
			log.FieldDataset, string(dataset),
			log.FieldUsername, username,
			log.FieldPeriod, p.String(),
			log.FieldError, err)
	}
}
