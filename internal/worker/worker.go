// Package worker runs the background side of the tracker: it consumes
// dataset sync messages, keeps the per-month CSV snapshots and the
// configured mirror up to date, and rolls debt sheets into new months.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"despeses/internal/amqp"
	"despeses/internal/core"
	"despeses/internal/log"
	"despeses/internal/mirror"
	"despeses/internal/services"
)

// SyncConsumer delivers dataset sync messages. Satisfied by amqp.Client.
type SyncConsumer interface {
	ConsumeDatasetSync(ctx context.Context, handler func(*amqp.DatasetSyncMessage) error) error
}

// ExpenseSource reads the authoritative expense rows. Satisfied by
// storage.SQLiteRepository.
type ExpenseSource interface {
	ExpensesForPeriod(ctx context.Context, username string, p core.Period) ([]core.Expense, error)
	UsernamesWithExpenses(ctx context.Context) ([]string, error)
}

// DatasetFiles is the slice of the dataset store the worker touches.
// Satisfied by datasets.Store.
type DatasetFiles interface {
	WriteExpenseSnapshot(ctx context.Context, username string, p core.Period, expenses []core.Expense) error
	ReadExpenseSnapshot(ctx context.Context, username string, p core.Period) ([]core.Expense, bool, error)
	Load(ctx context.Context, username string, p core.Period) ([]core.Debt, bool, error)
	Usernames(ctx context.Context) ([]string, error)
}

// Config holds the loop intervals.
type Config struct {
	RolloverInterval time.Duration
	SweepInterval    time.Duration
}

// Worker ties the consumer, the dataset files, the mirror and the debt
// rollover together. Start it with Run; it stops when the context does.
type Worker struct {
	consumer SyncConsumer
	source   ExpenseSource
	files    DatasetFiles
	debts    *services.DebtService
	mirror   mirror.DatasetMirror // nil disables mirroring

	rolloverInterval time.Duration
	sweepInterval    time.Duration
	checker          services.RolloverChecker
	logger           *slog.Logger

	mu           sync.Mutex
	lastRollover time.Time
}

func New(consumer SyncConsumer, source ExpenseSource, files DatasetFiles, debts *services.DebtService, m mirror.DatasetMirror, cfg Config) *Worker {
	return &Worker{
		consumer:         consumer,
		source:           source,
		files:            files,
		debts:            debts,
		mirror:           m,
		rolloverInterval: cfg.RolloverInterval,
		sweepInterval:    cfg.SweepInterval,
		logger:           log.NewLogger(log.ComponentWorker),
	}
}

// Run starts the consume, rollover and sweep loops and blocks until the
// context is cancelled or one of them fails.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.consumeLoop(ctx) })
	g.Go(func() error { return w.rolloverLoop(ctx) })
	g.Go(func() error { return w.sweepLoop(ctx) })
	return g.Wait()
}

func (w *Worker) consumeLoop(ctx context.Context) error {
	return w.consumer.ConsumeDatasetSync(ctx, func(msg *amqp.DatasetSyncMessage) error {
		return w.HandleDatasetSync(ctx, msg)
	})
}

// HandleDatasetSync processes one sync message: it re-reads the named
// dataset from the authoritative store and pushes it outward. Messages
// carry no rows, so redeliveries and reordering are harmless.
func (w *Worker) HandleDatasetSync(ctx context.Context, msg *amqp.DatasetSyncMessage) error {
	p, err := msg.Period()
	if err != nil {
		return fmt.Errorf("message period: %w", err)
	}

	w.logger.InfoContext(ctx, "Processing dataset sync",
		log.FieldDataset, string(msg.Dataset),
		log.FieldUsername, msg.Username,
		log.FieldPeriod, p.String(),
	)

	switch msg.Dataset {
	case amqp.DatasetExpenses:
		return w.syncExpenses(ctx, msg.Username, p)
	case amqp.DatasetDebts:
		return w.syncDebts(ctx, msg.Username, p)
	default:
		return fmt.Errorf("unknown dataset %q", msg.Dataset)
	}
}

func (w *Worker) syncExpenses(ctx context.Context, username string, p core.Period) error {
	rows, err := w.source.ExpensesForPeriod(ctx, username, p)
	if err != nil {
		return fmt.Errorf("load expenses %s %s: %w", username, p, err)
	}
	if err := w.files.WriteExpenseSnapshot(ctx, username, p, rows); err != nil {
		return fmt.Errorf("write expense snapshot: %w", err)
	}
	if w.mirror != nil {
		if err := w.mirror.MirrorExpenses(ctx, username, p, rows); err != nil {
			return fmt.Errorf("mirror expenses: %w", err)
		}
	}

	w.logger.InfoContext(ctx, "Expense snapshot updated",
		log.FieldUsername, username,
		log.FieldPeriod, p.String(),
		"rows", len(rows),
	)
	return nil
}

func (w *Worker) syncDebts(ctx context.Context, username string, p core.Period) error {
	debts, exists, err := w.files.Load(ctx, username, p)
	if err != nil {
		return fmt.Errorf("load debt sheet %s %s: %w", username, p, err)
	}
	if !exists {
		// The sheet may have been removed since the message was sent.
		w.logger.WarnContext(ctx, "Debt sheet missing for sync",
			log.FieldUsername, username,
			log.FieldPeriod, p.String(),
		)
		return nil
	}
	if w.mirror != nil {
		if err := w.mirror.MirrorDebts(ctx, username, p, debts); err != nil {
			return fmt.Errorf("mirror debts: %w", err)
		}
	}

	w.logger.InfoContext(ctx, "Debt sheet mirrored",
		log.FieldUsername, username,
		log.FieldPeriod, p.String(),
		"rows", len(debts),
	)
	return nil
}

func (w *Worker) rolloverLoop(ctx context.Context) error {
	// Run once at startup so a worker that was down over a month
	// boundary catches up immediately.
	w.runRollover(ctx, time.Now())

	ticker := time.NewTicker(w.rolloverInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			w.runRollover(ctx, now)
		}
	}
}

func (w *Worker) runRollover(ctx context.Context, now time.Time) {
	w.mu.Lock()
	last := w.lastRollover
	w.mu.Unlock()

	if !w.checker.IsDue(last, now) {
		return
	}
	if err := w.RollSheets(ctx, now); err != nil {
		// Not marked done, so the next tick retries. OpenSheet skips
		// users that already got their sheet.
		w.logger.ErrorContext(ctx, "Debt rollover failed", log.FieldError, err)
		return
	}

	w.mu.Lock()
	w.lastRollover = now
	w.mu.Unlock()
}

// RollSheets duplicates the previous debt sheet into the current month
// for every known user. Users without any sheet history are skipped.
func (w *Worker) RollSheets(ctx context.Context, now time.Time) error {
	usernames, err := w.files.Usernames(ctx)
	if err != nil {
		return fmt.Errorf("list dataset users: %w", err)
	}

	p := core.PeriodOf(now)
	var rolled, skipped, failed int
	for _, username := range usernames {
		sheet, err := w.debts.OpenSheet(ctx, username, p, services.CreateDuplicate)
		switch {
		case errors.Is(err, services.ErrNoPreviousSheet):
			skipped++
			continue
		case err != nil:
			failed++
			w.logger.ErrorContext(ctx, "Sheet rollover failed",
				log.FieldUsername, username,
				log.FieldPeriod, p.String(),
				log.FieldError, err,
			)
			continue
		}
		if sheet.Created {
			rolled++
		}
	}

	if failed > 0 {
		return fmt.Errorf("rollover incomplete: %d of %d users failed", failed, len(usernames))
	}

	w.logger.InfoContext(ctx, "Debt rollover completed",
		log.FieldPeriod, p.String(),
		"rolled", rolled,
		"skipped", skipped,
		"users", len(usernames),
	)
	return nil
}

func (w *Worker) sweepLoop(ctx context.Context) error {
	if w.mirror == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if err := w.Sweep(ctx, core.PeriodOf(now)); err != nil {
				w.logger.ErrorContext(ctx, "Mirror sweep failed", log.FieldError, err)
			}
		}
	}
}

// Sweep re-mirrors one month for every known user, repairing mirrors
// that missed messages. Expenses are rebuilt from the relational store,
// which also regenerates snapshots that were never written; debt sheets
// are pushed from the dataset files, their authoritative home.
func (w *Worker) Sweep(ctx context.Context, p core.Period) error {
	var failed int

	withExpenses, err := w.source.UsernamesWithExpenses(ctx)
	if err != nil {
		return fmt.Errorf("list expense users: %w", err)
	}
	for _, username := range withExpenses {
		if err := w.syncExpenses(ctx, username, p); err != nil {
			failed++
			w.logger.ErrorContext(ctx, "Expense sweep failed",
				log.FieldUsername, username, log.FieldError, err)
		}
	}

	withDatasets, err := w.files.Usernames(ctx)
	if err != nil {
		return fmt.Errorf("list dataset users: %w", err)
	}
	for _, username := range withDatasets {
		debts, ok, err := w.files.Load(ctx, username, p)
		if err != nil {
			failed++
			w.logger.ErrorContext(ctx, "Debt sheet read failed during sweep",
				log.FieldUsername, username, log.FieldError, err)
			continue
		}
		if !ok || w.mirror == nil {
			continue
		}
		if err := w.mirror.MirrorDebts(ctx, username, p, debts); err != nil {
			failed++
			w.logger.ErrorContext(ctx, "Debt mirror failed during sweep",
				log.FieldUsername, username, log.FieldError, err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("sweep incomplete: %d failures", failed)
	}

	w.logger.InfoContext(ctx, "Mirror sweep completed",
		log.FieldPeriod, p.String(),
		"expense_users", len(withExpenses),
		"dataset_users", len(withDatasets),
	)
	return nil
}
