// Package mirror defines where dataset snapshots are copied after the
// worker processes a sync message. Mirrors are write-only from the
// application's point of view; the authoritative data stays in SQLite and
// the CSV datasets.
package mirror

import (
	"context"

	"despeses/internal/core"
)

// DatasetMirror receives one user's rows for one period. Implementations
// replace whatever they previously held for that (user, period) pair, so
// redelivered messages are harmless.
type DatasetMirror interface {
	MirrorExpenses(ctx context.Context, username string, p core.Period, expenses []core.Expense) error
	MirrorDebts(ctx context.Context, username string, p core.Period, debts []core.Debt) error
}
