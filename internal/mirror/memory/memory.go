// Package memory is an in-process dataset mirror. It backs tests and the
// MIRROR_BACKEND=memory configuration, where mirroring is wanted for
// inspection but no spreadsheet is wired up.
package memory

import (
	"context"
	"sync"

	"despeses/internal/core"
	"despeses/internal/mirror"
)

type Mirror struct {
	mu       sync.Mutex
	expenses map[string][]core.Expense
	debts    map[string][]core.Debt
}

var _ mirror.DatasetMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{
		expenses: make(map[string][]core.Expense),
		debts:    make(map[string][]core.Debt),
	}
}

func key(username string, p core.Period) string {
	return username + "/" + p.String()
}

// MirrorExpenses replaces the stored snapshot for the user and period.
func (m *Mirror) MirrorExpenses(_ context.Context, username string, p core.Period, expenses []core.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expenses[key(username, p)] = append([]core.Expense(nil), expenses...)
	return nil
}

// MirrorDebts replaces the stored snapshot for the user and period.
func (m *Mirror) MirrorDebts(_ context.Context, username string, p core.Period, debts []core.Debt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debts[key(username, p)] = append([]core.Debt(nil), debts...)
	return nil
}

// Expenses returns the mirrored snapshot, or nil when none was received.
func (m *Mirror) Expenses(username string, p core.Period) []core.Expense {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Expense(nil), m.expenses[key(username, p)]...)
}

// Debts returns the mirrored snapshot, or nil when none was received.
func (m *Mirror) Debts(username string, p core.Period) []core.Debt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Debt(nil), m.debts[key(username, p)]...)
}
