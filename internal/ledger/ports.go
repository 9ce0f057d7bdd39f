package ledger

import (
	"context"

	"despeses/internal/core"
)

// Ports for outbound adapters.
type (
	// UserStore persists accounts and their credentials.
	UserStore interface {
		CreateUser(ctx context.Context, username, name, passwordHash string) (core.User, error)
		GetUserByUsername(ctx context.Context, username string) (core.User, error)
		// UpdatePasswordHash replaces the stored credential, used when
		// upgrading legacy plaintext passwords after a successful login.
		UpdatePasswordHash(ctx context.Context, username, passwordHash string) error
		DeleteUser(ctx context.Context, username string) error
	}

	// ExpenseStore persists individual expense movements per user and month.
	ExpenseStore interface {
		AddExpense(ctx context.Context, username string, e core.Expense) (core.Expense, error)
		// ExpensesForPeriod returns all expenses of the user in the given
		// month, ordered by day then insertion order.
		ExpensesForPeriod(ctx context.Context, username string, p core.Period) ([]core.Expense, error)
		// DeleteByConcept removes every expense of the period whose concept
		// matches exactly. Returns the number of rows removed.
		DeleteByConcept(ctx context.Context, username string, p core.Period, concept string) (int64, error)
		CountForPeriod(ctx context.Context, username string, p core.Period) (int64, error)
	}

	// PreviousPeriodFinder locates the most recent month strictly before the
	// given one for which the user has any recorded expense.
	PreviousPeriodFinder interface {
		PreviousPeriod(ctx context.Context, username string, before core.Period) (core.Period, bool, error)
	}

	// DebtSheetStore persists per-month debt sheets.
	DebtSheetStore interface {
		// Load returns the sheet for the period, reporting whether it exists.
		Load(ctx context.Context, username string, p core.Period) ([]core.Debt, bool, error)
		Save(ctx context.Context, username string, p core.Period, debts []core.Debt) error
		// FindPreviousSheet returns the nearest sheet strictly before the
		// period, within the resolver lookback window.
		FindPreviousSheet(ctx context.Context, username string, before core.Period) ([]core.Debt, core.Period, bool, error)
	}
)
