// Package storage is the SQLite side of persistence: user accounts and
// expense rows. Debt sheets live in CSV datasets, not here.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"despeses/internal/core"
	"despeses/internal/ledger"
	"despeses/internal/period"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var (
	_ ledger.UserStore            = (*SQLiteRepository)(nil)
	_ ledger.ExpenseStore         = (*SQLiteRepository)(nil)
	_ ledger.PreviousPeriodFinder = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable. Used by readiness checks.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateUser implements ledger.UserStore.
func (r *SQLiteRepository) CreateUser(ctx context.Context, username, name, passwordHash string) (core.User, error) {
	row, err := r.queries.CreateUser(ctx, CreateUserParams{
		Username:     username,
		Name:         name,
		PasswordHash: passwordHash,
	})
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.User{}, fmt.Errorf("create user %s: %w", username, core.ErrUsernameTaken)
		}
		return core.User{}, fmt.Errorf("create user %s: %w", username, err)
	}

	slog.InfoContext(ctx, "User created", "id", row.ID, "username", row.Username)

	return userFromRow(row), nil
}

// GetUserByUsername implements ledger.UserStore.
func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	row, err := r.queries.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.User{}, fmt.Errorf("get user %s: %w", username, core.ErrUnknownUser)
		}
		return core.User{}, fmt.Errorf("get user %s: %w", username, err)
	}
	return userFromRow(row), nil
}

// UpdatePasswordHash implements ledger.UserStore.
func (r *SQLiteRepository) UpdatePasswordHash(ctx context.Context, username, passwordHash string) error {
	affected, err := r.queries.UpdateUserPassword(ctx, UpdateUserPasswordParams{
		Username:     username,
		PasswordHash: passwordHash,
	})
	if err != nil {
		return fmt.Errorf("update password for %s: %w", username, err)
	}
	if affected == 0 {
		return fmt.Errorf("update password for %s: %w", username, core.ErrUnknownUser)
	}
	return nil
}

// DeleteUser implements ledger.UserStore. Expense rows cascade.
func (r *SQLiteRepository) DeleteUser(ctx context.Context, username string) error {
	affected, err := r.queries.DeleteUser(ctx, username)
	if err != nil {
		return fmt.Errorf("delete user %s: %w", username, err)
	}
	if affected == 0 {
		return fmt.Errorf("delete user %s: %w", username, core.ErrUnknownUser)
	}

	slog.InfoContext(ctx, "User deleted", "username", username)
	return nil
}

// AddExpense implements ledger.ExpenseStore.
func (r *SQLiteRepository) AddExpense(ctx context.Context, username string, e core.Expense) (core.Expense, error) {
	user, err := r.queries.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Expense{}, fmt.Errorf("add expense for %s: %w", username, core.ErrUnknownUser)
		}
		return core.Expense{}, fmt.Errorf("add expense for %s: %w", username, err)
	}

	row, err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		UserID:      user.ID,
		Concept:     e.Concept,
		AmountCents: e.Amount.Cents,
		Category:    e.Category.String(),
		Description: e.Description,
		Year:        int64(e.Date.Year()),
		Month:       int64(e.Date.Month()),
		Day:         int64(e.Date.Day()),
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", row.ID,
		"username", username,
		"concept", row.Concept,
		"amount_cents", row.AmountCents,
		"year", row.Year,
		"month", row.Month)

	return expenseFromRow(row), nil
}

// ExpensesForPeriod implements ledger.ExpenseStore.
func (r *SQLiteRepository) ExpensesForPeriod(ctx context.Context, username string, p core.Period) ([]core.Expense, error) {
	user, err := r.queries.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("expenses for %s: %w", username, core.ErrUnknownUser)
		}
		return nil, fmt.Errorf("expenses for %s: %w", username, err)
	}

	rows, err := r.queries.ListExpensesForPeriod(ctx, ListExpensesForPeriodParams{
		UserID: user.ID,
		Year:   int64(p.Year),
		Month:  int64(p.Month),
	})
	if err != nil {
		return nil, fmt.Errorf("list expenses for %s %s: %w", username, p, err)
	}

	expenses := make([]core.Expense, len(rows))
	for i, row := range rows {
		expenses[i] = expenseFromRow(row)
	}
	return expenses, nil
}

// DeleteByConcept implements ledger.ExpenseStore. Every expense of the
// period whose concept matches exactly is removed.
func (r *SQLiteRepository) DeleteByConcept(ctx context.Context, username string, p core.Period, concept string) (int64, error) {
	user, err := r.queries.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("delete expenses for %s: %w", username, core.ErrUnknownUser)
		}
		return 0, fmt.Errorf("delete expenses for %s: %w", username, err)
	}

	affected, err := r.queries.DeleteExpensesByConcept(ctx, DeleteExpensesByConceptParams{
		UserID:  user.ID,
		Year:    int64(p.Year),
		Month:   int64(p.Month),
		Concept: concept,
	})
	if err != nil {
		return 0, fmt.Errorf("delete expenses %q for %s %s: %w", concept, username, p, err)
	}

	slog.InfoContext(ctx, "Expenses deleted",
		"username", username,
		"concept", concept,
		"period", p.String(),
		"rows", affected)

	return affected, nil
}

// CountForPeriod implements ledger.ExpenseStore.
func (r *SQLiteRepository) CountForPeriod(ctx context.Context, username string, p core.Period) (int64, error) {
	user, err := r.queries.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("count expenses for %s: %w", username, core.ErrUnknownUser)
		}
		return 0, fmt.Errorf("count expenses for %s: %w", username, err)
	}

	count, err := r.queries.CountExpensesForPeriod(ctx, CountExpensesForPeriodParams{
		UserID: user.ID,
		Year:   int64(p.Year),
		Month:  int64(p.Month),
	})
	if err != nil {
		return 0, fmt.Errorf("count expenses for %s %s: %w", username, p, err)
	}
	return count, nil
}

// PreviousPeriod implements ledger.PreviousPeriodFinder against recorded
// expense rows, with the same strictly-earlier and lookback-window
// semantics the file resolver applies to dataset buckets.
func (r *SQLiteRepository) PreviousPeriod(ctx context.Context, username string, before core.Period) (core.Period, bool, error) {
	user, err := r.queries.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Period{}, false, fmt.Errorf("previous period for %s: %w", username, core.ErrUnknownUser)
		}
		return core.Period{}, false, fmt.Errorf("previous period for %s: %w", username, err)
	}

	row, err := r.queries.GetPreviousExpensePeriod(ctx, GetPreviousExpensePeriodParams{
		UserID:        user.ID,
		Year:          int64(before.Year),
		Month:         int64(before.Month),
		LookbackYears: period.LookbackYears,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Period{}, false, nil
		}
		return core.Period{}, false, fmt.Errorf("previous period for %s before %s: %w", username, before, err)
	}

	p, err := core.NewPeriod(int(row.Year), int(row.Month))
	if err != nil {
		return core.Period{}, false, fmt.Errorf("previous period for %s: stored period %d-%d: %w", username, row.Year, row.Month, err)
	}
	return p, true, nil
}

// UsernamesWithExpenses returns every account with at least one expense
// row. The worker sweep walks this list.
func (r *SQLiteRepository) UsernamesWithExpenses(ctx context.Context) ([]string, error) {
	usernames, err := r.queries.ListExpenseUsernames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list usernames with expenses: %w", err)
	}
	return usernames, nil
}

func userFromRow(row User) core.User {
	return core.User{
		ID:           row.ID,
		Username:     row.Username,
		Name:         row.Name,
		PasswordHash: row.PasswordHash,
	}
}

func expenseFromRow(row Expense) core.Expense {
	return core.Expense{
		ID:          row.ID,
		Concept:     row.Concept,
		Amount:      core.Money{Cents: row.AmountCents},
		Category:    core.Category(row.Category),
		Description: row.Description,
		Date:        core.NewDate(int(row.Year), int(row.Month), int(row.Day)),
	}
}
