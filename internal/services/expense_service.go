package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"despeses/internal/amqp"
	"despeses/internal/core"
	"despeses/internal/ledger"
	"despeses/internal/log"
)

// CategoryGroup is one category's slice of a month: its rows and their
// total, in insertion order.
type CategoryGroup struct {
	Info     core.CategoryInfo
	Expenses []core.Expense
	Total    core.Money
}

// Dashboard is everything the month view renders: the summary, the
// month-over-month delta against the nearest earlier month with data,
// and the expense rows both flat and grouped by category.
type Dashboard struct {
	Period   core.Period
	Summary  core.MonthSummary
	Delta    core.SummaryDelta
	Expenses []core.Expense
	Groups   []CategoryGroup
}

// ExpenseService orchestrates expense operations across the relational
// store and the sync fan-out.
type ExpenseService struct {
	store     ledger.ExpenseStore
	history   ledger.PreviousPeriodFinder
	publisher SyncPublisher
	logger    *slog.Logger
}

func NewExpenseService(store ledger.ExpenseStore, history ledger.PreviousPeriodFinder, publisher SyncPublisher) *ExpenseService {
	return &ExpenseService{
		store:     store,
		history:   history,
		publisher: publisher,
		logger:    log.NewLogger(log.ComponentExpenses),
	}
}

// AddExpense validates and stores a new expense, then notifies the
// worker that the month changed.
func (s *ExpenseService) AddExpense(ctx context.Context, username string, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("add expense: %w", err)
	}

	saved, err := s.store.AddExpense(ctx, username, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("add expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense added",
		log.FieldUsername, username,
		log.FieldConcept, saved.Concept,
		log.FieldCategory, string(saved.Category),
		log.FieldAmountCents, saved.Amount.Cents)

	publishDatasetSync(ctx, s.logger, s.publisher, amqp.DatasetExpenses, username, core.PeriodOf(saved.Date.Time))
	return saved, nil
}

// DeleteByConcept removes every expense of the period whose concept
// matches exactly, returning how many rows went away. Nothing is
// published when no row matched.
func (s *ExpenseService) DeleteByConcept(ctx context.Context, username string, p core.Period, concept string) (int64, error) {
	concept = strings.TrimSpace(concept)
	if concept == "" {
		return 0, fmt.Errorf("delete expenses: %w", core.ErrEmptyConcept)
	}

	removed, err := s.store.DeleteByConcept(ctx, username, p, concept)
	if err != nil {
		return 0, fmt.Errorf("delete expenses: %w", err)
	}
	if removed == 0 {
		return 0, nil
	}

	s.logger.InfoContext(ctx, "Expenses deleted",
		log.FieldUsername, username,
		log.FieldPeriod, p.String(),
		log.FieldConcept, concept,
		"removed", removed)

	publishDatasetSync(ctx, s.logger, s.publisher, amqp.DatasetExpenses, username, p)
	return removed, nil
}

// Expenses returns the period's rows without building the dashboard.
func (s *ExpenseService) Expenses(ctx context.Context, username string, p core.Period) ([]core.Expense, error) {
	expenses, err := s.store.ExpensesForPeriod(ctx, username, p)
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	return expenses, nil
}

// MonthDashboard assembles the month view: the period's summary, the
// per-category groups and the delta against the nearest earlier month
// with data. Both summaries use the same salary so the savings delta
// mirrors the spending delta.
func (s *ExpenseService) MonthDashboard(ctx context.Context, username string, p core.Period, salary core.Money) (Dashboard, error) {
	expenses, err := s.store.ExpensesForPeriod(ctx, username, p)
	if err != nil {
		return Dashboard{}, fmt.Errorf("load expenses: %w", err)
	}

	summary := core.BuildMonthSummary(p, expenses, salary)
	delta := core.SummaryDelta{}

	prev, ok, err := s.history.PreviousPeriod(ctx, username, p)
	if err != nil {
		return Dashboard{}, fmt.Errorf("resolve previous period: %w", err)
	}
	if ok {
		prevExpenses, err := s.store.ExpensesForPeriod(ctx, username, prev)
		if err != nil {
			return Dashboard{}, fmt.Errorf("load previous expenses: %w", err)
		}
		prevSummary := core.BuildMonthSummary(prev, prevExpenses, salary)
		delta = core.CompareSummaries(summary, prevSummary)
	}

	groups := make([]CategoryGroup, 0, len(core.Categories()))
	for _, info := range core.Categories() {
		groups = append(groups, CategoryGroup{
			Info:     info,
			Expenses: core.ExpensesByCategory(expenses, info.ID),
			Total:    core.CategoryTotal(expenses, info.ID),
		})
	}

	return Dashboard{
		Period:   p,
		Summary:  summary,
		Delta:    delta,
		Expenses: expenses,
		Groups:   groups,
	}, nil
}
