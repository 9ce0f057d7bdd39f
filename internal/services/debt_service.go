package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"despeses/internal/amqp"
	"despeses/internal/core"
	"despeses/internal/ledger"
	"despeses/internal/log"
)

var (
	// ErrNoSheet is returned by mutations that need a sheet the period
	// does not have. Callers open one first.
	ErrNoSheet = errors.New("no debt sheet for period")

	// ErrNoPreviousSheet is returned when a duplicate is requested but
	// no earlier sheet exists within the lookback window.
	ErrNoPreviousSheet = errors.New("no previous sheet to duplicate")
)

// CreateMode tells OpenSheet what to do when the period has no sheet.
type CreateMode int

const (
	// CreateNone only reports the missing sheet so the caller can offer
	// the create choices.
	CreateNone CreateMode = iota
	// CreateEmpty materializes a fresh sheet with no rows.
	CreateEmpty
	// CreateDuplicate copies the nearest earlier sheet's rows into the
	// period as they were, carried-forward progress included.
	CreateDuplicate
)

// DebtSheet is the outcome of opening one period's sheet: its rows, and
// where the nearest earlier sheet sits so screens can label the
// duplicate choice.
type DebtSheet struct {
	Period      core.Period
	Debts       []core.Debt
	Exists      bool
	Created     bool
	Previous    core.Period
	HasPrevious bool
}

// DebtService manages per-month debt sheets on the dataset store.
type DebtService struct {
	sheets    ledger.DebtSheetStore
	publisher SyncPublisher
	logger    *slog.Logger
}

func NewDebtService(sheets ledger.DebtSheetStore, publisher SyncPublisher) *DebtService {
	return &DebtService{
		sheets:    sheets,
		publisher: publisher,
		logger:    log.NewLogger(log.ComponentDebts),
	}
}

// OpenSheet loads the period's sheet. The previous sheet is resolved
// first in every case so the result can always say what a duplicate
// would copy. When the period has no sheet the mode decides whether to
// just report it, write a fresh one, or carry the previous rows over.
func (s *DebtService) OpenSheet(ctx context.Context, username string, p core.Period, mode CreateMode) (DebtSheet, error) {
	prevDebts, prevPeriod, hasPrev, err := s.sheets.FindPreviousSheet(ctx, username, p)
	if err != nil {
		return DebtSheet{}, fmt.Errorf("resolve previous sheet: %w", err)
	}

	sheet := DebtSheet{Period: p, Previous: prevPeriod, HasPrevious: hasPrev}

	debts, exists, err := s.sheets.Load(ctx, username, p)
	if err != nil {
		return DebtSheet{}, fmt.Errorf("load debt sheet: %w", err)
	}
	if exists {
		sheet.Debts = debts
		sheet.Exists = true
		return sheet, nil
	}

	switch mode {
	case CreateNone:
		return sheet, nil
	case CreateEmpty:
		sheet.Debts = nil
	case CreateDuplicate:
		if !hasPrev {
			return DebtSheet{}, fmt.Errorf("open sheet %s: %w", p, ErrNoPreviousSheet)
		}
		sheet.Debts = slices.Clone(prevDebts)
	default:
		return DebtSheet{}, fmt.Errorf("unknown create mode %d", mode)
	}

	if err := s.sheets.Save(ctx, username, p, sheet.Debts); err != nil {
		return DebtSheet{}, fmt.Errorf("create debt sheet: %w", err)
	}
	sheet.Exists = true
	sheet.Created = true

	s.logger.InfoContext(ctx, "Debt sheet created",
		log.FieldUsername, username,
		log.FieldPeriod, p.String(),
		"rows", len(sheet.Debts),
		"duplicated", mode == CreateDuplicate)

	publishDatasetSync(ctx, s.logger, s.publisher, amqp.DatasetDebts, username, p)
	return sheet, nil
}

// AddDebt appends a new commitment to the period's sheet. Progress
// fields always start at zero regardless of what the caller filled in.
func (s *DebtService) AddDebt(ctx context.Context, username string, p core.Period, d core.Debt) ([]core.Debt, error) {
	d.Paid = false
	d.Status = 0
	d.MonthsPaid = 0
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("add debt: %w", err)
	}

	debts, exists, err := s.sheets.Load(ctx, username, p)
	if err != nil {
		return nil, fmt.Errorf("add debt: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("add debt %s: %w", p, ErrNoSheet)
	}
	if core.FindDebt(debts, d.Name) >= 0 {
		return nil, fmt.Errorf("add debt %q: %w", d.Name, core.ErrDuplicateDebt)
	}

	debts = append(debts, d)
	if err := s.sheets.Save(ctx, username, p, debts); err != nil {
		return nil, fmt.Errorf("save debt sheet: %w", err)
	}

	s.logger.InfoContext(ctx, "Debt added",
		log.FieldUsername, username,
		log.FieldPeriod, p.String(),
		log.FieldDebtName, d.Name,
		log.FieldAmountCents, d.Total.Cents)

	publishDatasetSync(ctx, s.logger, s.publisher, amqp.DatasetDebts, username, p)
	return debts, nil
}

// SetPaid settles or reopens one debt's installment for the month and
// persists the recomputed progress.
func (s *DebtService) SetPaid(ctx context.Context, username string, p core.Period, name string, paid bool) (core.Debt, error) {
	debts, exists, err := s.sheets.Load(ctx, username, p)
	if err != nil {
		return core.Debt{}, fmt.Errorf("set paid: %w", err)
	}
	if !exists {
		return core.Debt{}, fmt.Errorf("set paid %s: %w", p, ErrNoSheet)
	}

	idx := core.FindDebt(debts, name)
	if idx < 0 {
		return core.Debt{}, fmt.Errorf("set paid %q: %w", name, core.ErrUnknownDebt)
	}

	debts[idx].SetPaid(paid)
	if err := s.sheets.Save(ctx, username, p, debts); err != nil {
		return core.Debt{}, fmt.Errorf("save debt sheet: %w", err)
	}

	s.logger.InfoContext(ctx, "Debt payment toggled",
		log.FieldUsername, username,
		log.FieldPeriod, p.String(),
		log.FieldDebtName, name,
		"paid", paid,
		"status", debts[idx].Status)

	publishDatasetSync(ctx, s.logger, s.publisher, amqp.DatasetDebts, username, p)
	return debts[idx], nil
}

// RemoveDebt drops one debt from the period's sheet by name.
func (s *DebtService) RemoveDebt(ctx context.Context, username string, p core.Period, name string) ([]core.Debt, error) {
	debts, exists, err := s.sheets.Load(ctx, username, p)
	if err != nil {
		return nil, fmt.Errorf("remove debt: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("remove debt %s: %w", p, ErrNoSheet)
	}

	idx := core.FindDebt(debts, name)
	if idx < 0 {
		return nil, fmt.Errorf("remove debt %q: %w", name, core.ErrUnknownDebt)
	}

	debts = append(debts[:idx], debts[idx+1:]...)
	if err := s.sheets.Save(ctx, username, p, debts); err != nil {
		return nil, fmt.Errorf("save debt sheet: %w", err)
	}

	s.logger.InfoContext(ctx, "Debt removed",
		log.FieldUsername, username,
		log.FieldPeriod, p.String(),
		log.FieldDebtName, name)

	publishDatasetSync(ctx, s.logger, s.publisher, amqp.DatasetDebts, username, p)
	return debts, nil
}
