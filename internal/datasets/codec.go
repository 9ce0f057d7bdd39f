// Package datasets reads and writes the per-month CSV files that live under
// a user's data root. Debt sheets are the authoritative store for debts;
// expense files are snapshots exported by the worker for backup and
// mirroring. Paths come from the period resolver, so every file sits in a
// <year>/<month>/ bucket.
package datasets

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"despeses/internal/core"
)

// Filenames of the two dataset kinds inside a period bucket.
const (
	DebtsFile    = "debts.csv"
	ExpensesFile = "expenses.csv"
)

var (
	debtHeader    = []string{"name", "total", "start_date", "end_date", "paid", "status", "months_paid"}
	expenseHeader = []string{"concept", "amount", "category", "description"}
)

func writeDebts(w io.Writer, debts []core.Debt) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(debtHeader); err != nil {
		return err
	}
	for _, d := range debts {
		rec := []string{
			d.Name,
			d.Total.DecimalString(),
			d.StartDate.ISO(),
			d.EndDate.ISO(),
			strconv.FormatBool(d.Paid),
			strconv.Itoa(d.Status),
			strconv.Itoa(d.MonthsPaid),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func readDebts(r io.Reader) ([]core.Debt, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(debtHeader)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("missing header row")
	}
	if strings.Join(records[0], ",") != strings.Join(debtHeader, ",") {
		return nil, fmt.Errorf("unexpected debt header: got %v", records[0])
	}
	debts := make([]core.Debt, 0, len(records)-1)
	for i, rec := range records[1:] {
		d, err := parseDebtRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		debts = append(debts, d)
	}
	return debts, nil
}

func parseDebtRecord(rec []string) (core.Debt, error) {
	total, err := core.ParseMoney(rec[1])
	if err != nil {
		return core.Debt{}, fmt.Errorf("total %q: %w", rec[1], err)
	}
	start, err := core.ParseDate(rec[2])
	if err != nil {
		return core.Debt{}, fmt.Errorf("start_date %q: %w", rec[2], err)
	}
	end, err := core.ParseDate(rec[3])
	if err != nil {
		return core.Debt{}, fmt.Errorf("end_date %q: %w", rec[3], err)
	}
	paid, err := strconv.ParseBool(rec[4])
	if err != nil {
		return core.Debt{}, fmt.Errorf("paid %q: %w", rec[4], err)
	}
	status, err := strconv.Atoi(rec[5])
	if err != nil {
		return core.Debt{}, fmt.Errorf("status %q: %w", rec[5], err)
	}
	months, err := strconv.Atoi(rec[6])
	if err != nil {
		return core.Debt{}, fmt.Errorf("months_paid %q: %w", rec[6], err)
	}
	return core.Debt{
		Name:       rec[0],
		Total:      total,
		StartDate:  start,
		EndDate:    end,
		Paid:       paid,
		Status:     status,
		MonthsPaid: months,
	}, nil
}

func writeExpenses(w io.Writer, expenses []core.Expense) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(expenseHeader); err != nil {
		return err
	}
	for _, e := range expenses {
		rec := []string{
			e.Concept,
			e.Amount.DecimalString(),
			e.Category.String(),
			e.Description,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func readExpenses(r io.Reader) ([]core.Expense, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(expenseHeader)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("missing header row")
	}
	if strings.Join(records[0], ",") != strings.Join(expenseHeader, ",") {
		return nil, fmt.Errorf("unexpected expense header: got %v", records[0])
	}
	expenses := make([]core.Expense, 0, len(records)-1)
	for i, rec := range records[1:] {
		amount, err := core.ParseMoney(rec[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: amount %q: %w", i+2, rec[1], err)
		}
		expenses = append(expenses, core.Expense{
			Concept:     rec[0],
			Amount:      amount,
			Category:    core.Category(rec[2]),
			Description: rec[3],
		})
	}
	return expenses, nil
}
