package core

import (
	"errors"
	"strings"
)

var (
	ErrEmptyDebtName = errors.New("empty debt name")
	ErrDebtDateOrder = errors.New("debt end date must be after start date")
	ErrUnknownDebt   = errors.New("unknown debt")
	ErrDuplicateDebt = errors.New("debt already exists")
	ErrInvalidMonths = errors.New("months paid out of range")
)

// Debt is one row of a month's debt sheet: an installment commitment being
// paid down month by month. Paid tracks whether this month's installment is
// settled; MonthsPaid and Status accumulate across sheets as the row is
// carried forward period to period.
type Debt struct {
	Name       string
	Total      Money
	StartDate  Date
	EndDate    Date
	Paid       bool
	Status     int // 0-100, percentage of installments settled
	MonthsPaid int
}

func (d Debt) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrEmptyDebtName
	}
	if err := d.Total.Validate(); err != nil {
		return err
	}
	if err := d.StartDate.Validate(); err != nil {
		return err
	}
	if err := d.EndDate.Validate(); err != nil {
		return err
	}
	if !d.EndDate.After(d.StartDate.Time) {
		return ErrDebtDateOrder
	}
	if d.MonthsPaid < 0 {
		return ErrInvalidMonths
	}
	return nil
}

// TotalMonths returns the number of monthly installments between the start
// and end dates, counting whole calendar months.
func (d Debt) TotalMonths() int {
	return (d.EndDate.Year()-d.StartDate.Year())*12 + (d.EndDate.Month() - d.StartDate.Month())
}

// MonthlyAmount returns the per-installment amount, or the full total when
// the date range spans no whole month.
func (d Debt) MonthlyAmount() Money {
	months := d.TotalMonths()
	if months <= 0 {
		return d.Total
	}
	return Money{Cents: d.Total.Cents / int64(months)}
}

// SetPaid toggles this month's installment and updates the accumulated
// progress: paying adds a settled month, undoing removes one. Status is
// recomputed as the settled percentage.
func (d *Debt) SetPaid(paid bool) {
	if d.Paid == paid {
		return
	}
	d.Paid = paid
	if paid {
		d.MonthsPaid++
	} else if d.MonthsPaid > 0 {
		d.MonthsPaid--
	}
	d.RecomputeStatus()
}

// RecomputeStatus refreshes Status from MonthsPaid and the installment
// count, clamped to 0-100.
func (d *Debt) RecomputeStatus() {
	months := d.TotalMonths()
	if months <= 0 {
		d.Status = 0
		return
	}
	status := d.MonthsPaid * 100 / months
	if status > 100 {
		status = 100
	}
	if status < 0 {
		status = 0
	}
	d.Status = status
}

// FindDebt returns the index of the debt named name, or -1.
func FindDebt(debts []Debt, name string) int {
	for i := range debts {
		if debts[i].Name == name {
			return i
		}
	}
	return -1
}
