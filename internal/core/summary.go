package core

// CategoryAmount is one bucket of a month summary's breakdown.
type CategoryAmount struct {
	Info  CategoryInfo
	Total Money
}

// MonthSummary aggregates one user's expenses for a single period. Savings
// is salary minus total and may be negative. ByCategory always covers the
// full taxonomy plus the synthetic savings bucket, in display order, so
// renderers get a stable shape regardless of which categories have rows.
type MonthSummary struct {
	Period     Period
	Salary     Money
	Count      int
	Total      Money
	Savings    Money
	ByCategory []CategoryAmount
}

// SummaryDelta compares a month against the nearest earlier month with
// data. When HasPrevious is false the delta fields are meaningless and
// screens show the current values alone.
type SummaryDelta struct {
	HasPrevious bool
	Previous    Period
	Count       int
	Total       Money
	Savings     Money
}

// BuildMonthSummary computes the summary for one period from its expense
// rows and the salary the user entered for that view. Pure.
func BuildMonthSummary(p Period, expenses []Expense, salary Money) MonthSummary {
	totals := make(map[Category]int64, len(categoryOrder))
	var totalCents int64
	for _, e := range expenses {
		totals[e.Category] += e.Amount.Cents
		totalCents += e.Amount.Cents
	}

	savings := salary.Cents - totalCents
	byCategory := make([]CategoryAmount, 0, len(categoryOrder)+1)
	for _, info := range categoryOrder {
		byCategory = append(byCategory, CategoryAmount{
			Info:  info,
			Total: Money{Cents: totals[info.ID]},
		})
	}
	byCategory = append(byCategory, CategoryAmount{
		Info:  savingsInfo,
		Total: Money{Cents: savings},
	})

	return MonthSummary{
		Period:     p,
		Salary:     salary,
		Count:      len(expenses),
		Total:      Money{Cents: totalCents},
		Savings:    Money{Cents: savings},
		ByCategory: byCategory,
	}
}

// CompareSummaries derives the month-over-month delta of current against
// previous. Both summaries must be built with the same salary so the
// savings delta mirrors the spending delta.
func CompareSummaries(current, previous MonthSummary) SummaryDelta {
	return SummaryDelta{
		HasPrevious: true,
		Previous:    previous.Period,
		Count:       current.Count - previous.Count,
		Total:       current.Total.Sub(previous.Total),
		Savings:     current.Savings.Sub(previous.Savings),
	}
}

// ExpensesByCategory filters rows for one category, preserving order.
func ExpensesByCategory(expenses []Expense, c Category) []Expense {
	var out []Expense
	for _, e := range expenses {
		if e.Category == c {
			out = append(out, e)
		}
	}
	return out
}

// CategoryTotal sums the amounts of one category's rows.
func CategoryTotal(expenses []Expense, c Category) Money {
	var cents int64
	for _, e := range expenses {
		if e.Category == c {
			cents += e.Amount.Cents
		}
	}
	return Money{Cents: cents}
}
