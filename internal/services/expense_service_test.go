package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"despeses/internal/amqp"
	"despeses/internal/core"
)

func testExpense(concept string, cents int64, category core.Category, date core.Date) core.Expense {
	return core.Expense{
		Concept:  concept,
		Amount:   core.Money{Cents: cents},
		Category: category,
		Date:     date,
	}
}

func TestAddExpensePublishesSync(t *testing.T) {
	store := newFakeExpenseStore()
	pub := &fakePublisher{}
	svc := NewExpenseService(store, fakePreviousFinder{}, pub)

	saved, err := svc.AddExpense(context.Background(), "anna",
		testExpense("llum", 4550, core.CategoryEssential, core.NewDate(2025, 7, 12)))
	if err != nil {
		t.Fatalf("AddExpense() error = %v", err)
	}
	if saved.ID == 0 {
		t.Error("AddExpense() did not assign an ID")
	}

	if len(pub.messages) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.messages))
	}
	msg := pub.messages[0]
	if msg.Dataset != amqp.DatasetExpenses {
		t.Errorf("Dataset = %q, want %q", msg.Dataset, amqp.DatasetExpenses)
	}
	if msg.Username != "anna" || msg.Year != 2025 || msg.Month != 7 {
		t.Errorf("message targets %s %d-%d, want anna 2025-7", msg.Username, msg.Year, msg.Month)
	}
}

func TestAddExpenseValidates(t *testing.T) {
	store := newFakeExpenseStore()
	pub := &fakePublisher{}
	svc := NewExpenseService(store, fakePreviousFinder{}, pub)

	_, err := svc.AddExpense(context.Background(), "anna",
		testExpense("   ", 4550, core.CategoryEssential, core.NewDate(2025, 7, 12)))
	if !errors.Is(err, core.ErrEmptyConcept) {
		t.Fatalf("AddExpense() error = %v, want %v", err, core.ErrEmptyConcept)
	}
	if store.rowCount("anna") != 0 {
		t.Error("invalid expense must not be stored")
	}
	if len(pub.messages) != 0 {
		t.Error("invalid expense must not be published")
	}
}

func TestAddExpenseSurvivesPublishFailure(t *testing.T) {
	store := newFakeExpenseStore()
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewExpenseService(store, fakePreviousFinder{}, pub)

	_, err := svc.AddExpense(context.Background(), "anna",
		testExpense("llum", 4550, core.CategoryEssential, core.NewDate(2025, 7, 12)))
	if err != nil {
		t.Fatalf("AddExpense() error = %v, want nil when only the publish fails", err)
	}
	if store.rowCount("anna") != 1 {
		t.Error("expense must be stored even when the publish fails")
	}
}

func TestAddExpenseWithoutPublisher(t *testing.T) {
	store := newFakeExpenseStore()
	svc := NewExpenseService(store, fakePreviousFinder{}, nil)

	_, err := svc.AddExpense(context.Background(), "anna",
		testExpense("llum", 4550, core.CategoryEssential, core.NewDate(2025, 7, 12)))
	if err != nil {
		t.Fatalf("AddExpense() error = %v", err)
	}
}

func TestDeleteByConcept(t *testing.T) {
	store := newFakeExpenseStore()
	juliol := core.Period{Year: 2025, Month: time.July}
	store.seed("anna", juliol,
		testExpense("llum", 4550, core.CategoryEssential, core.NewDate(2025, 7, 2)),
		testExpense("llum", 3900, core.CategoryEssential, core.NewDate(2025, 7, 20)),
		testExpense("cotxe", 21000, core.CategoryEssential, core.NewDate(2025, 7, 5)))
	pub := &fakePublisher{}
	svc := NewExpenseService(store, fakePreviousFinder{}, pub)

	removed, err := svc.DeleteByConcept(context.Background(), "anna", juliol, "llum")
	if err != nil {
		t.Fatalf("DeleteByConcept() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if store.rowCount("anna") != 1 {
		t.Errorf("remaining rows = %d, want 1", store.rowCount("anna"))
	}
	if len(pub.messages) != 1 {
		t.Errorf("published %d messages, want 1", len(pub.messages))
	}
}

func TestDeleteByConceptNoMatches(t *testing.T) {
	store := newFakeExpenseStore()
	juliol := core.Period{Year: 2025, Month: time.July}
	store.seed("anna", juliol,
		testExpense("llum", 4550, core.CategoryEssential, core.NewDate(2025, 7, 2)))
	pub := &fakePublisher{}
	svc := NewExpenseService(store, fakePreviousFinder{}, pub)

	removed, err := svc.DeleteByConcept(context.Background(), "anna", juliol, "gas")
	if err != nil {
		t.Fatalf("DeleteByConcept() error = %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
	if len(pub.messages) != 0 {
		t.Error("nothing changed, nothing should be published")
	}
}

func TestDeleteByConceptEmptyConcept(t *testing.T) {
	svc := NewExpenseService(newFakeExpenseStore(), fakePreviousFinder{}, nil)
	_, err := svc.DeleteByConcept(context.Background(), "anna",
		core.Period{Year: 2025, Month: time.July}, "   ")
	if !errors.Is(err, core.ErrEmptyConcept) {
		t.Errorf("DeleteByConcept() error = %v, want %v", err, core.ErrEmptyConcept)
	}
}

func TestMonthDashboard(t *testing.T) {
	store := newFakeExpenseStore()
	juliol := core.Period{Year: 2025, Month: time.July}
	maig := core.Period{Year: 2025, Month: time.May}
	store.seed("anna", juliol,
		testExpense("llum", 4550, core.CategoryEssential, core.NewDate(2025, 7, 2)),
		testExpense("cinema", 1200, core.CategoryLeisure, core.NewDate(2025, 7, 9)),
		testExpense("gimnas", 2500, core.CategorySubscription, core.NewDate(2025, 7, 1)))
	store.seed("anna", maig,
		testExpense("hipoteca", 60000, core.CategoryEssential, core.NewDate(2025, 5, 1)))
	svc := NewExpenseService(store, fakePreviousFinder{prev: maig, ok: true}, nil)

	dash, err := svc.MonthDashboard(context.Background(), "anna", juliol, core.Money{Cents: 160000})
	if err != nil {
		t.Fatalf("MonthDashboard() error = %v", err)
	}

	if dash.Summary.Count != 3 {
		t.Errorf("Count = %d, want 3", dash.Summary.Count)
	}
	if dash.Summary.Total.Cents != 8250 {
		t.Errorf("Total = %d cents, want 8250", dash.Summary.Total.Cents)
	}
	if dash.Summary.Savings.Cents != 151750 {
		t.Errorf("Savings = %d cents, want 151750", dash.Summary.Savings.Cents)
	}

	if !dash.Delta.HasPrevious {
		t.Fatal("Delta.HasPrevious = false, want true")
	}
	if !dash.Delta.Previous.Equal(maig) {
		t.Errorf("Delta.Previous = %s, want %s", dash.Delta.Previous, maig)
	}
	if dash.Delta.Count != 2 {
		t.Errorf("Delta.Count = %d, want 2", dash.Delta.Count)
	}
	if dash.Delta.Total.Cents != -51750 {
		t.Errorf("Delta.Total = %d cents, want -51750", dash.Delta.Total.Cents)
	}
	if dash.Delta.Savings.Cents != 51750 {
		t.Errorf("Delta.Savings = %d cents, want 51750", dash.Delta.Savings.Cents)
	}

	if len(dash.Groups) != 4 {
		t.Fatalf("got %d groups, want 4", len(dash.Groups))
	}
	if dash.Groups[0].Info.ID != core.CategoryEssential || len(dash.Groups[0].Expenses) != 1 {
		t.Errorf("essential group = %+v, want one row", dash.Groups[0])
	}
	if dash.Groups[0].Total.Cents != 4550 {
		t.Errorf("essential total = %d cents, want 4550", dash.Groups[0].Total.Cents)
	}
	if len(dash.Groups[3].Expenses) != 0 {
		t.Errorf("micro savings group has %d rows, want 0", len(dash.Groups[3].Expenses))
	}
}

func TestMonthDashboardWithoutHistory(t *testing.T) {
	store := newFakeExpenseStore()
	juliol := core.Period{Year: 2025, Month: time.July}
	store.seed("anna", juliol,
		testExpense("llum", 4550, core.CategoryEssential, core.NewDate(2025, 7, 2)))
	svc := NewExpenseService(store, fakePreviousFinder{}, nil)

	dash, err := svc.MonthDashboard(context.Background(), "anna", juliol, core.Money{Cents: 160000})
	if err != nil {
		t.Fatalf("MonthDashboard() error = %v", err)
	}
	if dash.Delta.HasPrevious {
		t.Error("Delta.HasPrevious = true, want false with no history")
	}
	if len(dash.Groups) != 4 {
		t.Errorf("got %d groups, want the full taxonomy", len(dash.Groups))
	}
}

func TestMonthDashboardPropagatesStoreError(t *testing.T) {
	store := newFakeExpenseStore()
	store.err = errors.New("db locked")
	svc := NewExpenseService(store, fakePreviousFinder{}, nil)

	_, err := svc.MonthDashboard(context.Background(), "anna",
		core.Period{Year: 2025, Month: time.July}, core.Money{Cents: 160000})
	if err == nil {
		t.Fatal("MonthDashboard() error = nil, want store error")
	}
}
