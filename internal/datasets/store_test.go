package datasets

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"despeses/internal/core"
)

func testDebts() []core.Debt {
	return []core.Debt{
		{
			Name:       "cotxe",
			Total:      core.Money{Cents: 1200000},
			StartDate:  core.NewDate(2024, 1, 1),
			EndDate:    core.NewDate(2026, 1, 1),
			Paid:       true,
			Status:     50,
			MonthsPaid: 12,
		},
		{
			Name:       "hipoteca",
			Total:      core.Money{Cents: 9000000},
			StartDate:  core.NewDate(2020, 6, 1),
			EndDate:    core.NewDate(2050, 6, 1),
			Paid:       false,
			Status:     20,
			MonthsPaid: 72,
		},
	}
}

func TestSaveAndLoadDebtSheet(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()
	p := core.Period{Year: 2025, Month: time.July}
	want := testDebts()

	if err := store.Save(ctx, "anna", p, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, ok, err := store.Load(ctx, "anna", p)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !ok {
		t.Fatal("Load() ok = false after Save")
	}
	if len(got) != len(want) {
		t.Fatalf("Load() returned %d debts, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("debt %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSaveWritesCanonicalPath(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)
	p := core.Period{Year: 2025, Month: time.July}

	if err := store.Save(context.Background(), "anna", p, testDebts()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	path := filepath.Join(root, "anna", "2025", "july", "debts.csv")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("sheet not at canonical path: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != "name,total,start_date,end_date,paid,status,months_paid" {
		t.Errorf("header = %q", lines[0])
	}
	if len(lines) != 3 {
		t.Errorf("sheet has %d lines, want 3", len(lines))
	}
	if !strings.HasPrefix(lines[1], "cotxe,12000.00,2024-01-01,2026-01-01,true,50,12") {
		t.Errorf("first row = %q", lines[1])
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)
	p := core.Period{Year: 2025, Month: time.July}

	if err := store.Save(context.Background(), "anna", p, testDebts()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(root, "anna", "2025", "july"))
	if err != nil {
		t.Fatalf("read bucket: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "debts.csv" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("bucket contains %v, want only debts.csv", names)
	}
}

func TestSaveOverwritesExistingSheet(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()
	p := core.Period{Year: 2025, Month: time.July}

	if err := store.Save(ctx, "anna", p, testDebts()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save(ctx, "anna", p, testDebts()[:1]); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	got, _, err := store.Load(ctx, "anna", p)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Load() returned %d debts after overwrite, want 1", len(got))
	}
}

func TestLoadMissingSheet(t *testing.T) {
	store := NewStore(t.TempDir())

	debts, ok, err := store.Load(context.Background(), "anna", core.Period{Year: 2025, Month: time.July})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if ok {
		t.Error("Load() ok = true for missing sheet")
	}
	if debts != nil {
		t.Errorf("Load() debts = %v for missing sheet", debts)
	}
}

func TestLoadMalformedSheetNamesPath(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "anna", "2025", "july")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "debts.csv")
	if err := os.WriteFile(path, []byte("name,total,start_date,end_date,paid,status,months_paid\ncotxe,not-a-number,2024-01-01,2026-01-01,true,50,12\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := NewStore(root)

	_, _, err := store.Load(context.Background(), "anna", core.Period{Year: 2025, Month: time.July})
	if err == nil {
		t.Fatal("Load() error = nil for malformed sheet")
	}
	if !strings.Contains(err.Error(), path) {
		t.Errorf("error %q does not name the sheet path", err)
	}
}

func TestLoadRejectsWrongHeader(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "anna", "2025", "july")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "debts.csv"), []byte("nom,import\nx,1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := NewStore(root)

	_, _, err := store.Load(context.Background(), "anna", core.Period{Year: 2025, Month: time.July})
	if err == nil || !strings.Contains(err.Error(), "header") {
		t.Errorf("Load() error = %v, want header error", err)
	}
}

func TestFindPreviousSheet(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	if err := store.Save(ctx, "anna", core.Period{Year: 2025, Month: time.March}, testDebts()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save(ctx, "anna", core.Period{Year: 2025, Month: time.May}, testDebts()[:1]); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	debts, p, ok, err := store.FindPreviousSheet(ctx, "anna", core.Period{Year: 2025, Month: time.July})
	if err != nil {
		t.Fatalf("FindPreviousSheet() error = %v", err)
	}
	if !ok {
		t.Fatal("FindPreviousSheet() ok = false")
	}
	if p != (core.Period{Year: 2025, Month: time.May}) {
		t.Errorf("period = %v, want 2025-05", p)
	}
	if len(debts) != 1 {
		t.Errorf("returned %d debts, want 1", len(debts))
	}
}

func TestFindPreviousSheetNoHistory(t *testing.T) {
	store := NewStore(t.TempDir())

	_, _, ok, err := store.FindPreviousSheet(context.Background(), "anna", core.Period{Year: 2025, Month: time.July})
	if err != nil {
		t.Fatalf("FindPreviousSheet() error = %v", err)
	}
	if ok {
		t.Error("FindPreviousSheet() ok = true with no history")
	}
}

func TestUsersAreIsolated(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()
	p := core.Period{Year: 2025, Month: time.July}

	if err := store.Save(ctx, "anna", p, testDebts()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	_, ok, err := store.Load(ctx, "pere", p)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if ok {
		t.Error("Load() found anna's sheet under pere")
	}
}

func TestRejectsInvalidUsername(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()
	p := core.Period{Year: 2025, Month: time.July}

	for _, username := range []string{"", "..", "a/b", "Anna"} {
		t.Run(username, func(t *testing.T) {
			if err := store.Save(ctx, username, p, nil); err == nil {
				t.Errorf("Save(%q) error = nil", username)
			}
			if _, _, err := store.Load(ctx, username, p); err == nil {
				t.Errorf("Load(%q) error = nil", username)
			}
		})
	}
}

func TestExpenseSnapshotRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()
	p := core.Period{Year: 2025, Month: time.July}
	want := []core.Expense{
		{Concept: "llum", Amount: core.Money{Cents: 4523}, Category: core.CategoryEssential, Description: "factura juliol"},
		{Concept: "cinema", Amount: core.Money{Cents: 1250}, Category: core.CategoryLeisure},
	}

	if err := store.WriteExpenseSnapshot(ctx, "anna", p, want); err != nil {
		t.Fatalf("WriteExpenseSnapshot() error = %v", err)
	}

	got, ok, err := store.ReadExpenseSnapshot(ctx, "anna", p)
	if err != nil {
		t.Fatalf("ReadExpenseSnapshot() error = %v", err)
	}
	if !ok {
		t.Fatal("ReadExpenseSnapshot() ok = false after write")
	}
	if len(got) != len(want) {
		t.Fatalf("snapshot has %d rows, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Concept != want[i].Concept || got[i].Amount != want[i].Amount ||
			got[i].Category != want[i].Category || got[i].Description != want[i].Description {
			t.Errorf("row %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestExpenseSnapshotMissing(t *testing.T) {
	store := NewStore(t.TempDir())

	_, ok, err := store.ReadExpenseSnapshot(context.Background(), "anna", core.Period{Year: 2025, Month: time.July})
	if err != nil {
		t.Fatalf("ReadExpenseSnapshot() error = %v", err)
	}
	if ok {
		t.Error("ReadExpenseSnapshot() ok = true for missing snapshot")
	}
}

func TestUsernames(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)
	ctx := context.Background()
	p := core.Period{Year: 2025, Month: time.July}

	if err := store.Save(ctx, "pere", p, testDebts()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save(ctx, "anna", p, testDebts()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	// Stray entries are skipped.
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "Not A User"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := store.Usernames(ctx)
	if err != nil {
		t.Fatalf("Usernames() error = %v", err)
	}
	if len(got) != 2 || got[0] != "anna" || got[1] != "pere" {
		t.Errorf("Usernames() = %v, want [anna pere]", got)
	}
}

func TestUsernamesMissingRoot(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nothing-here"))

	got, err := store.Usernames(context.Background())
	if err != nil {
		t.Fatalf("Usernames() error = %v", err)
	}
	if got != nil {
		t.Errorf("Usernames() = %v, want nil for a root nobody wrote to", got)
	}
}

func TestDebtSheetPreservesSpecialCharacters(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()
	p := core.Period{Year: 2025, Month: time.July}
	want := []core.Debt{{
		Name:       `préstec "cotxe", quota`,
		Total:      core.Money{Cents: 100},
		StartDate:  core.NewDate(2025, 1, 1),
		EndDate:    core.NewDate(2025, 12, 1),
		MonthsPaid: 0,
	}}

	if err := store.Save(ctx, "anna", p, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, _, err := store.Load(ctx, "anna", p)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got[0].Name != want[0].Name {
		t.Errorf("name = %q, want %q", got[0].Name, want[0].Name)
	}
}
