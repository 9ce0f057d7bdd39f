package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"despeses/internal/core"
)

func seededDebt(name string, cents int64, months int) core.Debt {
	start := core.NewDate(2025, 1, 1)
	return core.Debt{
		Name:      name,
		Total:     core.Money{Cents: cents},
		StartDate: start,
		EndDate:   core.Date{Time: start.Time.AddDate(0, months, 0)},
	}
}

func TestDebtsPageNoSheet(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "pere")

	req := httptest.NewRequest(http.MethodGet, "/debts?year=2025&month=7", nil)
	req.AddCookie(cookie)
	rec := env.do(req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "Encara no hi ha full de deutes") {
		t.Error("page missing the no-sheet panel")
	}
}

func TestDebtsPageOffersDuplicate(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "pere")
	prev := core.Period{Year: 2025, Month: time.May}
	env.sheets.seed("pere", prev, []core.Debt{seededDebt("hipoteca", 600000, 12)})

	req := httptest.NewRequest(http.MethodGet, "/debts?year=2025&month=7", nil)
	req.AddCookie(cookie)
	rec := env.do(req)

	body := rec.Body.String()
	if !strings.Contains(body, "Duplica el full de") {
		t.Error("page missing the duplicate option")
	}
	if !strings.Contains(body, "Maig 2025") {
		t.Error("page missing the previous sheet label")
	}
}

func TestCreateSheetEmpty(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "pere")

	req := formRequest(http.MethodPost, "/debts/sheet", url.Values{
		"mode":  {"empty"},
		"year":  {"2025"},
		"month": {"7"},
	})
	req.AddCookie(cookie)
	rec := env.do(req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Header().Get("HX-Refresh") != "true" {
		t.Error("missing HX-Refresh header")
	}

	p := core.Period{Year: 2025, Month: time.July}
	if _, ok := env.sheets.sheets["pere"][p]; !ok {
		t.Error("sheet not persisted")
	}
}

func TestCreateSheetDuplicate(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "pere")
	prev := core.Period{Year: 2025, Month: time.May}
	carried := seededDebt("hipoteca", 600000, 12)
	carried.MonthsPaid = 5
	carried.Status = 41
	env.sheets.seed("pere", prev, []core.Debt{carried})

	req := formRequest(http.MethodPost, "/debts/sheet", url.Values{
		"mode":  {"duplicate"},
		"year":  {"2025"},
		"month": {"7"},
	})
	req.AddCookie(cookie)
	rec := env.do(req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	p := core.Period{Year: 2025, Month: time.July}
	debts := env.sheets.sheets["pere"][p]
	if len(debts) != 1 {
		t.Fatalf("duplicated sheet has %d rows, want 1", len(debts))
	}
	if debts[0].MonthsPaid != 5 {
		t.Errorf("MonthsPaid = %d, want the carried 5", debts[0].MonthsPaid)
	}
}

func TestCreateSheetDuplicateWithoutPrevious(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "pere")

	req := formRequest(http.MethodPost, "/debts/sheet", url.Values{
		"mode":  {"duplicate"},
		"year":  {"2025"},
		"month": {"7"},
	})
	req.AddCookie(cookie)
	rec := env.do(req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	if !strings.Contains(rec.Header().Get("HX-Trigger"), "cap full anterior") {
		t.Error("missing no-previous-sheet toast")
	}
}

func TestAddDebt(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "pere")
	p := core.Period{Year: 2025, Month: time.July}
	env.sheets.seed("pere", p, nil)

	req := formRequest(http.MethodPost, "/debts", url.Values{
		"name":       {"moto"},
		"total":      {"3600,00"},
		"start_date": {"2025-07-01"},
		"end_date":   {"2026-07-01"},
		"year":       {"2025"},
		"month":      {"7"},
	})
	req.AddCookie(cookie)
	rec := env.do(req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "moto") {
		t.Error("refreshed table missing the new debt")
	}
	if !strings.Contains(rec.Header().Get("HX-Trigger"), "Deute afegit!") {
		t.Error("missing success toast")
	}

	debts := env.sheets.sheets["pere"][p]
	if len(debts) != 1 {
		t.Fatalf("sheet has %d rows, want 1", len(debts))
	}
	if debts[0].MonthsPaid != 0 || debts[0].Paid {
		t.Error("new debt should start with no progress")
	}
}

func TestAddDebtDefaultEndDate(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "pere")
	p := core.Period{Year: 2025, Month: time.July}
	env.sheets.seed("pere", p, nil)

	req := formRequest(http.MethodPost, "/debts", url.Values{
		"name":       {"gimnàs"},
		"total":      {"540,00"},
		"start_date": {"2025-07-01"},
		"year":       {"2025"},
		"month":      {"7"},
	})
	req.AddCookie(cookie)
	rec := env.do(req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	debts := env.sheets.sheets["pere"][p]
	if got := debts[0].EndDate.ISO(); got != "2026-07-01" {
		t.Errorf("EndDate = %s, want one year after start", got)
	}
}

func TestAddDebtWithoutSheet(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "pere")

	req := formRequest(http.MethodPost, "/debts", url.Values{
		"name":       {"moto"},
		"total":      {"3600,00"},
		"start_date": {"2025-07-01"},
		"year":       {"2025"},
		"month":      {"7"},
	})
	req.AddCookie(cookie)
	rec := env.do(req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
	if !strings.Contains(rec.Header().Get("HX-Trigger"), "Encara no hi ha full") {
		t.Error("missing no-sheet toast")
	}
}

func TestTogglePaid(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "pere")
	p := core.Period{Year: 2025, Month: time.July}
	env.sheets.seed("pere", p, []core.Debt{seededDebt("moto", 360000, 12)})

	req := formRequest(http.MethodPost, "/debts/paid", url.Values{
		"name":  {"moto"},
		"paid":  {"true"},
		"year":  {"2025"},
		"month": {"7"},
	})
	req.AddCookie(cookie)
	rec := env.do(req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "1/12 mesos") {
		t.Error("table missing updated progress")
	}
	if !strings.Contains(rec.Header().Get("HX-Trigger"), "1 de 12 mesos pagats") {
		t.Error("missing progress toast")
	}

	debts := env.sheets.sheets["pere"][p]
	if debts[0].MonthsPaid != 1 || !debts[0].Paid {
		t.Errorf("stored debt = %+v, want one month paid", debts[0])
	}
}

func TestTogglePaidUnknownDebt(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "pere")
	p := core.Period{Year: 2025, Month: time.July}
	env.sheets.seed("pere", p, nil)

	req := formRequest(http.MethodPost, "/debts/paid", url.Values{
		"name":  {"fantasma"},
		"paid":  {"true"},
		"year":  {"2025"},
		"month": {"7"},
	})
	req.AddCookie(cookie)
	rec := env.do(req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestDeleteDebt(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "pere")
	p := core.Period{Year: 2025, Month: time.July}
	env.sheets.seed("pere", p, []core.Debt{
		seededDebt("moto", 360000, 12),
		seededDebt("hipoteca", 600000, 24),
	})

	req := formRequest(http.MethodPost, "/debts/delete", url.Values{
		"name":  {"moto"},
		"year":  {"2025"},
		"month": {"7"},
	})
	req.AddCookie(cookie)
	rec := env.do(req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if strings.Contains(rec.Body.String(), "moto") {
		t.Error("deleted debt still in the refreshed table")
	}

	debts := env.sheets.sheets["pere"][p]
	if len(debts) != 1 || debts[0].Name != "hipoteca" {
		t.Errorf("sheet after delete = %v, want only hipoteca", debts)
	}
}

func TestDebtTablePartialMissingSheet(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "pere")

	req := httptest.NewRequest(http.MethodGet, "/ui/debt-table?year=2030&month=1", nil)
	req.AddCookie(cookie)
	rec := env.do(req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "Encara no hi ha full de deutes") {
		t.Error("partial missing the no-sheet panel")
	}
}
