package http

import (
	"bytes"
	"html/template"
	"net/http"
	"time"
	"unicode"
	"unicode/utf8"

	"despeses/internal/core"
	"despeses/internal/log"
	"despeses/internal/services"
)

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"euros":    func(m core.Money) string { return m.DisplayEuros() },
		"decimal":  func(m core.Money) string { return m.DecimalString() },
		"signed":   signedEuros,
		"title":    capitalizeFirst,
		"barWidth": barWidth,
	}
}

// signedEuros renders deltas with an explicit sign ("+€12,34").
func signedEuros(m core.Money) string {
	if m.Cents >= 0 {
		return "+" + m.DisplayEuros()
	}
	return m.DisplayEuros()
}

// capitalizeFirst uppercases the first rune ("juliol 2025" to "Juliol 2025").
func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

// barWidth maps an amount to a 0..100 bar percentage against the month's
// largest category. Negative amounts collapse to zero width.
func barWidth(amount core.Money, max int64) int {
	if max <= 0 || amount.Cents <= 0 {
		return 0
	}
	w := int(amount.Cents * 100 / max)
	if w > 100 {
		w = 100
	}
	return w
}

// dashboardView feeds dashboard.html and the month-summary partial.
type dashboardView struct {
	Username   string
	Year       int
	Month      int
	MonthLabel string
	Salary     core.Money
	Today      string
	Dash       services.Dashboard
	MaxCents   int64
	Categories []core.CategoryInfo
	Concepts   []string
}

func buildDashboardView(username string, p core.Period, salary core.Money, dash services.Dashboard) dashboardView {
	var max int64
	for _, ca := range dash.Summary.ByCategory {
		if ca.Total.Cents > max {
			max = ca.Total.Cents
		}
	}

	seen := make(map[string]bool)
	var concepts []string
	for _, e := range dash.Expenses {
		if !seen[e.Concept] {
			seen[e.Concept] = true
			concepts = append(concepts, e.Concept)
		}
	}

	return dashboardView{
		Username:   username,
		Year:       p.Year,
		Month:      int(p.Month),
		MonthLabel: capitalizeFirst(p.DisplayCA()),
		Salary:     salary,
		Today:      time.Now().Format("2006-01-02"),
		Dash:       dash,
		MaxCents:   max,
		Categories: core.Categories(),
		Concepts:   concepts,
	}
}

// debtsView feeds debts.html and the debt-table partial.
type debtsView struct {
	Username   string
	Year       int
	Month      int
	MonthLabel string
	PrevLabel  string
	Today      string
	EndDefault string
	Sheet      services.DebtSheet
}

func buildDebtsView(username string, p core.Period, sheet services.DebtSheet) debtsView {
	now := time.Now()
	v := debtsView{
		Username:   username,
		Year:       p.Year,
		Month:      int(p.Month),
		MonthLabel: capitalizeFirst(p.DisplayCA()),
		Today:      now.Format("2006-01-02"),
		EndDefault: now.AddDate(1, 0, 0).Format("2006-01-02"),
		Sheet:      sheet,
	}
	if sheet.HasPrevious {
		v.PrevLabel = capitalizeFirst(sheet.Previous.DisplayCA())
	}
	return v
}

// authView feeds login.html and signup.html.
type authView struct {
	Error    string
	Username string
	Name     string
}

// renderPage executes a full-page template. Failures at this point mean a
// broken template, so the client gets a bare 500.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, name string, data any) {
	s.renderPageStatus(w, r, http.StatusOK, name, data)
}

func (s *Server) renderPageStatus(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template render failed",
			log.FieldPath, r.URL.Path,
			log.FieldError, err,
		)
		http.Error(w, "Error intern del servidor", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderPartial executes a fragment template into a string for HTMX
// responses that combine markup with trigger headers.
func (s *Server) renderPartial(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
