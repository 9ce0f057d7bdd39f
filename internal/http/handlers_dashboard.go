package http

import (
	"net/http"
	"time"

	"despeses/internal/log"
)

// handleHome renders the month dashboard, the default screen after login.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	username := currentUser(r)
	p := parsePeriod(r.URL.Query(), time.Now())
	salary := parseSalary(r.URL.Query(), s.cfg.DefaultSalary)

	dash, err := s.dashboard(r.Context(), username, p, salary)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Dashboard load failed",
			log.FieldUsername, username,
			log.FieldPeriod, p.String(),
			log.FieldError, err,
		)
		http.Error(w, "No s'han pogut carregar les despeses", http.StatusInternalServerError)
		return
	}

	s.renderPage(w, r, "dashboard.html", buildDashboardView(username, p, salary, dash))
}

// handleMonthSummary serves the summary panel alone, refreshed by HTMX
// when the month, the salary or the expense list changes.
func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	username := currentUser(r)
	p := parsePeriod(r.URL.Query(), time.Now())
	salary := parseSalary(r.URL.Query(), s.cfg.DefaultSalary)

	dash, err := s.dashboard(r.Context(), username, p, salary)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Month summary load failed",
			log.FieldUsername, username,
			log.FieldPeriod, p.String(),
			log.FieldError, err,
		)
		writeHTMXError(w, http.StatusInternalServerError, "No s'ha pogut actualitzar el resum")
		return
	}

	html, err := s.renderPartial("month_summary.html", buildDashboardView(username, p, salary, dash))
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Month summary render failed",
			log.FieldError, err,
		)
		writeHTMXError(w, http.StatusInternalServerError, "No s'ha pogut actualitzar el resum")
		return
	}
	_ = NewHTMXResponse().BodyHTML(html).Write(w)
}
