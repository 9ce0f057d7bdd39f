package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"despeses/internal/core"
	"despeses/internal/log"
)

// handleCreateExpense records one expense from the dashboard form.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if !parseFormOrFail(w, r) {
		return
	}
	username := currentUser(r)

	now := time.Now()
	date := core.NewDate(now.Year(), int(now.Month()), now.Day())
	if raw := strings.TrimSpace(r.Form.Get("date")); raw != "" {
		parsed, err := core.ParseDate(raw)
		if err != nil {
			writeHTMXError(w, http.StatusUnprocessableEntity, "Data no vàlida")
			return
		}
		date = parsed
	}

	amount, err := core.ParseMoney(r.Form.Get("amount"))
	if err != nil {
		writeHTMXError(w, http.StatusUnprocessableEntity, "Import no vàlid")
		return
	}

	expense := core.Expense{
		Concept:     sanitizeInput(r.Form.Get("concept")),
		Amount:      amount,
		Category:    core.Category(strings.TrimSpace(r.Form.Get("category"))),
		Description: sanitizeInput(r.Form.Get("description")),
		Date:        date,
	}

	saved, err := s.expenses.AddExpense(r.Context(), username, expense)
	if err != nil {
		if msg, ok := expenseErrorMessage(err); ok {
			writeHTMXError(w, http.StatusUnprocessableEntity, msg)
			return
		}
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Expense create failed",
			log.FieldUsername, username,
			log.FieldError, err,
		)
		writeHTMXError(w, http.StatusInternalServerError, "No s'ha pogut desar la despesa")
		return
	}

	p := core.PeriodOf(saved.Date.Time)
	s.invalidateDashboard(username, p)

	_ = NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerFormReset().
		TriggerSuccessNotification("Despesa afegida!").
		TriggerSummaryRefresh(p.Year, int(p.Month)).
		Write(w)
}

// expenseErrorMessage maps validation failures to user-facing Catalan.
// Returns false for anything that is not the user's fault.
func expenseErrorMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, core.ErrEmptyConcept):
		return "Cal un concepte", true
	case errors.Is(err, core.ErrUnknownCategory):
		return "Categoria desconeguda", true
	case errors.Is(err, core.ErrInvalidAmount):
		return "L'import ha de ser més gran que zero", true
	case errors.Is(err, core.ErrInvalidDate):
		return "Data no vàlida", true
	default:
		return "", false
	}
}

// handleDeleteExpense removes every expense matching a concept within the
// shown month.
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost, http.MethodDelete) {
		return
	}
	parser, err := ParseRequestBody(r)
	if err != nil {
		writeHTMXError(w, http.StatusBadRequest, "Petició no vàlida")
		return
	}
	username := currentUser(r)

	values := url.Values{}
	values.Set("year", parser.Get("year"))
	values.Set("month", parser.Get("month"))
	p := parsePeriod(values, time.Now())

	concept := parser.Get("concept")
	removed, err := s.expenses.DeleteByConcept(r.Context(), username, p, concept)
	if err != nil {
		if errors.Is(err, core.ErrEmptyConcept) {
			writeHTMXError(w, http.StatusUnprocessableEntity, "Cal triar un concepte")
			return
		}
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Expense delete failed",
			log.FieldUsername, username,
			log.FieldConcept, concept,
			log.FieldError, err,
		)
		writeHTMXError(w, http.StatusInternalServerError, "No s'han pogut eliminar les despeses")
		return
	}

	if removed == 0 {
		_ = NewHTMXResponse().
			TriggerNotification("info", "Cap despesa amb aquest concepte", 3000).
			Write(w)
		return
	}

	s.invalidateDashboard(username, p)

	message := fmt.Sprintf("S'han eliminat %d despeses", removed)
	if removed == 1 {
		message = "S'ha eliminat 1 despesa"
	}
	_ = NewHTMXResponse().
		TriggerFormReset().
		TriggerSuccessNotification(message).
		TriggerSummaryRefresh(p.Year, int(p.Month)).
		Write(w)
}
