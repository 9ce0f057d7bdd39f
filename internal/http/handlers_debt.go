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
	"despeses/internal/services"
)

// handleDebts serves the debts screen on GET and records a new debt on
// POST.
func (s *Server) handleDebts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.showDebts(w, r)
	case http.MethodPost:
		s.createDebt(w, r)
	default:
		requireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) showDebts(w http.ResponseWriter, r *http.Request) {
	username := currentUser(r)
	p := parsePeriod(r.URL.Query(), time.Now())

	sheet, err := s.debts.OpenSheet(r.Context(), username, p, services.CreateNone)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Debt sheet load failed",
			log.FieldUsername, username,
			log.FieldPeriod, p.String(),
			log.FieldError, err,
		)
		http.Error(w, "No s'ha pogut carregar el full de deutes", http.StatusInternalServerError)
		return
	}

	s.renderPage(w, r, "debts.html", buildDebtsView(username, p, sheet))
}

// handleCreateSheet opens the month's sheet, either empty or duplicated
// from the previous one. A full page refresh follows so the screen swaps
// from the missing-sheet panel to the table.
func (s *Server) handleCreateSheet(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if !parseFormOrFail(w, r) {
		return
	}
	username := currentUser(r)
	p := parsePeriod(r.Form, time.Now())

	mode := services.CreateEmpty
	if strings.TrimSpace(r.Form.Get("mode")) == "duplicate" {
		mode = services.CreateDuplicate
	}

	if _, err := s.debts.OpenSheet(r.Context(), username, p, mode); err != nil {
		s.writeDebtError(w, r, err, "Sheet create failed", username)
		return
	}

	_ = NewHTMXResponse().Header("HX-Refresh", "true").Write(w)
}

func (s *Server) createDebt(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrFail(w, r) {
		return
	}
	username := currentUser(r)
	p := parsePeriod(r.Form, time.Now())

	total, err := core.ParseMoney(r.Form.Get("total"))
	if err != nil {
		writeHTMXError(w, http.StatusUnprocessableEntity, "Import no vàlid")
		return
	}
	start, err := core.ParseDate(strings.TrimSpace(r.Form.Get("start_date")))
	if err != nil {
		writeHTMXError(w, http.StatusUnprocessableEntity, "Data d'inici no vàlida")
		return
	}
	end := core.Date{Time: start.Time.AddDate(1, 0, 0)}
	if raw := strings.TrimSpace(r.Form.Get("end_date")); raw != "" {
		end, err = core.ParseDate(raw)
		if err != nil {
			writeHTMXError(w, http.StatusUnprocessableEntity, "Data final no vàlida")
			return
		}
	}

	debt := core.Debt{
		Name:      sanitizeInput(r.Form.Get("name")),
		Total:     total,
		StartDate: start,
		EndDate:   end,
	}

	debts, err := s.debts.AddDebt(r.Context(), username, p, debt)
	if err != nil {
		s.writeDebtError(w, r, err, "Debt create failed", username)
		return
	}

	sheet := services.DebtSheet{Period: p, Debts: debts, Exists: true}
	s.respondDebtTable(w, r, username, sheet, NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerFormReset().
		TriggerSuccessNotification("Deute afegit!"))
}

// handleDebtPaid toggles one month's payment on a debt.
func (s *Server) handleDebtPaid(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	parser, err := ParseRequestBody(r)
	if err != nil {
		writeHTMXError(w, http.StatusBadRequest, "Petició no vàlida")
		return
	}
	username := currentUser(r)
	p := parserPeriod(parser)
	paid := parser.Get("paid") == "true"

	debt, err := s.debts.SetPaid(r.Context(), username, p, parser.Get("name"), paid)
	if err != nil {
		s.writeDebtError(w, r, err, "Debt payment update failed", username)
		return
	}

	sheet, err := s.debts.OpenSheet(r.Context(), username, p, services.CreateNone)
	if err != nil {
		s.writeDebtError(w, r, err, "Debt sheet reload failed", username)
		return
	}

	message := fmt.Sprintf("%s: %d de %d mesos pagats", debt.Name, debt.MonthsPaid, debt.TotalMonths())
	s.respondDebtTable(w, r, username, sheet, NewHTMXResponse().
		TriggerSuccessNotification(message))
}

// handleDeleteDebt removes a debt row from the month's sheet.
func (s *Server) handleDeleteDebt(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost, http.MethodDelete) {
		return
	}
	parser, err := ParseRequestBody(r)
	if err != nil {
		writeHTMXError(w, http.StatusBadRequest, "Petició no vàlida")
		return
	}
	username := currentUser(r)
	p := parserPeriod(parser)

	debts, err := s.debts.RemoveDebt(r.Context(), username, p, parser.Get("name"))
	if err != nil {
		s.writeDebtError(w, r, err, "Debt delete failed", username)
		return
	}

	sheet := services.DebtSheet{Period: p, Debts: debts, Exists: true}
	s.respondDebtTable(w, r, username, sheet, NewHTMXResponse().
		TriggerSuccessNotification("Deute eliminat"))
}

// handleDebtTable re-renders the table panel when the month picker moves.
func (s *Server) handleDebtTable(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	username := currentUser(r)
	p := parsePeriod(r.URL.Query(), time.Now())

	sheet, err := s.debts.OpenSheet(r.Context(), username, p, services.CreateNone)
	if err != nil {
		s.writeDebtError(w, r, err, "Debt table load failed", username)
		return
	}

	s.respondDebtTable(w, r, username, sheet, NewHTMXResponse())
}

// respondDebtTable renders the table partial into the given response.
func (s *Server) respondDebtTable(w http.ResponseWriter, r *http.Request, username string, sheet services.DebtSheet, b *HTMXResponse) {
	html, err := s.renderPartial("debt_table.html", buildDebtsView(username, sheet.Period, sheet))
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Debt table render failed",
			log.FieldError, err,
		)
		writeHTMXError(w, http.StatusInternalServerError, "No s'ha pogut actualitzar la taula")
		return
	}
	_ = b.BodyHTML(html).Write(w)
}

// parserPeriod reads year/month out of a parsed body, defaulting to now.
func parserPeriod(p *RequestBodyParser) core.Period {
	values := url.Values{}
	values.Set("year", p.Get("year"))
	values.Set("month", p.Get("month"))
	return parsePeriod(values, time.Now())
}

// writeDebtError maps service errors to toasts, logging only the ones
// that are not the user's doing.
func (s *Server) writeDebtError(w http.ResponseWriter, r *http.Request, err error, event, username string) {
	switch {
	case errors.Is(err, services.ErrNoSheet):
		writeHTMXError(w, http.StatusConflict, "Encara no hi ha full de deutes per aquest mes")
	case errors.Is(err, services.ErrNoPreviousSheet):
		writeHTMXError(w, http.StatusUnprocessableEntity, "No hi ha cap full anterior per duplicar")
	case errors.Is(err, core.ErrUnknownDebt):
		writeHTMXError(w, http.StatusNotFound, "No s'ha trobat el deute")
	case errors.Is(err, core.ErrDuplicateDebt):
		writeHTMXError(w, http.StatusConflict, "Ja existeix un deute amb aquest nom")
	case errors.Is(err, core.ErrEmptyDebtName):
		writeHTMXError(w, http.StatusUnprocessableEntity, "Cal un nom per al deute")
	case errors.Is(err, core.ErrDebtDateOrder):
		writeHTMXError(w, http.StatusUnprocessableEntity, "La data final ha de ser posterior a la d'inici")
	case errors.Is(err, core.ErrInvalidAmount):
		writeHTMXError(w, http.StatusUnprocessableEntity, "L'import ha de ser més gran que zero")
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), event,
			log.FieldUsername, username,
			log.FieldError, err,
		)
		writeHTMXError(w, http.StatusInternalServerError, "Error amb el full de deutes")
	}
}
