package http

import (
	"errors"
	"net/http"

	"despeses/internal/core"
	"despeses/internal/log"
	"despeses/internal/services"
	"despeses/internal/session"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderPage(w, r, "login.html", authView{})
	case http.MethodPost:
		s.loginUser(w, r)
	default:
		requireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) loginUser(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrFail(w, r) {
		return
	}
	username := sanitizeInput(r.Form.Get("username"))
	password := r.Form.Get("password")

	user, err := s.auth.Login(r.Context(), username, password)
	if err != nil {
		msg, status := loginErrorMessage(err)
		if status == http.StatusInternalServerError {
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Login failed",
				log.FieldUsername, username,
				log.FieldError, err,
			)
		}
		s.renderPageStatus(w, r, status, "login.html", authView{Error: msg, Username: username})
		return
	}

	token := s.sessions.Issue(user.Username)
	http.SetCookie(w, s.sessions.Cookie(token))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func loginErrorMessage(err error) (string, int) {
	switch {
	case errors.Is(err, core.ErrUnknownUser):
		return "No existeix l'usuari", http.StatusUnauthorized
	case errors.Is(err, services.ErrInvalidCredentials):
		return "Contrasenya incorrecta", http.StatusUnauthorized
	case errors.Is(err, core.ErrEmptyUsername), errors.Is(err, core.ErrInvalidUsername):
		return "Usuari no vàlid", http.StatusUnprocessableEntity
	default:
		return "Error intern del servidor", http.StatusInternalServerError
	}
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderPage(w, r, "signup.html", authView{})
	case http.MethodPost:
		s.signupUser(w, r)
	default:
		requireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) signupUser(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrFail(w, r) {
		return
	}
	name := sanitizeInput(r.Form.Get("name"))
	username := sanitizeInput(r.Form.Get("username"))
	password := r.Form.Get("password")

	user, err := s.auth.Register(r.Context(), username, name, password)
	if err != nil {
		msg, status := signupErrorMessage(err)
		if status == http.StatusInternalServerError {
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Signup failed",
				log.FieldUsername, username,
				log.FieldError, err,
			)
		}
		s.renderPageStatus(w, r, status, "signup.html", authView{Error: msg, Username: username, Name: name})
		return
	}

	// The account is fresh, log it straight in.
	token := s.sessions.Issue(user.Username)
	http.SetCookie(w, s.sessions.Cookie(token))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func signupErrorMessage(err error) (string, int) {
	switch {
	case errors.Is(err, core.ErrUsernameTaken):
		return "Aquest usuari ja existeix", http.StatusConflict
	case errors.Is(err, core.ErrPasswordTooShort):
		return "La contrasenya ha de tenir com a mínim 8 caràcters", http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrEmptyName):
		return "Cal indicar un nom", http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrEmptyUsername), errors.Is(err, core.ErrInvalidUsername):
		return "Usuari no vàlid: minúscules, números, punts i guions", http.StatusUnprocessableEntity
	default:
		return "Error intern del servidor", http.StatusInternalServerError
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if c, err := r.Cookie(session.CookieName); err == nil {
		s.sessions.Revoke(c.Value)
	}
	http.SetCookie(w, s.sessions.ExpiredCookie())
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
