// Package session implements cookie-backed login sessions. Tokens are
// random UUIDs held in an in-process LRU with a fixed TTL, so a
// restart logs everyone out and nothing about sessions is persisted.
package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"despeses/internal/cache"
)

// CookieName is the session cookie set on login and cleared on logout.
const CookieName = "despeses_session"

// maxSessions bounds the in-memory store. Old sessions beyond this are
// evicted early, which just forces a fresh login.
const maxSessions = 1024

// Session is the server-side state behind a cookie.
type Session struct {
	Username  string
	CreatedAt time.Time
}

// Manager issues, resolves and revokes sessions.
type Manager struct {
	store *cache.LRU[Session]
	ttl   time.Duration
}

// NewManager returns a Manager whose sessions expire ttl after login.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		store: cache.NewLRU[Session](maxSessions, ttl),
		ttl:   ttl,
	}
}

// Issue creates a session for username and returns its token.
func (m *Manager) Issue(username string) string {
	token := uuid.NewString()
	m.store.Set(token, Session{Username: username, CreatedAt: time.Now()})
	return token
}

// Resolve returns the session behind token. Expiry is absolute from
// login, not sliding.
func (m *Manager) Resolve(token string) (Session, bool) {
	return m.store.Get(token)
}

// Revoke drops the session behind token, if any.
func (m *Manager) Revoke(token string) {
	m.store.Delete(token)
}

// FromRequest resolves the session named by the request's cookie.
func (m *Manager) FromRequest(r *http.Request) (Session, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return Session{}, false
	}
	return m.Resolve(c.Value)
}

// Cookie builds the login cookie carrying token.
func (m *Manager) Cookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpiredCookie builds the cookie that clears the session on logout.
func (m *Manager) ExpiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// CleanExpired drops expired sessions; the cache manager sweeps this.
func (m *Manager) CleanExpired() int {
	return m.store.CleanExpired()
}

// Stats reports the session store's cache counters.
func (m *Manager) Stats() cache.Stats {
	return m.store.Stats()
}
