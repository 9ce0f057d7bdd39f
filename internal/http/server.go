// Package http serves the household screens: login, the month dashboard
// and the debt sheets, rendered server-side with HTMX partial refreshes.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"despeses/internal/cache"
	"despeses/internal/config"
	"despeses/internal/core"
	"despeses/internal/log"
	"despeses/internal/middleware/ratelimit"
	"despeses/internal/middleware/security"
	"despeses/internal/middleware/trace"
	"despeses/internal/services"
	"despeses/internal/session"
	"despeses/web"
)

// Pinger reports whether the relational store is reachable. Satisfied by
// storage.SQLiteRepository.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP front of the tracker. It owns the session store,
// the dashboard cache and the request middleware; the domain work is
// delegated to the services.
type Server struct {
	http.Server

	cfg      *config.Config
	auth     *services.AuthService
	expenses *services.ExpenseService
	debts    *services.DebtService
	db       Pinger

	sessions  *session.Manager
	dashCache *cache.LRU[services.Dashboard]
	caches    *cache.Manager

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	templates *template.Template
	logger    *slog.Logger
	startedAt time.Time

	shutdownOnce sync.Once
}

// NewServer wires the handlers, middleware and caches around the given
// services. The caller starts it with ListenAndServe and stops it with
// Shutdown.
func NewServer(cfg *config.Config, auth *services.AuthService, expenses *services.ExpenseService, debts *services.DebtService, db Pinger) *Server {
	detector := security.NewDetector()

	s := &Server{
		cfg:      cfg,
		auth:     auth,
		expenses: expenses,
		debts:    debts,
		db:       db,

		sessions:  session.NewManager(cfg.SessionTTL),
		dashCache: cache.NewLRU[services.Dashboard](256, 5*time.Minute),
		caches:    cache.NewManager(),

		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMin}),
		detector: detector,
		tracer:   trace.NewMiddleware(detector.ExtractClientIP),

		templates: template.Must(template.New("").Funcs(templateFuncs()).ParseFS(web.TemplatesFS, "templates/*.html")),
		logger:    log.NewLogger(log.ComponentHTTP),
		startedAt: time.Now(),
	}

	// Expired sessions and stale dashboards share one sweep goroutine.
	s.caches.Register(s.sessions)
	s.caches.Register(s.dashCache)
	s.caches.StartCleanup(10 * time.Minute)

	s.Server.Addr = cfg.Addr()
	s.Server.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Screens.
	mux.HandleFunc("/", s.requireAuth(s.handleHome))
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/signup", s.handleSignup)
	mux.HandleFunc("/logout", s.requireAuth(s.handleLogout))
	mux.HandleFunc("/debts", s.requireAuth(s.handleDebts))

	// Mutations.
	mux.HandleFunc("/expenses", s.requireAuth(s.handleCreateExpense))
	mux.HandleFunc("/expenses/delete", s.requireAuth(s.handleDeleteExpense))
	mux.HandleFunc("/debts/sheet", s.requireAuth(s.handleCreateSheet))
	mux.HandleFunc("/debts/paid", s.requireAuth(s.handleDebtPaid))
	mux.HandleFunc("/debts/delete", s.requireAuth(s.handleDeleteDebt))

	// HTMX partials.
	mux.HandleFunc("/ui/month-summary", s.requireAuth(s.handleMonthSummary))
	mux.HandleFunc("/ui/debt-table", s.requireAuth(s.handleDebtTable))

	// Operational endpoints, outside the auth wall.
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	static, err := fs.Sub(web.StaticFS, "static")
	if err == nil {
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(
			http.StripPrefix("/static/", http.FileServer(http.FS(static)))))
	}

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	var handler http.Handler = mux
	handler = s.rateLimitPosts(handler)
	handler = s.logSuspicious(handler)
	handler = headers.Middleware(handler)
	handler = s.tracer.Middleware(handler)
	return handler
}

// rateLimitPosts throttles mutations per client IP. Reads stay free so
// HTMX refreshes never starve a legitimate session.
func (s *Server) rateLimitPosts(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodDelete {
			ip := s.detector.ExtractClientIP(r)
			if !s.limiter.Allow(ip) {
				log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
					log.FieldClientIP, ip,
					log.FieldPath, r.URL.Path,
				)
				w.Header().Set("Retry-After", "60")
				http.Error(w, "Massa peticions. Espera un moment i torna-ho a provar.", http.StatusTooManyRequests)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, s.detector.ExtractClientIP(r),
			)
		}
		next.ServeHTTP(w, r)
	})
}

type userKey struct{}

// requireAuth resolves the session cookie and stores the username in the
// request context. Browser requests bounce to /login; HTMX requests get
// an HX-Redirect so the swap never renders the login page inline.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.sessions.FromRequest(r)
		if !ok {
			if r.Header.Get("HX-Request") == "true" {
				w.Header().Set("HX-Redirect", "/login")
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, sess.Username)
		next(w, r.WithContext(ctx))
	}
}

// currentUser returns the authenticated username placed by requireAuth.
func currentUser(r *http.Request) string {
	username, _ := r.Context().Value(userKey{}).(string)
	return username
}

// dashboard serves the month view from cache when the salary matches,
// otherwise recomputes and stores it.
func (s *Server) dashboard(ctx context.Context, username string, p core.Period, salary core.Money) (services.Dashboard, error) {
	key := dashKey(username, p)
	if dash, ok := s.dashCache.Get(key); ok && dash.Summary.Salary == salary {
		return dash, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 7*time.Second)
	defer cancel()

	dash, err := s.expenses.MonthDashboard(ctx, username, p, salary)
	if err != nil {
		return services.Dashboard{}, err
	}
	s.dashCache.Set(key, dash)
	return dash, nil
}

func dashKey(username string, p core.Period) string {
	return username + "|" + p.String()
}

func (s *Server) invalidateDashboard(username string, p core.Period) {
	s.dashCache.Delete(dashKey(username, p))
}

// Shutdown stops the cache sweeper and the rate limiter before draining
// in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
