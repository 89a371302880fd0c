package server

import (
	"net/http"

	"fleetonboard/internal/app"
	"fleetonboard/internal/ratelimit"
	"fleetonboard/internal/util"
	"fleetonboard/pkg/notify"
)

// Config carries the HTTP layer's collaborators and policies.
type Config struct {
	App               *app.App
	Events            notify.Subscriber // optional; nil disables /events
	Proxies           *util.TrustedProxies
	MaxUploadBytes    int64
	AllowedExtensions []string

	SignupLimiter *ratelimit.FixedWindowLimiter
	LoginLimiter  *ratelimit.FixedWindowLimiter
	SubmitLimiter *ratelimit.FixedWindowLimiter
}

// Server is the HTTP front for the onboarding and admin APIs.
type Server struct {
	app     *app.App
	events  notify.Subscriber
	proxies *util.TrustedProxies

	maxUploadBytes int64
	allowedExts    map[string]bool

	signupLimiter *ratelimit.FixedWindowLimiter
	loginLimiter  *ratelimit.FixedWindowLimiter
	submitLimiter *ratelimit.FixedWindowLimiter
}

// New builds the server. Zero MaxUploadBytes falls back to 10 MiB and an
// empty extension list allows the common document formats.
func New(cfg Config) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	exts := cfg.AllowedExtensions
	if len(exts) == 0 {
		exts = []string{".pdf", ".png", ".jpg", ".jpeg"}
	}
	allowed := make(map[string]bool, len(exts))
	for _, e := range exts {
		allowed[normalizeExt(e)] = true
	}
	return &Server{
		app:            cfg.App,
		events:         cfg.Events,
		proxies:        cfg.Proxies,
		maxUploadBytes: cfg.MaxUploadBytes,
		allowedExts:    allowed,
		signupLimiter:  cfg.SignupLimiter,
		loginLimiter:   cfg.LoginLimiter,
		submitLimiter:  cfg.SubmitLimiter,
	}
}

// Handler returns the routed handler wrapped with the shared middleware
// chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /api/auth/signup", s.rateLimited(s.signupLimiter, s.handleSignUp))
	mux.HandleFunc("POST /api/auth/login", s.rateLimited(s.loginLimiter, s.handleSignIn))
	mux.HandleFunc("POST /api/auth/refresh", s.handleRefresh)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)

	mux.HandleFunc("POST /api/applications", s.rateLimited(s.submitLimiter, s.handleSubmit))
	mux.HandleFunc("GET /api/applications", s.authenticated(s.handleListMine))
	mux.HandleFunc("POST /api/applications/documents", s.authenticated(s.handleUploadDocument))

	mux.HandleFunc("GET /api/admin/applications", s.adminOnly(s.handleAdminList))
	mux.HandleFunc("GET /api/admin/applications/{id}", s.adminOnly(s.handleAdminGet))
	mux.HandleFunc("POST /api/admin/applications/status", s.adminOnly(s.handleAdminBulkStatus))
	mux.HandleFunc("GET /api/admin/applications/export", s.adminOnly(s.handleAdminExport))
	mux.HandleFunc("GET /api/admin/applications/events", s.adminOnly(s.handleAdminEvents))

	var handler http.Handler = mux
	handler = util.WithCORS(handler)
	handler = util.WithSecurityHeaders(handler)
	handler = util.WithRequestLog(s.proxies, handler)
	handler = util.WithRequestID(handler)
	return handler
}

func (s *Server) rateLimited(limiter *ratelimit.FixedWindowLimiter, next http.HandlerFunc) http.HandlerFunc {
	if limiter == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow(util.ClientIP(r, s.proxies)) {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next(w, r)
	}
}
