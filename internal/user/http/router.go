package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/elysion/userd/internal/user/domain"
	"github.com/elysion/userd/internal/user/service"
	"github.com/elysion/userd/internal/user/store"
	"github.com/elysion/userd/pkg/httpx"
	"github.com/elysion/userd/pkg/jwtx"
	"github.com/elysion/userd/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	codec        *jwtx.Codec
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store               store.Store
	AuthService         *service.AuthService
	RegistrationService *service.RegistrationService
	TwoFAService        *service.TwoFAService
	UserService         *service.UserService
	AuditService        *service.AuditService
}

func NewRouter(
	codec *jwtx.Codec,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		codec:        codec,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerTwoFA()
	r.registerUsers()
	r.registerAdmin()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		Auth:         r.AuthService,
		Registration: r.RegistrationService,
	}

	// POST /auth/register - strict rate limit by IP (public signup endpoint)
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /auth/login - strict rate limit by IP (authentication attempts)
	// The service applies its own per-client attempt buckets on top of this
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /auth/refresh - moderate rate limit by IP
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /auth/logout - moderate rate limit by IP
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /auth/confirm - moderate rate limit by IP
	r.Mux.Handle("POST /v1/auth/confirm",
		httpx.Chain(http.HandlerFunc(h.HandleConfirm),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /auth/forgot - strict rate limit by IP (triggers outbound mail)
	r.Mux.Handle("POST /v1/auth/forgot",
		httpx.Chain(http.HandlerFunc(h.HandleForgot),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /auth/reset - strict rate limit by IP (prevent token guessing)
	r.Mux.Handle("POST /v1/auth/reset",
		httpx.Chain(http.HandlerFunc(h.HandleReset),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerTwoFA() {
	h := &TwoFAHandler{TwoFA: r.TwoFAService}

	// POST /2fa/setup - moderate rate limit by user
	securedSetup := httpx.Chain(http.HandlerFunc(h.HandleSetup),
		httpx.AuthnMiddleware(r.codec),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)

	// POST /2fa/verify - strict rate limit by user (prevent brute force of TOTP codes)
	securedVerify := httpx.Chain(http.HandlerFunc(h.HandleVerify),
		httpx.AuthnMiddleware(r.codec),
		httpx.RateLimitByUser(httpx.StrictLimit),
	)

	// POST /2fa/enable - strict rate limit by user
	securedEnable := httpx.Chain(http.HandlerFunc(h.HandleEnable),
		httpx.AuthnMiddleware(r.codec),
		httpx.RateLimitByUser(httpx.StrictLimit),
	)

	// POST /2fa/disable - strict rate limit by user
	securedDisable := httpx.Chain(http.HandlerFunc(h.HandleDisable),
		httpx.AuthnMiddleware(r.codec),
		httpx.RateLimitByUser(httpx.StrictLimit),
	)

	r.Mux.Handle("POST /v1/2fa/setup", securedSetup)
	r.Mux.Handle("POST /v1/2fa/verify", securedVerify)
	r.Mux.Handle("POST /v1/2fa/enable", securedEnable)
	r.Mux.Handle("POST /v1/2fa/disable", securedDisable)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{
		Users: r.UserService,
		Audit: r.AuditService,
	}

	// Self-service endpoints - lenient rate limit by user
	secure := func(next http.HandlerFunc) http.Handler {
		return httpx.Chain(next,
			httpx.AuthnMiddleware(r.codec),
			httpx.RateLimitByUser(httpx.LenientLimit),
		)
	}

	r.Mux.Handle("GET /v1/users/me", secure(h.HandleMe))
	r.Mux.Handle("PATCH /v1/users/me", secure(h.HandleUpdateMe))
	r.Mux.Handle("DELETE /v1/users/me", secure(h.HandleDeleteMe))
	r.Mux.Handle("GET /v1/users/me/export", secure(h.HandleExport))
}

func (r *Router) registerAdmin() {
	h := &UsersHandler{
		Users: r.UserService,
		Audit: r.AuditService,
	}

	// Admin endpoints - moderate rate limit by user
	secure := func(next http.HandlerFunc) http.Handler {
		return httpx.Chain(next,
			httpx.AuthnMiddleware(r.codec),
			httpx.RequireAnyRole(domain.RoleAdmin),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("GET /v1/users", secure(h.HandleList))
	r.Mux.Handle("PUT /v1/users/{id}/roles", secure(h.HandleAssignRoles))
	r.Mux.Handle("PUT /v1/users/{id}/ban", secure(h.HandleBan))
	r.Mux.Handle("DELETE /v1/users/{id}", secure(h.HandleDelete))
	r.Mux.Handle("GET /v1/users/{id}/audit", secure(h.HandleAuditLog))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
