package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/presstronic/kalsumed/internal/auth/provider"
	"github.com/presstronic/kalsumed/internal/auth/registry"
	"github.com/presstronic/kalsumed/internal/auth/service"
	"github.com/presstronic/kalsumed/internal/auth/store"
	"github.com/presstronic/kalsumed/pkg/httpx"
	"github.com/presstronic/kalsumed/pkg/jwtx"
	"github.com/presstronic/kalsumed/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	accessVerifier *jwtx.Verifier
	buildVersion   string
	startTime      time.Time
	logger         *slog.Logger

	store     store.Store
	redisPing func(context.Context) error

	// Production hardens cookies (Secure flag).
	Production bool

	// OAuthSuccessURL/OAuthErrorURL are where callback results redirect.
	OAuthSuccessURL string
	OAuthErrorURL   string
	StateTTL        time.Duration

	TokenService *service.TokenService
	OAuthService *service.OAuthService
	Providers    *provider.Registry
	States       registry.StateStore
}

func NewRouter(
	accessVerifier *jwtx.Verifier,
	buildVersion string,
	st store.Store,
	redisPing func(context.Context) error,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:            http.NewServeMux(),
		accessVerifier: accessVerifier,
		buildVersion:   buildVersion,
		startTime:      time.Now(),
		store:          st,
		redisPing:      redisPing,
		logger:         logger,
		StateTTL:       10 * time.Minute,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerOAuth()
	r.registerUsers()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	login := &LoginHandler{TokenService: r.TokenService, Production: r.Production}
	r.Mux.Handle("POST /auth/login",
		httpx.Chain(login,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	refresh := &RefreshHandler{TokenService: r.TokenService, Production: r.Production}
	r.Mux.Handle("POST /auth/refresh",
		httpx.Chain(refresh,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	logout := &LogoutHandler{
		TokenService: r.TokenService,
		Verifier:     r.accessVerifier,
		Production:   r.Production,
	}
	r.Mux.Handle("POST /auth/logout",
		httpx.Chain(logout,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerOAuth() {
	redirect := &OAuthRedirectHandler{
		Providers: r.Providers,
		States:    r.States,
		StateTTL:  r.StateTTL,
		ErrorURL:  r.OAuthErrorURL,
	}
	r.Mux.Handle("GET /oauth/{provider}",
		httpx.Chain(redirect,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	callback := &OAuthCallbackHandler{
		Providers:    r.Providers,
		States:       r.States,
		OAuthService: r.OAuthService,
		SuccessURL:   r.OAuthSuccessURL,
		ErrorURL:     r.OAuthErrorURL,
		Production:   r.Production,
	}
	// Apple posts the callback (form_post response mode); the others GET it.
	r.Mux.Handle("GET /oauth/{provider}/callback",
		httpx.Chain(callback,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /oauth/{provider}/callback",
		httpx.Chain(callback,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UserInfoHandler{Store: r.store}

	secured := httpx.Chain(h,
		httpx.AuthnMiddleware(r.accessVerifier),
		httpx.RateLimitByUser(httpx.LenientLimit),
	)

	r.Mux.Handle("GET /v1/userinfo", secured)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.redisPing),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
