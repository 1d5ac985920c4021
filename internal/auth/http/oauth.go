package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/presstronic/kalsumed/internal/auth/provider"
	"github.com/presstronic/kalsumed/internal/auth/registry"
	"github.com/presstronic/kalsumed/internal/auth/service"
	"github.com/presstronic/kalsumed/pkg/cryptox"
	"github.com/presstronic/kalsumed/pkg/httpx"
	"github.com/presstronic/kalsumed/pkg/slogx"
)

// OAuthRedirectHandler starts a provider login: it mints the CSRF state and
// OIDC nonce, parks them in Redis, and bounces the browser to the provider.
type OAuthRedirectHandler struct {
	Providers *provider.Registry
	States    registry.StateStore
	StateTTL  time.Duration
	ErrorURL  string
}

func (h *OAuthRedirectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := slogx.FromContext(ctx)

	p, err := h.Providers.Get(r.PathValue("provider"))
	if err != nil {
		httpx.WriteError(w, http.StatusNotFound, "unknown_provider", "unknown oauth provider")
		return
	}

	state, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	nonce, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	ls := registry.LoginState{Provider: p.Name(), Nonce: nonce}
	if err := h.States.Put(ctx, state, ls, h.StateTTL); err != nil {
		l.Error("failed to store oauth state", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	httpx.NoCache(w)
	http.Redirect(w, r, p.AuthCodeURL(state, nonce), http.StatusFound)
}

// OAuthCallbackHandler finishes a provider login. Every failure redirects to
// the error URL with no detail; the browser never sees why.
type OAuthCallbackHandler struct {
	Providers    *provider.Registry
	States       registry.StateStore
	OAuthService *service.OAuthService
	SuccessURL   string
	ErrorURL     string
	Production   bool
}

func (h *OAuthCallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := slogx.FromContext(ctx)

	fail := func(reason string, err error) {
		l.Warn("oauth callback rejected",
			slog.String("reason", reason),
			slog.Any("error", err),
		)
		http.Redirect(w, r, h.ErrorURL, http.StatusFound)
	}

	p, err := h.Providers.Get(r.PathValue("provider"))
	if err != nil {
		fail("unknown_provider", err)
		return
	}

	// FormValue covers both the GET query and Apple's form_post body.
	state := r.FormValue("state")
	code := r.FormValue("code")
	if state == "" || code == "" {
		fail("missing_parameters", nil)
		return
	}
	if errParam := r.FormValue("error"); errParam != "" {
		fail("provider_error", nil)
		return
	}

	ls, err := h.States.Consume(ctx, state)
	if err != nil {
		fail("state", err)
		return
	}
	if ls.Provider != p.Name() {
		fail("state_provider_mismatch", nil)
		return
	}

	profile, err := p.Exchange(ctx, code, ls.Nonce)
	if err != nil {
		fail("exchange", err)
		return
	}

	pair, err := h.OAuthService.OAuthLogin(ctx, profile)
	if err != nil {
		fail("login", err)
		return
	}

	setAuthCookies(w, pair,
		h.OAuthService.Tokens.AccessTTL, h.OAuthService.Tokens.RefreshTTL, h.Production)
	httpx.NoCache(w)
	http.Redirect(w, r, h.SuccessURL, http.StatusFound)
}
