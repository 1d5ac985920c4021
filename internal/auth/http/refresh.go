package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/presstronic/kalsumed/internal/auth/service"
	"github.com/presstronic/kalsumed/pkg/httpx"
	"github.com/presstronic/kalsumed/pkg/slogx"
)

type RefreshHandler struct {
	TokenService *service.TokenService
	Production   bool
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := slogx.FromContext(ctx)

	// The body field wins; browser clients fall back to the cookie.
	var req refreshRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	raw := req.RefreshToken
	if raw == "" {
		if c, err := r.Cookie(refreshCookieName); err == nil {
			raw = c.Value
		}
	}
	if raw == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing refresh token")
		return
	}

	pair, err := h.TokenService.Refresh(ctx, raw)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "invalid or expired refresh token")
			return
		}
		l.Error("refresh failed", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	setAuthCookies(w, pair, h.TokenService.AccessTTL, h.TokenService.RefreshTTL, h.Production)
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, pair)
}
