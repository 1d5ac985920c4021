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

type LoginHandler struct {
	TokenService *service.TokenService
	Production   bool
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.Identifier == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "identifier and password are required")
		return
	}

	pair, err := h.TokenService.Login(ctx, req.Identifier, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid identifier or password")
			return
		}
		l.Error("login failed", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	setAuthCookies(w, pair, h.TokenService.AccessTTL, h.TokenService.RefreshTTL, h.Production)
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, pair)
}
