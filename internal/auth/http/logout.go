package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/presstronic/kalsumed/internal/auth/service"
	"github.com/presstronic/kalsumed/pkg/jwtx"
	"github.com/presstronic/kalsumed/pkg/slogx"
)

// LogoutHandler revokes the caller's session. It always answers 204 and
// clears both cookies; an unauthenticated or already-logged-out caller gets
// the same response as a live one.
type LogoutHandler struct {
	TokenService *service.TokenService
	Verifier     *jwtx.Verifier
	Production   bool
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := slogx.FromContext(ctx)

	if subject := h.subject(r); subject != "" {
		if err := h.TokenService.Logout(ctx, subject); err != nil {
			// Best effort: the cookies are cleared regardless, and the
			// registry entry still dies at its TTL.
			l.Error("logout revocation failed",
				slog.String("user_id", subject),
				slog.Any("error", err),
			)
		}
	}

	clearAuthCookies(w, h.Production)
	w.WriteHeader(http.StatusNoContent)
}

// subject extracts the caller's id from the bearer header or the access
// cookie. Empty when neither carries a valid access token.
func (h *LogoutHandler) subject(r *http.Request) string {
	raw := ""
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		raw = strings.TrimPrefix(auth, "Bearer ")
	} else if c, err := r.Cookie(accessCookieName); err == nil {
		raw = c.Value
	}
	if raw == "" {
		return ""
	}

	claims, err := h.Verifier.Verify(raw)
	if err != nil {
		return ""
	}
	return claims.Subject
}
