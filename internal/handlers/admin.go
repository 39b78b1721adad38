package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/auth"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/httpx"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/requestctx"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/services"
)

// AdminHandlers expose operator actions for signed-in admins.
type AdminHandlers struct {
	authn    *auth.Authenticator
	sessions services.SessionService
}

// NewAdminHandlers constructs admin handlers. Without an authenticator every route
// answers 503.
func NewAdminHandlers(authn *auth.Authenticator, sessions services.SessionService) *AdminHandlers {
	return &AdminHandlers{authn: authn, sessions: sessions}
}

// Routes registers admin endpoints relative to the /admin mount.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn == nil {
		r.Post("/session/clear", h.unavailable)
		return
	}
	r.With(h.authn.RequireFirebaseAuth(auth.RoleAdmin)).Post("/session/clear", h.clearSession)
}

func (h *AdminHandlers) unavailable(w http.ResponseWriter, r *http.Request) {
	httpx.WriteError(r.Context(), w, httpx.NewError("auth_unavailable", "admin authentication is not configured", http.StatusServiceUnavailable))
}

func (h *AdminHandlers) clearSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.sessions == nil {
		h.unavailable(w, r)
		return
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}
	if err := h.sessions.ClearSession(ctx, identity.UID); err != nil {
		if errors.Is(err, services.ErrSessionInvalidInput) {
			httpx.WriteError(ctx, w, httpx.BadRequest("invalid_request", err.Error()))
			return
		}
		requestctx.Logger(ctx).Error("admin: clear session failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.Upstream("session_clear_failed", upstreamCause(err)))
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]bool{"ok": true})
}
