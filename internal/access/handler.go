package access

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/policy"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes the decision API consumed by UI gating components.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the decision routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/capabilities", h.capabilities)
	r.Post("/check", h.check)
}

func (h *Handler) capabilities(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	resolved := h.service.Resolve(r.Context(), id.TenantID, id.Role)
	guard := resolved.Guard()
	httpx.JSON(w, http.StatusOK, map[string]any{
		"role":           resolved.Role,
		"capabilities":   resolved.Capabilities,
		"role_fallback":  resolved.RoleFallback,
		"degraded":       resolved.Degraded,
		"is_admin":       guard.IsAdmin(),
		"is_super_admin": guard.IsSuperAdmin(),
	})
}

type checkPayload struct {
	Module string `json:"module"`
	Action string `json:"action"`
}

// check answers one dynamic (module, action) query. Malformed module or
// action strings deny rather than error: gating call sites must never
// break on stale identifiers.
func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	var payload checkPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, "malformed json body"))
		return
	}
	module := policy.ModuleID(strings.ToLower(strings.TrimSpace(payload.Module)))
	allowed := h.service.Check(r.Context(), id.TenantID, id.Role, module, payload.Action)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"module":  module,
		"action":  payload.Action,
		"allowed": allowed,
	})
}
