package overrides

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/policy"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/jobs"
)

// Gate wraps routes in a permission check for the settings module.
type Gate interface {
	Require(module policy.ModuleID, action policy.ActionID) func(http.Handler) http.Handler
}

// Handler exposes the override administration API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	gate     Gate
	jobs     *jobs.Client
	validate *validator.Validate
}

// NewHandler builds a Handler instance. The jobs client is optional; without
// it the warmup endpoint reports the queue as unavailable.
func NewHandler(logger *slog.Logger, service *Service, gate Gate, jobsClient *jobs.Client) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		gate:     gate,
		jobs:     jobsClient,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes registers the override administration routes. Reads require
// settings view; mutations require settings edit.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(policy.ModuleSettings, policy.ActionView))
		r.Get("/catalog", h.catalog)
		r.Get("/defaults/{role}", h.defaults)
		r.Get("/overrides", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(policy.ModuleSettings, policy.ActionEdit))
		r.Put("/overrides", h.put)
		r.Delete("/overrides/{role}/{module}", h.remove)
		r.Post("/warmup", h.warmup)
	})
}

type overridePayload struct {
	Role       string          `json:"role" validate:"required,max=64"`
	Module     string          `json:"module" validate:"required,max=64"`
	CanView    *bool           `json:"can_view"`
	CanCreate  *bool           `json:"can_create"`
	CanEdit    *bool           `json:"can_edit"`
	CanDelete  *bool           `json:"can_delete"`
	CanExport  *bool           `json:"can_export"`
	CanApprove *bool           `json:"can_approve"`
	Custom     map[string]bool `json:"custom_permissions" validate:"omitempty,dive,keys,max=128,endkeys"`
}

type overrideResponse struct {
	Role       string          `json:"role"`
	Module     string          `json:"module"`
	CanView    *bool           `json:"can_view,omitempty"`
	CanCreate  *bool           `json:"can_create,omitempty"`
	CanEdit    *bool           `json:"can_edit,omitempty"`
	CanDelete  *bool           `json:"can_delete,omitempty"`
	CanExport  *bool           `json:"can_export,omitempty"`
	CanApprove *bool           `json:"can_approve,omitempty"`
	Custom     map[string]bool `json:"custom_permissions,omitempty"`
	UpdatedAt  string          `json:"updated_at,omitempty"`
}

func toResponse(ov Override) overrideResponse {
	resp := overrideResponse{
		Role:       string(ov.Role),
		Module:     string(ov.Module),
		CanView:    ov.View,
		CanCreate:  ov.Create,
		CanEdit:    ov.Edit,
		CanDelete:  ov.Delete,
		CanExport:  ov.Export,
		CanApprove: ov.Approve,
		Custom:     ov.Custom,
	}
	if !ov.UpdatedAt.IsZero() {
		resp.UpdatedAt = ov.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}

func (h *Handler) catalog(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{
		"modules": policy.Modules(),
		"actions": policy.Actions(),
		"roles":   policy.Roles(),
	})
}

func (h *Handler) defaults(w http.ResponseWriter, r *http.Request) {
	role := policy.RoleID(strings.ToLower(chi.URLParam(r, "role")))
	caps, known := policy.DefaultFor(role)
	if !known {
		h.logger.Info("defaults requested for unknown role", slog.String("role", string(role)))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"role":          role,
		"role_fallback": !known,
		"capabilities":  caps,
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	rows, err := h.service.List(r.Context(), id.TenantID)
	if err != nil {
		h.logger.Error("list overrides", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]overrideResponse, 0, len(rows))
	for _, ov := range rows {
		out = append(out, toResponse(ov))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"overrides": out})
}

func (h *Handler) put(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	var payload overridePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, "malformed json body"))
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}

	stored, err := h.service.Put(r.Context(), id.UserID, Override{
		TenantID: id.TenantID,
		Role:     policy.RoleID(strings.ToLower(payload.Role)),
		Module:   policy.ModuleID(strings.ToLower(payload.Module)),
		View:     payload.CanView,
		Create:   payload.CanCreate,
		Edit:     payload.CanEdit,
		Delete:   payload.CanDelete,
		Export:   payload.CanExport,
		Approve:  payload.CanApprove,
		Custom:   payload.Custom,
	})
	if err != nil {
		h.logger.Warn("put override",
			slog.String("tenant_id", id.TenantID.String()),
			slog.String("role", payload.Role),
			slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(stored))
}

// warmup queues a background refresh of the tenant's capability caches so
// a bulk override import does not leave sessions on stale sets until the
// next cron run.
func (h *Handler) warmup(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	if h.jobs == nil {
		httpx.RespondError(w, errors.New("job queue unavailable"))
		return
	}
	info, err := h.jobs.EnqueueAccessWarmup(r.Context(), jobs.AccessWarmupPayload{TenantID: id.TenantID.String()})
	if err != nil {
		h.logger.Error("enqueue warmup",
			slog.String("tenant_id", id.TenantID.String()),
			slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{
		"task_id": info.ID,
		"queue":   info.Queue,
	})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	role := policy.RoleID(strings.ToLower(chi.URLParam(r, "role")))
	module := policy.ModuleID(strings.ToLower(chi.URLParam(r, "module")))
	if err := h.service.Remove(r.Context(), id.UserID, id.TenantID, role, module); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("remove override", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
