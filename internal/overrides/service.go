package overrides

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/policy"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/jobs"
)

// Store abstracts override persistence for the service layer.
type Store interface {
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Override, error)
	Upsert(ctx context.Context, ov Override) (Override, error)
	Delete(ctx context.Context, tenantID uuid.UUID, role policy.RoleID, module policy.ModuleID) error
}

// Invalidator is notified after every override mutation so cached
// capability sets for the touched (tenant, role) get recomputed.
type Invalidator interface {
	Invalidate(ctx context.Context, tenantID uuid.UUID, role policy.RoleID) error
}

// Auditor records override administration events.
type Auditor interface {
	Record(ctx context.Context, entry shared.AuditEntry) error
}

// TaskQueue enqueues the retryable invalidation task used when the direct
// cache bump fails.
type TaskQueue interface {
	EnqueueAccessInvalidate(ctx context.Context, payload jobs.AccessInvalidatePayload) (*asynq.TaskInfo, error)
}

// Service orchestrates override administration: validation, persistence,
// audit trail and cache invalidation.
type Service struct {
	store       Store
	audit       Auditor
	invalidator Invalidator
	queue       TaskQueue
	logger      *slog.Logger
}

// NewService constructs a Service. Audit, invalidator and queue are
// optional; with neither invalidator nor queue, capability caches expire
// by TTL only.
func NewService(store Store, audit Auditor, invalidator Invalidator, queue TaskQueue, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, audit: audit, invalidator: invalidator, queue: queue, logger: logger}
}

// List returns every override row for a tenant.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID) ([]Override, error) {
	return s.store.ListByTenant(ctx, tenantID)
}

// Put validates and stores an override, then invalidates the cached
// capability set for the touched (tenant, role).
//
// Unknown modules are rejected here even though the resolution engine
// would silently skip them: an administrator writing such a row made a
// mistake worth surfacing immediately.
func (s *Service) Put(ctx context.Context, actorID string, ov Override) (Override, error) {
	if ov.TenantID == uuid.Nil {
		return Override{}, fmt.Errorf("%w: tenant id required", httpx.ErrValidation)
	}
	if !policy.KnownRole(ov.Role) {
		return Override{}, fmt.Errorf("%w: unknown role %q", httpx.ErrValidation, ov.Role)
	}
	if !policy.KnownModule(ov.Module) {
		return Override{}, fmt.Errorf("%w: unknown module %q", httpx.ErrValidation, ov.Module)
	}

	stored, err := s.store.Upsert(ctx, ov)
	if err != nil {
		return Override{}, err
	}

	s.recordAudit(ctx, actorID, "override.put", stored)
	s.invalidate(ctx, stored.TenantID, stored.Role)
	return stored, nil
}

// Remove deletes the override for (tenant, role, module) and invalidates
// the affected capability cache.
func (s *Service) Remove(ctx context.Context, actorID string, tenantID uuid.UUID, role policy.RoleID, module policy.ModuleID) error {
	if err := s.store.Delete(ctx, tenantID, role, module); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "override.remove", Override{TenantID: tenantID, Role: role, Module: module})
	s.invalidate(ctx, tenantID, role)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID, action string, ov Override) {
	if s.audit == nil {
		return
	}
	entry := shared.AuditEntry{
		TenantID: ov.TenantID,
		ActorID:  actorID,
		Action:   action,
		Role:     string(ov.Role),
		Module:   string(ov.Module),
		Meta: map[string]any{
			"can_view":    ov.View,
			"can_create":  ov.Create,
			"can_edit":    ov.Edit,
			"can_delete":  ov.Delete,
			"can_export":  ov.Export,
			"can_approve": ov.Approve,
			"custom":      ov.Custom,
		},
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("record override audit",
			slog.String("tenant_id", ov.TenantID.String()),
			slog.String("role", string(ov.Role)),
			slog.Any("error", err))
	}
}

func (s *Service) invalidate(ctx context.Context, tenantID uuid.UUID, role policy.RoleID) {
	if s.invalidator != nil {
		err := s.invalidator.Invalidate(ctx, tenantID, role)
		if err == nil {
			return
		}
		s.logger.Warn("invalidate capability cache",
			slog.String("tenant_id", tenantID.String()),
			slog.String("role", string(role)),
			slog.Any("error", err))
	}
	if s.queue == nil {
		return
	}
	// Retryable fallback; until it lands, cached sets age out by TTL.
	if _, err := s.queue.EnqueueAccessInvalidate(ctx, jobs.AccessInvalidatePayload{
		TenantID: tenantID.String(),
		Role:     string(role),
	}); err != nil {
		s.logger.Warn("enqueue invalidation task",
			slog.String("tenant_id", tenantID.String()),
			slog.String("role", string(role)),
			slog.Any("error", err))
	}
}
