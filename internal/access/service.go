package access

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/policy"
)

// OverrideSource is the read boundary to the override store. The service
// only ever fetches; override administration lives elsewhere.
type OverrideSource interface {
	FetchOverrides(ctx context.Context, tenantID uuid.UUID, role policy.RoleID) ([]policy.OverrideRecord, error)
}

// Resolved is the cached outcome of one (tenant, role) resolution.
type Resolved struct {
	TenantID     uuid.UUID            `json:"tenant_id"`
	Role         policy.RoleID        `json:"role"`
	Capabilities policy.CapabilitySet `json:"capabilities"`
	// RoleFallback reports that the role was unknown and the read_only
	// defaults were applied.
	RoleFallback bool `json:"role_fallback,omitempty"`
	// Degraded reports that the override fetch failed and the set was
	// resolved from matrix defaults only. Degraded snapshots are never
	// cached so the next request retries the store.
	Degraded bool `json:"degraded,omitempty"`
}

// Guard binds the resolution into a decision guard.
func (r Resolved) Guard() policy.Guard {
	return policy.NewGuard(policy.Resolution{Role: r.Role, Capabilities: r.Capabilities})
}

// Service resolves capability sets on demand, fronted by the versioned
// Redis cache and a singleflight group so concurrent sessions for the same
// (tenant, role) resolve once.
type Service struct {
	source  OverrideSource
	cache   *Cache
	logger  *slog.Logger
	metrics *observability.Metrics
	group   singleflight.Group
}

// NewService constructs a Service. Cache and metrics are optional.
func NewService(source OverrideSource, cache *Cache, logger *slog.Logger, metrics *observability.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, cache: cache, logger: logger, metrics: metrics}
}

// Resolve returns the capability set for (tenant, role), from cache when
// possible. Failures anywhere short of the policy engine degrade to a
// defaults-only resolution rather than blocking the caller: the engine
// itself cannot fail.
func (s *Service) Resolve(ctx context.Context, tenantID uuid.UUID, role policy.RoleID) Resolved {
	key, err := s.cache.BuildKey(ctx, tenantID, role)
	if err != nil {
		s.logger.Warn("capability cache unavailable",
			slog.String("tenant_id", tenantID.String()),
			slog.String("role", string(role)),
			slog.Any("error", err))
		return s.resolveFresh(ctx, tenantID, role)
	}

	result, err, _ := s.group.Do(key, func() (any, error) {
		var cached Resolved
		loadErr := s.cache.FetchJSON(ctx, key, &cached, func(ctx context.Context) (any, error) {
			fresh := s.resolveFresh(ctx, tenantID, role)
			if fresh.Degraded {
				// Do not persist a defaults-only snapshot.
				return nil, errDegraded{fresh}
			}
			return fresh, nil
		})
		if loadErr != nil {
			return nil, loadErr
		}
		return cached, nil
	})
	if err != nil {
		if deg, ok := err.(errDegraded); ok {
			return deg.resolved
		}
		s.logger.Warn("capability cache fetch",
			slog.String("tenant_id", tenantID.String()),
			slog.String("role", string(role)),
			slog.Any("error", err))
		return s.resolveFresh(ctx, tenantID, role)
	}
	return result.(Resolved)
}

// GuardFor resolves and binds a decision guard in one step.
func (s *Service) GuardFor(ctx context.Context, tenantID uuid.UUID, role policy.RoleID) policy.Guard {
	return s.Resolve(ctx, tenantID, role).Guard()
}

// Invalidate bumps the cache version for (tenant, role). It satisfies the
// overrides.Invalidator interface.
func (s *Service) Invalidate(ctx context.Context, tenantID uuid.UUID, role policy.RoleID) error {
	return s.cache.Bump(ctx, tenantID, role)
}

// Check answers a single dynamic (module, action) query, recording the
// decision outcome for observability.
func (s *Service) Check(ctx context.Context, tenantID uuid.UUID, role policy.RoleID, module policy.ModuleID, rawAction string) bool {
	allowed := s.GuardFor(ctx, tenantID, role).Allows(module, rawAction)
	if s.metrics != nil {
		s.metrics.RecordDecision(string(module), rawAction, allowed)
	}
	return allowed
}

func (s *Service) resolveFresh(ctx context.Context, tenantID uuid.UUID, role policy.RoleID) Resolved {
	overrides, err := s.source.FetchOverrides(ctx, tenantID, role)
	degraded := false
	if err != nil {
		// Fail closed: resolve from defaults only, denying any
		// tenant-specific grants, instead of blocking the session.
		degraded = true
		overrides = nil
		s.logger.Warn("override fetch failed, resolving defaults only",
			slog.String("tenant_id", tenantID.String()),
			slog.String("role", string(role)),
			slog.Any("error", err))
	}

	res := policy.Resolve(role, overrides)
	if res.RoleFallback {
		s.logger.Warn("unknown role resolved to fallback defaults",
			slog.String("tenant_id", tenantID.String()),
			slog.String("role", string(role)),
			slog.String("fallback", string(policy.FallbackRole)))
	}
	for _, module := range res.IgnoredModules {
		s.logger.Warn("override references unknown module, ignored",
			slog.String("tenant_id", tenantID.String()),
			slog.String("role", string(role)),
			slog.String("module", string(module)))
	}

	return Resolved{
		TenantID:     tenantID,
		Role:         role,
		Capabilities: res.Capabilities,
		RoleFallback: res.RoleFallback,
		Degraded:     degraded,
	}
}

type errDegraded struct {
	resolved Resolved
}

func (e errDegraded) Error() string {
	return fmt.Sprintf("access: degraded resolution for %s/%s", e.resolved.TenantID, e.resolved.Role)
}
