package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/access"
	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
	"github.com/meridian-erp/meridian-erp/internal/policy"
)

// TenantSource lists the tenants whose capability caches are worth
// priming.
type TenantSource interface {
	TenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// AccessWarmupJob pre-populates capability caches so the first request of
// a session never pays the resolve round trip.
type AccessWarmupJob struct {
	Access  *access.Service
	Tenants TenantSource
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewAccessWarmupJob wires dependencies for the warmup handler.
func NewAccessWarmupJob(accessSvc *access.Service, tenants TenantSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *AccessWarmupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccessWarmupJob{Access: accessSvc, Tenants: tenants, Logger: logger, Metrics: metrics}
}

// Handle processes access warmup tasks.
func (j *AccessWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Access == nil {
		return errors.New("access warmup: handler not configured")
	}
	var payload AccessWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskAccessWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	tenants, err := j.tenantScope(ctx, payload)
	if err != nil {
		resultErr = err
		j.Logger.Error("load warmup tenants", slog.Any("error", err))
		return resultErr
	}
	if len(tenants) == 0 {
		j.Logger.Info("no tenants discovered for warmup")
		return resultErr
	}

	warmed := 0
	for _, tenantID := range tenants {
		for _, role := range policy.Roles() {
			if ctx.Err() != nil {
				resultErr = ctx.Err()
				return resultErr
			}
			resolved := j.Access.Resolve(ctx, tenantID, role)
			if resolved.Degraded {
				j.Logger.Warn("warmup resolved degraded set, skipping remaining roles",
					slog.String("tenant_id", tenantID.String()),
					slog.String("role", string(role)))
				break
			}
			warmed++
		}
	}
	j.Logger.Info("access warmup complete",
		slog.Int("tenants", len(tenants)),
		slog.Int("sets_warmed", warmed))
	return resultErr
}

func (j *AccessWarmupJob) tenantScope(ctx context.Context, payload AccessWarmupPayload) ([]uuid.UUID, error) {
	if payload.TenantID != "" {
		tenantID, err := uuid.Parse(payload.TenantID)
		if err != nil {
			return nil, asynq.SkipRetry
		}
		return []uuid.UUID{tenantID}, nil
	}
	if j.Tenants == nil {
		return nil, nil
	}
	return j.Tenants.TenantIDs(ctx)
}
