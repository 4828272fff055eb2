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

// AccessInvalidateJob bumps a (tenant, role) capability cache version,
// forcing the next resolution to recompute from the override store.
type AccessInvalidateJob struct {
	Access  *access.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewAccessInvalidateJob wires dependencies for the invalidation handler.
func NewAccessInvalidateJob(accessSvc *access.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *AccessInvalidateJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccessInvalidateJob{Access: accessSvc, Logger: logger, Metrics: metrics}
}

// Handle processes access invalidation tasks.
func (j *AccessInvalidateJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Access == nil {
		return errors.New("access invalidate: handler not configured")
	}
	var payload AccessInvalidatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil || payload.Role == "" {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskAccessInvalidate)
	resultErr := j.Access.Invalidate(ctx, tenantID, policy.RoleID(payload.Role))
	if resultErr != nil {
		j.Logger.Error("invalidate capability cache",
			slog.String("tenant_id", payload.TenantID),
			slog.String("role", payload.Role),
			slog.Any("error", resultErr))
	}
	return tracker.End(resultErr)
}
