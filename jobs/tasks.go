package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAccessWarmup precomputes capability caches per tenant.
	TaskAccessWarmup = "access:warmup"
	// TaskAccessInvalidate bumps the capability cache for one tenant/role.
	TaskAccessInvalidate = "access:invalidate"
)

// AccessWarmupPayload scopes a warmup run. An empty TenantID warms every
// tenant that holds overrides.
type AccessWarmupPayload struct {
	TenantID string `json:"tenant_id,omitempty"`
}

// NewAccessWarmupTask constructs an Asynq task.
func NewAccessWarmupTask(payload AccessWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAccessWarmup, data), nil
}

// AccessInvalidatePayload identifies the capability cache to bump.
type AccessInvalidatePayload struct {
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
}

// NewAccessInvalidateTask constructs an Asynq task.
func NewAccessInvalidateTask(payload AccessInvalidatePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAccessInvalidate, data), nil
}
