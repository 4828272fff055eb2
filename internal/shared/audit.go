package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditEntry represents a record stored in permission_audit_log. Override
// administration is the only writer; decision queries are never audited.
type AuditEntry struct {
	TenantID uuid.UUID
	ActorID  string
	Action   string
	Role     string
	Module   string
	Meta     map[string]any
	At       time.Time
}

// AuditLogger writes override-change records into permission_audit_log.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, entry AuditEntry) error {
	if l == nil || l.pool == nil {
		return errors.New("audit logger not initialised")
	}
	if entry.Action == "" || entry.Role == "" {
		return errors.New("audit entry requires action and role")
	}
	metaJSON, err := json.Marshal(entry.Meta)
	if err != nil {
		return err
	}
	at := entry.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO permission_audit_log (tenant_id, actor_id, action, role, module, meta, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.TenantID, entry.ActorID, entry.Action, entry.Role, entry.Module, metaJSON, at)
	return err
}
