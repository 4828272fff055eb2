package overrides

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/policy"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository provides PostgreSQL backed persistence for permission
// overrides.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const overrideColumns = `id, tenant_id, role, module, can_view, can_create, can_edit, can_delete, can_export, can_approve, custom_permissions, created_at, updated_at`

// FetchOverrides returns the override records for one (tenant, role) in
// the shape the resolution engine consumes. Ordering by updated_at then id
// makes "last write wins" mean the most recent administrative edit.
func (r *Repository) FetchOverrides(ctx context.Context, tenantID uuid.UUID, role policy.RoleID) ([]policy.OverrideRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+overrideColumns+` FROM permission_overrides WHERE tenant_id = $1 AND role = $2 ORDER BY updated_at, id`,
		tenantID, role)
	if err != nil {
		return nil, fmt.Errorf("overrides: fetch: %w", err)
	}
	defer rows.Close()

	var records []policy.OverrideRecord
	for rows.Next() {
		ov, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, ov.Record())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("overrides: fetch: %w", err)
	}
	return records, nil
}

// ListByTenant returns every override row for a tenant, for the
// administration surface.
func (r *Repository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Override, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+overrideColumns+` FROM permission_overrides WHERE tenant_id = $1 ORDER BY role, module`,
		tenantID)
	if err != nil {
		return nil, fmt.Errorf("overrides: list: %w", err)
	}
	defer rows.Close()

	var out []Override
	for rows.Next() {
		ov, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ov)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("overrides: list: %w", err)
	}
	return out, nil
}

// TenantIDs returns the distinct tenants holding overrides, for cache
// warmup jobs.
func (r *Repository) TenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT tenant_id FROM permission_overrides ORDER BY tenant_id`)
	if err != nil {
		return nil, fmt.Errorf("overrides: tenants: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("overrides: tenants: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("overrides: tenants: %w", err)
	}
	return ids, nil
}

// Upsert inserts or replaces the override for (tenant, role, module).
func (r *Repository) Upsert(ctx context.Context, ov Override) (Override, error) {
	customJSON, err := marshalCustom(ov.Custom)
	if err != nil {
		return Override{}, err
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO permission_overrides
		     (tenant_id, role, module, can_view, can_create, can_edit, can_delete, can_export, can_approve, custom_permissions)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (tenant_id, role, module) DO UPDATE SET
		     can_view = EXCLUDED.can_view,
		     can_create = EXCLUDED.can_create,
		     can_edit = EXCLUDED.can_edit,
		     can_delete = EXCLUDED.can_delete,
		     can_export = EXCLUDED.can_export,
		     can_approve = EXCLUDED.can_approve,
		     custom_permissions = EXCLUDED.custom_permissions,
		     updated_at = NOW()
		 RETURNING `+overrideColumns,
		ov.TenantID, ov.Role, ov.Module, ov.View, ov.Create, ov.Edit, ov.Delete, ov.Export, ov.Approve, customJSON)
	stored, err := scanOverride(row)
	if err != nil {
		return Override{}, fmt.Errorf("overrides: upsert: %w", err)
	}
	return stored, nil
}

// Delete removes the override for (tenant, role, module). Returns
// shared.ErrNotFound when nothing was deleted.
func (r *Repository) Delete(ctx context.Context, tenantID uuid.UUID, role policy.RoleID, module policy.ModuleID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM permission_overrides WHERE tenant_id = $1 AND role = $2 AND module = $3`,
		tenantID, role, module)
	if err != nil {
		return fmt.Errorf("overrides: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOverride(row rowScanner) (Override, error) {
	var (
		ov         Override
		customJSON []byte
	)
	err := row.Scan(
		&ov.ID, &ov.TenantID, &ov.Role, &ov.Module,
		&ov.View, &ov.Create, &ov.Edit, &ov.Delete, &ov.Export, &ov.Approve,
		&customJSON, &ov.CreatedAt, &ov.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Override{}, shared.ErrNotFound
		}
		return Override{}, fmt.Errorf("overrides: scan: %w", err)
	}
	if len(customJSON) > 0 {
		if err := json.Unmarshal(customJSON, &ov.Custom); err != nil {
			return Override{}, fmt.Errorf("overrides: decode custom permissions: %w", err)
		}
	}
	return ov, nil
}

func marshalCustom(custom map[string]bool) ([]byte, error) {
	if len(custom) == 0 {
		return []byte(`{}`), nil
	}
	data, err := json.Marshal(custom)
	if err != nil {
		return nil, fmt.Errorf("overrides: encode custom permissions: %w", err)
	}
	return data, nil
}
