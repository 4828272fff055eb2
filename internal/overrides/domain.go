// Package overrides persists and administers tenant permission overrides.
// It is the write side of the permission system; the engine in
// internal/policy only ever reads the records this package stores.
package overrides

import (
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/policy"
)

// Override is a persisted partial capability patch for one
// (tenant, role, module). Nil action fields inherit the matrix default.
type Override struct {
	ID       int64
	TenantID uuid.UUID
	Role     policy.RoleID
	Module   policy.ModuleID
	View     *bool
	Create   *bool
	Edit     *bool
	Delete   *bool
	Export   *bool
	Approve  *bool
	Custom   map[string]bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Record converts the row into the engine's override shape.
func (o Override) Record() policy.OverrideRecord {
	return policy.OverrideRecord{
		Module:  o.Module,
		View:    o.View,
		Create:  o.Create,
		Edit:    o.Edit,
		Delete:  o.Delete,
		Export:  o.Export,
		Approve: o.Approve,
		Custom:  o.Custom,
	}
}
