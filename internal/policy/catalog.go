// Package policy implements the permission resolution core: the built-in
// default capability matrix, the override merge algorithm, and the decision
// guard consumed by gating middleware and handlers.
//
// The catalogs of modules, actions and roles are closed. Extending any of
// them is a code change, never a runtime registration, so every resolved
// capability set covers the full module catalog and lookups never miss.
package policy

import "strings"

// ModuleID identifies a business area permissions are scoped to.
type ModuleID string

// Module catalog.
const (
	ModuleDashboard     ModuleID = "dashboard"
	ModuleSales         ModuleID = "sales"
	ModuleInventory     ModuleID = "inventory"
	ModuleSuppliers     ModuleID = "suppliers"
	ModuleTransport     ModuleID = "transport"
	ModuleHR            ModuleID = "hr"
	ModuleFinance       ModuleID = "finance"
	ModuleCommunication ModuleID = "communication"
	ModuleAttendance    ModuleID = "attendance"
	ModuleSettings      ModuleID = "settings"
	ModuleActivityLog   ModuleID = "activity_log"
)

var moduleCatalog = []ModuleID{
	ModuleDashboard,
	ModuleSales,
	ModuleInventory,
	ModuleSuppliers,
	ModuleTransport,
	ModuleHR,
	ModuleFinance,
	ModuleCommunication,
	ModuleAttendance,
	ModuleSettings,
	ModuleActivityLog,
}

// Modules returns the closed module catalog in declaration order.
func Modules() []ModuleID {
	out := make([]ModuleID, len(moduleCatalog))
	copy(out, moduleCatalog)
	return out
}

// KnownModule reports whether the module belongs to the catalog.
func KnownModule(m ModuleID) bool {
	for _, known := range moduleCatalog {
		if known == m {
			return true
		}
	}
	return false
}

// ActionID identifies one of the six standard permissioned operations.
type ActionID string

// Action catalog.
const (
	ActionView    ActionID = "view"
	ActionCreate  ActionID = "create"
	ActionEdit    ActionID = "edit"
	ActionDelete  ActionID = "delete"
	ActionExport  ActionID = "export"
	ActionApprove ActionID = "approve"
)

// CustomActionPrefix marks a raw action string as a custom permission
// lookup, e.g. "custom:can_void".
const CustomActionPrefix = "custom:"

var actionCatalog = []ActionID{
	ActionView,
	ActionCreate,
	ActionEdit,
	ActionDelete,
	ActionExport,
	ActionApprove,
}

// Actions returns the closed action catalog.
func Actions() []ActionID {
	out := make([]ActionID, len(actionCatalog))
	copy(out, actionCatalog)
	return out
}

// ParseAction maps a raw action string to its catalog entry. Unknown
// strings report false so call sites stay fail-closed.
func ParseAction(raw string) (ActionID, bool) {
	switch ActionID(strings.TrimSpace(strings.ToLower(raw))) {
	case ActionView:
		return ActionView, true
	case ActionCreate:
		return ActionCreate, true
	case ActionEdit:
		return ActionEdit, true
	case ActionDelete:
		return ActionDelete, true
	case ActionExport:
		return ActionExport, true
	case ActionApprove:
		return ActionApprove, true
	}
	return "", false
}

// RoleID identifies a class of user. The label is tenant-independent;
// effective capabilities per tenant come from overrides.
type RoleID string

// Role catalog.
const (
	RoleSuperAdmin       RoleID = "super_admin"
	RoleOrgAdmin         RoleID = "org_admin"
	RoleHRAdmin          RoleID = "hr_admin"
	RolePayrollAdmin     RoleID = "payroll_admin"
	RoleWarehouseManager RoleID = "warehouse_manager"
	RoleRetailCashier    RoleID = "retail_cashier"
	RoleVehicleSales     RoleID = "vehicle_sales"
	RoleDriver           RoleID = "driver"
	RoleAccountant       RoleID = "accountant"
	RoleSupportStaff     RoleID = "support_staff"
	RoleReadOnly         RoleID = "read_only"
)

// FallbackRole receives the defaults applied to unrecognised roles.
const FallbackRole = RoleReadOnly

var roleCatalog = []RoleID{
	RoleSuperAdmin,
	RoleOrgAdmin,
	RoleHRAdmin,
	RolePayrollAdmin,
	RoleWarehouseManager,
	RoleRetailCashier,
	RoleVehicleSales,
	RoleDriver,
	RoleAccountant,
	RoleSupportStaff,
	RoleReadOnly,
}

// Roles returns the closed role catalog in declaration order.
func Roles() []RoleID {
	out := make([]RoleID, len(roleCatalog))
	copy(out, roleCatalog)
	return out
}

// KnownRole reports whether the role belongs to the catalog.
func KnownRole(r RoleID) bool {
	_, ok := defaultMatrix[r]
	return ok
}

// CapabilityRecord holds the six standard action grants plus granular
// module-specific custom flags for one (role, module) pair.
type CapabilityRecord struct {
	View    bool            `json:"can_view"`
	Create  bool            `json:"can_create"`
	Edit    bool            `json:"can_edit"`
	Delete  bool            `json:"can_delete"`
	Export  bool            `json:"can_export"`
	Approve bool            `json:"can_approve"`
	Custom  map[string]bool `json:"custom_permissions,omitempty"`
}

// Allows reports the grant for a single standard action. Anything outside
// the closed action catalog is denied.
func (r CapabilityRecord) Allows(action ActionID) bool {
	switch action {
	case ActionView:
		return r.View
	case ActionCreate:
		return r.Create
	case ActionEdit:
		return r.Edit
	case ActionDelete:
		return r.Delete
	case ActionExport:
		return r.Export
	case ActionApprove:
		return r.Approve
	default:
		return false
	}
}

// AllowsCustom reports the grant for a custom permission key, defaulting
// to deny when the key is absent.
func (r CapabilityRecord) AllowsCustom(key string) bool {
	return r.Custom[key]
}

// Clone returns a deep copy so callers can mutate working records without
// touching catalog data.
func (r CapabilityRecord) Clone() CapabilityRecord {
	out := r
	if r.Custom != nil {
		out.Custom = make(map[string]bool, len(r.Custom))
		for k, v := range r.Custom {
			out.Custom[k] = v
		}
	}
	return out
}

// CapabilitySet is the fully resolved Module -> CapabilityRecord map for
// one (tenant, role). Treat as immutable once resolved.
type CapabilitySet map[ModuleID]CapabilityRecord
