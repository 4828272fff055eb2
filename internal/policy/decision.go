package policy

import "strings"

// Guard answers point permission queries against a resolved capability
// set. The zero value is unbound and denies everything; Bind transitions
// it to a usable state once tenant/role/override data are available.
//
// A Guard never mutates its capability set. Re-resolution after an
// override change produces a new Guard; readers holding the old one keep
// a consistent snapshot.
type Guard struct {
	role  RoleID
	caps  CapabilitySet
	bound bool
}

// NewGuard binds a guard to a completed resolution.
func NewGuard(res Resolution) Guard {
	return Guard{role: res.Role, caps: res.Capabilities, bound: res.Capabilities != nil}
}

// Bound reports whether the guard holds a resolved capability set.
func (g Guard) Bound() bool { return g.bound }

// Role returns the role the guard was resolved for.
func (g Guard) Role() RoleID { return g.role }

func (g Guard) capability(module ModuleID) (CapabilityRecord, bool) {
	if !g.bound {
		return CapabilityRecord{}, false
	}
	rec, ok := g.caps[module]
	return rec, ok
}

// CanView reports the view grant for the module.
func (g Guard) CanView(module ModuleID) bool { return g.Dispatch(module, ActionView) }

// CanCreate reports the create grant for the module.
func (g Guard) CanCreate(module ModuleID) bool { return g.Dispatch(module, ActionCreate) }

// CanEdit reports the edit grant for the module.
func (g Guard) CanEdit(module ModuleID) bool { return g.Dispatch(module, ActionEdit) }

// CanDelete reports the delete grant for the module.
func (g Guard) CanDelete(module ModuleID) bool { return g.Dispatch(module, ActionDelete) }

// CanExport reports the export grant for the module.
func (g Guard) CanExport(module ModuleID) bool { return g.Dispatch(module, ActionExport) }

// CanApprove reports the approve grant for the module.
func (g Guard) CanApprove(module ModuleID) bool { return g.Dispatch(module, ActionApprove) }

// HasCustom reports the grant for a custom permission key, denying when
// the key is absent.
func (g Guard) HasCustom(module ModuleID, key string) bool {
	rec, ok := g.capability(module)
	if !ok {
		return false
	}
	return rec.AllowsCustom(key)
}

// Dispatch routes a single (module, action) query to the resolved record.
// Unknown actions and modules missing from the set deny.
func (g Guard) Dispatch(module ModuleID, action ActionID) bool {
	rec, ok := g.capability(module)
	if !ok {
		return false
	}
	switch action {
	case ActionView:
		return rec.View
	case ActionCreate:
		return rec.Create
	case ActionEdit:
		return rec.Edit
	case ActionDelete:
		return rec.Delete
	case ActionExport:
		return rec.Export
	case ActionApprove:
		return rec.Approve
	default:
		return false
	}
}

// Allows answers a dynamic action string from UI call sites. The six
// standard actions map to Dispatch; strings prefixed "custom:" route to
// the custom permission lookup; anything else denies. It never panics on
// malformed input.
func (g Guard) Allows(module ModuleID, rawAction string) bool {
	raw := strings.TrimSpace(rawAction)
	if key, ok := strings.CutPrefix(raw, CustomActionPrefix); ok {
		if key == "" {
			return false
		}
		return g.HasCustom(module, key)
	}
	action, ok := ParseAction(raw)
	if !ok {
		return false
	}
	return g.Dispatch(module, action)
}

// adminRoles are the elevated tiers IsAdmin recognises.
var adminRoles = map[RoleID]struct{}{
	RoleSuperAdmin: {},
	RoleOrgAdmin:   {},
}

// IsAdmin reports whether the bound role belongs to an elevated tier.
func (g Guard) IsAdmin() bool {
	if !g.bound {
		return false
	}
	_, ok := adminRoles[g.role]
	return ok
}

// IsSuperAdmin reports whether the bound role is the platform super admin.
func (g Guard) IsSuperAdmin() bool {
	return g.bound && g.role == RoleSuperAdmin
}
