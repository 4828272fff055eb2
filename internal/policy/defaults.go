package policy

// Built-in default permission matrix. This is bundled policy: the floor a
// tenant customises from via overrides, never mutated at runtime.

func record(view, create, edit, del, export, approve bool) CapabilityRecord {
	return CapabilityRecord{
		View:    view,
		Create:  create,
		Edit:    edit,
		Delete:  del,
		Export:  export,
		Approve: approve,
	}
}

func (r CapabilityRecord) withCustom(flags map[string]bool) CapabilityRecord {
	r.Custom = flags
	return r
}

func fullAccess() CapabilityRecord { return record(true, true, true, true, true, true) }
func viewOnly() CapabilityRecord   { return record(true, false, false, false, false, false) }
func noAccess() CapabilityRecord   { return CapabilityRecord{} }

// defaultMatrix lists per-role grants for the modules a role works in.
// Modules a role does not mention are filled with noAccess by init, so the
// effective matrix always covers the full Role x Module cross-product.
var defaultMatrix = map[RoleID]CapabilitySet{
	RoleSuperAdmin: {},

	RoleOrgAdmin: {
		ModuleActivityLog: record(true, false, false, false, true, false),
	},

	RoleHRAdmin: {
		ModuleDashboard: viewOnly(),
		ModuleHR: record(true, true, false, false, true, true).withCustom(map[string]bool{
			"can_view_salary":     true,
			"can_process_payroll": false,
		}),
		ModuleAttendance:    record(true, true, true, false, true, true),
		ModuleCommunication: record(true, true, true, false, false, false),
		ModuleSettings:      viewOnly(),
	},

	RolePayrollAdmin: {
		ModuleDashboard: viewOnly(),
		ModuleHR: record(true, false, false, false, true, false).withCustom(map[string]bool{
			"can_view_salary":     true,
			"can_process_payroll": true,
		}),
		ModuleFinance:    record(true, true, true, false, true, false),
		ModuleAttendance: record(true, false, false, false, true, false),
	},

	RoleWarehouseManager: {
		ModuleDashboard: viewOnly(),
		ModuleInventory: record(true, true, true, false, true, true).withCustom(map[string]bool{
			"can_view_cost_price": true,
			"can_adjust_stock":    true,
		}),
		ModuleSuppliers: record(true, true, true, false, true, false),
		ModuleTransport: viewOnly(),
	},

	RoleRetailCashier: {
		ModuleDashboard: viewOnly(),
		ModuleSales: record(true, true, false, false, false, false).withCustom(map[string]bool{
			"can_void":           false,
			"can_apply_discount": true,
		}),
		ModuleInventory: viewOnly().withCustom(map[string]bool{
			"can_view_cost_price": false,
		}),
	},

	RoleVehicleSales: {
		ModuleDashboard: viewOnly(),
		ModuleSales:     record(true, true, true, false, true, false),
		ModuleTransport: record(true, true, false, false, false, false),
		ModuleSuppliers: viewOnly(),
	},

	RoleDriver: {
		ModuleDashboard: viewOnly(),
		ModuleTransport: viewOnly().withCustom(map[string]bool{
			"can_update_trip_status": true,
		}),
		ModuleAttendance: record(true, true, false, false, false, false),
	},

	RoleAccountant: {
		ModuleDashboard: viewOnly(),
		ModuleFinance: record(true, true, true, false, true, false).withCustom(map[string]bool{
			"can_post_journal":   true,
			"can_close_period":   false,
			"can_view_cash_flow": true,
		}),
		ModuleSales:       record(true, false, false, false, true, false),
		ModuleInventory:   viewOnly(),
		ModuleActivityLog: viewOnly(),
	},

	RoleSupportStaff: {
		ModuleDashboard:     viewOnly(),
		ModuleCommunication: record(true, true, false, false, false, false),
		ModuleAttendance:    viewOnly(),
	},

	RoleReadOnly: {
		ModuleDashboard:     viewOnly(),
		ModuleSales:         viewOnly(),
		ModuleInventory:     viewOnly(),
		ModuleSuppliers:     viewOnly(),
		ModuleTransport:     viewOnly(),
		ModuleHR:            viewOnly(),
		ModuleFinance:       viewOnly(),
		ModuleCommunication: viewOnly(),
		ModuleAttendance:    viewOnly(),
		ModuleActivityLog:   viewOnly(),
	},
}

func init() {
	for role, caps := range defaultMatrix {
		for _, module := range moduleCatalog {
			if _, ok := caps[module]; ok {
				continue
			}
			switch role {
			case RoleSuperAdmin:
				caps[module] = fullAccess()
			case RoleOrgAdmin:
				caps[module] = fullAccess()
			default:
				caps[module] = noAccess()
			}
		}
	}
}

// DefaultFor returns a deep copy of the default capability set for the
// role. Unrecognised roles fall back to the read_only defaults; the second
// return value reports whether the role was found so callers can surface
// the fallback.
func DefaultFor(role RoleID) (CapabilitySet, bool) {
	caps, ok := defaultMatrix[role]
	if !ok {
		caps = defaultMatrix[FallbackRole]
	}
	out := make(CapabilitySet, len(caps))
	for module, rec := range caps {
		out[module] = rec.Clone()
	}
	return out, ok
}
