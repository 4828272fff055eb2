package policy

import "testing"

func TestUnboundGuardDeniesEverything(t *testing.T) {
	var g Guard
	if g.Bound() {
		t.Fatalf("zero guard reported bound")
	}
	for _, module := range Modules() {
		if g.CanView(module) || g.CanDelete(module) || g.HasCustom(module, "can_void") {
			t.Fatalf("unbound guard granted access to %s", module)
		}
	}
	if g.IsAdmin() || g.IsSuperAdmin() {
		t.Fatalf("unbound guard reported an elevated tier")
	}
}

func TestGuardDispatchUnknownActionDenies(t *testing.T) {
	g := NewGuard(Resolve(RoleSuperAdmin, nil))
	for _, module := range Modules() {
		if g.Dispatch(module, "not_a_real_action") {
			t.Fatalf("unknown action granted on %s", module)
		}
		if g.Allows(module, "not_a_real_action") {
			t.Fatalf("unknown raw action granted on %s", module)
		}
	}
}

func TestGuardAllowsRoutesCustomSentinel(t *testing.T) {
	g := NewGuard(Resolve(RolePayrollAdmin, nil))
	if !g.Allows(ModuleHR, "custom:can_process_payroll") {
		t.Fatalf("custom sentinel lookup failed")
	}
	if g.Allows(ModuleHR, "custom:can_delete_everything") {
		t.Fatalf("absent custom key granted")
	}
	if g.Allows(ModuleHR, "custom:") {
		t.Fatalf("empty custom key granted")
	}
	if !g.Allows(ModuleHR, "view") {
		t.Fatalf("standard action routing broken")
	}
}

func TestGuardTierPredicates(t *testing.T) {
	cases := []struct {
		role       RoleID
		admin      bool
		superAdmin bool
	}{
		{RoleSuperAdmin, true, true},
		{RoleOrgAdmin, true, false},
		{RoleHRAdmin, false, false},
		{RoleReadOnly, false, false},
	}
	for _, tc := range cases {
		g := NewGuard(Resolve(tc.role, nil))
		if g.IsAdmin() != tc.admin {
			t.Fatalf("role %s: IsAdmin = %v, want %v", tc.role, g.IsAdmin(), tc.admin)
		}
		if g.IsSuperAdmin() != tc.superAdmin {
			t.Fatalf("role %s: IsSuperAdmin = %v, want %v", tc.role, g.IsSuperAdmin(), tc.superAdmin)
		}
	}
}

func TestGuardEndToEndWarehouseScenario(t *testing.T) {
	g := NewGuard(Resolve(RoleWarehouseManager, []OverrideRecord{
		{Module: ModuleInventory, Delete: boolPtr(true)},
	}))

	if !g.CanDelete(ModuleInventory) {
		t.Fatalf("inventory delete override not honoured")
	}
	if !g.CanView(ModuleInventory) || !g.CanCreate(ModuleInventory) || !g.CanEdit(ModuleInventory) ||
		!g.CanExport(ModuleInventory) || !g.CanApprove(ModuleInventory) {
		t.Fatalf("untouched inventory defaults changed")
	}
	if g.CanEdit(ModuleFinance) {
		t.Fatalf("inventory-scoped override leaked into finance")
	}
	if g.CanView(ModuleFinance) {
		t.Fatalf("warehouse manager gained finance view")
	}
}
