package policy

// OverrideRecord is a tenant-scoped partial patch for one (role, module).
// Nil action fields inherit the default; Custom keys are merged key-wise
// with the override winning per key.
type OverrideRecord struct {
	Module  ModuleID
	View    *bool
	Create  *bool
	Edit    *bool
	Delete  *bool
	Export  *bool
	Approve *bool
	Custom  map[string]bool
}

// Resolution is the outcome of merging tenant overrides onto the default
// matrix for one role. Capabilities always covers the full module catalog.
type Resolution struct {
	Role         RoleID
	Capabilities CapabilitySet
	// RoleFallback is set when the role was not in the catalog and the
	// read_only defaults were applied instead. Observability only; the
	// resolution itself is valid.
	RoleFallback bool
	// IgnoredModules lists override targets outside the module catalog.
	// Such overrides are skipped: an unknown module cannot be granted
	// capabilities.
	IgnoredModules []ModuleID
}

// Resolve merges the supplied overrides onto the default capability set
// for the role and returns a fresh, fully populated resolution.
//
// The function is pure and deterministic. Overrides are applied in list
// order; when several records target the same module the later record wins
// per field. Tenant scoping is the caller's concern: only overrides already
// filtered to the requesting tenant and role belong in the list.
func Resolve(role RoleID, overrides []OverrideRecord) Resolution {
	caps, known := DefaultFor(role)
	res := Resolution{
		Role:         role,
		Capabilities: caps,
		RoleFallback: !known,
	}

	for _, ov := range overrides {
		rec, ok := caps[ov.Module]
		if !ok {
			res.IgnoredModules = append(res.IgnoredModules, ov.Module)
			continue
		}
		caps[ov.Module] = applyOverride(rec, ov)
	}
	return res
}

func applyOverride(rec CapabilityRecord, ov OverrideRecord) CapabilityRecord {
	if ov.View != nil {
		rec.View = *ov.View
	}
	if ov.Create != nil {
		rec.Create = *ov.Create
	}
	if ov.Edit != nil {
		rec.Edit = *ov.Edit
	}
	if ov.Delete != nil {
		rec.Delete = *ov.Delete
	}
	if ov.Export != nil {
		rec.Export = *ov.Export
	}
	if ov.Approve != nil {
		rec.Approve = *ov.Approve
	}
	if len(ov.Custom) > 0 {
		if rec.Custom == nil {
			rec.Custom = make(map[string]bool, len(ov.Custom))
		}
		for key, allowed := range ov.Custom {
			rec.Custom[key] = allowed
		}
	}
	return rec
}
