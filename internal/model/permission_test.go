package model

import "testing"

func ptr(v int64) *int64 { return &v }

func TestAuthorize(t *testing.T) {
	cases := []struct {
		name      string
		role      Role
		action    Action
		owner     *int64
		requester *int64
		allowed   bool
		reason    DenyReason
	}{
		{"anonymous add", RoleNone, ActionAddPlace, nil, nil, false, DenyNotAuthenticated},
		{"readonly add", RoleReadonly, ActionAddPlace, nil, nil, false, DenyInsufficientRole},
		{"app add", RoleApp, ActionAddPlace, nil, nil, true, ""},
		{"curator add", RoleCurator, ActionAddPlace, nil, nil, true, ""},
		{"analyst add", RoleAnalyst, ActionAddPlace, nil, nil, false, DenyInsufficientRole},
		{"app update own", RoleApp, ActionUpdatePlace, ptr(7), ptr(7), true, ""},
		{"app update other", RoleApp, ActionUpdatePlace, ptr(7), ptr(8), false, DenyNotOwner},
		{"app update ownerless", RoleApp, ActionUpdatePlace, nil, ptr(8), false, DenyNotOwner},
		{"app update without user", RoleApp, ActionUpdatePlace, ptr(7), nil, false, DenyNotOwner},
		{"admin update other", RoleAdmin, ActionUpdatePlace, ptr(7), ptr(8), true, ""},
		{"admin update ownerless", RoleAdmin, ActionUpdatePlace, nil, nil, true, ""},
		{"app delete", RoleApp, ActionDeletePlace, ptr(7), ptr(7), false, DenyInsufficientRole},
		{"curator delete own", RoleCurator, ActionDeletePlace, ptr(7), ptr(7), true, ""},
		{"curator delete other", RoleCurator, ActionDeletePlace, ptr(7), ptr(8), false, DenyNotOwner},
		{"admin delete any", RoleAdmin, ActionDeletePlace, ptr(7), nil, true, ""},
		{"curator upload", RoleCurator, ActionUploadCSV, nil, nil, false, DenyInsufficientRole},
		{"admin upload", RoleAdmin, ActionUploadCSV, nil, nil, true, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Authorize(tc.role, tc.action, tc.owner, tc.requester)
			if d.Allowed != tc.allowed {
				t.Fatalf("allowed = %v, want %v", d.Allowed, tc.allowed)
			}
			if !tc.allowed && d.Reason != tc.reason {
				t.Fatalf("reason = %q, want %q", d.Reason, tc.reason)
			}
			if !tc.allowed && d.Message == "" {
				t.Fatal("denial carries no message")
			}
		})
	}
}

func TestRoleInfoCan(t *testing.T) {
	analyst := RoleInfo{Name: RoleAnalyst, Permissions: []Permission{PermSelect, PermAnalytics}}
	if !analyst.Can(PermAnalytics) {
		t.Fatal("analyst should have ANALYTICS")
	}
	if analyst.Can(PermInsert) {
		t.Fatal("analyst should not have INSERT")
	}
	admin := RoleInfo{Name: RoleAdmin, Permissions: []Permission{PermAll}}
	for _, p := range []Permission{PermSelect, PermInsert, PermUpdate, PermAnalytics} {
		if !admin.Can(p) {
			t.Fatalf("ALL grant should cover %s", p)
		}
	}
}

func TestRegistryOrderAndLookup(t *testing.T) {
	reg := NewRegistry(
		RoleInfo{Name: RoleReadonly},
		RoleInfo{Name: RoleAdmin},
		RoleInfo{Name: RoleReadonly}, // duplicate is ignored
	)
	all := reg.All()
	if len(all) != 2 {
		t.Fatalf("len(All()) = %d, want 2", len(all))
	}
	if all[0].Name != RoleReadonly || all[1].Name != RoleAdmin {
		t.Fatalf("registration order not preserved: %v", all)
	}
	if _, ok := reg.Lookup("admin_user"); !ok {
		t.Fatal("Lookup by login name failed")
	}
	if _, ok := reg.Get(RoleCurator); ok {
		t.Fatal("Get of unregistered role should fail")
	}
}
