package auth

import (
	"reflect"
	"testing"
)

func TestResolvePermissionsSuperAdminOverridesEverything(t *testing.T) {
	services := []string{ServiceARC, ServiceQRGate, ServiceCommunityAuth, "unknown_service"}
	want := NewPermissionSet("access", "admin", "manage_users", "view_logs", "super_admin").List()
	for _, svc := range services {
		got := ResolvePermissions(RoleSuperAdmin, nil, svc).List()
		if !reflect.DeepEqual(got, want) {
			t.Errorf("super_admin on %s = %v, want %v", svc, got, want)
		}
		// legacy alias resolves to the same set
		legacy := ResolvePermissions(GlobalRole("admin"), nil, svc).List()
		if !reflect.DeepEqual(legacy, want) {
			t.Errorf("legacy admin on %s = %v, want %v", svc, legacy, want)
		}
	}
}

func TestResolvePermissionsLegacyAliasesMatchCanonical(t *testing.T) {
	pairs := []struct {
		legacy, canonical GlobalRole
	}{
		{"admin", RoleSuperAdmin},
		{"resident", RoleHomeowner},
		{"staff", RoleQRScanner},
	}
	services := []string{ServiceARC, ServiceQRGate, ServiceCommunityAuth, "other"}
	for _, p := range pairs {
		for _, svc := range services {
			got := ResolvePermissions(p.legacy, nil, svc).List()
			want := ResolvePermissions(p.canonical, nil, svc).List()
			if !reflect.DeepEqual(got, want) {
				t.Errorf("%s vs %s on %s: %v != %v", p.legacy, p.canonical, svc, got, want)
			}
		}
	}
}

func TestResolvePermissionsServiceTables(t *testing.T) {
	cases := []struct {
		name    string
		role    GlobalRole
		service string
		want    []string
	}{
		{"arc admin", RoleARCAdmin, ServiceARC, []string{"access", "admin", "assign_reviewers", "manage_applications", "view_all"}},
		{"arc reviewer", RoleARCReviewer, ServiceARC, []string{"access", "approve", "comment", "deny", "review"}},
		{"arc homeowner", RoleHomeowner, ServiceARC, []string{"access", "submit", "view_own"}},
		{"arc guest falls back", RoleGuest, ServiceARC, []string{"guest"}},
		{"arc qr_admin falls back", RoleQRAdmin, ServiceARC, []string{"guest"}},
		{"qr admin", RoleQRAdmin, ServiceQRGate, []string{"access", "admin", "manage_devices", "manage_gates", "view_logs"}},
		{"qr scanner", RoleQRScanner, ServiceQRGate, []string{"access", "open_gate", "scan", "validate"}},
		{"qr homeowner", RoleHomeowner, ServiceQRGate, []string{"access", "resident_access"}},
		{"community auth homeowner", RoleHomeowner, ServiceCommunityAuth, []string{"access", "update_profile", "view_profile"}},
		{"community auth guest", RoleGuest, ServiceCommunityAuth, []string{"access", "update_profile", "view_profile"}},
		{"unknown service guest", RoleGuest, "billing", []string{"guest"}},
		{"unknown service homeowner", RoleHomeowner, "billing", []string{"access", "user"}},
		{"unknown service arc_admin", RoleARCAdmin, "billing", []string{"access"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolvePermissions(tc.role, nil, tc.service).List()
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestResolvePermissionsAppRolePrecedence(t *testing.T) {
	// a homeowner with an explicit arc app role resolves through the app
	// table, not the global one
	got := ResolvePermissions(RoleHomeowner, map[string]string{AppARC: "reviewer"}, ServiceARC).List()
	want := []string{"access", "approve", "comment", "deny", "review"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("homeowner+arc:reviewer = %v, want %v", got, want)
	}

	// the app role for one app does not leak into another service
	got = ResolvePermissions(RoleHomeowner, map[string]string{AppARC: "reviewer"}, ServiceQRGate).List()
	want = []string{"access", "resident_access"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("homeowner+arc:reviewer on qr_gate = %v, want %v", got, want)
	}

	// an unknown app role entry falls through to the global table
	got = ResolvePermissions(RoleHomeowner, map[string]string{AppQR: "superuser"}, ServiceQRGate).List()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("bad app role = %v, want %v", got, want)
	}

	// qr guest app role narrows a homeowner down to guest access
	got = ResolvePermissions(RoleHomeowner, map[string]string{AppQR: "guest"}, ServiceQRGate).List()
	if !reflect.DeepEqual(got, []string{"guest"}) {
		t.Fatalf("homeowner+qr:guest = %v, want [guest]", got)
	}
}

func TestPermissionSetHasAll(t *testing.T) {
	set := NewPermissionSet("access", "scan")
	if !set.HasAll([]string{"access", "scan"}) {
		t.Fatal("expected HasAll true for subset")
	}
	if set.HasAll([]string{"access", "admin"}) {
		t.Fatal("expected HasAll false for missing permission")
	}
	if !set.HasAll(nil) {
		t.Fatal("expected HasAll true for empty requirement")
	}
}
