package auth

import "sort"

// PermissionSet is an unordered collection of capability strings. Membership
// is the only meaningful operation.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from the given permission strings.
func NewPermissionSet(perms ...string) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// Has reports membership of a single permission.
func (s PermissionSet) Has(perm string) bool {
	_, ok := s[perm]
	return ok
}

// HasAll reports whether every required permission is present.
func (s PermissionSet) HasAll(required []string) bool {
	for _, perm := range required {
		if !s.Has(perm) {
			return false
		}
	}
	return true
}

// List returns the permissions in sorted order for stable responses.
func (s PermissionSet) List() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Downstream services with their own permission tables.
const (
	ServiceARC           = "arc"
	ServiceQRGate        = "qr_gate"
	ServiceCommunityAuth = "community_auth"
)

// superAdminPermissions is a global override: a super admin receives this
// exact set for every service, bypassing per-service rules entirely.
var superAdminPermissions = []string{"access", "admin", "manage_users", "view_logs", "super_admin"}

// Static role-to-permission tables, built once and never mutated. Keys are
// canonical roles; legacy aliases are normalized before lookup.
var servicePermissions = map[string]map[GlobalRole][]string{
	ServiceARC: {
		RoleARCAdmin:    {"access", "admin", "manage_applications", "assign_reviewers", "view_all"},
		RoleARCReviewer: {"access", "review", "comment", "approve", "deny"},
		RoleHomeowner:   {"access", "submit", "view_own"},
	},
	ServiceQRGate: {
		RoleQRAdmin:   {"access", "admin", "manage_gates", "view_logs", "manage_devices"},
		RoleQRScanner: {"access", "scan", "validate", "open_gate"},
		RoleHomeowner: {"access", "resident_access"},
	},
}

// serviceFallback is handed out when a role has no row in the service table.
var serviceFallback = []string{"guest"}

// communityAuthPermissions applies to every non-super-admin role.
var communityAuthPermissions = []string{"access", "view_profile", "update_profile"}

// App-scoped role tables, consulted when a user carries an explicit app role
// for the service being resolved. The permission lists mirror the global
// tables so an app-level "admin" is exactly as capable as the corresponding
// global role within that one app.
var appRolePermissions = map[string]map[string][]string{
	AppARC: {
		"admin":    servicePermissions[ServiceARC][RoleARCAdmin],
		"reviewer": servicePermissions[ServiceARC][RoleARCReviewer],
		"owner":    servicePermissions[ServiceARC][RoleHomeowner],
	},
	AppQR: {
		"admin":   servicePermissions[ServiceQRGate][RoleQRAdmin],
		"scanner": servicePermissions[ServiceQRGate][RoleQRScanner],
		"owner":   servicePermissions[ServiceQRGate][RoleHomeowner],
		"guest":   {"guest"},
	},
}

// serviceApp links a service name to its app-role namespace.
var serviceApp = map[string]string{
	ServiceARC:    AppARC,
	ServiceQRGate: AppQR,
}

// ResolvePermissions derives the permission set for a user's global role and
// app-role map within one service. Pure: depends only on its inputs.
//
// Resolution order: super admin overrides everything; then, for a service
// with an app-role namespace, an explicit app role for that app takes
// precedence over the global role; finally the service's global-role table
// applies, with a coarse default table for unknown services.
func ResolvePermissions(role GlobalRole, appRoles map[string]string, service string) PermissionSet {
	role = NormalizeRole(string(role))
	if role == RoleSuperAdmin {
		return NewPermissionSet(superAdminPermissions...)
	}

	if app, ok := serviceApp[service]; ok {
		if assigned, ok := appRoles[app]; ok {
			if perms, ok := appRolePermissions[app][assigned]; ok {
				return NewPermissionSet(perms...)
			}
		}
	}

	if table, ok := servicePermissions[service]; ok {
		if perms, ok := table[role]; ok {
			return NewPermissionSet(perms...)
		}
		return NewPermissionSet(serviceFallback...)
	}

	if service == ServiceCommunityAuth {
		return NewPermissionSet(communityAuthPermissions...)
	}

	return defaultPermissions(role)
}

// defaultPermissions keys only on the coarse role class and covers services
// this broker has no table for.
func defaultPermissions(role GlobalRole) PermissionSet {
	switch role {
	case RoleGuest:
		return NewPermissionSet("guest")
	case RoleHomeowner:
		return NewPermissionSet("access", "user")
	default:
		return NewPermissionSet("access")
	}
}
