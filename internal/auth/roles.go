package auth

import (
	"fmt"
	"sort"
	"strings"
)

// GlobalRole is a user's community-wide privilege level, independent of any
// one application.
type GlobalRole string

const (
	RoleSuperAdmin  GlobalRole = "super_admin"
	RoleHomeowner   GlobalRole = "homeowner"
	RoleGuest       GlobalRole = "guest"
	RoleARCAdmin    GlobalRole = "arc_admin"
	RoleARCReviewer GlobalRole = "arc_reviewer"
	RoleQRAdmin     GlobalRole = "qr_admin"
	RoleQRScanner   GlobalRole = "qr_scanner"
)

// Deprecated spellings still present in old rows and old tokens. They are
// rewritten to their canonical counterpart at every boundary so the rest of
// the system only ever compares canonical roles.
var legacyRoles = map[string]GlobalRole{
	"admin":    RoleSuperAdmin,
	"resident": RoleHomeowner,
	"staff":    RoleQRScanner,
}

var canonicalRoles = map[GlobalRole]struct{}{
	RoleSuperAdmin:  {},
	RoleHomeowner:   {},
	RoleGuest:       {},
	RoleARCAdmin:    {},
	RoleARCReviewer: {},
	RoleQRAdmin:     {},
	RoleQRScanner:   {},
}

// NormalizeRole maps raw role text, including legacy aliases, to a canonical
// role. Unrecognized input normalizes to RoleGuest so stale data can never
// grant more than guest access.
func NormalizeRole(raw string) GlobalRole {
	role := GlobalRole(strings.TrimSpace(strings.ToLower(raw)))
	if mapped, ok := legacyRoles[string(role)]; ok {
		return mapped
	}
	if _, ok := canonicalRoles[role]; ok {
		return role
	}
	return RoleGuest
}

// ParseRole is NormalizeRole with strict input validation: unknown text is an
// error rather than a guest downgrade. Used for administrator role-assignment
// requests where silent coercion is forbidden.
func ParseRole(raw string) (GlobalRole, error) {
	role := GlobalRole(strings.TrimSpace(strings.ToLower(raw)))
	if mapped, ok := legacyRoles[string(role)]; ok {
		return mapped, nil
	}
	if _, ok := canonicalRoles[role]; ok {
		return role, nil
	}
	return "", fmt.Errorf("%w: unknown role %q, valid roles: %s", ErrInvalidInput, raw, strings.Join(RoleNames(), ", "))
}

// RoleNames returns the canonical role vocabulary, sorted.
func RoleNames() []string {
	names := make([]string, 0, len(canonicalRoles))
	for r := range canonicalRoles {
		names = append(names, string(r))
	}
	sort.Strings(names)
	return names
}

// Application names with an app-scoped role vocabulary.
const (
	AppARC = "arc"
	AppQR  = "qr"
)

// appRoleVocabulary fixes the allowed role strings per application. Requests
// outside this table fail validation; they are never coerced to a default.
var appRoleVocabulary = map[string][]string{
	AppARC: {"admin", "owner", "reviewer"},
	AppQR:  {"admin", "guest", "owner", "scanner"},
}

// AppRoleNames returns the valid roles for app, or false for an unknown app.
func AppRoleNames(app string) ([]string, bool) {
	roles, ok := appRoleVocabulary[app]
	if !ok {
		return nil, false
	}
	out := make([]string, len(roles))
	copy(out, roles)
	return out, true
}

// ValidateAppRole checks an (app, role) pair against the fixed vocabulary.
// The returned error enumerates the valid roles for the app.
func ValidateAppRole(app, role string) error {
	app = strings.TrimSpace(strings.ToLower(app))
	role = strings.TrimSpace(strings.ToLower(role))
	roles, ok := appRoleVocabulary[app]
	if !ok {
		apps := make([]string, 0, len(appRoleVocabulary))
		for name := range appRoleVocabulary {
			apps = append(apps, name)
		}
		sort.Strings(apps)
		return fmt.Errorf("%w: unknown app %q, valid apps: %s", ErrInvalidInput, app, strings.Join(apps, ", "))
	}
	for _, valid := range roles {
		if role == valid {
			return nil
		}
	}
	return fmt.Errorf("%w: invalid role %q for app %q, valid roles: %s", ErrInvalidInput, role, app, strings.Join(roles, ", "))
}
