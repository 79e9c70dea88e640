package httpapi

import (
	"net/http"
	"strings"

	"communityauth.org/internal/auth"
)

// handleAvailableRoles lists the role catalog. Any authenticated user may
// read it.
func (a *API) handleAvailableRoles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := currentClaims(w, r); !ok {
		return
	}
	appRoles := map[string][]string{}
	for _, app := range []string{auth.AppARC, auth.AppQR} {
		if roles, ok := auth.AppRoleNames(app); ok {
			appRoles[app] = roles
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"global_roles": auth.RoleNames(),
		"app_roles":    appRoles,
	})
}

type assignRoleRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Reason string `json:"reason"`
}

func (a *API) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	claims, ok := a.requireAdmin(w, r)
	if !ok {
		return
	}
	var req assignRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, r, http.StatusBadRequest, "user_id is required")
		return
	}
	user, err := a.svc.AssignGlobalRole(r.Context(), claims.UserID, req.UserID, req.Role, req.Reason, requestMeta(r))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleRoleStatistics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	stats, err := a.svc.RoleStatistics(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"role_counts": stats})
}

// handleUserPermissions answers GET /v1/roles/users/{id}/permissions?service=…
// Admins may query anyone; everyone else only themselves.
func (a *API) handleUserPermissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	claims, ok := currentClaims(w, r)
	if !ok {
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1/roles/users/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "permissions" || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	userID := parts[0]
	if userID != claims.UserID && !auth.IsAdmin(r.Context()) {
		writeError(w, r, http.StatusForbidden, "admin privileges required")
		return
	}
	service := r.URL.Query().Get("service")
	if service == "" {
		service = auth.ServiceCommunityAuth
	}

	perms, user, err := a.svc.PermissionsFor(r.Context(), userID, service)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":     user.ID,
		"role":        user.Role,
		"service":     service,
		"permissions": perms.List(),
	})
}
