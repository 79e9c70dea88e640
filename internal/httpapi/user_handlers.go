package httpapi

import (
	"net/http"
	"strings"

	"communityauth.org/internal/auth"
)

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentClaims(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		user, err := a.svc.UserByID(r.Context(), claims.UserID)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodPut:
		var req struct {
			FullName    *string `json:"full_name"`
			UnitNumber  *string `json:"unit_number"`
			PhoneNumber *string `json:"phone_number"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if req.FullName == nil && req.UnitNumber == nil && req.PhoneNumber == nil {
			writeError(w, r, http.StatusBadRequest, "no fields to update")
			return
		}
		user, err := a.svc.UpdateProfile(r.Context(), claims.UserID, auth.UserUpdate{
			FullName:    req.FullName,
			UnitNumber:  req.UnitNumber,
			PhoneNumber: req.PhoneNumber,
		}, requestMeta(r))
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	users, err := a.svc.ListActiveUsers(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if users == nil {
		users = []auth.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"total": len(users),
	})
}

// handleUserByID covers /v1/users/{id} and its subresources:
//
//	GET    /v1/users/{id}
//	DELETE /v1/users/{id}
//	POST   /v1/users/{id}/activate
//	POST   /v1/users/{id}/deactivate
//	PUT    /v1/users/{id}/app-roles/{app}
//	DELETE /v1/users/{id}/app-roles/{app}
func (a *API) handleUserByID(w http.ResponseWriter, r *http.Request) {
	claims, ok := a.requireAdmin(w, r)
	if !ok {
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1/users/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "user id is required")
		return
	}
	parts := strings.Split(path, "/")
	userID := parts[0]

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			user, err := a.svc.UserByID(r.Context(), userID)
			if err != nil {
				handleDomainError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, user)
		case http.MethodDelete:
			if err := a.svc.DeleteUser(r.Context(), claims.UserID, userID, requestMeta(r)); err != nil {
				handleDomainError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
		}

	case len(parts) == 2 && (parts[1] == "activate" || parts[1] == "deactivate"):
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		user, err := a.svc.SetActive(r.Context(), claims.UserID, userID, parts[1] == "activate", requestMeta(r))
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)

	case len(parts) == 3 && parts[1] == "app-roles":
		app := parts[2]
		switch r.Method {
		case http.MethodPut:
			var req struct {
				Role string `json:"role"`
			}
			if err := decodeJSON(w, r, &req); err != nil {
				writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			if err := a.svc.SetAppRole(r.Context(), claims.UserID, userID, app, req.Role, requestMeta(r)); err != nil {
				handleDomainError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"user_id": userID,
				"app":     app,
				"role":    req.Role,
			})
		case http.MethodDelete:
			if err := a.svc.RemoveAppRole(r.Context(), claims.UserID, userID, app, requestMeta(r)); err != nil {
				handleDomainError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"status": "removed"})
		default:
			methodNotAllowed(w, r, http.MethodPut, http.MethodDelete)
		}

	default:
		http.NotFound(w, r)
	}
}
