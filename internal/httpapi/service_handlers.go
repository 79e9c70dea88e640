package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"communityauth.org/internal/auth"
	"communityauth.org/internal/obs"
)

// Service-to-service surface. withAuth already checked X-Service-Token for
// everything under /v1/service/.

type validateTokenRequest struct {
	Token   string `json:"token"`
	Service string `json:"service"`
}

// handleServiceValidateToken lets a downstream service validate a user token
// and learn the user's permissions in one round trip.
func (a *API) handleServiceValidateToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req validateTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Service) == "" {
		writeError(w, r, http.StatusBadRequest, "service is required")
		return
	}

	claims, err := a.tokens.ValidateAccess(req.Token)
	if err != nil {
		obs.TokenValidationFailed(validationFailureReason(err))
		writeJSON(w, http.StatusOK, map[string]any{
			"valid": false,
			"error": validationFailureMessage(err),
		})
		return
	}

	// Claims are only a snapshot; the live user decides. A token for a
	// deactivated or deleted user is no longer valid.
	perms, user, err := a.svc.PermissionsFor(r.Context(), claims.UserID, req.Service)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			writeJSON(w, http.StatusOK, map[string]any{
				"valid": false,
				"error": "account is deactivated",
			})
			return
		}
		if errors.Is(err, auth.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]any{
				"valid": false,
				"error": "user no longer exists",
			})
			return
		}
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":       true,
		"user_id":     user.ID,
		"external_id": user.ExternalID,
		"email":       user.Email,
		"role":        user.Role,
		"is_active":   user.IsActive,
		"permissions": perms.List(),
	})
}

type serviceUserResponse struct {
	auth.User
	Service     string   `json:"service"`
	Permissions []string `json:"permissions"`
}

// handleServiceUser serves GET /v1/service/users/{id} and
// GET /v1/service/users/by-external-id/{externalID}. The optional
// ?service= parameter scopes the returned permission set.
func (a *API) handleServiceUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1/service/users/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "user id is required")
		return
	}
	parts := strings.Split(path, "/")

	var (
		user auth.User
		err  error
	)
	switch {
	case len(parts) == 1:
		user, err = a.svc.UserByID(r.Context(), parts[0])
	case len(parts) == 2 && parts[0] == "by-external-id" && parts[1] != "":
		user, err = a.svc.UserByExternalID(r.Context(), parts[1])
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	service := r.URL.Query().Get("service")
	if service == "" {
		service = auth.ServiceCommunityAuth
	}
	perms := []string{}
	if user.IsActive {
		set, _, err := a.svc.PermissionsFor(r.Context(), user.ID, service)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		perms = set.List()
	}
	writeJSON(w, http.StatusOK, serviceUserResponse{
		User:        user,
		Service:     service,
		Permissions: perms,
	})
}

type permissionsCheckRequest struct {
	UserID   string   `json:"user_id"`
	Service  string   `json:"service"`
	Required []string `json:"required_permissions"`
}

func (a *API) handleServicePermissionsCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req permissionsCheckRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Service) == "" {
		writeError(w, r, http.StatusBadRequest, "user_id and service are required")
		return
	}

	allowed, perms, err := a.svc.CheckPermissions(r.Context(), req.UserID, req.Service, req.Required)
	if err != nil {
		// A deactivated user is denied, not an error at this surface.
		if errors.Is(err, auth.ErrUnauthorized) {
			writeJSON(w, http.StatusOK, map[string]any{
				"allowed":     false,
				"user_id":     req.UserID,
				"service":     req.Service,
				"permissions": []string{},
			})
			return
		}
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"allowed":     allowed,
		"user_id":     req.UserID,
		"service":     req.Service,
		"permissions": perms.List(),
	})
}
