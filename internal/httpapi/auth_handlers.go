package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"communityauth.org/internal/auth"
	"communityauth.org/internal/obs"
)

type loginRequest struct {
	SessionToken string `json:"session_token"`
}

type sessionResponse struct {
	User   auth.User      `json:"user"`
	Tokens auth.TokenPair `json:"tokens"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.SessionToken) == "" {
		writeError(w, r, http.StatusBadRequest, "session_token is required")
		return
	}

	identity, err := a.verifier.Verify(r.Context(), req.SessionToken)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	user, pair, err := a.svc.Login(r.Context(), identity, requestMeta(r))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	obs.TokenIssued("access")
	obs.TokenIssued("refresh")
	writeJSON(w, http.StatusOK, sessionResponse{User: user, Tokens: pair})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, r, http.StatusBadRequest, "refresh_token is required")
		return
	}

	user, pair, err := a.svc.Refresh(r.Context(), req.RefreshToken, requestMeta(r))
	if err != nil {
		if s := validationFailureReasonIfToken(err); s != "" {
			obs.TokenValidationFailed(s)
		}
		handleDomainError(w, r, err)
		return
	}
	obs.TokenIssued("access")
	obs.TokenIssued("refresh")
	writeJSON(w, http.StatusOK, sessionResponse{User: user, Tokens: pair})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	claims, ok := currentClaims(w, r)
	if !ok {
		return
	}
	a.svc.Logout(r.Context(), claims.UserID, requestMeta(r))
	writeJSON(w, http.StatusOK, map[string]any{"status": "logged_out"})
}

// handleProfile returns the claims snapshot plus the caller's permissions in
// this service, without a database round trip for the identity itself.
func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	claims, ok := currentClaims(w, r)
	if !ok {
		return
	}
	perms, _, err := a.svc.PermissionsFor(r.Context(), claims.UserID, auth.ServiceCommunityAuth)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":     claims.UserID,
		"external_id": claims.ExternalID,
		"email":       claims.Email,
		"full_name":   claims.FullName,
		"role":        claims.Role,
		"unit_number": claims.UnitNumber,
		"is_active":   claims.IsActive,
		"permissions": perms.List(),
	})
}

func validationFailureReasonIfToken(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return "expired"
	case errors.Is(err, auth.ErrWrongTokenType):
		return "wrong_type"
	case errors.Is(err, auth.ErrTokenMalformed):
		return "malformed"
	default:
		return ""
	}
}
