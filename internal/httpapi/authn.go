package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"communityauth.org/internal/auth"
	"communityauth.org/internal/obs"
)

const (
	authHeader         = "Authorization"
	bearer             = "Bearer "
	serviceTokenHeader = "X-Service-Token"
)

var publicPaths = []string{
	"/v1/auth/login",
	"/v1/auth/refresh",
	"/v1/info",
	"/metrics",
	"/healthz",
	"/readyz",
	"/",
}

var servicePrefixes = []string{
	"/v1/service/",
}

// withAuth validates bearer tokens on user-facing routes and the shared
// service token on the service-to-service surface.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if isServicePath(r.URL.Path) {
			if err := a.serviceTokens.Authenticate(r.Header.Get(serviceTokenHeader)); err != nil {
				obs.TokenValidationFailed("service_token")
				writeError(w, r, http.StatusUnauthorized, "invalid service token")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}
		claims, err := a.tokens.ValidateAccess(token)
		if err != nil {
			obs.TokenValidationFailed(validationFailureReason(err))
			writeError(w, r, http.StatusUnauthorized, validationFailureMessage(err))
			return
		}
		if !claims.IsActive {
			writeError(w, r, http.StatusUnauthorized, "account is deactivated")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithClaims(r.Context(), claims)))
	})
}

// requireAdmin guards admin-only handlers. It assumes withAuth already ran.
func (a *API) requireAdmin(w http.ResponseWriter, r *http.Request) (*auth.AccessClaims, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	if !auth.IsAdmin(r.Context()) {
		writeError(w, r, http.StatusForbidden, "admin privileges required")
		return nil, false
	}
	return claims, true
}

func currentClaims(w http.ResponseWriter, r *http.Request) (*auth.AccessClaims, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	return claims, true
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func validationFailureReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return "expired"
	case errors.Is(err, auth.ErrWrongTokenType):
		return "wrong_type"
	default:
		return "malformed"
	}
}

func validationFailureMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, auth.ErrWrongTokenType):
		return "wrong token type"
	default:
		return "invalid token"
	}
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}

func isServicePath(path string) bool {
	for _, prefix := range servicePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
