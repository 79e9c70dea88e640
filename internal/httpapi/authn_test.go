package httpapi

import (
	"net/http"
	"testing"
	"time"

	"communityauth.org/internal/auth"
)

func TestPublicPathsSkipAuth(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/healthz", "/readyz", "/v1/info"} {
		rec := env.do(t, http.MethodGet, path, "", "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestProtectedPathRejectsBadTokens(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/users/me", "", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d, want 401", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/v1/users/me", "", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token status = %d, want 401", rec.Code)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.loginUser(t)

	past := time.Now().Add(-48 * time.Hour)
	shortLived, err := auth.NewTokenService("handler-test-secret",
		auth.WithAccessTTL(time.Hour),
		auth.WithTokenClock(func() time.Time { return past }),
	)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	token, _, err := shortLived.IssueAccess(user)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	rec := env.do(t, http.MethodGet, "/v1/users/me", "", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestDeactivatedClaimRejected(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.loginUser(t)
	user.IsActive = false
	token, _, err := env.tokens.IssueAccess(user)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	rec := env.do(t, http.MethodGet, "/v1/users/me", "", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestServiceSurfaceRequiresServiceToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/service/validate-token", `{"token":"x","service":"arc"}`, "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing service token status = %d, want 401", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/v1/service/validate-token", `{"token":"x","service":"arc"}`, "",
		map[string]string{"X-Service-Token": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong service token status = %d, want 401", rec.Code)
	}

	// a user bearer token is not a substitute for the service token
	_, bearerToken := env.loginUser(t)
	rec = env.do(t, http.MethodPost, "/v1/service/validate-token", `{"token":"x","service":"arc"}`, bearerToken, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bearer-on-service status = %d, want 401", rec.Code)
	}
}

func TestAdminRouteForbiddenForHomeowner(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.loginUser(t)

	rec := env.do(t, http.MethodGet, "/v1/users", "", token, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer   abc  ", "abc", true},
		{"", "", false},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
	}
	for _, tc := range cases {
		got, err := extractBearerToken(tc.header)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("extractBearerToken(%q) = %q, %v", tc.header, got, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("extractBearerToken(%q) expected error", tc.header)
		}
	}
}
