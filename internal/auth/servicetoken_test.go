package auth

import (
	"errors"
	"testing"
)

func TestServiceTokenAuthenticator(t *testing.T) {
	authn := NewServiceTokenAuthenticator("shared-secret")

	if err := authn.Authenticate("shared-secret"); err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
	for _, bad := range []string{"", "wrong", "shared-secret ", "SHARED-SECRET"} {
		if err := authn.Authenticate(bad); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("Authenticate(%q) = %v, want ErrUnauthorized", bad, err)
		}
	}
}

func TestServiceTokenAuthenticatorDisabledWhenUnconfigured(t *testing.T) {
	authn := NewServiceTokenAuthenticator("")
	if err := authn.Authenticate(""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("empty secret must fail closed, got %v", err)
	}
	if err := authn.Authenticate("anything"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("empty secret must fail closed, got %v", err)
	}
}
