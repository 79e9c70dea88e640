package idp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"communityauth.org/internal/auth"
)

func TestVerifyReturnsPrimaryEmailAndPhone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/sessions/verify" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test" {
			t.Errorf("authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"user_id": "ext_abc123",
			"first_name": "Ana",
			"last_name": "Lima",
			"email_addresses": [
				{"id": "em_2", "email_address": "old@example.com"},
				{"id": "em_1", "email_address": "ana@example.com"}
			],
			"primary_email_address_id": "em_1",
			"phone_numbers": [
				{"id": "ph_1", "phone_number": "+15550001111"},
				{"id": "ph_2", "phone_number": "+15550002222"}
			],
			"primary_phone_number_id": "ph_2"
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test", time.Second)
	identity, err := client.Verify(context.Background(), "sess_token")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if identity.ExternalID != "ext_abc123" {
		t.Errorf("external id = %q", identity.ExternalID)
	}
	if identity.Email != "ana@example.com" {
		t.Errorf("email = %q, want primary", identity.Email)
	}
	if identity.FullName != "Ana Lima" {
		t.Errorf("full name = %q", identity.FullName)
	}
	if identity.PhoneNumber != "+15550002222" {
		t.Errorf("phone = %q, want primary", identity.PhoneNumber)
	}
}

func TestVerifyFallsBackToFirstEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{
			"user_id": "ext_1",
			"first_name": "B",
			"last_name": "C",
			"email_addresses": [{"id": "em_1", "email_address": "b@example.com"}],
			"primary_email_address_id": "em_missing"
		}`))
	}))
	defer srv.Close()

	identity, err := NewClient(srv.URL, "sk", time.Second).Verify(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if identity.Email != "b@example.com" {
		t.Errorf("email = %q", identity.Email)
	}
}

func TestVerifyRejectedToken(t *testing.T) {
	for _, status := range []int{401, 403, 404, 422} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))
		_, err := NewClient(srv.URL, "sk", time.Second).Verify(context.Background(), "tok")
		srv.Close()
		if !errors.Is(err, auth.ErrUnauthorized) {
			t.Errorf("status %d: err = %v, want ErrUnauthorized", status, err)
		}
	}
}

func TestVerifyProviderOutage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "sk", time.Second).Verify(context.Background(), "tok")
	if !errors.Is(err, auth.ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
}

func TestVerifyUnreachableProvider(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "sk", 200*time.Millisecond)
	_, err := client.Verify(context.Background(), "tok")
	if !errors.Is(err, auth.ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
}

func TestVerifyEmptyToken(t *testing.T) {
	client := NewClient("http://example.invalid", "sk", time.Second)
	_, err := client.Verify(context.Background(), "  ")
	if !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}
