// Package idp talks to the hosted identity provider that performs the actual
// credential verification. This service never sees passwords; it exchanges a
// provider session token for a verified identity.
package idp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"communityauth.org/internal/auth"
)

// Verifier turns a provider session token into a verified identity.
type Verifier interface {
	Verify(ctx context.Context, sessionToken string) (auth.ExternalIdentity, error)
}

// Client is the HTTP Verifier implementation.
type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

// NewClient builds a Client for the provider API. timeout bounds each
// verification round trip.
func NewClient(baseURL, secretKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		http:      &http.Client{Timeout: timeout},
	}
}

// verifyResponse mirrors the provider's session verification payload. Email
// and phone lists carry ids; the primary_* fields select the authoritative
// entry.
type verifyResponse struct {
	UserID         string `json:"user_id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	EmailAddresses []struct {
		ID           string `json:"id"`
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
	PrimaryEmailAddressID string `json:"primary_email_address_id"`
	PhoneNumbers          []struct {
		ID          string `json:"id"`
		PhoneNumber string `json:"phone_number"`
	} `json:"phone_numbers"`
	PrimaryPhoneNumberID string `json:"primary_phone_number_id"`
}

// Verify exchanges a session token for the identity it belongs to. Rejected
// or expired tokens come back as ErrUnauthorized; provider outages as
// ErrUpstream.
func (c *Client) Verify(ctx context.Context, sessionToken string) (auth.ExternalIdentity, error) {
	if strings.TrimSpace(sessionToken) == "" {
		return auth.ExternalIdentity{}, fmt.Errorf("%w: empty session token", auth.ErrUnauthorized)
	}

	body := strings.NewReader(fmt.Sprintf(`{"token":%q}`, sessionToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/sessions/verify", body)
	if err != nil {
		return auth.ExternalIdentity{}, fmt.Errorf("%w: build verify request: %v", auth.ErrUpstream, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return auth.ExternalIdentity{}, fmt.Errorf("%w: identity provider unreachable: %v", auth.ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// verified
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusNotFound,
		resp.StatusCode == http.StatusUnprocessableEntity:
		return auth.ExternalIdentity{}, fmt.Errorf("%w: session token rejected", auth.ErrUnauthorized)
	default:
		return auth.ExternalIdentity{}, fmt.Errorf("%w: identity provider returned %d", auth.ErrUpstream, resp.StatusCode)
	}

	var payload verifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return auth.ExternalIdentity{}, fmt.Errorf("%w: decode verify response: %v", auth.ErrUpstream, err)
	}
	return identityFromPayload(payload), nil
}

func identityFromPayload(p verifyResponse) auth.ExternalIdentity {
	identity := auth.ExternalIdentity{
		ExternalID: p.UserID,
		FullName:   strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName)),
	}
	for _, e := range p.EmailAddresses {
		if e.ID == p.PrimaryEmailAddressID {
			identity.Email = e.EmailAddress
			break
		}
	}
	if identity.Email == "" && len(p.EmailAddresses) > 0 {
		identity.Email = p.EmailAddresses[0].EmailAddress
	}
	for _, ph := range p.PhoneNumbers {
		if ph.ID == p.PrimaryPhoneNumberID {
			identity.PhoneNumber = ph.PhoneNumber
			break
		}
	}
	if identity.PhoneNumber == "" && len(p.PhoneNumbers) > 0 {
		identity.PhoneNumber = p.PhoneNumbers[0].PhoneNumber
	}
	return identity
}
