package auth

import (
	"crypto/subtle"
	"strings"
)

// ServiceTokenAuthenticator gates machine-to-machine calls with a single
// shared secret. No rotation, no per-service secrets.
type ServiceTokenAuthenticator struct {
	secret []byte
}

// NewServiceTokenAuthenticator wraps the configured shared secret. An empty
// secret disables service authentication: every check fails.
func NewServiceTokenAuthenticator(secret string) *ServiceTokenAuthenticator {
	return &ServiceTokenAuthenticator{secret: []byte(strings.TrimSpace(secret))}
}

// Authenticate compares the presented token with the configured secret in
// constant time. The match is exact; no normalization of the presented value.
func (a *ServiceTokenAuthenticator) Authenticate(presented string) error {
	if len(a.secret) == 0 || presented == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare(a.secret, []byte(presented)) != 1 {
		return ErrUnauthorized
	}
	return nil
}
