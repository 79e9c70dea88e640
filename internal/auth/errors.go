package auth

import "errors"

var (
	ErrNotFound     = errors.New("auth: not found")
	ErrConflict     = errors.New("auth: resource conflict")
	ErrInvalidInput = errors.New("auth: invalid input")
	ErrUnauthorized = errors.New("auth: unauthorized")
	ErrUpstream     = errors.New("auth: upstream unavailable")

	// ErrInvalidIdentity indicates the external identity handed to Exchange
	// was malformed; no writes are performed in that case.
	ErrInvalidIdentity = errors.New("auth: invalid external identity")
)
