package auth

import (
	"strings"
	"time"
)

// User is one person known to the community. ExternalID is assigned by the
// identity provider on first login and is empty until then.
type User struct {
	ID          string     `json:"id"`
	ExternalID  string     `json:"external_id"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name"`
	UnitNumber  string     `json:"unit_number,omitempty"`
	PhoneNumber string     `json:"phone_number,omitempty"`
	Role        GlobalRole `json:"role"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
}

// ExternalIdentity is a verified identity record handed over by the identity
// provider integration. Verification happens before this struct exists.
type ExternalIdentity struct {
	ExternalID  string
	Email       string
	FullName    string
	PhoneNumber string
}

// Validate reports whether the identity carries the fields Exchange needs.
func (id ExternalIdentity) Validate() error {
	if strings.TrimSpace(id.ExternalID) == "" {
		return ErrInvalidIdentity
	}
	email := strings.TrimSpace(id.Email)
	if email == "" || !strings.Contains(email, "@") {
		return ErrInvalidIdentity
	}
	if strings.TrimSpace(id.FullName) == "" {
		return ErrInvalidIdentity
	}
	return nil
}

// UserUpdate carries optional field changes; nil means leave unchanged.
type UserUpdate struct {
	Email       *string
	FullName    *string
	UnitNumber  *string
	PhoneNumber *string
	Role        *GlobalRole
	IsActive    *bool
	LastLogin   *time.Time
}

// RequestMeta captures request attribution recorded alongside audit entries.
type RequestMeta struct {
	IP        string
	UserAgent string
}
