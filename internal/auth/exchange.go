package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Exchange maps a verified external identity onto a local user, creating the
// user on first sight. Profile fields (email, full name, phone) follow the
// identity provider on every call; role and active status are local state and
// are never overwritten here. Invalid identities are rejected before any
// store access.
func (s *Service) Exchange(ctx context.Context, identity ExternalIdentity) (User, bool, error) {
	if err := identity.Validate(); err != nil {
		return User{}, false, err
	}
	email := strings.TrimSpace(identity.Email)
	fullName := strings.TrimSpace(identity.FullName)
	phone := strings.TrimSpace(identity.PhoneNumber)
	now := s.now().UTC()

	existing, err := s.store.UserByExternalID(ctx, identity.ExternalID)
	switch {
	case err == nil:
		upd := UserUpdate{LastLogin: &now}
		if existing.Email != email {
			upd.Email = &email
		}
		if existing.FullName != fullName {
			upd.FullName = &fullName
		}
		if phone != "" && existing.PhoneNumber != phone {
			upd.PhoneNumber = &phone
		}
		updated, err := s.store.UpdateUser(ctx, existing.ID, upd)
		if err != nil {
			return User{}, false, s.storeErr("update user on login", err)
		}
		return updated, false, nil
	case errors.Is(err, ErrNotFound):
		// fall through to create
	default:
		return User{}, false, s.storeErr("lookup user by external id", err)
	}

	role := RoleHomeowner
	if _, ok := s.adminEmails[email]; ok {
		role = RoleSuperAdmin
	}
	created, err := s.store.CreateUser(ctx, User{
		ExternalID:  identity.ExternalID,
		Email:       email,
		FullName:    fullName,
		PhoneNumber: phone,
		Role:        role,
		IsActive:    true,
		LastLogin:   &now,
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return User{}, false, fmt.Errorf("%w: email %s already registered", ErrConflict, email)
		}
		return User{}, false, s.storeErr("create user", err)
	}
	return created, true, nil
}
