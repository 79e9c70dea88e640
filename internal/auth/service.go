package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"communityauth.org/internal/audit"
)

// Service coordinates login, token issuance and user administration on top
// of a Store. It is safe for concurrent use.
type Service struct {
	store       Store
	tokens      *TokenService
	recorder    *audit.Recorder
	adminEmails map[string]struct{}
	now         func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithAdminEmails sets the allow-list of addresses that receive the
// super_admin role on first login. Matching is exact and case sensitive.
func WithAdminEmails(emails []string) ServiceOption {
	return func(s *Service) {
		for _, e := range emails {
			if e != "" {
				s.adminEmails[e] = struct{}{}
			}
		}
	}
}

// WithClock overrides the time source. Only intended for tests.
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService wires the auth service. recorder may be nil to disable audit
// persistence.
func NewService(store Store, tokens *TokenService, recorder *audit.Recorder, opts ...ServiceOption) *Service {
	s := &Service{
		store:       store,
		tokens:      tokens,
		recorder:    recorder,
		adminEmails: make(map[string]struct{}),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TokenPair is one issued access/refresh token set.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Login exchanges a verified identity for a local user and a fresh token
// pair. Deactivated users cannot log in.
func (s *Service) Login(ctx context.Context, identity ExternalIdentity, meta RequestMeta) (User, TokenPair, error) {
	user, created, err := s.Exchange(ctx, identity)
	if err != nil {
		return User{}, TokenPair{}, err
	}
	if !user.IsActive {
		return User{}, TokenPair{}, fmt.Errorf("%w: account is deactivated", ErrUnauthorized)
	}
	pair, err := s.issuePair(user)
	if err != nil {
		return User{}, TokenPair{}, err
	}
	action := "login"
	if created {
		action = "first_login"
	}
	s.audit(ctx, user.ID, action, "session", meta, map[string]any{"email": user.Email})
	return user, pair, nil
}

// Refresh validates a refresh token and mints a new token pair. The user must
// still exist and be active; a vanished or deactivated user is treated as an
// invalid token rather than disclosed.
func (s *Service) Refresh(ctx context.Context, refreshToken string, meta RequestMeta) (User, TokenPair, error) {
	claims, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return User{}, TokenPair{}, err
	}
	user, err := s.store.UserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, TokenPair{}, fmt.Errorf("%w: refresh token subject no longer exists", ErrUnauthorized)
		}
		return User{}, TokenPair{}, s.storeErr("load user for refresh", err)
	}
	if !user.IsActive {
		return User{}, TokenPair{}, fmt.Errorf("%w: account is deactivated", ErrUnauthorized)
	}
	pair, err := s.issuePair(user)
	if err != nil {
		return User{}, TokenPair{}, err
	}
	s.audit(ctx, user.ID, "token_refresh", "session", meta, nil)
	return user, pair, nil
}

// Logout records the event. Tokens are stateless and stay valid until expiry,
// so this is audit-only.
func (s *Service) Logout(ctx context.Context, userID string, meta RequestMeta) {
	s.audit(ctx, userID, "logout", "session", meta, nil)
}

func (s *Service) issuePair(user User) (TokenPair, error) {
	access, accessExp, err := s.tokens.IssueAccess(user)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, refreshExp, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        "bearer",
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// UserByID loads one user.
func (s *Service) UserByID(ctx context.Context, id string) (User, error) {
	u, err := s.store.UserByID(ctx, id)
	if err != nil {
		return User{}, s.storeErr("load user", err)
	}
	return u, nil
}

// UserByExternalID loads one user by identity-provider id.
func (s *Service) UserByExternalID(ctx context.Context, externalID string) (User, error) {
	u, err := s.store.UserByExternalID(ctx, externalID)
	if err != nil {
		return User{}, s.storeErr("load user by external id", err)
	}
	return u, nil
}

// ListActiveUsers returns every active user.
func (s *Service) ListActiveUsers(ctx context.Context) ([]User, error) {
	users, err := s.store.ListActiveUsers(ctx)
	if err != nil {
		return nil, s.storeErr("list users", err)
	}
	return users, nil
}

// UpdateProfile applies self-service profile changes. Role and active status
// are not reachable through this path.
func (s *Service) UpdateProfile(ctx context.Context, userID string, upd UserUpdate, meta RequestMeta) (User, error) {
	upd.Role = nil
	upd.IsActive = nil
	upd.LastLogin = nil
	u, err := s.store.UpdateUser(ctx, userID, upd)
	if err != nil {
		return User{}, s.storeErr("update profile", err)
	}
	s.audit(ctx, userID, "profile_update", "user:"+userID, meta, nil)
	return u, nil
}

// AssignGlobalRole changes a user's global role. actorID is the admin making
// the change; reason is recorded in the audit trail.
func (s *Service) AssignGlobalRole(ctx context.Context, actorID, userID, rawRole, reason string, meta RequestMeta) (User, error) {
	role, err := ParseRole(rawRole)
	if err != nil {
		return User{}, err
	}
	current, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return User{}, s.storeErr("load user for role change", err)
	}
	if current.Role == role {
		return current, nil
	}
	updated, err := s.store.UpdateUser(ctx, userID, UserUpdate{Role: &role})
	if err != nil {
		return User{}, s.storeErr("assign role", err)
	}
	s.audit(ctx, actorID, "role_assign", "user:"+userID, meta, map[string]any{
		"old_role": string(current.Role),
		"new_role": string(role),
		"reason":   reason,
	})
	return updated, nil
}

// SetAppRole grants or replaces an application-scoped role.
func (s *Service) SetAppRole(ctx context.Context, actorID, userID, app, role string, meta RequestMeta) error {
	if err := ValidateAppRole(app, role); err != nil {
		return err
	}
	if _, err := s.store.UserByID(ctx, userID); err != nil {
		return s.storeErr("load user for app role", err)
	}
	if err := s.store.SetAppRole(ctx, userID, app, role); err != nil {
		return s.storeErr("set app role", err)
	}
	s.audit(ctx, actorID, "app_role_set", "user:"+userID, meta, map[string]any{
		"app":  app,
		"role": role,
	})
	return nil
}

// RemoveAppRole revokes an application-scoped role.
func (s *Service) RemoveAppRole(ctx context.Context, actorID, userID, app string, meta RequestMeta) error {
	if _, ok := appRoleVocabulary[app]; !ok {
		return fmt.Errorf("%w: unknown app %q", ErrInvalidInput, app)
	}
	if err := s.store.RemoveAppRole(ctx, userID, app); err != nil {
		return s.storeErr("remove app role", err)
	}
	s.audit(ctx, actorID, "app_role_remove", "user:"+userID, meta, map[string]any{"app": app})
	return nil
}

// SetActive activates or deactivates a user. Admins cannot deactivate
// themselves; that would strand the community without an administrator path
// back in.
func (s *Service) SetActive(ctx context.Context, actorID, userID string, active bool, meta RequestMeta) (User, error) {
	if !active && actorID == userID {
		return User{}, fmt.Errorf("%w: cannot deactivate your own account", ErrInvalidInput)
	}
	u, err := s.store.UpdateUser(ctx, userID, UserUpdate{IsActive: &active})
	if err != nil {
		return User{}, s.storeErr("set active", err)
	}
	action := "user_deactivate"
	if active {
		action = "user_activate"
	}
	s.audit(ctx, actorID, action, "user:"+userID, meta, nil)
	return u, nil
}

// DeleteUser removes a user permanently. The audit trail keeps the record of
// the deletion itself.
func (s *Service) DeleteUser(ctx context.Context, actorID, userID string, meta RequestMeta) error {
	if actorID == userID {
		return fmt.Errorf("%w: cannot delete your own account", ErrInvalidInput)
	}
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return s.storeErr("delete user", err)
	}
	s.audit(ctx, actorID, "user_delete", "user:"+userID, meta, nil)
	return nil
}

// Announce records a community-wide announcement. The audit trail is the
// durable record; delivery is out of band.
func (s *Service) Announce(ctx context.Context, actorID, title, message string, meta RequestMeta) {
	s.audit(ctx, actorID, "announcement", "community", meta, map[string]any{
		"title":   title,
		"message": message,
	})
}

// AppRolesForUser returns the user's app-scoped roles keyed by app name.
func (s *Service) AppRolesForUser(ctx context.Context, userID string) (map[string]string, error) {
	roles, err := s.store.AppRolesForUser(ctx, userID)
	if err != nil {
		return nil, s.storeErr("load app roles", err)
	}
	return roles, nil
}

// PermissionsFor resolves the user's effective permission set for a service.
// A deactivated user holds no permissions anywhere; resolution fails as
// unauthorized rather than returning a stale set.
func (s *Service) PermissionsFor(ctx context.Context, userID, service string) (PermissionSet, User, error) {
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, User{}, s.storeErr("load user for permissions", err)
	}
	if !user.IsActive {
		return nil, User{}, fmt.Errorf("%w: account is deactivated", ErrUnauthorized)
	}
	appRoles, err := s.store.AppRolesForUser(ctx, userID)
	if err != nil {
		return nil, User{}, s.storeErr("load app roles for permissions", err)
	}
	return ResolvePermissions(user.Role, appRoles, service), user, nil
}

// CheckPermissions reports whether the user holds every required permission
// for the service.
func (s *Service) CheckPermissions(ctx context.Context, userID, service string, required []string) (bool, PermissionSet, error) {
	perms, _, err := s.PermissionsFor(ctx, userID, service)
	if err != nil {
		return false, nil, err
	}
	return perms.HasAll(required), perms, nil
}

// RoleStatistics counts active users per global role.
func (s *Service) RoleStatistics(ctx context.Context) (map[string]int, error) {
	users, err := s.store.ListActiveUsers(ctx)
	if err != nil {
		return nil, s.storeErr("list users for statistics", err)
	}
	names := RoleNames()
	stats := make(map[string]int, len(names))
	for _, name := range names {
		stats[name] = 0
	}
	for _, u := range users {
		stats[string(NormalizeRole(string(u.Role)))]++
	}
	return stats, nil
}

// storeErr keeps taxonomy errors intact and wraps anything else as an
// upstream failure.
func (s *Service) storeErr(op string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrUnauthorized):
		return err
	default:
		return fmt.Errorf("%w: %s: %v", ErrUpstream, op, err)
	}
}

func (s *Service) audit(ctx context.Context, userID, action, resource string, meta RequestMeta, details map[string]any) {
	if s.recorder == nil {
		return
	}
	entry := audit.Entry{
		UserID:      userID,
		ServiceName: ServiceCommunityAuth,
		Action:      action,
		Resource:    resource,
		IPAddress:   meta.IP,
		UserAgent:   meta.UserAgent,
		CreatedAt:   s.now().UTC(),
	}
	if len(details) > 0 {
		if b, err := json.Marshal(details); err == nil {
			entry.Context = string(b)
		}
	}
	s.recorder.Record(ctx, entry)
}
