package auth

import "context"

// Store describes the persistence operations the auth service requires. The
// database is an external collaborator; every call is bounded by the caller's
// context.
type Store interface {
	CreateUser(ctx context.Context, u User) (User, error)
	UserByID(ctx context.Context, id string) (User, error)
	UserByExternalID(ctx context.Context, externalID string) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
	ListActiveUsers(ctx context.Context) ([]User, error)
	UpdateUser(ctx context.Context, id string, upd UserUpdate) (User, error)
	DeleteUser(ctx context.Context, id string) error

	SetAppRole(ctx context.Context, userID, app, role string) error
	RemoveAppRole(ctx context.Context, userID, app string) error
	AppRolesForUser(ctx context.Context, userID string) (map[string]string, error)
}
