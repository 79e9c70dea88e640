package pg

import (
	"context"
	"errors"
	"fmt"

	"communityauth.org/internal/auth"
	"communityauth.org/internal/ids"
)

func (s *Store) SetAppRole(ctx context.Context, userID, app, role string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	_, err := s.db.ExecContext(ctx, `
		insert into user_app_roles (id, user_id, app_name, role)
		values ($1, $2, $3, $4)
		on conflict (user_id, app_name) do update
		set role = excluded.role, updated_at = now()
	`, ids.New(), userID, app, role)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return fmt.Errorf("%w: user does not exist", auth.ErrNotFound)
		}
		return err
	}
	return nil
}

func (s *Store) RemoveAppRole(ctx context.Context, userID, app string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `
		delete from user_app_roles
		where user_id = $1 and app_name = $2
	`, userID, app)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *Store) AppRolesForUser(ctx context.Context, userID string) (map[string]string, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select app_name, role
		from user_app_roles
		where user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := map[string]string{}
	for rows.Next() {
		var app, role string
		if err := rows.Scan(&app, &role); err != nil {
			return nil, err
		}
		roles[app] = role
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}
