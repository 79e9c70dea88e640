package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"communityauth.org/internal/auth"
	"communityauth.org/internal/ids"
)

const userColumns = `id, external_id, email, full_name, unit_number, phone_number, role, is_active, created_at, updated_at, last_login`

func scanUser(row interface{ Scan(...any) error }) (auth.User, error) {
	var (
		u          auth.User
		role       string
		unitNumber sql.NullString
		phone      sql.NullString
		lastLogin  sql.NullTime
	)
	err := row.Scan(&u.ID, &u.ExternalID, &u.Email, &u.FullName, &unitNumber, &phone, &role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt, &lastLogin)
	if err != nil {
		return auth.User{}, err
	}
	u.UnitNumber = unitNumber.String
	u.PhoneNumber = phone.String
	u.Role = auth.NormalizeRole(role)
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, u auth.User) (auth.User, error) {
	if s.db == nil {
		return auth.User{}, errors.New("database connection unavailable")
	}
	id := ids.New()
	row := s.db.QueryRowContext(ctx, `
		insert into users (id, external_id, email, full_name, unit_number, phone_number, role, is_active, last_login)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		returning `+userColumns+`
	`, id, u.ExternalID, u.Email, u.FullName, nullIfEmpty(u.UnitNumber), nullIfEmpty(u.PhoneNumber),
		string(auth.NormalizeRole(string(u.Role))), u.IsActive, u.LastLogin)
	created, err := scanUser(row)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.User{}, fmt.Errorf("%w: user already exists", auth.ErrConflict)
		}
		return auth.User{}, err
	}
	return created, nil
}

func (s *Store) UserByID(ctx context.Context, id string) (auth.User, error) {
	return s.userWhere(ctx, "id = $1", id)
}

func (s *Store) UserByExternalID(ctx context.Context, externalID string) (auth.User, error) {
	return s.userWhere(ctx, "external_id = $1", externalID)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (auth.User, error) {
	return s.userWhere(ctx, "email = $1", email)
}

func (s *Store) userWhere(ctx context.Context, where string, arg any) (auth.User, error) {
	if s.db == nil {
		return auth.User{}, errors.New("database connection unavailable")
	}
	row := s.db.QueryRowContext(ctx, `select `+userColumns+` from users where `+where, arg)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.User{}, err
	}
	return u, nil
}

func (s *Store) ListActiveUsers(ctx context.Context) ([]auth.User, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+userColumns+`
		from users
		where is_active
		order by created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []auth.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, upd auth.UserUpdate) (auth.User, error) {
	if s.db == nil {
		return auth.User{}, errors.New("database connection unavailable")
	}

	sets := []string{"updated_at = now()"}
	args := []any{id}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if upd.Email != nil {
		add("email", *upd.Email)
	}
	if upd.FullName != nil {
		add("full_name", *upd.FullName)
	}
	if upd.UnitNumber != nil {
		add("unit_number", nullIfEmpty(*upd.UnitNumber))
	}
	if upd.PhoneNumber != nil {
		add("phone_number", nullIfEmpty(*upd.PhoneNumber))
	}
	if upd.Role != nil {
		add("role", string(*upd.Role))
	}
	if upd.IsActive != nil {
		add("is_active", *upd.IsActive)
	}
	if upd.LastLogin != nil {
		add("last_login", *upd.LastLogin)
	}

	row := s.db.QueryRowContext(ctx, `
		update users
		set `+strings.Join(sets, ", ")+`
		where id = $1
		returning `+userColumns,
		args...)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, auth.ErrNotFound
	}
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.User{}, fmt.Errorf("%w: email already in use", auth.ErrConflict)
		}
		return auth.User{}, err
	}
	return u, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `delete from users where id = $1`, id)
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
