package pg

import (
	"context"
	"errors"

	"communityauth.org/internal/audit"
	"communityauth.org/internal/ids"
)

func (s *Store) AppendAudit(ctx context.Context, entry audit.Entry) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	id := entry.ID
	if id == "" {
		id = ids.New()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into audit_log (id, user_id, service_name, action, resource, ip_address, user_agent, context, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, id, nullIfEmpty(entry.UserID), entry.ServiceName, entry.Action,
		nullIfEmpty(entry.Resource), nullIfEmpty(entry.IPAddress),
		nullIfEmpty(entry.UserAgent), nullIfEmpty(entry.Context), entry.CreatedAt)
	return err
}
