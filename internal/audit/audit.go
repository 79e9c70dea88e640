// Package audit records security-relevant actions in an append-only log.
// Recording is a first-class success-path side effect, but a failed write
// must never block the operation it was describing; it is surfaced as a
// warning instead.
package audit

import (
	"context"
	"time"

	"communityauth.org/internal/obs"
)

// Entry is one append-only audit record. UserID may be empty for actions
// without an attributable actor.
type Entry struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id,omitempty"`
	ServiceName string    `json:"service_name"`
	Action      string    `json:"action"`
	Resource    string    `json:"resource,omitempty"`
	IPAddress   string    `json:"ip_address,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	Context     string    `json:"context,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store appends immutable entries. Entries are never updated or deleted.
type Store interface {
	AppendAudit(ctx context.Context, entry Entry) error
}

// Recorder writes audit entries to a store and mirrors them to the
// structured log.
type Recorder struct {
	store Store
	now   func() time.Time
}

// NewRecorder builds a Recorder. A nil store degrades to log-only recording.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// WithClock overrides the time source. Only intended for tests.
func (r *Recorder) WithClock(fn func() time.Time) *Recorder {
	if fn != nil {
		r.now = fn
	}
	return r
}

// Record persists the entry and emits a log line. Store failures are logged
// as warnings and swallowed so the primary operation proceeds.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now().UTC()
	}
	if r.store != nil {
		if err := r.store.AppendAudit(ctx, entry); err != nil {
			obs.Warn("audit append failed", map[string]any{
				"action":  entry.Action,
				"service": entry.ServiceName,
				"error":   err.Error(),
			})
		}
	}
	logEntry := map[string]any{
		"ts":      entry.CreatedAt.Format(time.RFC3339Nano),
		"type":    "audit",
		"service": entry.ServiceName,
		"action":  entry.Action,
	}
	if entry.UserID != "" {
		logEntry["user_id"] = entry.UserID
	}
	if entry.Resource != "" {
		logEntry["resource"] = entry.Resource
	}
	if entry.Context != "" {
		logEntry["context"] = entry.Context
	}
	obs.LogEntry(logEntry)
}
