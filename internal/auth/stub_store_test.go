package auth

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	mu       sync.Mutex
	seq      int
	users    map[string]User
	appRoles map[string]map[string]string
	failWith error
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]User),
		appRoles: make(map[string]map[string]string),
	}
}

func (m *memStore) CreateUser(_ context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return User{}, m.failWith
	}
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return User{}, fmt.Errorf("%w: duplicate email", ErrConflict)
		}
	}
	m.seq++
	u.ID = fmt.Sprintf("user-%d", m.seq)
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID] = u
	return u, nil
}

func (m *memStore) UserByID(_ context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return User{}, m.failWith
	}
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *memStore) UserByExternalID(_ context.Context, externalID string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return User{}, m.failWith
	}
	for _, u := range m.users {
		if u.ExternalID == externalID {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *memStore) UserByEmail(_ context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *memStore) ListActiveUsers(_ context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []User
	for _, u := range m.users {
		if u.IsActive {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) UpdateUser(_ context.Context, id string, upd UserUpdate) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return User{}, m.failWith
	}
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.FullName != nil {
		u.FullName = *upd.FullName
	}
	if upd.UnitNumber != nil {
		u.UnitNumber = *upd.UnitNumber
	}
	if upd.PhoneNumber != nil {
		u.PhoneNumber = *upd.PhoneNumber
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	if upd.LastLogin != nil {
		t := *upd.LastLogin
		u.LastLogin = &t
	}
	u.UpdatedAt = time.Now().UTC()
	m.users[id] = u
	return u, nil
}

func (m *memStore) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	delete(m.appRoles, id)
	return nil
}

func (m *memStore) SetAppRole(_ context.Context, userID, app, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appRoles[userID] == nil {
		m.appRoles[userID] = make(map[string]string)
	}
	m.appRoles[userID][app] = role
	return nil
}

func (m *memStore) RemoveAppRole(_ context.Context, userID, app string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.appRoles[userID], app)
	return nil
}

func (m *memStore) AppRolesForUser(_ context.Context, userID string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.appRoles[userID]))
	for app, role := range m.appRoles[userID] {
		out[app] = role
	}
	return out, nil
}
