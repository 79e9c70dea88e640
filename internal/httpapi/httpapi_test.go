package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"communityauth.org/internal/auth"
)

// fakeStore is an in-memory auth.Store for handler tests.
type fakeStore struct {
	mu       sync.Mutex
	seq      int
	users    map[string]auth.User
	appRoles map[string]map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[string]auth.User),
		appRoles: make(map[string]map[string]string),
	}
}

func (f *fakeStore) CreateUser(_ context.Context, u auth.User) (auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return auth.User{}, auth.ErrConflict
		}
	}
	f.seq++
	u.ID = fmt.Sprintf("user-%d", f.seq)
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeStore) UserByID(_ context.Context, id string) (auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return auth.User{}, auth.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) UserByExternalID(_ context.Context, externalID string) (auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ExternalID == externalID {
			return u, nil
		}
	}
	return auth.User{}, auth.ErrNotFound
}

func (f *fakeStore) UserByEmail(_ context.Context, email string) (auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return auth.User{}, auth.ErrNotFound
}

func (f *fakeStore) ListActiveUsers(_ context.Context) ([]auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []auth.User
	for _, u := range f.users {
		if u.IsActive {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) UpdateUser(_ context.Context, id string, upd auth.UserUpdate) (auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return auth.User{}, auth.ErrNotFound
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
	f.users[id] = u
	return u, nil
}

func (f *fakeStore) DeleteUser(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return auth.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeStore) SetAppRole(_ context.Context, userID, app, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appRoles[userID] == nil {
		f.appRoles[userID] = make(map[string]string)
	}
	f.appRoles[userID][app] = role
	return nil
}

func (f *fakeStore) RemoveAppRole(_ context.Context, userID, app string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.appRoles[userID], app)
	return nil
}

func (f *fakeStore) AppRolesForUser(_ context.Context, userID string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.appRoles[userID]))
	for app, role := range f.appRoles[userID] {
		out[app] = role
	}
	return out, nil
}

// fakeVerifier returns a fixed identity, or an error.
type fakeVerifier struct {
	identity auth.ExternalIdentity
	err      error
}

func (f *fakeVerifier) Verify(context.Context, string) (auth.ExternalIdentity, error) {
	if f.err != nil {
		return auth.ExternalIdentity{}, f.err
	}
	return f.identity, nil
}

const testServiceToken = "svc-shared-secret"

type testEnv struct {
	api      *API
	handler  http.Handler
	store    *fakeStore
	svc      *auth.Service
	tokens   *auth.TokenService
	verifier *fakeVerifier
}

func newTestEnv(t *testing.T, opts ...auth.ServiceOption) *testEnv {
	t.Helper()
	store := newFakeStore()
	tokens, err := auth.NewTokenService("handler-test-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	svc := auth.NewService(store, tokens, nil, opts...)
	verifier := &fakeVerifier{identity: auth.ExternalIdentity{
		ExternalID: "ext_abc",
		Email:      "ana@example.com",
		FullName:   "Ana Lima",
	}}
	api := New(svc, tokens, verifier, auth.NewServiceTokenAuthenticator(testServiceToken), ReadyProbe{}, "test", "Test Community")
	return &testEnv{
		api:      api,
		handler:  api.Handler(),
		store:    store,
		svc:      svc,
		tokens:   tokens,
		verifier: verifier,
	}
}

// loginUser exchanges the env's fake identity and returns the user plus a
// valid bearer token.
func (e *testEnv) loginUser(t *testing.T) (auth.User, string) {
	t.Helper()
	user, _, err := e.svc.Exchange(context.Background(), e.verifier.identity)
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	token, _, err := e.tokens.IssueAccess(user)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	return user, token
}

func (e *testEnv) do(t *testing.T, method, path, body, bearerToken string, extraHeaders map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+bearerToken)
	}
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}
