package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"seclock.org/internal/audit"
	"seclock.org/internal/auth"
	"seclock.org/internal/lock"
)

type testServer struct {
	handler http.Handler
	users   *auth.Memory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	trail := audit.NewInMemory()
	users := auth.NewInMemory(trail.ClearUser)
	tokens, err := auth.NewTokens("test-secret")
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	authSvc, err := auth.NewService(users, tokens, trail)
	if err != nil {
		t.Fatalf("auth.NewService: %v", err)
	}
	lockSvc, err := lock.NewService(lock.NewInMemory(trail))
	if err != nil {
		t.Fatalf("lock.NewService: %v", err)
	}
	api := New(authSvc, lockSvc, trail, ReadyProbe{}, "test")
	return &testServer{handler: api.Handler(), users: users}
}

// seedAdmin inserts an admin account and returns its login token.
func (s *testServer) seedAdmin(t *testing.T) string {
	t.Helper()
	hash, err := auth.HashPassword("root-pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	s.users.SeedUser(&auth.User{
		Login:        "root",
		Email:        "root@example.com",
		PasswordHash: hash,
		Privilege:    auth.PrivilegeAdmin,
	})
	resp := s.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"login": "root", "password": "root-pass",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("admin login: %d %s", resp.Code, resp.Body.String())
	}
	return s.token(t, resp)
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) token(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode token response: %v", err)
	}
	if payload.Token == "" {
		t.Fatalf("missing token in response: %s", resp.Body.String())
	}
	return payload.Token
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"login": "alice", "password": "s3cret", "email": "alice@example.com",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", resp.Code, resp.Body.String())
	}
	first := s.token(t, resp)

	resp = s.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"login": "alice", "password": "s3cret",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("login: %d %s", resp.Code, resp.Body.String())
	}
	second := s.token(t, resp)
	if first == second {
		t.Fatal("login must rotate the token")
	}

	// The registration token is now revoked: 403, not 401.
	if resp = s.do(t, http.MethodGet, "/auth/verify", first, nil); resp.Code != http.StatusForbidden {
		t.Fatalf("verify stale token: %d %s", resp.Code, resp.Body.String())
	}
	resp = s.do(t, http.MethodGet, "/auth/verify", second, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("verify fresh token: %d %s", resp.Code, resp.Body.String())
	}
	var verify struct {
		Valid    bool `json:"valid"`
		Identity struct {
			Login     string `json:"login"`
			Privilege string `json:"privilege"`
		} `json:"identity"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &verify); err != nil {
		t.Fatalf("decode verify: %v", err)
	}
	if !verify.Valid || verify.Identity.Login != "alice" || verify.Identity.Privilege != auth.PrivilegeDefault {
		t.Fatalf("unexpected verify payload: %s", resp.Body.String())
	}

	// Validate always answers 200 with a boolean verdict.
	resp = s.do(t, http.MethodPost, "/auth/validate", first, nil)
	if resp.Code != http.StatusOK || !bytes.Contains(resp.Body.Bytes(), []byte(`"valid":false`)) {
		t.Fatalf("validate stale token: %d %s", resp.Code, resp.Body.String())
	}
	resp = s.do(t, http.MethodPost, "/auth/validate", second, nil)
	if resp.Code != http.StatusOK || !bytes.Contains(resp.Body.Bytes(), []byte(`"valid":true`)) {
		t.Fatalf("validate fresh token: %d %s", resp.Code, resp.Body.String())
	}

	resp = s.do(t, http.MethodPost, "/auth/refresh", second, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("refresh: %d %s", resp.Code, resp.Body.String())
	}
	third := s.token(t, resp)
	if third == second {
		t.Fatal("refresh must rotate the token")
	}
	if resp = s.do(t, http.MethodGet, "/auth/verify", second, nil); resp.Code != http.StatusForbidden {
		t.Fatalf("verify pre-refresh token: %d %s", resp.Code, resp.Body.String())
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"login": "alice", "password": "s3cret", "email": "alice@example.com",
	})

	resp := s.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"login": "alice", "password": "wrong",
	})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: %d %s", resp.Code, resp.Body.String())
	}
	resp = s.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"login": "nobody", "password": "wrong",
	})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("unknown login: %d %s", resp.Code, resp.Body.String())
	}
}

func TestLockLifecycle(t *testing.T) {
	s := newTestServer(t)
	admin := s.seedAdmin(t)

	resp := s.do(t, http.MethodPost, "/locks", admin, map[string]any{
		"id": "front-door", "owner_privilege": "default",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create lock: %d %s", resp.Code, resp.Body.String())
	}
	var created lock.Lock
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode lock: %v", err)
	}
	if created.IsOpen {
		t.Fatal("new lock must start closed")
	}
	if loc := resp.Header().Get("Location"); loc != "/locks/front-door" {
		t.Fatalf("unexpected Location: %q", loc)
	}

	resp = s.do(t, http.MethodPut, "/locks/front-door", admin, map[string]any{"is_open": true})
	if resp.Code != http.StatusOK {
		t.Fatalf("open lock: %d %s", resp.Code, resp.Body.String())
	}
	var opened lock.Lock
	if err := json.Unmarshal(resp.Body.Bytes(), &opened); err != nil {
		t.Fatalf("decode lock: %v", err)
	}
	if !opened.IsOpen {
		t.Fatal("expected lock open")
	}

	resp = s.do(t, http.MethodGet, "/logs/front-door", admin, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("lock history: %d %s", resp.Code, resp.Body.String())
	}
	var history struct {
		Items []audit.Entry `json:"items"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history.Items) != 2 {
		t.Fatalf("expected CREATE and UPDATE entries, got %+v", history.Items)
	}
	if history.Items[0].Action != audit.ActionUpdate {
		t.Fatalf("expected newest entry first, got %+v", history.Items[0])
	}

	resp = s.do(t, http.MethodDelete, "/locks/front-door", admin, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("delete lock: %d %s", resp.Code, resp.Body.String())
	}
	if resp = s.do(t, http.MethodGet, "/locks/front-door", admin, nil); resp.Code != http.StatusNotFound {
		t.Fatalf("get deleted lock: %d %s", resp.Code, resp.Body.String())
	}
}

func TestLockStateRequiresBoolean(t *testing.T) {
	s := newTestServer(t)
	admin := s.seedAdmin(t)

	s.do(t, http.MethodPost, "/locks", admin, map[string]any{"id": "front-door"})

	resp := s.do(t, http.MethodPut, "/locks/front-door", admin, map[string]any{"is_open": "yes"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("string is_open: %d %s", resp.Code, resp.Body.String())
	}
	resp = s.do(t, http.MethodPut, "/locks/front-door", admin, map[string]any{})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("missing is_open: %d %s", resp.Code, resp.Body.String())
	}
}

func TestLockWriteDeniedBelowOwnerTier(t *testing.T) {
	s := newTestServer(t)
	admin := s.seedAdmin(t)

	resp := s.do(t, http.MethodPost, "/locks", admin, map[string]any{
		"id": "vault", "owner_privilege": "operator",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create lock: %d %s", resp.Code, resp.Body.String())
	}

	resp = s.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"login": "alice", "password": "s3cret", "email": "alice@example.com",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", resp.Code, resp.Body.String())
	}
	user := s.token(t, resp)

	if resp = s.do(t, http.MethodPut, "/locks/vault", user, map[string]any{"is_open": true}); resp.Code != http.StatusForbidden {
		t.Fatalf("default tier opening operator lock: %d %s", resp.Code, resp.Body.String())
	}

	// Reads stay open to any authenticated identity.
	if resp = s.do(t, http.MethodGet, "/locks/vault", user, nil); resp.Code != http.StatusOK {
		t.Fatalf("read as default tier: %d %s", resp.Code, resp.Body.String())
	}
}

func TestLockCreateConflict(t *testing.T) {
	s := newTestServer(t)
	admin := s.seedAdmin(t)

	if resp := s.do(t, http.MethodPost, "/locks", admin, map[string]any{"id": "front-door"}); resp.Code != http.StatusCreated {
		t.Fatalf("create lock: %d %s", resp.Code, resp.Body.String())
	}
	if resp := s.do(t, http.MethodPost, "/locks", admin, map[string]any{"id": "front-door"}); resp.Code != http.StatusConflict {
		t.Fatalf("duplicate lock: %d %s", resp.Code, resp.Body.String())
	}
}

func TestDeleteUserRequiresAdmin(t *testing.T) {
	s := newTestServer(t)
	admin := s.seedAdmin(t)

	resp := s.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"login": "bob", "password": "s3cret", "email": "bob@example.com",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", resp.Code, resp.Body.String())
	}
	var reg struct {
		User auth.User `json:"user"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &reg); err != nil {
		t.Fatalf("decode register: %v", err)
	}
	bob := s.token(t, resp)

	if resp = s.do(t, http.MethodDelete, "/users/"+reg.User.ID, bob, nil); resp.Code != http.StatusForbidden {
		t.Fatalf("self delete as default tier: %d %s", resp.Code, resp.Body.String())
	}
	if resp = s.do(t, http.MethodDelete, "/users/"+reg.User.ID, admin, nil); resp.Code != http.StatusNoContent {
		t.Fatalf("admin delete: %d %s", resp.Code, resp.Body.String())
	}
}

func TestOversizedBodyRejected(t *testing.T) {
	s := newTestServer(t)

	body := bytes.NewReader(append([]byte(`{"login":"`), bytes.Repeat([]byte("a"), 1<<20)...))
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized body, got %d", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)
	if resp := s.do(t, http.MethodGet, "/healthz", "", nil); resp.Code != http.StatusOK {
		t.Fatalf("healthz: %d", resp.Code)
	}
	if resp := s.do(t, http.MethodGet, "/readyz", "", nil); resp.Code != http.StatusOK {
		t.Fatalf("readyz: %d", resp.Code)
	}
}
