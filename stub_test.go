package authsession

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/authsession/kv"
	"github.com/MrEthical07/authsession/permission"
)

type stubAccount struct {
	password string
	user     User
}

// stubAPI is a minimal auth backend. It issues numbered tokens and accepts
// only the most recently issued access token.
type stubAPI struct {
	server *httptest.Server

	mu       sync.Mutex
	accounts map[string]stubAccount
	current  string
	refresh  string
	userID   string
	issued   int

	refreshFail  atomic.Bool
	meStatus     atomic.Int32
	logoutDown   atomic.Bool
	refreshGate  chan struct{}
	refreshCalls atomic.Int32
	meCalls      atomic.Int32
	logoutCalls  atomic.Int32
	expiredHits  atomic.Int32
}

func newStubAPI(t *testing.T) *stubAPI {
	t.Helper()
	s := &stubAPI{accounts: map[string]stubAccount{
		"root": {password: "pw", user: User{ID: "u-root", Role: permission.RoleSuperAdmin, Identifier: "root"}},
		"maria": {password: "pw", user: User{
			ID:                 "u-maria",
			Role:               permission.RoleMember,
			Identifier:         "maria",
			FirstName:          "Maria",
			MeetingAssignments: []string{"m-1"},
		}},
		"locked": {password: "pw", user: User{ID: "u-locked", Role: permission.RoleMember}},
	}}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", s.login)
	mux.HandleFunc("POST /auth/register", s.register)
	mux.HandleFunc("POST /auth/refresh", s.renew)
	mux.HandleFunc("POST /auth/logout", s.logout)
	mux.HandleFunc("GET /auth/me", s.me)
	mux.HandleFunc("GET /api/things", s.things)
	s.server = httptest.NewServer(mux)
	t.Cleanup(s.server.Close)
	return s
}

func writeStubJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeStubError(w http.ResponseWriter, status int, code, msg string, details any) {
	body := map[string]any{"code": code, "message": msg}
	if details != nil {
		body["details"] = details
	}
	writeStubJSON(w, status, map[string]any{"error": body})
}

func (s *stubAPI) issueLocked(userID string) (string, string) {
	s.issued++
	s.current = fmt.Sprintf("access-%d", s.issued)
	s.refresh = fmt.Sprintf("refresh-%d", s.issued)
	s.userID = userID
	return s.current, s.refresh
}

// expireAccess invalidates the outstanding access token.
func (s *stubAPI) expireAccess() {
	s.mu.Lock()
	s.current = "revoked"
	s.mu.Unlock()
}

func (s *stubAPI) userByID(id string) (User, bool) {
	for _, acc := range s.accounts {
		if acc.user.ID == id {
			return acc.user, true
		}
	}
	return User{}, false
}

func (s *stubAPI) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[in.Identifier]
	if !ok || acc.password != in.Password {
		writeStubError(w, http.StatusUnauthorized, "AUTH_INVALID_CREDENTIALS", "invalid credentials", nil)
		return
	}
	if in.Identifier == "locked" {
		writeStubError(w, http.StatusLocked, "AUTH_ACCOUNT_LOCKED", "account locked", nil)
		return
	}
	access, refresh := s.issueLocked(acc.user.ID)
	writeStubJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"user": acc.user, "accessToken": access, "refreshToken": refresh,
	}})
}

func (s *stubAPI) register(w http.ResponseWriter, r *http.Request) {
	var in RegisterRequest
	_ = json.NewDecoder(r.Body).Decode(&in)
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		writeStubError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid form",
			[]map[string]string{{"field": "email", "message": "must be a valid email"}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	user := User{ID: "u-" + in.Identifier, Role: permission.RoleMember, Identifier: in.Identifier, Email: in.Email}
	s.accounts[in.Identifier] = stubAccount{password: in.Password, user: user}
	access, refresh := s.issueLocked(user.ID)
	writeStubJSON(w, http.StatusCreated, map[string]any{"data": map[string]any{
		"user": user, "accessToken": access, "refreshToken": refresh,
	}})
}

func (s *stubAPI) renew(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)
	if s.refreshGate != nil {
		select {
		case <-s.refreshGate:
		case <-time.After(5 * time.Second):
		}
	}
	var in struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refreshFail.Load() || in.RefreshToken != s.refresh {
		writeStubError(w, http.StatusUnauthorized, "AUTH_REFRESH_INVALID", "refresh token rejected", nil)
		return
	}
	access, refresh := s.issueLocked(s.userID)
	writeStubJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"accessToken": access, "refreshToken": refresh,
	}})
}

func (s *stubAPI) logout(w http.ResponseWriter, _ *http.Request) {
	s.logoutCalls.Add(1)
	if s.logoutDown.Load() {
		writeStubError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "down", nil)
		return
	}
	s.mu.Lock()
	s.refresh = ""
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// authorize reports whether the request carries the current access token and
// writes the 401 otherwise.
func (s *stubAPI) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	current, userID := s.current, s.userID
	s.mu.Unlock()
	if token == "" || token != current {
		s.expiredHits.Add(1)
		writeStubError(w, http.StatusUnauthorized, "AUTH_TOKEN_EXPIRED", "token expired", nil)
		return "", false
	}
	return userID, true
}

func (s *stubAPI) me(w http.ResponseWriter, r *http.Request) {
	s.meCalls.Add(1)
	if status := int(s.meStatus.Load()); status != 0 {
		writeStubError(w, status, "STUB_FAILURE", http.StatusText(status), nil)
		return
	}
	userID, ok := s.authorize(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	user, _ := s.userByID(userID)
	s.mu.Unlock()
	writeStubJSON(w, http.StatusOK, map[string]any{"data": user})
}

func (s *stubAPI) things(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authorize(w, r); !ok {
		return
	}
	writeStubJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"ok": true}})
}

type clientOptions struct {
	shared    kv.Store
	sink      AuditSink
	redirects *atomic.Int32
	mutate    func(*Config)
}

func newTestClient(t *testing.T, api *stubAPI, opts clientOptions) *Client {
	t.Helper()
	cfg := DefaultConfig()
	cfg.API.BaseURL = api.server.URL
	cfg.API.Timeout = 5 * time.Second
	cfg.Metrics.Enabled = true
	if opts.sink != nil {
		cfg.Audit.Enabled = true
		cfg.Audit.DropIfFull = false
	}
	if opts.mutate != nil {
		opts.mutate(&cfg)
	}

	b := New().WithConfig(cfg)
	if opts.shared != nil {
		b.WithSharedStore(opts.shared)
	}
	if opts.sink != nil {
		b.WithAuditSink(opts.sink)
	}
	if opts.redirects != nil {
		counter := opts.redirects
		b.WithRedirect(func(_ context.Context, _ error) { counter.Add(1) })
	}
	c, err := b.Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

type syncBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
