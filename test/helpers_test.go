//go:build integration
// +build integration

package test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authsession"
	"github.com/MrEthical07/authsession/kv"
)

// redisMode describes which Redis backend the suite is running against.
type redisMode struct {
	name  string
	setup func(t *testing.T) (redis.UniversalClient, func())
}

// redisModes returns miniredis plus a real server when REDIS_ADDR is set, and
// a cluster when REDIS_CLUSTER_ADDRS is set.
func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{
		{
			name: "miniredis",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				mr, err := miniredis.Run()
				if err != nil {
					t.Fatalf("miniredis: %v", err)
				}
				rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				return rdb, func() { _ = rdb.Close(); mr.Close() }
			},
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone:" + addr,
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis at %s: %v", addr, err)
				}
				rdb.FlushDB(context.Background())
				return rdb, func() { rdb.FlushDB(context.Background()); _ = rdb.Close() }
			},
		})
	}

	if addrs := os.Getenv("REDIS_CLUSTER_ADDRS"); addrs != "" {
		modes = append(modes, redisMode{
			name: "cluster",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				var list []string
				for _, a := range strings.Split(addrs, ",") {
					if a = strings.TrimSpace(a); a != "" {
						list = append(list, a)
					}
				}
				rdb := redis.NewClusterClient(&redis.ClusterOptions{Addrs: list})
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis cluster: %v", err)
				}
				return rdb, func() { _ = rdb.Close() }
			},
		})
	}
	return modes
}

// authServer issues numbered tokens. Every issued access token stays valid
// until expireAll; refresh tokens rotate and a reused one is rejected.
type authServer struct {
	server *httptest.Server

	mu      sync.Mutex
	gen     int
	valid   map[string]bool
	refresh string

	gate         chan struct{}
	refreshCalls atomic.Int32
	expiredHits  atomic.Int32
}

func newAuthServer(t *testing.T) *authServer {
	t.Helper()
	a := &authServer{valid: make(map[string]bool)}
	user := authsession.User{ID: "u-int", Role: "ADMIN", Identifier: "int"}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, _ *http.Request) {
		a.mu.Lock()
		access, refresh := a.issueLocked()
		a.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"user": user, "accessToken": access, "refreshToken": refresh,
		}})
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		a.refreshCalls.Add(1)
		if a.gate != nil {
			select {
			case <-a.gate:
			case <-time.After(5 * time.Second):
			}
		}
		var in struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		a.mu.Lock()
		defer a.mu.Unlock()
		if in.RefreshToken == "" || in.RefreshToken != a.refresh {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]string{"code": "AUTH_REFRESH_INVALID"}})
			return
		}
		access, refresh := a.issueLocked()
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"accessToken": access, "refreshToken": refresh,
		}})
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, _ *http.Request) {
		a.mu.Lock()
		a.refresh = ""
		a.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /auth/me", a.authed(func(w http.ResponseWriter) {
		writeJSON(w, http.StatusOK, map[string]any{"data": user})
	}))
	mux.HandleFunc("GET /api/data", a.authed(func(w http.ResponseWriter) {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]bool{"ok": true}})
	}))

	a.server = httptest.NewServer(mux)
	t.Cleanup(a.server.Close)
	return a
}

func (a *authServer) issueLocked() (string, string) {
	a.gen++
	access := "access-" + strconv.Itoa(a.gen)
	a.valid[access] = true
	a.refresh = "refresh-" + strconv.Itoa(a.gen)
	return access, a.refresh
}

func (a *authServer) expireAll() {
	a.mu.Lock()
	a.valid = make(map[string]bool)
	a.mu.Unlock()
}

func (a *authServer) authed(h func(w http.ResponseWriter)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		a.mu.Lock()
		ok := a.valid[token]
		a.mu.Unlock()
		if !ok {
			a.expiredHits.Add(1)
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]string{"code": "AUTH_TOKEN_EXPIRED"}})
			return
		}
		h(w)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// newTab builds a client with a fresh tab store over the shared Redis
// database, the way a new browser tab or process would start.
func newTab(t *testing.T, api *authServer, rdb redis.UniversalClient, redirects *atomic.Int32) *authsession.Client {
	t.Helper()
	b := authsession.New().
		WithBaseURL(api.server.URL).
		WithTabStore(kv.NewMemory()).
		WithRedis(rdb).
		WithMetricsEnabled(true)
	if redirects != nil {
		b.WithRedirect(func(context.Context, error) { redirects.Add(1) })
	}
	c, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func getData(ctx context.Context, c *authsession.Client) error {
	return c.DoJSON(ctx, authsession.Request{Method: http.MethodGet, Path: "/api/data"}, nil)
}
