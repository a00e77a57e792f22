package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// backend is an in-process auth API. Access tokens stay valid until expire
// is called; refresh tokens rotate on every renewal.
type backend struct {
	latency time.Duration

	mu      sync.Mutex
	gen     int
	access  string
	refresh string

	refreshCalls atomic.Int64
}

func newBackend(latency time.Duration) *backend {
	return &backend{latency: latency}
}

func (b *backend) issueLocked() (string, string) {
	b.gen++
	b.access = "access-" + strconv.Itoa(b.gen)
	b.refresh = "refresh-" + strconv.Itoa(b.gen)
	return b.access, b.refresh
}

func (b *backend) expire() {
	b.mu.Lock()
	b.access = ""
	b.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *backend) handler() http.Handler {
	user := map[string]any{"id": "u-load", "role": "MEMBER"}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, _ *http.Request) {
		b.mu.Lock()
		access, refresh := b.issueLocked()
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"user": user, "accessToken": access, "refreshToken": refresh,
		}})
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		b.refreshCalls.Add(1)
		time.Sleep(b.latency)
		var in struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)

		b.mu.Lock()
		defer b.mu.Unlock()
		if in.RefreshToken != b.refresh {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]string{
				"code": "AUTH_REFRESH_REUSED", "message": "refresh token already used",
			}})
			return
		}
		access, refresh := b.issueLocked()
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"accessToken": access, "refreshToken": refresh,
		}})
	})
	mux.HandleFunc("GET /api/ping", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(b.latency)
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		b.mu.Lock()
		valid := token != "" && token == b.access
		b.mu.Unlock()
		if !valid {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]string{
				"code": "AUTH_TOKEN_EXPIRED", "message": "token expired",
			}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]bool{"pong": true}})
	})
	return mux
}
