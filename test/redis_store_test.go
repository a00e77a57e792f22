//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/authsession/kv"
	"github.com/MrEthical07/authsession/session"
)

func TestRedisSharedStoreRoundTrip(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			rdb, cleanup := mode.setup(t)
			defer cleanup()

			ctx := context.Background()
			shared := kv.NewRedis(rdb, "it", time.Hour)
			if _, err := shared.Ping(ctx); err != nil {
				t.Fatalf("Ping: %v", err)
			}

			store, err := session.NewStore(kv.NewMemory(), shared)
			if err != nil {
				t.Fatalf("NewStore: %v", err)
			}
			if err := store.SetTokens(ctx, "a", "r"); err != nil {
				t.Fatalf("SetTokens: %v", err)
			}
			if err := store.SetUser(ctx, map[string]string{"id": "u"}); err != nil {
				t.Fatalf("SetUser: %v", err)
			}

			// Access-only renewal keeps the shared refresh token.
			if err := store.SetTokens(ctx, "a2", ""); err != nil {
				t.Fatalf("SetTokens: %v", err)
			}
			if got, _ := store.RefreshToken(ctx); got != "r" {
				t.Fatalf("refresh token = %q", got)
			}

			if err := store.ClearAuth(ctx); err != nil {
				t.Fatalf("ClearAuth: %v", err)
			}
			for _, key := range []string{session.KeyRefreshToken, session.KeyUser, session.KeyPermissions} {
				if _, err := shared.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
					t.Fatalf("%s survived ClearAuth: %v", key, err)
				}
			}
			if store.IsAuthenticated(ctx) {
				t.Fatalf("still authenticated after ClearAuth")
			}
		})
	}
}
