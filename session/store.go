package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/MrEthical07/authsession/kv"
	"github.com/MrEthical07/authsession/permission"
)

// Persisted keys. All four are removed together by [Store.ClearAuth].
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
	KeyPermissions  = "permissions"
)

// ErrNilStore is returned by NewStore when a backing store is missing.
var ErrNilStore = errors.New("session: nil backing store")

// Store is the token store. It is safe for concurrent use; the only writers
// are the client flows and the refresh coordinator.
type Store struct {
	tab    kv.Store
	shared kv.Store

	mu     sync.RWMutex
	access string
	// gen changes on every write or clear of access; a tab-store read only
	// installs its value if no write happened meanwhile.
	gen uint64
}

// NewStore creates a [Store]. tab holds the access token copy for this client
// instance; shared holds everything that must survive a new instance.
func NewStore(tab, shared kv.Store) (*Store, error) {
	if tab == nil || shared == nil {
		return nil, ErrNilStore
	}
	return &Store{tab: tab, shared: shared}, nil
}

// AccessToken returns the access token, preferring the in-memory copy over a
// read of the tab store. An absent token is reported as "" with a nil error.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	cached, gen := s.access, s.gen
	s.mu.RUnlock()
	if cached != "" {
		return cached, nil
	}

	v, err := s.tab.Get(ctx, KeyAccessToken)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return "", nil
		}
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return s.access, nil
	}
	s.access = v
	return v, nil
}

// RefreshToken returns the refresh token from the shared store, or "".
func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	v, err := s.shared.Get(ctx, KeyRefreshToken)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return v, nil
}

// SetTokens stores access in memory and in the tab store. The shared refresh
// token is only written when refresh is non-empty, so renewals that rotate
// the access token alone keep the existing refresh token.
func (s *Store) SetTokens(ctx context.Context, access, refresh string) error {
	s.mu.Lock()
	s.access = access
	s.gen++
	s.mu.Unlock()

	if err := s.tab.Set(ctx, KeyAccessToken, access); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	if refresh == "" {
		return nil
	}
	if err := s.shared.Set(ctx, KeyRefreshToken, refresh); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// SetUser caches user as JSON in the shared store.
func (s *Store) SetUser(ctx context.Context, user any) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return s.shared.Set(ctx, KeyUser, string(data))
}

// LoadUser decodes the cached user into dst. It reports false when nothing is
// cached or the cached value is not valid JSON for dst.
func (s *Store) LoadUser(ctx context.Context, dst any) (bool, error) {
	raw, err := s.shared.Get(ctx, KeyUser)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if raw == "" || raw == "null" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, nil
	}
	return true, nil
}

// SetPermissions caches the derived permission set as a JSON array.
func (s *Store) SetPermissions(ctx context.Context, perms permission.Set) error {
	data, err := json.Marshal(perms)
	if err != nil {
		return fmt.Errorf("encode permissions: %w", err)
	}
	return s.shared.Set(ctx, KeyPermissions, string(data))
}

// Permissions returns the cached permission set. ok is false when nothing
// usable is cached.
func (s *Store) Permissions(ctx context.Context) (perms permission.Set, ok bool, err error) {
	raw, err := s.shared.Get(ctx, KeyPermissions)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return permission.Set{}, false, nil
		}
		return permission.Set{}, false, err
	}
	if err := json.Unmarshal([]byte(raw), &perms); err != nil {
		return permission.Set{}, false, nil
	}
	return perms, true, nil
}

// ClearAuth erases every persisted key and then the memory cache. Each store
// is attempted even if another fails; the failures are joined. The memory
// cache is cleared regardless.
func (s *Store) ClearAuth(ctx context.Context) error {
	err := errors.Join(
		kv.RemoveAll(ctx, s.tab, KeyAccessToken),
		kv.RemoveAll(ctx, s.shared, KeyRefreshToken, KeyUser, KeyPermissions),
	)

	s.mu.Lock()
	s.access = ""
	s.gen++
	s.mu.Unlock()
	return err
}

// IsAuthenticated reports whether both tokens are present. Storage errors
// count as absence.
func (s *Store) IsAuthenticated(ctx context.Context) bool {
	access, err := s.AccessToken(ctx)
	if err != nil || access == "" {
		return false
	}
	refresh, err := s.RefreshToken(ctx)
	return err == nil && refresh != ""
}
