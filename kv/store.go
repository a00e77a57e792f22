package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("kv: key not found")

// ErrUnavailable wraps backend transport failures (network, disk, driver).
var ErrUnavailable = errors.New("kv: backend unavailable")

// Store is the get/set/remove contract shared by every backend.
//
// Implementations must be safe for concurrent use. Remove of a missing key
// is not an error.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// BatchRemover is implemented by backends that can drop several keys in one
// round-trip. Callers fall back to sequential Remove calls otherwise.
type BatchRemover interface {
	RemoveAll(ctx context.Context, keys ...string) error
}

// RemoveAll removes every key, using the backend batch path when available.
// Sequential removal attempts every key and joins the failures.
func RemoveAll(ctx context.Context, s Store, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if br, ok := s.(BatchRemover); ok {
		return br.RemoveAll(ctx, keys...)
	}

	var errs []error
	for _, key := range keys {
		if err := s.Remove(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
