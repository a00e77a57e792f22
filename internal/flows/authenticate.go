package flows

import (
	"context"
	"errors"
	"fmt"
)

// ErrMissingTokens is returned when an authentication response lacks a token.
var ErrMissingTokens = errors.New("authentication response missing tokens")

// AuthenticateResult carries the signed-in user or the failure.
type AuthenticateResult[U any] struct {
	User U
	Err  error
	// Persisted is true once tokens reached the store.
	Persisted bool
}

// AuthenticateDeps captures login and register flow dependencies.
type AuthenticateDeps[U any] struct {
	// Call performs the unauthenticated login or register request.
	Call func(ctx context.Context) (user U, access, refresh string, err error)
	// SetTokens stores the issued credential pair.
	SetTokens func(ctx context.Context, access, refresh string) error
	// Apply persists the user and its derived permissions.
	Apply func(ctx context.Context, user U) error
	// Clear erases a partially written session.
	Clear func(ctx context.Context) error
}

// RunAuthenticate performs a login or register exchange and stores the
// session. A failure after the tokens were written clears them again so the
// store never holds tokens without a user.
func RunAuthenticate[U any](ctx context.Context, deps AuthenticateDeps[U]) AuthenticateResult[U] {
	user, access, refresh, err := deps.Call(ctx)
	if err != nil {
		return AuthenticateResult[U]{Err: err}
	}
	if access == "" || refresh == "" {
		return AuthenticateResult[U]{Err: ErrMissingTokens}
	}

	if err := deps.SetTokens(ctx, access, refresh); err != nil {
		return AuthenticateResult[U]{Err: errors.Join(fmt.Errorf("store tokens: %w", err), deps.Clear(ctx))}
	}
	if err := deps.Apply(ctx, user); err != nil {
		return AuthenticateResult[U]{Err: errors.Join(fmt.Errorf("store user: %w", err), deps.Clear(ctx))}
	}
	return AuthenticateResult[U]{User: user, Persisted: true}
}
