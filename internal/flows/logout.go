package flows

import (
	"context"
	"fmt"
)

// LogoutResult separates the best-effort server call from the local clear.
type LogoutResult struct {
	// RevokeErr is the server-side failure, if any. It never stops the clear.
	RevokeErr error
	// ClearErr is the local store failure, if any.
	ClearErr error
	// Revoked is true when the server acknowledged the logout.
	Revoked bool
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Session SessionReader
	Revoke  func(ctx context.Context, refreshToken string) error
	Clear   func(ctx context.Context) error
}

// RunLogout revokes the refresh token server-side when one exists, then
// clears local state unconditionally.
func RunLogout(ctx context.Context, deps LogoutDeps) LogoutResult {
	var res LogoutResult

	refreshToken, err := deps.Session.RefreshToken(ctx)
	switch {
	case err != nil:
		res.RevokeErr = fmt.Errorf("read refresh token: %w", err)
	case refreshToken != "":
		if err := deps.Revoke(ctx, refreshToken); err != nil {
			res.RevokeErr = err
		} else {
			res.Revoked = true
		}
	}

	res.ClearErr = deps.Clear(ctx)
	return res
}
