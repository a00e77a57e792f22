package flows

import (
	"context"
	"fmt"
)

// RestoreOutcome describes what RunRestore did.
type RestoreOutcome int

const (
	// RestoreSkipped means there was nothing to restore or nothing missing.
	RestoreSkipped RestoreOutcome = iota
	// RestoreRenewed means a fresh access token was obtained.
	RestoreRenewed
	// RestoreFailed means renewal failed; the coordinator cleared the session.
	RestoreFailed
)

// RestoreResult carries the restore outcome.
type RestoreResult struct {
	Outcome RestoreOutcome
	Err     error
}

// RestoreDeps captures restore flow dependencies.
type RestoreDeps struct {
	Session SessionReader
	// Renew goes through the refresh coordinator so a restore racing other
	// requests still renews once.
	Renew func(ctx context.Context) error
}

// RunRestore renews silently when a refresh token survived but the access
// token did not (a new process or tab).
func RunRestore(ctx context.Context, deps RestoreDeps) RestoreResult {
	refreshToken, err := deps.Session.RefreshToken(ctx)
	if err != nil {
		return RestoreResult{Outcome: RestoreSkipped, Err: fmt.Errorf("read refresh token: %w", err)}
	}
	if refreshToken == "" {
		return RestoreResult{Outcome: RestoreSkipped}
	}

	access, err := deps.Session.AccessToken(ctx)
	if err != nil {
		return RestoreResult{Outcome: RestoreSkipped, Err: fmt.Errorf("read access token: %w", err)}
	}
	if access != "" {
		return RestoreResult{Outcome: RestoreSkipped}
	}

	if err := deps.Renew(ctx); err != nil {
		return RestoreResult{Outcome: RestoreFailed, Err: err}
	}
	return RestoreResult{Outcome: RestoreRenewed}
}
