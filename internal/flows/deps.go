package flows

import "context"

// SessionReader is the slice of the token store flows read from.
type SessionReader interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	IsAuthenticated(ctx context.Context) bool
}

// Deps groups flow dependency sets. The Client builds this once and delegates
// each operation to the matching flow.
type Deps[U any] struct {
	Restore RestoreDeps
	Hydrate HydrateDeps[U]
	Logout  LogoutDeps
}
