package authsession

import (
	"errors"

	"github.com/MrEthical07/authsession/refresh"
	"github.com/MrEthical07/authsession/transport"
)

var (
	// ErrNotAuthenticated is returned by operations that need a session when none exists.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrClientNotReady is returned by a nil or closed Client.
	ErrClientNotReady = errors.New("client not ready")
	// ErrBuilderUsed is returned by a second Build on the same Builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrInvalidConfig wraps every Config.Validate failure.
	ErrInvalidConfig = errors.New("invalid config")
)

// Errors surfaced from the request pipeline. Match them with errors.Is.
var (
	ErrUnauthorized       = transport.ErrUnauthorized
	ErrForbidden          = transport.ErrForbidden
	ErrTokenExpired       = transport.ErrTokenExpired
	ErrInvalidCredentials = transport.ErrInvalidCredentials
	ErrAccountLocked      = transport.ErrAccountLocked
	ErrValidation         = transport.ErrValidation
	ErrTimeout            = transport.ErrTimeout
	ErrNetwork            = transport.ErrNetwork
)

// Errors surfaced from renewal. ErrSessionExpired matches both of the others.
var (
	ErrSessionExpired = refresh.ErrSessionExpired
	ErrNoRefreshToken = refresh.ErrNoRefreshToken
	ErrRenewalFailed  = refresh.ErrRenewalFailed
)

// APIError is the normalized form of a failed API call.
type APIError = transport.APIError

// FieldErrors maps a validation failure to per-field messages. It returns nil
// for errors that carry no field details.
func FieldErrors(err error) map[string]string {
	return transport.FieldErrors(err)
}

// IsSessionTerminal reports whether err means the server no longer accepts the
// session: a 401 of any kind, or a failed renewal.
func IsSessionTerminal(err error) bool {
	return errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrUnauthorized)
}
