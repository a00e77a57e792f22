// Package jwt reads claims out of access tokens the client holds without
// verifying them.
//
// The client never owns signing keys; the server verifies every token. The
// claims read here are advisory: they let the client report when the session
// expires and optionally renew before sending a request that is certain to be
// rejected.
//
// # What this package must NOT do
//
//   - Treat an inspected token as trusted for authorization decisions.
//   - Fail a request because a token is opaque rather than a JWT.
package jwt
