// Package middleware adapts the guard decisions to net/http handlers.
//
// # Guards
//
//   - [RequireAuth] admits authenticated sessions, 303 to login otherwise.
//   - [RequireGuest] admits anonymous sessions, 303 home otherwise.
//   - [RequirePermission] admits sessions holding the required permissions.
//
// Each adapter asks a [Provider] for the current session view, evaluates the
// matching guard and renders the decision: Pending becomes 202 with
// Retry-After, Deny becomes the fallback handler or 403, Hidden becomes 204.
//
// # Architecture boundaries
//
// This package translates guard decisions into HTTP responses. It does NOT
// evaluate permissions itself; every decision comes from package guard.
//
// # What this package must NOT do
//
//   - Read tokens or call the API.
//   - Panic or surface errors to the caller.
package middleware
