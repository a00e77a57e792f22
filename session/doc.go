// Package session persists the client's credential pair and the cached
// identity snapshot on top of two key-value stores.
//
// # Storage split
//
// The access token lives in an in-memory cache backed by a tab-scoped store:
// it is short-lived and never shared between client instances. The refresh
// token, the cached user and the cached permission set live in the shared
// store so that a fresh instance can silently re-establish the session.
//
// # Architecture boundaries
//
// This package owns the [Store] and the persisted key layout. It does NOT call
// the API, derive permissions, or decide when to renew; those responsibilities
// belong to the client, the permission engine and the refresh coordinator.
//
// # What this package must NOT do
//
//   - Import authsession, refresh, or transport (no upward imports).
//   - Log or otherwise expose token values.
//   - Overwrite a stored refresh token with an empty value.
package session
