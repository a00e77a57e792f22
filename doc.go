// Package authsession keeps a client continuously authenticated against a
// REST API and answers access-control questions about the signed-in user.
//
// A [Client] is built with [Builder.Build]. It owns the token store, the
// permission engine, the single-flight refresh coordinator and the request
// pipeline, and exposes the session lifecycle (Boot, Login, Register, Logout,
// Hydrate) plus synchronous permission checks against an immutable
// [Snapshot]. Client methods are safe to call from multiple goroutines.
//
// # Architecture boundaries
//
// authsession is the public surface. It exposes [Client], [Builder], [Config]
// and value types (Snapshot, User, MetricsSnapshot). Flow orchestration, audit
// dispatch and logger construction live under internal/ and are never
// exported. Route guards and menu filtering are pure consumers of a Snapshot
// and live in packages guard, middleware and menu.
//
// # What this package must NOT do
//
//   - Log or audit token values.
//   - Retry a request more than once after renewal.
//   - Import any sub-package that re-imports authsession (no import cycles).
//
// # Failure model
//
// Renewal failures end the session: the store is cleared, the snapshot resets
// and the redirect callback fires once per failed renewal cycle. Transient
// failures while hydrating keep the cached identity unless
// Session.PreserveOnTransientError is disabled.
package authsession
