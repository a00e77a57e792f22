// Package kv defines the key-value contract that session persistence is built on,
// together with the backends authsession ships with.
//
// # Backends
//
//   - [Memory]: process-local map. Used as the tab-scoped store and in tests.
//   - [Redis]: shared store reachable from every process of the same user.
//   - [SQLite]: on-disk shared store for single-machine clients such as the CLI.
//
// # Architecture boundaries
//
// Values are opaque strings. Serialization of tokens, users and permission sets
// belongs to package session.
//
// # What this package must NOT do
//
//   - Interpret stored values.
//   - Import authsession, session, or transport.
package kv
