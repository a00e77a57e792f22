// Package permission derives effective permission sets from a user's role and
// explicit grants or denials.
//
// # Model
//
// A [Registry] declares the universe of permission identifiers. A [RoleTable]
// maps each role to its base identifiers. [Engine.Compute] combines both with a
// [Subject]'s extra and denied identifiers:
//
//	super-admin role: universe
//	any other role:   (base(role) ∪ extra) \ denied
//
// Denials always win over grants, including grants coming from the role.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O. Caching the
// derived set is the caller's job (see package session).
//
// # What this package must NOT do
//
//   - Access storage or the network.
//   - Import authsession, session, or transport.
//   - Mutate a Registry or RoleTable after it is frozen.
package permission
