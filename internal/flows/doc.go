// Package flows contains the orchestration behind every Client session
// operation.
//
// Each flow function (RunRestore, RunHydrate, RunAuthenticate, RunLogout)
// accepts a typed dependency struct and returns a Result value. The client
// maps results onto its snapshot, metrics, audit events and logs.
//
// # Architecture boundaries
//
// Flows coordinate the token store, the auth API and the refresh coordinator
// through function fields. They do NOT own any of these resources; ownership
// stays with the Client.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import the root package (to avoid import cycles).
//   - Log, emit metrics or fire redirects. Those are Client concerns.
package flows
